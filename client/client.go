// Package client asks a lobby server whether it accepts a client version.
//
// The exchange is a single request/response over TCP:
//
//	client -> server  cmd 0x00  [version hi][version lo] 0x4C 0x4B 0x00
//	server -> client  cmd 0x00  [result] ...
//
// A result byte of 0x00 means the version is accepted. Anything the server
// sends before the response (the 0x7E greeting on most servers) is skipped.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"spark/packet"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	// DefaultRequestCommand is the version request opcode
	DefaultRequestCommand byte = 0x00

	// DefaultResponseCommand is the version response opcode
	DefaultResponseCommand byte = 0x00

	DefaultDialTimeout = 10 * time.Second
	DefaultTimeout     = 10 * time.Second

	resultAccepted byte = 0x00
)

// versionSuffix trails the version code in every request
var versionSuffix = []byte{0x4C, 0x4B, 0x00}

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrProtocol         = errors.New("protocol error")
	ErrNotConnected     = errors.New("not connected")
	ErrClosed           = errors.New("client closed")
	ErrInvalidVersion   = errors.New("version code out of range")
)

// State is the lifecycle position of a Client
type State int

const (
	StateIdle State = iota
	StateConnected
	StateChecking
	StateChecked
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateChecking:
		return "checking"
	case StateChecked:
		return "checked"
	case StateClosed:
		return "closed"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Dialer opens the transport. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client runs the version handshake against one server
type Client struct {
	dialer      Dialer
	dialTimeout time.Duration
	timeout     time.Duration
	requestCmd  byte
	responseCmd byte

	conn  net.Conn
	asm   *packet.Assembler
	state State
	log   *logger.Logger
	mu    sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithDialer replaces the default net.Dialer
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithDialTimeout bounds Connect when ctx has no deadline
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithTimeout bounds CheckVersion when ctx has no deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCommands overrides the request and response opcodes
func WithCommands(request, response byte) Option {
	return func(c *Client) {
		c.requestCmd = request
		c.responseCmd = response
	}
}

// WithLogger replaces the client's logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates an idle client
func New(opts ...Option) *Client {
	c := &Client{
		dialer:      &net.Dialer{},
		dialTimeout: DefaultDialTimeout,
		timeout:     DefaultTimeout,
		requestCmd:  DefaultRequestCommand,
		responseCmd: DefaultResponseCommand,
		asm:         packet.NewAssembler(),
		state:       StateIdle,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "client"))
	}

	return c
}

// State returns the current lifecycle state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens a TCP connection to address:port
func (c *Client) Connect(ctx context.Context, address string, port uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return ErrClosed
	case StateIdle:
	default:
		return fmt.Errorf("%w: already connected", ErrConnectionFailed)
	}

	if _, ok := ctx.Deadline(); !ok && c.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	target := net.JoinHostPort(address, strconv.Itoa(int(port)))
	c.log.Infoln("Connecting to", target)

	conn, err := c.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, target, err)
	}

	c.conn = conn
	c.state = StateConnected
	return nil
}

// EncodeVersionRequest builds the request payload for versionCode
func EncodeVersionRequest(versionCode int) ([]byte, error) {
	if versionCode < 0 || versionCode > 0xFFFF {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, versionCode)
	}

	payload := []byte{byte(versionCode >> 8), byte(versionCode)}
	return append(payload, versionSuffix...), nil
}

// CheckVersion sends versionCode and waits for the server's verdict. A
// rejection is (false, nil). Transport and protocol errors close the client.
func (c *Client) CheckVersion(ctx context.Context, versionCode int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return false, ErrClosed
	case StateIdle:
		return false, ErrNotConnected
	}

	payload, err := EncodeVersionRequest(versionCode)
	if err != nil {
		return false, err
	}

	c.state = StateChecking

	accepted, err := c.exchange(ctx, payload)
	if err != nil {
		c.closeLocked()
		return false, err
	}

	c.state = StateChecked
	c.log.Infoln("Server", c.conn.RemoteAddr(), "version", versionCode, "accepted:", accepted)
	return accepted, nil
}

func (c *Client) exchange(ctx context.Context, payload []byte) (bool, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	// the callback may still be running after closeLocked clears c.conn
	conn := c.conn
	if err := conn.SetDeadline(deadline); err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// unblock reads and writes when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	frame, err := packet.NewFrame(c.requestCmd, payload)
	if err != nil {
		return false, err
	}
	request, err := packet.Encode(frame)
	if err != nil {
		return false, err
	}

	c.log.Debugln("Sending", frame.String())
	if _, err := conn.Write(request); err != nil {
		return false, c.transportError(ctx, err)
	}

	buf := make([]byte, 1024)
	for {
		for c.asm.Count() > 0 {
			f, _ := c.asm.Take()
			c.log.Debugln("Received", f.String())

			if f.Signature != packet.Signature {
				return false, fmt.Errorf("%w: bad signature 0x%02X", ErrProtocol, f.Signature)
			}
			if f.Command != c.responseCmd {
				continue
			}
			if len(f.Payload) == 0 {
				return false, fmt.Errorf("%w: empty version response", ErrProtocol)
			}
			return f.Payload[0] == resultAccepted, nil
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if ferr := c.asm.Feed(buf[:n]); ferr != nil {
				return false, fmt.Errorf("%w: %w", ErrProtocol, ferr)
			}
		}
		if err != nil && c.asm.Count() == 0 {
			return false, c.transportError(ctx, err)
		}
	}
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctxErr)
	}
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}
