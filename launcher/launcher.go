// Package launcher runs the two user workflows: launching a patched client
// and testing whether a server accepts a client version. Every failure is
// turned into an Outcome; nothing here panics or prints.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"spark/client"
	"spark/detect"
	"spark/patch"
	"spark/process"
	"spark/profile"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

// terminateExitCode is used when a half patched process is killed
const terminateExitCode = 1

// Process is the suspended child a launch drives.
// *process.SuspendedProcess implements it.
type Process interface {
	GetPID() process.ProcessID
	Terminate(exitCode uint32) error
	Dispose(resume bool) error
}

// Writer is the remote memory channel patches are written through.
// *process.MemoryWriter implements it.
type Writer interface {
	patch.Writer
	Close() error
}

// Starter creates the process at path suspended, passing args after argv[0]
type Starter func(path string, args []string) (Process, error)

// WriterOpener opens write access to a running process
type WriterOpener func(pid process.ProcessID) (Writer, error)

// LaunchRequest is everything a launch needs from settings and the catalog
type LaunchRequest struct {
	ExecutablePath string
	Profiles       []*profile.Profile

	// Args are passed to the client after its own path
	Args []string

	// AutoDetect selects the profile by file fingerprint, otherwise by VersionName
	AutoDetect  bool
	VersionName string

	// Hostname and Port are the redirect target, used when Toggles.Redirect.Enabled.
	// The resolved address replaces Toggles.Redirect.Address.
	Hostname string
	Port     uint16

	Toggles patch.Toggles

	// VerifyImage checks the profile's patch sites against the PE sections
	// before the process is created
	VerifyImage bool

	// SuppressResumeOnFailure terminates the process when patching fails
	// instead of letting it run
	SuppressResumeOnFailure bool
}

// Launcher wires the process, patch, detect and client packages together
type Launcher struct {
	start    Starter
	open     WriterOpener
	resolver Resolver
	dialer   client.Dialer
	applier  *patch.Applier
	log      *logger.Logger
}

// Option configures a Launcher
type Option func(*Launcher)

// WithStarter replaces the platform process starter
func WithStarter(s Starter) Option {
	return func(l *Launcher) { l.start = s }
}

// WithWriterOpener replaces the platform memory writer
func WithWriterOpener(o WriterOpener) Option {
	return func(l *Launcher) { l.open = o }
}

// WithResolver replaces the DNS resolver
func WithResolver(r Resolver) Option {
	return func(l *Launcher) { l.resolver = r }
}

// WithDialer replaces the dialer used for connection tests
func WithDialer(d client.Dialer) Option {
	return func(l *Launcher) { l.dialer = d }
}

// New creates a launcher backed by the platform process layer
func New(opts ...Option) *Launcher {
	l := &Launcher{
		start:    platformStart,
		open:     platformOpenWriter,
		resolver: NetResolver{},
		dialer:   &net.Dialer{},
		applier:  patch.NewApplier(),
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "launcher")),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func runLogger(kind string, id uuid.UUID) *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, kind+"-"+id.String()[:8]))
}

// Launch starts the client suspended, patches it and lets it run
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) Outcome {
	id := uuid.New()
	log := runLogger("launch", id)

	o := l.launch(ctx, req, log)
	o.RunID = id

	if o.OK() {
		log.Infoln(o.Title, o.Detail)
	} else {
		log.Warn(o.String())
	}
	return o
}

func (l *Launcher) launch(ctx context.Context, req LaunchRequest, log *logger.Logger) Outcome {
	log.Infoln("Launching", req.ExecutablePath, "auto-detect:", req.AutoDetect, "version:", req.VersionName)

	st, err := os.Stat(req.ExecutablePath)
	if err != nil {
		return executableNotFound(req.ExecutablePath, err)
	}
	if st.IsDir() {
		return executableNotFound(req.ExecutablePath, fmt.Errorf("%s is a directory", req.ExecutablePath))
	}

	p, o, ok := l.selectProfile(req, log)
	if !ok {
		return o
	}

	toggles := req.Toggles
	if toggles.Redirect.Enabled {
		ip, o, ok := l.resolve(ctx, req.Hostname, log)
		if !ok {
			return o
		}
		toggles.Redirect.Address = ip
		toggles.Redirect.Port = req.Port
	}

	if err := toggles.Validate(); err != nil {
		return patchFailed(err)
	}

	if req.VerifyImage {
		info, err := detect.InspectImage(req.ExecutablePath)
		if err != nil {
			return patchFailed(err)
		}
		if err := info.CheckProfile(p); err != nil {
			return patchFailed(err)
		}
	}

	if err := ctx.Err(); err != nil {
		return launchFailed(err)
	}

	proc, err := l.start(req.ExecutablePath, req.Args)
	if err != nil {
		return launchFailed(err)
	}

	return l.patchAndRelease(proc, p, toggles, req.SuppressResumeOnFailure, log)
}

// patchAndRelease patches a started process and always disposes it. The
// process is resumed unless patching failed and killOnFailure is set.
func (l *Launcher) patchAndRelease(proc Process, p *profile.Profile, t patch.Toggles, killOnFailure bool, log *logger.Logger) (o Outcome) {
	pid := proc.GetPID()
	resume := true

	var applied []patch.Write
	defer func() {
		derr := proc.Dispose(resume)
		if derr == nil {
			return
		}
		if o.OK() {
			o = launchFailed(derr)
		} else {
			o.Err = errors.Join(o.Err, derr)
		}
		o.PID = pid
		o.Profile = p
		o.Applied = applied
	}()

	var err error
	applied, err = l.patch(pid, p, t)
	if err != nil {
		o = patchFailed(err)
		o.PID = pid
		o.Profile = p
		o.Applied = applied

		if killOnFailure {
			log.Warn("Terminating unpatched process ", pid)
			if terr := proc.Terminate(terminateExitCode); terr != nil {
				o.Err = errors.Join(o.Err, terr)
			}
			resume = false
		}
		return o
	}

	o = launched(pid)
	o.Profile = p
	o.Applied = applied
	return o
}

func (l *Launcher) selectProfile(req LaunchRequest, log *logger.Logger) (*profile.Profile, Outcome, bool) {
	var p *profile.Profile

	if req.AutoDetect {
		digest, err := detect.Fingerprint(req.ExecutablePath)
		if err != nil {
			return nil, versionDetectFailed(err), false
		}
		log.Infoln("Client fingerprint", digest)
		p = detect.MatchFingerprint(digest, req.Profiles)
	} else {
		p = detect.ByName(req.VersionName, req.Profiles)
	}

	if p == nil {
		return nil, versionUnknown(), false
	}

	log.Infoln("Client version", p.String())
	return p, Outcome{}, true
}

func (l *Launcher) resolve(ctx context.Context, host string, log *logger.Logger) (net.IP, Outcome, bool) {
	ip, err := l.resolver.LookupIPv4(ctx, host)
	if err != nil {
		return nil, hostnameUnresolved(err, errors.Is(err, ErrNoIPv4Address)), false
	}
	if ip.To4() == nil {
		return nil, hostnameUnresolved(fmt.Errorf("%w: %s", ErrNoIPv4Address, host), true), false
	}

	log.Infoln("Resolved", host, "to", ip.String())
	return ip.To4(), Outcome{}, true
}

func (l *Launcher) patch(pid process.ProcessID, p *profile.Profile, t patch.Toggles) ([]patch.Write, error) {
	w, err := l.open(pid)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	return l.applier.Apply(w, p, t)
}
