package launcher

import (
	"context"
	"time"

	"spark/client"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

// ConnectionRequest names the server and the version code to present
type ConnectionRequest struct {
	Hostname    string
	Port        uint16
	VersionCode int

	// Timeout bounds each attempt; zero uses the client default
	Timeout time.Duration
}

// RetryDecision is asked after every failed attempt whether to try again
type RetryDecision func(Outcome) bool

// TestConnection asks the server whether it accepts req.VersionCode. Failed
// attempts are retried for as long as decide returns true and ctx is alive.
func (l *Launcher) TestConnection(ctx context.Context, req ConnectionRequest, decide RetryDecision) Outcome {
	id := uuid.New()
	log := runLogger("test", id)

	for attempt := 1; ; attempt++ {
		o := l.testOnce(ctx, req, log)
		o.RunID = id
		o.Attempts = attempt

		if o.OK() {
			log.Infoln(o.Title, o.Detail)
			return o
		}

		log.Warn("Attempt ", attempt, ": ", o.String())
		if decide == nil || ctx.Err() != nil {
			return o
		}
		if !decide(o) || ctx.Err() != nil {
			return o
		}
	}
}

// TestConnectionAsync runs TestConnection on its own goroutine. The channel
// receives exactly one outcome and is then closed.
func (l *Launcher) TestConnectionAsync(ctx context.Context, req ConnectionRequest, decide RetryDecision) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- l.TestConnection(ctx, req, decide)
	}()
	return ch
}

func (l *Launcher) testOnce(ctx context.Context, req ConnectionRequest, log *logger.Logger) Outcome {
	ip, o, ok := l.resolve(ctx, req.Hostname, log)
	if !ok {
		return o
	}

	opts := []client.Option{client.WithDialer(l.dialer), client.WithLogger(log)}
	if req.Timeout > 0 {
		opts = append(opts, client.WithDialTimeout(req.Timeout), client.WithTimeout(req.Timeout))
	}

	c := client.New(opts...)
	defer c.Close()

	if err := c.Connect(ctx, ip.String(), req.Port); err != nil {
		return connectionFailed(err)
	}

	accepted, err := c.CheckVersion(ctx, req.VersionCode)
	if err != nil {
		return connectionFailed(err)
	}
	if !accepted {
		return versionRejected(req.VersionCode)
	}

	return connected(req.VersionCode)
}
