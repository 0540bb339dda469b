package process

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// SuspendedProcess owns a freshly created process whose primary thread has not
// run yet. It is created by a platform Start and must be closed by its caller;
// Close releases both handles exactly once on every path.
type SuspendedProcess struct {
	pid  ProcessID
	tid  ThreadID
	path string

	proc   ProcessHandle
	thread ThreadHandle

	state           ProcessState
	resumeOnDispose bool

	log *logger.Logger
	mu  sync.Mutex
}

// Option configures a SuspendedProcess at creation
type Option func(*SuspendedProcess)

// WithResumeOnDispose sets what Close does with a process that is still suspended.
// The default is true: an unresumed process is let run when released.
func WithResumeOnDispose(resume bool) Option {
	return func(p *SuspendedProcess) {
		p.resumeOnDispose = resume
	}
}

// NewSuspendedProcess takes ownership of the handles in info. Platform Start
// functions call this; tests call it with doubles.
func NewSuspendedProcess(info StartInfo, opts ...Option) *SuspendedProcess {
	p := &SuspendedProcess{
		pid:             info.PID,
		tid:             info.TID,
		path:            info.Path,
		proc:            info.Proc,
		thread:          info.Thread,
		state:           ProcessSuspended,
		resumeOnDispose: true,
		log:             logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", info.PID))),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Safety net only; Close is the contract.
	runtime.SetFinalizer(p, func(p *SuspendedProcess) {
		_ = p.Close()
	})

	p.log.Infoln("Process created suspended:", info.Path, "tid", info.TID)
	return p
}

// GetPID returns the process ID
func (p *SuspendedProcess) GetPID() ProcessID {
	return p.pid
}

// GetTID returns the primary thread ID
func (p *SuspendedProcess) GetTID() ThreadID {
	return p.tid
}

// Path returns the executable the process was created from
func (p *SuspendedProcess) Path() string {
	return p.path
}

// State returns the current lifecycle state
func (p *SuspendedProcess) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsSuspended reports whether the primary thread has not been resumed yet
func (p *SuspendedProcess) IsSuspended() bool {
	return p.State() == ProcessSuspended
}

// Resume lets the primary thread run. It keeps decrementing the suspend count
// until the thread is actually scheduled, so nested suspensions are undone too.
// Resuming a running process is a no-op.
func (p *SuspendedProcess) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == ProcessDisposed {
		return ErrDisposed
	}

	return p.resumeInternal()
}

// Internal helper function that assumes the mutex is already locked
func (p *SuspendedProcess) resumeInternal() error {
	if p.state != ProcessSuspended {
		return nil
	}

	calls := 0
	for {
		previous, err := p.thread.Resume()
		if err != nil {
			return fmt.Errorf("%w: thread %d: %w", ErrResumeFailed, p.tid, err)
		}
		calls++

		// previous is the count before this call: 1 means it just reached zero,
		// 0 means it was not suspended at all.
		if previous <= 1 {
			break
		}
	}

	p.state = ProcessRunning
	p.log.Infoln("Process resumed after", calls, "resume call(s)")
	return nil
}

// Terminate kills a process that has not been disposed yet
func (p *SuspendedProcess) Terminate(exitCode uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == ProcessDisposed {
		return ErrDisposed
	}

	if err := p.proc.Terminate(exitCode); err != nil {
		return fmt.Errorf("terminate process %d: %w", p.pid, err)
	}

	p.log.Infoln("Process terminated with exit code", exitCode)
	return nil
}

// Close disposes the process using the resume-on-dispose default
func (p *SuspendedProcess) Close() error {
	return p.Dispose(p.resumeOnDispose)
}

// Dispose releases both handles. When resume is true and the process is still
// suspended it is resumed first; a resume failure does not prevent the release.
// Calling Dispose again is a no-op.
func (p *SuspendedProcess) Dispose(resume bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == ProcessDisposed {
		return nil
	}

	var errs []error
	if resume {
		if err := p.resumeInternal(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := p.thread.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close thread handle: %w", err))
	}
	if err := p.proc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close process handle: %w", err))
	}

	p.state = ProcessDisposed
	runtime.SetFinalizer(p, nil)

	p.log.Infoln("Process handles released")
	return errors.Join(errs...)
}
