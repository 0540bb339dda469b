//go:build linux

// Package process_linux creates processes stopped at exec under ptrace and
// writes into their memory through /proc/[pid]/mem.
package process_linux

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"spark/process"

	"golang.org/x/sys/unix"
)

var errTracerGone = errors.New("tracer thread exited")

// tracer pins every ptrace request for one child to a single locked OS thread,
// which is what the kernel requires of a tracer.
type tracer struct {
	cmd  *exec.Cmd
	pid  int
	ops  chan func() error
	errs chan error
	once sync.Once
}

func (t *tracer) run(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := t.cmd.Start(); err != nil {
		started <- err
		return
	}
	t.pid = t.cmd.Process.Pid

	// The child stops with SIGTRAP right after execve, before its first instruction
	var ws unix.WaitStatus
	if _, err := unix.Wait4(t.pid, &ws, 0, nil); err != nil {
		_ = t.cmd.Process.Kill()
		started <- fmt.Errorf("wait for exec stop: %w", err)
		return
	}
	if !ws.Stopped() {
		started <- fmt.Errorf("child did not stop at exec (status 0x%x)", uint32(ws))
		return
	}

	started <- nil

	for op := range t.ops {
		t.errs <- op()
	}
}

// do runs fn on the tracer thread
func (t *tracer) do(fn func() error) (err error) {
	defer func() {
		// ops is closed once the handle is released
		if recover() != nil {
			err = errTracerGone
		}
	}()
	t.ops <- fn
	return <-t.errs
}

func (t *tracer) stop() {
	t.once.Do(func() {
		close(t.ops)
	})
}

// threadHandle models the exec stop as a suspend count of one
type threadHandle struct {
	t        *tracer
	detached bool
}

func (h *threadHandle) Resume() (uint32, error) {
	if h.detached {
		return 0, nil
	}

	err := h.t.do(func() error {
		return unix.PtraceDetach(h.t.pid)
	})
	if err != nil {
		return 0, fmt.Errorf("PTRACE_DETACH failed: %w", err)
	}

	h.detached = true
	return 1, nil
}

func (h *threadHandle) Close() error {
	h.t.stop()
	return nil
}

// processHandle owns the child; Close reaps it in the background once it exits
type processHandle struct {
	t      *tracer
	closed bool
}

func (p *processHandle) Terminate(exitCode uint32) error {
	// Linux has no caller-chosen exit code for a kill
	if err := p.t.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill process %d: %w", p.t.pid, err)
	}
	return nil
}

func (p *processHandle) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	go func() {
		_ = p.t.cmd.Wait()
	}()
	return nil
}

type startOptions struct {
	args        []string
	workingDir  string
	processOpts []process.Option
}

// StartOption configures Start
type StartOption func(*startOptions)

// WithArgs sets the arguments after argv[0]
func WithArgs(args ...string) StartOption {
	return func(o *startOptions) {
		o.args = args
	}
}

// WithWorkingDirectory sets the child's current directory
func WithWorkingDirectory(dir string) StartOption {
	return func(o *startOptions) {
		o.workingDir = dir
	}
}

// WithProcessOptions passes options through to the SuspendedProcess
func WithProcessOptions(opts ...process.Option) StartOption {
	return func(o *startOptions) {
		o.processOpts = append(o.processOpts, opts...)
	}
}

// Start executes path stopped at its first instruction
func Start(path string, opts ...StartOption) (*process.SuspendedProcess, error) {
	o := &startOptions{}
	for _, opt := range opts {
		opt(o)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrProcessCreationFailed, err)
	}

	cmd := exec.Command(absPath, o.args...)
	cmd.Dir = o.workingDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	t := &tracer{
		cmd:  cmd,
		ops:  make(chan func() error),
		errs: make(chan error),
	}

	started := make(chan error, 1)
	go t.run(started)
	if err := <-started; err != nil {
		return nil, fmt.Errorf("%w: %s: %w", process.ErrProcessCreationFailed, absPath, err)
	}

	return process.NewSuspendedProcess(process.StartInfo{
		PID:    process.ProcessID(t.pid),
		TID:    process.ThreadID(t.pid),
		Path:   absPath,
		Proc:   &processHandle{t: t},
		Thread: &threadHandle{t: t},
	}, o.processOpts...), nil
}
