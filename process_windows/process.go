//go:build windows

// Package process_windows creates processes suspended and writes into their
// memory through the Win32 API.
package process_windows

import (
	"errors"
	"fmt"
	"path/filepath"
	"unsafe"

	"spark/process"

	"golang.org/x/sys/windows"
)

// threadHandle owns the primary thread handle returned by CreateProcess
type threadHandle struct {
	handle windows.Handle
}

func (t *threadHandle) Resume() (uint32, error) {
	previous, err := windows.ResumeThread(t.handle)
	if err != nil {
		return 0, fmt.Errorf("ResumeThread failed: %w", err)
	}
	return previous, nil
}

func (t *threadHandle) Close() error {
	if t.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(t.handle)
	t.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

// processHandle owns the process handle returned by CreateProcess
type processHandle struct {
	handle windows.Handle
}

func (p *processHandle) Terminate(exitCode uint32) error {
	if err := windows.TerminateProcess(p.handle, exitCode); err != nil {
		return fmt.Errorf("TerminateProcess failed: %w", err)
	}
	return nil
}

func (p *processHandle) Close() error {
	if p.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(p.handle)
	p.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

type startOptions struct {
	commandLine string
	workingDir  string
	processOpts []process.Option
}

// StartOption configures Start
type StartOption func(*startOptions)

// WithCommandLine sets the full command line passed to CreateProcess. When empty
// the quoted executable path is used.
func WithCommandLine(commandLine string) StartOption {
	return func(o *startOptions) {
		o.commandLine = commandLine
	}
}

// WithWorkingDirectory sets the new process's current directory. The default is
// the launcher's own.
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

// Start creates the process at path with its primary thread suspended, before
// any of its instructions run.
func Start(path string, opts ...StartOption) (*process.SuspendedProcess, error) {
	o := &startOptions{}
	for _, opt := range opts {
		opt(o)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrProcessCreationFailed, err)
	}

	applicationName, err := windows.UTF16PtrFromString(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrProcessCreationFailed, err)
	}

	commandLineStr := o.commandLine
	if commandLineStr == "" {
		commandLineStr = windows.EscapeArg(absPath)
	}
	commandLine, err := windows.UTF16PtrFromString(commandLineStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrProcessCreationFailed, err)
	}

	var currentDir *uint16
	if o.workingDir != "" {
		currentDir, err = windows.UTF16PtrFromString(o.workingDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", process.ErrProcessCreationFailed, err)
		}
	}

	var startupInfo windows.StartupInfo
	var processInfo windows.ProcessInformation
	startupInfo.Cb = uint32(unsafe.Sizeof(startupInfo))

	err = windows.CreateProcess(
		applicationName,
		commandLine,
		nil,   // Process security attributes
		nil,   // Primary thread security attributes
		false, // Handles are not inherited
		windows.CREATE_SUSPENDED,
		nil, // Use parent's environment
		currentDir,
		&startupInfo,
		&processInfo,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateProcess %s: %w", process.ErrProcessCreationFailed, absPath, err)
	}

	return process.NewSuspendedProcess(process.StartInfo{
		PID:    process.ProcessID(processInfo.ProcessId),
		TID:    process.ThreadID(processInfo.ThreadId),
		Path:   absPath,
		Proc:   &processHandle{handle: processInfo.Process},
		Thread: &threadHandle{handle: processInfo.Thread},
	}, o.processOpts...), nil
}

// mapOpenError sorts OpenProcess failures into the process sentinels
func mapOpenError(pid process.ProcessID, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: process %d: %w", process.ErrAccessDenied, pid, err)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: process %d: %w", process.ErrProcessNotFound, pid, err)
	default:
		return fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}
}
