// Package process provides the platform-neutral half of suspended process control
// and remote memory writing. The platform halves live in process_windows and
// process_linux and hand their handles to the types defined here.
package process

import (
	"errors"
	"fmt"

	"spark/process/memory_map"
)

var (
	// ErrProcessCreationFailed is returned when the OS refuses to create the process
	// (bad path, permissions, malformed executable).
	ErrProcessCreationFailed = errors.New("process creation failed")

	// ErrResumeFailed is returned when the OS rejects a resume of the primary thread.
	ErrResumeFailed = errors.New("resume failed")

	// ErrDisposed is returned by any operation on a SuspendedProcess after Dispose.
	ErrDisposed = errors.New("process disposed")

	// ErrAccessDenied is returned when write access to a process cannot be obtained.
	ErrAccessDenied = errors.New("access denied")

	// ErrProcessNotFound is returned when no process exists with the requested id.
	ErrProcessNotFound = errors.New("process not found")

	// ErrMemoryWriteFailed matches every *MemoryWriteError.
	ErrMemoryWriteFailed = errors.New("memory write failed")

	// ErrWriterClosed is returned when writing through a closed MemoryWriter.
	ErrWriterClosed = errors.New("memory writer closed")

	ErrAddressNotMapped = errors.New("address not mapped")
)

// MemoryWriteError reports a write the OS denied at Address.
type MemoryWriteError struct {
	Address ProcessMemoryAddress
	Written int
	// Region is the mapping containing Address when the platform could describe it,
	// nil when the address is unmapped or the lookup was unavailable.
	Region *memory_map.MemoryMapItem
	Err    error
}

func (e *MemoryWriteError) Error() string {
	msg := fmt.Sprintf("memory write failed at %s", e.Address.ToString())
	if e.Region != nil {
		msg += fmt.Sprintf(" (region %s)", e.Region.String())
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MemoryWriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMemoryWriteFailed}
	}
	return []error{ErrMemoryWriteFailed, e.Err}
}
