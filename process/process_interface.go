package process

import (
	"spark/process/memory_map"
)

// ThreadHandle is an exclusively owned handle to a process's primary thread
type ThreadHandle interface {
	// Resume decrements the thread's suspend count once and returns the count
	// as it was before the call. Zero means the thread was not suspended.
	Resume() (previous uint32, err error)

	// Close releases the handle without affecting the thread
	Close() error
}

// ProcessHandle is an exclusively owned handle to a created process
type ProcessHandle interface {
	// Terminate kills the process with the given exit code
	Terminate(exitCode uint32) error

	// Close releases the handle without affecting the process
	Close() error
}

// RemoteMemory is write access into another process's address space
type RemoteMemory interface {
	// WriteMemory writes data at addr and returns the number of bytes written
	WriteMemory(addr ProcessMemoryAddress, data []byte) (int, error)

	// Close releases the access handle
	Close() error
}

// RegionDescriber is implemented by RemoteMemory values that can look up the
// mapping containing an address. MemoryWriter only consults it after a failed write.
type RegionDescriber interface {
	DescribeRegion(addr ProcessMemoryAddress) (*memory_map.MemoryMapItem, error)
}
