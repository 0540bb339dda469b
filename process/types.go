package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ThreadID represents the identifier of a process's primary thread
type ThreadID int

// StartInfo is what a platform Start returns about the created process
type StartInfo struct {
	PID    ProcessID     // Process ID
	TID    ThreadID      // Primary thread ID
	Path   string        // Executable path the process was created from
	Proc   ProcessHandle // Exclusively owned process handle
	Thread ThreadHandle  // Exclusively owned primary thread handle
}
