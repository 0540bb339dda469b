package process

// ProcessState represents the lifecycle state of a SuspendedProcess
type ProcessState string

const (
	ProcessSuspended ProcessState = "suspended" // Created, primary thread not yet scheduled
	ProcessRunning   ProcessState = "running"   // Primary thread resumed
	ProcessDisposed  ProcessState = "disposed"  // Handles released, terminal
)

func (s ProcessState) String() string {
	return string(s)
}
