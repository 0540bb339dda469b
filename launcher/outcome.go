package launcher

import (
	"fmt"

	"spark/patch"
	"spark/process"
	"spark/profile"

	"github.com/google/uuid"
)

// Kind is the closed set of results a workflow can end in
type Kind int

const (
	Success Kind = iota
	ExecutableNotFound
	VersionUndetected
	HostnameUnresolved
	PatchFailed
	LaunchFailed
	ConnectionFailed
	VersionRejectedByServer
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "Success"
	case ExecutableNotFound:
		return "ExecutableNotFound"
	case VersionUndetected:
		return "VersionUndetected"
	case HostnameUnresolved:
		return "HostnameUnresolved"
	case PatchFailed:
		return "PatchFailed"
	case LaunchFailed:
		return "LaunchFailed"
	case ConnectionFailed:
		return "ConnectionFailed"
	case VersionRejectedByServer:
		return "VersionRejectedByServer"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is what a launch or connection test reports back. Title, Message
// and Detail are ready for display; Err keeps the cause for errors.Is.
type Outcome struct {
	Kind    Kind
	Title   string
	Message string
	Detail  string
	Err     error

	RunID    uuid.UUID
	PID      process.ProcessID
	Profile  *profile.Profile
	Applied  []patch.Write
	Attempts int
}

// OK reports whether the workflow succeeded
func (o Outcome) OK() bool {
	return o.Kind == Success
}

func (o Outcome) String() string {
	s := fmt.Sprintf("[%s] %s: %s", o.Kind, o.Title, o.Message)
	if o.Detail != "" {
		s += " (" + o.Detail + ")"
	}
	return s
}

func failure(kind Kind, title, message string, err error) Outcome {
	o := Outcome{Kind: kind, Title: title, Message: message, Err: err}
	if err != nil {
		o.Detail = err.Error()
	}
	return o
}

func executableNotFound(path string, err error) Outcome {
	o := failure(ExecutableNotFound, "File Not Found", "Unable to locate the client executable.", err)
	o.Detail = "Ensure the file exists at the following location:\n" + path
	return o
}

func versionDetectFailed(err error) Outcome {
	return failure(VersionUndetected, "Unable to Detect Version", "Unable to detect the client version.", err)
}

func versionUnknown() Outcome {
	o := failure(VersionUndetected, "Unknown Client Version", "Unable to determine the client version.", nil)
	o.Detail = "You may manually select a client version by disabling auto-detection."
	return o
}

func hostnameUnresolved(err error, noIPv4 bool) Outcome {
	msg := "Unable to resolve the server hostname."
	if noIPv4 {
		msg = "Unable to resolve the server hostname to an IPv4 address."
	}
	o := failure(HostnameUnresolved, "Unable to Resolve Hostname", msg, err)
	o.Detail = "Check your network connection and try again."
	return o
}

func patchFailed(err error) Outcome {
	return failure(PatchFailed, "Failed to Patch", "Unable to patch the client executable.", err)
}

func launchFailed(err error) Outcome {
	return failure(LaunchFailed, "Failed to Launch", "Unable to launch the client executable.", err)
}

func connectionFailed(err error) Outcome {
	return failure(ConnectionFailed, "Connection Failed", "Unable to connect to the server.", err)
}

func versionRejected(versionCode int) Outcome {
	o := failure(VersionRejectedByServer, "Version Rejected", "The server does not accept this client version.", nil)
	o.Detail = fmt.Sprintf("Version %d was rejected.", versionCode)
	return o
}

func launched(pid process.ProcessID) Outcome {
	return Outcome{
		Kind:    Success,
		Title:   "Client Launched",
		Message: "The client was launched and patched.",
		Detail:  fmt.Sprintf("Process ID %d", pid),
		PID:     pid,
	}
}

func connected(versionCode int) Outcome {
	return Outcome{
		Kind:    Success,
		Title:   "Connection Successful",
		Message: "The server accepts this client version.",
		Detail:  fmt.Sprintf("Version %d was accepted.", versionCode),
	}
}
