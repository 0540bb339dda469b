//go:build !windows && !linux

package launcher

import (
	"errors"
	"fmt"
	"runtime"

	"spark/process"
)

var errUnsupportedPlatform = errors.New("suspended launch is not supported on " + runtime.GOOS)

func platformStart(path string, args []string) (Process, error) {
	return nil, fmt.Errorf("%w: %w", process.ErrProcessCreationFailed, errUnsupportedPlatform)
}

func platformOpenWriter(pid process.ProcessID) (Writer, error) {
	return nil, errUnsupportedPlatform
}
