//go:build windows

package launcher

import (
	"path/filepath"

	"spark/process"
	"spark/process_windows"

	"golang.org/x/sys/windows"
)

func platformStart(path string, args []string) (Process, error) {
	// the client loads its data files relative to the working directory
	opts := []process_windows.StartOption{process_windows.WithWorkingDirectory(filepath.Dir(path))}
	if len(args) > 0 {
		opts = append(opts, process_windows.WithCommandLine(windows.ComposeCommandLine(append([]string{path}, args...))))
	}

	sp, err := process_windows.Start(path, opts...)
	if err != nil {
		return nil, err
	}
	return sp, nil
}

func platformOpenWriter(pid process.ProcessID) (Writer, error) {
	w, err := process_windows.OpenMemoryWriter(pid)
	if err != nil {
		return nil, err
	}
	return w, nil
}
