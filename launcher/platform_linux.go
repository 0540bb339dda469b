//go:build linux

package launcher

import (
	"path/filepath"

	"spark/process"
	"spark/process_linux"
)

func platformStart(path string, args []string) (Process, error) {
	sp, err := process_linux.Start(path,
		process_linux.WithWorkingDirectory(filepath.Dir(path)),
		process_linux.WithArgs(args...),
	)
	if err != nil {
		return nil, err
	}
	return sp, nil
}

func platformOpenWriter(pid process.ProcessID) (Writer, error) {
	w, err := process_linux.OpenMemoryWriter(pid)
	if err != nil {
		return nil, err
	}
	return w, nil
}
