//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"

	"spark/process"
	"spark/process/memory_map"

	"golang.org/x/sys/unix"
)

// remoteMemory writes through /proc/[pid]/mem. Unlike process_vm_writev this
// honours FOLL_FORCE, so read-only text pages of a traced child can be patched.
type remoteMemory struct {
	pid  process.ProcessID
	file *os.File
}

// OpenMemoryWriter obtains write access to pid's address space
func OpenMemoryWriter(pid process.ProcessID) (*process.MemoryWriter, error) {
	file, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: process %d: %w", process.ErrProcessNotFound, pid, err)
		case errors.Is(err, os.ErrPermission):
			return nil, fmt.Errorf("%w: process %d: %w", process.ErrAccessDenied, pid, err)
		default:
			return nil, fmt.Errorf("open memory of process %d: %w", pid, err)
		}
	}

	return process.NewMemoryWriter(pid, &remoteMemory{pid: pid, file: file}), nil
}

func (m *remoteMemory) WriteMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	if m.file == nil {
		return 0, process.ErrWriterClosed
	}

	n, err := unix.Pwrite(int(m.file.Fd()), data, int64(addr))
	if err != nil {
		return 0, fmt.Errorf("pwrite /proc/%d/mem failed: %w", m.pid, err)
	}
	return n, nil
}

func (m *remoteMemory) DescribeRegion(addr process.ProcessMemoryAddress) (*memory_map.MemoryMapItem, error) {
	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(m.pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	item := memory_map.Lookup(uint64(addr), mm)
	if item == nil {
		return nil, process.ErrAddressNotMapped
	}
	return item, nil
}

func (m *remoteMemory) Close() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
