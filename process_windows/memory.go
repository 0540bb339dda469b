//go:build windows

package process_windows

import (
	"fmt"

	"spark/process"
	"spark/process/memory_map"

	"golang.org/x/sys/windows"
)

// Rights needed to write into image pages: WriteProcessMemory flips the page
// protection itself, which takes PROCESS_VM_OPERATION. Query rights are for
// describing a failed address.
const memoryAccess = windows.PROCESS_VM_WRITE | windows.PROCESS_VM_OPERATION | windows.PROCESS_QUERY_INFORMATION

// remoteMemory implements process.RemoteMemory and process.RegionDescriber
type remoteMemory struct {
	handle windows.Handle
}

// OpenMemoryWriter obtains write access to pid's address space
func OpenMemoryWriter(pid process.ProcessID) (*process.MemoryWriter, error) {
	handle, err := windows.OpenProcess(memoryAccess, false, uint32(pid))
	if err != nil {
		return nil, mapOpenError(pid, err)
	}

	return process.NewMemoryWriter(pid, &remoteMemory{handle: handle}), nil
}

func (m *remoteMemory) WriteMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	if m.handle == 0 {
		return 0, process.ErrWriterClosed
	}

	var written uintptr
	err := windows.WriteProcessMemory(
		m.handle,
		uintptr(addr),
		&data[0],
		uintptr(len(data)),
		&written,
	)
	if err != nil {
		return int(written), fmt.Errorf("WriteProcessMemory failed: %w", err)
	}

	return int(written), nil
}

func (m *remoteMemory) DescribeRegion(addr process.ProcessMemoryAddress) (*memory_map.MemoryMapItem, error) {
	mm, err := memory_map.ReadMemoryMapHandle(m.handle)
	if err != nil {
		return nil, err
	}

	item := memory_map.Lookup(uint64(addr), mm)
	if item == nil {
		return nil, process.ErrAddressNotMapped
	}
	return item, nil
}

func (m *remoteMemory) Close() error {
	if m.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(m.handle)
	m.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}
