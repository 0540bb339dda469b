//go:build windows

package memory_map

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const memPrivate = 0x20000

// ReadMemoryMapHandle walks the regions of an already opened process. The handle
// needs PROCESS_QUERY_INFORMATION.
func ReadMemoryMapHandle(handle windows.Handle) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	var mbi windows.MemoryBasicInformation

	for addr := uintptr(0); ; {
		if err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
			// ERROR_INVALID_PARAMETER marks the end of the user address space
			if len(memoryMap) > 0 {
				break
			}
			return nil, fmt.Errorf("VirtualQueryEx failed at 0x%X: %w", addr, err)
		}

		if mbi.State == windows.MEM_COMMIT {
			memoryMap = append(memoryMap, MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   protectPerms(mbi.Protect, mbi.Type),
			})
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	Sort(memoryMap)
	return memoryMap, nil
}

// protectPerms renders a PAGE_* protection as a "rwxp" string
func protectPerms(protect, memType uint32) string {
	perms := []byte("---p")
	if memType != memPrivate {
		perms[3] = 's'
	}

	if protect&windows.PAGE_GUARD != 0 || protect&windows.PAGE_NOACCESS != 0 {
		return string(perms)
	}

	switch protect & 0xFF {
	case windows.PAGE_READONLY:
		perms[0] = 'r'
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		perms[0], perms[1] = 'r', 'w'
	case windows.PAGE_EXECUTE:
		perms[2] = 'x'
	case windows.PAGE_EXECUTE_READ:
		perms[0], perms[2] = 'r', 'x'
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}

	return string(perms)
}
