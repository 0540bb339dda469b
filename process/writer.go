package process

import (
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// MemoryWriter is a positioned, write-only channel into another process.
// It never reads target memory back.
type MemoryWriter struct {
	pid    ProcessID
	mem    RemoteMemory
	pos    ProcessMemoryAddress
	closed bool
	log    *logger.Logger
	mu     sync.Mutex
}

// NewMemoryWriter binds a writer to pid for its lifetime and takes ownership of mem
func NewMemoryWriter(pid ProcessID, mem RemoteMemory) *MemoryWriter {
	return &MemoryWriter{
		pid: pid,
		mem: mem,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("memory-%d", pid))),
	}
}

// GetPID returns the process the writer is bound to
func (w *MemoryWriter) GetPID() ProcessID {
	return w.pid
}

// Seek sets the address of the next write. No range validation is done here;
// the OS decides at write time.
func (w *MemoryWriter) Seek(addr ProcessMemoryAddress) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pos = addr
}

// Position returns the address of the next write
func (w *MemoryWriter) Position() ProcessMemoryAddress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// Write writes data at the current position and advances it by the number of
// bytes written. A denied write returns a *MemoryWriteError.
func (w *MemoryWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrWriterClosed
	}

	if len(data) == 0 {
		return 0, nil
	}

	addr := w.pos
	written, err := w.mem.WriteMemory(addr, data)
	w.pos += ProcessMemoryAddress(written)

	if err == nil && written != len(data) {
		err = fmt.Errorf("only wrote %d of %d bytes", written, len(data))
	}

	if err != nil {
		werr := &MemoryWriteError{Address: addr, Written: written, Err: err}
		if describer, ok := w.mem.(RegionDescriber); ok {
			if region, derr := describer.DescribeRegion(addr); derr == nil {
				werr.Region = region
			} else {
				w.log.Debugln("Region lookup failed for", addr.ToString(), derr)
			}
		}
		return written, werr
	}

	w.log.Debugln("Wrote", written, "bytes at", addr.ToString())
	return written, nil
}

// Close releases the access handle; further calls are no-ops
func (w *MemoryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.mem.Close(); err != nil {
		return fmt.Errorf("close memory handle for process %d: %w", w.pid, err)
	}

	w.log.Infoln("Memory writer closed")
	return nil
}
