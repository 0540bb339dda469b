package packet

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Assembler turns a byte stream split at arbitrary boundaries back into frames.
// Decoded frames are queued in arrival order.
type Assembler struct {
	buf   []byte
	queue []Frame
	mu    sync.Mutex
}

// NewAssembler creates an empty assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed appends p to the buffer and moves every complete frame to the queue.
// A zero length field leaves the stream unrecoverable: the buffer is dropped
// and ErrInvalidLength returned. Frames decoded before it stay queued.
func (a *Assembler) Feed(p []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf = append(a.buf, p...)

	for len(a.buf) >= HeaderSize {
		length := binary.BigEndian.Uint16(a.buf[1:3])
		if length == 0 {
			a.buf = nil
			return fmt.Errorf("%w: zero length field", ErrInvalidLength)
		}

		total := int(length) + 3
		if total > len(a.buf) {
			break
		}

		payload := make([]byte, total-HeaderSize)
		copy(payload, a.buf[HeaderSize:total])

		a.queue = append(a.queue, Frame{
			Signature: a.buf[0],
			Length:    length,
			Command:   a.buf[3],
			Payload:   payload,
		})

		a.buf = a.buf[total:]
	}

	// release the backing array once everything has been consumed
	if len(a.buf) == 0 {
		a.buf = nil
	}

	return nil
}

// Count returns the number of queued frames
func (a *Assembler) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Buffered returns the number of bytes waiting for the rest of a frame
func (a *Assembler) Buffered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

// Peek returns the oldest queued frame without removing it
func (a *Assembler) Peek() (Frame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.queue) == 0 {
		return Frame{}, false
	}
	return a.queue[0], true
}

// Take removes and returns the oldest queued frame
func (a *Assembler) Take() (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.queue) == 0 {
		return Frame{}, ErrNoPacketAvailable
	}

	f := a.queue[0]
	a.queue[0] = Frame{}
	a.queue = a.queue[1:]
	return f, nil
}
