// Package packet implements the length-prefixed frame used by the lobby
// protocol.
//
// Every frame is laid out as
//
//	offset 0: signature   (0xAA)
//	offset 1: length hi
//	offset 2: length lo   length = 1 + len(payload)
//	offset 3: command
//	offset 4: payload     (length - 1 bytes)
//
// The length is big-endian and counts the command byte plus the payload, so a
// frame occupies length+3 bytes on the wire.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"spark/hexdump"
)

// Signature is the first byte of every frame
const Signature byte = 0xAA

// HeaderSize is signature + length + command
const HeaderSize = 4

// MaxPayloadSize is the largest payload a 16-bit length can describe
const MaxPayloadSize = 0xFFFF - 1

var (
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidLength is returned for a zero length field, which cannot describe
	// a command byte
	ErrInvalidLength = errors.New("invalid frame length")

	ErrNoPacketAvailable = errors.New("no packet available")
)

// Frame is one decoded unit of the protocol
type Frame struct {
	Signature byte
	Length    uint16
	Command   byte
	Payload   []byte
}

// NewFrame builds a frame with the protocol signature and a computed length
func NewFrame(command byte, payload []byte) (Frame, error) {
	if len(payload) > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	return Frame{
		Signature: Signature,
		Length:    uint16(1 + len(payload)),
		Command:   command,
		Payload:   payload,
	}, nil
}

// Size is the number of bytes the frame occupies on the wire
func (f Frame) Size() int {
	return int(f.Length) + 3
}

func (f Frame) String() string {
	return fmt.Sprintf("frame sig=0x%02X cmd=0x%02X len=%d payload=[%s]", f.Signature, f.Command, f.Length, hexdump.Hex(f.Payload))
}

// Encode serializes f. The length written is always recomputed from the
// payload; f.Length is ignored.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}

	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Signature
	binary.BigEndian.PutUint16(buf[1:3], uint16(1+len(f.Payload)))
	buf[3] = f.Command
	copy(buf[HeaderSize:], f.Payload)

	return buf, nil
}
