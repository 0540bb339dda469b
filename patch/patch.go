// Package patch turns feature toggles and a profile into byte writes against a
// suspended process.
package patch

import (
	"errors"
	"fmt"
	"net"

	"spark/process"
	"spark/profile"
)

// Toggle names one patch site. The names double as payload override keys.
type Toggle string

const (
	ToggleRedirectAddress   Toggle = "redirect-address"
	ToggleRedirectPort      Toggle = "redirect-port"
	ToggleSkipIntro         Toggle = "skip-intro"
	ToggleMultipleInstances Toggle = "multi-instance"
	ToggleHideWalls         Toggle = "hide-walls"
)

// Order is the order patches are applied in
var Order = []Toggle{
	ToggleRedirectAddress,
	ToggleRedirectPort,
	ToggleSkipIntro,
	ToggleMultipleInstances,
	ToggleHideWalls,
}

// Literal replacement bytes for the fixed patches. They only make sense for the
// binary revisions whose profiles point at them.
var (
	// cmp edx, 0 followed by nops: the intro check never matches
	SkipIntroPayload = []byte{0x83, 0xFA, 0x00, 0x90, 0x90, 0x90}

	// xor eax, eax followed by nops: the existing-instance check reads zero
	MultipleInstancesPayload = []byte{0x31, 0xC0, 0x90, 0x90, 0x90, 0x90}

	// jmp short +0x17, nop: skip the wall drawing block
	HideWallsPayload = []byte{0xEB, 0x17, 0x90}
)

const opPushImm8 = 0x6A

var (
	// ErrPatchFailed matches every *Error
	ErrPatchFailed = errors.New("patch failed")

	ErrInvalidRedirectAddress = errors.New("redirect address must be IPv4")
	ErrInvalidRedirectPort    = errors.New("redirect port must be greater than zero")
)

// Redirect points the client at another server
type Redirect struct {
	Enabled bool
	Address net.IP
	Port    uint16
}

// Toggles selects which patches to apply
type Toggles struct {
	Redirect               Redirect
	SkipIntro              bool
	AllowMultipleInstances bool
	HideWalls              bool
}

// Validate checks the redirect target when redirecting is enabled
func (t Toggles) Validate() error {
	if !t.Redirect.Enabled {
		return nil
	}
	if t.Redirect.Address.To4() == nil {
		return ErrInvalidRedirectAddress
	}
	if t.Redirect.Port == 0 {
		return ErrInvalidRedirectPort
	}
	return nil
}

// Write is one planned patch: bytes to place at an address
type Write struct {
	Toggle  Toggle
	Address process.ProcessMemoryAddress
	Bytes   []byte
}

// Error reports the patch that failed and stops the remaining ones.
// Patches written before it stay in place.
type Error struct {
	Toggle  Toggle
	Address process.ProcessMemoryAddress
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("patch %s at %s failed: %v", e.Toggle, e.Address.ToString(), e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrPatchFailed, e.Err}
}

// EncodeRedirectAddress renders the four push instructions that build the
// server address, last octet pushed first.
func EncodeRedirectAddress(ip net.IP) ([]byte, error) {
	v4 := ip.To4()
	if v4 == nil {
		return nil, ErrInvalidRedirectAddress
	}

	out := make([]byte, 0, 8)
	for i := len(v4) - 1; i >= 0; i-- {
		out = append(out, opPushImm8, v4[i])
	}
	return out, nil
}

// EncodeRedirectPort renders the port immediate, low byte first
func EncodeRedirectPort(port uint16) []byte {
	return []byte{byte(port & 0xFF), byte(port >> 8)}
}

// DefaultPayload returns the built-in bytes of a fixed patch
func DefaultPayload(t Toggle) ([]byte, bool) {
	switch t {
	case ToggleSkipIntro:
		return SkipIntroPayload, true
	case ToggleMultipleInstances:
		return MultipleInstancesPayload, true
	case ToggleHideWalls:
		return HideWallsPayload, true
	}
	return nil, false
}

func fixedPayload(p *profile.Profile, t Toggle) []byte {
	if b, ok := p.Payload(string(t)); ok {
		return b
	}
	b, _ := DefaultPayload(t)
	return append([]byte(nil), b...)
}

// Plan lists the writes for every enabled toggle whose profile address is
// supported, in application order. Nothing is written.
func Plan(p *profile.Profile, t Toggles) ([]Write, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	addrs := p.Addresses()

	steps := []struct {
		toggle  Toggle
		enabled bool
		addr    int64
		payload func() ([]byte, error)
	}{
		{ToggleRedirectAddress, t.Redirect.Enabled, addrs.Redirect, func() ([]byte, error) {
			return EncodeRedirectAddress(t.Redirect.Address)
		}},
		{ToggleRedirectPort, t.Redirect.Enabled, addrs.Port, func() ([]byte, error) {
			return EncodeRedirectPort(t.Redirect.Port), nil
		}},
		{ToggleSkipIntro, t.SkipIntro, addrs.SkipIntro, func() ([]byte, error) {
			return fixedPayload(p, ToggleSkipIntro), nil
		}},
		{ToggleMultipleInstances, t.AllowMultipleInstances, addrs.MultipleInstances, func() ([]byte, error) {
			return fixedPayload(p, ToggleMultipleInstances), nil
		}},
		{ToggleHideWalls, t.HideWalls, addrs.HideWalls, func() ([]byte, error) {
			return fixedPayload(p, ToggleHideWalls), nil
		}},
	}

	var writes []Write
	for _, s := range steps {
		if !s.enabled || !profile.Supported(s.addr) {
			continue
		}
		b, err := s.payload()
		if err != nil {
			return nil, err
		}
		writes = append(writes, Write{Toggle: s.toggle, Address: process.ProcessMemoryAddress(s.addr), Bytes: b})
	}

	return writes, nil
}
