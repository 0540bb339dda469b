// Package profile describes one supported revision of the client executable:
// how to recognise it and where its patch sites are.
package profile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyName        = errors.New("profile name is empty")
	ErrEmptyFingerprint = errors.New("profile fingerprint is empty")
)

// Addresses is the patch table of a profile. A value <= 0 marks the patch as
// unsupported for that revision.
type Addresses struct {
	Redirect          int64 // server address push sequence
	Port              int64 // server port immediate
	SkipIntro         int64 // intro video comparison
	MultipleInstances int64 // single-instance mutex check
	HideWalls         int64 // wall rendering branch
}

// Profile is an immutable description of a binary revision
type Profile struct {
	name        string
	versionCode int
	fingerprint string
	addresses   Addresses
	payloads    map[string][]byte
}

// New builds a profile. payloads optionally overrides the literal patch bytes
// per patch name; it is copied.
func New(name string, versionCode int, fingerprint string, addresses Addresses, payloads map[string][]byte) (*Profile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if strings.TrimSpace(fingerprint) == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFingerprint)
	}

	p := &Profile{
		name:        name,
		versionCode: versionCode,
		fingerprint: strings.TrimSpace(fingerprint),
		addresses:   addresses,
	}

	if len(payloads) > 0 {
		p.payloads = make(map[string][]byte, len(payloads))
		for k, v := range payloads {
			p.payloads[k] = append([]byte(nil), v...)
		}
	}

	return p, nil
}

// MustNew is New for static catalogs
func MustNew(name string, versionCode int, fingerprint string, addresses Addresses) *Profile {
	p, err := New(name, versionCode, fingerprint, addresses, nil)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Profile) Name() string         { return p.name }
func (p *Profile) VersionCode() int     { return p.versionCode }
func (p *Profile) Fingerprint() string  { return p.fingerprint }
func (p *Profile) Addresses() Addresses { return p.addresses }

// Payload returns the override bytes for a patch name, if the profile has any
func (p *Profile) Payload(name string) ([]byte, bool) {
	b, ok := p.payloads[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Payloads returns a copy of all override bytes
func (p *Profile) Payloads() map[string][]byte {
	if len(p.payloads) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(p.payloads))
	for k, v := range p.payloads {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// MatchesFingerprint compares digests case-insensitively
func (p *Profile) MatchesFingerprint(digest string) bool {
	return strings.EqualFold(p.fingerprint, strings.TrimSpace(digest))
}

// MatchesName compares names case-insensitively
func (p *Profile) MatchesName(name string) bool {
	return strings.EqualFold(p.name, name)
}

// SameIdentity reports whether two profiles describe the same revision entry
func (p *Profile) SameIdentity(other *Profile) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	return p.versionCode == other.versionCode && p.name == other.name
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s (%d)", p.name, p.versionCode)
}

// Supported reports whether an address is a usable patch site
func Supported(addr int64) bool {
	return addr > 0
}
