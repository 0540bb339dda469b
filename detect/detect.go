// Package detect identifies which profile an executable on disk belongs to.
package detect

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"spark/profile"
)

var (
	ErrFileRead = errors.New("unable to read executable")
)

// Fingerprint returns the lowercase hex MD5 digest of the whole file
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ByFingerprint hashes the file at path and returns the first profile whose
// fingerprint matches, or nil when none does.
func ByFingerprint(path string, profiles []*profile.Profile) (*profile.Profile, error) {
	digest, err := Fingerprint(path)
	if err != nil {
		return nil, err
	}

	return MatchFingerprint(digest, profiles), nil
}

// MatchFingerprint returns the first profile with the given digest
func MatchFingerprint(digest string, profiles []*profile.Profile) *profile.Profile {
	for _, p := range profiles {
		if p != nil && p.MatchesFingerprint(digest) {
			return p
		}
	}
	return nil
}

// ByName returns the profile named name, ignoring case, or nil
func ByName(name string, profiles []*profile.Profile) *profile.Profile {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	for _, p := range profiles {
		if p != nil && p.MatchesName(name) {
			return p
		}
	}
	return nil
}
