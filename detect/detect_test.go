package detect

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spark/profile"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func TestFingerprint(t *testing.T) {
	path := writeFile(t, "client.exe", []byte("not really an executable"))

	got, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if want := digest([]byte("not really an executable")); got != want {
		t.Errorf("Fingerprint = %s, want %s", got, want)
	}
}

func TestByFingerprint(t *testing.T) {
	h2data := []byte("second revision")
	h3data := []byte("unknown revision")

	p1 := profile.MustNew("P1", 1, digest([]byte("first revision")), profile.Addresses{})
	p2 := profile.MustNew("P2", 2, digest(h2data), profile.Addresses{})
	profiles := []*profile.Profile{p1, p2}

	got, err := ByFingerprint(writeFile(t, "h2.exe", h2data), profiles)
	if err != nil {
		t.Fatalf("ByFingerprint failed: %v", err)
	}
	if got != p2 {
		t.Errorf("ByFingerprint = %v, want P2", got)
	}

	got, err = ByFingerprint(writeFile(t, "h3.exe", h3data), profiles)
	if err != nil {
		t.Fatalf("no match must not be an error: %v", err)
	}
	if got != nil {
		t.Errorf("ByFingerprint = %v, want nil", got)
	}
}

func TestByFingerprintCaseAndOrder(t *testing.T) {
	data := []byte("shared binary")
	upper := profile.MustNew("first", 1, "  "+hexUpper(digest(data)), profile.Addresses{})
	second := profile.MustNew("second", 2, digest(data), profile.Addresses{})

	got, err := ByFingerprint(writeFile(t, "shared.exe", data), []*profile.Profile{upper, second})
	if err != nil {
		t.Fatalf("ByFingerprint failed: %v", err)
	}
	if got != upper {
		t.Errorf("expected first match in slice order, got %v", got)
	}
}

func hexUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestByFingerprintUnreadable(t *testing.T) {
	_, err := ByFingerprint(filepath.Join(t.TempDir(), "missing.exe"), nil)
	if !errors.Is(err, ErrFileRead) {
		t.Fatalf("expected ErrFileRead, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestByName(t *testing.T) {
	p1 := profile.MustNew("US Dark Ages 7.41", 741, "aa", profile.Addresses{})
	p2 := profile.MustNew("US Zolian 9.13", 913, "aa", profile.Addresses{})
	profiles := []*profile.Profile{p1, p2}

	tests := []struct {
		name string
		want *profile.Profile
	}{
		{"US Zolian 9.13", p2},
		{"us dark ages 7.41", p1},
		{"US Dark Ages", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByName(tt.name, profiles); got != tt.want {
				t.Errorf("ByName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
