package profile

import (
	"bytes"
	"errors"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(" ", 1, "abc", Addresses{}, nil); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if _, err := New("x", 1, "", Addresses{}, nil); !errors.Is(err, ErrEmptyFingerprint) {
		t.Errorf("expected ErrEmptyFingerprint, got %v", err)
	}
}

func TestMatching(t *testing.T) {
	p := MustNew("US Dark Ages 7.41", 741, "3244DC0E68CD26F4FB1626DA3673FDA8", Addresses{Redirect: 0x4333C2})

	if !p.MatchesFingerprint("3244dc0e68cd26f4fb1626da3673fda8") {
		t.Error("fingerprint comparison must ignore case")
	}
	if p.MatchesFingerprint("36f4689b09a4a91c74555b3c3603b196") {
		t.Error("different digest must not match")
	}
	if !p.MatchesName("us dark ages 7.41") {
		t.Error("name comparison must ignore case")
	}
	if p.MatchesName("US Dark Ages") {
		t.Error("name match must be exact")
	}
}

func TestPayloadsAreCopied(t *testing.T) {
	src := map[string][]byte{"hide-walls": {0xEB, 0x10, 0x90}}
	p, err := New("custom", 1, "aa", Addresses{}, src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	src["hide-walls"][1] = 0x00
	got, ok := p.Payload("hide-walls")
	if !ok || !bytes.Equal(got, []byte{0xEB, 0x10, 0x90}) {
		t.Fatalf("payload was not copied at construction: %x", got)
	}

	got[0] = 0x00
	again, _ := p.Payload("hide-walls")
	if again[0] != 0xEB {
		t.Error("Payload must return a copy")
	}

	if _, ok := p.Payload("skip-intro"); ok {
		t.Error("missing override reported as present")
	}
}

func TestSameIdentity(t *testing.T) {
	a := MustNew("CA Legends 7.18", 718, "h1", Addresses{})
	b := MustNew("CA Legends 7.18", 718, "h2", Addresses{})
	c := MustNew("CA Legends 7.18", 719, "h1", Addresses{})

	if !a.SameIdentity(b) {
		t.Error("same name and version code must be the same identity")
	}
	if a.SameIdentity(c) || a.SameIdentity(nil) {
		t.Error("different version code or nil must differ")
	}
}
