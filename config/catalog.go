package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"spark/profile"
)

type addressesEntry struct {
	ServerAddress    int64 `json:"serverAddress"`
	ServerPort       int64 `json:"serverPort"`
	IntroVideo       int64 `json:"introVideo"`
	MultipleInstance int64 `json:"multipleInstance"`
	HideWalls        int64 `json:"hideWalls"`
}

type profileEntry struct {
	Name        string         `json:"name"`
	VersionCode int            `json:"versionCode"`
	Hash        string         `json:"hash"`
	Addresses   addressesEntry `json:"addresses"`

	// patch name -> hex bytes, e.g. "hide-walls": "EB 17 90"
	Payloads map[string]string `json:"payloads,omitempty"`
}

type catalogFile struct {
	FileVersion string         `json:"fileVersion"`
	Profiles    []profileEntry `json:"versions"`
}

func toEntry(p *profile.Profile) profileEntry {
	a := p.Addresses()
	e := profileEntry{
		Name:        p.Name(),
		VersionCode: p.VersionCode(),
		Hash:        p.Fingerprint(),
		Addresses: addressesEntry{
			ServerAddress:    a.Redirect,
			ServerPort:       a.Port,
			IntroVideo:       a.SkipIntro,
			MultipleInstance: a.MultipleInstances,
			HideWalls:        a.HideWalls,
		},
	}

	for name, b := range p.Payloads() {
		if e.Payloads == nil {
			e.Payloads = make(map[string]string)
		}
		e.Payloads[name] = fmt.Sprintf("% X", b)
	}

	return e
}

func (e profileEntry) toProfile() (*profile.Profile, error) {
	var payloads map[string][]byte
	for name, s := range e.Payloads {
		b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
		if err != nil {
			return nil, fmt.Errorf("%s: payload %s: %w", e.Name, name, err)
		}
		if payloads == nil {
			payloads = make(map[string][]byte)
		}
		payloads[name] = b
	}

	return profile.New(e.Name, e.VersionCode, e.Hash, profile.Addresses{
		Redirect:          e.Addresses.ServerAddress,
		Port:              e.Addresses.ServerPort,
		SkipIntro:         e.Addresses.IntroVideo,
		MultipleInstances: e.Addresses.MultipleInstance,
		HideWalls:         e.Addresses.HideWalls,
	}, payloads)
}

// LoadProfiles reads the catalog file. Files written by an older catalog
// version are merged with the built-in profiles so new revisions show up.
// A missing file yields the defaults; an unreadable one yields the defaults
// and the error.
func (s *Store) LoadProfiles() ([]*profile.Profile, error) {
	path := s.path(CatalogFileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultProfiles(), nil
	}
	if err != nil {
		s.log.Warn("Unable to load client versions: ", err)
		return DefaultProfiles(), fmt.Errorf("failed to read %s: %w", path, err)
	}

	profiles, fileVersion, err := decodeCatalog(data)
	if err != nil {
		s.log.Warn("Unable to load client versions: ", err)
		return DefaultProfiles(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if compareVersions(fileVersion, CatalogFileVersion) < 0 {
		s.log.Infoln("Migrating supported client versions", fileVersion, "->", CatalogFileVersion)
		profiles = Union(profiles, DefaultProfiles())
	}

	return profiles, nil
}

// SaveProfiles writes the catalog at the current file version
func (s *Store) SaveProfiles(profiles []*profile.Profile) error {
	f := catalogFile{FileVersion: CatalogFileVersion}
	for _, p := range profiles {
		f.Profiles = append(f.Profiles, toEntry(p))
	}
	return s.writeJSON(CatalogFileName, f)
}

func decodeCatalog(data []byte) ([]*profile.Profile, string, error) {
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}

	profiles := make([]*profile.Profile, 0, len(f.Profiles))
	for _, e := range f.Profiles {
		p, err := e.toProfile()
		if err != nil {
			return nil, "", err
		}
		profiles = append(profiles, p)
	}

	return profiles, f.FileVersion, nil
}

// Union returns a followed by every profile of b not already in a, matched by
// name and version code
func Union(a, b []*profile.Profile) []*profile.Profile {
	out := make([]*profile.Profile, 0, len(a)+len(b))
	for _, list := range [][]*profile.Profile{a, b} {
	next:
		for _, p := range list {
			for _, seen := range out {
				if seen.SameIdentity(p) {
					continue next
				}
			}
			out = append(out, p)
		}
	}
	return out
}

// compareVersions orders dotted numeric versions; missing or malformed parts
// count as zero
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(bs[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
