// Package config loads and saves the user settings and the profile catalog.
// Both are JSON files carrying a fileVersion; anything unreadable falls back
// to the built-in defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	SettingsFileName    = "settings.json"
	SettingsFileVersion = "1.0"

	CatalogFileName    = "versions.json"
	CatalogFileVersion = "1.1"
)

// Settings is what the user chose last time
type Settings struct {
	ExecutablePath string `json:"clientExecutablePath"`
	VersionName    string `json:"clientVersion,omitempty"`
	AutoDetect     bool   `json:"autoDetectClientVersion"`

	Hostname string `json:"serverHostname"`
	Port     int    `json:"serverPort"`

	Redirect               bool `json:"redirectClient"`
	SkipIntro              bool `json:"skipIntro"`
	AllowMultipleInstances bool `json:"allowMultipleInstances"`
	HideWalls              bool `json:"hideWalls"`
}

// DefaultSettings returns first-run settings
func DefaultSettings() Settings {
	return Settings{
		ExecutablePath:         DefaultExecutablePath(),
		AutoDetect:             true,
		Hostname:               DefaultHostname,
		Port:                   DefaultPort,
		Redirect:               true,
		SkipIntro:              true,
		AllowMultipleInstances: true,
		HideWalls:              false,
	}
}

type settingsFile struct {
	FileVersion string    `json:"fileVersion"`
	Settings    *Settings `json:"settings"`
}

// Store reads and writes the config files in one directory
type Store struct {
	dir string
	log *logger.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{
		dir: dir,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "config")),
	}
}

// DefaultDir is the per-user config directory
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "spark")
}

// Dir returns the directory the store works in
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadSettings reads the settings file. A missing file yields the defaults
// silently; an unreadable one yields the defaults and the error.
func (s *Store) LoadSettings() (Settings, error) {
	path := s.path(SettingsFileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		s.log.Warn("Unable to load user settings: ", err)
		return DefaultSettings(), fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.log.Warn("Unable to load user settings: ", err)
		return DefaultSettings(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f.Settings == nil {
		return DefaultSettings(), nil
	}

	return *f.Settings, nil
}

// SaveSettings writes the settings file, creating the directory if needed
func (s *Store) SaveSettings(settings Settings) error {
	return s.writeJSON(SettingsFileName, settingsFile{
		FileVersion: SettingsFileVersion,
		Settings:    &settings,
	})
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}

	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}
