package config

import (
	"os"
	"path/filepath"

	"spark/profile"
)

const (
	DefaultHostname = "da0.kru.com"
	DefaultPort     = 2610
)

// DefaultProfiles returns the built-in catalog in detection order. 9.13 and
// 7.41 share a binary, so fingerprint detection picks 9.13 and 7.41 is only
// reachable by name.
func DefaultProfiles() []*profile.Profile {
	return []*profile.Profile{
		profile.MustNew("CA Legends 7.18", 718, "36f4689b09a4a91c74555b3c3603b196", profile.Addresses{
			Redirect:          0x4341FA,
			Port:              0x434224,
			SkipIntro:         0x42F48F,
			MultipleInstances: 0x5911AE,
			HideWalls:         0x624BC4,
		}),
		profile.MustNew("US Zolian 9.13", 913, "3244dc0e68cd26f4fb1626da3673fda8", profile.Addresses{
			Redirect:          0x4333C2,
			Port:              0x4333E4,
			SkipIntro:         0x42E61F,
			MultipleInstances: 0x57A7CE,
			HideWalls:         0x5FD874,
		}),
		profile.MustNew("US Dark Ages 7.41", 741, "3244dc0e68cd26f4fb1626da3673fda8", profile.Addresses{
			Redirect:          0x4333C2,
			Port:              0x4333E4,
			SkipIntro:         0x42E61F,
			MultipleInstances: 0x57A7CE,
			HideWalls:         0x5FD874,
		}),
	}
}

// DefaultExecutablePath is where the installer puts the client
func DefaultExecutablePath() string {
	programFiles := os.Getenv("ProgramFiles(x86)")
	if programFiles == "" {
		programFiles = os.Getenv("ProgramFiles")
	}
	if programFiles == "" {
		programFiles = `C:\Program Files (x86)`
	}
	return filepath.Join(programFiles, "KRU", "Dark Ages", "Darkages.exe")
}
