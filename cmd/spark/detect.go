package main

import (
	"flag"
	"fmt"

	"spark/config"
	"spark/detect"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	dir := configFlag(fs)
	exe := fs.String("exe", "", "Client executable (default from settings)")
	fs.Parse(args)

	_, settings, profiles := loadConfig(*dir)
	if *exe == "" {
		*exe = settings.ExecutablePath
	}

	digest, err := detect.Fingerprint(*exe)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	fmt.Printf("%s\n  md5 %s\n", *exe, digest)

	p := detect.MatchFingerprint(digest, profiles)
	if p == nil {
		fmt.Println("  no matching profile")
		return 1
	}

	fmt.Printf("  profile %s\n", p.String())
	return 0
}

func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dir := configFlag(fs)
	exe := fs.String("exe", "", "Client executable (default from settings)")
	version := fs.String("version", "", "Profile to check (default: detected)")
	fs.Parse(args)

	_, settings, profiles := loadConfig(*dir)
	if *exe == "" {
		*exe = settings.ExecutablePath
	}

	info, err := detect.InspectImage(*exe)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	fmt.Printf("%s\n  machine 0x%04X  64-bit %v  image base 0x%X  entry 0x%X\n", info.Path, info.Machine, info.Is64, info.ImageBase, info.EntryPoint)
	for _, s := range info.Sections {
		fmt.Printf("  %-8s rva 0x%08X size 0x%08X flags 0x%08X\n", s.Name, s.VirtualAddress, s.VirtualSize, s.Characteristics)
	}

	p := detect.ByName(*version, profiles)
	if p == nil {
		p, _ = detect.ByFingerprint(*exe, profiles)
	}
	if p == nil {
		fmt.Println("  no profile to check")
		return 0
	}

	if err := info.CheckProfile(p); err != nil {
		fmt.Printf("  profile %s does not fit this image:\n  %v\n", p.String(), err)
		return 1
	}

	fmt.Printf("  profile %s fits this image\n", p.String())
	return 0
}

func runProfiles(args []string) int {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	dir := configFlag(fs)
	reset := fs.Bool("reset", false, "Overwrite the catalog with the built-in profiles")
	fs.Parse(args)

	store, _, profiles := loadConfig(*dir)

	if *reset {
		profiles = config.DefaultProfiles()
		if err := store.SaveProfiles(profiles); err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote %d profiles to %s\n", len(profiles), store.Dir())
	}

	for _, p := range profiles {
		a := p.Addresses()
		fmt.Printf("%-20s code %-4d md5 %s\n", p.Name(), p.VersionCode(), p.Fingerprint())
		fmt.Printf("  redirect 0x%X  port 0x%X  intro 0x%X  multi 0x%X  walls 0x%X\n",
			a.Redirect, a.Port, a.SkipIntro, a.MultipleInstances, a.HideWalls)
	}
	return 0
}
