package detect

import (
	"errors"
	"fmt"
	"strings"

	"spark/patch"
	"spark/process"
	"spark/profile"

	"github.com/Binject/debug/pe"
)

var (
	ErrImageFormat = errors.New("not a PE image")

	// ErrAddressOutsideImage is returned by CheckProfile when a patch site is
	// not covered by any section of the image
	ErrAddressOutsideImage = errors.New("patch address outside image")
)

// Section is the part of a section header needed to place virtual addresses
type Section struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	Characteristics uint32
}

// Contains reports whether rva falls inside the section once loaded
func (s Section) Contains(rva uint64) bool {
	return rva >= uint64(s.VirtualAddress) && rva < uint64(s.VirtualAddress)+uint64(s.VirtualSize)
}

// ImageInfo is a summary of the PE headers of an executable
type ImageInfo struct {
	Path       string
	Machine    uint16
	Is64       bool
	ImageBase  uint64
	EntryPoint uint32
	Sections   []Section
}

// InspectImage reads the PE headers of the file at path
func InspectImage(path string) (*ImageInfo, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImageFormat, path, err)
	}
	defer f.Close()

	info := &ImageInfo{
		Path:    path,
		Machine: f.FileHeader.Machine,
	}

	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		info.ImageBase = uint64(oh.ImageBase)
		info.EntryPoint = oh.AddressOfEntryPoint
	case *pe.OptionalHeader64:
		info.Is64 = true
		info.ImageBase = oh.ImageBase
		info.EntryPoint = oh.AddressOfEntryPoint
	default:
		return nil, fmt.Errorf("%w: %s: missing optional header", ErrImageFormat, path)
	}

	for _, s := range f.Sections {
		size := s.VirtualSize
		if size == 0 {
			size = s.Size
		}
		info.Sections = append(info.Sections, Section{
			Name:            strings.TrimRight(s.Name, "\x00"),
			VirtualAddress:  s.VirtualAddress,
			VirtualSize:     size,
			Characteristics: s.Characteristics,
		})
	}

	return info, nil
}

// SectionFor returns the section an absolute virtual address loads into
func (i *ImageInfo) SectionFor(addr process.ProcessMemoryAddress) (Section, bool) {
	if uint64(addr) < i.ImageBase {
		return Section{}, false
	}

	rva := uint64(addr) - i.ImageBase
	for _, s := range i.Sections {
		if s.Contains(rva) {
			return s, true
		}
	}
	return Section{}, false
}

// CheckProfile verifies every supported patch address of p lands inside a
// section of the image. Unsupported addresses are ignored.
func (i *ImageInfo) CheckProfile(p *profile.Profile) error {
	addrs := p.Addresses()
	sites := []struct {
		toggle patch.Toggle
		addr   int64
	}{
		{patch.ToggleRedirectAddress, addrs.Redirect},
		{patch.ToggleRedirectPort, addrs.Port},
		{patch.ToggleSkipIntro, addrs.SkipIntro},
		{patch.ToggleMultipleInstances, addrs.MultipleInstances},
		{patch.ToggleHideWalls, addrs.HideWalls},
	}

	var errs []error
	for _, s := range sites {
		if !profile.Supported(s.addr) {
			continue
		}
		addr := process.ProcessMemoryAddress(s.addr)
		if _, ok := i.SectionFor(addr); !ok {
			errs = append(errs, fmt.Errorf("%w: %s at %s", ErrAddressOutsideImage, s.toggle, addr.ToString()))
		}
	}

	return errors.Join(errs...)
}
