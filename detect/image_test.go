package detect

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"spark/process"
	"spark/profile"

	"github.com/Binject/debug/pe"
)

const testImageBase = 0x400000

// buildImage assembles a minimal PE32 file with a .text section at RVA 0x1000
// and a .data section at RVA 0x2000.
func buildImage(t *testing.T) []byte {
	t.Helper()

	const lfanew = 0x80

	var buf bytes.Buffer
	dos := make([]byte, lfanew)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3C:], lfanew)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	sections := []struct {
		name    string
		va      uint32
		vsize   uint32
		raw     uint32
		charact uint32
	}{
		{".text", 0x1000, 0x100, 0x200, 0x60000020},
		{".data", 0x2000, 0x80, 0x400, 0xC0000040},
	}

	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     uint16(len(sections)),
		SizeOfOptionalHeader: uint16(binary.Size(pe.OptionalHeader32{})),
		Characteristics:      0x0102,
	}
	oh := pe.OptionalHeader32{
		Magic:               0x10B,
		AddressOfEntryPoint: 0x1010,
		BaseOfCode:          0x1000,
		ImageBase:           testImageBase,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         0x3000,
		SizeOfHeaders:       0x200,
		Subsystem:           2,
		NumberOfRvaAndSizes: 16,
	}

	for _, v := range []any{fh, oh} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write header: %v", err)
		}
	}

	for _, s := range sections {
		sh := pe.SectionHeader32{
			VirtualSize:      s.vsize,
			VirtualAddress:   s.va,
			SizeOfRawData:    0x200,
			PointerToRawData: s.raw,
			Characteristics:  s.charact,
		}
		copy(sh.Name[:], s.name)
		if err := binary.Write(&buf, binary.LittleEndian, sh); err != nil {
			t.Fatalf("write section: %v", err)
		}
	}

	out := make([]byte, 0x600)
	copy(out, buf.Bytes())
	return out
}

func TestInspectImage(t *testing.T) {
	info, err := InspectImage(writeFile(t, "client.exe", buildImage(t)))
	if err != nil {
		t.Fatalf("InspectImage failed: %v", err)
	}

	if info.Is64 || info.Machine != pe.IMAGE_FILE_MACHINE_I386 {
		t.Errorf("machine = 0x%X is64=%v", info.Machine, info.Is64)
	}
	if info.ImageBase != testImageBase || info.EntryPoint != 0x1010 {
		t.Errorf("base=0x%X entry=0x%X", info.ImageBase, info.EntryPoint)
	}
	if len(info.Sections) != 2 || info.Sections[0].Name != ".text" || info.Sections[1].Name != ".data" {
		t.Fatalf("sections = %+v", info.Sections)
	}

	tests := []struct {
		addr    process.ProcessMemoryAddress
		section string
	}{
		{0x401000, ".text"},
		{0x4010FF, ".text"},
		{0x401100, ""},
		{0x402010, ".data"},
		{0x3FFFFF, ""},
	}
	for _, tt := range tests {
		s, ok := info.SectionFor(tt.addr)
		if tt.section == "" {
			if ok {
				t.Errorf("%s resolved to %s, want none", tt.addr, s.Name)
			}
			continue
		}
		if !ok || s.Name != tt.section {
			t.Errorf("%s resolved to %q, want %q", tt.addr, s.Name, tt.section)
		}
	}
}

func TestCheckProfile(t *testing.T) {
	info, err := InspectImage(writeFile(t, "client.exe", buildImage(t)))
	if err != nil {
		t.Fatalf("InspectImage failed: %v", err)
	}

	good := profile.MustNew("good", 1, "aa", profile.Addresses{Redirect: 0x401010, Port: 0x401020, HideWalls: -1})
	if err := info.CheckProfile(good); err != nil {
		t.Errorf("CheckProfile(good) = %v", err)
	}

	bad := profile.MustNew("bad", 1, "aa", profile.Addresses{Redirect: 0x401010, SkipIntro: 0x405000, HideWalls: 0x42})
	err = info.CheckProfile(bad)
	if !errors.Is(err, ErrAddressOutsideImage) {
		t.Fatalf("expected ErrAddressOutsideImage, got %v", err)
	}
	if !strings.Contains(err.Error(), "skip-intro") || !strings.Contains(err.Error(), "hide-walls") {
		t.Errorf("error does not name both sites: %v", err)
	}
	if strings.Contains(err.Error(), "redirect-address") {
		t.Errorf("covered site reported: %v", err)
	}
}

func TestInspectImageNotPE(t *testing.T) {
	_, err := InspectImage(writeFile(t, "notes.txt", []byte("plain text, no headers here")))
	if !errors.Is(err, ErrImageFormat) {
		t.Fatalf("expected ErrImageFormat, got %v", err)
	}
}
