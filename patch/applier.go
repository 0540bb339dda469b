package patch

import (
	"fmt"

	"spark/hexdump"
	"spark/process"
	"spark/profile"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Writer is the positioned write channel patches go through.
// *process.MemoryWriter implements it.
type Writer interface {
	Seek(addr process.ProcessMemoryAddress)
	Write(data []byte) (int, error)
}

// Applier writes planned patches. The target must stay suspended for the whole
// call; Applier never resumes it.
type Applier struct {
	log *logger.Logger
}

// NewApplier creates an Applier with its own logger
func NewApplier() *Applier {
	return &Applier{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "patch")),
	}
}

// Apply plans and writes the patches for p and t. The first failing write
// aborts the rest and is returned as *Error; earlier writes are not undone.
// It returns the writes that were completed.
func (a *Applier) Apply(w Writer, p *profile.Profile, t Toggles) ([]Write, error) {
	writes, err := Plan(p, t)
	if err != nil {
		return nil, err
	}

	applied := make([]Write, 0, len(writes))
	for _, pw := range writes {
		a.log.Infoln("Applying", pw.Toggle, "patch for", p.String(), "at", pw.Address.ToString())
		a.log.Debugln("\n" + hexdump.Dump(pw.Bytes, hexdump.Options{StartOffset: uint64(pw.Address)}))

		w.Seek(pw.Address)
		n, err := w.Write(pw.Bytes)
		if err == nil && n != len(pw.Bytes) {
			err = fmt.Errorf("only wrote %d of %d bytes", n, len(pw.Bytes))
		}
		if err != nil {
			a.log.Warn("Patch ", pw.Toggle, " failed: ", err)
			return applied, &Error{Toggle: pw.Toggle, Address: pw.Address, Err: err}
		}

		applied = append(applied, pw)
	}

	a.log.Infoln("Applied", len(applied), "patch(es) for", p.String())
	return applied, nil
}
