// Package hexdump renders byte slices as offset / hex / ASCII lines for patch
// and packet debug logs.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line, 16 when zero
	BytesPerLine int

	// StartOffset is added to every offset, e.g. the patch address
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits, 8 when zero
	OffsetWidth int

	// HideASCII drops the ASCII column
	HideASCII bool

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int
}

// Dump creates a hex dump of the given data
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return strings.TrimSuffix(buffer.String(), "\n")
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := offset + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}

		formatLine(writer, data[offset:end], uint64(offset)+options.StartOffset, options)
		lineCount++
	}
}

// formatLine formats a single line of the hex dump
func formatLine(writer io.Writer, data []byte, offset uint64, options Options) {
	fmt.Fprintf(writer, "%0*x  ", options.OffsetWidth, offset)

	half := options.BytesPerLine / 2
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			if options.BytesPerLine >= 8 && i == half {
				fmt.Fprint(writer, " | ")
			} else {
				fmt.Fprint(writer, " ")
			}
		}
		if i < len(data) {
			fmt.Fprintf(writer, "%02x", data[i])
		} else {
			// keep the ASCII column aligned on short lines
			fmt.Fprint(writer, "  ")
		}
	}

	if !options.HideASCII {
		fmt.Fprint(writer, "  |")
		for _, b := range data {
			if b >= 0x20 && b < 0x7F {
				writer.Write([]byte{b})
			} else {
				fmt.Fprint(writer, ".")
			}
		}
		fmt.Fprint(writer, "|")
	}

	fmt.Fprintln(writer)
}

// Hex renders bytes as space separated upper-case pairs ("AA 00 03 FF")
func Hex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
