// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package binfmt formats binary data as annotated hex, one field per line.
package binfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// New constructs a new binary formatter over data.
func New(data []byte) *Formatter {
	offsetWidth := strconv.Itoa(max(int(math.Log10(float64(max(len(data)-1, 1))))+1, 1))
	return &Formatter{
		data:            data,
		lineWidth:       32,
		offsetFormatStr: "%0" + offsetWidth + "d-%0" + offsetWidth + "d: ",
	}
}

// Formatter formats binary data with descriptive comments. Reads past the end
// of the data never panic: the remaining bytes are consumed and the comment is
// marked as truncated.
type Formatter struct {
	buf   bytes.Buffer
	lines [][2]string // (binary data, comment) tuples
	data  []byte
	off   int

	lineWidth       int
	linePrefix      string
	offsetFormatStr string
}

// SetLinePrefix sets a prefix for each line of formatted output.
func (f *Formatter) SetLinePrefix(prefix string) {
	f.linePrefix = prefix
}

// LineWidth sets the maximum number of hex digits per line.
func (f *Formatter) LineWidth(width int) *Formatter {
	f.lineWidth = width
	return f
}

// More returns true if there is unformatted data remaining.
func (f *Formatter) More() bool {
	return f.off < len(f.data)
}

// Remaining returns the number of unformatted bytes.
func (f *Formatter) Remaining() int {
	return len(f.data) - f.off
}

// Offset returns the current offset within the data.
func (f *Formatter) Offset() int {
	return f.off
}

// Comment adds a line that carries only a comment.
func (f *Formatter) Comment(format string, args ...interface{}) {
	f.newline("", fmt.Sprintf(format, args...))
}

// HexBytesln formats the next n bytes in hexadecimal, wrapping long runs over
// several lines.
func (f *Formatter) HexBytesln(n int, format string, args ...interface{}) {
	comment := strings.TrimSpace(fmt.Sprintf(format, args...))
	if n > f.Remaining() {
		n = f.Remaining()
		comment += " (truncated)"
	}
	if n == 0 {
		f.newline(fmt.Sprintf(f.offsetFormatStr, f.off, f.off), comment)
		return
	}
	for n > 0 {
		inLine := min(f.lineWidth/2, n)
		f.printf(f.offsetFormatStr, f.off, f.off+inLine)
		f.printf("x %0"+strconv.Itoa(inLine*2)+"x", f.data[f.off:f.off+inLine])
		f.newline(f.buf.String(), comment)
		f.off += inLine
		n -= inLine
		comment = "(continued...)"
	}
}

// HexTextln formats the next n bytes in hexadecimal with their printable
// ASCII characters as the comment.
func (f *Formatter) HexTextln(n int) {
	n = min(n, f.Remaining())
	for n > 0 {
		inLine := min(f.lineWidth/2, n)
		f.printf(f.offsetFormatStr, f.off, f.off+inLine)
		f.printf("x %0"+strconv.Itoa(inLine*2)+"x", f.data[f.off:f.off+inLine])
		f.newline(f.buf.String(), asciiChars(f.data[f.off:f.off+inLine]))
		f.off += inLine
		n -= inLine
	}
}

// Uvarint decodes a uvarint at the current offset and formats its bytes,
// prefixing the comment with the decoded value.
func (f *Formatter) Uvarint(format string, args ...interface{}) uint64 {
	v, n := binary.Uvarint(f.data[f.off:])
	if n <= 0 {
		f.HexBytesln(f.Remaining(), "bad uvarint: %s", fmt.Sprintf(format, args...))
		return 0
	}
	f.HexBytesln(n, "uvarint(%d): %s", v, fmt.Sprintf(format, args...))
	return v
}

// Uint8 formats a single byte, prefixing the comment with its value.
func (f *Formatter) Uint8(format string, args ...interface{}) uint8 {
	if f.Remaining() < 1 {
		f.HexBytesln(1, format, args...)
		return 0
	}
	v := f.data[f.off]
	f.HexBytesln(1, "u8(%d): %s", v, fmt.Sprintf(format, args...))
	return v
}

// Uint32 formats a little-endian uint32.
func (f *Formatter) Uint32(format string, args ...interface{}) uint32 {
	if f.Remaining() < 4 {
		f.HexBytesln(4, format, args...)
		return 0
	}
	v := binary.LittleEndian.Uint32(f.data[f.off:])
	f.HexBytesln(4, "u32(%d): %s", v, fmt.Sprintf(format, args...))
	return v
}

// Uint64 formats a little-endian uint64.
func (f *Formatter) Uint64(format string, args ...interface{}) uint64 {
	if f.Remaining() < 8 {
		f.HexBytesln(8, format, args...)
		return 0
	}
	v := binary.LittleEndian.Uint64(f.data[f.off:])
	f.HexBytesln(8, "u64(%d): %s", v, fmt.Sprintf(format, args...))
	return v
}

// Float64 formats a little-endian IEEE 754 double.
func (f *Formatter) Float64(format string, args ...interface{}) float64 {
	if f.Remaining() < 8 {
		f.HexBytesln(8, format, args...)
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(f.data[f.off:]))
	f.HexBytesln(8, "f64(%g): %s", v, fmt.Sprintf(format, args...))
	return v
}

// String returns the formatted output, with comments aligned to the right of
// the widest binary column.
func (f *Formatter) String() string {
	f.buf.Reset()
	binaryLineWidth := 0
	for _, lineData := range f.lines {
		binaryLineWidth = max(binaryLineWidth, len(lineData[0]))
	}
	for _, lineData := range f.lines {
		f.buf.WriteString(f.linePrefix)
		f.buf.WriteString(lineData[0])
		if len(lineData[1]) > 0 {
			if len(lineData[0]) == 0 {
				f.buf.WriteString("# ")
			} else {
				f.buf.WriteString(strings.Repeat(" ", binaryLineWidth-len(lineData[0])))
				f.buf.WriteString(" # ")
			}
			f.buf.WriteString(lineData[1])
		}
		f.buf.WriteByte('\n')
	}
	return f.buf.String()
}

func (f *Formatter) newline(binaryData, comment string) {
	f.lines = append(f.lines, [2]string{binaryData, comment})
	f.buf.Reset()
}

func (f *Formatter) printf(format string, args ...interface{}) {
	fmt.Fprintf(&f.buf, format, args...)
}

func asciiChars(b []byte) string {
	s := make([]byte, len(b))
	for i := range b {
		if b[i] >= 32 && b[i] <= 126 {
			s[i] = b[i]
		} else {
			s[i] = '.'
		}
	}
	return string(s)
}
