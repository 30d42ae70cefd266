// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import "errors"

// Buffer sizing used when the caller does not know how long a line will be.
const (
	InitialLineSize   = 128 // first attempt for a single line
	LineSizeIncrement = 128 // growth step after ErrBufferTooSmall
)

// Line disassembles the instruction at pc and returns the text. The
// buffer starts at InitialLineSize bytes and grows by LineSizeIncrement
// until the line fits.
func Line(flags Flags, code []byte, pc uint32) string {
	buf := make([]byte, InitialLineSize)
	for {
		n, err := Disassemble(flags, code, pc, buf)
		if err == nil {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)+LineSizeIncrement)
	}
}

// Listing disassembles every whole 32-bit word of code, in order, starting
// at address 0. Lines are accumulated into a single buffer that grows by
// LineSizeIncrement whenever a line does not fit in the remaining space.
// Include NewLine in flags to separate the lines.
func Listing(flags Flags, code []byte) []byte {
	count := len(code) / 4
	buf := make([]byte, count*InitialLineSize)
	used := 0

	for i := 0; i < count; {
		n, err := Disassemble(flags, code, uint32(i*4), buf[used:])
		if errors.Is(err, ErrBufferTooSmall) {
			grown := make([]byte, len(buf)+LineSizeIncrement)
			copy(grown, buf[:used])
			buf = grown
			continue
		}
		used += n
		i++
	}
	return buf[:used]
}
