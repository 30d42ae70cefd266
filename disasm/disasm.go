// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements an RV32I instruction set disassembler that
// renders one instruction per line into a caller-supplied buffer.
package disasm

import (
	"errors"

	"github.com/rel32/rv32emu/cpu"
)

// Errors
var (
	ErrBufferTooSmall = errors.New("Disassembly buffer too small")
)

// Flags select the optional segments of a disassembled line.
type Flags uint32

// Disassembly flags
const (
	NewLine              Flags = 0x01 // terminate the line with '\n'
	Address              Flags = 0x02 // 8 hex digits of the instruction address
	MachineCode          Flags = 0x04 // raw instruction bytes in hex
	Encoding             Flags = 0x08 // "(r)", "(i)", ... decode format tag
	ABIRegisterMnemonics Flags = 0x10 // ABI register names instead of xN
)

// Space required by fixed-width segments.
const (
	addressSize     = 9  // 8 hex digits + space
	machineCodeSize = 9  // up to 8 hex digits + space
	encodingSize    = 4  // "(x) "
	signedSize      = 13 // ", " + sign + 10 digits
	shiftSize       = 4  // ", " + 2 digits
	unknownSize     = 7  // "unknown"
)

// A lineWriter appends text to a fixed buffer, checking capacity before
// every segment.
type lineWriter struct {
	buf   []byte
	n     int
	flags Flags
}

func (w *lineWriter) fits(size int) bool {
	return len(w.buf)-w.n >= size
}

func (w *lineWriter) write(s string) {
	w.n += copy(w.buf[w.n:], s)
}

// Write a register name with a leading separator. The first operand is
// preceded by a single space, later ones by ", ".
func (w *lineWriter) register(number byte, first bool) bool {
	name, _ := cpu.RegisterName(cpu.ContextGeneral, uint32(number), w.flags&ABIRegisterMnemonics != 0)
	sep := ", "
	if first {
		sep = " "
	}
	if !w.fits(len(name) + len(sep)) {
		return false
	}
	w.write(sep)
	w.write(name)
	return true
}

func (w *lineWriter) signed(v uint32) bool {
	if !w.fits(signedSize) {
		return false
	}
	w.write(", ")
	w.n += len(AppendSigned(w.buf[w.n:w.n], int32(v)))
	return true
}

func (w *lineWriter) shift(v uint32) bool {
	if !w.fits(shiftSize) {
		return false
	}
	w.write(", ")
	w.n += len(AppendUnsigned(w.buf[w.n:w.n], v&0x1F))
	return true
}

// Disassemble decodes the instruction at address pc within code and writes
// a single line of assembly text into buf. It returns the number of bytes
// written, or ErrBufferTooSmall if a segment does not fit; the contents of
// buf are unspecified on error. Nothing is written past len(buf).
func Disassemble(flags Flags, code []byte, pc uint32, buf []byte) (int, error) {
	inst := cpu.Decode(cpu.Fetch(code, pc))
	w := lineWriter{buf: buf, flags: flags}

	if flags&Address != 0 {
		if !w.fits(addressSize) {
			return 0, ErrBufferTooSmall
		}
		w.n += len(AppendHex(w.buf[w.n:w.n], pc, 8))
		w.write(" ")
	}

	if flags&MachineCode != 0 {
		if !w.fits(machineCodeSize) {
			return 0, ErrBufferTooSmall
		}
		w.n += len(AppendHex(w.buf[w.n:w.n], inst.MachineCode, int(inst.Size)*2))
		w.write(" ")
	}

	if d, ok := inst.Descriptor(); ok {
		if flags&Encoding != 0 {
			if !w.fits(encodingSize) {
				return 0, ErrBufferTooSmall
			}
			w.write("(" + inst.Format.String() + ") ")
		}

		if !w.fits(len(inst.Mnemonic)) {
			return 0, ErrBufferTooSmall
		}
		w.write(inst.Mnemonic)

		if !w.operands(d.PrintFormat, &inst) {
			return 0, ErrBufferTooSmall
		}
	} else {
		if !w.fits(unknownSize) {
			return 0, ErrBufferTooSmall
		}
		w.write("unknown")
	}

	if flags&NewLine != 0 {
		if !w.fits(1) {
			return 0, ErrBufferTooSmall
		}
		w.write("\n")
	}

	return w.n, nil
}

// Write the operand list for the print format.
func (w *lineWriter) operands(format cpu.EncodingKind, inst *cpu.Instruction) bool {
	switch format {
	case cpu.EncodingR:
		return w.register(inst.Rd, true) &&
			w.register(inst.Rs1, false) &&
			w.register(inst.Rs2, false)
	case cpu.EncodingI, cpu.EncodingIFence:
		return w.register(inst.Rd, true) &&
			w.register(inst.Rs1, false) &&
			w.signed(inst.Immediate)
	case cpu.EncodingS, cpu.EncodingB:
		return w.register(inst.Rs1, true) &&
			w.register(inst.Rs2, false) &&
			w.signed(inst.Immediate)
	case cpu.EncodingU, cpu.EncodingJ:
		// The destination follows the mnemonic with ", " rather than a
		// single space.
		return w.register(inst.Rd, false) &&
			w.signed(inst.Immediate)
	case cpu.EncodingIShift:
		return w.register(inst.Rd, true) &&
			w.register(inst.Rs1, false) &&
			w.shift(inst.Immediate)
	default:
		return true
	}
}
