// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "encoding/binary"

// An Instruction is a decoded machine word: the raw encoding, its table
// entry (if any) and every field the encoding carries.
type Instruction struct {
	MachineCode uint32       // raw word; low halfword only for compressed words
	Mnemonic    string       // table mnemonic or "unknown"
	Module      string       // table module or "unknown"
	Index       int          // table index, -1 when unmatched
	Size        byte         // 4, or 2 for compressed words
	Format      EncodingKind // decode format chosen from the opcode
	Opcode      byte         // bits [6:0]
	Rd          byte         // bits [11:7]
	Funct3      byte         // bits [14:12]
	Rs1         byte         // bits [19:15]
	Rs2         byte         // bits [24:20]
	Funct7      byte         // bits [31:25]
	Immediate   uint32       // sign-extended immediate, 0 for R and X
}

const unknownName = "unknown"

// Matched returns true if the instruction was found in the table.
func (inst *Instruction) Matched() bool {
	return inst.Index >= 0
}

// Op returns the table symbol of the instruction, or OpInvalid.
func (inst *Instruction) Op() Op {
	if inst.Index < 0 {
		return OpInvalid
	}
	return instructions[inst.Index].Op
}

// Descriptor returns the table entry of the instruction, if any.
func (inst *Instruction) Descriptor() (*InstructionDescriptor, bool) {
	if inst.Index < 0 {
		return nil, false
	}
	return &instructions[inst.Index], true
}

// SignedImmediate returns the immediate interpreted as a two's complement
// value.
func (inst *Instruction) SignedImmediate() int32 {
	return int32(inst.Immediate)
}

// IsCompressed returns true if the low two bits of the halfword mark a
// 16-bit compressed instruction.
func IsCompressed(half uint16) bool {
	return half&3 != 3
}

// Fetch reads the instruction word at pc from code. Compressed words
// occupy a single halfword, so the upper halfword is read only for 32-bit
// encodings.
func Fetch(code []byte, pc uint32) uint32 {
	lo := binary.LittleEndian.Uint16(code[pc:])
	if IsCompressed(lo) {
		return uint32(lo)
	}
	return uint32(lo) | uint32(binary.LittleEndian.Uint16(code[pc+2:]))<<16
}

// DecodeBytes decodes four little-endian instruction bytes.
func DecodeBytes(b [4]byte) Instruction {
	return Decode(binary.LittleEndian.Uint32(b[:]))
}

// Decode splits a machine word into its fields and finds its table entry.
// Decoding never fails: words matching no entry are reported as "unknown"
// with index -1.
func Decode(word uint32) Instruction {
	if IsCompressed(uint16(word)) {
		return decodeCompressed(uint16(word))
	}

	inst := Instruction{
		MachineCode: word,
		Size:        4,
		Opcode:      byte(word & 0x7F),
		Rd:          byte((word >> 7) & 0x1F),
		Funct3:      byte((word >> 12) & 0x7),
		Rs1:         byte((word >> 15) & 0x1F),
		Rs2:         byte((word >> 20) & 0x1F),
		Funct7:      byte(word >> 25),
	}
	inst.Format = formatOf(inst.Opcode)
	inst.Immediate = immediate(inst.Format, word)
	inst.lookup()
	return inst
}

// Compressed words are recognized but not decoded.
func decodeCompressed(half uint16) Instruction {
	inst := Instruction{
		MachineCode: uint32(half),
		Size:        2,
		Format:      EncodingX,
		Opcode:      byte(half & 3),
	}
	inst.lookup()
	return inst
}

func (inst *Instruction) lookup() {
	if i, ok := Lookup(inst.MachineCode); ok {
		inst.Index = i
		inst.Mnemonic = instructions[i].Mnemonic
		inst.Module = instructions[i].Module
		return
	}
	inst.Index = -1
	inst.Mnemonic = unknownName
	inst.Module = unknownName
}

// Choose a decode format from the major opcode.
func formatOf(opcode byte) EncodingKind {
	switch opcode {
	case 0x33, 0x2F:
		return EncodingR
	case 0x67, 0x73, 0x0F, 0x03, 0x13:
		return EncodingI
	case 0x23:
		return EncodingS
	case 0x63:
		return EncodingB
	case 0x37, 0x17:
		return EncodingU
	case 0x6F:
		return EncodingJ
	default:
		return EncodingX
	}
}

// signFill returns every bit outside mask set when bit is 1, and zero
// otherwise.
func signFill(bit, mask uint32) uint32 {
	return (0 - bit) &^ mask
}

// Reassemble the immediate scattered across the word by the format.
func immediate(format EncodingKind, w uint32) uint32 {
	sign := w >> 31
	switch format {
	case EncodingI:
		return signFill(sign, 0x7FF) | w>>20
	case EncodingS:
		return signFill(sign, 0x7FF) | (w>>20)&0x7E0 | (w>>7)&0x1F
	case EncodingB:
		return signFill(sign, 0xFFF) | (w<<4)&0x800 | (w>>20)&0x7E0 | (w>>7)&0x1E
	case EncodingU:
		return w & 0xFFFFF000
	case EncodingJ:
		// imm[10] is not carried; only bits [9:1] of the low field are kept.
		return signFill(sign, 0xFFFFF) | w&0xFF000 | (w>>9)&0x800 | (w>>20)&0x3FE
	default:
		return 0
	}
}
