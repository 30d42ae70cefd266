// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Encode builds the machine word for a table operation from its register
// numbers and immediate. Fields the operation's decode format does not
// carry are ignored. Immediates are truncated to the width of their field;
// U-format immediates are the upper 20 bits (imm[31:12]) shifted down, and
// B and J immediates are byte offsets whose bit 0 is dropped.
func Encode(op Op, rd, rs1, rs2, imm uint32) uint32 {
	if int(op) >= len(instructions) {
		return 0
	}
	d := &instructions[op]
	w := d.Match
	rd, rs1, rs2 = rd&0x1F, rs1&0x1F, rs2&0x1F

	switch d.DecodeFormat {
	case EncodingR:
		w |= rd<<7 | rs1<<15 | rs2<<20
	case EncodingI:
		switch d.PrintFormat {
		case EncodingIEnvironment:
		case EncodingIShift:
			w |= rd<<7 | rs1<<15 | (imm&0x1F)<<20
		default:
			w |= rd<<7 | rs1<<15 | (imm&0xFFF)<<20
		}
	case EncodingS:
		w |= rs1<<15 | rs2<<20 | (imm&0x1F)<<7 | ((imm>>5)&0x7F)<<25
	case EncodingB:
		w |= rs1<<15 | rs2<<20 |
			((imm>>11)&0x1)<<7 | ((imm>>1)&0xF)<<8 |
			((imm>>5)&0x3F)<<25 | ((imm>>12)&0x1)<<31
	case EncodingU:
		w |= rd<<7 | (imm&0xFFFFF)<<12
	case EncodingJ:
		w |= rd<<7 |
			((imm>>12)&0xFF)<<12 | ((imm>>11)&0x1)<<20 |
			((imm>>1)&0x3FF)<<21 | ((imm>>20)&0x1)<<31
	}
	return w
}
