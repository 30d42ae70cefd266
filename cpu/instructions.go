// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "errors"

// Errors
var (
	ErrNotFound = errors.New("Name not found")
)

// An Op is a compact symbol identifying one entry of the instruction
// table. Op values equal the entry's table index.
type Op byte

// All table operations, in table order.
const (
	OpLUI Op = iota
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpECALL
	OpEBREAK
	OpFENCEI
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpLRW
	OpSCW
	OpAMOSWAPW
	OpAMOADDW
	OpAMOXORW
	OpAMOANDW
	OpAMOORW
	OpAMOMINW
	OpAMOMAXW
	OpAMOMINUW
	OpAMOMAXUW

	OpInvalid Op = 0xff // word matched no table entry
)

// EncodingKind describes an instruction's bit layout. The first seven kinds
// are decode formats; the I variants only refine how operands are printed.
type EncodingKind byte

// All encoding kinds
const (
	EncodingX            EncodingKind = iota // unrecognized layout
	EncodingR                                // register-register
	EncodingI                                // 12-bit immediate
	EncodingS                                // store
	EncodingB                                // conditional branch
	EncodingU                                // upper immediate
	EncodingJ                                // jump
	EncodingIShift                           // I with a 5-bit shift amount
	EncodingIFence                           // I used by fence
	EncodingIEnvironment                     // I with no operands (ecall, ebreak)
)

var encodingTags = []string{"x", "r", "i", "s", "b", "u", "j", "i", "i", "i"}

// Canonical bit layouts for each decode format.
var encodingLayouts = []string{
	"| 31 ignored 0 |",
	"| 31 funct7 25 | 24 rs2 20 | 19 rs1 15 | 14 funct3 12 | 11 rd 7 | 6 opcode 0 |",
	"| 31 imm[11:0] 20 | 19 rs1 15 | 14 funct3 12 | 11 rd 7 | 6 opcode 0 |",
	"| 31 imm[11:5] 25 | 24 rs2 20 | 19 rs1 15 | 14 funct3 12 | 11 imm[4:0] 7 | 6 opcode 0 |",
	"| 31 imm[12|10:5] 25 | 24 rs2 20 | 19 rs1 15 | 14 funct3 12 | 11 imm[4:1|11] 7 | 6 opcode 0 |",
	"| 31 imm[31:12] 12 | 11 rd 7 | 6 opcode 0 |",
	"| 31 imm[20|10:1|11|19:12] 12 | 11 rd 7 | 6 opcode 0 |",
}

// String returns the one-letter tag of the encoding kind. The I variants
// all report "i".
func (k EncodingKind) String() string {
	if int(k) < len(encodingTags) {
		return encodingTags[k]
	}
	return "?"
}

// Layout returns the canonical bit-layout string of the encoding kind.
func (k EncodingKind) Layout() string {
	switch k {
	case EncodingIShift, EncodingIFence, EncodingIEnvironment:
		return encodingLayouts[EncodingI]
	}
	if int(k) < len(encodingLayouts) {
		return encodingLayouts[k]
	}
	return encodingLayouts[EncodingX]
}

// An InstructionDescriptor is one row of the instruction table: the
// instruction's names, its match pattern and its encoding.
type InstructionDescriptor struct {
	Op           Op           // table symbol, equal to the row index
	Mnemonic     string       // lower-case assembly mnemonic
	Module       string       // ISA module: "i", "m", "a", "zicsr" or "zifencei"
	Fields       string       // comma-separated field layout, MSB first
	Size         byte         // instruction size in bytes
	Mask         uint32       // bits that must equal Match
	Match        uint32       // expected value of the masked bits
	DecodeFormat EncodingKind // layout used to extract fields
	PrintFormat  EncodingKind // layout used to print operands
	Opcode       byte         // bits [6:0]
	Funct3       byte         // bits [14:12]
	Funct7       byte         // function bits above rs2
}

// All recognized instructions. Lookup takes the first row whose masked
// bits match, so row order matters.
var instructions = []InstructionDescriptor{
	{OpLUI, "lui", "i", "imm[31:12],rd,0110111", 4, 0x0000007F, 0x00000037, EncodingU, EncodingU, 0x37, 0, 0},
	{OpAUIPC, "auipc", "i", "imm[31:12],rd,0010111", 4, 0x0000007F, 0x00000017, EncodingU, EncodingU, 0x17, 0, 0},
	{OpJAL, "jal", "i", "imm[20|10:1|11|19:12],rd,1101111", 4, 0x0000007F, 0x0000006F, EncodingJ, EncodingJ, 0x6F, 0, 0},
	{OpJALR, "jalr", "i", "imm[11:0],rs1,000,rd,1100111", 4, 0x0000707F, 0x00000067, EncodingI, EncodingI, 0x67, 0x0, 0},
	{OpBEQ, "beq", "i", "imm[12|10:5],rs2,rs1,000,imm[4:1|11],1100011", 4, 0x0000707F, 0x00000063, EncodingB, EncodingB, 0x63, 0x0, 0},
	{OpBNE, "bne", "i", "imm[12|10:5],rs2,rs1,001,imm[4:1|11],1100011", 4, 0x0000707F, 0x00001063, EncodingB, EncodingB, 0x63, 0x1, 0},
	{OpBLT, "blt", "i", "imm[12|10:5],rs2,rs1,100,imm[4:1|11],1100011", 4, 0x0000707F, 0x00004063, EncodingB, EncodingB, 0x63, 0x4, 0},
	{OpBGE, "bge", "i", "imm[12|10:5],rs2,rs1,101,imm[4:1|11],1100011", 4, 0x0000707F, 0x00005063, EncodingB, EncodingB, 0x63, 0x5, 0},
	{OpBLTU, "bltu", "i", "imm[12|10:5],rs2,rs1,110,imm[4:1|11],1100011", 4, 0x0000707F, 0x00006063, EncodingB, EncodingB, 0x63, 0x6, 0},
	{OpBGEU, "bgeu", "i", "imm[12|10:5],rs2,rs1,111,imm[4:1|11],1100011", 4, 0x0000707F, 0x00007063, EncodingB, EncodingB, 0x63, 0x7, 0},
	{OpLB, "lb", "i", "imm[11:0],rs1,000,rd,0000011", 4, 0x0000707F, 0x00000003, EncodingI, EncodingI, 0x03, 0x0, 0},
	{OpLH, "lh", "i", "imm[11:0],rs1,001,rd,0000011", 4, 0x0000707F, 0x00001003, EncodingI, EncodingI, 0x03, 0x1, 0},
	{OpLW, "lw", "i", "imm[11:0],rs1,010,rd,0000011", 4, 0x0000707F, 0x00002003, EncodingI, EncodingI, 0x03, 0x2, 0},
	{OpLBU, "lbu", "i", "imm[11:0],rs1,100,rd,0000011", 4, 0x0000707F, 0x00004003, EncodingI, EncodingI, 0x03, 0x4, 0},
	{OpLHU, "lhu", "i", "imm[11:0],rs1,101,rd,0000011", 4, 0x0000707F, 0x00005003, EncodingI, EncodingI, 0x03, 0x5, 0},
	{OpSB, "sb", "i", "imm[11:5],rs2,rs1,000,imm[4:0],0100011", 4, 0x0000707F, 0x00000023, EncodingS, EncodingS, 0x23, 0x0, 0},
	{OpSH, "sh", "i", "imm[11:5],rs2,rs1,001,imm[4:0],0100011", 4, 0x0000707F, 0x00001023, EncodingS, EncodingS, 0x23, 0x1, 0},
	{OpSW, "sw", "i", "imm[11:5],rs2,rs1,010,imm[4:0],0100011", 4, 0x0000707F, 0x00002023, EncodingS, EncodingS, 0x23, 0x2, 0},
	{OpADDI, "addi", "i", "imm[11:0],rs1,000,rd,0010011", 4, 0x0000707F, 0x00000013, EncodingI, EncodingI, 0x13, 0x0, 0},
	{OpSLTI, "slti", "i", "imm[11:0],rs1,010,rd,0010011", 4, 0x0000707F, 0x00002013, EncodingI, EncodingI, 0x13, 0x2, 0},
	{OpSLTIU, "sltiu", "i", "imm[11:0],rs1,011,rd,0010011", 4, 0x0000707F, 0x00003013, EncodingI, EncodingI, 0x13, 0x3, 0},
	{OpXORI, "xori", "i", "imm[11:0],rs1,100,rd,0010011", 4, 0x0000707F, 0x00004013, EncodingI, EncodingI, 0x13, 0x4, 0},
	{OpORI, "ori", "i", "imm[11:0],rs1,110,rd,0010011", 4, 0x0000707F, 0x00006013, EncodingI, EncodingI, 0x13, 0x6, 0},
	{OpANDI, "andi", "i", "imm[11:0],rs1,111,rd,0010011", 4, 0x0000707F, 0x00007013, EncodingI, EncodingI, 0x13, 0x7, 0},
	{OpSLLI, "slli", "i", "0000000,shamt,rs1,001,rd,0010011", 4, 0xFE00707F, 0x00001013, EncodingI, EncodingIShift, 0x13, 0x1, 0x00},
	{OpSRLI, "srli", "i", "0000000,shamt,rs1,101,rd,0010011", 4, 0xFE00707F, 0x00005013, EncodingI, EncodingIShift, 0x13, 0x5, 0x00},
	{OpSRAI, "srai", "i", "0100000,shamt,rs1,101,rd,0010011", 4, 0xFE00707F, 0x40005013, EncodingI, EncodingIShift, 0x13, 0x5, 0x20},
	{OpADD, "add", "i", "0000000,rs2,rs1,000,rd,0110011", 4, 0xFE00707F, 0x00000033, EncodingR, EncodingR, 0x33, 0x0, 0x00},
	{OpSUB, "sub", "i", "0100000,rs2,rs1,000,rd,0110011", 4, 0xFE00707F, 0x40000033, EncodingR, EncodingR, 0x33, 0x0, 0x20},
	{OpSLL, "sll", "i", "0000000,rs2,rs1,001,rd,0110011", 4, 0xFE00707F, 0x00001033, EncodingR, EncodingR, 0x33, 0x1, 0x00},
	{OpSLT, "slt", "i", "0000000,rs2,rs1,010,rd,0110011", 4, 0xFE00707F, 0x00002033, EncodingR, EncodingR, 0x33, 0x2, 0x00},
	{OpSLTU, "sltu", "i", "0000000,rs2,rs1,011,rd,0110011", 4, 0xFE00707F, 0x00003033, EncodingR, EncodingR, 0x33, 0x3, 0x00},
	{OpXOR, "xor", "i", "0000000,rs2,rs1,100,rd,0110011", 4, 0xFE00707F, 0x00004033, EncodingR, EncodingR, 0x33, 0x4, 0x00},
	{OpSRL, "srl", "i", "0000000,rs2,rs1,101,rd,0110011", 4, 0xFE00707F, 0x00005033, EncodingR, EncodingR, 0x33, 0x5, 0x00},
	{OpSRA, "sra", "i", "0100000,rs2,rs1,101,rd,0110011", 4, 0xFE00707F, 0x40005033, EncodingR, EncodingR, 0x33, 0x5, 0x20},
	{OpOR, "or", "i", "0000000,rs2,rs1,110,rd,0110011", 4, 0xFE00707F, 0x00006033, EncodingR, EncodingR, 0x33, 0x6, 0x00},
	{OpAND, "and", "i", "0000000,rs2,rs1,111,rd,0110011", 4, 0xFE00707F, 0x00007033, EncodingR, EncodingR, 0x33, 0x7, 0x00},
	{OpFENCE, "fence", "i", "fm,pred,succ,rs1,000,rd,0001111", 4, 0x0000707F, 0x0000000F, EncodingI, EncodingIFence, 0x0F, 0x0, 0},
	{OpECALL, "ecall", "i", "000000000000,00000,000,00000,1110011", 4, 0xFFFFFFFF, 0x00000073, EncodingI, EncodingIEnvironment, 0x73, 0x0, 0x00},
	{OpEBREAK, "ebreak", "i", "000000000001,00000,000,00000,1110011", 4, 0xFFFFFFFF, 0x00100073, EncodingI, EncodingIEnvironment, 0x73, 0x0, 0x00},
	{OpFENCEI, "fence.i", "zifencei", "imm[11:0],rs1,001,rd,0001111", 4, 0x0000707F, 0x0000100F, EncodingI, EncodingI, 0x0F, 0x1, 0},
	{OpCSRRW, "csrrw", "zicsr", "csr,rs1,001,rd,1110011", 4, 0x0000707F, 0x00001073, EncodingI, EncodingI, 0x73, 0x1, 0},
	{OpCSRRS, "csrrs", "zicsr", "csr,rs1,010,rd,1110011", 4, 0x0000707F, 0x00002073, EncodingI, EncodingI, 0x73, 0x2, 0},
	{OpCSRRC, "csrrc", "zicsr", "csr,rs1,011,rd,1110011", 4, 0x0000707F, 0x00003073, EncodingI, EncodingI, 0x73, 0x3, 0},
	{OpCSRRWI, "csrrwi", "zicsr", "csr,uimm,101,rd,1110011", 4, 0x0000707F, 0x00005073, EncodingI, EncodingI, 0x73, 0x5, 0},
	{OpCSRRSI, "csrrsi", "zicsr", "csr,uimm,110,rd,1110011", 4, 0x0000707F, 0x00006073, EncodingI, EncodingI, 0x73, 0x6, 0},
	{OpCSRRCI, "csrrci", "zicsr", "csr,uimm,111,rd,1110011", 4, 0x0000707F, 0x00007073, EncodingI, EncodingI, 0x73, 0x7, 0},
	{OpMUL, "mul", "m", "0000001,rs2,rs1,000,rd,0110011", 4, 0xFE00707F, 0x02000033, EncodingR, EncodingR, 0x33, 0x0, 0x01},
	{OpMULH, "mulh", "m", "0000001,rs2,rs1,001,rd,0110011", 4, 0xFE00707F, 0x02001033, EncodingR, EncodingR, 0x33, 0x1, 0x01},
	{OpMULHSU, "mulhsu", "m", "0000001,rs2,rs1,010,rd,0110011", 4, 0xFE00707F, 0x02002033, EncodingR, EncodingR, 0x33, 0x2, 0x01},
	{OpMULHU, "mulhu", "m", "0000001,rs2,rs1,011,rd,0110011", 4, 0xFE00707F, 0x02003033, EncodingR, EncodingR, 0x33, 0x3, 0x01},
	{OpDIV, "div", "m", "0000001,rs2,rs1,100,rd,0110011", 4, 0xFE00707F, 0x02004033, EncodingR, EncodingR, 0x33, 0x4, 0x01},
	{OpDIVU, "divu", "m", "0000001,rs2,rs1,101,rd,0110011", 4, 0xFE00707F, 0x02005033, EncodingR, EncodingR, 0x33, 0x5, 0x01},
	{OpREM, "rem", "m", "0000001,rs2,rs1,110,rd,0110011", 4, 0xFE00707F, 0x02006033, EncodingR, EncodingR, 0x33, 0x6, 0x01},
	{OpREMU, "remu", "m", "0000001,rs2,rs1,111,rd,0110011", 4, 0xFE00707F, 0x02007033, EncodingR, EncodingR, 0x33, 0x7, 0x01},
	{OpLRW, "lr.w", "a", "00010,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x1000202F, EncodingR, EncodingR, 0x2F, 0x2, 0x10},
	{OpSCW, "sc.w", "a", "00011,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x1800202F, EncodingR, EncodingR, 0x2F, 0x2, 0x18},
	{OpAMOSWAPW, "amoswap.w", "a", "00001,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x0800202F, EncodingR, EncodingR, 0x2F, 0x2, 0x08},
	{OpAMOADDW, "amoadd.w", "a", "00000,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x0000202F, EncodingR, EncodingR, 0x2F, 0x2, 0x00},
	{OpAMOXORW, "amoxor.w", "a", "00100,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x2000202F, EncodingR, EncodingR, 0x2F, 0x2, 0x20},
	{OpAMOANDW, "amoand.w", "a", "01100,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x6000202F, EncodingR, EncodingR, 0x2F, 0x2, 0x60},
	{OpAMOORW, "amoor.w", "a", "01000,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x4000202F, EncodingR, EncodingR, 0x2F, 0x2, 0x40},
	{OpAMOMINW, "amomin.w", "a", "10000,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0x8000202F, EncodingR, EncodingR, 0x2F, 0x2, 0x80},
	{OpAMOMAXW, "amomax.w", "a", "10100,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0xA000202F, EncodingR, EncodingR, 0x2F, 0x2, 0xA0},
	{OpAMOMINUW, "amominu.w", "a", "11000,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0xC000202F, EncodingR, EncodingR, 0x2F, 0x2, 0xC0},
	{OpAMOMAXUW, "amomaxu.w", "a", "11100,aq,rl,rs2,rs1,010,rd,0101111", 4, 0xF800707F, 0xE000202F, EncodingR, EncodingR, 0x2F, 0x2, 0xE0},
}

// Instructions returns a copy of the instruction table in lookup order.
func Instructions() []InstructionDescriptor {
	return append([]InstructionDescriptor(nil), instructions...)
}

// Lookup returns the table index of the first instruction whose masked
// bits match the word. It returns false if no instruction matches.
func Lookup(word uint32) (index int, ok bool) {
	for i := range instructions {
		if word&instructions[i].Mask == instructions[i].Match {
			return i, true
		}
	}
	return -1, false
}

// LookupMnemonic returns the table index of the instruction with the
// exact, case-sensitive mnemonic.
func LookupMnemonic(mnemonic string) (int, error) {
	for i := range instructions {
		if instructions[i].Mnemonic == mnemonic {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// LookupEncodingFormat returns the decode format of the named instruction.
func LookupEncodingFormat(mnemonic string) (EncodingKind, error) {
	i, err := LookupMnemonic(mnemonic)
	if err != nil {
		return EncodingX, err
	}
	return instructions[i].DecodeFormat, nil
}

// LookupEncodingString returns the canonical bit layout of the named
// instruction's decode format.
func LookupEncodingString(mnemonic string) (string, error) {
	format, err := LookupEncodingFormat(mnemonic)
	if err != nil {
		return "", err
	}
	return format.Layout(), nil
}

// LookupEncodingFields returns the named instruction's own field layout,
// with fixed bits spelled out (e.g., "0000000,rs2,rs1,000,rd,0110011").
func LookupEncodingFields(mnemonic string) (string, error) {
	i, err := LookupMnemonic(mnemonic)
	if err != nil {
		return "", err
	}
	return instructions[i].Fields, nil
}
