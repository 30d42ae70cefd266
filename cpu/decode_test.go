// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rel32/rv32emu/cpu"
)

var _ = Describe("Decoder", func() {
	Describe("I format", func() {
		// addi x1, x0, 5 -> 0x00500093
		It("should decode addi x1, x0, 5", func() {
			inst := cpu.Decode(0x00500093)

			Expect(inst.Op()).To(Equal(cpu.OpADDI))
			Expect(inst.Mnemonic).To(Equal("addi"))
			Expect(inst.Module).To(Equal("i"))
			Expect(inst.Index).To(Equal(int(cpu.OpADDI)))
			Expect(inst.Size).To(Equal(byte(4)))
			Expect(inst.Format).To(Equal(cpu.EncodingI))
			Expect(inst.Opcode).To(Equal(byte(0x13)))
			Expect(inst.Rd).To(Equal(byte(1)))
			Expect(inst.Rs1).To(Equal(byte(0)))
			Expect(inst.Immediate).To(Equal(uint32(5)))
		})

		// addi x1, x0, -1 -> 0xFFF00093
		It("should sign-extend a negative immediate", func() {
			inst := cpu.Decode(0xFFF00093)

			Expect(inst.Immediate).To(Equal(uint32(0xFFFFFFFF)))
			Expect(inst.SignedImmediate()).To(Equal(int32(-1)))
		})

		// srai x1, x2, 3 -> 0x40315093
		It("should tell srai from srli by funct7", func() {
			inst := cpu.Decode(0x40315093)

			Expect(inst.Op()).To(Equal(cpu.OpSRAI))
			Expect(inst.Funct7).To(Equal(byte(0x20)))
			Expect(inst.Immediate & 0x1F).To(Equal(uint32(3)))

			inst = cpu.Decode(0x00315093)
			Expect(inst.Op()).To(Equal(cpu.OpSRLI))
		})
	})

	Describe("U format", func() {
		// lui x1, 0x12345 -> 0x123450B7
		It("should decode lui x1, 0x12345", func() {
			inst := cpu.Decode(0x123450B7)

			Expect(inst.Op()).To(Equal(cpu.OpLUI))
			Expect(inst.Format).To(Equal(cpu.EncodingU))
			Expect(inst.Rd).To(Equal(byte(1)))
			Expect(inst.Immediate).To(Equal(uint32(0x12345000)))
		})

		It("should decode a lui targeting x0", func() {
			inst := cpu.Decode(0x12345037)

			Expect(inst.Op()).To(Equal(cpu.OpLUI))
			Expect(inst.Rd).To(Equal(byte(0)))
			Expect(inst.Immediate).To(Equal(uint32(0x12345000)))
		})
	})

	Describe("S format", func() {
		// sw x2, 8(x1) -> 0x0020A423
		It("should decode sw x2, 8(x1)", func() {
			inst := cpu.Decode(0x0020A423)

			Expect(inst.Op()).To(Equal(cpu.OpSW))
			Expect(inst.Format).To(Equal(cpu.EncodingS))
			Expect(inst.Rs1).To(Equal(byte(1)))
			Expect(inst.Rs2).To(Equal(byte(2)))
			Expect(inst.Immediate).To(Equal(uint32(8)))
		})

		// sw x2, -4(x1) -> 0xFE20AE23
		It("should decode a negative store offset", func() {
			inst := cpu.Decode(0xFE20AE23)

			Expect(inst.Op()).To(Equal(cpu.OpSW))
			Expect(inst.SignedImmediate()).To(Equal(int32(-4)))
		})
	})

	Describe("B format", func() {
		// beq x1, x2, -8 -> 0xFE208CE3
		It("should decode beq x1, x2, -8", func() {
			inst := cpu.Decode(0xFE208CE3)

			Expect(inst.Op()).To(Equal(cpu.OpBEQ))
			Expect(inst.Format).To(Equal(cpu.EncodingB))
			Expect(inst.Rs1).To(Equal(byte(1)))
			Expect(inst.Rs2).To(Equal(byte(2)))
			Expect(inst.SignedImmediate()).To(Equal(int32(-8)))
		})
	})

	Describe("J format", func() {
		It("should decode jal offsets without imm[10]", func() {
			inst := cpu.Decode(cpu.Encode(cpu.OpJAL, 1, 0, 0, 12))
			Expect(inst.Op()).To(Equal(cpu.OpJAL))
			Expect(inst.Format).To(Equal(cpu.EncodingJ))
			Expect(inst.Rd).To(Equal(byte(1)))
			Expect(inst.Immediate).To(Equal(uint32(12)))

			inst = cpu.Decode(cpu.Encode(cpu.OpJAL, 1, 0, 0, 0x7FE))
			Expect(inst.Immediate).To(Equal(uint32(0x3FE)))

			inst = cpu.Decode(cpu.Encode(cpu.OpJAL, 0, 0, 0, 0x400))
			Expect(inst.Immediate).To(Equal(uint32(0)))
		})

		It("should sign-extend a backward jump", func() {
			inst := cpu.Decode(cpu.Encode(cpu.OpJAL, 0, 0, 0, 0xFFFFF800))
			Expect(inst.SignedImmediate()).To(Equal(int32(-2048)))
		})
	})

	Describe("R format", func() {
		// sub x3, x1, x2 -> 0x402081B3
		It("should decode sub x3, x1, x2", func() {
			inst := cpu.Decode(0x402081B3)

			Expect(inst.Op()).To(Equal(cpu.OpSUB))
			Expect(inst.Format).To(Equal(cpu.EncodingR))
			Expect(inst.Rd).To(Equal(byte(3)))
			Expect(inst.Rs1).To(Equal(byte(1)))
			Expect(inst.Rs2).To(Equal(byte(2)))
			Expect(inst.Funct7).To(Equal(byte(0x20)))
			Expect(inst.Immediate).To(Equal(uint32(0)))
		})
	})

	Describe("Extension modules", func() {
		DescribeTable("should report the module of each word",
			func(word uint32, op cpu.Op, module string, format cpu.EncodingKind) {
				inst := cpu.Decode(word)
				Expect(inst.Op()).To(Equal(op))
				Expect(inst.Module).To(Equal(module))
				Expect(inst.Format).To(Equal(format))
			},
			Entry("mul", uint32(0x022081B3), cpu.OpMUL, "m", cpu.EncodingR),
			Entry("remu", uint32(0x0220F1B3), cpu.OpREMU, "m", cpu.EncodingR),
			Entry("lr.w", uint32(0x1000A1AF), cpu.OpLRW, "a", cpu.EncodingR),
			Entry("amoswap.w", uint32(0x0820A1AF), cpu.OpAMOSWAPW, "a", cpu.EncodingR),
			Entry("csrrw", uint32(0x300011F3), cpu.OpCSRRW, "zicsr", cpu.EncodingI),
			Entry("fence", uint32(0x0FF0000F), cpu.OpFENCE, "i", cpu.EncodingI),
			Entry("fence.i", uint32(0x0000100F), cpu.OpFENCEI, "zifencei", cpu.EncodingI),
			Entry("ecall", uint32(0x00000073), cpu.OpECALL, "i", cpu.EncodingI),
			Entry("ebreak", uint32(0x00100073), cpu.OpEBREAK, "i", cpu.EncodingI),
		)

		It("should carry the CSR number in the immediate", func() {
			inst := cpu.Decode(0x300011F3)
			Expect(inst.Immediate).To(Equal(uint32(0x300)))
		})
	})

	Describe("Unrecognized words", func() {
		It("should report an unknown 32-bit word", func() {
			inst := cpu.Decode(0xFFFFFFFF)

			Expect(inst.Matched()).To(BeFalse())
			Expect(inst.Index).To(Equal(-1))
			Expect(inst.Op()).To(Equal(cpu.OpInvalid))
			Expect(inst.Mnemonic).To(Equal("unknown"))
			Expect(inst.Module).To(Equal("unknown"))
			Expect(inst.Format).To(Equal(cpu.EncodingX))
			_, ok := inst.Descriptor()
			Expect(ok).To(BeFalse())
		})

		It("should keep the format of a known opcode", func() {
			inst := cpu.Decode(0x7E000033)

			Expect(inst.Matched()).To(BeFalse())
			Expect(inst.Format).To(Equal(cpu.EncodingR))
		})

		It("should size compressed words as a halfword", func() {
			inst := cpu.Decode(0xABCD0001)

			Expect(cpu.IsCompressed(0x0001)).To(BeTrue())
			Expect(inst.Size).To(Equal(byte(2)))
			Expect(inst.MachineCode).To(Equal(uint32(0x0001)))
			Expect(inst.Mnemonic).To(Equal("unknown"))
			Expect(inst.Format).To(Equal(cpu.EncodingX))
		})
	})

	Describe("Fetch", func() {
		It("should read a full word", func() {
			code := []byte{0x93, 0x00, 0x50, 0x00}
			Expect(cpu.Fetch(code, 0)).To(Equal(uint32(0x00500093)))
			Expect(cpu.DecodeBytes([4]byte{0x93, 0x00, 0x50, 0x00})).To(Equal(cpu.Decode(0x00500093)))
		})

		It("should stop after a compressed halfword", func() {
			code := []byte{0x00, 0x00, 0x01, 0x00}
			Expect(cpu.Fetch(code, 2)).To(Equal(uint32(0x0001)))
		})
	})

	Describe("Determinism", func() {
		It("should decode the same word to the same record every time", func() {
			var words []uint32
			for _, d := range cpu.Instructions() {
				words = append(words, d.Match, d.Match|^d.Mask)
			}
			words = append(words,
				0x00000000, 0xFFFFFFFF, 0x00000001, 0x0000FFFE, // compressed
				0x0000007F, 0xDEADBEEF, 0x12345037, 0x123450B7, // unknown and lui
				0x80000063, 0x7FFFF06F, 0xC0002573, 0x0800202F,
			)
			for seed := uint32(1); seed < 1<<16; seed *= 3 {
				words = append(words, seed*0x9E3779B9)
			}

			for _, w := range words {
				first, second := cpu.Decode(w), cpu.Decode(w)
				Expect(second).To(Equal(first), "word $%08X", w)

				var b [4]byte
				b[0], b[1], b[2], b[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
				Expect(cpu.DecodeBytes(b)).To(Equal(first), "word $%08X", w)
			}
		})
	})

	Describe("Instruction table", func() {
		It("should match each row by its own pattern first", func() {
			for i, d := range cpu.Instructions() {
				Expect(int(d.Op)).To(Equal(i))
				index, ok := cpu.Lookup(d.Match)
				Expect(ok).To(BeTrue())
				Expect(index).To(Equal(i), "row %s", d.Mnemonic)
			}
		})

		It("should round-trip encoded operands", func() {
			inst := cpu.Decode(cpu.Encode(cpu.OpADD, 5, 6, 7, 0))
			Expect(inst.Op()).To(Equal(cpu.OpADD))
			Expect(inst.Rd).To(Equal(byte(5)))
			Expect(inst.Rs1).To(Equal(byte(6)))
			Expect(inst.Rs2).To(Equal(byte(7)))

			inst = cpu.Decode(cpu.Encode(cpu.OpBNE, 0, 1, 2, 0xFFFFF000))
			Expect(inst.Op()).To(Equal(cpu.OpBNE))
			Expect(inst.SignedImmediate()).To(Equal(int32(-4096)))

			inst = cpu.Decode(cpu.Encode(cpu.OpSB, 0, 3, 4, 0x7FF))
			Expect(inst.Op()).To(Equal(cpu.OpSB))
			Expect(inst.Immediate).To(Equal(uint32(0x7FF)))
		})
	})
})
