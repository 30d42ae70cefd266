// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements the RISC-V RV32I instruction set: an instruction
// table, a decoder, and a single-step interpreter. The M, A, Zicsr and
// Zifencei instructions are recognized by the decoder but execute as
// no-ops.
package cpu

// CPU represents a single RV32I hart bound to a code image and a data
// memory. Code and Data may share the same backing slice.
type CPU struct {
	Reg      RegisterFile // CPU registers
	Code     []byte       // instruction memory, fetched at PC
	Data     []byte       // data memory used by loads and stores
	Steps    uint64       // total executed instructions
	LastPC   uint32       // previous program counter
	debugger *Debugger
}

// NewCPU creates an emulated CPU bound to the code and data memories.
func NewCPU(code, data []byte) *CPU {
	return &CPU{Code: code, Data: data}
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint32) {
	cpu.Reg.PC = addr
}

// Reset zeroes the register file and the step counter. Memory is left
// untouched.
func (cpu *CPU) Reset() {
	cpu.Reg.Reset()
	cpu.Steps = 0
	cpu.LastPC = 0
}

// InCode returns true if a complete instruction can be fetched from the
// code memory at addr.
func (cpu *CPU) InCode(addr uint32) bool {
	if !InBounds(cpu.Code, addr, 2) {
		return false
	}
	if IsCompressed(LoadHalf(cpu.Code, addr)) {
		return true
	}
	return InBounds(cpu.Code, addr, 4)
}

// GetInstruction decodes the instruction at the requested code address.
func (cpu *CPU) GetInstruction(addr uint32) Instruction {
	return Decode(Fetch(cpu.Code, addr))
}

// Step the cpu by one instruction. The instruction at PC must lie within
// Code, and any memory it accesses must lie within Data.
func (cpu *CPU) Step() {
	cpu.LastPC = cpu.Reg.PC

	m := machine{regs: &cpu.Reg, data: cpu.Data}
	if cpu.debugger != nil {
		m.onStore = cpu.notifyStore
	}
	m.step(cpu.Code)
	cpu.Steps++

	// Update the debugger so it handle breakpoints.
	if cpu.debugger != nil {
		cpu.debugger.onUpdatePC(cpu, cpu.Reg.PC)
	}
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores to
// memory.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
}

// DetachDebugger detaches the currently debugger from the CPU.
func (cpu *CPU) DetachDebugger() {
	cpu.debugger = nil
}

func (cpu *CPU) notifyStore(addr uint32, size int) {
	for i := 0; i < size; i++ {
		a := addr + uint32(i)
		cpu.debugger.onDataStore(cpu, a, cpu.Data[a])
	}
}

// Step executes the instruction at regs.PC. Instructions are fetched from
// code and loads and stores address data; the two may alias. Every access
// must lie within its slice. Instructions without an implementation
// (fence, ecall, ebreak, the M, A and CSR extensions, unrecognized and
// compressed words) only advance the PC by 4.
func Step(code, data []byte, regs *RegisterFile) {
	m := machine{regs: regs, data: data}
	m.step(code)
}

// machine holds the working state of a single step.
type machine struct {
	regs    *RegisterFile
	data    []byte
	onStore func(addr uint32, size int)

	rs1, rs2 uint32 // source register values
	ea       uint32 // rs1 + immediate
	rd       uint32 // value to write back
	setRd    bool   // whether rd is written back
}

type instfunc func(m *machine, inst *Instruction)

// Emulator implementation for each table operation. Operations without an
// entry only advance the PC.
var impl = [...]instfunc{
	OpLUI:   (*machine).lui,
	OpAUIPC: (*machine).auipc,
	OpJAL:   (*machine).jal,
	OpJALR:  (*machine).jalr,
	OpBEQ:   (*machine).beq,
	OpBNE:   (*machine).bne,
	OpBLT:   (*machine).blt,
	OpBGE:   (*machine).bge,
	OpBLTU:  (*machine).bltu,
	OpBGEU:  (*machine).bgeu,
	OpLB:    (*machine).lb,
	OpLH:    (*machine).lh,
	OpLW:    (*machine).lw,
	OpLBU:   (*machine).lbu,
	OpLHU:   (*machine).lhu,
	OpSB:    (*machine).sb,
	OpSH:    (*machine).sh,
	OpSW:    (*machine).sw,
	OpADDI:  (*machine).addi,
	OpSLTI:  (*machine).slti,
	OpSLTIU: (*machine).sltiu,
	OpXORI:  (*machine).xori,
	OpORI:   (*machine).ori,
	OpANDI:  (*machine).andi,
	OpSLLI:  (*machine).slli,
	OpSRLI:  (*machine).srli,
	OpSRAI:  (*machine).srai,
	OpADD:   (*machine).add,
	OpSUB:   (*machine).sub,
	OpSLL:   (*machine).sll,
	OpSLT:   (*machine).slt,
	OpSLTU:  (*machine).sltu,
	OpXOR:   (*machine).xor,
	OpSRL:   (*machine).srl,
	OpSRA:   (*machine).sra,
	OpOR:    (*machine).or,
	OpAND:   (*machine).and,
}

func (m *machine) step(code []byte) {
	inst := Decode(Fetch(code, m.regs.PC))

	m.rs1 = m.regs.Get(uint32(inst.Rs1))
	m.rs2 = m.regs.Get(uint32(inst.Rs2))
	m.ea = m.rs1 + inst.Immediate
	m.setRd = false

	op := inst.Op()
	if int(op) < len(impl) && impl[op] != nil {
		impl[op](m, &inst)
	} else {
		m.regs.PC += 4
	}

	if m.setRd && inst.Rd != 0 {
		m.regs.X[inst.Rd-1] = m.rd
	}
}

// Complete an instruction that writes v to rd and falls through.
func (m *machine) result(v uint32) {
	m.rd = v
	m.setRd = true
	m.regs.PC += 4
}

// Complete a conditional branch.
func (m *machine) branch(inst *Instruction, taken bool) {
	if taken {
		m.regs.PC += inst.Immediate
	} else {
		m.regs.PC += 4
	}
}

func (m *machine) stored(size int) {
	if m.onStore != nil {
		m.onStore(m.ea, size)
	}
	m.regs.PC += 4
}

func boolToUint32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// Shift right arithmetically without relying on a signed shift.
func shiftRightArith(v, shift uint32) uint32 {
	keep := uint32(0xFFFFFFFF) >> shift
	return ((v >> shift) & keep) | ((0 - (v >> 31)) &^ keep)
}

// Load upper immediate
func (m *machine) lui(inst *Instruction) {
	m.result(inst.Immediate)
}

// Add upper immediate to PC
func (m *machine) auipc(inst *Instruction) {
	m.result(m.regs.PC + inst.Immediate)
}

// Jump and link
func (m *machine) jal(inst *Instruction) {
	m.rd = m.regs.PC + 4
	m.setRd = true
	m.regs.PC += inst.Immediate
}

// Jump and link register
func (m *machine) jalr(inst *Instruction) {
	m.rd = m.regs.PC + 4
	m.setRd = true
	m.regs.PC = (m.rs1 + inst.Immediate) &^ 1
}

// Branch if equal
func (m *machine) beq(inst *Instruction) {
	m.branch(inst, m.rs1 == m.rs2)
}

// Branch if not equal
func (m *machine) bne(inst *Instruction) {
	m.branch(inst, m.rs1 != m.rs2)
}

// Branch if less than (signed)
func (m *machine) blt(inst *Instruction) {
	m.branch(inst, int32(m.rs1) < int32(m.rs2))
}

// Branch if greater (signed). Equal operands do not branch.
func (m *machine) bge(inst *Instruction) {
	m.branch(inst, int32(m.rs1) > int32(m.rs2))
}

// Branch if less than (unsigned)
func (m *machine) bltu(inst *Instruction) {
	m.branch(inst, m.rs1 < m.rs2)
}

// Branch if greater (unsigned). Equal operands do not branch.
func (m *machine) bgeu(inst *Instruction) {
	m.branch(inst, m.rs1 > m.rs2)
}

// Load byte (sign-extended)
func (m *machine) lb(inst *Instruction) {
	m.result(signExtend(uint32(LoadByte(m.data, m.ea)), 7))
}

// Load halfword (sign-extended)
func (m *machine) lh(inst *Instruction) {
	m.result(signExtend(uint32(LoadHalf(m.data, m.ea)), 15))
}

// Load word
func (m *machine) lw(inst *Instruction) {
	m.result(LoadWord(m.data, m.ea))
}

// Load byte (zero-extended)
func (m *machine) lbu(inst *Instruction) {
	m.result(uint32(LoadByte(m.data, m.ea)))
}

// Load halfword (zero-extended)
func (m *machine) lhu(inst *Instruction) {
	m.result(uint32(LoadHalf(m.data, m.ea)))
}

// Store byte
func (m *machine) sb(inst *Instruction) {
	StoreByte(m.data, m.ea, byte(m.rs2))
	m.stored(1)
}

// Store halfword
func (m *machine) sh(inst *Instruction) {
	StoreHalf(m.data, m.ea, uint16(m.rs2))
	m.stored(2)
}

// Store word
func (m *machine) sw(inst *Instruction) {
	StoreWord(m.data, m.ea, m.rs2)
	m.stored(4)
}

func (m *machine) addi(inst *Instruction) {
	m.result(m.rs1 + inst.Immediate)
}

func (m *machine) slti(inst *Instruction) {
	m.result(boolToUint32(int32(m.rs1) < int32(inst.Immediate)))
}

func (m *machine) sltiu(inst *Instruction) {
	m.result(boolToUint32(m.rs1 < inst.Immediate))
}

func (m *machine) xori(inst *Instruction) {
	m.result(m.rs1 ^ inst.Immediate)
}

func (m *machine) ori(inst *Instruction) {
	m.result(m.rs1 | inst.Immediate)
}

func (m *machine) andi(inst *Instruction) {
	m.result(m.rs1 & inst.Immediate)
}

func (m *machine) slli(inst *Instruction) {
	m.result(m.rs1 << (inst.Immediate & 0x1F))
}

func (m *machine) srli(inst *Instruction) {
	m.result(m.rs1 >> (inst.Immediate & 0x1F))
}

func (m *machine) srai(inst *Instruction) {
	m.result(shiftRightArith(m.rs1, inst.Immediate&0x1F))
}

func (m *machine) add(inst *Instruction) {
	m.result(m.rs1 + m.rs2)
}

func (m *machine) sub(inst *Instruction) {
	m.result(m.rs1 - m.rs2)
}

func (m *machine) sll(inst *Instruction) {
	m.result(m.rs1 << (m.rs2 & 0x1F))
}

func (m *machine) slt(inst *Instruction) {
	m.result(boolToUint32(int32(m.rs1) < int32(m.rs2)))
}

func (m *machine) sltu(inst *Instruction) {
	m.result(boolToUint32(m.rs1 < m.rs2))
}

func (m *machine) xor(inst *Instruction) {
	m.result(m.rs1 ^ m.rs2)
}

func (m *machine) srl(inst *Instruction) {
	m.result(m.rs1 >> (m.rs2 & 0x1F))
}

func (m *machine) sra(inst *Instruction) {
	m.result(shiftRightArith(m.rs1, m.rs2&0x1F))
}

func (m *machine) or(inst *Instruction) {
	m.result(m.rs1 | m.rs2)
}

func (m *machine) and(inst *Instruction) {
	m.result(m.rs1 & m.rs2)
}
