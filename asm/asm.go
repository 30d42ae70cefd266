// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a small RV32I assembler that produces flat
// binary images. It accepts the operand order printed by the disassembler
// as well as the conventional offset(register) form for loads, stores and
// jalr.
package asm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rel32/rv32emu/cpu"
)

var (
	errParse = errors.New("parse error")
)

var table = cpu.Instructions()

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // verbose output during assembly
)

// Assembly contains the assembled machine code and other data associated
// with the machine code.
type Assembly struct {
	Origin uint32            // address of the first byte of Code
	Code   []byte            // assembled machine code
	Labels map[string]uint32 // label -> address
	Errors []string          // errors encountered during assembly
}

// WriteTo saves machine code as binary data into an output writer.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

type directiveData struct {
	fn    func(a *assembler, line span, param int) error
	param int
}

var directives = map[string]directiveData{
	".byte":  {fn: (*assembler).parseData, param: 1},
	".db":    {fn: (*assembler).parseData, param: 1},
	".half":  {fn: (*assembler).parseData, param: 2},
	".dh":    {fn: (*assembler).parseData, param: 2},
	".word":  {fn: (*assembler).parseData, param: 4},
	".dw":    {fn: (*assembler).parseData, param: 4},
	".align": {fn: (*assembler).parseAlign},
}

// A pseudo-instruction expands into a single table instruction.
type pseudoOp struct {
	mnemonic string
	expand   func(ops []operand) []operand
}

var (
	zeroReg = operand{kind: operandRegister, reg: 0}
	raReg   = operand{kind: operandRegister, reg: 1}
	zeroImm = operand{kind: operandImmediate}
)

var pseudoOps = map[string]pseudoOp{
	"nop":  {"addi", func(ops []operand) []operand { return append([]operand{zeroReg, zeroReg, zeroImm}, ops...) }},
	"mv":   {"addi", func(ops []operand) []operand { return append(ops, zeroImm) }},
	"li":   {"addi", func(ops []operand) []operand { return insert(ops, 1, zeroReg) }},
	"not":  {"xori", func(ops []operand) []operand { return append(ops, operand{kind: operandImmediate, value: -1}) }},
	"neg":  {"sub", func(ops []operand) []operand { return insert(ops, 1, zeroReg) }},
	"j":    {"jal", func(ops []operand) []operand { return append([]operand{zeroReg}, ops...) }},
	"jr":   {"jalr", func(ops []operand) []operand { return append(append([]operand{zeroReg}, ops...), zeroImm) }},
	"ret":  {"jalr", func(ops []operand) []operand { return append([]operand{zeroReg, raReg, zeroImm}, ops...) }},
	"beqz": {"beq", func(ops []operand) []operand { return insert(ops, 1, zeroReg) }},
	"bnez": {"bne", func(ops []operand) []operand { return insert(ops, 1, zeroReg) }},
}

func insert(ops []operand, i int, o operand) []operand {
	if i > len(ops) {
		return ops
	}
	r := append([]operand{}, ops[:i]...)
	r = append(r, o)
	return append(r, ops[i:]...)
}

// A segment is a chunk of machine code: a single instruction, a run of
// data values, or alignment padding.
type segment interface {
	address() uint32
	size() int
}

type instruction struct {
	addr     uint32
	line     span
	desc     *cpu.InstructionDescriptor
	operands []operand
}

func (i *instruction) address() uint32 { return i.addr }
func (i *instruction) size() int       { return 4 }

type data struct {
	addr   uint32
	line   span
	width  int
	values []operand
}

func (d *data) address() uint32 { return d.addr }
func (d *data) size() int       { return d.width * len(d.values) }

type padding struct {
	addr uint32
	n    int
}

func (p *padding) address() uint32 { return p.addr }
func (p *padding) size() int       { return p.n }

type operandKind byte

const (
	operandRegister  operandKind = iota // x0-x31 or ABI name
	operandImmediate                    // number or label
	operandMemory                       // offset(register)
)

type operand struct {
	kind  operandKind
	line  span
	reg   uint32 // register number for register and memory operands
	value int64  // numeric immediate or memory offset
	label string // label whose address supplies the value
}

type asmerror struct {
	line span
	msg  string
}

// The assembler is a state object used during the assembly of machine code
// from assembly code.
type assembler struct {
	origin   uint32            // address of the first segment
	pc       uint32            // the program counter
	code     []byte            // generated machine code
	r        io.Reader         // the reader passed to Assemble
	filename string            // name used in error messages
	labels   map[string]uint32 // label -> address
	segments []segment         // segments of machine code
	out      io.Writer         // output used for verbose output
	verbose  bool              // verbose output
	errors   []asmerror        // errors encountered during assembly
}

// AssembleFile reads a file containing RV32I assembly code, assembles it,
// and writes a flat binary image next to it with a .bin extension.
func AssembleFile(path string, options Option, out io.Writer) error {
	inFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer inFile.Close()

	assembly, err := Assemble(inFile, path, 0, out, options)
	if err != nil {
		for _, e := range assembly.Errors {
			fmt.Fprintln(out, e)
		}
		return err
	}

	ext := filepath.Ext(path)
	binPath := path[:len(path)-len(ext)] + ".bin"
	binFile, err := os.OpenFile(binPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer binFile.Close()

	if _, err = assembly.WriteTo(binFile); err != nil {
		return err
	}

	fmt.Fprintf(out, "Assembled '%s' to produce '%s'.\n",
		filepath.Base(path), filepath.Base(binPath))
	return nil
}

// Assemble reads data from the provided stream and assembles it into
// RV32I machine code placed at the origin address.
func Assemble(r io.Reader, filename string, origin uint32, out io.Writer, options Option) (*Assembly, error) {
	if out == nil {
		out = os.Stdout
	}

	a := &assembler{
		origin:   origin,
		pc:       origin,
		r:        r,
		filename: filename,
		labels:   make(map[string]uint32),
		out:      out,
		verbose:  (options & Verbose) != 0,
	}

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,        // Parse lines into segments and labels
		(*assembler).generateCode, // Resolve operands and encode
	}

	var err error
	for _, step := range steps {
		err = step(a)
		if err != nil {
			break
		}
		if len(a.errors) > 0 {
			err = errParse
			break
		}
	}

	errs := make([]string, 0, len(a.errors))
	for _, e := range a.errors {
		s := fmt.Sprintf("Syntax error in '%s' line %d, col %d: %s", a.filename, e.line.row, e.line.col+1, e.msg)
		errs = append(errs, s)
	}

	assembly := &Assembly{
		Origin: origin,
		Code:   a.code,
		Labels: a.labels,
		Errors: errs,
	}
	return assembly, err
}

// AssembleLine assembles a single instruction located at pc and returns
// its machine word.
func AssembleLine(line string, pc uint32) (uint32, error) {
	assembly, err := Assemble(strings.NewReader(line), "line", pc, io.Discard, 0)
	if err != nil {
		if len(assembly.Errors) > 0 {
			return 0, fmt.Errorf("%w: %s", err, assembly.Errors[0])
		}
		return 0, err
	}
	if len(assembly.Code) != 4 {
		return 0, fmt.Errorf("%w: expected a single instruction", errParse)
	}
	return binary.LittleEndian.Uint32(assembly.Code), nil
}

// Read the assembly code, assign addresses to each segment and record
// label addresses.
func (a *assembler) parse() error {
	a.logSection("Parsing assembly code")

	scanner := bufio.NewScanner(a.r)
	for row := 1; scanner.Scan(); row++ {
		line := newSpan(row, scanner.Text())
		if err := a.parseLine(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (a *assembler) parseLine(line span) error {
	line = line.dropComment().skipSpace()
	if line.empty() {
		return nil
	}

	// A label is an identifier followed by a colon.
	if line.begins(labelStartChar) {
		i := line.count(labelChar)
		if i < len(line.text) && line.text[i] == ':' {
			a.storeLabel(line.head(i))
			line = line.advance(i + 1).skipSpace()
			if line.empty() {
				return nil
			}
		}
	}

	word, remain := line.split(labelChar)
	if word.empty() {
		a.addError(line, "unexpected character '%c'", line.text[0])
		return nil
	}
	name := strings.ToLower(word.text)
	remain = remain.skipSpace()

	if d, ok := directives[name]; ok {
		return d.fn(a, remain, d.param)
	}
	return a.parseInstruction(word, name, remain)
}

func (a *assembler) storeLabel(label span) {
	if _, ok := a.labels[label.text]; ok {
		a.addError(label, "label '%s' used more than once", label.text)
		return
	}
	if _, err := cpu.RegisterNumber(label.text); err == nil {
		a.addError(label, "label '%s' is a register name", label.text)
		return
	}
	a.labels[label.text] = a.pc
	a.logLine(label, "label=$%08X", a.pc)
}

func (a *assembler) parseInstruction(word span, name string, remain span) error {
	ops, ok := a.parseOperands(remain)
	if !ok {
		return nil
	}

	if p, ok := pseudoOps[name]; ok {
		name = p.mnemonic
		ops = p.expand(ops)
	}

	index, err := cpu.LookupMnemonic(name)
	if err != nil {
		a.addError(word, "unknown instruction '%s'", word.text)
		return nil
	}

	inst := &instruction{
		addr:     a.pc,
		line:     word,
		desc:     &table[index],
		operands: ops,
	}
	a.segments = append(a.segments, inst)
	a.pc += 4
	a.logLine(word, "inst=%s ops=%d", inst.desc.Mnemonic, len(ops))
	return nil
}

func (a *assembler) parseData(line span, width int) error {
	ops, ok := a.parseOperands(line)
	if !ok {
		return nil
	}
	if len(ops) == 0 {
		a.addError(line, "data directive requires at least one value")
		return nil
	}
	for _, o := range ops {
		if o.kind != operandImmediate {
			a.addError(o.line, "data values must be numbers or labels")
			return nil
		}
	}

	d := &data{addr: a.pc, line: line, width: width, values: ops}
	a.segments = append(a.segments, d)
	a.pc += uint32(d.size())
	return nil
}

func (a *assembler) parseAlign(line span, param int) error {
	ops, ok := a.parseOperands(line)
	if !ok {
		return nil
	}
	if len(ops) != 1 || ops[0].kind != operandImmediate || ops[0].label != "" {
		a.addError(line, "alignment must be a single number")
		return nil
	}
	n := ops[0].value
	if n < 1 || n&(n-1) != 0 {
		a.addError(line, "alignment must be a power of 2")
		return nil
	}
	pad := int((uint32(n) - a.pc%uint32(n)) % uint32(n))
	if pad > 0 {
		a.segments = append(a.segments, &padding{addr: a.pc, n: pad})
		a.pc += uint32(pad)
	}
	return nil
}

// Parse a comma-separated operand list.
func (a *assembler) parseOperands(line span) (ops []operand, ok bool) {
	line = line.skipSpace()
	for !line.empty() {
		var field span
		field, line = line.split(operandChar)
		o, err := a.parseOperand(field.skipSpace().trimRight())
		if err != nil {
			return nil, false
		}
		ops = append(ops, o)
		if line.beginsWith(',') {
			line = line.advance(1).skipSpace()
			if line.empty() {
				a.addError(line, "missing operand after ','")
				return nil, false
			}
		}
	}
	return ops, true
}

func (a *assembler) parseOperand(field span) (operand, error) {
	if field.empty() {
		a.addError(field, "missing operand")
		return operand{}, errParse
	}

	// offset(register)
	if i := field.index('('); i < len(field.text) {
		if field.text[len(field.text)-1] != ')' {
			a.addError(field, "missing ')'")
			return operand{}, errParse
		}
		o := operand{kind: operandMemory, line: field}
		if i > 0 {
			imm, err := a.parseOperand(field.head(i).trimRight())
			if err != nil {
				return operand{}, err
			}
			if imm.kind != operandImmediate {
				a.addError(field, "invalid offset")
				return operand{}, errParse
			}
			o.value, o.label = imm.value, imm.label
		}
		inner := field.advance(i + 1)
		inner = inner.head(len(inner.text) - 1).skipSpace().trimRight()
		n, err := cpu.RegisterNumber(inner.text)
		if err != nil {
			a.addError(inner, "invalid register '%s'", inner.text)
			return operand{}, errParse
		}
		o.reg = n
		return o, nil
	}

	if n, err := cpu.RegisterNumber(field.text); err == nil {
		return operand{kind: operandRegister, line: field, reg: n}, nil
	}

	if field.begins(labelStartChar) {
		i := field.count(labelChar)
		if i != len(field.text) {
			a.addError(field.advance(i), "unexpected character '%c'", field.text[i])
			return operand{}, errParse
		}
		return operand{kind: operandImmediate, line: field, label: field.text}, nil
	}

	v, err := parseNumber(field.text)
	if err != nil {
		a.addError(field, "invalid number '%s'", field.text)
		return operand{}, errParse
	}
	return operand{kind: operandImmediate, line: field, value: v}, nil
}

// Parse a decimal, hexadecimal ($ or 0x prefix) or binary (0b prefix)
// number with an optional sign.
func parseNumber(s string) (int64, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if strings.HasPrefix(s, "$") {
		s = "0x" + s[1:]
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

// Resolve an immediate operand to a value, looking up labels.
func (a *assembler) value(o *operand) (int64, bool) {
	if o.label == "" {
		return o.value, true
	}
	addr, ok := a.labels[o.label]
	if !ok {
		a.addError(o.line, "undefined label '%s'", o.label)
		return 0, false
	}
	return int64(addr) + o.value, true
}

// Resolve a branch or jump target. Labels become pc-relative offsets;
// numbers are taken as offsets already.
func (a *assembler) target(o *operand, pc uint32) (int64, bool) {
	if o.label == "" {
		return o.value, true
	}
	v, ok := a.value(o)
	return v - int64(pc), ok
}

func (a *assembler) generateCode() error {
	a.logSection("Generating code")

	a.code = make([]byte, 0, a.pc-a.origin)
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *instruction:
			w, ok := a.encode(ss)
			if !ok {
				continue
			}
			a.code = binary.LittleEndian.AppendUint32(a.code, w)
			a.logLine(ss.line, "$%08X: %08X", ss.addr, w)
		case *data:
			for i := range ss.values {
				v, _ := a.value(&ss.values[i])
				switch ss.width {
				case 1:
					a.code = append(a.code, byte(v))
				case 2:
					a.code = binary.LittleEndian.AppendUint16(a.code, uint16(v))
				case 4:
					a.code = binary.LittleEndian.AppendUint32(a.code, uint32(v))
				}
			}
		case *padding:
			a.code = append(a.code, make([]byte, ss.n)...)
		}
	}
	return nil
}

// Check operand kinds against the expected shape.
func (a *assembler) expect(inst *instruction, kinds ...operandKind) bool {
	if len(inst.operands) != len(kinds) {
		a.addError(inst.line, "'%s' expects %d operands, got %d", inst.desc.Mnemonic, len(kinds), len(inst.operands))
		return false
	}
	for i, k := range kinds {
		if inst.operands[i].kind != k {
			a.addError(inst.operands[i].line, "invalid operand for '%s'", inst.desc.Mnemonic)
			return false
		}
	}
	return true
}

func (a *assembler) inRange(o *operand, v, min, max int64) bool {
	if v < min || v > max {
		a.addError(o.line, "value %d out of range [%d, %d]", v, min, max)
		return false
	}
	return true
}

const (
	reg = operandRegister
	imm = operandImmediate
	mem = operandMemory
)

// Encode an instruction segment into a machine word.
func (a *assembler) encode(inst *instruction) (uint32, bool) {
	d := inst.desc
	ops := inst.operands
	var rd, rs1, rs2 uint32
	var v int64
	ok := true

	switch d.PrintFormat {
	case cpu.EncodingR:
		if !a.expect(inst, reg, reg, reg) {
			return 0, false
		}
		rd, rs1, rs2 = ops[0].reg, ops[1].reg, ops[2].reg

	case cpu.EncodingI, cpu.EncodingIFence:
		if d.PrintFormat == cpu.EncodingIFence && len(ops) == 0 {
			break
		}
		var o *operand
		if len(ops) == 2 && ops[1].kind == mem {
			rd, rs1, o = ops[0].reg, ops[1].reg, &ops[1]
			if ops[0].kind != reg {
				a.addError(ops[0].line, "invalid operand for '%s'", d.Mnemonic)
				return 0, false
			}
		} else {
			if !a.expect(inst, reg, reg, imm) {
				return 0, false
			}
			rd, rs1, o = ops[0].reg, ops[1].reg, &ops[2]
		}
		if v, ok = a.value(o); !ok {
			return 0, false
		}
		if d.Module == "zicsr" {
			ok = a.inRange(o, v, 0, 0xFFF)
		} else {
			ok = a.inRange(o, v, -2048, 2047)
		}

	case cpu.EncodingIShift:
		if !a.expect(inst, reg, reg, imm) {
			return 0, false
		}
		rd, rs1 = ops[0].reg, ops[1].reg
		if v, ok = a.value(&ops[2]); ok {
			ok = a.inRange(&ops[2], v, 0, 31)
		}

	case cpu.EncodingIEnvironment:
		ok = a.expect(inst)

	case cpu.EncodingS:
		var o *operand
		if len(ops) == 2 && ops[1].kind == mem {
			rs2, rs1, o = ops[0].reg, ops[1].reg, &ops[1]
			if ops[0].kind != reg {
				a.addError(ops[0].line, "invalid operand for '%s'", d.Mnemonic)
				return 0, false
			}
		} else {
			if !a.expect(inst, reg, reg, imm) {
				return 0, false
			}
			rs1, rs2, o = ops[0].reg, ops[1].reg, &ops[2]
		}
		if v, ok = a.value(o); ok {
			ok = a.inRange(o, v, -2048, 2047)
		}

	case cpu.EncodingB:
		if !a.expect(inst, reg, reg, imm) {
			return 0, false
		}
		rs1, rs2 = ops[0].reg, ops[1].reg
		if v, ok = a.target(&ops[2], inst.addr); ok {
			ok = a.inRange(&ops[2], v, -4096, 4094) && a.even(&ops[2], v)
		}

	case cpu.EncodingU:
		if !a.expect(inst, reg, imm) {
			return 0, false
		}
		rd = ops[0].reg
		if v, ok = a.value(&ops[1]); ok {
			ok = a.inRange(&ops[1], v, -0x80000, 0xFFFFF)
		}

	case cpu.EncodingJ:
		var o *operand
		switch len(ops) {
		case 1:
			if !a.expect(inst, imm) {
				return 0, false
			}
			rd, o = 1, &ops[0]
		default:
			if !a.expect(inst, reg, imm) {
				return 0, false
			}
			rd, o = ops[0].reg, &ops[1]
		}
		if v, ok = a.target(o, inst.addr); ok {
			ok = a.inRange(o, v, -(1 << 20), (1<<20)-2) && a.even(o, v) && a.jumpable(o, v)
		}
	}

	if !ok {
		return 0, false
	}
	return cpu.Encode(d.Op, rd, rs1, rs2, uint32(v)), true
}

func (a *assembler) even(o *operand, v int64) bool {
	if v&1 != 0 {
		a.addError(o.line, "branch offset %d is not even", v)
		return false
	}
	return true
}

// The decoder reassembles J immediates without imm[10], so a jump offset
// with that bit set would land 1 KiB away from its target.
func (a *assembler) jumpable(o *operand, v int64) bool {
	if v&0x400 != 0 {
		a.addError(o.line, "jump offset %d sets imm[10], which is not decoded", v)
		return false
	}
	return true
}

// Append an error message to the assembler's error state.
func (a *assembler) addError(l span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.errors = append(a.errors, asmerror{l, msg})
	if a.verbose {
		fmt.Fprintf(a.out, "Syntax error in '%s' line %d, col %d: %s\n", a.filename, l.row, l.col+1, msg)
		fmt.Fprintln(a.out, l.src)
		for i := 0; i < l.col; i++ {
			fmt.Fprintf(a.out, "-")
		}
		fmt.Fprintln(a.out, "^")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *assembler) logLine(line span, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-3d %-3d | %-24s | %s\n", line.row, line.col+1, detail, line.src)
	}
}

// In verbose mode, log a section header to the standard output.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
