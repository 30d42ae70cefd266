// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a small RV32I
// system: a code image, a flat data memory, a built-in assembler, a
// built-in debugger, and other useful tools.
//
// Within the host it is possible to assemble and load flat binary images,
// debug and step through machine code, set address and data breakpoints,
// dump and modify data memory, disassemble code, decode individual machine
// words, manipulate registers, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/rel32/rv32emu/cpu"
	"github.com/rel32/rv32emu/disasm"
	"github.com/rel32/rv32emu/program"
	"github.com/sirupsen/logrus"
)

// ErrQuit is returned by RunCommands when the quit command is executed.
var ErrQuit = errors.New("quit")

type displayFlags uint8

const (
	displaySteps displayFlags = 1 << iota
	displayAnnotations

	displayAll = displaySteps | displayAnnotations
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
	stateHalted
)

const defaultPrompt = "* "

// A selection is a command chosen from the command tree together with the
// arguments that followed it.
type selection struct {
	Command *cmd.Command
	Args    []string
}

type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func newScannerReader(r io.Reader) *scannerReader {
	return &scannerReader{scanner: bufio.NewScanner(r)}
}

func (r *scannerReader) ReadLine() (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// A Host represents an emulated RV32I system with a code image, a data
// memory, a built-in assembler, a built-in debugger, and other useful
// tools.
type Host struct {
	input          lineReader
	output         *bufio.Writer
	interactive    bool
	prompting      bool
	promptText     string
	log            *logrus.Logger
	program        *program.Program
	code           []byte
	mem            []byte
	shared         bool
	cpu            *cpu.CPU
	debugger       *cpu.Debugger
	lastCmd        *selection
	state          state
	breakRequested atomic.Bool
	exprParser     *exprParser
	settings       *settings
	annotations    map[uint32]string
	nextListLine   int
}

// New creates a new RV32I host environment with an empty code image.
func New() *Host {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	h := &Host{
		output:      bufio.NewWriter(io.Discard),
		promptText:  defaultPrompt,
		log:         log,
		state:       stateProcessingCommands,
		exprParser:  newExprParser(),
		settings:    newSettings(),
		annotations: make(map[uint32]string),
	}

	// Create the emulated CPU and its memories.
	h.cpu = cpu.NewCPU(nil, nil)
	h.installImage(nil)

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// Logger returns the logger used for host diagnostics.
func (h *Host) Logger() *logrus.Logger {
	return h.log
}

// CPU returns the emulated CPU.
func (h *Host) CPU() *cpu.CPU {
	return h.cpu
}

// LoadFile loads a flat binary image into code memory at address zero,
// sizes data memory and resets the CPU.
func (h *Host) LoadFile(path string) error {
	p, err := program.LoadFile(path)
	if err != nil {
		return err
	}

	h.installProgram(p)
	h.log.WithFields(logrus.Fields{
		"image":        p.Name,
		"bytes":        len(p.Code),
		"instructions": p.InstructionCount,
		"digest":       p.DigestString(),
	}).Info("Image loaded")
	return nil
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered. It returns nil at
// the end of the input, or ErrQuit if the quit command was executed.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) error {
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	h.prompting = interactive

	if interactive {
		h.println()
		h.displayPC()
	}

	return h.processCommands(newScannerReader(r))
}

func (h *Host) processCommands(in lineReader) error {
	prev := h.input
	h.input = in
	defer func() { h.input = prev }()

	for {
		h.prompt()

		line, err := h.input.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}

		var c selection
		if line != "" {
			n, args, err := cmds.Lookup(line)
			switch {
			case errors.Is(err, cmd.ErrNotFound):
				h.println("Command not found.")
				continue
			case errors.Is(err, cmd.ErrAmbiguous):
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}

			switch n := n.(type) {
			case *cmd.Tree:
				n.DisplayHelp(h.output)
				h.flush()
				continue
			case *cmd.Command:
				c = selection{Command: n, Args: args}
			}
		} else if h.lastCmd != nil && h.interactive {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		handler := c.Command.Data.(commandFunc)
		if err := handler(h, c); err != nil {
			return err
		}
	}
}

// Break asks a running CPU to stop. It only raises a flag, so it may be
// called from any goroutine; the run loop notices the flag before its next
// step and reports where it stopped.
func (h *Host) Break() {
	h.breakRequested.Store(true)
}

// Consume a pending Break, stopping the current run or step loop.
func (h *Host) takeBreak() bool {
	if !h.breakRequested.Swap(false) {
		return false
	}
	h.state = stateProcessingCommands
	h.println()
	h.displayPC()
	return true
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

type prompter interface {
	SetPrompt(prompt string)
}

func (h *Host) setPrompt(prompt string) {
	h.promptText = prompt
	if p, ok := h.input.(prompter); ok {
		p.SetPrompt(prompt)
	}
}

func (h *Host) prompt() {
	if h.prompting {
		h.print(h.promptText)
		h.flush()
	}
}

func (h *Host) displayPC() {
	if !h.cpu.InCode(h.cpu.Reg.PC) {
		h.printf("%08X <outside code>  S=%d\n", h.cpu.Reg.PC, h.cpu.Steps)
		return
	}
	d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
	h.println(d)
}

func (h *Host) displayUsage(c *cmd.Command) {
	c.DisplayUsage(h.output)
	h.flush()
}

// Install a flat image as code memory and allocate data memory. With
// shared memory the image also occupies the start of data memory, so
// stores are visible to instruction fetch.
func (h *Host) installImage(image []byte) {
	size := max(h.settings.DataSize, 0)
	h.shared = h.settings.SharedMemory
	if h.shared {
		h.mem = make([]byte, max(size, len(image)))
		copy(h.mem, image)
		h.code = h.mem[:len(image)]
	} else {
		h.code = bytes.Clone(image)
		h.mem = make([]byte, size)
	}
	h.cpu.Code, h.cpu.Data = h.code, h.mem
}

func (h *Host) installProgram(p *program.Program) {
	h.installImage(p.Code)
	h.program = p
	h.cpu.Reset()
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0
	h.nextListLine = 0
}

// Store assembled code at addr, growing the code image if necessary, and
// rebuild the listing.
func (h *Host) storeCode(addr uint32, b []byte) error {
	end := uint64(addr) + uint64(len(b))
	if h.shared {
		if end > uint64(len(h.mem)) {
			return fmt.Errorf("code at $%08X..$%08X does not fit in memory", addr, end-1)
		}
		copy(h.mem[addr:], b)
		if end > uint64(len(h.code)) {
			h.code = h.mem[:end]
		}
	} else {
		if end > uint64(len(h.code)) {
			grown := make([]byte, end)
			copy(grown, h.code)
			h.code = grown
		}
		copy(h.code[addr:], b)
	}
	h.cpu.Code = h.code

	p, err := program.Load(bytes.NewReader(h.code), "interactive")
	if err != nil {
		return err
	}
	h.program = p
	return nil
}

func (h *Host) step() {
	pc := h.cpu.Reg.PC
	if !h.cpu.InCode(pc) {
		h.printf("PC $%08X is outside the loaded code.\n", pc)
		h.state = stateHalted
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// Only loads and stores reach data memory, and a faulting one
			// has not written back, so rs1 still holds its base.
			inst := h.cpu.GetInstruction(pc)
			addr := h.cpu.Reg.Get(uint32(inst.Rs1)) + inst.Immediate

			h.state = stateHalted
			h.printf("Memory access fault at $%08X by instruction at $%08X.\n", addr, pc)
			h.log.WithFields(logrus.Fields{
				"pc":      fmt.Sprintf("$%08X", pc),
				"address": fmt.Sprintf("$%08X", addr),
				"fault":   r,
			}).Warn("Interpreter fault recovered")
		}
	}()
	h.cpu.Step()
}

// Step until the state leaves stateRunning or the MaxRunSteps limit is
// reached. Returns the number of steps taken.
func (h *Host) runUntilStopped() int {
	limit := h.settings.MaxRunSteps
	n := 0
	for ; h.state == stateRunning; n++ {
		if h.takeBreak() {
			break
		}
		if limit > 0 && n >= limit {
			h.printf("Stopped after %d steps.\n", n)
			h.state = stateHalted
			break
		}
		h.step()
	}
	return n
}

func (h *Host) stepOver() {
	pc := h.cpu.Reg.PC
	if !h.cpu.InCode(pc) {
		h.step()
		return
	}

	// Calls that link a return address need to be handled specially.
	inst := h.cpu.GetInstruction(pc)
	op := inst.Op()
	if (op != cpu.OpJAL && op != cpu.OpJALR) || inst.Rd == 0 {
		h.step()
		return
	}

	// Place a temporary step-over breakpoint on the instruction following
	// the call and run until it is reached.
	next := pc + 4
	h.debugger.AddStepOverBreakpoint(next)
	h.runUntilStopped()
	h.debugger.RemoveStepOverBreakpoint(next)

	// If we were interrupted by the temporary step-over breakpoint,
	// then continue as normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
}

func (h *Host) parseExpr(expr string) (uint32, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	s = strings.ToLower(s)
	if s == "pc" || s == "." {
		return int64(h.cpu.Reg.PC), nil
	}
	if n, err := cpu.RegisterNumber(s); err == nil {
		return int64(h.cpu.Reg.Get(n)), nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) disasmFlags() disasm.Flags {
	flags := disasm.Address
	if h.settings.ShowMachineCode {
		flags |= disasm.MachineCode
	}
	if h.settings.ShowEncoding {
		flags |= disasm.Encoding
	}
	if h.settings.ABINames {
		flags |= disasm.ABIRegisterMnemonics
	}
	return flags
}

// Disassemble the instruction at addr, which must lie within the code
// image, and return the line and the address of the next instruction.
func (h *Host) disassemble(addr uint32, flags displayFlags) (str string, next uint32) {
	inst := h.cpu.GetInstruction(addr)
	next = addr + uint32(inst.Size)

	str = disasm.Line(h.disasmFlags(), h.code, addr)
	if (flags & displaySteps) != 0 {
		str = fmt.Sprintf("%-48s S=%d", str, h.cpu.Steps)
	}
	if (flags & displayAnnotations) != 0 {
		if anno, ok := h.annotations[addr]; ok {
			str += " ; " + anno
		}
	}
	return str, next
}

func (h *Host) dumpMemory(addr, n uint32) {
	first := uint64(addr)
	if n == 0 || first >= uint64(len(h.mem)) {
		h.printf("Address $%08X is outside data memory.\n", addr)
		return
	}
	last := min(first+uint64(n)-1, uint64(len(h.mem))-1)

	// Short dumps start at the address itself rather than a row boundary.
	if last-first < 8 {
		h.println(h.dumpRow(first, first, last))
		return
	}
	for base := first &^ 7; base <= last; base += 8 {
		h.println(h.dumpRow(base, first, last))
	}
}

// Format the eight bytes from base as hex and characters, blanking any
// outside first..last.
func (h *Host) dumpRow(base, first, last uint64) string {
	row := make([]byte, 0, 44)
	row = disasm.AppendHex(row, uint32(base), 8)
	row = append(row, '-', ' ')

	var chars [8]byte
	for k := range chars {
		a := base + uint64(k)
		if a < first || a > last {
			row = append(row, "   "...)
			chars[k] = ' '
			continue
		}
		row = disasm.AppendHex(row, uint32(h.mem[a]), 2)
		row = append(row, ' ')
		chars[k] = printable(h.mem[a])
	}

	row = append(row, ' ', ' ')
	return string(append(row, chars[:]...))
}

func (h *Host) formatRegister(v uint32) string {
	switch h.settings.RegisterFormat {
	case formatUnsigned:
		return fmt.Sprintf("%d", v)
	case formatSigned:
		return fmt.Sprintf("%d", int32(v))
	default:
		return fmt.Sprintf("$%08X", v)
	}
}

func (h *Host) displayRegisters() {
	h.printf("%-8s %-12s S=%d\n", "pc", h.formatRegister(h.cpu.Reg.PC), h.cpu.Steps)
	for row := uint32(0); row < 8; row++ {
		var line strings.Builder
		for col := uint32(0); col < 4; col++ {
			n := row*4 + col
			name, _ := cpu.RegisterName(cpu.ContextGeneral, n, false)
			abi, _ := cpu.RegisterName(cpu.ContextGeneral, n, true)
			fmt.Fprintf(&line, "%-8s %-12s", name+"/"+abi, h.formatRegister(h.cpu.Reg.Get(n)))
		}
		h.println(strings.TrimRight(line.String(), " "))
	}
}

// The debugHandler receives notifications from the cpu debugger and
// forwards them to the host.
type debugHandler struct {
	host *Host
}

func newDebugHandler(h *Host) *debugHandler {
	return &debugHandler{host: h}
}

func (d *debugHandler) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	d.host.onBreakpoint(c, b)
}

func (d *debugHandler) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	d.host.onDataBreakpoint(c, b)
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if b.StepOver {
		h.state = stateStepOverBreakpoint
	} else {
		h.state = stateBreakpoint
		h.printf("Breakpoint hit at $%08X.\n", b.Address)
		h.displayPC()
	}
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address $%08X.\n", b.Address)

	h.state = stateBreakpoint

	// Stores are reported before the PC advances, so the PC still
	// addresses the storing instruction.
	d, _ := h.disassemble(c.Reg.PC, displayAnnotations)
	h.println(d)
}

func openScript(filename string) (*os.File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", filepath.Base(filename), err)
	}
	return f, nil
}
