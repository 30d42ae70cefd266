// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/rel32/rv32emu/asm"
	"github.com/rel32/rv32emu/cpu"
	"github.com/rel32/rv32emu/disasm"
	"github.com/sirupsen/logrus"
)

var dumper = spew.ConfigState{
	Indent:                  "    ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

func (h *Host) cmdHelp(c selection) error {
	if err := cmds.GetHelp(h.output, c.Args); err != nil {
		h.printf("%v.\n", err)
	}
	h.flush()
	return nil
}

func (h *Host) cmdAnnotate(c selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	note := strings.Join(c.Args[1:], " ")
	if note == "" {
		delete(h.annotations, addr)
		h.printf("Annotation removed at $%08X.\n", addr)
		return nil
	}
	h.annotations[addr] = note
	h.printf("Annotation added at $%08X.\n", addr)
	return nil
}

func (h *Host) cmdAssembleFile(c selection) error {
	if !h.wantArgs(c, 1) {
		return nil
	}
	filename := withDefaultExt(c.Args[0], ".asm")

	var options asm.Option
	if len(c.Args) > 1 {
		switch verbose, err := stringToBool(c.Args[1]); {
		case err != nil:
			h.printf("%v\n", err)
			return nil
		case verbose:
			options |= asm.Verbose
		}
	}

	err := asm.AssembleFile(filename, options, h.output)
	h.flush()
	if err != nil {
		h.printf("Failed to assemble '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	h.log.WithField("source", filename).Debug("Assembled file")
	return nil
}

func (h *Host) cmdAssembleInteractive(c selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	h.println("Enter assembly language instructions. Type END to finish.")
	source := h.readAssembly()

	assembly, err := asm.Assemble(strings.NewReader(source), "interactive", addr, h.output, 0)
	if err != nil {
		h.println("Failed to assemble.")
		for _, e := range assembly.Errors {
			h.println(e)
		}
		return nil
	}
	if len(assembly.Code) == 0 {
		h.println("No code assembled.")
		return nil
	}

	if err := h.storeCode(addr, assembly.Code); err != nil {
		h.printf("%v.\n", err)
		return nil
	}

	h.printf("Assembled %d bytes to $%08X..$%08X.\n",
		len(assembly.Code), addr, addr+uint32(len(assembly.Code))-1)
	return nil
}

// Read source lines at the asm> prompt up to a line holding only END.
func (h *Host) readAssembly() string {
	h.setPrompt("asm> ")
	defer h.setPrompt(defaultPrompt)

	var b strings.Builder
	for {
		h.prompt()
		line, err := h.input.ReadLine()
		if err != nil || strings.EqualFold(strings.TrimSpace(line), "end") {
			return b.String()
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func (h *Host) cmdBreakpointList(c selection) error {
	h.println("Addr      Enabled")
	h.println("--------- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%08X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

// Report usage unless the selection carries at least n arguments.
func (h *Host) wantArgs(c selection, n int) bool {
	if len(c.Args) < n {
		h.displayUsage(c.Command)
		return false
	}
	return true
}

// Evaluate s, printing the error on failure.
func (h *Host) eval(s string) (uint32, bool) {
	v, err := h.parseExpr(s)
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return v, true
}

// Evaluate argument i, or return def when the argument is missing.
func (h *Host) optionalArg(c selection, i int, def uint32) (uint32, bool) {
	if i >= len(c.Args) {
		return def, true
	}
	return h.eval(c.Args[i])
}

// Evaluate the leading address argument. A missing argument or $
// continues from next, and . means the program counter.
func (h *Host) startArg(c selection, next uint32) (uint32, bool) {
	if len(c.Args) == 0 {
		return next, true
	}
	switch c.Args[0] {
	case "$":
		return next, true
	case ".":
		return h.cpu.Reg.PC, true
	}
	return h.eval(c.Args[0])
}

// Evaluate the required address argument shared by the breakpoint
// commands.
func (h *Host) addressArg(c selection) (uint32, bool) {
	if !h.wantArgs(c, 1) {
		return 0, false
	}
	return h.eval(c.Args[0])
}

func (h *Host) cmdBreakpointAdd(c selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%08X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on $%08X.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at $%08X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c selection) error {
	return h.enableBreakpoint(c, true)
}

func (h *Host) cmdBreakpointDisable(c selection) error {
	return h.enableBreakpoint(c, false)
}

func (h *Host) enableBreakpoint(c selection, enable bool) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil || b.StepOver {
		h.printf("No breakpoint was set on $%08X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Breakpoint at $%08X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdDataBreakpointList(c selection) error {
	h.println("Addr      Enabled  Value")
	h.println("--------- -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%08X %-5v    $%02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("$%08X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if len(c.Args) == 1 {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%08X.\n", addr)
		return nil
	}

	v, ok := h.eval(c.Args[1])
	if !ok {
		return nil
	}
	b := h.debugger.AddConditionalDataBreakpoint(addr, byte(v))
	h.printf("Conditional data breakpoint added at $%08X for value $%02X.\n", addr, b.Value)
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on $%08X.\n", addr)
		return nil
	}

	h.debugger.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at $%08X removed.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c selection) error {
	return h.enableDataBreakpoint(c, true)
}

func (h *Host) cmdDataBreakpointDisable(c selection) error {
	return h.enableDataBreakpoint(c, false)
}

func (h *Host) enableDataBreakpoint(c selection, enable bool) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%08X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Data breakpoint at $%08X %s.\n", addr, enabledString(enable))
	return nil
}

func enabledString(enable bool) string {
	if enable {
		return "enabled"
	}
	return "disabled"
}

func (h *Host) cmdDecode(c selection) error {
	if !h.wantArgs(c, 1) {
		return nil
	}
	word, ok := h.eval(strings.Join(c.Args, " "))
	if !ok {
		return nil
	}

	inst := cpu.Decode(word)
	h.printf("Word:      $%08X\n", word)
	if inst.Size == 2 {
		h.println("Compressed 16-bit instruction, not decoded.")
	}
	h.printf("Mnemonic:  %s\n", inst.Mnemonic)
	h.printf("Module:    %s\n", inst.Module)
	h.printf("Format:    %s\n", inst.Format)
	h.printf("Fields:    opcode=$%02X rd=%d funct3=%d rs1=%d rs2=%d funct7=$%02X\n",
		inst.Opcode, inst.Rd, inst.Funct3, inst.Rs1, inst.Rs2, inst.Funct7)
	h.printf("Immediate: $%08X (%d)\n", inst.Immediate, inst.SignedImmediate())

	if inst.Matched() {
		var code [4]byte
		binary.LittleEndian.PutUint32(code[:], word)
		flags := h.disasmFlags() &^ (disasm.Address | disasm.MachineCode)
		h.printf("Assembly:  %s\n", disasm.Line(flags, code[:], 0))
	}

	dumper.Fdump(h.output, inst)
	h.flush()
	return nil
}

func (h *Host) cmdDisassemble(c selection) error {
	addr, ok := h.startArg(c, h.settings.NextDisasmAddr)
	if !ok {
		return nil
	}
	lines, ok := h.optionalArg(c, 1, uint32(h.settings.DisasmLines))
	if !ok {
		return nil
	}

	for range lines {
		if !h.cpu.InCode(addr) {
			h.printf("Address $%08X is outside the loaded code.\n", addr)
			break
		}
		var text string
		text, addr = h.disassemble(addr, displayAnnotations)
		h.println(text)
	}

	// Repeating the command continues where this one stopped.
	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", strconv.FormatUint(uint64(lines), 10)}
	return nil
}

func (h *Host) cmdEncoding(c selection) error {
	if !h.wantArgs(c, 1) {
		return nil
	}

	mnemonic := strings.ToLower(c.Args[0])
	index, err := cpu.LookupMnemonic(mnemonic)
	if err != nil {
		h.printf("Instruction '%s' not found.\n", mnemonic)
		return nil
	}

	format, _ := cpu.LookupEncodingFormat(mnemonic)
	layout, _ := cpu.LookupEncodingString(mnemonic)
	fields, _ := cpu.LookupEncodingFields(mnemonic)
	d := cpu.Instructions()[index]

	h.printf("%s (%s), module %s\n", d.Mnemonic, format, d.Module)
	h.printf("Layout: %s\n", layout)
	h.printf("Fields: %s\n", fields)
	h.printf("Mask:   $%08X\n", d.Mask)
	h.printf("Match:  $%08X\n", d.Match)
	return nil
}

func (h *Host) cmdEvaluate(c selection) error {
	if !h.wantArgs(c, 1) {
		return nil
	}
	if v, ok := h.eval(strings.Join(c.Args, " ")); ok {
		h.printf("$%08X (%d)\n", v, int32(v))
	}
	return nil
}

func (h *Host) cmdExecute(c selection) error {
	if !h.wantArgs(c, 1) {
		return nil
	}

	file, err := openScript(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	defer file.Close()

	h.log.WithField("script", c.Args[0]).Debug("Executing script")

	interactive, prompting := h.interactive, h.prompting
	h.interactive, h.prompting = false, false
	defer func() { h.interactive, h.prompting = interactive, prompting }()

	return h.processCommands(newScannerReader(file))
}

func (h *Host) cmdList(c selection) error {
	if h.program == nil {
		h.println("No image loaded.")
		return nil
	}

	first, ok := h.optionalArg(c, 0, uint32(h.nextListLine))
	if !ok {
		return nil
	}
	count, ok := h.optionalArg(c, 1, uint32(h.settings.DisasmLines))
	if !ok {
		return nil
	}

	start := int(first)
	end := min(start+int(count), h.program.LineCount())
	for i := start; i < end; i++ {
		h.printf("%5d  %08X  %s\n", i, i*4, h.program.Line(i))
	}

	h.nextListLine = max(end, start)
	h.lastCmd.Args = nil
	return nil
}

func (h *Host) cmdLoad(c selection) error {
	if !h.wantArgs(c, 1) {
		return nil
	}
	filename := withDefaultExt(c.Args[0], ".bin")

	if err := h.LoadFile(filename); err != nil {
		h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	h.printf("Loaded '%s': %d bytes, %d instructions.\n",
		h.program.Name, len(h.program.Code), h.program.InstructionCount)
	return nil
}

func (h *Host) cmdMemoryDump(c selection) error {
	addr, ok := h.startArg(c, h.settings.NextMemDumpAddr)
	if !ok {
		return nil
	}
	n, ok := h.optionalArg(c, 1, uint32(h.settings.MemDumpBytes))
	if !ok {
		return nil
	}

	h.dumpMemory(addr, n)

	h.settings.NextMemDumpAddr = addr + n
	h.lastCmd.Args = []string{"$", strconv.FormatUint(uint64(n), 10)}
	return nil
}

func (h *Host) cmdMemorySet(c selection) error {
	if !h.wantArgs(c, 2) {
		return nil
	}
	addr, ok := h.eval(c.Args[0])
	if !ok {
		return nil
	}

	values := make([]byte, len(c.Args)-1)
	for i, arg := range c.Args[1:] {
		v, ok := h.eval(arg)
		if !ok {
			return nil
		}
		values[i] = byte(v)
	}

	if !cpu.InBounds(h.mem, addr, len(values)) {
		h.printf("Address range $%08X..$%08X is outside data memory.\n",
			addr, uint64(addr)+uint64(len(values))-1)
		return nil
	}

	copy(h.mem[addr:], values)
	h.printf("Stored %d bytes at $%08X.\n", len(values), addr)
	return nil
}

func (h *Host) cmdQuit(c selection) error {
	return ErrQuit
}

func (h *Host) cmdRegister(c selection) error {
	switch len(c.Args) {
	case 0:
		h.displayRegisters()
		return nil
	case 1:
		h.displayUsage(c.Command)
		return nil
	}

	name := strings.ToLower(c.Args[0])
	v, ok := h.eval(strings.Join(c.Args[1:], " "))
	if !ok {
		return nil
	}

	if name == "pc" || name == "." {
		h.cpu.SetPC(v)
		h.settings.NextDisasmAddr = v
		h.printf("Register pc set to %s.\n", h.formatRegister(v))
		return nil
	}

	n, err := cpu.RegisterNumber(name)
	if err != nil {
		h.printf("Register '%s' not found.\n", name)
		return nil
	}
	if n == 0 {
		h.println("Register x0 is hardwired to zero.")
		return nil
	}

	h.cpu.Reg.Set(n, v)
	h.printf("Register %s set to %s.\n", name, h.formatRegister(v))
	return nil
}

func (h *Host) cmdReset(c selection) error {
	h.cpu.Reset()
	h.settings.NextDisasmAddr = 0
	h.println("CPU reset.")
	return nil
}

func (h *Host) cmdRun(c selection) error {
	pc, ok := h.optionalArg(c, 0, h.cpu.Reg.PC)
	if !ok {
		return nil
	}
	h.cpu.SetPC(pc)

	h.printf("Running from $%08X. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	h.breakRequested.Store(false)
	h.state = stateRunning
	n := h.runUntilStopped()
	h.state = stateProcessingCommands

	h.log.WithFields(logrus.Fields{
		"steps": n,
		"pc":    fmt.Sprintf("$%08X", h.cpu.Reg.PC),
	}).Debug("Run stopped")

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdSet(c selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c.Command)

	default:
		key, value := c.Args[0], strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("Setting '%s' not found", key)
		case reflect.String:
			err = h.settings.Set(key, strings.ToLower(value))
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int64
			v, err = h.exprParser.Parse(value, h)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			name, _ := h.settings.Name(key)
			h.println("Setting updated.")
			h.log.WithFields(logrus.Fields{"setting": name, "value": value}).Debug("Setting updated")
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

// Parse the optional step count shared by the step commands. A count that
// fails to evaluate steps once.
func (h *Host) stepCount(c selection) int {
	if len(c.Args) == 0 {
		return 1
	}
	n, err := h.parseExpr(c.Args[0])
	if err != nil {
		return 1
	}
	return int(n)
}

func (h *Host) cmdStepIn(c selection) error {
	return h.stepLoop(h.stepCount(c), (*Host).step)
}

func (h *Host) cmdStepOver(c selection) error {
	return h.stepLoop(h.stepCount(c), (*Host).stepOver)
}

// Step the CPU count times, displaying the last MaxStepLines program
// counters.
func (h *Host) stepLoop(count int, step func(h *Host)) error {
	h.breakRequested.Store(false)
	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		if h.takeBreak() {
			break
		}
		step(h)
		if h.state == stateHalted {
			break
		}
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

// Append ext to filename when it has no extension.
func withDefaultExt(filename, ext string) string {
	if filepath.Ext(filename) == "" {
		return filename + ext
	}
	return filename
}
