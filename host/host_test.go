// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rel32/rv32emu/asm"
)

func newHost() *Host {
	h := New()
	h.Logger().SetOutput(io.Discard)
	return h
}

// Assemble source at address zero and save the flat image to a temporary
// directory, returning the image path.
func writeImage(t *testing.T, source string) string {
	t.Helper()
	assembly, err := asm.Assemble(strings.NewReader(source), "test", 0, io.Discard, 0)
	if err != nil {
		t.Fatalf("assembly failed: %v %v", err, assembly.Errors)
	}
	path := filepath.Join(t.TempDir(), "prog.bin")
	if err := os.WriteFile(path, assembly.Code, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runScript(t *testing.T, h *Host, script string) string {
	t.Helper()
	var out bytes.Buffer
	if err := h.RunCommands(strings.NewReader(script), &out, false); err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}
	return out.String()
}

func expectOutput(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(out, l) {
			t.Errorf("Output missing %q.\ngot:\n%s", l, out)
		}
	}
}

func expectPC(t *testing.T, h *Host, pc uint32) {
	t.Helper()
	if h.CPU().Reg.PC != pc {
		t.Errorf("PC incorrect. exp: $%08X, got: $%08X", pc, h.CPU().Reg.PC)
	}
}

func expectReg(t *testing.T, h *Host, n, v uint32) {
	t.Helper()
	if got := h.CPU().Reg.Get(n); got != v {
		t.Errorf("x%d incorrect. exp: $%08X, got: $%08X", n, v, got)
	}
}

const countProgram = `
	addi x1, x0, 1
	addi x1, x1, 1
	addi x1, x1, 1
	ecall`

func TestLoadAndList(t *testing.T) {
	h := newHost()
	path := writeImage(t, countProgram)

	out := runScript(t, h, "load "+path+"\nlist\n")
	expectOutput(t, out,
		"Loaded 'prog.bin': 16 bytes, 4 instructions.",
		"    0  00000000  00100093 addi ra, zero, 1",
		"    1  00000004  00108093 addi ra, ra, 1",
		"    3  0000000C  00000073 ecall",
	)

	out = runScript(t, h, "load "+filepath.Join(filepath.Dir(path), "missing.bin")+"\n")
	expectOutput(t, out, "Failed to load 'missing.bin'")
}

func TestListWithoutImage(t *testing.T) {
	h := newHost()
	out := runScript(t, h, "list\n")
	expectOutput(t, out, "No image loaded.")
}

func TestStepIn(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, countProgram)); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "step in\nregister\n")
	expectPC(t, h, 4)
	expectReg(t, h, 1, 1)
	expectOutput(t, out,
		"00000004 00108093 addi ra, ra, 1",
		"S=1",
		"pc       $00000004    S=1",
		"x1/ra    $00000001",
	)

	runScript(t, h, "si 2\n")
	expectPC(t, h, 12)
	expectReg(t, h, 1, 3)
}

func TestRunToEndOfCode(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, countProgram)); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "run\n")
	expectOutput(t, out,
		"Running from $00000000. Press ctrl-C to break.",
		"PC $00000010 is outside the loaded code.",
	)
	expectPC(t, h, 16)
	expectReg(t, h, 1, 3)
	if h.CPU().Steps != 4 {
		t.Errorf("Steps incorrect. exp: 4, got: %d", h.CPU().Steps)
	}
}

func TestBreakpoints(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, countProgram)); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "breakpoint add 8\nrun\nbreakpoint list\n")
	expectOutput(t, out,
		"Breakpoint added at $00000008.",
		"Breakpoint hit at $00000008.",
		"Addr      Enabled",
		"$00000008 true",
	)
	expectPC(t, h, 8)
	expectReg(t, h, 1, 2)

	out = runScript(t, h, "reset\nbd 8\nrun\n")
	expectOutput(t, out, "CPU reset.", "Breakpoint at $00000008 disabled.")
	expectPC(t, h, 16)

	out = runScript(t, h, "br 8\nbr 8\n")
	expectOutput(t, out,
		"Breakpoint at $00000008 removed.",
		"No breakpoint was set on $00000008.",
	)
}

func TestDataBreakpoints(t *testing.T) {
	h := newHost()
	path := writeImage(t, `
	li x2, 0x34
	sw x2, 0x100(x0)
	ecall`)
	if err := h.LoadFile(path); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "databreakpoint add $100 $35\nrun\n")
	expectOutput(t, out, "Conditional data breakpoint added at $00000100 for value $35.")
	expectPC(t, h, 12)

	out = runScript(t, h, "dbr $100\nreset\ndba $100\nrun\ndbl\n")
	expectOutput(t, out,
		"Data breakpoint at $00000100 removed.",
		"Data breakpoint added at $00000100.",
		"Data breakpoint hit on address $00000100.",
		"00000004 10202023 sw zero, sp, 256",
		"$00000100 true     <none>",
	)
	expectPC(t, h, 8)
}

func TestStepOver(t *testing.T) {
	h := newHost()
	path := writeImage(t, `
	jal ra, sub
	addi x6, x6, 1
	ecall
sub:
	addi x6, x6, 1
	ret`)
	if err := h.LoadFile(path); err != nil {
		t.Fatal(err)
	}

	runScript(t, h, "step over\n")
	expectPC(t, h, 4)
	expectReg(t, h, 6, 1)
	if len(h.debugger.GetBreakpoints()) != 0 {
		t.Error("Step-over breakpoint left behind")
	}

	runScript(t, h, "s\n")
	expectPC(t, h, 8)
	expectReg(t, h, 6, 2)
}

func TestMemory(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "memory set $100 $41 $42 $43\nmemory dump $100 3\n")
	expectOutput(t, out, "Stored 3 bytes at $00000100.", "00000100- 41 42 43")
	if !strings.Contains(out, "ABC") {
		t.Errorf("Characters missing. got:\n%s", out)
	}

	out = runScript(t, h, "m $104 16\n")
	for _, row := range []string{"00000100-", "00000108-", "00000110-"} {
		if !strings.Contains(out, row) {
			t.Errorf("Row %s missing. got:\n%s", row, out)
		}
	}

	out = runScript(t, h, "ms $FFFF 1 2\nm $10000\n")
	expectOutput(t, out,
		"Address range $0000FFFF..$00010000 is outside data memory.",
		"Address $00010000 is outside data memory.",
	)
}

func TestSharedMemory(t *testing.T) {
	source := `
	li x2, 0x55
	sw x2, 0(x0)
	ecall`

	h := newHost()
	if err := h.LoadFile(writeImage(t, source)); err != nil {
		t.Fatal(err)
	}
	runScript(t, h, "si 2\n")
	if h.code[0] != 0x55 {
		t.Errorf("Store not visible in shared code. got: $%02X", h.code[0])
	}

	h = newHost()
	path := writeImage(t, source)
	out := runScript(t, h, "set sharedmemory false\nset datasize $100\nload "+path+"\nsi 2\nm 0 1\nms $100 1\n")
	if h.code[0] != 0x13 {
		t.Errorf("Store modified separate code. got: $%02X", h.code[0])
	}
	if h.mem[0] != 0x55 || len(h.mem) != 0x100 {
		t.Errorf("Data memory incorrect. got: $%02X, %d bytes", h.mem[0], len(h.mem))
	}
	expectOutput(t, out,
		"00000000- 55",
		"Address range $00000100..$00000100 is outside data memory.",
	)
}

func TestMemoryFault(t *testing.T) {
	h := newHost()
	var log bytes.Buffer
	h.Logger().SetOutput(&log)

	path := writeImage(t, `
	li x1, -4
	lw x2, 0(x1)`)
	if err := h.LoadFile(path); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "run\n")
	expectOutput(t, out, "Memory access fault at $FFFFFFFC by instruction at $00000004.")
	expectPC(t, h, 4)
	if !strings.Contains(log.String(), "Interpreter fault recovered") {
		t.Errorf("Fault not logged. got: %q", log.String())
	}
	if !strings.Contains(log.String(), `address="$FFFFFFFC"`) {
		t.Errorf("Fault address not logged. got: %q", log.String())
	}

	// Store faults report base plus offset.
	h = newHost()
	if err := h.LoadFile(writeImage(t, `
	lui x3, 0x10
	sw x0, 8(x3)`)); err != nil {
		t.Fatal(err)
	}
	out = runScript(t, h, "run\n")
	expectOutput(t, out, "Memory access fault at $00010008 by instruction at $00000004.")
}

func TestMaxRunSteps(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, "loop: j loop")); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "set maxrunsteps 5\nrun\n")
	expectOutput(t, out, "Setting updated.", "Stopped after 5 steps.")
	if h.CPU().Steps != 5 {
		t.Errorf("Steps incorrect. exp: 5, got: %d", h.CPU().Steps)
	}
}

func TestBreak(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, "loop: j loop")); err != nil {
		t.Fatal(err)
	}

	// Keep breaking from another goroutine until the endless run returns.
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond):
				h.Break()
			}
		}
	}()
	out := runScript(t, h, "run\n")
	close(done)

	expectOutput(t, out, "Running from $00000000.")
	expectPC(t, h, 0)
	if h.state != stateProcessingCommands {
		t.Errorf("State incorrect after break. got: %d", h.state)
	}
}

func TestBreakBeforeRun(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, countProgram)); err != nil {
		t.Fatal(err)
	}

	// A break with nothing running does not cut short the next command.
	h.Break()
	runScript(t, h, "si 2\n")
	expectPC(t, h, 8)
}

func TestRegisterCommand(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "register x1 $10\nregister x0 5\nregister pc 8\nregister foo 1\n")
	expectOutput(t, out,
		"Register x1 set to $00000010.",
		"Register x0 is hardwired to zero.",
		"Register pc set to $00000008.",
		"Register 'foo' not found.",
	)
	expectReg(t, h, 1, 0x10)
	expectReg(t, h, 0, 0)
	expectPC(t, h, 8)

	out = runScript(t, h, "set registerformat signed\nr a0 -5\nr\n")
	expectOutput(t, out, "Register a0 set to -5.", "x10/a0   -5")
}

func TestEvaluate(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "evaluate 1 + 2 * 3\ne -1\nr x1 2\ne x1 << 4\ne 1/0\ne nosuch\n")
	expectOutput(t, out,
		"$00000007 (7)",
		"$FFFFFFFF (-1)",
		"$00000020 (32)",
		"division by zero",
		"identifier 'nosuch' not found",
	)

	out = runScript(t, h, "set hexmode on\ne 10\n")
	expectOutput(t, out, "$00000010 (16)")
}

func TestSetCommand(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "set\nset nosuch 1\nset registerformat bogus\nset hexmode maybe\n")
	expectOutput(t, out,
		"Variables:",
		`RegisterFormat   "hex"`,
		"DataSize         65536",
		"Setting 'nosuch' not found",
		"invalid register format 'bogus'",
		"invalid bool value 'maybe'",
	)

	runScript(t, h, "set ShowEncoding true\nset abinames off\n")
	if !h.settings.ShowEncoding || h.settings.ABINames {
		t.Error("Settings not updated")
	}
}

func TestDecodeCommand(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "decode $00500093\n")
	expectOutput(t, out,
		"Word:      $00500093",
		"Mnemonic:  addi",
		"Module:    i",
		"Format:    i",
		"Immediate: $00000005 (5)",
		"Assembly:  addi ra, zero, 5",
		`Mnemonic: (string) (len=4) "addi"`,
	)

	out = runScript(t, h, "decode 1\ndecode $FFFFFFFF\n")
	expectOutput(t, out,
		"Compressed 16-bit instruction, not decoded.",
		"Mnemonic:  unknown",
	)
	if strings.Count(out, "Assembly:") != 0 {
		t.Errorf("Unknown word disassembled. got:\n%s", out)
	}
}

func TestEncodingCommand(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "encoding ADD\nencoding bogus\n")
	expectOutput(t, out,
		"add (r), module i",
		"Fields: 0000000,rs2,rs1,000,rd,0110011",
		"Mask:   $FE00707F",
		"Match:  $00000033",
		"Instruction 'bogus' not found.",
	)
}

func TestDisassembleCommand(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, countProgram)); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "annotate 4 count up\ndisassemble 0 2\nd 8 5\n")
	expectOutput(t, out,
		"Annotation added at $00000004.",
		"00000000 00100093 addi ra, zero, 1\n",
		"00000004 00108093 addi ra, ra, 1 ; count up\n",
		"0000000C 00000073 ecall\n",
		"Address $00000010 is outside the loaded code.",
	)

	out = runScript(t, h, "annotate 4\nd 4 1\n")
	expectOutput(t, out, "Annotation removed at $00000004.")
	if strings.Contains(out, "count up") {
		t.Errorf("Annotation not removed. got:\n%s", out)
	}
}

func TestAssembleInteractive(t *testing.T) {
	h := newHost()

	out := runScript(t, h, "assemble interactive 0\naddi x1, x0, 7\nEND\nstep in\nlist\n")
	expectOutput(t, out,
		"Enter assembly language instructions. Type END to finish.",
		"Assembled 4 bytes to $00000000..$00000003.",
		"    0  00000000  00700093 addi ra, zero, 7",
	)
	expectReg(t, h, 1, 7)

	out = runScript(t, h, "ai 4\nfoo\nend\n")
	expectOutput(t, out, "Failed to assemble.", "unknown instruction 'foo'")
}

func TestAssembleFileCommand(t *testing.T) {
	h := newHost()
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.asm")
	if err := os.WriteFile(source, []byte("addi x1, x0, 9\necall\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "assemble file "+source+"\nload "+filepath.Join(dir, "prog")+"\nrun\n")
	expectOutput(t, out,
		"Assembled 'prog.asm' to produce 'prog.bin'.",
		"Loaded 'prog.bin': 8 bytes, 2 instructions.",
	)
	expectReg(t, h, 1, 9)
}

func TestExecute(t *testing.T) {
	h := newHost()
	script := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(script, []byte("register a0 3\n# comment\nregister a1 4\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, h, "execute "+script+"\n")
	expectOutput(t, out, "Register a0 set to $00000003.", "Register a1 set to $00000004.")
	expectReg(t, h, 10, 3)
	expectReg(t, h, 11, 4)

	out = runScript(t, h, "execute "+filepath.Join(filepath.Dir(script), "missing.txt")+"\n")
	expectOutput(t, out, "failed to open 'missing.txt'")
}

func TestQuit(t *testing.T) {
	h := newHost()
	var out bytes.Buffer
	err := h.RunCommands(strings.NewReader("quit\nregister x1 1\n"), &out, false)
	if !errors.Is(err, ErrQuit) {
		t.Errorf("Quit error incorrect. got: %v", err)
	}
	expectReg(t, h, 1, 0)

	script := filepath.Join(t.TempDir(), "quit.txt")
	if err := os.WriteFile(script, []byte("quit\n"), 0600); err != nil {
		t.Fatal(err)
	}
	err = h.RunCommands(strings.NewReader("execute "+script+"\n"), &out, false)
	if !errors.Is(err, ErrQuit) {
		t.Errorf("Quit from script error incorrect. got: %v", err)
	}
}

func TestUnknownCommands(t *testing.T) {
	h := newHost()
	out := runScript(t, h, "frobnicate\nre\n")
	expectOutput(t, out, "Command not found.", "Command is ambiguous.")
}

func TestRepeatLastCommand(t *testing.T) {
	h := newHost()
	if err := h.LoadFile(writeImage(t, countProgram)); err != nil {
		t.Fatal(err)
	}

	// Empty lines repeat the last command only when interactive.
	runScript(t, h, "step in\n\n")
	expectReg(t, h, 1, 1)

	var out bytes.Buffer
	if err := h.RunCommands(strings.NewReader("\n\n"), &out, true); err != nil {
		t.Fatal(err)
	}
	expectReg(t, h, 1, 3)
	if !strings.Contains(out.String(), defaultPrompt) {
		t.Errorf("Prompt missing. got: %q", out.String())
	}
}
