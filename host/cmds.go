// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/cmd"
)

var cmds *cmd.Tree

type commandFunc func(*Host, selection) error

// A command path of two words places the command in a subtree named by
// the first word.
var commandTable = []struct {
	path        string
	brief       string
	description string
	usage       string
	fn          commandFunc
}{
	{"help", "", "Display help for a command.", "help [<command>]", (*Host).cmdHelp},
	{"annotate", "Annotate an address",
		"Attach a note to a code address. Disassembly shows the note after" +
			" the instruction at that address. Leave out the text to remove" +
			" the note.",
		"annotate <address> [<text>]", (*Host).cmdAnnotate},

	{"assemble file", "Assemble a source file to a binary image",
		"Assemble a source file and write the flat image next to it with a" +
			" .bin extension. Pass true as the second argument for a trace" +
			" of both assembler passes.",
		"assemble file <filename> [<verbose>]", (*Host).cmdAssembleFile},
	{"assemble interactive", "Assemble typed lines into code memory",
		"Read assembly lines at an asm> prompt until a line containing only" +
			" END, then assemble them and store the code at the address." +
			" The code image grows to hold it.",
		"assemble interactive <address>", (*Host).cmdAssembleInteractive},

	{"breakpoint list", "List breakpoints", "Show every breakpoint and whether it is enabled.",
		"breakpoint list", (*Host).cmdBreakpointList},
	{"breakpoint add", "Add a breakpoint",
		"Stop execution when the program counter reaches the address. New" +
			" breakpoints are enabled.",
		"breakpoint add <address>", (*Host).cmdBreakpointAdd},
	{"breakpoint remove", "Remove a breakpoint", "Delete the breakpoint at the address.",
		"breakpoint remove <address>", (*Host).cmdBreakpointRemove},
	{"breakpoint enable", "Enable a breakpoint", "Re-enable a disabled breakpoint.",
		"breakpoint enable <address>", (*Host).cmdBreakpointEnable},
	{"breakpoint disable", "Disable a breakpoint",
		"Keep the breakpoint at the address but stop it from firing.",
		"breakpoint disable <address>", (*Host).cmdBreakpointDisable},

	{"databreakpoint list", "List data breakpoints",
		"Show every data breakpoint, whether it is enabled and the value it" +
			" waits for.",
		"databreakpoint list", (*Host).cmdDataBreakpointList},
	{"databreakpoint add", "Add a data breakpoint",
		"Stop execution when a store writes a byte to the data address. With" +
			" a value, stop only when that byte value is written.",
		"databreakpoint add <address> [<value>]", (*Host).cmdDataBreakpointAdd},
	{"databreakpoint remove", "Remove a data breakpoint", "Delete the data breakpoint at the address.",
		"databreakpoint remove <address>", (*Host).cmdDataBreakpointRemove},
	{"databreakpoint enable", "Enable a data breakpoint", "Re-enable a disabled data breakpoint.",
		"databreakpoint enable <address>", (*Host).cmdDataBreakpointEnable},
	{"databreakpoint disable", "Disable a data breakpoint",
		"Keep the data breakpoint at the address but stop it from firing.",
		"databreakpoint disable <address>", (*Host).cmdDataBreakpointDisable},

	{"decode", "Decode a machine word",
		"Show the table entry, the raw fields and the immediate of a 32-bit" +
			" word, its assembly text, and a dump of the decoded record.",
		"decode <word>", (*Host).cmdDecode},
	{"disassemble", "Disassemble code",
		"Print instructions starting at the address, or where the previous" +
			" disassembly stopped. Use . for the program counter.",
		"disassemble [<address>] [<lines>]", (*Host).cmdDisassemble},
	{"encoding", "Show the encoding of an instruction",
		"Print the format, bit layout, fields, mask and match value for a" +
			" mnemonic.",
		"encoding <mnemonic>", (*Host).cmdEncoding},
	{"evaluate", "Evaluate an expression",
		"Evaluate an integer expression. Register names and pc may appear as" +
			" values.",
		"evaluate <expression>", (*Host).cmdEvaluate},
	{"execute", "Execute a script file", "Run the commands in a script file.",
		"execute <filename>", (*Host).cmdExecute},
	{"list", "List the loaded image",
		"Print lines of the listing built when the image was loaded, starting" +
			" at the line number or where the previous listing stopped.",
		"list [<line>] [<count>]", (*Host).cmdList},
	{"load", "Load a binary image",
		"Load a flat image at address zero, size data memory from the" +
			" DataSize setting and reset the CPU.",
		"load <filename>", (*Host).cmdLoad},

	{"memory dump", "Dump data memory",
		"Print data memory as hex bytes and characters, starting at the" +
			" address or where the previous dump stopped.",
		"memory dump [<address>] [<bytes>]", (*Host).cmdMemoryDump},
	{"memory set", "Store bytes in data memory",
		"Store one or more byte values starting at the address. Each value" +
			" may be an expression.",
		"memory set <address> <byte> [<byte> ...]", (*Host).cmdMemorySet},

	{"quit", "Quit the program", "Quit the program.", "quit", (*Host).cmdQuit},
	{"register", "View or change registers",
		"Without arguments, show pc and x0-x31 in the RegisterFormat setting." +
			" With a name and a value, change that register. Names are xN, ABI" +
			" names or pc. x0 cannot be changed.",
		"register [<name> <value>]", (*Host).cmdRegister},
	{"reset", "Reset the CPU", "Zero the program counter, the registers and the step count.",
		"reset", (*Host).cmdReset},
	{"run", "Run the CPU",
		"Run from the address or the program counter until a breakpoint," +
			" Ctrl-C, MaxRunSteps steps, or the program counter leaving the" +
			" loaded code.",
		"run [<address>]", (*Host).cmdRun},
	{"set", "Change a setting",
		"Change a setting. Without arguments, list every setting and its" +
			" value.",
		"set [<name> <value>]", (*Host).cmdSet},

	{"step in", "Step one instruction",
		"Execute one instruction, or the given number of instructions.",
		"step in [<count>]", (*Host).cmdStepIn},
	{"step over", "Step over a call",
		"Like step in, except that a jal or jalr that links a return address" +
			" runs until the instruction after it.",
		"step over [<count>]", (*Host).cmdStepOver},
}

var subtreeBriefs = map[string]string{
	"assemble":       "Assembler commands",
	"breakpoint":     "Breakpoint commands",
	"databreakpoint": "Data breakpoint commands",
	"memory":         "Memory commands",
	"step":           "Stepping commands",
}

var shortcuts = [][2]string{
	{"?", "help"},
	{".", "register"},
	{"a", "assemble file"},
	{"ai", "assemble interactive"},
	{"ba", "breakpoint add"},
	{"bd", "breakpoint disable"},
	{"be", "breakpoint enable"},
	{"bl", "breakpoint list"},
	{"br", "breakpoint remove"},
	{"d", "disassemble"},
	{"dba", "databreakpoint add"},
	{"dbd", "databreakpoint disable"},
	{"dbe", "databreakpoint enable"},
	{"dbl", "databreakpoint list"},
	{"dbr", "databreakpoint remove"},
	{"e", "evaluate"},
	{"l", "list"},
	{"m", "memory dump"},
	{"ms", "memory set"},
	{"r", "register"},
	{"s", "step over"},
	{"si", "step in"},
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "rv32emu"})
	subtrees := make(map[string]*cmd.Tree)

	for _, c := range commandTable {
		tree, name := root, c.path
		if parent, child, ok := strings.Cut(c.path, " "); ok {
			tree = subtrees[parent]
			if tree == nil {
				tree = root.AddSubtree(cmd.TreeDescriptor{Name: parent, Brief: subtreeBriefs[parent]})
				subtrees[parent] = tree
			}
			name = child
		}
		tree.AddCommand(cmd.CommandDescriptor{
			Name:        name,
			Brief:       c.brief,
			Description: c.description,
			Usage:       c.usage,
			Data:        c.fn,
		})
	}

	for _, s := range shortcuts {
		if err := root.AddShortcut(s[0], s[1]); err != nil {
			panic(err)
		}
	}

	cmds = root
}
