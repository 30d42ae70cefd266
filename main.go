// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rel32/rv32emu/disasm"
	"github.com/rel32/rv32emu/host"
	"github.com/rel32/rv32emu/program"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var (
	disassemble string
	load        string
	abi         bool
	encoding    bool
	verbose     bool
)

func init() {
	flag.StringVar(&disassemble, "d", "", "disassemble a binary image to standard output")
	flag.StringVar(&load, "l", "", "load a binary image before running scripts")
	flag.BoolVar(&abi, "abi", false, "use ABI register names when disassembling")
	flag.BoolVar(&encoding, "e", false, "show encoding format tags when disassembling")
	flag.BoolVar(&verbose, "v", false, "verbose diagnostic logging")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: rv32emu [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if err := run(); err != nil && !errors.Is(err, host.ErrQuit) {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if disassemble != "" {
		return disassembleFile(disassemble)
	}

	h := host.New()
	if verbose {
		h.Logger().SetLevel(logrus.DebugLevel)
	}
	if load != "" {
		if err := h.LoadFile(load); err != nil {
			return err
		}
	}

	// Script arguments run before the interactive session. A script
	// that quits ends the program.
	for _, path := range flag.Args() {
		if err := runScript(h, path); err != nil {
			return err
		}
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		for range interrupts {
			h.Break()
		}
	}()

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		return h.RunTerminal(fd, stdio{})
	}
	return h.RunCommands(os.Stdin, os.Stdout, true)
}

func runScript(h *host.Host, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.RunCommands(f, os.Stdout, false)
}

// stdio joins standard input and standard output into a single stream.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func disassembleFile(path string) error {
	p, err := program.LoadFile(path)
	if err != nil {
		return err
	}

	flags := disasm.Address | disasm.MachineCode | disasm.NewLine
	if abi {
		flags |= disasm.ABIRegisterMnemonics
	}
	if encoding {
		flags |= disasm.Encoding
	}

	_, err = os.Stdout.Write(disasm.Listing(flags, p.Code))
	return err
}
