// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package program loads flat RV32I binary images and prepares the
// listing a debugger displays alongside them.
package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rel32/rv32emu/disasm"
	"golang.org/x/crypto/sha3"
)

// Errors
var (
	ErrEmptyImage = errors.New("Image contains no data")
)

// ListingFlags are the disassembly flags used to build a program listing.
const ListingFlags = disasm.MachineCode | disasm.NewLine | disasm.ABIRegisterMnemonics

// A Program is a flat binary image with no header. Instructions are laid
// out from address 0 and the image is both code and initial data.
type Program struct {
	Name             string   // base name of the image
	Code             []byte   // raw image bytes
	InstructionCount int      // number of whole 32-bit words in Code
	Listing          string   // one disassembled line per instruction
	Digest           [32]byte // Keccak-256 of Code
	lines            []int    // byte offset of each listing line
}

// Load reads an entire flat image from r.
func Load(r io.Reader, name string) (*Program, error) {
	code, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, ErrEmptyImage
	}

	p := &Program{
		Name:             name,
		Code:             code,
		InstructionCount: len(code) / 4,
		Digest:           digest(code),
	}
	p.buildListing()
	return p, nil
}

// LoadFile reads a flat image from disk.
func LoadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Load(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func digest(code []byte) [32]byte {
	var d [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	h.Sum(d[:0])
	return d
}

func (p *Program) buildListing() {
	listing := disasm.Listing(ListingFlags, p.Code)
	p.Listing = string(listing)

	p.lines = make([]int, 0, p.InstructionCount)
	for off := 0; off < len(listing); {
		p.lines = append(p.lines, off)
		i := bytes.IndexByte(listing[off:], '\n')
		if i < 0 {
			break
		}
		off += i + 1
	}
}

// LineCount returns the number of lines in the listing.
func (p *Program) LineCount() int {
	return len(p.lines)
}

// Line returns listing line i without its newline, or an empty string if
// i is out of range.
func (p *Program) Line(i int) string {
	if i < 0 || i >= len(p.lines) {
		return ""
	}
	start := p.lines[i]
	end := len(p.Listing)
	if i+1 < len(p.lines) {
		end = p.lines[i+1]
	}
	line := p.Listing[start:end]
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line
}

// DigestString returns the image digest in hexadecimal.
func (p *Program) DigestString() string {
	return fmt.Sprintf("%x", p.Digest)
}
