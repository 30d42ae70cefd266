// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"strconv"
	"strings"
)

// RegisterFile contains the state of the RV32I integer registers. Register
// x0 is hardwired to zero and has no storage.
type RegisterFile struct {
	PC uint32     // program counter
	X  [31]uint32 // x1 through x31
}

// Get returns the value of register xn. x0 and out-of-range register
// numbers read as zero.
func (r *RegisterFile) Get(n uint32) uint32 {
	if n == 0 || n > 31 {
		return 0
	}
	return r.X[n-1]
}

// Set stores v into register xn. Writes to x0 are dropped.
func (r *RegisterFile) Set(n uint32, v uint32) {
	if n == 0 || n > 31 {
		return
	}
	r.X[n-1] = v
}

// Reset zeroes every register, including the program counter.
func (r *RegisterFile) Reset() {
	*r = RegisterFile{}
}

// RegisterContext selects the register namespace used by RegisterName.
type RegisterContext int

// Register contexts
const (
	ContextGeneral RegisterContext = iota // x0 through x31
	ContextPC                             // the program counter
)

var registerNames = [32]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "x29", "x30", "x31",
}

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegisterName returns the assembly name of a register. General registers
// are named x0-x31, or by their ABI names when abi is true. The only PC
// context register is number 0, named "pc".
func RegisterName(ctx RegisterContext, number uint32, abi bool) (string, error) {
	switch ctx {
	case ContextGeneral:
		if number >= 32 {
			return "", ErrNotFound
		}
		if abi {
			return abiNames[number], nil
		}
		return registerNames[number], nil
	case ContextPC:
		if number == 0 {
			return "pc", nil
		}
	}
	return "", ErrNotFound
}

// RegisterNumber returns the number of the general register with the
// given name. Both xN and ABI names are accepted, as is "fp" for s0.
func RegisterNumber(name string) (uint32, error) {
	name = strings.ToLower(name)
	if name == "fp" {
		return 8, nil
	}
	for i, n := range abiNames {
		if n == name {
			return uint32(i), nil
		}
	}
	if len(name) > 1 && name[0] == 'x' {
		n, err := strconv.ParseUint(name[1:], 10, 8)
		if err == nil && n < 32 && strconv.FormatUint(n, 10) == name[1:] {
			return uint32(n), nil
		}
	}
	return 0, ErrNotFound
}
