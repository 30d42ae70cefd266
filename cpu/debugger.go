// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"cmp"
	"slices"
)

// A Debugger tracks execution and data breakpoints for a CPU. The CPU
// reports each new program counter and each stored byte, and the debugger
// forwards the ones that hit an enabled breakpoint to its handler.
type Debugger struct {
	handler BreakpointHandler
	exec    map[uint32]*Breakpoint
	data    map[uint32]*DataBreakpoint
}

// BreakpointHandler receives breakpoint notifications from a Debugger.
// Data breakpoints are reported before the storing instruction advances
// the program counter.
type BreakpointHandler interface {
	OnBreakpoint(cpu *CPU, b *Breakpoint)
	OnDataBreakpoint(cpu *CPU, b *DataBreakpoint)
}

// A Breakpoint stops execution when the program counter reaches Address.
type Breakpoint struct {
	Address  uint32
	Disabled bool
	StepOver bool // temporary, placed by a step-over
}

// A DataBreakpoint stops execution when a byte is stored to Address. A
// conditional data breakpoint only fires when the stored byte is Value.
type DataBreakpoint struct {
	Address     uint32
	Disabled    bool
	Conditional bool
	Value       byte
}

// NewDebugger creates a debugger reporting to handler, which may be nil.
func NewDebugger(handler BreakpointHandler) *Debugger {
	return &Debugger{
		handler: handler,
		exec:    make(map[uint32]*Breakpoint),
		data:    make(map[uint32]*DataBreakpoint),
	}
}

// Collect the values of m accepted by keep, ordered by address.
func byAddress[B any](m map[uint32]*B, addr func(*B) uint32, keep func(*B) bool) []*B {
	list := make([]*B, 0, len(m))
	for _, b := range m {
		if keep(b) {
			list = append(list, b)
		}
	}
	slices.SortFunc(list, func(a, b *B) int { return cmp.Compare(addr(a), addr(b)) })
	return list
}

// GetBreakpoint returns the breakpoint at addr, or nil.
func (d *Debugger) GetBreakpoint(addr uint32) *Breakpoint {
	return d.exec[addr]
}

// GetBreakpoints returns the user breakpoints ordered by address.
// Step-over breakpoints are left out.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	return byAddress(d.exec,
		func(b *Breakpoint) uint32 { return b.Address },
		func(b *Breakpoint) bool { return !b.StepOver })
}

// AddBreakpoint sets an enabled breakpoint at addr, replacing any
// breakpoint already there.
func (d *Debugger) AddBreakpoint(addr uint32) *Breakpoint {
	b := &Breakpoint{Address: addr}
	d.exec[addr] = b
	return b
}

// AddStepOverBreakpoint sets a temporary breakpoint at addr unless a
// breakpoint already exists there.
func (d *Debugger) AddStepOverBreakpoint(addr uint32) {
	if d.exec[addr] == nil {
		d.exec[addr] = &Breakpoint{Address: addr, StepOver: true}
	}
}

// RemoveBreakpoint clears the breakpoint at addr.
func (d *Debugger) RemoveBreakpoint(addr uint32) {
	delete(d.exec, addr)
}

// RemoveStepOverBreakpoint clears the breakpoint at addr only if it is a
// temporary one.
func (d *Debugger) RemoveStepOverBreakpoint(addr uint32) {
	if b := d.exec[addr]; b != nil && b.StepOver {
		delete(d.exec, addr)
	}
}

// GetDataBreakpoint returns the data breakpoint at addr, or nil.
func (d *Debugger) GetDataBreakpoint(addr uint32) *DataBreakpoint {
	return d.data[addr]
}

// GetDataBreakpoints returns all data breakpoints ordered by address.
func (d *Debugger) GetDataBreakpoints() []*DataBreakpoint {
	return byAddress(d.data,
		func(b *DataBreakpoint) uint32 { return b.Address },
		func(*DataBreakpoint) bool { return true })
}

// AddDataBreakpoint sets a data breakpoint that fires on any store to
// addr.
func (d *Debugger) AddDataBreakpoint(addr uint32) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr}
	d.data[addr] = b
	return b
}

// AddConditionalDataBreakpoint sets a data breakpoint that fires when
// value is stored to addr.
func (d *Debugger) AddConditionalDataBreakpoint(addr uint32, value byte) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr, Conditional: true, Value: value}
	d.data[addr] = b
	return b
}

// RemoveDataBreakpoint clears the data breakpoint at addr.
func (d *Debugger) RemoveDataBreakpoint(addr uint32) {
	delete(d.data, addr)
}

func (d *Debugger) onUpdatePC(cpu *CPU, addr uint32) {
	if d.handler == nil {
		return
	}
	if b := d.exec[addr]; b != nil && !b.Disabled {
		d.handler.OnBreakpoint(cpu, b)
	}
}

func (d *Debugger) onDataStore(cpu *CPU, addr uint32, v byte) {
	if d.handler == nil {
		return
	}
	b := d.data[addr]
	if b == nil || b.Disabled || (b.Conditional && b.Value != v) {
		return
	}
	d.handler.OnDataBreakpoint(cpu, b)
}
