// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package mmix

import (
	"io"
)

// SpecialReg names one of the 32 addressable special registers.
type SpecialReg uint8

// RunState is one of the executor's three states.
type RunState int

const (
	Running RunState = iota
	Halted
	Faulted
)

// Tracer receives a line of diagnostic text for every decoded instruction
// and every dispatched TRAP, when tracing is enabled. It is a single
// sink rather than a breakpoint/watchpoint callback set, since an
// interactive debugger is out of scope here.
type Tracer interface {
	Trace(format string, args ...any)
}

// DeviceHandler owns the machine's I/O surface: everything a TRAP
// service can read from or write to. Only Fputs is wired up, so this is
// a single output sink.
type DeviceHandler struct {
	Output io.Writer
}

// State is the full mutable state of one MMIX machine: general
// registers, special registers, the register ring's call frames, the program
// counter, and the run state, grouped so that tests can construct and
// compare it by value.
type State struct {
	General  [NumGeneralRegs]uint64
	Special  [NumSpecialRegs]uint64
	PC       uint64
	Ring     RegisterRing
	Run      RunState
	ExitCode uint64
}

// Reset restores a State to its power-on values: zeroed registers, PC at
// the conventional text segment base, and rA's rounding mode defaulted
// to round-to-nearest-even (value 0).
func (s *State) Reset() {
	*s = State{PC: TextSegment}
}

// Machine is the single owning aggregate for a running MMIX program: its
// state, its memory, its device handler, and an optional tracer. Nothing
// outside Machine holds a reference to its sub-components — everything
// a running program touches is owned by exactly one Machine instance.
type Machine struct {
	State   State
	Memory  Memory
	Devices *DeviceHandler
	Tracer  Tracer
}

// NewMachine returns a Machine with freshly reset state and memory.
func NewMachine() *Machine {
	mc := &Machine{}
	mc.State.Reset()
	return mc
}

func (mc *Machine) tracef(format string, args ...any) {
	if mc.Tracer != nil {
		mc.Tracer.Trace(format, args...)
	}
}
