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

// Special register indices, in the standard MMIX assignment.
const (
	RB SpecialReg = iota
	RD
	RE
	RH
	RJ
	RM
	RR
	RBB
	RC
	RN
	RO
	RS
	RI
	RT
	RTT
	RK
	RQ
	RU
	RV
	RG
	RL
	RA
	RF
	RP
	RW
	RX
	RY
	RZ
	RWW
	RXX
	RYY
	RZZ
)

// NumSpecialRegs is the count of addressable special registers.
const NumSpecialRegs = 32

// NumGeneralRegs is the count of general-purpose registers, $0..$255.
const NumGeneralRegs = 256

// Event bits within rA (arithmetic status register), lowest six bits.
const (
	EventD uint64 = 1 << 0 // integer divide check
	EventV uint64 = 1 << 1 // integer overflow
	EventU uint64 = 1 << 2 // float underflow
	EventW uint64 = 1 << 3 // float overflow... kept distinct from V per Knuth's table
	EventI uint64 = 1 << 4 // invalid operation (NaN, bad opcode)
	EventO uint64 = 1 << 5 // reserved; nothing in this implementation sets it
)

// TRAP service codes, predefined by MMIXAL convention.
const (
	TrapHalt  uint64 = 0
	TrapFputs uint64 = 7
)

// File-handle constants used by TRAP Fputs.
const (
	StdOut uint64 = 1
	StdErr uint64 = 2
)

// DataSegment is the conventional base address of the data area.
const DataSegment uint64 = 0x2000000000000000

// TextSegment is the conventional base address of the text area.
const TextSegment uint64 = 0x100

// RegisterRingSize is the number of octa slots in the logical register ring.
const RegisterRingSize = 512
