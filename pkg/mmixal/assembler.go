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

package mmixal

import (
	"io"
	"strings"

	"github.com/jac18281828/checksmix/pkg/mmix"
)

// Segment is one contiguous emitted range, the unit pkg/mmo writes out.
type Segment struct {
	Addr uint64
	Data []byte
}

// Program is the output of a successful two-pass assembly.
type Program struct {
	Entry    uint64
	Segments []Segment
	Symbols  *SymTable
	GRegInit map[uint8]uint64
}

// specialRegNames maps MMIXAL's special-register mnemonics to their
// index, for PUT/PUTI/GET operands.
var specialRegNames = map[string]uint8{
	"rB": uint8(mmix.RB), "rD": uint8(mmix.RD), "rE": uint8(mmix.RE), "rH": uint8(mmix.RH),
	"rJ": uint8(mmix.RJ), "rM": uint8(mmix.RM), "rR": uint8(mmix.RR), "rBB": uint8(mmix.RBB),
	"rC": uint8(mmix.RC), "rN": uint8(mmix.RN), "rO": uint8(mmix.RO), "rS": uint8(mmix.RS),
	"rI": uint8(mmix.RI), "rT": uint8(mmix.RT), "rTT": uint8(mmix.RTT), "rK": uint8(mmix.RK),
	"rQ": uint8(mmix.RQ), "rU": uint8(mmix.RU), "rV": uint8(mmix.RV), "rG": uint8(mmix.RG),
	"rL": uint8(mmix.RL), "rA": uint8(mmix.RA), "rF": uint8(mmix.RF), "rP": uint8(mmix.RP),
	"rW": uint8(mmix.RW), "rX": uint8(mmix.RX), "rY": uint8(mmix.RY), "rZ": uint8(mmix.RZ),
	"rWW": uint8(mmix.RWW), "rXX": uint8(mmix.RXX), "rYY": uint8(mmix.RYY), "rZZ": uint8(mmix.RZZ),
}

// Assembler drives the two-pass assembly of one MMIXAL source file into
// a Program: pass 1 resolves every label, pass 2 emits the final
// segment records.
type Assembler struct {
	syms     *SymTable
	nextGReg uint8
	errs     []TokenError
}

// builtinConstants predefines the TRAP service and file-handle names
// MMIXAL programs reference directly, the way Knuth's library assigns
// them as fixed absolute symbols rather than requiring an EQU-style
// declaration in every program.
var builtinConstants = map[string]uint64{
	"Halt": mmix.TrapHalt, "Fputs": mmix.TrapFputs,
	"StdOut": mmix.StdOut, "StdErr": mmix.StdErr,
	"Data": mmix.DataSegment, "Text": mmix.TextSegment,
}

func NewAssembler() *Assembler {
	syms := &SymTable{Symbols: map[string]Symbol{}, Labels: map[uint64]string{}}
	for name, v := range builtinConstants {
		syms.Symbols[name] = Symbol{Value: v, Kind: SymAbsolute}
	}
	return &Assembler{syms: syms, nextGReg: 255}
}

// Assemble runs both passes over src and returns the assembled Program,
// or the accumulated diagnostics if either pass failed. Pass 2 keeps
// collecting errors after the first one, so a single run can report
// every malformed line at once.
func (as *Assembler) Assemble(src io.Reader) (*Program, []TokenError) {
	lines, lexErrs := scanLines(src)
	as.errs = append(as.errs, lexErrs...)

	if err := as.pass1(lines); err != nil {
		as.errs = append(as.errs, err...)
	}
	if len(as.errs) > 0 {
		return nil, as.errs
	}

	prog, err := as.pass2(lines)
	as.errs = append(as.errs, err...)
	if len(as.errs) > 0 {
		return nil, as.errs
	}
	return prog, nil
}

// pass1 resolves every label to an address, register number, or
// absolute value, and validates that each mnemonic is recognized,
// without yet emitting bytes; operand counts are checked by the pass-2
// encoders.
func (as *Assembler) pass1(lines []Line) []TokenError {
	var errs []TokenError
	here := mmix.TextSegment

	for i := range lines {
		ln := &lines[i]
		if ln.Blank {
			continue
		}

		mnem := strings.ToUpper(ln.Mnemonic)

		if mnem == "IS" {
			as.defineISLabel(ln, here, &errs)
			continue
		}
		if mnem == "GREG" {
			as.defineGRegLabel(ln, &errs)
			continue
		}

		if ln.Label != "" {
			as.defineLabel(ln, SymAddress, here, &errs)
		}

		if ln.Mnemonic == "" {
			continue
		}

		size, err := as.lineSize(mnem, *ln, here)
		if err != nil {
			errs = append(errs, err)
		}
		if mnem == "LOC" {
			v, resolved, everr := EvalExpr(opOrEmpty(ln.Operands), ln.MnPos, as.syms, here)
			if everr != nil {
				errs = append(errs, everr)
			} else if !resolved {
				errs = append(errs, &UnknownIdentifierError{Position: ln.MnPos, Name: opOrEmpty(ln.Operands)})
			} else {
				here = v
			}
			continue
		}
		here += size
	}

	return errs
}

func (as *Assembler) defineLabel(ln *Line, kind SymbolKind, value uint64, errs *[]TokenError) {
	if ln.Label == "" {
		return
	}
	if _, exists := as.syms.Symbols[ln.Label]; exists {
		*errs = append(*errs, &RedeclaredLabelError{Position: ln.LabelPos, Name: ln.Label})
		return
	}
	as.syms.Symbols[ln.Label] = Symbol{Value: value, Kind: kind}
	if kind == SymAddress {
		as.syms.Labels[value] = ln.Label
	}
}

// defineISLabel binds a label to an arbitrary expression's value, per
// MMIXAL's IS directive — unlike an ordinary label, it never names an
// address the assembler itself assigned. A register operand ("$N" or a
// register-kind "$ident") binds a register-kind symbol instead.
func (as *Assembler) defineISLabel(ln *Line, here uint64, errs *[]TokenError) {
	if len(ln.Operands) > 0 && IsRegisterOperand(ln.Operands[0]) {
		reg, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
		if err != nil {
			*errs = append(*errs, err)
			return
		}
		as.defineLabel(ln, SymRegister, uint64(reg), errs)
		return
	}
	var value uint64
	if len(ln.Operands) > 0 {
		v, resolved, err := EvalExpr(ln.Operands[0], ln.OpPos[0], as.syms, here)
		if err != nil {
			*errs = append(*errs, err)
		} else if !resolved {
			*errs = append(*errs, &UnknownIdentifierError{Position: ln.OpPos[0], Name: ln.Operands[0]})
		} else {
			value = v
		}
	}
	as.defineLabel(ln, SymAbsolute, value, errs)
}

// defineGRegLabel allocates the next free global register (counting
// down from $255) and binds the label to its index; GREG's operand, if
// any, is the register's initial value at program start, recorded
// separately in Program.GRegInit during pass 2.
func (as *Assembler) defineGRegLabel(ln *Line, errs *[]TokenError) {
	reg := as.nextGReg
	as.nextGReg--
	as.defineLabel(ln, SymRegister, uint64(reg), errs)
}

func opOrEmpty(ops []string) string {
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}

// lineSize returns the byte length a mnemonic or directive occupies,
// which depends only on syntax (register vs. literal operand, operand
// count) and never on a forward-referenced value, so pass 1 can compute
// it before every label is known.
func (as *Assembler) lineSize(mnem string, ln Line, here uint64) (uint64, TokenError) {
	switch mnem {
	case "LOC", "IS", "GREG":
		return 0, nil
	case "BYTE":
		return dataDirectiveSize(ln, 1)
	case "WYDE":
		return dataDirectiveSize(ln, 2)
	case "TETRA":
		return dataDirectiveSize(ln, 4)
	case "OCTA":
		return dataDirectiveSize(ln, 8)
	case "SET":
		if len(ln.Operands) == 2 && IsRegisterOperand(ln.Operands[1]) {
			return 4, nil
		}
		return 16, nil
	}

	if _, ok := regTriple[mnem]; ok {
		return 4, nil
	}
	if _, ok := negTriple[mnem]; ok {
		return 4, nil
	}
	if _, ok := loadStore[mnem]; ok {
		return 4, nil
	}
	if _, ok := cszsTriple[mnem]; ok {
		return 4, nil
	}
	if _, ok := fpTriple[mnem]; ok {
		return 4, nil
	}
	if _, ok := fpUnary[mnem]; ok {
		return 4, nil
	}
	if _, ok := byteLane[mnem]; ok {
		return 4, nil
	}
	if _, ok := branchOp[mnem]; ok {
		return 4, nil
	}
	switch mnem {
	case "JMP", "JMPB", "PUSHJ", "PUSHJB", "PUSHGO", "PUSHGOI",
		"GETA", "GETAB", "PUT", "PUTI", "GET", "POP", "SAVE", "UNSAVE",
		"SYNC", "SWYM", "RESUME", "TRIP", "TRAP":
		return 4, nil
	}
	return 0, &UnknownMnemonicError{Position: ln.MnPos, Name: ln.Mnemonic}
}

func dataDirectiveSize(ln Line, unit uint64) (uint64, TokenError) {
	var size uint64
	for _, op := range ln.Operands {
		if unit == 1 && strings.HasPrefix(op, "\"") {
			size += uint64(len(unquote(op)))
			continue
		}
		size += unit
	}
	return size, nil
}

func unquote(s string) string {
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	return s
}
