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
	"strings"

	enc "github.com/jac18281828/checksmix/pkg/encoding"
	"github.com/jac18281828/checksmix/pkg/mmix"
)

// pass2 re-walks the tokenized lines with every symbol now resolved and
// emits the final byte stream, grouped into contiguous Segments split
// wherever a LOC directive jumps the location counter.
func (as *Assembler) pass2(lines []Line) (*Program, []TokenError) {
	var errs []TokenError
	prog := &Program{Entry: mmix.TextSegment, Symbols: as.syms, GRegInit: map[uint8]uint64{}}

	here := mmix.TextSegment
	var cur *Segment

	flush := func() {
		if cur != nil && len(cur.Data) > 0 {
			prog.Segments = append(prog.Segments, *cur)
		}
		cur = nil
	}

	emit := func(b []byte) {
		if cur == nil {
			cur = &Segment{Addr: here}
		}
		cur.Data = append(cur.Data, b...)
		here += uint64(len(b))
	}

	if sym, ok := as.syms.Symbols["Main"]; ok && sym.Kind == SymAddress {
		prog.Entry = sym.Value
	}

	for i := range lines {
		ln := lines[i]
		if ln.Blank || ln.Mnemonic == "" {
			continue
		}
		mnem := strings.ToUpper(ln.Mnemonic)

		switch mnem {
		case "IS":
			continue
		case "GREG":
			if ln.Label != "" && len(ln.Operands) > 0 {
				sym := as.syms.Symbols[ln.Label]
				v, resolved, err := EvalExpr(ln.Operands[0], ln.OpPos[0], as.syms, here)
				if err != nil {
					errs = append(errs, err)
				} else if resolved {
					prog.GRegInit[uint8(sym.Value)] = v
				}
			}
			continue
		case "LOC":
			v, _, err := EvalExpr(opOrEmpty(ln.Operands), ln.MnPos, as.syms, here)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			flush()
			here = v
			continue
		case "BYTE", "WYDE", "TETRA", "OCTA":
			b, err := as.encodeData(mnem, ln, here)
			if err != nil {
				errs = append(errs, err...)
				continue
			}
			emit(b)
			continue
		case "SET":
			b, err := as.encodeSet(ln, here)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			emit(b)
			continue
		}

		tetra, err := as.encodeInstruction(mnem, ln, here)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b := make([]byte, 4)
		enc.WriteTetra(b, tetra)
		emit(b)
	}
	flush()

	return prog, errs
}

func (as *Assembler) encodeData(mnem string, ln Line, here uint64) ([]byte, []TokenError) {
	var errs []TokenError
	var out []byte

	unit := map[string]int{"BYTE": 1, "WYDE": 2, "TETRA": 4, "OCTA": 8}[mnem]
	for i, op := range ln.Operands {
		// BYTE "text" may appear alongside ordinary numeric operands
		// (a terminating 0, a trailing newline code) in the same list.
		if mnem == "BYTE" && strings.HasPrefix(op, "\"") {
			out = append(out, []byte(unquote(op))...)
			continue
		}

		v, resolved, err := EvalExpr(op, ln.OpPos[i], as.syms, here)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resolved {
			errs = append(errs, &UnknownIdentifierError{Position: ln.OpPos[i], Name: op})
			continue
		}
		b := make([]byte, unit)
		switch unit {
		case 1:
			b[0] = byte(v)
		case 2:
			enc.WriteWyde(b, uint16(v))
		case 4:
			enc.WriteTetra(b, uint32(v))
		case 8:
			enc.WriteOcta(b, v)
		}
		out = append(out, b...)
	}
	return out, errs
}

// encodeSet expands "SET $X,$Y" to a single OR, and "SET $X,expr" to a
// SETH followed by INCMH/INCML/INCL — SETH clears every lane but its
// own, and INCxx only adds into the lane it names, so the three
// followers build the remaining 48 bits without disturbing what SETH
// wrote.
func (as *Assembler) encodeSet(ln Line, here uint64) ([]byte, TokenError) {
	if len(ln.Operands) != 2 {
		return nil, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: "SET", Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return nil, err
	}
	if IsRegisterOperand(ln.Operands[1]) {
		y, err := ParseRegister(ln.Operands[1], ln.OpPos[1], as.syms)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 4)
		enc.WriteTetra(b, mmix.Encode(mmix.OpOr, x, y, 0))
		return b, nil
	}

	v, resolved, err := EvalExpr(ln.Operands[1], ln.OpPos[1], as.syms, here)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, &UnknownIdentifierError{Position: ln.OpPos[1], Name: ln.Operands[1]}
	}

	out := make([]byte, 16)
	enc.WriteTetra(out[0:4], mmix.Encode(mmix.OpSetH, x, byte(v>>56), byte(v>>48)))
	enc.WriteTetra(out[4:8], mmix.Encode(mmix.OpIncMH, x, byte(v>>40), byte(v>>32)))
	enc.WriteTetra(out[8:12], mmix.Encode(mmix.OpIncML, x, byte(v>>24), byte(v>>16)))
	enc.WriteTetra(out[12:16], mmix.Encode(mmix.OpIncL, x, byte(v>>8), byte(v)))
	return out, nil
}

func builtinSpecialReg(name string) (uint8, bool) {
	idx, ok := specialRegNames[name]
	return idx, ok
}
