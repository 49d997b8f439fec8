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
	"strconv"
	"strings"

	enc "github.com/jac18281828/checksmix/pkg/encoding"
)

// EvalExpr evaluates an MMIXAL operand expression: identifiers, integer
// and character literals, '@' (current location), unary '-', and chains
// of top-level '+'/'-' folded left to right — enough for label+offset
// arithmetic. resolved is false when the expression names an identifier
// not present in syms; reporting that is left to the caller.
func EvalExpr(s string, pos Cursor, syms *SymTable, here uint64) (value uint64, resolved bool, err TokenError) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, &InvalidLiteralError{Position: pos, Text: s}
	}

	if op, splitAt := findBinaryOp(s); op != 0 {
		left := s[:splitAt]
		right := s[splitAt+1:]
		lv, lok, lerr := EvalExpr(left, pos, syms, here)
		if lerr != nil {
			return 0, false, lerr
		}
		rv, rok, rerr := EvalExpr(right, pos, syms, here)
		if rerr != nil {
			return 0, false, rerr
		}
		if op == '+' {
			return lv + rv, lok && rok, nil
		}
		return lv - rv, lok && rok, nil
	}

	return evalTerm(s, pos, syms, here)
}

// findBinaryOp finds a top-level '+' or '-' in s that is not the sign
// of a leading unary term or the sign of a hex-prefix-less literal, by
// requiring at least one character before it. It returns the rightmost
// such operator so EvalExpr's recursion folds left, matching the usual
// left-to-right associativity of chained +/- (a-b-c is (a-b)-c).
func findBinaryOp(s string) (op byte, at int) {
	for i := len(s) - 1; i >= 1; i-- {
		if s[i] == '+' || s[i] == '-' {
			return s[i], i
		}
	}
	return 0, 0
}

func evalTerm(s string, pos Cursor, syms *SymTable, here uint64) (uint64, bool, TokenError) {
	switch {
	case s == "@":
		return here, true, nil
	case strings.HasPrefix(s, "-"):
		v, ok, err := evalTerm(s[1:], pos, syms, here)
		return uint64(-int64(v)), ok, err
	case strings.HasPrefix(s, "#"):
		v, err := enc.DecodeHex(s)
		if err != nil {
			return 0, false, &InvalidLiteralError{Position: pos, Text: s}
		}
		return v, true, nil
	case strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) >= 3:
		r := []rune(s[1 : len(s)-1])
		if len(r) != 1 {
			return 0, false, &InvalidLiteralError{Position: pos, Text: s}
		}
		return uint64(r[0]), true, nil
	case isDecimalDigits(s):
		if strings.HasPrefix(s, "0") && len(s) > 1 {
			v, err := strconv.ParseUint(s, 8, 64)
			if err != nil {
				return 0, false, &InvalidLiteralError{Position: pos, Text: s}
			}
			return v, true, nil
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, false, &InvalidLiteralError{Position: pos, Text: s}
		}
		return v, true, nil
	default:
		sym, ok := syms.Symbols[s]
		if !ok {
			return 0, false, nil
		}
		return sym.Value, true, nil
	}
}

func isDecimalDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseRegister parses an instruction operand naming a register: either
// "$N" with a literal register number, or "$ident" where ident was
// bound to a register-kind symbol by IS or GREG.
func ParseRegister(s string, pos Cursor, syms *SymTable) (uint8, TokenError) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "$") {
		return 0, &InvalidRegisterError{Position: pos, Text: s}
	}
	rest := s[1:]
	if isDecimalDigits(rest) {
		n, err := strconv.ParseUint(rest, 10, 16)
		if err != nil || n > 255 {
			return 0, &InvalidRegisterError{Position: pos, Text: s}
		}
		return uint8(n), nil
	}
	sym, ok := syms.Symbols[rest]
	if !ok || sym.Kind != SymRegister || sym.Value > 255 {
		return 0, &InvalidRegisterError{Position: pos, Text: s}
	}
	return uint8(sym.Value), nil
}

// IsRegisterOperand reports whether s names a register operand ("$..."),
// as opposed to an immediate/label expression — this is how the encoder
// chooses between an opcode's register form and its immediate form.
func IsRegisterOperand(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "$")
}
