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

import "github.com/jac18281828/checksmix/pkg/mmix"

// encodeInstruction dispatches a (by now upper-cased) mnemonic to its
// operand shape and returns the encoded tetra for the instruction at
// address here.
func (as *Assembler) encodeInstruction(mnem string, ln Line, here uint64) (uint32, TokenError) {
	if p, ok := regTriple[mnem]; ok {
		return as.encode3(ln, here, p)
	}
	if p, ok := negTriple[mnem]; ok {
		return as.encodeNeg(ln, here, p)
	}
	if p, ok := loadStore[mnem]; ok {
		return as.encode3(ln, here, p)
	}
	if p, ok := cszsTriple[mnem]; ok {
		return as.encode3(ln, here, p)
	}
	if op, ok := fpTriple[mnem]; ok {
		return as.encodeFPTriple(ln, op)
	}
	if p, ok := fpUnary[mnem]; ok {
		return as.encodeFPUnary(ln, here, p)
	}
	if op, ok := byteLane[mnem]; ok {
		return as.encodeByteLane(ln, here, op)
	}
	if op, ok := branchOp[mnem]; ok {
		return as.encodeBranch(ln, here, op)
	}

	switch mnem {
	case "JMP", "JMPB":
		return as.encodeJmp(ln, here)
	case "PUSHJ", "PUSHJB":
		return as.encodePushJ(ln, here)
	case "PUSHGO", "PUSHGOI":
		return as.encode3(ln, here, pair{mmix.OpPushGo, mmix.OpPushGoI})
	case "GETA", "GETAB":
		return as.encodeGetA(ln, here)
	case "PUT":
		return as.encodePut(ln, here)
	case "PUTI":
		return as.encodePut(ln, here)
	case "GET":
		return as.encodeGet(ln, here)
	case "POP":
		return as.encodePop(ln, here)
	case "SAVE":
		return as.encodeSave(ln, here)
	case "UNSAVE":
		return as.encodeUnsave(ln, here)
	case "SYNC", "SWYM", "RESUME", "TRIP", "TRAP":
		return as.encodeLiteralTriple(ln, here, literalTripleOp[mnem])
	}

	return 0, &UnknownMnemonicError{Position: ln.MnPos, Name: ln.Mnemonic}
}

var literalTripleOp = map[string]mmix.Op{
	"SYNC": mmix.OpSync, "SWYM": mmix.OpSwym, "RESUME": mmix.OpResume,
	"TRIP": mmix.OpTrip, "TRAP": mmix.OpTrap,
}

// encode3 handles every "$X,$Y,$Z|Z" mnemonic (most of the ISA): X and
// Y are always registers, Z is a register or an 8-bit literal depending
// on which opcode of the pair applies.
func (as *Assembler) encode3(ln Line, here uint64, p pair) (uint32, TokenError) {
	if len(ln.Operands) != 3 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 3, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	y, err := ParseRegister(ln.Operands[1], ln.OpPos[1], as.syms)
	if err != nil {
		return 0, err
	}
	if IsRegisterOperand(ln.Operands[2]) {
		z, err := ParseRegister(ln.Operands[2], ln.OpPos[2], as.syms)
		if err != nil {
			return 0, err
		}
		return mmix.Encode(p.Reg, x, y, z), nil
	}
	v, err := as.literalByte(ln.Operands[2], ln.OpPos[2], here)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(p.Imm, x, y, v), nil
}

// encodeNeg handles NEG/NEGU, whose Y field is always an immediate
// (0-255) naming the constant subtracted from, never a register.
func (as *Assembler) encodeNeg(ln Line, here uint64, p pair) (uint32, TokenError) {
	if len(ln.Operands) != 3 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 3, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	y, err := as.literalByte(ln.Operands[1], ln.OpPos[1], here)
	if err != nil {
		return 0, err
	}
	if IsRegisterOperand(ln.Operands[2]) {
		z, err := ParseRegister(ln.Operands[2], ln.OpPos[2], as.syms)
		if err != nil {
			return 0, err
		}
		return mmix.Encode(p.Reg, x, y, z), nil
	}
	v, err := as.literalByte(ln.Operands[2], ln.OpPos[2], here)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(p.Imm, x, y, v), nil
}

func (as *Assembler) encodeFPTriple(ln Line, op mmix.Op) (uint32, TokenError) {
	if len(ln.Operands) != 3 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 3, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	y, err := ParseRegister(ln.Operands[1], ln.OpPos[1], as.syms)
	if err != nil {
		return 0, err
	}
	z, err := ParseRegister(ln.Operands[2], ln.OpPos[2], as.syms)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(op, x, y, z), nil
}

func (as *Assembler) encodeFPUnary(ln Line, here uint64, p pair) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	if IsRegisterOperand(ln.Operands[1]) {
		z, err := ParseRegister(ln.Operands[1], ln.OpPos[1], as.syms)
		if err != nil {
			return 0, err
		}
		return mmix.Encode(p.Reg, x, 0, z), nil
	}
	v, err := as.literalByte(ln.Operands[1], ln.OpPos[1], here)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(p.Imm, x, 0, v), nil
}

func (as *Assembler) encodeByteLane(ln Line, here uint64, op mmix.Op) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	yz, err := as.literalWyde(ln.Operands[1], ln.OpPos[1], here)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(op, x, byte(yz>>8), byte(yz)), nil
}

// encodeBranch encodes "$X,addr": the assembler computes the
// word-offset from the instruction following this one to the target,
// and chooses the forward or backward opcode to match its sign.
func (as *Assembler) encodeBranch(ln Line, here uint64, op mmix.Op) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	offset, backward, err := as.relativeOffset(ln.Operands[1], ln.OpPos[1], here, 16)
	if err != nil {
		return 0, err
	}
	if backward {
		op = backwardOp(op)
	}
	return mmix.Encode(op, x, byte(offset>>8), byte(offset)), nil
}

func (as *Assembler) encodePushJ(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	offset, backward, err := as.relativeOffset(ln.Operands[1], ln.OpPos[1], here, 16)
	if err != nil {
		return 0, err
	}
	op := mmix.OpPushJ
	if backward {
		op = mmix.OpPushJB
	}
	return mmix.Encode(op, x, byte(offset>>8), byte(offset)), nil
}

func (as *Assembler) encodeGetA(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	offset, backward, err := as.relativeOffset(ln.Operands[1], ln.OpPos[1], here, 16)
	if err != nil {
		return 0, err
	}
	op := mmix.OpGetA
	if backward {
		op = mmix.OpGetAB
	}
	return mmix.Encode(op, x, byte(offset>>8), byte(offset)), nil
}

func (as *Assembler) encodeJmp(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) != 1 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 1, Received: len(ln.Operands)}
	}
	offset, backward, err := as.relativeOffset(ln.Operands[0], ln.OpPos[0], here, 24)
	if err != nil {
		return 0, err
	}
	op := mmix.OpJmp
	if backward {
		op = mmix.OpJmpB
	}
	return mmix.Encode(op, byte(offset>>16), byte(offset>>8), byte(offset)), nil
}

func (as *Assembler) encodePut(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := as.specialReg(ln.Operands[0], ln.OpPos[0], here)
	if err != nil {
		return 0, err
	}
	if IsRegisterOperand(ln.Operands[1]) {
		z, err := ParseRegister(ln.Operands[1], ln.OpPos[1], as.syms)
		if err != nil {
			return 0, err
		}
		return mmix.Encode(mmix.OpPut, x, 0, z), nil
	}
	z, err := as.literalByte(ln.Operands[1], ln.OpPos[1], here)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(mmix.OpPutI, x, 0, z), nil
}

func (as *Assembler) encodeGet(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) != 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: ln.Mnemonic, Required: 2, Received: len(ln.Operands)}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	z, err := as.specialReg(ln.Operands[1], ln.OpPos[1], here)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(mmix.OpGet, x, 0, z), nil
}

func (as *Assembler) encodePop(ln Line, here uint64) (uint32, TokenError) {
	n, yz := byte(0), uint16(0)
	var err TokenError
	if len(ln.Operands) >= 1 {
		n, err = as.literalByte(ln.Operands[0], ln.OpPos[0], here)
		if err != nil {
			return 0, err
		}
	}
	if len(ln.Operands) >= 2 {
		yz, err = as.literalWyde(ln.Operands[1], ln.OpPos[1], here)
		if err != nil {
			return 0, err
		}
	}
	return mmix.Encode(mmix.OpPop, n, byte(yz>>8), byte(yz)), nil
}

func (as *Assembler) encodeSave(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) == 0 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: "SAVE", Required: 2, Received: 0}
	}
	x, err := ParseRegister(ln.Operands[0], ln.OpPos[0], as.syms)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(mmix.OpSave, x, 0, 0), nil
}

func (as *Assembler) encodeUnsave(ln Line, here uint64) (uint32, TokenError) {
	if len(ln.Operands) < 2 {
		return 0, &InvalidNumArgumentsError{Position: ln.MnPos, Mnemonic: "UNSAVE", Required: 2, Received: len(ln.Operands)}
	}
	z, err := ParseRegister(ln.Operands[1], ln.OpPos[1], as.syms)
	if err != nil {
		return 0, err
	}
	return mmix.Encode(mmix.OpUnsave, 0, 0, z), nil
}

func (as *Assembler) encodeLiteralTriple(ln Line, here uint64, op mmix.Op) (uint32, TokenError) {
	vals := [3]byte{}
	for i := 0; i < 3 && i < len(ln.Operands); i++ {
		v, err := as.literalByte(ln.Operands[i], ln.OpPos[i], here)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return mmix.Encode(op, vals[0], vals[1], vals[2]), nil
}

func (as *Assembler) specialReg(s string, pos Cursor, here uint64) (uint8, TokenError) {
	if idx, ok := builtinSpecialReg(s); ok {
		return idx, nil
	}
	return as.literalByte(s, pos, here)
}

func (as *Assembler) literalByte(s string, pos Cursor, here uint64) (uint8, TokenError) {
	v, resolved, err := EvalExpr(s, pos, as.syms, here)
	if err != nil {
		return 0, err
	}
	if !resolved {
		return 0, &UnknownIdentifierError{Position: pos, Name: s}
	}
	if v > 255 {
		return 0, &OversizedLiteralError{Position: pos, Value: v}
	}
	return uint8(v), nil
}

func (as *Assembler) literalWyde(s string, pos Cursor, here uint64) (uint16, TokenError) {
	v, resolved, err := EvalExpr(s, pos, as.syms, here)
	if err != nil {
		return 0, err
	}
	if !resolved {
		return 0, &UnknownIdentifierError{Position: pos, Name: s}
	}
	if v > 0xFFFF {
		return 0, &OversizedLiteralError{Position: pos, Value: v}
	}
	return uint16(v), nil
}

// relativeOffset evaluates an address expression and returns the
// absolute word-offset from the instruction following here to that
// address, plus whether the target lies before that following
// instruction (so the caller should pick the backward opcode). width is the field size in bits,
// used only to report an oversized offset.
func (as *Assembler) relativeOffset(s string, pos Cursor, here uint64, width int) (uint32, bool, TokenError) {
	target, resolved, err := EvalExpr(s, pos, as.syms, here)
	if err != nil {
		return 0, false, err
	}
	if !resolved {
		return 0, false, &UnknownIdentifierError{Position: pos, Name: s}
	}
	next := here + 4
	var diff int64
	backward := target < next
	if backward {
		diff = int64(next-target) / 4
	} else {
		diff = int64(target-next) / 4
	}
	limit := int64(1) << width
	if diff < 0 || diff >= limit {
		return 0, false, &OversizedLiteralError{Position: pos, Value: uint64(diff)}
	}
	return uint32(diff), backward, nil
}
