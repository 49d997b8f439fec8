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
	"math"
	"math/bits"

	enc "github.com/jac18281828/checksmix/pkg/encoding"
)

// Step fetches, decodes and executes one instruction. It returns false
// once the machine has left the Running state, so that callers can
// drive it with a simple `for mc.Step() {}`.
func (mc *Machine) Step() bool {
	if mc.State.Run != Running {
		return false
	}

	addr := mc.State.PC
	tetra := mc.Memory.ReadTetra(addr)
	insn := Decode(tetra)
	next := addr + 4
	mc.State.PC = next

	mc.tracef("%08x: %02x %02x %02x %02x", addr, insn.Op, insn.X, insn.Y, insn.Z)

	switch insn.Op {

	// TRAP X,Y,Z — Y names the service, Z its argument, $255 its data.
	case OpTrap:
		mc.execTrap(insn)

	case OpFCmp, OpFCmpE:
		mc.SetReg(insn.X, fcmp(mc.f(insn.Y), mc.f(insn.Z)))
	case OpFUn, OpFUnE:
		y, z := mc.f(insn.Y), mc.f(insn.Z)
		mc.SetReg(insn.X, b2u(math.IsNaN(y) || math.IsNaN(z)))
	case OpFEql, OpFEqlE:
		mc.SetReg(insn.X, b2u(mc.f(insn.Y) == mc.f(insn.Z)))
	case OpFAdd:
		mc.setF(insn.X, mc.f(insn.Y)+mc.f(insn.Z))
	case OpFSub:
		mc.setF(insn.X, mc.f(insn.Y)-mc.f(insn.Z))
	case OpFMul:
		mc.setF(insn.X, mc.f(insn.Y)*mc.f(insn.Z))
	case OpFDiv:
		mc.setF(insn.X, mc.f(insn.Y)/mc.f(insn.Z))
	case OpFRem:
		mc.setF(insn.X, math.Mod(mc.f(insn.Y), mc.f(insn.Z)))
	case OpFSqrt:
		mc.setF(insn.X, math.Sqrt(mc.f(insn.Z)))
	case OpFInt:
		mc.setF(insn.X, math.RoundToEven(mc.f(insn.Z)))
	case OpFix:
		mc.SetReg(insn.X, uint64(int64(math.RoundToEven(mc.f(insn.Z)))))
	case OpFixU:
		mc.SetReg(insn.X, uint64(math.RoundToEven(mc.f(insn.Z))))
	case OpFlot, OpFlotI:
		mc.setF(insn.X, float64(int64(mc.zOperand(insn))))
	case OpFlotU, OpFlotUI:
		mc.setF(insn.X, float64(mc.zOperand(insn)))
	case OpSFlot, OpSFlotI:
		mc.setF(insn.X, float64(float32(int64(mc.zOperand(insn)))))
	case OpSFlotU, OpSFlotUI:
		mc.setF(insn.X, float64(float32(mc.zOperand(insn))))

	case OpMul, OpMulI:
		y := int64(mc.GetReg(insn.Y))
		z := int64(mc.zOperand(insn))
		hi, lo := mulSigned128(y, z)
		mc.SetReg(insn.X, lo)
		if hi != uint64(int64(lo)>>63) {
			mc.setEvent(EventV)
		}
	case OpMulU, OpMulUI:
		hi, lo := bits.Mul64(mc.GetReg(insn.Y), mc.zOperand(insn))
		mc.SetReg(insn.X, lo)
		mc.SetSpecial(RH, hi)
	case OpDiv, OpDivI:
		mc.execDivSigned(insn)
	case OpDivU, OpDivUI:
		mc.execDivUnsigned(insn)

	case OpAdd, OpAddI:
		mc.execAddSub(insn, false, false)
	case OpSub, OpSubI:
		mc.execAddSub(insn, true, false)
	case OpAddU, OpAddUI:
		mc.execAddSub(insn, false, true)
	case OpSubU, OpSubUI:
		mc.execAddSub(insn, true, true)
	case Op2AddU, Op2AddUI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)<<1+mc.zOperand(insn))
	case Op4AddU, Op4AddUI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)<<2+mc.zOperand(insn))
	case Op8AddU, Op8AddUI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)<<3+mc.zOperand(insn))
	case Op16AddU, Op16AddUI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)<<4+mc.zOperand(insn))

	case OpCmp, OpCmpI:
		mc.SetReg(insn.X, scmp(int64(mc.GetReg(insn.Y)), int64(mc.zOperand(insn))))
	case OpCmpU, OpCmpUI:
		mc.SetReg(insn.X, ucmp(mc.GetReg(insn.Y), mc.zOperand(insn)))
	case OpNeg, OpNegI:
		mc.execNeg(insn, true)
	case OpNegU, OpNegUI:
		mc.execNeg(insn, false)

	case OpSl, OpSlI:
		mc.execShiftLeft(insn, true)
	case OpSlU, OpSlUI:
		mc.execShiftLeft(insn, false)
	case OpSr, OpSrI:
		shift := mc.zOperand(insn) & 63
		mc.SetReg(insn.X, uint64(int64(mc.GetReg(insn.Y))>>shift))
	case OpSrU, OpSrUI:
		shift := mc.zOperand(insn) & 63
		mc.SetReg(insn.X, mc.GetReg(insn.Y)>>shift)

	case OpOr, OpOrI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)|mc.zOperand(insn))
	case OpOrN, OpOrNI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)|^mc.zOperand(insn))
	case OpNor, OpNorI:
		mc.SetReg(insn.X, ^(mc.GetReg(insn.Y) | mc.zOperand(insn)))
	case OpXor, OpXorI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)^mc.zOperand(insn))
	case OpAnd, OpAndI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)&mc.zOperand(insn))
	case OpAndN, OpAndNI:
		mc.SetReg(insn.X, mc.GetReg(insn.Y)&^mc.zOperand(insn))
	case OpNand, OpNandI:
		mc.SetReg(insn.X, ^(mc.GetReg(insn.Y) & mc.zOperand(insn)))
	case OpNXor, OpNXorI:
		mc.SetReg(insn.X, ^(mc.GetReg(insn.Y) ^ mc.zOperand(insn)))

	case OpBDif, OpBDifI:
		mc.execLaneDiff(insn, 1)
	case OpWDif, OpWDifI:
		mc.execLaneDiff(insn, 2)
	case OpTDif, OpTDifI:
		mc.execLaneDiff(insn, 4)
	case OpODif, OpODifI:
		mc.execLaneDiff(insn, 8)
	case OpMux, OpMuxI:
		mask := mc.GetSpecial(RM)
		mc.SetReg(insn.X, (mc.GetReg(insn.Y)&mask)|(mc.zOperand(insn)&^mask))
	case OpSAdd, OpSAddI:
		mc.SetReg(insn.X, uint64(bits.OnesCount64(mc.GetReg(insn.Y)&^mc.zOperand(insn))))
	case OpMOr, OpMOrI:
		mc.SetReg(insn.X, bitMatrixCombine(mc.GetReg(insn.Y), mc.zOperand(insn), false))
	case OpMXor, OpMXorI:
		mc.SetReg(insn.X, bitMatrixCombine(mc.GetReg(insn.Y), mc.zOperand(insn), true))

	// Byte-lane family: SETxx zeroes the other lanes; INCxx/ORxx/ANDNxx
	// only affect the named lane.
	case OpSetH, OpSetMH, OpSetML, OpSetL:
		mc.execSetLane(insn)
	case OpIncH, OpIncMH, OpIncML, OpIncL:
		mc.execIncLane(insn)
	case OpOrH, OpOrMH, OpOrML, OpOrL:
		mc.execOrLane(insn)
	case OpAndNH, OpAndNMH, OpAndNML, OpAndNL:
		mc.execAndNLane(insn)

	case OpLdB, OpLdBI:
		mc.SetReg(insn.X, uint64(enc.SignExtend(uint64(mc.Memory.ReadByte(mc.addrOperand(insn))), 8)))
	case OpLdBU, OpLdBUI:
		mc.SetReg(insn.X, uint64(mc.Memory.ReadByte(mc.addrOperand(insn))))
	case OpLdW, OpLdWI:
		mc.SetReg(insn.X, uint64(enc.SignExtend(uint64(mc.Memory.ReadWyde(mc.addrOperand(insn))), 16)))
	case OpLdWU, OpLdWUI:
		mc.SetReg(insn.X, uint64(mc.Memory.ReadWyde(mc.addrOperand(insn))))
	case OpLdT, OpLdTI:
		mc.SetReg(insn.X, uint64(enc.SignExtend(uint64(mc.Memory.ReadTetra(mc.addrOperand(insn))), 32)))
	case OpLdTU, OpLdTUI:
		mc.SetReg(insn.X, uint64(mc.Memory.ReadTetra(mc.addrOperand(insn))))
	case OpLdO, OpLdOI, OpLdOU, OpLdOUI, OpLdUnc, OpLdUncI:
		mc.SetReg(insn.X, mc.Memory.ReadOcta(mc.addrOperand(insn)))
	case OpLdSF, OpLdSFI:
		bits32 := mc.Memory.ReadTetra(mc.addrOperand(insn))
		mc.setF(insn.X, float64(math.Float32frombits(bits32)))
	case OpLdHT, OpLdHTI:
		mc.SetReg(insn.X, uint64(mc.Memory.ReadTetra(mc.addrOperand(insn)))<<32)
	case OpCSwap, OpCSwapI:
		mc.execCSwap(insn)
	case OpLdVTS, OpLdVTSI:
		// cache hint: decodes successfully, no state change.

	case OpStB, OpStBI, OpStBU, OpStBUI:
		mc.Memory.WriteByte(mc.addrOperand(insn), byte(mc.GetReg(insn.X)))
	case OpStW, OpStWI, OpStWU, OpStWUI:
		mc.Memory.WriteWyde(mc.addrOperand(insn), uint16(mc.GetReg(insn.X)))
	case OpStT, OpStTI, OpStTU, OpStTUI:
		mc.Memory.WriteTetra(mc.addrOperand(insn), uint32(mc.GetReg(insn.X)))
	case OpStO, OpStOI, OpStOU, OpStOUI, OpStUnc, OpStUncI:
		mc.Memory.WriteOcta(mc.addrOperand(insn), mc.GetReg(insn.X))
	case OpStSF, OpStSFI:
		mc.Memory.WriteTetra(mc.addrOperand(insn), math.Float32bits(float32(mc.f(insn.X))))
	case OpStHT, OpStHTI:
		mc.Memory.WriteTetra(mc.addrOperand(insn), uint32(mc.GetReg(insn.X)>>32))
	case OpStCo, OpStCoI:
		mc.Memory.WriteOcta(mc.addrOperand(insn), uint64(insn.X))

	case OpPreLd, OpPreLdI, OpPreGo, OpPreGoI, OpPreSt, OpPreStI,
		OpSyncD, OpSyncDI, OpSyncID, OpSyncIDI, OpSync, OpSwym:
		// cache and sync hints: observable no-ops here.

	case OpGo:
		mc.SetReg(insn.X, next)
		mc.State.PC = mc.GetReg(insn.Y) + mc.GetReg(insn.Z)
	case OpGoI:
		mc.SetReg(insn.X, next)
		mc.State.PC = mc.GetReg(insn.Y) + uint64(insn.Z)

	case OpJmp:
		mc.State.PC = next + 4*uint64(insn.XYZ24())
	case OpJmpB:
		mc.State.PC = next - 4*uint64(insn.XYZ24())

	case OpPushJ:
		mc.execPushJ(insn, next, false)
	case OpPushJB:
		mc.execPushJ(insn, next, true)
	case OpPop:
		mc.execPop(insn)
	case OpPushGo:
		mc.execPushGo(insn, next, false)
	case OpPushGoI:
		mc.execPushGo(insn, next, true)

	case OpGetA:
		mc.SetReg(insn.X, next+4*uint64(insn.YZ()))
	case OpGetAB:
		mc.SetReg(insn.X, next-4*uint64(insn.YZ()))

	case OpPut:
		mc.SetSpecial(SpecialReg(insn.X), mc.GetReg(insn.Z))
	case OpPutI:
		mc.SetSpecial(SpecialReg(insn.X), uint64(insn.Z))
	case OpGet:
		mc.SetReg(insn.X, mc.GetSpecial(SpecialReg(insn.Z)))

	case OpSave:
		mc.execSave(insn)
	case OpUnsave:
		mc.execUnsave(insn)
	case OpResume:
		// skeletal: privileged trip handling is out of scope here.

	case OpTrip:
		mc.setEvent(EventI)
		mc.State.Run = Faulted

	default:
		if cond, backward, ok := branchFamily(insn.Op); ok {
			mc.execBranch(insn, next, cond, backward)
		} else if cond, immediate, ok := csZsFamily(insn.Op); ok {
			mc.execCSZS(insn, cond, immediate)
		} else {
			mc.setEvent(EventI)
			mc.State.Run = Faulted
		}
	}

	return mc.State.Run == Running
}

// zOperand returns the Z field's value: $Z for a register-form opcode,
// or the raw 8-bit Z byte for an immediate-form opcode. Immediate forms
// are always the odd-numbered opcode in a (reg, imm) pair.
func (mc *Machine) zOperand(insn Instruction) uint64 {
	if isImmediate(insn.Op) {
		return uint64(insn.Z)
	}
	return mc.GetReg(insn.Z)
}

// addrOperand computes the $Y + Z(orimm) effective address used by all
// load/store opcodes.
func (mc *Machine) addrOperand(insn Instruction) uint64 {
	return mc.GetReg(insn.Y) + mc.zOperand(insn)
}

func (mc *Machine) f(n uint8) float64 {
	return math.Float64frombits(mc.GetReg(n))
}

func (mc *Machine) setF(n uint8, v float64) {
	mc.SetReg(n, math.Float64bits(v))
}

func fcmp(a, b float64) uint64 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return 0
	case a < b:
		return uint64(^uint64(0))
	case a > b:
		return 1
	default:
		return 0
	}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func scmp(a, b int64) uint64 {
	switch {
	case a < b:
		return uint64(^uint64(0))
	case a > b:
		return 1
	default:
		return 0
	}
}

func ucmp(a, b uint64) uint64 {
	switch {
	case a < b:
		return uint64(^uint64(0))
	case a > b:
		return 1
	default:
		return 0
	}
}

// mulSigned128 computes the signed 128-bit product of a and b, returned
// as (high, low) 64-bit halves in two's-complement form.
func mulSigned128(a, b int64) (hi, lo uint64) {
	negA, negB := a < 0, b < 0
	ua, ub := uint64(a), uint64(b)
	if negA {
		ua = uint64(-a)
	}
	if negB {
		ub = uint64(-b)
	}
	h, l := bits.Mul64(ua, ub)
	if negA != negB {
		l = ^l + 1
		h = ^h
		if l == 0 {
			h++
		}
	}
	return h, l
}

// bitMatrixCombine implements MOR ("multiple or") / MXOR ("multiple
// xor"): y and z are each treated as 8x8 bit matrices (byte i holds row
// i), and the result's row i is the OR (or XOR) over k of
// (y's row i, bit k) AND (z's row k).
func bitMatrixCombine(y, z uint64, xor bool) uint64 {
	var out uint64
	for i := 0; i < 8; i++ {
		rowY := byte(y >> (56 - 8*i))
		var rowOut byte
		for k := 0; k < 8; k++ {
			if rowY&(1<<(7-k)) == 0 {
				continue
			}
			rowZ := byte(z >> (56 - 8*k))
			if xor {
				rowOut ^= rowZ
			} else {
				rowOut |= rowZ
			}
		}
		out |= uint64(rowOut) << (56 - 8*i)
	}
	return out
}
