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

import "math"

// isImmediate reports whether op is the immediate-operand member of its
// (register, immediate) pair. Every family reachable through zOperand
// or addrOperand lays its pair out as consecutive bytes with the
// immediate form on the odd byte; the families that don't follow this
// rule (TRAP, branches, GETA, PUT/GET, the byte-lane family, ...) never
// call either helper.
func isImmediate(op Op) bool {
	return op%2 == 1
}

// branchFamily reports the test condition and direction for an opcode
// in the Bxx/PBxx range, and whether it belongs to that range at all.
func branchFamily(op Op) (cond Condition, backward bool, ok bool) {
	switch {
	case op >= OpBN && op <= OpBEVB:
		c, b := BranchCondition(op)
		return c, b, true
	case op >= OpPBN && op <= OpPBEVB:
		c, b := BranchCondition(op)
		return c, b, true
	}
	return 0, false, false
}

// csZsFamily reports the test condition for an opcode in the CSxx/ZSxx
// range, whether it is the immediate form, and whether it belongs to
// that range at all.
func csZsFamily(op Op) (cond Condition, immediate bool, ok bool) {
	switch {
	case op >= OpCSN && op <= OpCSEVI:
		c, i := CSZSCondition(op)
		return c, i, true
	case op >= OpZSN && op <= OpZSEVI:
		c, i := CSZSCondition(op)
		return c, i, true
	}
	return 0, false, false
}

// execBranch takes the branch when cond holds, landing relative to
// next — the tetra following the branch itself — matching the
// assembler's relativeOffset, which measures from that same point.
func (mc *Machine) execBranch(insn Instruction, next uint64, cond Condition, backward bool) {
	if !cond.Test(mc.GetReg(insn.X)) {
		return
	}
	offset := int64(insn.YZ())
	if backward {
		offset = -offset
	}
	mc.State.PC = next + uint64(4*offset)
}

func (mc *Machine) execCSZS(insn Instruction, cond Condition, immediate bool) {
	var z uint64
	if immediate {
		z = uint64(insn.Z)
	} else {
		z = mc.GetReg(insn.Z)
	}
	if cond.Test(mc.GetReg(insn.Y)) {
		mc.SetReg(insn.X, z)
		return
	}
	if insn.Op >= OpZSN {
		mc.SetReg(insn.X, 0)
	}
	// CSxx leaves $X unchanged when the condition is false.
}

func (mc *Machine) execAddSub(insn Instruction, sub, unsigned bool) {
	y := mc.GetReg(insn.Y)
	z := mc.zOperand(insn)
	if sub {
		z = -z
	}
	result := y + z
	mc.SetReg(insn.X, result)
	if unsigned {
		return
	}
	sy, sz, sr := int64(y), int64(z), int64(result)
	if (sy >= 0 && sz >= 0 && sr < 0) || (sy < 0 && sz < 0 && sr >= 0) {
		mc.setEvent(EventV)
	}
}

func (mc *Machine) execNeg(insn Instruction, signed bool) {
	y := uint64(insn.Y)
	z := mc.zOperand(insn)
	result := y - z
	mc.SetReg(insn.X, result)
	if !signed {
		return
	}
	sy, sz, sr := int64(y), int64(z), int64(result)
	if (sy >= 0 && sz < 0 && sr < 0) || (sy < 0 && sz >= 0 && sr >= 0) {
		mc.setEvent(EventV)
	}
}

func (mc *Machine) execDivSigned(insn Instruction) {
	y := int64(mc.GetReg(insn.Y))
	z := int64(mc.zOperand(insn))
	if z == 0 {
		mc.setEvent(EventD)
		mc.SetReg(insn.X, 0)
		mc.SetSpecial(RR, uint64(y))
		return
	}
	if y == math.MinInt64 && z == -1 {
		// The only signed division whose quotient doesn't fit in 64
		// bits: Go's y/z wraps back to MinInt64 rather than trapping,
		// so report it as an overflow the way ADD/SUB/MUL/NEG do.
		mc.setEvent(EventV)
		mc.SetReg(insn.X, uint64(y))
		mc.SetSpecial(RR, 0)
		return
	}
	q, r := euclideanDivMod(y, z)
	mc.SetReg(insn.X, uint64(q))
	mc.SetSpecial(RR, uint64(r))
}

// euclideanDivMod returns the quotient and remainder of y and z such
// that y == q*z + r and 0 <= r < |z|, the division MMIX's DIV defines
// rather than Go's truncating /%.
func euclideanDivMod(y, z int64) (q, r int64) {
	q, r = y/z, y%z
	if r < 0 {
		if z > 0 {
			q--
			r += z
		} else {
			q++
			r -= z
		}
	}
	return q, r
}

func (mc *Machine) execDivUnsigned(insn Instruction) {
	y := mc.GetReg(insn.Y)
	z := mc.zOperand(insn)
	if z == 0 {
		mc.setEvent(EventD)
		mc.SetReg(insn.X, 0)
		mc.SetSpecial(RR, y)
		return
	}
	mc.SetReg(insn.X, y/z)
	mc.SetSpecial(RR, y%z)
}

func (mc *Machine) execShiftLeft(insn Instruction, signed bool) {
	shift := mc.zOperand(insn) & 63
	y := mc.GetReg(insn.Y)
	result := y << shift
	mc.SetReg(insn.X, result)
	if !signed {
		return
	}
	if (result>>shift) != y {
		mc.setEvent(EventV)
	}
}

// execLaneDiff implements BDIF/WDIF/TDIF/ODIF: a saturating subtract
// performed independently within each lane of width laneBytes.
func (mc *Machine) execLaneDiff(insn Instruction, laneBytes int) {
	y := mc.GetReg(insn.Y)
	z := mc.zOperand(insn)
	laneBits := laneBytes * 8
	var result uint64
	for shift := 0; shift < 64; shift += laneBits {
		mask := uint64(1)<<laneBits - 1
		if laneBits == 64 {
			mask = ^uint64(0)
		}
		ly := (y >> shift) & mask
		lz := (z >> shift) & mask
		var diff uint64
		if ly >= lz {
			diff = ly - lz
		}
		result |= diff << shift
	}
	mc.SetReg(insn.X, result)
}

func laneShift(op, base Op) uint {
	switch op - base {
	case 0:
		return 48
	case 1:
		return 32
	case 2:
		return 16
	default:
		return 0
	}
}

func (mc *Machine) execSetLane(insn Instruction) {
	shift := laneShift(insn.Op, OpSetH)
	mask := uint64(0xFFFF) << shift
	mc.SetReg(insn.X, (uint64(insn.YZ())<<shift)&mask)
}

func (mc *Machine) execIncLane(insn Instruction) {
	shift := laneShift(insn.Op, OpIncH)
	mask := uint64(0xFFFF) << shift
	cur := (mc.GetReg(insn.X) & mask) >> shift
	lane := uint16(cur) + insn.YZ()
	mc.SetReg(insn.X, (mc.GetReg(insn.X)&^mask)|(uint64(lane)<<shift))
}

func (mc *Machine) execOrLane(insn Instruction) {
	shift := laneShift(insn.Op, OpOrH)
	mc.SetReg(insn.X, mc.GetReg(insn.X)|(uint64(insn.YZ())<<shift))
}

func (mc *Machine) execAndNLane(insn Instruction) {
	shift := laneShift(insn.Op, OpAndNH)
	mc.SetReg(insn.X, mc.GetReg(insn.X)&^(uint64(insn.YZ())<<shift))
}

func (mc *Machine) execCSwap(insn Instruction) {
	addr := mc.addrOperand(insn)
	cur := mc.Memory.ReadOcta(addr)
	pred := mc.GetSpecial(RP)
	if cur == pred {
		mc.Memory.WriteOcta(addr, mc.GetReg(insn.X))
		mc.SetReg(insn.X, 1)
		return
	}
	mc.SetSpecial(RP, cur)
	mc.SetReg(insn.X, 0)
}

// pushWindow hides the caller's $0..$(x-1) behind a fresh, zeroed frame
// for the callee, recording the hidden values on the ring so the
// matching POP can restore them. This is what makes PUSHJ/PUSHGO a real
// register window rather than the callee and caller sharing one flat
// array: the callee is free to clobber $0..$(x-1) and the caller's
// values there survive the call.
func (mc *Machine) pushWindow(x uint8, retAddr uint64) {
	saved := make([]uint64, x)
	for i := uint8(0); i < x; i++ {
		saved[i] = mc.GetReg(i)
		mc.SetReg(i, 0)
	}
	mc.State.Ring.Push(x, retAddr, saved)
}

// execPushJ implements PUSHJ/PUSHJB: the return address is next (the
// tetra after the PUSHJ itself), and the branch target is also
// relative to next, matching the assembler's relativeOffset.
func (mc *Machine) execPushJ(insn Instruction, next uint64, backward bool) {
	mc.SetSpecial(RJ, next)
	mc.pushWindow(insn.X, next)
	offset := int64(insn.YZ())
	if backward {
		offset = -offset
	}
	mc.State.PC = next + uint64(4*offset)
}

func (mc *Machine) execPushGo(insn Instruction, next uint64, immediate bool) {
	mc.SetSpecial(RJ, next)
	mc.pushWindow(insn.X, next)
	if immediate {
		mc.State.PC = mc.GetReg(insn.Y) + uint64(insn.Z)
		return
	}
	mc.State.PC = mc.GetReg(insn.Y) + mc.GetReg(insn.Z)
}

// execPop implements POP n,YZ: the callee's results, sitting in its own
// fresh $0..$(n-1), are read out before the caller's hidden $0..$(X-1)
// window is restored underneath them, then the results are written into
// the caller's window starting at the $X PUSHJ/PUSHGO was given.
// Execution resumes after the call that created this frame, offset by
// YZ tetras.
func (mc *Machine) execPop(insn Instruction) {
	callerX, retAddr, saved, ok := mc.State.Ring.Pop()
	if !ok {
		mc.State.PC = mc.GetSpecial(RJ) + 4*uint64(insn.YZ())
		return
	}
	n := int(insn.X)
	results := make([]uint64, n)
	for i := 0; i < n; i++ {
		results[i] = mc.GetReg(uint8(i))
	}
	for i, v := range saved {
		mc.SetReg(uint8(i), v)
	}
	for i, v := range results {
		mc.SetReg(callerX+uint8(i), v)
	}
	mc.State.PC = retAddr + 4*uint64(insn.YZ())
}

// execSave implements SAVE $X,0: spill the general register file to
// memory starting at $X, then leave the end-of-region address in $X.
// This round-trips the externally visible register set rather than the
// full ring of rO/rS-managed stack frames real MMIX hardware spills.
func (mc *Machine) execSave(insn Instruction) {
	base := mc.GetReg(insn.X)
	for i := 0; i < NumGeneralRegs; i++ {
		mc.Memory.WriteOcta(base+8*uint64(i), mc.GetReg(uint8(i)))
	}
	mc.SetReg(insn.X, base+8*NumGeneralRegs)
}

// execUnsave implements UNSAVE 0,$Z: reload the general register file
// from the region SAVE wrote, addressed by its end-of-region marker.
func (mc *Machine) execUnsave(insn Instruction) {
	end := mc.GetReg(insn.Z)
	base := end - 8*NumGeneralRegs
	for i := 0; i < NumGeneralRegs; i++ {
		mc.SetReg(uint8(i), mc.Memory.ReadOcta(base+8*uint64(i)))
	}
}
