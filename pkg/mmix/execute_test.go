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

package mmix_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/jac18281828/checksmix/pkg/mmix"
)

type testCase struct {
	Name     string
	Program  []uint32
	Steps    int
	Setup    func(mc *mmix.Machine)
	Check    func(t *testing.T, mc *mmix.Machine)
}

func run(t *testing.T, test testCase) {
	t.Run(test.Name, func(t *testing.T) {
		mc := mmix.NewMachine()
		var out bytes.Buffer
		mc.Devices = &mmix.DeviceHandler{Output: &out}

		for i, tetra := range test.Program {
			mc.Memory.WriteTetra(mmix.TextSegment+4*uint64(i), tetra)
		}
		if test.Setup != nil {
			test.Setup(mc)
		}

		steps := test.Steps
		if steps == 0 {
			steps = len(test.Program)
		}
		for i := 0; i < steps; i++ {
			if !mc.Step() {
				break
			}
		}

		test.Check(t, mc)
	})
}

func TestArithmetic(t *testing.T) {
	run(t, testCase{
		Name:    "ADD registers",
		Program: []uint32{mmix.Encode(mmix.OpAddI, 3, 1, 41)},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(1, 1)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(3); got != 42 {
				t.Errorf("$3 = %d, want 42", got)
			}
		},
	})

	run(t, testCase{
		Name:    "SUBU underflow wraps",
		Program: []uint32{mmix.Encode(mmix.OpSubUI, 1, 0, 1)},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(1); got != ^uint64(0) {
				t.Errorf("$1 = %#x, want all-ones", got)
			}
		},
	})

	run(t, testCase{
		// -2 * 2^62 == -2^63, which fits in a signed 64-bit result, so
		// MUL must not raise the overflow event.
		Name:    "MUL of a product that fits in 64 bits leaves EventV clear",
		Program: []uint32{mmix.Encode(mmix.OpMul, 3, 1, 2)},
		Setup: func(mc *mmix.Machine) {
			neg2 := int64(-2)
			mc.SetReg(1, uint64(neg2))
			mc.SetReg(2, uint64(1)<<62)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got, want := mc.GetReg(3), uint64(1)<<63; got != want {
				t.Errorf("$3 = %#x, want %#x", got, want)
			}
			if mc.GetSpecial(mmix.RA)&mmix.EventV != 0 {
				t.Errorf("rA has EventV set, want clear (product fits in 64 bits)")
			}
		},
	})

	run(t, testCase{
		// 2^62 * 2^62 == 2^124, nowhere close to fitting in 64 bits.
		Name:    "MUL sets EventV when the signed product overflows 64 bits",
		Program: []uint32{mmix.Encode(mmix.OpMul, 3, 1, 2)},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(1, uint64(1)<<62)
			mc.SetReg(2, uint64(1)<<62)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if mc.GetSpecial(mmix.RA)&mmix.EventV == 0 {
				t.Errorf("rA missing EventV after an overflowing signed multiply")
			}
		},
	})

	run(t, testCase{
		Name:    "DIVU by zero sets the D event and zeroes $X",
		Program: []uint32{mmix.Encode(mmix.OpDivUI, 1, 2, 0)},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(2, 99)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(1); got != 0 {
				t.Errorf("$1 = %d, want 0", got)
			}
			if mc.GetSpecial(mmix.RA)&mmix.EventD == 0 {
				t.Errorf("rA missing EventD after divide by zero")
			}
			if got := mc.GetSpecial(mmix.RR); got != 99 {
				t.Errorf("rR = %d, want dividend 99", got)
			}
		},
	})

	run(t, testCase{
		Name:    "DIV of MinInt64 by -1 sets EventV instead of wrapping silently",
		Program: []uint32{mmix.Encode(mmix.OpDiv, 1, 2, 3)},
		Setup: func(mc *mmix.Machine) {
			minInt64 := int64(math.MinInt64)
			negOne := int64(-1)
			mc.SetReg(2, uint64(minInt64))
			mc.SetReg(3, uint64(negOne))
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if mc.GetSpecial(mmix.RA)&mmix.EventV == 0 {
				t.Errorf("rA missing EventV after DIV MinInt64,-1")
			}
		},
	})
}

func TestCompareAndShift(t *testing.T) {
	run(t, testCase{
		Name:    "CMP signed",
		Program: []uint32{mmix.Encode(mmix.OpCmpI, 1, 2, 5)},
		Setup: func(mc *mmix.Machine) {
			negOne := int64(-1)
			mc.SetReg(2, uint64(negOne))
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := int64(mc.GetReg(1)); got != -1 {
				t.Errorf("$1 = %d, want -1", got)
			}
		},
	})

	run(t, testCase{
		Name:    "SL detects overflow",
		Program: []uint32{mmix.Encode(mmix.OpSlI, 1, 2, 1)},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(2, uint64(int64(1))<<63)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if mc.GetSpecial(mmix.RA)&mmix.EventV == 0 {
				t.Errorf("rA missing EventV after overflowing shift")
			}
		},
	})
}

func TestBitwiseAndLanes(t *testing.T) {
	run(t, testCase{
		Name:    "XOR immediate",
		Program: []uint32{mmix.Encode(mmix.OpXorI, 1, 2, 0xFF)},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(2, 0x0F)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(1); got != 0xF0 {
				t.Errorf("$1 = %#x, want 0xf0", got)
			}
		},
	})

	run(t, testCase{
		Name: "SETH then INCMH/INCML/INCL build a 64-bit constant",
		Program: []uint32{
			mmix.Encode(mmix.OpSetH, 1, 0x12, 0x34),
			mmix.Encode(mmix.OpIncMH, 1, 0x56, 0x78),
			mmix.Encode(mmix.OpIncML, 1, 0x9A, 0xBC),
			mmix.Encode(mmix.OpIncL, 1, 0xDE, 0xF0),
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got, want := mc.GetReg(1), uint64(0x123456789ABCDEF0); got != want {
				t.Errorf("$1 = %#x, want %#x", got, want)
			}
		},
	})
}

func TestLoadStore(t *testing.T) {
	run(t, testCase{
		Name: "STO then LDO round-trips an octa",
		Program: []uint32{
			mmix.Encode(mmix.OpStOI, 1, 2, 0),
			mmix.Encode(mmix.OpLdOI, 3, 2, 0),
		},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(1, 0xDEADBEEFCAFEF00D)
			mc.SetReg(2, mmix.DataSegment)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(3); got != 0xDEADBEEFCAFEF00D {
				t.Errorf("$3 = %#x, want 0xdeadbeefcafef00d", got)
			}
		},
	})

	run(t, testCase{
		Name:    "LDB sign-extends a negative byte",
		Program: []uint32{mmix.Encode(mmix.OpLdBI, 1, 2, 0)},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(2, mmix.DataSegment)
			mc.Memory.WriteByte(mmix.DataSegment, 0xFF)
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := int64(mc.GetReg(1)); got != -1 {
				t.Errorf("$1 = %d, want -1", got)
			}
		},
	})
}

func TestBranchesAndJumps(t *testing.T) {
	run(t, testCase{
		Name: "BZ taken skips the following instruction",
		Program: []uint32{
			mmix.Encode(mmix.OpBZ, 1, 0, 1), // branch +1 tetra (relative to the following instruction) if $1 == 0
			mmix.Encode(mmix.OpAddI, 2, 0, 1),
			mmix.Encode(mmix.OpAddI, 2, 0, 2),
		},
		Steps: 2,
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(2); got != 2 {
				t.Errorf("$2 = %d, want 2 (branch should have skipped the ADDI 1 case)", got)
			}
		},
	})

	run(t, testCase{
		Name: "JMP advances PC by the encoded word offset",
		Program: []uint32{
			mmix.Encode(mmix.OpJmp, 0, 0, 1),
			mmix.Encode(mmix.OpAddI, 1, 0, 99),
			mmix.Encode(mmix.OpAddI, 1, 0, 7),
		},
		Steps: 2,
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(1); got != 7 {
				t.Errorf("$1 = %d, want 7 (JMP should have skipped ADDI 99)", got)
			}
		},
	})
}

func TestPushJAndPop(t *testing.T) {
	run(t, testCase{
		Name: "PUSHJ/POP copies the callee's result window into the caller",
		Program: []uint32{
			mmix.Encode(mmix.OpPushJ, 4, 0, 1), // $4 is the caller's result base
			mmix.Encode(mmix.OpAddI, 9, 0, 0),  // never reached directly
			// callee at PC+8:
			mmix.Encode(mmix.OpAddI, 0, 0, 11),
			mmix.Encode(mmix.OpAddI, 1, 0, 22),
			mmix.Encode(mmix.OpAddI, 2, 0, 33),
			mmix.Encode(mmix.OpPop, 3, 0, 0),
		},
		Steps: 6,
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(4); got != 11 {
				t.Errorf("$4 = %d, want 11", got)
			}
			// ADDI $1,$0,22 and ADDI $2,$0,33 add to the callee's $0 (11).
			if got := mc.GetReg(5); got != 33 {
				t.Errorf("$5 = %d, want 33", got)
			}
			if got := mc.GetReg(6); got != 44 {
				t.Errorf("$6 = %d, want 44", got)
			}
		},
	})

	run(t, testCase{
		Name: "PUSHJ hides and POP restores the caller's registers below $X",
		Program: []uint32{
			mmix.Encode(mmix.OpPushJ, 3, 0, 1), // $3 is the window boundary
			mmix.Encode(mmix.OpAddI, 9, 0, 0),  // never reached directly
			// callee at PC+8, clobbers the registers PUSHJ hid:
			mmix.Encode(mmix.OpAddI, 0, 0, 77),
			mmix.Encode(mmix.OpAddI, 1, 0, 88),
			mmix.Encode(mmix.OpAddI, 2, 0, 99),
			mmix.Encode(mmix.OpPop, 0, 0, 0),
		},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(0, 111)
			mc.SetReg(1, 222)
			mc.SetReg(2, 333)
		},
		Steps: 5,
		Check: func(t *testing.T, mc *mmix.Machine) {
			if got := mc.GetReg(0); got != 111 {
				t.Errorf("$0 = %d, want 111 (caller's register below $X must survive the call)", got)
			}
			if got := mc.GetReg(1); got != 222 {
				t.Errorf("$1 = %d, want 222 (caller's register below $X must survive the call)", got)
			}
			if got := mc.GetReg(2); got != 333 {
				t.Errorf("$2 = %d, want 333 (caller's register below $X must survive the call)", got)
			}
		},
	})
}

func TestTrap(t *testing.T) {
	run(t, testCase{
		Name:    "TRAP Halt stops the machine and records the exit code",
		Program: []uint32{mmix.Encode(mmix.OpTrap, 0, byte(mmix.TrapHalt), 5)},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if mc.State.Run != mmix.Halted {
				t.Errorf("Run = %v, want Halted", mc.State.Run)
			}
			if mc.State.ExitCode != 5 {
				t.Errorf("ExitCode = %d, want 5", mc.State.ExitCode)
			}
		},
	})

	run(t, testCase{
		Name: "TRAP Fputs writes the NUL-terminated string at $255",
		Program: []uint32{
			mmix.Encode(mmix.OpTrap, 0, byte(mmix.TrapFputs), byte(mmix.StdOut)),
		},
		Setup: func(mc *mmix.Machine) {
			mc.SetReg(255, mmix.DataSegment)
			mc.Memory.LoadBytes(mmix.DataSegment, []byte("hi\x00"))
		},
		Check: func(t *testing.T, mc *mmix.Machine) {
			buf, ok := mc.Devices.Output.(*bytes.Buffer)
			if !ok {
				t.Fatal("expected a *bytes.Buffer output sink")
			}
			if got := buf.String(); got != "hi" {
				t.Errorf("output = %q, want %q", got, "hi")
			}
		},
	})
}

func TestUnhandledTrapServiceFaults(t *testing.T) {
	run(t, testCase{
		Name:    "an unrecognized TRAP service sets EventI and faults the machine",
		Program: []uint32{mmix.Encode(mmix.OpTrap, 0, 200, 0)},
		Check: func(t *testing.T, mc *mmix.Machine) {
			if mc.State.Run != mmix.Faulted {
				t.Errorf("Run = %v, want Faulted", mc.State.Run)
			}
			if mc.GetSpecial(mmix.RA)&mmix.EventI == 0 {
				t.Errorf("rA missing EventI after an unhandled TRAP service")
			}
		},
	})
}
