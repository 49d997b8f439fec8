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
	"strings"
	"testing"

	"github.com/jac18281828/checksmix/pkg/mmix"
	"github.com/jac18281828/checksmix/pkg/mmixal"
)

// assembleAndRun assembles src, loads it into a fresh Machine, and runs
// it to completion (Halted or Faulted), returning the machine and
// whatever bytes the program wrote to its output sink.
func assembleAndRun(t *testing.T, src string) (*mmix.Machine, string) {
	as := mmixal.NewAssembler()
	prog, errs := as.Assemble(strings.NewReader(src))
	if len(errs) > 0 {
		t.Fatal(errs[0])
	}

	mc := mmix.NewMachine()
	var out bytes.Buffer
	mc.Devices = &mmix.DeviceHandler{Output: &out}

	for reg, v := range prog.GRegInit {
		mc.SetReg(reg, v)
	}
	for _, seg := range prog.Segments {
		mc.Memory.LoadBytes(seg.Addr, seg.Data)
	}
	mc.State.PC = prog.Entry

	steps := 0
	for mc.Step() {
		steps++
		if steps > 100000 {
			t.Fatal("program did not halt")
		}
	}

	return mc, out.String()
}

func TestHelloWorld(t *testing.T) {
	src := ` LOC Data
Greeting BYTE "Hello world!",10,0
 LOC Text
Main SET $255,Greeting
 TRAP 0,Fputs,StdOut
 TRAP 0,Halt,0`

	mc, out := assembleAndRun(t, src)

	if mc.State.Run != mmix.Halted {
		t.Fatalf("Run = %v, want Halted", mc.State.Run)
	}
	if mc.State.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", mc.State.ExitCode)
	}
	if out != "Hello world!\n" {
		t.Fatalf("output = %q, want %q", out, "Hello world!\n")
	}
}

func TestFibonacci20(t *testing.T) {
	src := `Main SET $1,0
 SET $2,1
 SET $3,20
Loop BZ $3,Done
 ADD $4,$1,$2
 SET $1,$2
 SET $2,$4
 SUB $3,$3,1
 JMP Loop
Done SET $0,$1
 TRAP 0,Halt,0`

	mc, _ := assembleAndRun(t, src)

	if mc.State.Run != mmix.Halted {
		t.Fatalf("Run = %v, want Halted", mc.State.Run)
	}
	if got := mc.GetReg(0); got != 6765 {
		t.Fatalf("$0 = %d, want 6765", got)
	}
}

func TestEuclideanRemainder(t *testing.T) {
	cases := []struct {
		y, want int64
	}{
		{42, 42},
		{142, 42},
		{-58, 42},
		{-194, 6},
		{0, 0},
		{100, 0},
		{-100, 0},
		{-1, 99},
	}

	for _, c := range cases {
		src := `Main SET $1,` + signedLiteral(c.y) + `
 DIV $2,$1,100
 GET $3,rR
 TRAP 0,Halt,0`

		mc, _ := assembleAndRun(t, src)
		if got := int64(mc.GetReg(3)); got != c.want {
			t.Errorf("DIV %d,100: remainder = %d, want %d", c.y, got, c.want)
		}
	}
}

// signedLiteral renders n as an MMIXAL expression EvalExpr accepts: a
// bare decimal literal for non-negative n, or a leading unary '-' for
// negative n (EvalExpr has no signed-decimal literal form of its own).
func signedLiteral(n int64) string {
	if n < 0 {
		return "-" + itoa(-n)
	}
	return itoa(n)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
