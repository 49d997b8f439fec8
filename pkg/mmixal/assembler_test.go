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

package mmixal_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jac18281828/checksmix/pkg/mmix"
	"github.com/jac18281828/checksmix/pkg/mmixal"
)

type testCase struct {
	Name   string
	Input  string
	Output map[uint64]uint32
	Entry  uint64
}

type failCase struct {
	Name  string
	Input string
	Error error
}

func assemble(t *testing.T, input string) *mmixal.Program {
	as := mmixal.NewAssembler()
	prog, errs := as.Assemble(strings.NewReader(input))
	if len(errs) > 0 {
		t.Fatal(errs[0])
	}
	return prog
}

func flatten(prog *mmixal.Program) map[uint64]uint32 {
	out := make(map[uint64]uint32)
	for _, seg := range prog.Segments {
		for i := 0; i+4 <= len(seg.Data); i += 4 {
			addr := seg.Addr + uint64(i)
			tetra := uint32(seg.Data[i])<<24 | uint32(seg.Data[i+1])<<16 |
				uint32(seg.Data[i+2])<<8 | uint32(seg.Data[i+3])
			out[addr] = tetra
		}
	}
	return out
}

func testAssemblerSuccess(t *testing.T, test *testCase) {
	prog := assemble(t, test.Input)
	have := flatten(prog)

	for addr, want := range test.Output {
		got, ok := have[addr]
		if !ok {
			t.Fatalf("missing tetra at %#x\nwant:%#08x", addr, want)
		}
		if got != want {
			t.Fatalf("tetra mismatch at %#x\nwant:%#08x\nhave:%#08x", addr, want, got)
		}
	}
	for addr := range have {
		if _, ok := test.Output[addr]; !ok {
			t.Fatalf("unexpected tetra at %#x: %#08x", addr, have[addr])
		}
	}

	if test.Entry != 0 && prog.Entry != test.Entry {
		t.Fatalf("Entry = %#x, want %#x", prog.Entry, test.Entry)
	}
}

func testAssemblerFail(t *testing.T, test *failCase) {
	as := mmixal.NewAssembler()
	_, errs := as.Assemble(strings.NewReader(test.Input))

	if len(errs) == 0 {
		t.Fatalf("%s: want error %T, have none", t.Name(), test.Error)
	}
	if reflect.TypeOf(errs[0]) != reflect.TypeOf(test.Error) {
		t.Fatalf("%s: want error %T, have %T (%v)", t.Name(), test.Error, errs[0], errs[0])
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerSuccess(t, &test)
			})
		}
	})
}

func testFail(t *testing.T, tests []failCase) {
	t.Run("Fail", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerFail(t, &test)
			})
		}
	})
}

func TestArithmeticTriple(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "ADD registers",
			Input: " ADD $1,$2,$3",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpAdd, 1, 2, 3),
			},
		},
		{
			Name:  "ADD immediate",
			Input: " ADD $1,$2,42",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpAddI, 1, 2, 42),
			},
		},
		{
			Name:  "SUBU hex immediate",
			Input: " SUBU $1,$2,#2A",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpSubUI, 1, 2, 0x2A),
			},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "ADD bad register",
			Input: " ADD $1,$2,$300",
			Error: &mmixal.InvalidRegisterError{},
		},
		{
			Name:  "ADD oversized immediate",
			Input: " ADD $1,$2,1000",
			Error: &mmixal.OversizedLiteralError{},
		},
		{
			Name:  "ADD bad argc",
			Input: " ADD $1,$2",
			Error: &mmixal.InvalidNumArgumentsError{},
		},
		{
			Name:  "ADD unknown mnemonic sibling",
			Input: " FROB $1,$2,$3",
			Error: &mmixal.UnknownMnemonicError{},
		},
	})
}

func TestConditionalSet(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "CSZ register form",
			Input: " CSZ $1,$2,$3",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpCSZ, 1, 2, 3),
			},
		},
		{
			Name:  "ZSN immediate form",
			Input: " ZSN $1,$2,5",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpZSNI, 1, 2, 5),
			},
		},
	})
}

func TestLoadStoreAndCSWAP(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "STO then LDO",
			Input: " STO $1,$2,0\n LDO $3,$2,0",
			Output: map[uint64]uint32{
				mmix.TextSegment:     mmix.Encode(mmix.OpStOI, 1, 2, 0),
				mmix.TextSegment + 4: mmix.Encode(mmix.OpLdOI, 3, 2, 0),
			},
		},
		{
			Name:  "LDA shares ADDU's encoding",
			Input: " LDA $1,$2,8",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpAddUI, 1, 2, 8),
			},
		},
		{
			Name:  "CSWAP register form",
			Input: " CSWAP $1,$2,$3",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpCSwap, 1, 2, 3),
			},
		},
	})
}

func TestSetPseudoOp(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "SET register form is a single OR",
			Input: " SET $1,$2",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpOr, 1, 2, 0),
			},
		},
		{
			Name:  "SET constant form expands to SETH/INCMH/INCML/INCL",
			Input: " SET $1,#123456789ABCDEF0",
			Output: map[uint64]uint32{
				mmix.TextSegment:      mmix.Encode(mmix.OpSetH, 1, 0x12, 0x34),
				mmix.TextSegment + 4:  mmix.Encode(mmix.OpIncMH, 1, 0x56, 0x78),
				mmix.TextSegment + 8:  mmix.Encode(mmix.OpIncML, 1, 0x9A, 0xBC),
				mmix.TextSegment + 12: mmix.Encode(mmix.OpIncL, 1, 0xDE, 0xF0),
			},
		},
	})
}

func TestBranchBackwardOpcodeSelection(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "backward branch picks the -B opcode",
			Input: "HERE ADD $0,$0,0\n" +
				" BZ $1,HERE",
			Output: map[uint64]uint32{
				mmix.TextSegment:     mmix.Encode(mmix.OpAddI, 0, 0, 0),
				mmix.TextSegment + 4: mmix.Encode(mmix.OpBZB, 1, 0, 2),
			},
		},
		{
			Name: "forward branch keeps the plain opcode",
			Input: " BZ $1,THERE\n" +
				"THERE ADD $0,$0,0",
			Output: map[uint64]uint32{
				mmix.TextSegment:     mmix.Encode(mmix.OpBZ, 1, 0, 0),
				mmix.TextSegment + 4: mmix.Encode(mmix.OpAddI, 0, 0, 0),
			},
		},
	})
}

func TestLocAndDataDirectives(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "LOC jumps the location counter and splits segments",
			Input: " LOC Data\n" +
				"X BYTE 1,2,3\n" +
				" LOC Text\n" +
				"Main ADD $0,$0,0",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpAddI, 0, 0, 0),
			},
			Entry: mmix.TextSegment,
		},
	})
}

func TestByteStringContents(t *testing.T) {
	prog := assemble(t, `S BYTE "hi",0`)
	if len(prog.Segments) != 1 {
		t.Fatalf("Segments = %d, want 1", len(prog.Segments))
	}
	want := []byte("hi")
	got := prog.Segments[0].Data
	if len(got) < len(want) || string(got[:len(want)]) != string(want) {
		t.Fatalf("data = %v, want it to start with %q", got, want)
	}
	if got[len(want)] != 0 {
		t.Fatalf("missing terminating zero byte in %v", got)
	}
}

func TestGregAndIs(t *testing.T) {
	prog := assemble(t, "Count IS 10\n"+
		"Buf GREG #1000\n"+
		"Main ADD $1,$1,Count")

	if prog.Entry != mmix.TextSegment {
		t.Fatalf("Entry = %#x, want %#x", prog.Entry, mmix.TextSegment)
	}

	sym, ok := prog.Symbols.Symbols["Buf"]
	if !ok || sym.Kind != mmixal.SymRegister {
		t.Fatalf("Buf = %+v, want a resolved register symbol", sym)
	}
	if v := prog.GRegInit[uint8(sym.Value)]; v != 0x1000 {
		t.Fatalf("GRegInit[%d] = %#x, want 0x1000", sym.Value, v)
	}

	have := flatten(prog)
	want := mmix.Encode(mmix.OpAddI, 1, 1, 10)
	if got := have[mmix.TextSegment]; got != want {
		t.Fatalf("ADD with IS constant = %#08x, want %#08x", got, want)
	}
}

func TestTrapBuiltinConstants(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "TRAP Halt,Fputs,StdOut resolve to builtin constants",
			Input: " TRAP Halt,Fputs,StdOut",
			Output: map[uint64]uint32{
				mmix.TextSegment: mmix.Encode(mmix.OpTrap,
					byte(mmix.TrapHalt), byte(mmix.TrapFputs), byte(mmix.StdOut)),
			},
		},
	})
}

func TestUnknownLabelFails(t *testing.T) {
	testFail(t, []failCase{
		{
			Name:  "forward reference to a label that is never defined",
			Input: " BZ $1,NOWHERE",
			Error: &mmixal.UnknownIdentifierError{},
		},
	})
}
