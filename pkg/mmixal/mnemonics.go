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

// pair is a (register-form, immediate-form) opcode pair, for the
// mnemonic families where the third operand may be either a register
// or an 8-bit literal.
type pair struct {
	Reg mmix.Op
	Imm mmix.Op
}

// regTriple holds every "$X,$Y,$Z|Z" mnemonic: arithmetic, logic,
// bit-fiddling, and shifts, grounded on the opcode pairs in
// pkg/mmix/opcodes.go.
var regTriple = map[string]pair{
	"ADD": {mmix.OpAdd, mmix.OpAddI}, "SUB": {mmix.OpSub, mmix.OpSubI},
	"ADDU": {mmix.OpAddU, mmix.OpAddUI}, "SUBU": {mmix.OpSubU, mmix.OpSubUI},
	"MUL": {mmix.OpMul, mmix.OpMulI}, "DIV": {mmix.OpDiv, mmix.OpDivI},
	"MULU": {mmix.OpMulU, mmix.OpMulUI}, "DIVU": {mmix.OpDivU, mmix.OpDivUI},
	"2ADDU": {mmix.Op2AddU, mmix.Op2AddUI}, "4ADDU": {mmix.Op4AddU, mmix.Op4AddUI},
	"8ADDU": {mmix.Op8AddU, mmix.Op8AddUI}, "16ADDU": {mmix.Op16AddU, mmix.Op16AddUI},
	"CMP": {mmix.OpCmp, mmix.OpCmpI}, "CMPU": {mmix.OpCmpU, mmix.OpCmpUI},
	"SL": {mmix.OpSl, mmix.OpSlI}, "SLU": {mmix.OpSlU, mmix.OpSlUI},
	"SR": {mmix.OpSr, mmix.OpSrI}, "SRU": {mmix.OpSrU, mmix.OpSrUI},
	"OR": {mmix.OpOr, mmix.OpOrI}, "ORN": {mmix.OpOrN, mmix.OpOrNI},
	"NOR": {mmix.OpNor, mmix.OpNorI}, "XOR": {mmix.OpXor, mmix.OpXorI},
	"AND": {mmix.OpAnd, mmix.OpAndI}, "ANDN": {mmix.OpAndN, mmix.OpAndNI},
	"NAND": {mmix.OpNand, mmix.OpNandI}, "NXOR": {mmix.OpNXor, mmix.OpNXorI},
	"BDIF": {mmix.OpBDif, mmix.OpBDifI}, "WDIF": {mmix.OpWDif, mmix.OpWDifI},
	"TDIF": {mmix.OpTDif, mmix.OpTDifI}, "ODIF": {mmix.OpODif, mmix.OpODifI},
	"MUX": {mmix.OpMux, mmix.OpMuxI}, "SADD": {mmix.OpSAdd, mmix.OpSAddI},
	"MOR": {mmix.OpMOr, mmix.OpMOrI}, "MXOR": {mmix.OpMXor, mmix.OpMXorI},
}

// negTriple holds NEG/NEGU, whose middle operand Y is always a literal
// even in the register form of Z.
var negTriple = map[string]pair{
	"NEG": {mmix.OpNeg, mmix.OpNegI}, "NEGU": {mmix.OpNegU, mmix.OpNegUI},
}

// loadStore holds the "$X,$Y,$Z|Z" memory-access mnemonics; addrOperand
// in the executor computes the effective address as $Y plus the third
// operand the same way regTriple computes its arithmetic result.
var loadStore = map[string]pair{
	"LDB": {mmix.OpLdB, mmix.OpLdBI}, "LDBU": {mmix.OpLdBU, mmix.OpLdBUI},
	"LDW": {mmix.OpLdW, mmix.OpLdWI}, "LDWU": {mmix.OpLdWU, mmix.OpLdWUI},
	"LDT": {mmix.OpLdT, mmix.OpLdTI}, "LDTU": {mmix.OpLdTU, mmix.OpLdTUI},
	"LDO": {mmix.OpLdO, mmix.OpLdOI}, "LDOU": {mmix.OpLdOU, mmix.OpLdOUI},
	"LDSF": {mmix.OpLdSF, mmix.OpLdSFI}, "LDHT": {mmix.OpLdHT, mmix.OpLdHTI},
	"LDUNC": {mmix.OpLdUnc, mmix.OpLdUncI}, "LDVTS": {mmix.OpLdVTS, mmix.OpLdVTSI},
	"STB": {mmix.OpStB, mmix.OpStBI}, "STBU": {mmix.OpStBU, mmix.OpStBUI},
	"STW": {mmix.OpStW, mmix.OpStWI}, "STWU": {mmix.OpStWU, mmix.OpStWUI},
	"STT": {mmix.OpStT, mmix.OpStTI}, "STTU": {mmix.OpStTU, mmix.OpStTUI},
	"STO": {mmix.OpStO, mmix.OpStOI}, "STOU": {mmix.OpStOU, mmix.OpStOUI},
	"STSF": {mmix.OpStSF, mmix.OpStSFI}, "STHT": {mmix.OpStHT, mmix.OpStHTI},
	"STCO": {mmix.OpStCo, mmix.OpStCoI}, "STUNC": {mmix.OpStUnc, mmix.OpStUncI},
	"PRELD": {mmix.OpPreLd, mmix.OpPreLdI}, "PREGO": {mmix.OpPreGo, mmix.OpPreGoI},
	"PREST": {mmix.OpPreSt, mmix.OpPreStI},
	"SYNCD": {mmix.OpSyncD, mmix.OpSyncDI}, "SYNCID": {mmix.OpSyncID, mmix.OpSyncIDI},
	"GO": {mmix.OpGo, mmix.OpGoI},
	// LDA is the real MMIX pseudo-op for "load address" and shares
	// ADDU's encoding exactly — it never actually loads from memory.
	"LDA": {mmix.OpAddU, mmix.OpAddUI},
	// CSWAP shares the same "$X,$Y,$Z|Z" effective-address computation
	// as the load/store family, per execCSwap's use of addrOperand.
	"CSWAP": {mmix.OpCSwap, mmix.OpCSwapI},
}

// cszsTriple holds the conditional-set family: "$X,$Y,$Z|Z" where $Y is
// the tested register, $X the destination, and Z the conditionally
// stored value, matching execCSZS's field usage exactly.
var cszsTriple = map[string]pair{
	"CSN": {mmix.OpCSN, mmix.OpCSNI}, "CSZ": {mmix.OpCSZ, mmix.OpCSZI},
	"CSP": {mmix.OpCSP, mmix.OpCSPI}, "CSOD": {mmix.OpCSOD, mmix.OpCSODI},
	"CSNN": {mmix.OpCSNN, mmix.OpCSNNI}, "CSNZ": {mmix.OpCSNZ, mmix.OpCSNZI},
	"CSNP": {mmix.OpCSNP, mmix.OpCSNPI}, "CSEV": {mmix.OpCSEV, mmix.OpCSEVI},
	"ZSN": {mmix.OpZSN, mmix.OpZSNI}, "ZSZ": {mmix.OpZSZ, mmix.OpZSZI},
	"ZSP": {mmix.OpZSP, mmix.OpZSPI}, "ZSOD": {mmix.OpZSOD, mmix.OpZSODI},
	"ZSNN": {mmix.OpZSNN, mmix.OpZSNNI}, "ZSNZ": {mmix.OpZSNZ, mmix.OpZSNZI},
	"ZSNP": {mmix.OpZSNP, mmix.OpZSNPI}, "ZSEV": {mmix.OpZSEV, mmix.OpZSEVI},
}

// fpTriple holds the register-only "$X,$Y,$Z" floating point mnemonics;
// MMIX defines no literal-operand forms for these.
var fpTriple = map[string]mmix.Op{
	"FADD": mmix.OpFAdd, "FSUB": mmix.OpFSub, "FMUL": mmix.OpFMul, "FDIV": mmix.OpFDiv,
	"FREM": mmix.OpFRem, "FCMP": mmix.OpFCmp, "FUN": mmix.OpFUn, "FEQL": mmix.OpFEql,
	"FCMPE": mmix.OpFCmpE, "FUNE": mmix.OpFUnE, "FEQLE": mmix.OpFEqlE,
}

// fpUnary holds the "$X,$Z" square-root, rounding and conversion
// mnemonics; the Y rounding-mode field is always encoded as 0. For
// FLOT/FLOTU/SFLOT/SFLOTU a literal Z selects the immediate opcode,
// which converts the 8-bit literal itself. FSQRT/FINT/FIX/FIXU have no
// immediate opcode, so a literal Z is encoded as a register number.
var fpUnary = map[string]pair{
	"FSQRT": {mmix.OpFSqrt, mmix.OpFSqrt}, "FINT": {mmix.OpFInt, mmix.OpFInt},
	"FIX": {mmix.OpFix, mmix.OpFix}, "FIXU": {mmix.OpFixU, mmix.OpFixU},
	"FLOT": {mmix.OpFlot, mmix.OpFlotI}, "FLOTU": {mmix.OpFlotU, mmix.OpFlotUI},
	"SFLOT": {mmix.OpSFlot, mmix.OpSFlotI}, "SFLOTU": {mmix.OpSFlotU, mmix.OpSFlotUI},
}

// byteLane holds the "$X,YZ" 16-bit-immediate mnemonics.
var byteLane = map[string]mmix.Op{
	"SETH": mmix.OpSetH, "SETMH": mmix.OpSetMH, "SETML": mmix.OpSetML, "SETL": mmix.OpSetL,
	"INCH": mmix.OpIncH, "INCMH": mmix.OpIncMH, "INCML": mmix.OpIncML, "INCL": mmix.OpIncL,
	"ORH": mmix.OpOrH, "ORMH": mmix.OpOrMH, "ORML": mmix.OpOrML, "ORL": mmix.OpOrL,
	"ANDNH": mmix.OpAndNH, "ANDNMH": mmix.OpAndNMH, "ANDNML": mmix.OpAndNML, "ANDNL": mmix.OpAndNL,
}

// branchOp holds the "$X,addr" branch-family mnemonics (forward form;
// the assembler picks the backward -B opcode automatically when the
// target precedes the branch).
var branchOp = map[string]mmix.Op{
	"BN": mmix.OpBN, "BZ": mmix.OpBZ, "BP": mmix.OpBP, "BOD": mmix.OpBOD,
	"BNN": mmix.OpBNN, "BNZ": mmix.OpBNZ, "BNP": mmix.OpBNP, "BEV": mmix.OpBEV,
	"PBN": mmix.OpPBN, "PBZ": mmix.OpPBZ, "PBP": mmix.OpPBP, "PBOD": mmix.OpPBOD,
	"PBNN": mmix.OpPBNN, "PBNZ": mmix.OpPBNZ, "PBNP": mmix.OpPBNP, "PBEV": mmix.OpPBEV,
}

func backwardOp(op mmix.Op) mmix.Op { return op + 1 }
