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

import "fmt"

// TokenType classifies one lexed token.
type TokenType uint

// SymbolKind classifies the value a symbol table entry holds.
type SymbolKind uint

const (
	SymAbsolute SymbolKind = iota
	SymAddress
	SymRegister
)

// Cursor records a token's line/column/byte-offset position in the
// source, for diagnostics.
type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

// Token is one lexed unit: a label, mnemonic/directive, operand, string,
// or comment marker.
type Token struct {
	Type     TokenType
	Position Cursor
	Value    string
}

const (
	TokenNone TokenType = iota
	TokenIdent
	TokenDirective
	TokenString
	TokenChar
	TokenLiteral
	TokenRegister
	TokenCurrent // the '@' location-counter token
	TokenComma
)

// Symbol is one symbol table entry: name -> (value, kind).
type Symbol struct {
	Value uint64
	Kind  SymbolKind
}

// SymTable maps identifiers to their resolved values, and separately
// tracks the source labels seen in pass 1 for optional debug-symbol
// output.
type SymTable struct {
	Source  string
	Symbols map[string]Symbol
	Labels  map[uint64]string
}

// TokenError is implemented by every diagnosable assembly error so the
// CLI can locate and underline the offending source line.
type TokenError interface {
	error
	GetPosition() Cursor
}

type UnexpectedCharacterError struct {
	Position Cursor
	Received rune
}

func (err *UnexpectedCharacterError) GetPosition() Cursor { return err.Position }
func (err *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("%d:%d: unexpected character %q", err.Position.Line, err.Position.Column, err.Received)
}

type InvalidLiteralError struct {
	Position Cursor
	Text     string
}

func (err *InvalidLiteralError) GetPosition() Cursor { return err.Position }
func (err *InvalidLiteralError) Error() string {
	return fmt.Sprintf("%d:%d: invalid numeric literal %q", err.Position.Line, err.Position.Column, err.Text)
}

type InvalidRegisterError struct {
	Position Cursor
	Text     string
}

func (err *InvalidRegisterError) GetPosition() Cursor { return err.Position }
func (err *InvalidRegisterError) Error() string {
	return fmt.Sprintf("%d:%d: invalid register %q", err.Position.Line, err.Position.Column, err.Text)
}

type InvalidOperandError struct {
	Position Cursor
	Mnemonic string
	Detail   string
}

func (err *InvalidOperandError) GetPosition() Cursor { return err.Position }
func (err *InvalidOperandError) Error() string {
	return fmt.Sprintf("%d:%d: invalid operands for %s: %s", err.Position.Line, err.Position.Column, err.Mnemonic, err.Detail)
}

type InvalidNumArgumentsError struct {
	Position Cursor
	Mnemonic string
	Required int
	Received int
}

func (err *InvalidNumArgumentsError) GetPosition() Cursor { return err.Position }
func (err *InvalidNumArgumentsError) Error() string {
	return fmt.Sprintf(
		"%d:%d: %s wants %d operands, got %d",
		err.Position.Line, err.Position.Column, err.Mnemonic, err.Required, err.Received,
	)
}

type RedeclaredLabelError struct {
	Position Cursor
	Name     string
}

func (err *RedeclaredLabelError) GetPosition() Cursor { return err.Position }
func (err *RedeclaredLabelError) Error() string {
	return fmt.Sprintf("%d:%d: redeclaration of label %q", err.Position.Line, err.Position.Column, err.Name)
}

type UnknownIdentifierError struct {
	Position Cursor
	Name     string
}

func (err *UnknownIdentifierError) GetPosition() Cursor { return err.Position }
func (err *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("%d:%d: unknown identifier %q", err.Position.Line, err.Position.Column, err.Name)
}

type UnknownMnemonicError struct {
	Position Cursor
	Name     string
}

func (err *UnknownMnemonicError) GetPosition() Cursor { return err.Position }
func (err *UnknownMnemonicError) Error() string {
	return fmt.Sprintf("%d:%d: unknown mnemonic or directive %q", err.Position.Line, err.Position.Column, err.Name)
}

type OversizedLiteralError struct {
	Position Cursor
	Value    uint64
}

func (err *OversizedLiteralError) GetPosition() Cursor { return err.Position }
func (err *OversizedLiteralError) Error() string {
	return fmt.Sprintf("%d:%d: literal 0x%x exceeds the operand's size", err.Position.Line, err.Position.Column, err.Value)
}

type InvalidStringError struct {
	Position Cursor
}

func (err *InvalidStringError) GetPosition() Cursor { return err.Position }
func (err *InvalidStringError) Error() string {
	return fmt.Sprintf("%d:%d: invalid string literal", err.Position.Line, err.Position.Column)
}
