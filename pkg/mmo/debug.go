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

package mmo

import (
	"encoding/gob"
	"io"

	"github.com/jac18281828/checksmix/pkg/mmixal"
)

// DebugTable is the optional side file mmixas writes next to a .mmo
// image: source label name keyed by the address it resolved to, for
// tools that want to print symbolic addresses without re-assembling.
type DebugTable struct {
	Source string
	Labels map[uint64]string
}

// WriteDebug gob-encodes a DebugTable built from prog's resolved
// symbol table.
func WriteDebug(w io.Writer, source string, prog *mmixal.Program) error {
	dt := DebugTable{Source: source, Labels: map[uint64]string{}}
	if prog.Symbols != nil {
		for addr, name := range prog.Symbols.Labels {
			dt.Labels[addr] = name
		}
	}
	return gob.NewEncoder(w).Encode(dt)
}

// ReadDebug decodes a DebugTable written by WriteDebug.
func ReadDebug(r io.Reader) (*DebugTable, error) {
	var dt DebugTable
	if err := gob.NewDecoder(r).Decode(&dt); err != nil {
		return nil, err
	}
	return &dt, nil
}
