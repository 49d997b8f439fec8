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

// Package mmo reads and writes the minimal MMIX object format this
// module uses in place of Knuth's lop-code encoding: a magic header,
// a segment count, one (address, length, bytes) record per contiguous
// segment, the entry-point octa, and a trailer of GREG register/value
// pairs.
package mmo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/jac18281828/checksmix/pkg/mmixal"
)

// Magic identifies a checksmix object file. It deliberately does not
// match Knuth's own ".mmo" magic number, since the record layout that
// follows it is not lop-code compatible.
var Magic = [4]byte{'M', 'M', 'O', '1'}

// Write serializes prog as a sequence of magic, segment count, segment
// records, the entry octa, and a GREG trailer recording every register
// in prog.GRegInit with its initial value, so a round trip through this format
// doesn't silently drop GREG-initialized registers.
func Write(w io.Writer, prog *mmixal.Program) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(len(prog.Segments))); err != nil {
		return err
	}
	for _, seg := range prog.Segments {
		if err := binary.Write(bw, binary.BigEndian, seg.Addr); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.BigEndian, uint32(len(seg.Data))); err != nil {
			return err
		}
		if _, err := bw.Write(seg.Data); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.BigEndian, prog.Entry); err != nil {
		return err
	}

	gregs := make([]uint8, 0, len(prog.GRegInit))
	for reg := range prog.GRegInit {
		gregs = append(gregs, reg)
	}
	sort.Slice(gregs, func(i, j int) bool { return gregs[i] < gregs[j] })

	if err := binary.Write(bw, binary.BigEndian, uint32(len(gregs))); err != nil {
		return err
	}
	for _, reg := range gregs {
		if err := binary.Write(bw, binary.BigEndian, reg); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.BigEndian, prog.GRegInit[reg]); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Read parses an object file written by Write back into a Program
// skeleton (segments, entry point and GREG initial values; the symbol table is not
// serialized, since object files carry no source).
func Read(r io.Reader) (*mmixal.Program, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("mmo: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("mmo: bad magic %q", magic)
	}

	var count uint32
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("mmo: reading segment count: %w", err)
	}

	prog := &mmixal.Program{GRegInit: map[uint8]uint64{}}
	for i := uint32(0); i < count; i++ {
		var addr uint64
		var length uint32
		if err := binary.Read(br, binary.BigEndian, &addr); err != nil {
			return nil, fmt.Errorf("mmo: segment %d address: %w", i, err)
		}
		if err := binary.Read(br, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("mmo: segment %d length: %w", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, fmt.Errorf("mmo: segment %d body: %w", i, err)
		}
		prog.Segments = append(prog.Segments, mmixal.Segment{Addr: addr, Data: data})
	}

	if err := binary.Read(br, binary.BigEndian, &prog.Entry); err != nil {
		return nil, fmt.Errorf("mmo: reading entry point: %w", err)
	}

	var gregCount uint32
	if err := binary.Read(br, binary.BigEndian, &gregCount); err != nil {
		return nil, fmt.Errorf("mmo: reading GREG count: %w", err)
	}
	for i := uint32(0); i < gregCount; i++ {
		var reg uint8
		var value uint64
		if err := binary.Read(br, binary.BigEndian, &reg); err != nil {
			return nil, fmt.Errorf("mmo: GREG entry %d register: %w", i, err)
		}
		if err := binary.Read(br, binary.BigEndian, &value); err != nil {
			return nil, fmt.Errorf("mmo: GREG entry %d value: %w", i, err)
		}
		prog.GRegInit[reg] = value
	}

	return prog, nil
}
