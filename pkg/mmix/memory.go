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

import "github.com/jac18281828/checksmix/pkg/encoding"

// pageBits and pageSize pick a 4 KiB page, a convenient unit for a
// sparse lazily-allocated address space.
const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// Memory is a sparse, byte-addressed, big-endian 64-bit address space
// backed by a page map. Reads of unmapped pages return zero; writes
// allocate a page lazily, zero-filled. Every multi-byte accessor is
// derived from ReadByte/WriteByte through span/writeSpan, so the
// page-fault and endianness logic lives in one place.
type Memory struct {
	pages map[uint64][]byte
}

func (m *Memory) page(addr uint64, alloc bool) []byte {
	addr &^= 1 << 63
	if m.pages == nil {
		if !alloc {
			return nil
		}
		m.pages = make(map[uint64][]byte)
	}
	key := addr >> pageBits
	p, ok := m.pages[key]
	if !ok {
		if !alloc {
			return nil
		}
		p = make([]byte, pageSize)
		m.pages[key] = p
	}
	return p
}

// ReadByte reads one byte at addr.
func (m *Memory) ReadByte(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// WriteByte writes one byte at addr.
func (m *Memory) WriteByte(addr uint64, v byte) {
	p := m.page(addr, true)
	p[addr&pageMask] = v
}

// span returns a byte slice covering [addr, addr+n), crossing page
// boundaries by copying when necessary. alloc controls whether missing
// pages are created (for writes) or treated as zero (for reads).
func (m *Memory) span(addr uint64, n int, alloc bool) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		a := addr + uint64(i)
		p := m.page(a, alloc)
		if p != nil {
			out[i] = p[a&pageMask]
		}
	}
	return out
}

func (m *Memory) writeSpan(addr uint64, b []byte) {
	for i, v := range b {
		m.WriteByte(addr+uint64(i), v)
	}
}

// alignMask implements MMIX's implicit alignment: the address is
// masked to the natural alignment of the access width before any
// multi-byte access. Bit 63 is cleared separately, in page, since that
// applies uniformly to byte accesses too.
func alignMask(addr uint64, size uint64) uint64 {
	return addr &^ (size - 1)
}

// ReadWyde reads a big-endian 16-bit value at addr, aligned to 2 bytes.
func (m *Memory) ReadWyde(addr uint64) uint16 {
	addr = alignMask(addr, 2)
	return encoding.ReadWyde(m.span(addr, 2, false))
}

// WriteWyde writes a big-endian 16-bit value at addr, aligned to 2 bytes.
func (m *Memory) WriteWyde(addr uint64, v uint16) {
	addr = alignMask(addr, 2)
	b := make([]byte, 2)
	encoding.WriteWyde(b, v)
	m.writeSpan(addr, b)
}

// ReadTetra reads a big-endian 32-bit value at addr, aligned to 4 bytes.
func (m *Memory) ReadTetra(addr uint64) uint32 {
	addr = alignMask(addr, 4)
	return encoding.ReadTetra(m.span(addr, 4, false))
}

// WriteTetra writes a big-endian 32-bit value at addr, aligned to 4 bytes.
func (m *Memory) WriteTetra(addr uint64, v uint32) {
	addr = alignMask(addr, 4)
	b := make([]byte, 4)
	encoding.WriteTetra(b, v)
	m.writeSpan(addr, b)
}

// ReadOcta reads a big-endian 64-bit value at addr, aligned to 8 bytes.
func (m *Memory) ReadOcta(addr uint64) uint64 {
	addr = alignMask(addr, 8)
	return encoding.ReadOcta(m.span(addr, 8, false))
}

// WriteOcta writes a big-endian 64-bit value at addr, aligned to 8 bytes.
func (m *Memory) WriteOcta(addr uint64, v uint64) {
	addr = alignMask(addr, 8)
	b := make([]byte, 8)
	encoding.WriteOcta(b, v)
	m.writeSpan(addr, b)
}

// LoadBytes copies a segment of raw bytes into memory starting at addr,
// used by the object loader and the assembler's in-memory image path.
func (m *Memory) LoadBytes(addr uint64, data []byte) {
	m.writeSpan(addr, data)
}

// ReadBytes returns a copy of n bytes starting at addr; unmapped bytes
// read as zero.
func (m *Memory) ReadBytes(addr uint64, n int) []byte {
	return m.span(addr, n, false)
}
