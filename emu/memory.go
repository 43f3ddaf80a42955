package emu

import "encoding/binary"

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// Memory is a sparse little-endian byte-addressed memory. Pages are
// allocated on first write; unwritten bytes read as zero.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr uint64, alloc bool) *[pageSize]byte {
	p := m.pages[addr>>pageBits]
	if p == nil && alloc {
		p = new([pageSize]byte)
		m.pages[addr>>pageBits] = p
	}
	return p
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint64) byte {
	if p := m.page(addr, false); p != nil {
		return p[addr&pageMask]
	}
	return 0
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint64, value byte) {
	m.page(addr, true)[addr&pageMask] = value
}

// ReadBytes fills buf from addr.
func (m *Memory) ReadBytes(addr uint64, buf []byte) {
	for len(buf) > 0 {
		off := addr & pageMask
		n := pageSize - int(off)
		if n > len(buf) {
			n = len(buf)
		}
		if p := m.page(addr, false); p != nil {
			copy(buf[:n], p[off:])
		} else {
			clear(buf[:n])
		}
		buf = buf[n:]
		addr += uint64(n)
	}
}

// WriteBytes copies data to addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for len(data) > 0 {
		off := addr & pageMask
		n := copy(m.page(addr, true)[off:], data)
		data = data[n:]
		addr += uint64(n)
	}
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint64) uint16 {
	var buf [2]byte
	m.ReadBytes(addr, buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint64) uint32 {
	var buf [4]byte
	m.ReadBytes(addr, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Read64 reads a little-endian doubleword.
func (m *Memory) Read64(addr uint64) uint64 {
	var buf [8]byte
	m.ReadBytes(addr, buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Write64 writes a little-endian doubleword.
func (m *Memory) Write64(addr uint64, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// LoadProgram copies program to addr.
func (m *Memory) LoadProgram(addr uint64, program []byte) {
	m.WriteBytes(addr, program)
}

// LoadSegment copies data to addr and zero-fills up to memSize bytes.
func (m *Memory) LoadSegment(addr uint64, data []byte, memSize uint64) {
	m.WriteBytes(addr, data)
	if memSize > uint64(len(data)) {
		m.WriteBytes(addr+uint64(len(data)), make([]byte, memSize-uint64(len(data))))
	}
}
