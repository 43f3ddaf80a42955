package emu

import "github.com/sarchlab/a64/insts"

// LoadStoreUnit implements ARM64 load and store operations.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

func (lsu *LoadStoreUnit) read(addr uint64, size uint8) uint64 {
	switch size {
	case 0:
		return uint64(lsu.memory.Read8(addr))
	case 1:
		return uint64(lsu.memory.Read16(addr))
	case 2:
		return uint64(lsu.memory.Read32(addr))
	default:
		return lsu.memory.Read64(addr)
	}
}

// Load reads 1<<size bytes at addr into rt. Signed loads sign-extend to the
// register width; the others zero-extend.
func (lsu *LoadStoreUnit) Load(rt insts.Register, addr uint64, size uint8, signed, is64 bool) {
	value := lsu.read(addr, size)
	if signed {
		shift := 64 - 8<<size
		value = uint64(int64(value<<shift) >> shift)
	}
	lsu.regFile.write(rt, value, is64)
}

// Store writes the low 1<<size bytes of rt to addr.
func (lsu *LoadStoreUnit) Store(rt insts.Register, addr uint64, size uint8) {
	value := lsu.regFile.ReadReg(rt)
	switch size {
	case 0:
		lsu.memory.Write8(addr, uint8(value))
	case 1:
		lsu.memory.Write16(addr, uint16(value))
	case 2:
		lsu.memory.Write32(addr, uint32(value))
	default:
		lsu.memory.Write64(addr, value)
	}
}

// Address computes the effective address of a load or store and performs
// base register writeback for the pre- and post-index modes.
func (lsu *LoadStoreUnit) Address(inst *insts.Instruction) uint64 {
	base := lsu.regFile.ReadReg(inst.Rn)

	switch inst.AddrMode {
	case insts.AddrPreIndex:
		addr := base + uint64(inst.Offset)
		lsu.regFile.WriteReg(inst.Rn, addr)
		return addr
	case insts.AddrPostIndex:
		lsu.regFile.WriteReg(inst.Rn, base+uint64(inst.Offset))
		return base
	case insts.AddrRegOffset:
		return base + applyExtend(lsu.regFile.ReadReg(inst.Rm), inst.Extend, inst.ExtendAmount)
	default:
		return base + uint64(inst.Offset)
	}
}
