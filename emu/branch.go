package emu

import "github.com/sarchlab/a64/insts"

// BranchUnit implements ARM64 branch operations.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// B performs an unconditional branch (PC-relative).
// The offset is in bytes and is added to the current PC.
func (b *BranchUnit) B(offset int64) {
	b.regFile.PC = uint64(int64(b.regFile.PC) + offset)
}

// BL saves the return address (PC + 4) to the link register, then branches
// to PC + offset.
func (b *BranchUnit) BL(offset int64) {
	b.regFile.WriteReg(insts.LR, b.regFile.PC+4)
	b.B(offset)
}

// BR performs a branch to the address in the specified register.
func (b *BranchUnit) BR(rn insts.Register) {
	b.regFile.PC = b.regFile.ReadReg(rn)
}

// BLR saves the return address to the link register, then branches to the
// address in rn.
func (b *BranchUnit) BLR(rn insts.Register) {
	// Read the target first in case rn is LR.
	target := b.regFile.ReadReg(rn)
	b.regFile.WriteReg(insts.LR, b.regFile.PC+4)
	b.regFile.PC = target
}

// RET returns from a subroutine by branching to the address in rn.
func (b *BranchUnit) RET(rn insts.Register) {
	b.regFile.PC = b.regFile.ReadReg(rn)
}

// BCond branches to PC + offset if cond holds. PC is left unchanged
// otherwise. It reports whether the branch was taken.
func (b *BranchUnit) BCond(offset int64, cond insts.Cond) bool {
	return b.branchIf(b.CheckCondition(cond), offset)
}

// CBZ branches if rt is zero at the given width, or non-zero when nonZero
// is true.
func (b *BranchUnit) CBZ(rt insts.Register, is64 bool, offset int64, nonZero bool) bool {
	value := b.regFile.ReadReg(rt)
	if !is64 {
		value = uint64(uint32(value))
	}
	return b.branchIf((value == 0) != nonZero, offset)
}

// TBZ branches if bit of rt is zero, or set when nonZero is true.
func (b *BranchUnit) TBZ(rt insts.Register, bit uint8, offset int64, nonZero bool) bool {
	set := b.regFile.ReadReg(rt)>>bit&1 == 1
	return b.branchIf(set == nonZero, offset)
}

func (b *BranchUnit) branchIf(taken bool, offset int64) bool {
	if taken {
		b.B(offset)
	}
	return taken
}

// CheckCondition evaluates an ARM64 condition code against the current PSTATE flags.
func (b *BranchUnit) CheckCondition(cond insts.Cond) bool {
	pstate := &b.regFile.PSTATE

	switch cond {
	case insts.EQ:
		return pstate.Z
	case insts.NE:
		return !pstate.Z
	case insts.CS:
		return pstate.C
	case insts.CC:
		return !pstate.C
	case insts.MI:
		return pstate.N
	case insts.PL:
		return !pstate.N
	case insts.VS:
		return pstate.V
	case insts.VC:
		return !pstate.V
	case insts.HI:
		return pstate.C && !pstate.Z
	case insts.LS:
		return !pstate.C || pstate.Z
	case insts.GE:
		return pstate.N == pstate.V
	case insts.LT:
		return pstate.N != pstate.V
	case insts.GT:
		return !pstate.Z && (pstate.N == pstate.V)
	case insts.LE:
		return pstate.Z || (pstate.N != pstate.V)
	case insts.AL, insts.NV:
		return true
	default:
		return false
	}
}
