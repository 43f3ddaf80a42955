package emu

import "github.com/sarchlab/a64/insts"

// ALU implements ARM64 arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Add performs rd = op1 + op2 at the given width.
func (a *ALU) Add(rd insts.Register, op1, op2 uint64, is64, setFlags bool) {
	if is64 {
		result := op1 + op2
		a.regFile.WriteReg(rd, result)
		if setFlags {
			a.setAddFlags64(op1, op2, result)
		}
		return
	}

	result := uint32(op1) + uint32(op2)
	a.regFile.WriteReg32(rd, result)
	if setFlags {
		a.setAddFlags32(uint32(op1), uint32(op2), result)
	}
}

// Sub performs rd = op1 - op2 at the given width.
func (a *ALU) Sub(rd insts.Register, op1, op2 uint64, is64, setFlags bool) {
	if is64 {
		result := op1 - op2
		a.regFile.WriteReg(rd, result)
		if setFlags {
			a.setSubFlags64(op1, op2, result)
		}
		return
	}

	result := uint32(op1) - uint32(op2)
	a.regFile.WriteReg32(rd, result)
	if setFlags {
		a.setSubFlags32(uint32(op1), uint32(op2), result)
	}
}

// Logic performs the bitwise operation op (AND, BIC, ORR, ORN, EOR or EON)
// on op1 and op2. Only AND and BIC can set flags.
func (a *ALU) Logic(op insts.Op, rd insts.Register, op1, op2 uint64, is64, setFlags bool) {
	var result uint64
	switch op {
	case insts.OpAND:
		result = op1 & op2
	case insts.OpBIC:
		result = op1 &^ op2
	case insts.OpORR:
		result = op1 | op2
	case insts.OpORN:
		result = op1 | ^op2
	case insts.OpEOR:
		result = op1 ^ op2
	case insts.OpEON:
		result = op1 ^ ^op2
	}

	if is64 {
		a.regFile.WriteReg(rd, result)
		if setFlags {
			a.setLogicFlags64(result)
		}
		return
	}

	a.regFile.WriteReg32(rd, uint32(result))
	if setFlags {
		a.setLogicFlags32(uint32(result))
	}
}

// setAddFlags64 sets NZCV flags for 64-bit addition.
func (a *ALU) setAddFlags64(op1, op2, result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0

	// Carry out of bit 63.
	a.regFile.PSTATE.C = result < op1

	// Signed overflow: operands agree in sign, result does not.
	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63
	a.regFile.PSTATE.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

// setAddFlags32 sets NZCV flags for 32-bit addition.
func (a *ALU) setAddFlags32(op1, op2, result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = result < op1
	op1Sign := op1 >> 31
	op2Sign := op2 >> 31
	resultSign := result >> 31
	a.regFile.PSTATE.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

// setSubFlags64 sets NZCV flags for 64-bit subtraction.
func (a *ALU) setSubFlags64(op1, op2, result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0

	// C is set when no borrow occurred.
	a.regFile.PSTATE.C = op1 >= op2

	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63
	a.regFile.PSTATE.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

// setSubFlags32 sets NZCV flags for 32-bit subtraction.
func (a *ALU) setSubFlags32(op1, op2, result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = op1 >= op2
	op1Sign := op1 >> 31
	op2Sign := op2 >> 31
	resultSign := result >> 31
	a.regFile.PSTATE.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

// setLogicFlags64 sets NZ flags for 64-bit logic operations (C and V are cleared).
func (a *ALU) setLogicFlags64(result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}

// setLogicFlags32 sets NZ flags for 32-bit logic operations (C and V are cleared).
func (a *ALU) setLogicFlags32(result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}

// applyShift64 applies a shift operation to a 64-bit value.
func applyShift64(value uint64, shiftType insts.ShiftType, amount uint8) uint64 {
	if amount == 0 {
		return value
	}
	switch shiftType {
	case insts.LSL:
		return value << amount
	case insts.LSR:
		return value >> amount
	case insts.ASR:
		return uint64(int64(value) >> amount)
	case insts.ROR:
		return (value >> amount) | (value << (64 - amount))
	default:
		return value
	}
}

// applyShift32 applies a shift operation to a 32-bit value.
func applyShift32(value uint32, shiftType insts.ShiftType, amount uint8) uint32 {
	if amount == 0 {
		return value
	}
	switch shiftType {
	case insts.LSL:
		return value << amount
	case insts.LSR:
		return value >> amount
	case insts.ASR:
		return uint32(int32(value) >> amount)
	case insts.ROR:
		return (value >> amount) | (value << (32 - amount))
	default:
		return value
	}
}

// applyExtend extends the low bits of value and shifts the result left.
func applyExtend(value uint64, ext insts.Extend, amount uint8) uint64 {
	switch ext {
	case insts.UXTB:
		value = uint64(uint8(value))
	case insts.UXTH:
		value = uint64(uint16(value))
	case insts.UXTW:
		value = uint64(uint32(value))
	case insts.SXTB:
		value = uint64(int64(int8(value)))
	case insts.SXTH:
		value = uint64(int64(int16(value)))
	case insts.SXTW:
		value = uint64(int64(int32(value)))
	}
	return value << amount
}
