// Package emu provides functional ARM64 emulation of the integer
// instructions the insts decoder recognizes.
package emu

import "github.com/sarchlab/a64/insts"

// RegFile represents the ARM64 register file.
// It contains 31 general-purpose registers (X0-X30),
// the stack pointer (SP), and the program counter (PC).
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	X [31]uint64

	// SP is the stack pointer.
	SP uint64

	// PC is the program counter.
	PC uint64

	// PSTATE holds the processor state flags.
	PSTATE PSTATE
}

// PSTATE represents the processor state flags.
type PSTATE struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

// ReadReg reads a register value. SP reads the stack pointer; ZR, and any
// register outside the file, reads as 0.
func (r *RegFile) ReadReg(reg insts.Register) uint64 {
	switch {
	case reg == insts.SP:
		return r.SP
	case reg >= insts.R0 && reg < insts.R31:
		return r.X[reg]
	}
	return 0
}

// WriteReg writes a register value. Writes to ZR are ignored.
func (r *RegFile) WriteReg(reg insts.Register, value uint64) {
	switch {
	case reg == insts.SP:
		r.SP = value
	case reg >= insts.R0 && reg < insts.R31:
		r.X[reg] = value
	}
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg insts.Register) uint32 {
	return uint32(r.ReadReg(reg))
}

// WriteReg32 writes to the lower 32 bits and zero-extends.
func (r *RegFile) WriteReg32(reg insts.Register, value uint32) {
	r.WriteReg(reg, uint64(value))
}

// write stores a result, truncated to 32 bits unless is64.
func (r *RegFile) write(reg insts.Register, value uint64, is64 bool) {
	if !is64 {
		value = uint64(uint32(value))
	}
	r.WriteReg(reg, value)
}
