package asm

import (
	"github.com/sarchlab/a64/insts"
)

// MoveImmediate loads a 64-bit constant into rd with the shortest sequence it
// knows: a single MOVZ, MOVN or ORR when one fits, otherwise MOVZ followed
// by a MOVK per remaining non-zero halfword.
func (b *Buffer) MoveImmediate(rd insts.Register, value uint64) error {
	var zeros, ones int
	for i := 0; i < 4; i++ {
		switch halfword(value, i) {
		case 0:
			zeros++
		case 0xffff:
			ones++
		}
	}

	switch {
	case zeros >= 3:
		i := firstHalfword(value, 0)
		return b.Emit(moveWide(insts.OpMOVZ, rd, halfword(value, i), i))

	case ones >= 3:
		i := firstHalfword(value, 0xffff)
		return b.Emit(moveWide(insts.OpMOVN, rd, ^halfword(value, i)&0xffff, i))
	}

	if _, _, _, ok := insts.EncodeLogicalImmediate(value, insts.XRegSizeInBits); ok && rd != insts.ZR {
		return b.Emit(&insts.Instruction{
			Op:      insts.OpORR,
			Format:  insts.FormatLogicalImm,
			Is64Bit: true,
			Rd:      rd,
			Rn:      insts.ZR,
			Imm:     value,
		})
	}

	op := insts.OpMOVZ
	for i := 0; i < 4; i++ {
		hw := halfword(value, i)
		if hw == 0 {
			continue
		}
		if err := b.Emit(moveWide(op, rd, hw, i)); err != nil {
			return err
		}
		op = insts.OpMOVK
	}
	return nil
}

func halfword(value uint64, i int) uint64 {
	return (value >> (16 * uint(i))) & 0xffff
}

// firstHalfword returns the index of the first halfword not equal to skip,
// or 0 if there is none.
func firstHalfword(value, skip uint64) int {
	for i := 0; i < 4; i++ {
		if halfword(value, i) != skip {
			return i
		}
	}
	return 0
}

func moveWide(op insts.Op, rd insts.Register, imm uint64, hw int) *insts.Instruction {
	return &insts.Instruction{
		Op:      op,
		Format:  insts.FormatMoveWide,
		Is64Bit: true,
		Rd:      rd,
		Imm:     imm,
		Shift:   uint8(16 * hw),
	}
}
