package insts

import "encoding/binary"

// Word is one 32-bit instruction word. Words are values; decoding never
// mutates them.
type Word uint32

// ReadWord reads the little-endian instruction word at code[off:].
func ReadWord(code []byte, off int) Word {
	return Word(binary.LittleEndian.Uint32(code[off : off+InstrSize]))
}

// WriteWord stores w at code[off:]. This is the only way the codec modifies
// code; the caller must own the slot exclusively while patching.
func WriteWord(code []byte, off int, w Word) {
	binary.LittleEndian.PutUint32(code[off:off+InstrSize], uint32(w))
}

// Instruction field positions and widths. Based on the ARM instruction set
// summary.
const (
	sShift  = 29
	sBits   = 1
	sfShift = 31
	sfBits  = 1
	szShift = 30
	szBits  = 2

	rdShift = 0
	rdBits  = 5
	rnShift = 5
	rnBits  = 5
	raShift = 10
	raBits  = 5
	rmShift = 16
	rmBits  = 5
	rtShift = 0
	rtBits  = 5

	imm3Shift       = 10
	imm3Bits        = 3
	imm6Shift       = 10
	imm6Bits        = 6
	imm9Shift       = 12
	imm9Bits        = 9
	imm12Shift      = 10
	imm12Bits       = 12
	imm12ShiftShift = 22
	imm12ShiftBits  = 2
	imm14Shift      = 5
	imm14Bits       = 14
	imm16Shift      = 5
	imm16Bits       = 16
	imm19Shift      = 5
	imm19Bits       = 19
	imm26Shift      = 0
	imm26Bits       = 26

	condShift = 0
	condBits  = 4

	nShift    = 22
	nBits     = 1
	immRShift = 16
	immRBits  = 6
	immSShift = 10
	immSBits  = 6

	hwShift = 21
	hwBits  = 2

	addShiftExtendShift = 21
	addShiftExtendBits  = 1
	shiftTypeShift      = 22
	shiftTypeBits       = 2
	extendTypeShift     = 13
	extendTypeBits      = 3

	hintCRmShift = 8
	hintCRmBits  = 4
	hintOp2Shift = 5
	hintOp2Bits  = 3

	immLoShift = 29
	immLoBits  = 2

	testBitLoShift = 19
	testBitLoBits  = 5
	testBitHiShift = 31
)

// Cond is a 4-bit condition code.
type Cond int

// Condition codes (A3.2).
const (
	NoCondition Cond = -1

	EQ Cond = 0  // equal
	NE Cond = 1  // not equal
	CS Cond = 2  // carry set/unsigned higher or same
	CC Cond = 3  // carry clear/unsigned lower
	MI Cond = 4  // minus/negative
	PL Cond = 5  // plus/positive or zero
	VS Cond = 6  // overflow
	VC Cond = 7  // no overflow
	HI Cond = 8  // unsigned higher
	LS Cond = 9  // unsigned lower or same
	GE Cond = 10 // signed greater than or equal
	LT Cond = 11 // signed less than
	GT Cond = 12 // signed greater than
	LE Cond = 13 // signed less than or equal
	AL Cond = 14 // always
	NV Cond = 15 // behaves as always

	MaxCondition Cond = 16

	HS = CS
	LO = CC
)

// Invert returns the opposite condition. AL and NV have no opposite and are
// returned as is.
func (c Cond) Invert() Cond {
	if c < EQ || c >= AL {
		return c
	}
	return c ^ 1
}

// ShiftType selects the shift applied to a shifted-register operand.
type ShiftType int

// Shift types.
const (
	NoShift ShiftType = -1
	LSL     ShiftType = 0 // logical shift left
	LSR     ShiftType = 1 // logical shift right
	ASR     ShiftType = 2 // arithmetic shift right
	ROR     ShiftType = 3 // rotate right

	MaxShift ShiftType = 4
)

// Extend selects the extension applied to an extended-register operand.
type Extend int

// Extend types.
const (
	NoExtend Extend = -1
	UXTB     Extend = 0
	UXTH     Extend = 1
	UXTW     Extend = 2
	UXTX     Extend = 3
	SXTB     Extend = 4
	SXTH     Extend = 5
	SXTW     Extend = 6
	SXTX     Extend = 7

	MaxExtend Extend = 8
)

// R31Type tells what register index 31 means in a given field.
type R31Type int

// Roles of register 31.
const (
	R31IsSP R31Type = iota
	R31IsZR
	R31IsUndef
)

// OperandSize is the access size of a memory operand.
type OperandSize int

// Operand sizes.
const (
	Byte OperandSize = iota
	UnsignedByte
	Halfword
	UnsignedHalfword
	Word32
	UnsignedWord
	DoubleWord
	SWord
	DWord
)

// Log2OperandSizeBytes returns log2 of the size of os in bytes.
func Log2OperandSizeBytes(os OperandSize) int {
	switch os {
	case Byte, UnsignedByte:
		return 0
	case Halfword, UnsignedHalfword:
		return 1
	case Word32, UnsignedWord, SWord:
		return 2
	case DoubleWord, DWord:
		return 3
	default:
		panic("insts: unreachable operand size")
	}
}

// Bit returns bit n of w.
func (w Word) Bit(n int) uint32 { return Bit(uint32(w), n) }

// Bits returns the count-wide field of w at shift.
func (w Word) Bits(shift, count int) uint32 { return Bits(uint32(w), shift, count) }

func (w Word) NField() uint32  { return w.Bit(nShift) }
func (w Word) SField() uint32  { return w.Bit(sShift) }
func (w Word) SFField() uint32 { return w.Bit(sfShift) }
func (w Word) SzField() uint32 { return w.Bits(szShift, szBits) }

// HasS reports whether the flag-setting bit is set.
func (w Word) HasS() bool { return w.SField() == 1 }

// Is64Bit reports whether the sf bit selects 64-bit operation.
func (w Word) Is64Bit() bool { return w.SFField() == 1 }

// Raw register fields. Use Rd, Rn and friends for resolved registers.
func (w Word) RdField() uint32 { return w.Bits(rdShift, rdBits) }
func (w Word) RnField() uint32 { return w.Bits(rnShift, rnBits) }
func (w Word) RaField() uint32 { return w.Bits(raShift, raBits) }
func (w Word) RmField() uint32 { return w.Bits(rmShift, rmBits) }
func (w Word) RtField() uint32 { return w.Bits(rtShift, rtBits) }

// Immediates.
func (w Word) Imm3Field() uint32       { return w.Bits(imm3Shift, imm3Bits) }
func (w Word) Imm6Field() uint32       { return w.Bits(imm6Shift, imm6Bits) }
func (w Word) Imm9Field() uint32       { return w.Bits(imm9Shift, imm9Bits) }
func (w Word) Imm12Field() uint32      { return w.Bits(imm12Shift, imm12Bits) }
func (w Word) Imm12ShiftField() uint32 { return w.Bits(imm12ShiftShift, imm12ShiftBits) }
func (w Word) Imm14Field() uint32      { return w.Bits(imm14Shift, imm14Bits) }
func (w Word) Imm16Field() uint32      { return w.Bits(imm16Shift, imm16Bits) }
func (w Word) Imm19Field() uint32      { return w.Bits(imm19Shift, imm19Bits) }
func (w Word) Imm26Field() uint32      { return w.Bits(imm26Shift, imm26Bits) }
func (w Word) HWField() uint32         { return w.Bits(hwShift, hwBits) }
func (w Word) ImmRField() uint32       { return w.Bits(immRShift, immRBits) }
func (w Word) ImmSField() uint32       { return w.Bits(immSShift, immSBits) }
func (w Word) ImmLoField() uint32      { return w.Bits(immLoShift, immLoBits) }
func (w Word) HintCRmField() uint32    { return w.Bits(hintCRmShift, hintCRmBits) }
func (w Word) HintOp2Field() uint32    { return w.Bits(hintOp2Shift, hintOp2Bits) }

// Sign-extended immediates.
func (w Word) SImm9Field() int64  { return int64(SignedBits(uint32(w), imm9Shift, imm9Bits)) }
func (w Word) SImm14Field() int64 { return int64(SignedBits(uint32(w), imm14Shift, imm14Bits)) }
func (w Word) SImm19Field() int64 { return int64(SignedBits(uint32(w), imm19Shift, imm19Bits)) }
func (w Word) SImm26Field() int64 { return int64(SignedBits(uint32(w), imm26Shift, imm26Bits)) }

// TestBitField returns the bit number tested by TBZ/TBNZ (b5:b40).
func (w Word) TestBitField() uint32 {
	return w.Bit(testBitHiShift)<<5 | w.Bits(testBitLoShift, testBitLoBits)
}

// ConditionField returns the condition in bits 0-3.
func (w Word) ConditionField() Cond {
	return Cond(w.Bits(condShift, condBits))
}

// IsShift reports whether the second source operand is a shifted register.
// Logical (shifted register) instructions are always shift form, whatever
// bit 21 says.
func (w Word) IsShift() bool {
	return w.IsLogicalShiftOp() || w.Bit(addShiftExtendShift) == 0
}

// IsExtend reports whether the second source operand is an extended register.
func (w Word) IsExtend() bool {
	return !w.IsLogicalShiftOp() && w.Bit(addShiftExtendShift) == 1
}

func (w Word) ShiftTypeField() ShiftType {
	return ShiftType(w.Bits(shiftTypeShift, shiftTypeBits))
}

func (w Word) ExtendTypeField() Extend {
	return Extend(w.Bits(extendTypeShift, extendTypeBits))
}

func (w Word) ShiftAmountField() uint32    { return w.Imm6Field() }
func (w Word) ExtShiftAmountField() uint32 { return w.Imm3Field() }
