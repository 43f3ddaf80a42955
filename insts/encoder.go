package insts

import (
	"errors"
	"fmt"
)

// Encoding errors. Errors returned by Encode wrap one of these.
var (
	ErrNotEncodable  = errors.New("insts: operands not encodable")
	ErrUnsupportedOp = errors.New("insts: unsupported op")
)

// Encode builds the instruction word for inst. It is the inverse of Decode:
// Encode(Decode(w)) == w for every word Decode gives a known Op.
//
// Registers are checked against the role of their field, so SP is rejected
// where index 31 means ZR and the other way around.
func Encode(inst *Instruction) (Word, error) {
	switch inst.Op {
	case OpADD, OpSUB:
		return encodeAddSub(inst)
	case OpAND, OpBIC, OpORR, OpORN, OpEOR, OpEON:
		return encodeLogical(inst)
	case OpMOVN, OpMOVZ, OpMOVK:
		return encodeMoveWide(inst)
	case OpADR, OpADRP:
		return encodePCRel(inst)
	case OpB, OpBL:
		return encodeBranchImm(inst)
	case OpBCond:
		return encodeBranchCond(inst)
	case OpCBZ, OpCBNZ:
		return encodeCompareBranch(inst)
	case OpTBZ, OpTBNZ:
		return encodeTestBranch(inst)
	case OpBR, OpBLR, OpRET:
		return encodeBranchReg(inst)
	case OpSVC, OpBRK, OpHLT:
		return encodeException(inst)
	case OpHINT:
		if inst.Imm > 0x7f {
			return 0, notEncodable("hint #%d", inst.Imm)
		}
		return Word(HINT&^(0x7f<<hintOp2Shift) | placeField(uint32(inst.Imm), hintOp2Shift, 7)), nil
	case OpLDR, OpLDRS, OpSTR:
		return encodeLoadStore(inst)
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedOp, inst.Op)
	}
}

func notEncodable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotEncodable, fmt.Sprintf(format, args...))
}

// regField returns the 5-bit field for r in a field where index 31 means
// role. R31 is accepted in any role.
func regField(r Register, role R31Type, what string) (uint32, error) {
	switch {
	case r >= R0 && r <= R31:
		return uint32(r), nil
	case r == SP && role == R31IsSP, r == ZR && role == R31IsZR:
		return 31, nil
	default:
		return 0, notEncodable("%s cannot be %v", what, r)
	}
}

func sfBit(is64 bool) uint32 {
	if is64 {
		return B31
	}
	return 0
}

func regSize(is64 bool) int {
	if is64 {
		return XRegSizeInBits
	}
	return WRegSizeInBits
}

// signedField range checks v as a bits-wide two's complement field.
func signedField(v int64, bits int, what string) (uint32, error) {
	lim := int64(1) << uint(bits-1)
	if v < -lim || v >= lim {
		return 0, notEncodable("%s %d out of range", what, v)
	}
	return uint32(v) & fieldMask(bits), nil
}

func branchField(offset int64, bits int) (uint32, error) {
	if offset%InstrSize != 0 {
		return 0, notEncodable("branch offset %d not word aligned", offset)
	}
	return signedField(offset/InstrSize, bits, "branch offset")
}

// encodeDstSrc checks Rd and Rn against the roles of their fields.
func encodeDstSrc(inst *Instruction, rdRole, rnRole R31Type) (rd, rn uint32, err error) {
	if rd, err = regField(inst.Rd, rdRole, "Rd"); err != nil {
		return 0, 0, err
	}
	if rn, err = regField(inst.Rn, rnRole, "Rn"); err != nil {
		return 0, 0, err
	}
	return rd, rn, nil
}

func encodeAddSub(inst *Instruction) (Word, error) {
	var w uint32
	if inst.Op == OpSUB {
		w |= B30
	}
	if inst.SetFlags {
		w |= B29
	}
	w |= sfBit(inst.Is64Bit)

	spRole := R31IsSP
	if inst.SetFlags {
		spRole = R31IsZR
	}

	switch {
	case inst.Format == FormatDPImm:
		if inst.Imm > 0xfff {
			return 0, notEncodable("add/sub immediate %#x out of range", inst.Imm)
		}
		var sh uint32
		switch inst.Shift {
		case 0:
		case 12:
			sh = 1
		default:
			return 0, notEncodable("add/sub immediate shift %d", inst.Shift)
		}
		rd, rn, err := encodeDstSrc(inst, spRole, R31IsSP)
		if err != nil {
			return 0, err
		}
		w |= AddSubImmFixed |
			placeField(sh, imm12ShiftShift, imm12ShiftBits) |
			placeField(uint32(inst.Imm), imm12Shift, imm12Bits) |
			rn<<rnShift | rd<<rdShift
		return Word(w), nil

	case inst.Format == FormatDPReg && inst.Operand == OperandExtended:
		if inst.Extend < UXTB || inst.Extend > SXTX || inst.ExtendAmount > 4 {
			return 0, notEncodable("extend %v #%d", inst.Extend, inst.ExtendAmount)
		}
		rd, rn, err := encodeDstSrc(inst, spRole, R31IsSP)
		if err != nil {
			return 0, err
		}
		rm, err := regField(inst.Rm, R31IsZR, "Rm")
		if err != nil {
			return 0, err
		}
		w |= AddSubShiftExtFixed | B21 |
			rm<<rmShift |
			placeField(uint32(inst.Extend), extendTypeShift, extendTypeBits) |
			placeField(uint32(inst.ExtendAmount), imm3Shift, imm3Bits) |
			rn<<rnShift | rd<<rdShift
		return Word(w), nil

	case inst.Format == FormatDPReg:
		if inst.ShiftType == ROR {
			return 0, notEncodable("add/sub cannot rotate")
		}
		return encodeShiftedReg(inst, w|AddSubShiftExtFixed)

	default:
		return 0, notEncodable("%v has no %v form", inst.Op, inst.Format)
	}
}

// encodeShiftedReg fills in the operands shared by the add/sub and logical
// shifted register forms. All three registers read ZR for index 31.
func encodeShiftedReg(inst *Instruction, w uint32) (Word, error) {
	shift := inst.ShiftType
	if shift == NoShift {
		shift = LSL
	}
	if shift < LSL || shift > ROR {
		return 0, notEncodable("shift type %v", inst.ShiftType)
	}
	if int(inst.ShiftAmount) >= regSize(inst.Is64Bit) {
		return 0, notEncodable("shift amount %d", inst.ShiftAmount)
	}
	rd, rn, err := encodeDstSrc(inst, R31IsZR, R31IsZR)
	if err != nil {
		return 0, err
	}
	rm, err := regField(inst.Rm, R31IsZR, "Rm")
	if err != nil {
		return 0, err
	}
	w |= placeField(uint32(shift), shiftTypeShift, shiftTypeBits) |
		rm<<rmShift |
		placeField(uint32(inst.ShiftAmount), imm6Shift, imm6Bits) |
		rn<<rnShift | rd<<rdShift
	return Word(w), nil
}

func logicalOpc(op Op, setFlags bool) (opc uint32, negate bool) {
	switch op {
	case OpAND:
	case OpBIC:
		negate = true
	case OpORR:
		opc = 0b01
	case OpORN:
		opc, negate = 0b01, true
	case OpEOR:
		opc = 0b10
	case OpEON:
		opc, negate = 0b10, true
	}
	if setFlags {
		opc = 0b11
	}
	return opc, negate
}

func encodeLogical(inst *Instruction) (Word, error) {
	opc, negate := logicalOpc(inst.Op, inst.SetFlags)
	if inst.SetFlags && inst.Op != OpAND && inst.Op != OpBIC {
		return 0, notEncodable("%v cannot set flags", inst.Op)
	}
	w := sfBit(inst.Is64Bit) | placeField(opc, 29, 2)

	switch inst.Format {
	case FormatLogicalImm:
		if negate {
			return 0, notEncodable("%v has no immediate form", inst.Op)
		}
		n, imms, immr, ok := EncodeLogicalImmediate(inst.Imm, regSize(inst.Is64Bit))
		if !ok {
			return 0, notEncodable("%#x is not a logical immediate", inst.Imm)
		}
		rdRole := R31IsSP
		if inst.SetFlags {
			rdRole = R31IsZR
		}
		rd, rn, err := encodeDstSrc(inst, rdRole, R31IsZR)
		if err != nil {
			return 0, err
		}
		w |= LogicalImmFixed |
			placeField(n, nShift, nBits) |
			placeField(immr, immRShift, immRBits) |
			placeField(imms, immSShift, immSBits) |
			rn<<rnShift | rd<<rdShift
		return Word(w), nil

	case FormatDPReg:
		if negate {
			w |= B21
		}
		return encodeShiftedReg(inst, w|LogicalShiftFixed)

	default:
		return 0, notEncodable("%v has no %v form", inst.Op, inst.Format)
	}
}

func encodeMoveWide(inst *Instruction) (Word, error) {
	if inst.Imm > 0xffff {
		return 0, notEncodable("move wide immediate %#x out of range", inst.Imm)
	}
	if inst.Shift%16 != 0 || int(inst.Shift) >= regSize(inst.Is64Bit) {
		return 0, notEncodable("move wide shift %d", inst.Shift)
	}
	rd, err := regField(inst.Rd, R31IsZR, "Rd")
	if err != nil {
		return 0, err
	}

	var w uint32
	switch inst.Op {
	case OpMOVN:
		w = MOVN
	case OpMOVZ:
		w = MOVZ
	case OpMOVK:
		w = MOVK
	}
	w |= sfBit(inst.Is64Bit) |
		placeField(uint32(inst.Shift/16), hwShift, hwBits) |
		placeField(uint32(inst.Imm), imm16Shift, imm16Bits) |
		rd<<rdShift
	return Word(w), nil
}

// pcRelFields splits a 21-bit PC-relative immediate into immlo and immhi.
func pcRelFields(v int64) (uint32, error) {
	imm, err := signedField(v, imm19Bits+immLoBits, "pc-relative offset")
	if err != nil {
		return 0, err
	}
	return (imm&3)<<immLoShift | (imm>>immLoBits)<<imm19Shift, nil
}

func encodePCRel(inst *Instruction) (Word, error) {
	rd, err := regField(inst.Rd, R31IsZR, "Rd")
	if err != nil {
		return 0, err
	}
	w, off := ADR, inst.BranchOffset
	if inst.Op == OpADRP {
		if off&0xfff != 0 {
			return 0, notEncodable("adrp offset %#x not page aligned", off)
		}
		w, off = ADRP, off>>12
	}
	imm, err := pcRelFields(off)
	if err != nil {
		return 0, err
	}
	return Word(w | imm | rd<<rdShift), nil
}

func encodeBranchImm(inst *Instruction) (Word, error) {
	imm, err := branchField(inst.BranchOffset, imm26Bits)
	if err != nil {
		return 0, err
	}
	w := B
	if inst.Op == OpBL {
		w = BL
	}
	return Word(w | imm<<imm26Shift), nil
}

func encodeBranchCond(inst *Instruction) (Word, error) {
	if inst.Cond < EQ || inst.Cond >= MaxCondition {
		return 0, notEncodable("condition %v", inst.Cond)
	}
	imm, err := branchField(inst.BranchOffset, imm19Bits)
	if err != nil {
		return 0, err
	}
	return Word(BCOND | imm<<imm19Shift | uint32(inst.Cond)<<condShift), nil
}

func encodeCompareBranch(inst *Instruction) (Word, error) {
	rt, err := regField(inst.Rd, R31IsZR, "Rt")
	if err != nil {
		return 0, err
	}
	imm, err := branchField(inst.BranchOffset, imm19Bits)
	if err != nil {
		return 0, err
	}
	w := CBZ
	if inst.Op == OpCBNZ {
		w = CBNZ
	}
	return Word(w | sfBit(inst.Is64Bit) | imm<<imm19Shift | rt<<rtShift), nil
}

func encodeTestBranch(inst *Instruction) (Word, error) {
	if inst.TestBit > 63 {
		return 0, notEncodable("test bit %d", inst.TestBit)
	}
	rt, err := regField(inst.Rd, R31IsZR, "Rt")
	if err != nil {
		return 0, err
	}
	imm, err := branchField(inst.BranchOffset, imm14Bits)
	if err != nil {
		return 0, err
	}
	w := TBZ
	if inst.Op == OpTBNZ {
		w = TBNZ
	}
	bit := uint32(inst.TestBit)
	w |= (bit>>5)<<testBitHiShift | (bit&0x1f)<<testBitLoShift
	return Word(w | imm<<imm14Shift | rt<<rtShift), nil
}

func encodeBranchReg(inst *Instruction) (Word, error) {
	rn, err := regField(inst.Rn, R31IsZR, "Rn")
	if err != nil {
		return 0, err
	}
	w := BR
	switch inst.Op {
	case OpBLR:
		w = BLR
	case OpRET:
		w = RET
	}
	return Word(w | rn<<rnShift), nil
}

func encodeException(inst *Instruction) (Word, error) {
	if inst.Imm > 0xffff {
		return 0, notEncodable("exception immediate %#x out of range", inst.Imm)
	}
	w := SVC
	switch inst.Op {
	case OpBRK:
		w = BRK
	case OpHLT:
		w = HLT
	}
	return Word(w | placeField(uint32(inst.Imm), imm16Shift, imm16Bits)), nil
}

func encodeLoadStore(inst *Instruction) (Word, error) {
	if inst.Vector {
		return 0, fmt.Errorf("%w: SIMD&FP load/store", ErrUnsupportedOp)
	}
	size := uint32(inst.Size)
	if size > 3 {
		return 0, notEncodable("access size %d", inst.Size)
	}

	var opc uint32
	switch {
	case inst.Op == OpSTR:
	case inst.Op == OpLDR:
		opc = 0b01
	case inst.Is64Bit && size < 3:
		opc = 0b10
	case !inst.Is64Bit && size < 2:
		opc = 0b11
	default:
		return 0, notEncodable("sign-extending load of size %d", inst.Size)
	}

	rt, err := regField(inst.Rd, R31IsZR, "Rt")
	if err != nil {
		return 0, err
	}
	rn, err := regField(inst.Rn, R31IsSP, "Rn")
	if err != nil {
		return 0, err
	}

	w := LoadStoreRegFixed | size<<szShift | opc<<22 | rn<<rnShift | rt<<rtShift

	switch inst.AddrMode {
	case AddrUnsignedOffset:
		scale := int64(1) << size
		if inst.Offset < 0 || inst.Offset%scale != 0 || inst.Offset/scale > 0xfff {
			return 0, notEncodable("unsigned offset %d for size %d", inst.Offset, inst.Size)
		}
		w |= B24 | placeField(uint32(inst.Offset/scale), imm12Shift, imm12Bits)

	case AddrUnscaled, AddrPostIndex, AddrPreIndex:
		imm, err := signedField(inst.Offset, imm9Bits, "offset")
		if err != nil {
			return 0, err
		}
		w |= imm << imm9Shift
		switch inst.AddrMode {
		case AddrPostIndex:
			w |= B10
		case AddrPreIndex:
			w |= B11 | B10
		}

	case AddrRegOffset:
		if inst.Extend&0b010 == 0 || inst.Extend < UXTB || inst.Extend > SXTX {
			return 0, notEncodable("register offset extend %v", inst.Extend)
		}
		var s uint32
		switch uint32(inst.ExtendAmount) {
		case 0:
		case size:
			s = B12
		default:
			return 0, notEncodable("register offset shift %d for size %d", inst.ExtendAmount, inst.Size)
		}
		rm, err := regField(inst.Rm, R31IsZR, "Rm")
		if err != nil {
			return 0, err
		}
		w |= B21 | B11 | rm<<rmShift |
			placeField(uint32(inst.Extend), extendTypeShift, extendTypeBits) | s

	default:
		return 0, notEncodable("addressing mode %d", inst.AddrMode)
	}
	return Word(w), nil
}

// SetBranchOffset rewrites the offset field of an already encoded branch or
// ADR/ADRP word. It is how forward references are patched once their target
// is known.
func SetBranchOffset(w Word, offset int64) (Word, error) {
	raw := uint32(w)
	switch Classify(raw) {
	case FamilyUnconditionalBranch:
		imm, err := branchField(offset, imm26Bits)
		if err != nil {
			return w, err
		}
		return Word(raw&^(fieldMask(imm26Bits)<<imm26Shift) | imm<<imm26Shift), nil

	case FamilyConditionalBranch, FamilyCompareAndBranch:
		imm, err := branchField(offset, imm19Bits)
		if err != nil {
			return w, err
		}
		return Word(raw&^(fieldMask(imm19Bits)<<imm19Shift) | imm<<imm19Shift), nil

	case FamilyTestAndBranch:
		imm, err := branchField(offset, imm14Bits)
		if err != nil {
			return w, err
		}
		return Word(raw&^(fieldMask(imm14Bits)<<imm14Shift) | imm<<imm14Shift), nil

	case FamilyPCRel:
		if w.Bit(31) == 1 {
			if offset&0xfff != 0 {
				return w, notEncodable("adrp offset %#x not page aligned", offset)
			}
			offset >>= 12
		}
		imm, err := pcRelFields(offset)
		if err != nil {
			return w, err
		}
		const pcRelMask = 3<<immLoShift | 0x7ffff<<imm19Shift
		return Word(raw&^pcRelMask | imm), nil

	default:
		return w, notEncodable("%#08x has no branch offset", raw)
	}
}
