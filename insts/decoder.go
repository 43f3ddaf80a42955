package insts

// Op represents an ARM64 operation.
type Op uint16

// ARM64 operations. Flag-setting forms (ADDS, SUBS, ANDS, BICS) share the
// Op of their base form and set Instruction.SetFlags.
const (
	OpUnknown Op = iota
	OpInvalid    // reserved encoding inside a known family
	OpADD
	OpSUB
	OpAND
	OpBIC
	OpORR
	OpORN
	OpEOR
	OpEON
	OpMOVN
	OpMOVZ
	OpMOVK
	OpADR
	OpADRP
	OpB
	OpBL
	OpBCond
	OpCBZ
	OpCBNZ
	OpTBZ
	OpTBNZ
	OpBR
	OpBLR
	OpRET
	OpSVC
	OpBRK
	OpHLT
	OpHINT
	OpLDR
	OpLDRS // sign-extending load
	OpSTR
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown       Format = iota
	FormatDPImm                // Add/Sub (immediate)
	FormatLogicalImm           // Logical (immediate)
	FormatMoveWide             // Move wide (immediate)
	FormatPCRel                // PC-relative addressing
	FormatDPReg                // Add/Sub and Logical (register)
	FormatBranch               // Unconditional Branch (immediate)
	FormatBranchCond           // Conditional Branch
	FormatBranchReg            // Branch to Register
	FormatCompareBranch        // Compare and Branch
	FormatTestBranch           // Test and Branch
	FormatException            // Exception generation
	FormatSystem               // Hints
	FormatLoadStore            // Load/store register
	FormatSIMD                 // SIMD and FP, classified only
)

// OperandKind tells how the second source register is transformed.
type OperandKind uint8

// Operand kinds.
const (
	OperandNone OperandKind = iota
	OperandShifted
	OperandExtended
)

// AddrMode is the addressing mode of a load or store.
type AddrMode uint8

// Addressing modes.
const (
	AddrNone           AddrMode = iota
	AddrUnsignedOffset          // [Xn, #imm12 << size]
	AddrUnscaled                // [Xn, #simm9]
	AddrPostIndex               // [Xn], #simm9
	AddrPreIndex                // [Xn, #simm9]!
	AddrRegOffset               // [Xn, Rm, extend #amount]
)

// Instruction represents a decoded ARM64 instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format
	Family Family // Most specific opcode family
	Raw    Word   // Word the instruction was decoded from

	// Common fields
	Is64Bit  bool     // true for 64-bit (X registers), false for 32-bit (W registers)
	SetFlags bool     // true if instruction sets condition flags (S suffix)
	Rd       Register // Destination (or transfer) register, SP/ZR resolved
	Rn       Register // First source or base register, SP/ZR resolved
	Rm       Register // Second source or offset register
	Ra       Register // Accumulator, unused by the decoded operations

	// Immediate operand
	Imm   uint64 // Immediate value, logical immediates fully materialized
	Shift uint8  // Left shift applied to Imm (add/sub 12, move wide 16*hw)
	HW    uint8  // Move wide halfword index

	// Branch fields
	BranchOffset int64 // Signed offset in bytes (branches, ADR, ADRP)
	Cond         Cond  // Condition code for conditional branches
	TestBit      uint8 // Bit tested by TBZ/TBNZ

	// Second source register transform
	Operand      OperandKind
	ShiftType    ShiftType
	ShiftAmount  uint8
	Extend       Extend
	ExtendAmount uint8

	// Load/store fields
	Size     uint8 // log2 of the access size in bytes
	Signed   bool  // sign-extending load
	Vector   bool  // SIMD&FP register transfer
	AddrMode AddrMode
	Offset   int64 // Byte offset for immediate addressing modes
}

// Decoder decodes ARM64 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new ARM64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM64 instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{}
	d.DecodeInto(word, inst)
	return inst
}

// DecodeInto decodes word into inst, overwriting all of it. It does not
// allocate.
func (d *Decoder) DecodeInto(word uint32, inst *Instruction) {
	w := Word(word)
	family := Classify(word)

	*inst = Instruction{
		Op:        OpUnknown,
		Format:    FormatUnknown,
		Family:    family,
		Raw:       w,
		Rd:        NoRegister,
		Rn:        NoRegister,
		Rm:        NoRegister,
		Ra:        NoRegister,
		Cond:      NoCondition,
		ShiftType: NoShift,
		Extend:    NoExtend,
	}

	switch family {
	case FamilyAddSubImm:
		d.decodeAddSubImm(w, inst)
	case FamilyLogicalImm:
		d.decodeLogicalImm(w, inst)
	case FamilyMoveWide:
		d.decodeMoveWide(w, inst)
	case FamilyPCRel:
		d.decodePCRel(w, inst)
	case FamilyAddSubShiftExt:
		d.decodeAddSubReg(w, inst)
	case FamilyLogicalShift:
		d.decodeLogicalReg(w, inst)
	case FamilyCompareAndBranch:
		d.decodeCompareBranch(w, inst)
	case FamilyConditionalBranch:
		d.decodeBranchCond(w, inst)
	case FamilyExceptionGen:
		d.decodeException(w, inst)
	case FamilySystem:
		d.decodeSystem(w, inst)
	case FamilyTestAndBranch:
		d.decodeTestBranch(w, inst)
	case FamilyUnconditionalBranch:
		d.decodeBranchImm(w, inst)
	case FamilyUnconditionalBranchReg:
		d.decodeBranchReg(w, inst)
	case FamilyLoadStoreReg:
		d.decodeLoadStore(w, inst)
	case FamilyDPSimd1, FamilyDPSimd2:
		inst.Format = FormatSIMD
	case FamilyUnknown, FamilyDPImmediate, FamilyCompareBranch,
		FamilyLoadStore, FamilyDPRegister:
		// Known group without a decoded operation.
	default:
		panic("insts: unreachable family " + family.String())
	}
}

// decodeAddSubImm decodes Add/Sub immediate instructions.
// Format: sf | op | S | 100010 | sh | imm12 | Rn | Rd
func (d *Decoder) decodeAddSubImm(w Word, inst *Instruction) {
	sh := w.Imm12ShiftField()
	if sh > 1 {
		return // add/sub with tags, or reserved
	}

	inst.Format = FormatDPImm
	inst.Is64Bit = w.Is64Bit()
	inst.SetFlags = w.HasS()
	inst.Rd = w.Rd()
	inst.Rn = w.Rn()
	inst.Imm = uint64(w.Imm12Field())
	inst.Shift = uint8(12 * sh)

	if w.Bit(30) == 0 {
		inst.Op = OpADD
	} else {
		inst.Op = OpSUB
	}
}

// decodeLogicalImm decodes AND/ORR/EOR/ANDS immediate.
// Format: sf | opc | 100100 | N | immr | imms | Rn | Rd
func (d *Decoder) decodeLogicalImm(w Word, inst *Instruction) {
	inst.Format = FormatLogicalImm
	inst.Is64Bit = w.Is64Bit()
	inst.Rd = w.Rd()
	inst.Rn = w.Rn()

	switch w.Bits(29, 2) {
	case 0b00:
		inst.Op = OpAND
	case 0b01:
		inst.Op = OpORR
	case 0b10:
		inst.Op = OpEOR
	case 0b11:
		inst.Op = OpAND
		inst.SetFlags = true // ANDS
	}

	inst.Imm = w.ImmLogical()
	if inst.Imm == 0 {
		inst.Op = OpInvalid
	}
}

// decodeMoveWide decodes MOVN/MOVZ/MOVK.
// Format: sf | opc | 100101 | hw | imm16 | Rd
func (d *Decoder) decodeMoveWide(w Word, inst *Instruction) {
	hw := w.HWField()
	if !w.Is64Bit() && hw > 1 {
		inst.Format = FormatMoveWide
		inst.Op = OpInvalid
		return
	}

	var op Op
	switch w.Bits(29, 2) {
	case 0b00:
		op = OpMOVN
	case 0b10:
		op = OpMOVZ
	case 0b11:
		op = OpMOVK
	default:
		return // unallocated
	}

	inst.Op = op
	inst.Format = FormatMoveWide
	inst.Is64Bit = w.Is64Bit()
	inst.Rd = w.Rd()
	inst.Imm = uint64(w.Imm16Field())
	inst.HW = uint8(hw)
	inst.Shift = uint8(16 * hw)
}

// decodePCRel decodes ADR/ADRP.
// Format: op | immlo | 10000 | immhi | Rd
func (d *Decoder) decodePCRel(w Word, inst *Instruction) {
	inst.Format = FormatPCRel
	inst.Is64Bit = true
	inst.Rd = w.Rd()

	raw := w.Imm19Field()<<immLoBits | w.ImmLoField()
	offset := int64(SignedBits(raw, 0, imm19Bits+immLoBits))

	if w.Bit(31) == 0 {
		inst.Op = OpADR
		inst.BranchOffset = offset
	} else {
		inst.Op = OpADRP
		inst.BranchOffset = offset << 12
	}
}

// decodeAddSubReg decodes Add/Sub shifted and extended register instructions.
// Shifted:  sf | op | S | 01011 | shift | 0 | Rm | imm6 | Rn | Rd
// Extended: sf | op | S | 01011 | 00 | 1 | Rm | option | imm3 | Rn | Rd
func (d *Decoder) decodeAddSubReg(w Word, inst *Instruction) {
	if w.IsExtend() {
		if w.Bits(22, 2) != 0 || w.ExtShiftAmountField() > 4 {
			return
		}
		inst.Operand = OperandExtended
		inst.Extend = w.ExtendTypeField()
		inst.ExtendAmount = uint8(w.ExtShiftAmountField())
	} else {
		shift := w.ShiftTypeField()
		amount := w.ShiftAmountField()
		if shift == ROR || (!w.Is64Bit() && amount > 31) {
			return
		}
		inst.Operand = OperandShifted
		inst.ShiftType = shift
		inst.ShiftAmount = uint8(amount)
	}

	inst.Format = FormatDPReg
	inst.Is64Bit = w.Is64Bit()
	inst.SetFlags = w.HasS()
	inst.Rd = w.Rd()
	inst.Rn = w.Rn()
	inst.Rm = w.Rm()

	if w.Bit(30) == 0 {
		inst.Op = OpADD
	} else {
		inst.Op = OpSUB
	}
}

// decodeLogicalReg decodes logical shifted register instructions.
// Format: sf | opc | 01010 | shift | N | Rm | imm6 | Rn | Rd
func (d *Decoder) decodeLogicalReg(w Word, inst *Instruction) {
	amount := w.ShiftAmountField()
	if !w.Is64Bit() && amount > 31 {
		return
	}

	inst.Format = FormatDPReg
	inst.Is64Bit = w.Is64Bit()
	inst.Rd = w.Rd()
	inst.Rn = w.Rn()
	inst.Rm = w.Rm()
	inst.Operand = OperandShifted
	inst.ShiftType = w.ShiftTypeField()
	inst.ShiftAmount = uint8(amount)

	negate := w.Bit(21) == 1
	switch w.Bits(29, 2) {
	case 0b00:
		inst.Op = pick(negate, OpBIC, OpAND)
	case 0b01:
		inst.Op = pick(negate, OpORN, OpORR)
	case 0b10:
		inst.Op = pick(negate, OpEON, OpEOR)
	case 0b11:
		inst.Op = pick(negate, OpBIC, OpAND)
		inst.SetFlags = true // ANDS, BICS
	}
}

func pick(cond bool, yes, no Op) Op {
	if cond {
		return yes
	}
	return no
}

// decodeCompareBranch decodes CBZ and CBNZ.
// Format: sf | 011010 | op | imm19 | Rt
func (d *Decoder) decodeCompareBranch(w Word, inst *Instruction) {
	inst.Format = FormatCompareBranch
	inst.Is64Bit = w.Is64Bit()
	inst.Rd = w.Rt()
	inst.BranchOffset = w.SImm19Field() * InstrSize

	if w.Bit(24) == 0 {
		inst.Op = OpCBZ
	} else {
		inst.Op = OpCBNZ
	}
}

// decodeBranchCond decodes conditional branch instructions.
// Format: 0101010 0 | imm19 | 0 | cond
func (d *Decoder) decodeBranchCond(w Word, inst *Instruction) {
	if w.Bit(24) != 0 || w.Bit(4) != 0 {
		return
	}

	inst.Format = FormatBranchCond
	inst.Op = OpBCond
	inst.Cond = w.ConditionField()
	inst.BranchOffset = w.SImm19Field() * InstrSize
}

// decodeException decodes SVC, BRK and HLT.
// Format: 11010100 | opc | imm16 | op2 | LL
func (d *Decoder) decodeException(w Word, inst *Instruction) {
	if w.Bits(2, 3) != 0 {
		return
	}

	opc := w.Bits(21, 3)
	ll := w.Bits(0, 2)
	switch {
	case opc == 0b000 && ll == 0b01:
		inst.Op = OpSVC
	case opc == 0b001 && ll == 0b00:
		inst.Op = OpBRK
	case opc == 0b010 && ll == 0b00:
		inst.Op = OpHLT
	default:
		return
	}

	inst.Format = FormatException
	inst.Imm = uint64(w.Imm16Field())
}

// decodeSystem decodes the hint space (NOP, YIELD, ...). Other system
// instructions are left unknown.
// Format: 1101010100 | 0 | 00 | 011 | 0010 | CRm | op2 | 11111
func (d *Decoder) decodeSystem(w Word, inst *Instruction) {
	const hintMask = ^uint32(0x7f << hintOp2Shift)
	if uint32(w)&hintMask != HINT&hintMask {
		return
	}

	inst.Format = FormatSystem
	inst.Op = OpHINT
	inst.Imm = uint64(w.HintCRmField()<<hintOp2Bits | w.HintOp2Field())
}

// decodeTestBranch decodes TBZ and TBNZ.
// Format: b5 | 011011 | op | b40 | imm14 | Rt
func (d *Decoder) decodeTestBranch(w Word, inst *Instruction) {
	inst.Format = FormatTestBranch
	inst.TestBit = uint8(w.TestBitField())
	inst.Is64Bit = inst.TestBit >= 32
	inst.Rd = w.Rt()
	inst.BranchOffset = w.SImm14Field() * InstrSize

	if w.Bit(24) == 0 {
		inst.Op = OpTBZ
	} else {
		inst.Op = OpTBNZ
	}
}

// decodeBranchImm decodes B and BL instructions.
// Format: op | 00101 | imm26
func (d *Decoder) decodeBranchImm(w Word, inst *Instruction) {
	inst.Format = FormatBranch
	inst.BranchOffset = w.SImm26Field() * InstrSize

	if w.Bit(31) == 0 {
		inst.Op = OpB
	} else {
		inst.Op = OpBL
	}
}

// decodeBranchReg decodes BR, BLR, and RET instructions.
// Format: 1101011 | opc | 11111 | 000000 | Rn | 00000
func (d *Decoder) decodeBranchReg(w Word, inst *Instruction) {
	if w.Bits(16, 5) != 0x1f || w.Bits(10, 6) != 0 || w.Bits(0, 5) != 0 {
		return
	}

	switch w.Bits(21, 4) {
	case 0b0000:
		inst.Op = OpBR
	case 0b0001:
		inst.Op = OpBLR
	case 0b0010:
		inst.Op = OpRET
	default:
		return
	}

	inst.Format = FormatBranchReg
	inst.Is64Bit = true
	inst.Rn = w.Rn()
}

// decodeLoadStore decodes integer loads and stores of a single register.
// Format: size | 111 | V | 0 | mode | opc | ... | Rn | Rt
func (d *Decoder) decodeLoadStore(w Word, inst *Instruction) {
	if w.Bit(26) == 1 {
		inst.Format = FormatSIMD
		inst.Vector = true
		return
	}

	size := w.SzField()
	opc := w.Bits(22, 2)
	switch {
	case opc == 0b00:
		inst.Op = OpSTR
		inst.Is64Bit = size == 3
	case opc == 0b01:
		inst.Op = OpLDR
		inst.Is64Bit = size == 3
	case opc == 0b10 && size != 3:
		inst.Op = OpLDRS
		inst.Is64Bit = true
	case opc == 0b11 && size < 2:
		inst.Op = OpLDRS
		inst.Is64Bit = false
	default:
		return // PRFM or unallocated
	}

	if !d.decodeAddrMode(w, inst, size) {
		inst.Op = OpUnknown
		inst.Is64Bit = false
		return
	}

	inst.Format = FormatLoadStore
	inst.Signed = inst.Op == OpLDRS
	inst.Size = uint8(size)
	inst.Rd = w.Rt()
	inst.Rn = w.Rn()
}

func (d *Decoder) decodeAddrMode(w Word, inst *Instruction, size uint32) bool {
	if w.Bit(24) == 1 {
		inst.AddrMode = AddrUnsignedOffset
		inst.Offset = int64(w.Imm12Field()) << size
		return true
	}

	if w.Bit(21) == 1 {
		if w.Bits(10, 2) != 0b10 {
			return false // atomics and friends
		}
		ext := w.ExtendTypeField()
		if ext&0b010 == 0 {
			return false
		}
		inst.AddrMode = AddrRegOffset
		inst.Rm = w.Rm()
		inst.Operand = OperandExtended
		inst.Extend = ext
		if w.Bit(12) == 1 {
			inst.ExtendAmount = uint8(size)
		}
		return true
	}

	switch w.Bits(10, 2) {
	case 0b00:
		inst.AddrMode = AddrUnscaled
	case 0b01:
		inst.AddrMode = AddrPostIndex
	case 0b11:
		inst.AddrMode = AddrPreIndex
	default:
		return false // unprivileged
	}
	inst.Offset = w.SImm9Field()
	return true
}
