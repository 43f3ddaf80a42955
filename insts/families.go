package insts

// Main opcode groups (C3.1).
const (
	DPImmediateMask  uint32 = 0x1c000000
	DPImmediateFixed uint32 = B28

	CompareBranchMask  uint32 = 0x1c000000
	CompareBranchFixed uint32 = B28 | B26

	LoadStoreMask  uint32 = B27 | B25
	LoadStoreFixed uint32 = B27

	DPRegisterMask  uint32 = 0x0e000000
	DPRegisterFixed uint32 = B27 | B25

	DPSimd1Mask  uint32 = 0x1e000000
	DPSimd1Fixed uint32 = B27 | B26 | B25

	DPSimd2Mask  uint32 = 0x1e000000
	DPSimd2Fixed uint32 = B28 | DPSimd1Fixed
)

// Compare & branch (C3.2.1).
const (
	CompareAndBranchMask  uint32 = 0x7e000000
	CompareAndBranchFixed uint32 = CompareBranchFixed | B29
	CBZ                   uint32 = CompareAndBranchFixed
	CBNZ                  uint32 = CompareAndBranchFixed | B24
)

// Conditional branch (C3.2.2).
const (
	ConditionalBranchMask  uint32 = 0xfe000000
	ConditionalBranchFixed uint32 = CompareBranchFixed | B30
	BCOND                  uint32 = ConditionalBranchFixed
)

// Exception generation (C3.2.3).
const (
	ExceptionGenMask  uint32 = 0xff000000
	ExceptionGenFixed uint32 = CompareBranchFixed | B31 | B30
	SVC               uint32 = ExceptionGenFixed | B0
	BRK               uint32 = ExceptionGenFixed | B21
	HLT               uint32 = ExceptionGenFixed | B22
)

// System (C3.2.4).
const (
	SystemMask  uint32 = 0xffc00000
	SystemFixed uint32 = CompareBranchFixed | B31 | B30 | B24
	HINT        uint32 = SystemFixed | B17 | B16 | B13 | B4 | B3 | B2 | B1 | B0
)

// Test & branch (C3.2.5).
const (
	TestAndBranchMask  uint32 = 0x7e000000
	TestAndBranchFixed uint32 = CompareBranchFixed | B29 | B25
	TBZ                uint32 = TestAndBranchFixed
	TBNZ               uint32 = TestAndBranchFixed | B24
)

// Unconditional branch, immediate (C3.2.6).
const (
	UnconditionalBranchMask  uint32 = 0x7c000000
	UnconditionalBranchFixed uint32 = CompareBranchFixed
	B                        uint32 = UnconditionalBranchFixed
	BL                       uint32 = UnconditionalBranchFixed | B31
)

// Unconditional branch, register (C3.2.7).
const (
	UnconditionalBranchRegMask  uint32 = 0xfe000000
	UnconditionalBranchRegFixed uint32 = CompareBranchFixed | B31 | B30 | B25
	BR                          uint32 = UnconditionalBranchRegFixed | B20 | B19 | B18 | B17 | B16
	BLR                         uint32 = BR | B21
	RET                         uint32 = BR | B22
)

// Load/store register.
const (
	LoadStoreRegMask  uint32 = 0x3a000000
	LoadStoreRegFixed uint32 = LoadStoreFixed | B29 | B28
	STR               uint32 = LoadStoreRegFixed
	LDR               uint32 = LoadStoreRegFixed | B22
)

// Add/subtract immediate (C3.4.1).
const (
	AddSubImmMask  uint32 = 0x1f000000
	AddSubImmFixed uint32 = DPImmediateFixed | B24
	ADDI           uint32 = AddSubImmFixed
	SUBI           uint32 = AddSubImmFixed | B30
)

// Logical immediate (C3.4.4).
const (
	LogicalImmMask  uint32 = 0x1f800000
	LogicalImmFixed uint32 = DPImmediateFixed | B25
	ANDI            uint32 = LogicalImmFixed
	ORRI            uint32 = LogicalImmFixed | B29
	EORI            uint32 = LogicalImmFixed | B30
	ANDIS           uint32 = LogicalImmFixed | B30 | B29
)

// Move wide immediate (C3.4.5).
const (
	MoveWideMask  uint32 = 0x1f800000
	MoveWideFixed uint32 = DPImmediateFixed | B25 | B23
	MOVN          uint32 = MoveWideFixed
	MOVZ          uint32 = MoveWideFixed | B30
	MOVK          uint32 = MoveWideFixed | B30 | B29
)

// PC-relative addressing (C3.4.6).
const (
	PCRelMask  uint32 = 0x1f000000
	PCRelFixed uint32 = DPImmediateFixed
	ADR        uint32 = PCRelFixed
	ADRP       uint32 = PCRelFixed | B31
)

// Add/subtract, shifted or extended register (C3.5.1).
const (
	AddSubShiftExtMask  uint32 = 0x1f000000
	AddSubShiftExtFixed uint32 = DPRegisterFixed | B24
	ADD                 uint32 = AddSubShiftExtFixed
	SUB                 uint32 = AddSubShiftExtFixed | B30
)

// Logical, shifted register.
const (
	LogicalShiftMask  uint32 = 0x1f000000
	LogicalShiftFixed uint32 = DPRegisterFixed
	AND               uint32 = LogicalShiftFixed
	BIC               uint32 = LogicalShiftFixed | B21
	ORR               uint32 = LogicalShiftFixed | B29
	ORN               uint32 = LogicalShiftFixed | B29 | B21
	EOR               uint32 = LogicalShiftFixed | B30
	EON               uint32 = LogicalShiftFixed | B30 | B21
	ANDS              uint32 = LogicalShiftFixed | B30 | B29
	BICS              uint32 = LogicalShiftFixed | B30 | B29 | B21
)

// Immediates carried by HLT to tag simulator and debugger traps.
const (
	ImmExceptionIsRedirectedCall uint32 = 0xca11
	ImmExceptionIsUnreachable    uint32 = 0xdebf
	ImmExceptionIsPrintf         uint32 = 0xdeb1
	ImmExceptionIsDebug          uint32 = 0xdeb0
)

// Fixed encodings.
const (
	InstrSize     = 4
	InstrSizeLog2 = 2

	// NopInstruction is hint #0.
	NopInstruction Word = Word(HINT)
	// BreakPointInstruction is hlt #ImmExceptionIsDebug.
	BreakPointInstruction     Word = Word(HLT | ImmExceptionIsDebug<<imm16Shift)
	BreakPointInstructionSize      = InstrSize
)

// Family is an opcode family or operation group.
type Family int

// Families. The first six are the main opcode groups; the rest are groups
// inside them.
const (
	FamilyUnknown Family = iota
	FamilyDPImmediate
	FamilyCompareBranch
	FamilyLoadStore
	FamilyDPRegister
	FamilyDPSimd1
	FamilyDPSimd2
	FamilyCompareAndBranch
	FamilyConditionalBranch
	FamilyExceptionGen
	FamilySystem
	FamilyTestAndBranch
	FamilyUnconditionalBranch
	FamilyUnconditionalBranchReg
	FamilyLoadStoreReg
	FamilyAddSubImm
	FamilyLogicalImm
	FamilyMoveWide
	FamilyPCRel
	FamilyAddSubShiftExt
	FamilyLogicalShift

	numFamilies
)

type familyPattern struct {
	family Family
	name   string
	mask   uint32
	fixed  uint32
	parent Family
}

// familyTable lists every family with its mask and fixed pattern, main groups
// first. It is the single source for all family predicates.
var familyTable = [...]familyPattern{
	{FamilyDPImmediate, "DPImmediate", DPImmediateMask, DPImmediateFixed, FamilyUnknown},
	{FamilyCompareBranch, "CompareBranch", CompareBranchMask, CompareBranchFixed, FamilyUnknown},
	{FamilyLoadStore, "LoadStore", LoadStoreMask, LoadStoreFixed, FamilyUnknown},
	{FamilyDPRegister, "DPRegister", DPRegisterMask, DPRegisterFixed, FamilyUnknown},
	{FamilyDPSimd1, "DPSimd1", DPSimd1Mask, DPSimd1Fixed, FamilyUnknown},
	{FamilyDPSimd2, "DPSimd2", DPSimd2Mask, DPSimd2Fixed, FamilyUnknown},

	{FamilyCompareAndBranch, "CompareAndBranch", CompareAndBranchMask, CompareAndBranchFixed, FamilyCompareBranch},
	{FamilyConditionalBranch, "ConditionalBranch", ConditionalBranchMask, ConditionalBranchFixed, FamilyCompareBranch},
	{FamilyExceptionGen, "ExceptionGen", ExceptionGenMask, ExceptionGenFixed, FamilyCompareBranch},
	{FamilySystem, "System", SystemMask, SystemFixed, FamilyCompareBranch},
	{FamilyTestAndBranch, "TestAndBranch", TestAndBranchMask, TestAndBranchFixed, FamilyCompareBranch},
	{FamilyUnconditionalBranch, "UnconditionalBranch", UnconditionalBranchMask, UnconditionalBranchFixed, FamilyCompareBranch},
	{FamilyUnconditionalBranchReg, "UnconditionalBranchReg", UnconditionalBranchRegMask, UnconditionalBranchRegFixed, FamilyCompareBranch},
	{FamilyLoadStoreReg, "LoadStoreReg", LoadStoreRegMask, LoadStoreRegFixed, FamilyLoadStore},
	{FamilyAddSubImm, "AddSubImm", AddSubImmMask, AddSubImmFixed, FamilyDPImmediate},
	{FamilyLogicalImm, "LogicalImm", LogicalImmMask, LogicalImmFixed, FamilyDPImmediate},
	{FamilyMoveWide, "MoveWide", MoveWideMask, MoveWideFixed, FamilyDPImmediate},
	{FamilyPCRel, "PCRel", PCRelMask, PCRelFixed, FamilyDPImmediate},
	{FamilyAddSubShiftExt, "AddSubShiftExt", AddSubShiftExtMask, AddSubShiftExtFixed, FamilyDPRegister},
	{FamilyLogicalShift, "LogicalShift", LogicalShiftMask, LogicalShiftFixed, FamilyDPRegister},
}

// familyIndex maps a Family to its familyTable row.
var familyIndex = func() [numFamilies]int {
	var idx [numFamilies]int
	for i := range idx {
		idx[i] = -1
	}
	for i, p := range familyTable {
		if idx[p.family] != -1 {
			panic("insts: duplicate family " + p.name)
		}
		idx[p.family] = i
	}
	for f := FamilyDPImmediate; f < numFamilies; f++ {
		if idx[f] == -1 {
			panic("insts: family missing from table")
		}
	}
	return idx
}()

func (f Family) pattern() familyPattern {
	if f <= FamilyUnknown || f >= numFamilies {
		panic("insts: no pattern for family " + f.String())
	}
	return familyTable[familyIndex[f]]
}

// Mask returns the family's mask.
func (f Family) Mask() uint32 { return f.pattern().mask }

// Fixed returns the family's fixed bit pattern.
func (f Family) Fixed() uint32 { return f.pattern().fixed }

// Parent returns the main group containing f, or FamilyUnknown for main groups.
func (f Family) Parent() Family { return f.pattern().parent }

// IsMain reports whether f is one of the six main opcode groups.
func (f Family) IsMain() bool {
	return f > FamilyUnknown && f < numFamilies && f.Parent() == FamilyUnknown
}

// Matches reports whether word belongs to f: (word & mask) == (fixed & mask).
func (f Family) Matches(word uint32) bool {
	p := f.pattern()
	return word&p.mask == p.fixed&p.mask
}

func (f Family) String() string {
	if f <= FamilyUnknown || f >= numFamilies {
		return "Unknown"
	}
	return familyTable[familyIndex[f]].name
}

// Families returns every family in table order.
func Families() []Family {
	out := make([]Family, 0, len(familyTable))
	for _, p := range familyTable {
		out = append(out, p.family)
	}
	return out
}

// Classify returns the most specific family containing word. Groups are
// tried before main families; the groups are mutually exclusive, as are the
// main families, so the result does not depend on table order within a level.
func Classify(word uint32) Family {
	for _, p := range familyTable {
		if p.parent != FamilyUnknown && word&p.mask == p.fixed&p.mask {
			return p.family
		}
	}
	return MainFamily(word)
}

// MainFamily returns the main opcode group of word.
func MainFamily(word uint32) Family {
	for _, p := range familyTable {
		if p.parent == FamilyUnknown && word&p.mask == p.fixed&p.mask {
			return p.family
		}
	}
	return FamilyUnknown
}

// Is reports whether w belongs to family f.
func (w Word) Is(f Family) bool { return f.Matches(uint32(w)) }

func (w Word) IsDPImmediateOp() bool            { return w.Is(FamilyDPImmediate) }
func (w Word) IsCompareBranchOp() bool          { return w.Is(FamilyCompareBranch) }
func (w Word) IsLoadStoreOp() bool              { return w.Is(FamilyLoadStore) }
func (w Word) IsDPRegisterOp() bool             { return w.Is(FamilyDPRegister) }
func (w Word) IsDPSimd1Op() bool                { return w.Is(FamilyDPSimd1) }
func (w Word) IsDPSimd2Op() bool                { return w.Is(FamilyDPSimd2) }
func (w Word) IsCompareAndBranchOp() bool       { return w.Is(FamilyCompareAndBranch) }
func (w Word) IsConditionalBranchOp() bool      { return w.Is(FamilyConditionalBranch) }
func (w Word) IsExceptionGenOp() bool           { return w.Is(FamilyExceptionGen) }
func (w Word) IsSystemOp() bool                 { return w.Is(FamilySystem) }
func (w Word) IsTestAndBranchOp() bool          { return w.Is(FamilyTestAndBranch) }
func (w Word) IsUnconditionalBranchOp() bool    { return w.Is(FamilyUnconditionalBranch) }
func (w Word) IsUnconditionalBranchRegOp() bool { return w.Is(FamilyUnconditionalBranchReg) }
func (w Word) IsLoadStoreRegOp() bool           { return w.Is(FamilyLoadStoreReg) }
func (w Word) IsAddSubImmOp() bool              { return w.Is(FamilyAddSubImm) }
func (w Word) IsLogicalImmOp() bool             { return w.Is(FamilyLogicalImm) }
func (w Word) IsMoveWideOp() bool               { return w.Is(FamilyMoveWide) }
func (w Word) IsPCRelOp() bool                  { return w.Is(FamilyPCRel) }
func (w Word) IsAddSubShiftExtOp() bool         { return w.Is(FamilyAddSubShiftExt) }
func (w Word) IsLogicalShiftOp() bool           { return w.Is(FamilyLogicalShift) }

// IsNop reports whether w is the canonical no-op.
func (w Word) IsNop() bool { return w == NopInstruction }

// IsBreakPoint reports whether w is the debugger breakpoint.
func (w Word) IsBreakPoint() bool { return w == BreakPointInstruction }
