package insts

import (
	"fmt"
	"strings"
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpInvalid: "INVALID",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpAND:     "AND",
	OpBIC:     "BIC",
	OpORR:     "ORR",
	OpORN:     "ORN",
	OpEOR:     "EOR",
	OpEON:     "EON",
	OpMOVN:    "MOVN",
	OpMOVZ:    "MOVZ",
	OpMOVK:    "MOVK",
	OpADR:     "ADR",
	OpADRP:    "ADRP",
	OpB:       "B",
	OpBL:      "BL",
	OpBCond:   "B.cond",
	OpCBZ:     "CBZ",
	OpCBNZ:    "CBNZ",
	OpTBZ:     "TBZ",
	OpTBNZ:    "TBNZ",
	OpBR:      "BR",
	OpBLR:     "BLR",
	OpRET:     "RET",
	OpSVC:     "SVC",
	OpBRK:     "BRK",
	OpHLT:     "HLT",
	OpHINT:    "HINT",
	OpLDR:     "LDR",
	OpLDRS:    "LDRS",
	OpSTR:     "STR",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

var formatNames = [...]string{
	FormatUnknown:       "Unknown",
	FormatDPImm:         "DPImm",
	FormatLogicalImm:    "LogicalImm",
	FormatMoveWide:      "MoveWide",
	FormatPCRel:         "PCRel",
	FormatDPReg:         "DPReg",
	FormatBranch:        "Branch",
	FormatBranchCond:    "BranchCond",
	FormatBranchReg:     "BranchReg",
	FormatCompareBranch: "CompareBranch",
	FormatTestBranch:    "TestBranch",
	FormatException:     "Exception",
	FormatSystem:        "System",
	FormatLoadStore:     "LoadStore",
	FormatSIMD:          "SIMD",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

var condNames = [...]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "al", "nv",
}

func (c Cond) String() string {
	if c < EQ || c >= MaxCondition {
		return "none"
	}
	return condNames[c]
}

var shiftNames = [...]string{"lsl", "lsr", "asr", "ror"}

func (s ShiftType) String() string {
	if s < LSL || s >= MaxShift {
		return "none"
	}
	return shiftNames[s]
}

var extendNames = [...]string{"uxtb", "uxth", "uxtw", "uxtx", "sxtb", "sxth", "sxtw", "sxtx"}

func (e Extend) String() string {
	if e < UXTB || e >= MaxExtend {
		return "none"
	}
	return extendNames[e]
}

// Style selects how registers are named in the text form.
type Style int

// Text styles.
const (
	// StyleArch uses architectural names: x0, w1, sp, xzr.
	StyleArch Style = iota
	// StyleVM uses the register model's names: R0, SP, ZR, LR.
	StyleVM
)

var hintNames = map[uint64]string{
	0: "nop",
	1: "yield",
	2: "wfe",
	3: "wfi",
	4: "sev",
	5: "sevl",
}

// String returns the instruction in architectural syntax.
func (inst *Instruction) String() string {
	return inst.Render(StyleArch)
}

// Render renders the instruction in the given style. Words without a known
// operation render as a .inst directive with a comment naming the reason.
func (inst *Instruction) Render(style Style) string {
	p := printer{inst: inst, style: style}
	return p.text()
}

type printer struct {
	inst  *Instruction
	style Style
	sb    strings.Builder
}

func (p *printer) reg(r Register, is64 bool) string {
	if p.style == StyleVM {
		return r.String()
	}
	return r.Name(is64)
}

func (p *printer) emit(mnemonic string, operands ...string) string {
	p.sb.WriteString(mnemonic)
	for i, o := range operands {
		if i == 0 {
			p.sb.WriteByte(' ')
		} else {
			p.sb.WriteString(", ")
		}
		p.sb.WriteString(o)
	}
	return p.sb.String()
}

func hexImm(v uint64) string { return fmt.Sprintf("#%#x", v) }

func decImm(v int64) string { return fmt.Sprintf("#%d", v) }

func (p *printer) placeholder() string {
	inst := p.inst
	if inst.Op == OpInvalid {
		return fmt.Sprintf(".inst 0x%08x ; invalid", uint32(inst.Raw))
	}
	if inst.Family == FamilyUnknown {
		return fmt.Sprintf(".inst 0x%08x ; unknown", uint32(inst.Raw))
	}
	return fmt.Sprintf(".inst 0x%08x ; unknown %v", uint32(inst.Raw), inst.Family)
}

func (p *printer) text() string {
	inst := p.inst
	sf := inst.Is64Bit
	mn := strings.ToLower(inst.Op.String())
	if inst.SetFlags {
		mn += "s"
	}

	switch inst.Op {
	case OpUnknown, OpInvalid:
		return p.placeholder()

	case OpADD, OpSUB:
		switch inst.Operand {
		case OperandShifted:
			return p.emit(mn, p.shiftedOperands()...)
		case OperandExtended:
			rm := p.reg(inst.Rm, inst.Extend == UXTX || inst.Extend == SXTX)
			ext := inst.Extend.String()
			if inst.ExtendAmount != 0 {
				ext += " " + decImm(int64(inst.ExtendAmount))
			}
			return p.emit(mn, p.reg(inst.Rd, sf), p.reg(inst.Rn, sf), rm, ext)
		}
		ops := []string{p.reg(inst.Rd, sf), p.reg(inst.Rn, sf), hexImm(inst.Imm)}
		if inst.Shift != 0 {
			ops = append(ops, "lsl "+decImm(int64(inst.Shift)))
		}
		return p.emit(mn, ops...)

	case OpAND, OpBIC, OpORR, OpORN, OpEOR, OpEON:
		if inst.Format == FormatLogicalImm {
			return p.emit(mn, p.reg(inst.Rd, sf), p.reg(inst.Rn, sf), hexImm(inst.Imm))
		}
		return p.emit(mn, p.shiftedOperands()...)

	case OpMOVN, OpMOVZ, OpMOVK:
		ops := []string{p.reg(inst.Rd, sf), hexImm(inst.Imm)}
		if inst.Shift != 0 {
			ops = append(ops, "lsl "+decImm(int64(inst.Shift)))
		}
		return p.emit(mn, ops...)

	case OpADR, OpADRP:
		return p.emit(mn, p.reg(inst.Rd, true), decImm(inst.BranchOffset))

	case OpB, OpBL:
		return p.emit(mn, decImm(inst.BranchOffset))

	case OpBCond:
		return p.emit("b."+inst.Cond.String(), decImm(inst.BranchOffset))

	case OpCBZ, OpCBNZ:
		return p.emit(mn, p.reg(inst.Rd, sf), decImm(inst.BranchOffset))

	case OpTBZ, OpTBNZ:
		return p.emit(mn, p.reg(inst.Rd, sf), decImm(int64(inst.TestBit)), decImm(inst.BranchOffset))

	case OpBR, OpBLR:
		return p.emit(mn, p.reg(inst.Rn, true))

	case OpRET:
		if inst.Rn == LR {
			return p.emit(mn)
		}
		return p.emit(mn, p.reg(inst.Rn, true))

	case OpSVC, OpBRK, OpHLT:
		return p.emit(mn, hexImm(inst.Imm))

	case OpHINT:
		if name, ok := hintNames[inst.Imm]; ok {
			return p.emit(name)
		}
		return p.emit(mn, decImm(int64(inst.Imm)))

	case OpLDR, OpLDRS, OpSTR:
		return p.loadStore()
	}
	return p.placeholder()
}

func (p *printer) shiftedOperands() []string {
	inst := p.inst
	sf := inst.Is64Bit
	ops := []string{p.reg(inst.Rd, sf), p.reg(inst.Rn, sf), p.reg(inst.Rm, sf)}
	if inst.ShiftAmount != 0 || (inst.ShiftType != LSL && inst.ShiftType != NoShift) {
		ops = append(ops, inst.ShiftType.String()+" "+decImm(int64(inst.ShiftAmount)))
	}
	return ops
}

var sizeSuffix = [...]string{"b", "h", "", ""}

func (p *printer) loadStore() string {
	inst := p.inst
	var mn string
	switch inst.Op {
	case OpSTR:
		mn = "st"
	default:
		mn = "ld"
	}
	if inst.AddrMode == AddrUnscaled {
		mn += "ur"
	} else {
		mn += "r"
	}
	if inst.Op == OpLDRS {
		mn += "s"
		if inst.Size == 2 {
			mn += "w"
		}
	}
	mn += sizeSuffix[inst.Size&3]

	rt := p.reg(inst.Rd, inst.Is64Bit)
	base := p.reg(inst.Rn, true)

	switch inst.AddrMode {
	case AddrUnsignedOffset, AddrUnscaled:
		if inst.Offset == 0 {
			return p.emit(mn, rt, "["+base+"]")
		}
		return p.emit(mn, rt, "["+base+", "+decImm(inst.Offset)+"]")
	case AddrPreIndex:
		return p.emit(mn, rt, "["+base+", "+decImm(inst.Offset)+"]!")
	case AddrPostIndex:
		return p.emit(mn, rt, "["+base+"]", decImm(inst.Offset))
	case AddrRegOffset:
		rm := p.reg(inst.Rm, inst.Extend == UXTX || inst.Extend == SXTX)
		ext := inst.Extend.String()
		if inst.Extend == UXTX {
			ext = "lsl"
		}
		switch {
		case inst.ExtendAmount != 0:
			ext += " " + decImm(int64(inst.ExtendAmount))
		case inst.Extend == UXTX:
			return p.emit(mn, rt, "["+base+", "+rm+"]")
		}
		return p.emit(mn, rt, "["+base+", "+rm+", "+ext+"]")
	}
	return p.placeholder()
}
