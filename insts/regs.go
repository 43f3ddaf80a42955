package insts

import (
	"fmt"
	"math/bits"
	"strings"
)

// Register is a core (integer) register identity.
//
// SP and ZR both encode as index 31 in a word. They get distinct values here
// and are translated with ConcreteRegister before encoding.
type Register int

// Core registers.
const (
	NoRegister Register = -1

	R0  Register = 0
	R1  Register = 1
	R2  Register = 2
	R3  Register = 3
	R4  Register = 4
	R5  Register = 5
	R6  Register = 6
	R7  Register = 7
	R8  Register = 8
	R9  Register = 9
	R10 Register = 10
	R11 Register = 11
	R12 Register = 12
	R13 Register = 13
	R14 Register = 14
	R15 Register = 15
	R16 Register = 16
	R17 Register = 17
	R18 Register = 18
	R19 Register = 19
	R20 Register = 20
	R21 Register = 21
	R22 Register = 22
	R23 Register = 23
	R24 Register = 24
	R25 Register = 25
	R26 Register = 26
	R27 Register = 27
	R28 Register = 28
	R29 Register = 29
	R30 Register = 30
	R31 Register = 31

	SP Register = 32
	ZR Register = 33

	NumberOfCpuRegisters = 32
)

// Register aliases.
const (
	IP0   = R25
	IP1   = R26
	TMP   = R25 // assembler scratch
	TMP0  = R25
	TMP1  = R26
	CTX   = R27 // current context
	PP    = R26 // object pool pointer, shares R26 with IP1 and TMP1
	FP    = R29
	LR    = R30
	SPREG = R31
	FPREG = FP
	ICREG = R5 // inline-cache data

	// Exception object and stack trace are passed to catch handlers in these.
	ExceptionObjectReg  = R0
	StackTraceObjectReg = R1
)

// FirstFreeCpuRegister and LastFreeCpuRegister bound the allocatable range.
const (
	FirstFreeCpuRegister = R0
	LastFreeCpuRegister  = R24
)

// VRegister is a vector/floating-point register identity.
type VRegister int

// Vector registers.
const (
	NoVRegister VRegister = -1

	V0  VRegister = 0
	V1  VRegister = 1
	V2  VRegister = 2
	V3  VRegister = 3
	V4  VRegister = 4
	V5  VRegister = 5
	V6  VRegister = 6
	V7  VRegister = 7
	V8  VRegister = 8
	V9  VRegister = 9
	V10 VRegister = 10
	V11 VRegister = 11
	V12 VRegister = 12
	V13 VRegister = 13
	V14 VRegister = 14
	V15 VRegister = 15
	V16 VRegister = 16
	V17 VRegister = 17
	V18 VRegister = 18
	V19 VRegister = 19
	V20 VRegister = 20
	V21 VRegister = 21
	V22 VRegister = 22
	V23 VRegister = 23
	V24 VRegister = 24
	V25 VRegister = 25
	V26 VRegister = 26
	V27 VRegister = 27
	V28 VRegister = 28
	V29 VRegister = 29
	V30 VRegister = 30
	V31 VRegister = 31

	NumberOfVRegisters = 32
)

// Floating point scratch registers.
const (
	VTMP0  = V30
	VTMP1  = V31
	FpuTMP = VTMP0
)

// Register widths.
const (
	XRegSizeInBits = 64
	WRegSizeInBits = 32

	XRegMask uint64 = 0xffffffffffffffff
	WRegMask uint64 = 0x00000000ffffffff
)

// RegList is a set of register indices, bit i standing for index i.
type RegList uint32

// Contains reports whether index i is in the set.
func (l RegList) Contains(i int) bool {
	return i >= 0 && i < 32 && l&(1<<uint(i)) != 0
}

// Count returns the number of registers in the set.
func (l RegList) Count() int {
	return bits.OnesCount32(uint32(l))
}

func regRange(first, last int) RegList {
	var l RegList
	for i := first; i <= last; i++ {
		l |= 1 << uint(i)
	}
	return l
}

// Calling convention register sets.
var (
	AllCpuRegistersList = RegList(0xffff)
	AbiArgumentCpuRegs  = regRange(int(R0), int(R7))
	AbiPreservedCpuRegs = regRange(int(R19), int(R29))
	AvailableCpuRegs    = regRange(int(R0), int(R24))
	VolatileCpuRegs     = AvailableCpuRegs &^ AbiPreservedCpuRegs

	AbiPreservedFpuRegs = regRange(int(V8), int(V15))
	VolatileFpuRegs     = regRange(int(V0), int(V7))
)

// ConcreteRegister maps SP and ZR to their encoding index 31.
func ConcreteRegister(r Register) Register {
	if r == SP || r == ZR {
		return R31
	}
	return r
}

// Encoding returns the 5-bit field value for r.
func (r Register) Encoding() uint32 {
	return uint32(ConcreteRegister(r)) & 0x1f
}

// RegisterFromField resolves a 5-bit register field. Only index 31 depends
// on the role; 0-30 map to themselves.
func RegisterFromField(index uint32, role R31Type) Register {
	index &= 0x1f
	if index != 31 {
		return Register(index)
	}
	switch role {
	case R31IsSP:
		return SP
	case R31IsZR:
		return ZR
	default:
		return R31
	}
}

var canonicalNames = map[Register]string{
	IP0: "IP0",
	PP:  "PP", // also IP1
	CTX: "CTX",
	FP:  "FP",
	LR:  "LR",
	SP:  "SP",
	ZR:  "ZR",
}

var aliasNames = map[string]Register{
	"IP0":   IP0,
	"IP1":   IP1,
	"TMP":   TMP,
	"TMP0":  TMP0,
	"TMP1":  TMP1,
	"PP":    PP,
	"CTX":   CTX,
	"FP":    FP,
	"LR":    LR,
	"SP":    SP,
	"ZR":    ZR,
	"XZR":   ZR,
	"ICREG": ICREG,
}

// String returns the canonical alias of r, or R<n>.
func (r Register) String() string {
	if name, ok := canonicalNames[r]; ok {
		return name
	}
	if r >= R0 && r <= R31 {
		return fmt.Sprintf("R%d", int(r))
	}
	return "NoRegister"
}

// Name returns the architectural operand name: x3/w3, sp/wsp or xzr/wzr.
func (r Register) Name(is64 bool) string {
	switch r {
	case SP:
		if is64 {
			return "sp"
		}
		return "wsp"
	case ZR:
		if is64 {
			return "xzr"
		}
		return "wzr"
	}
	prefix := "w"
	if is64 {
		prefix = "x"
	}
	return fmt.Sprintf("%s%d", prefix, int(r))
}

// LookupRegister resolves a register name or alias, case-insensitively.
func LookupRegister(name string) (Register, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if r, ok := aliasNames[upper]; ok {
		return r, true
	}
	var n int
	for _, prefix := range []string{"R", "X"} {
		if strings.HasPrefix(upper, prefix) {
			if _, err := fmt.Sscanf(upper[len(prefix):], "%d", &n); err == nil &&
				fmt.Sprint(n) == upper[len(prefix):] && n >= 0 && n <= 31 {
				return Register(n), true
			}
		}
	}
	return NoRegister, false
}

// IsVolatile reports whether r is not preserved across runtime calls.
func (r Register) IsVolatile() bool {
	return VolatileCpuRegs.Contains(int(r))
}

// IsPreserved reports whether r is callee-saved under the platform ABI.
func (r Register) IsPreserved() bool {
	return AbiPreservedCpuRegs.Contains(int(r))
}

// String returns V<n>.
func (v VRegister) String() string {
	if v < V0 || v > V31 {
		return "NoVRegister"
	}
	return fmt.Sprintf("V%d", int(v))
}

// IsVolatile reports whether v is caller-saved.
func (v VRegister) IsVolatile() bool {
	return VolatileFpuRegs.Contains(int(v))
}

// IsPreserved reports whether v is callee-saved.
func (v VRegister) IsPreserved() bool {
	return AbiPreservedFpuRegs.Contains(int(v))
}
