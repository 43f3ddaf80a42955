package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/a64/insts"
)

// Errors reported in StepResult.Err.
var (
	ErrMaxInstructions = errors.New("max instructions reached")
	ErrUndefined       = errors.New("undefined instruction")
	ErrUnsupported     = errors.New("unsupported instruction")
	ErrTrap            = errors.New("BRK trap")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall or BRK).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Breakpoint is true if execution stopped at the debugger breakpoint.
	// PC still points at the breakpoint.
	Breakpoint bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes ARM64 instructions functionally.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	decoder        *insts.Decoder
	inst           insts.Instruction
	syscallHandler SyscallHandler

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// I/O
	stdout io.Writer
	stderr io.Writer

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.SP = sp
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithMemory runs the emulator on an existing memory.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// NewEmulator creates a new ARM64 emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	// Apply options first (may set stdout/stderr or memory)
	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.memory)
	e.branchUnit = NewBranchUnit(e.regFile)

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(e.regFile, e.memory, e.stdout, e.stderr)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram loads program bytes at entry and sets the PC to it.
func (e *Emulator) LoadProgram(entry uint64, program []byte) {
	e.memory.LoadProgram(entry, program)
	e.regFile.PC = entry
}

// Fetch returns the instruction word at PC.
func (e *Emulator) Fetch() insts.Word {
	return insts.Word(e.memory.Read32(e.regFile.PC))
}

// Step executes a single instruction.
// Returns a StepResult indicating whether execution should continue.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	e.decoder.DecodeInto(uint32(e.Fetch()), &e.inst)

	result := e.execute(&e.inst)
	if result.Err == nil && !result.Breakpoint {
		e.instructionCount++
	}

	return result
}

// Run executes instructions until the program exits, stops at a
// breakpoint, or fails. Returns the exit code (-1 if it did not exit).
func (e *Emulator) Run() int64 {
	for {
		result := e.Step()
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return -1
		}
		if result.Exited {
			return result.ExitCode
		}
		if result.Breakpoint {
			_, _ = fmt.Fprintf(e.stderr, "Breakpoint at PC=0x%X\n", e.regFile.PC)
			return -1
		}
	}
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	pc := e.regFile.PC

	switch inst.Op {
	case insts.OpUnknown, insts.OpInvalid:
		return StepResult{
			Err: fmt.Errorf("%w 0x%08x at PC=0x%X", ErrUndefined, uint32(inst.Raw), pc),
		}

	case insts.OpSVC:
		return e.executeSVC()

	case insts.OpBRK:
		return StepResult{
			Exited:   true,
			ExitCode: -1,
			Err:      fmt.Errorf("%w #0x%X at PC=0x%X", ErrTrap, inst.Imm, pc),
		}

	case insts.OpHLT:
		if inst.Raw.IsBreakPoint() {
			return StepResult{Breakpoint: true}
		}
		return StepResult{
			Err: fmt.Errorf("%w: hlt #0x%X at PC=0x%X", ErrUnsupported, inst.Imm, pc),
		}

	case insts.OpHINT:
		// Hints have no architectural effect here.

	case insts.OpADD, insts.OpSUB:
		e.executeAddSub(inst)

	case insts.OpAND, insts.OpBIC, insts.OpORR, insts.OpORN, insts.OpEOR, insts.OpEON:
		e.alu.Logic(inst.Op, inst.Rd, e.regFile.ReadReg(inst.Rn), e.operand2(inst), inst.Is64Bit, inst.SetFlags)

	case insts.OpMOVZ, insts.OpMOVN, insts.OpMOVK:
		e.executeMoveWide(inst)

	case insts.OpADR:
		e.regFile.WriteReg(inst.Rd, pc+uint64(inst.BranchOffset))
	case insts.OpADRP:
		e.regFile.WriteReg(inst.Rd, pc&^0xfff+uint64(inst.BranchOffset))

	case insts.OpLDR, insts.OpLDRS:
		addr := e.lsu.Address(inst)
		e.lsu.Load(inst.Rd, addr, inst.Size, inst.Signed, inst.Is64Bit)
	case insts.OpSTR:
		addr := e.lsu.Address(inst)
		e.lsu.Store(inst.Rd, addr, inst.Size)

	default:
		if e.executeBranch(inst) {
			return StepResult{} // PC already updated by branch
		}
		return StepResult{
			Err: fmt.Errorf("%w %v at PC=0x%X", ErrUnsupported, inst.Op, pc),
		}
	}

	// Advance PC by 4 (for non-branch instructions)
	e.regFile.PC += insts.InstrSize

	return StepResult{}
}

// executeSVC handles the SVC (supervisor call) instruction.
func (e *Emulator) executeSVC() StepResult {
	// Syscall return address is the next instruction.
	e.regFile.PC += insts.InstrSize

	syscallResult := e.syscallHandler.Handle()

	return StepResult{
		Exited:   syscallResult.Exited,
		ExitCode: syscallResult.ExitCode,
	}
}

// operand2 returns the second source operand: an immediate, a shifted
// register, or an extended register.
func (e *Emulator) operand2(inst *insts.Instruction) uint64 {
	switch inst.Operand {
	case insts.OperandShifted:
		rm := e.regFile.ReadReg(inst.Rm)
		if inst.Is64Bit {
			return applyShift64(rm, inst.ShiftType, inst.ShiftAmount)
		}
		return uint64(applyShift32(uint32(rm), inst.ShiftType, inst.ShiftAmount))
	case insts.OperandExtended:
		return applyExtend(e.regFile.ReadReg(inst.Rm), inst.Extend, inst.ExtendAmount)
	}
	return inst.Imm << inst.Shift
}

// executeAddSub executes ADD, ADDS, SUB and SUBS in all operand forms.
func (e *Emulator) executeAddSub(inst *insts.Instruction) {
	op1 := e.regFile.ReadReg(inst.Rn)
	op2 := e.operand2(inst)
	if inst.Op == insts.OpADD {
		e.alu.Add(inst.Rd, op1, op2, inst.Is64Bit, inst.SetFlags)
	} else {
		e.alu.Sub(inst.Rd, op1, op2, inst.Is64Bit, inst.SetFlags)
	}
}

// executeMoveWide executes MOVZ, MOVN and MOVK.
func (e *Emulator) executeMoveWide(inst *insts.Instruction) {
	imm := inst.Imm << inst.Shift

	var result uint64
	switch inst.Op {
	case insts.OpMOVZ:
		result = imm
	case insts.OpMOVN:
		result = ^imm
	case insts.OpMOVK:
		old := e.regFile.ReadReg(inst.Rd)
		result = old&^(0xffff<<inst.Shift) | imm
	}
	e.regFile.write(inst.Rd, result, inst.Is64Bit)
}

// executeBranch executes the branch instructions and reports whether inst
// was one. Conditional branches not taken fall through to the next
// instruction.
func (e *Emulator) executeBranch(inst *insts.Instruction) bool {
	taken := true
	switch inst.Op {
	case insts.OpB:
		e.branchUnit.B(inst.BranchOffset)
	case insts.OpBL:
		e.branchUnit.BL(inst.BranchOffset)
	case insts.OpBCond:
		taken = e.branchUnit.BCond(inst.BranchOffset, inst.Cond)
	case insts.OpCBZ, insts.OpCBNZ:
		taken = e.branchUnit.CBZ(inst.Rd, inst.Is64Bit, inst.BranchOffset, inst.Op == insts.OpCBNZ)
	case insts.OpTBZ, insts.OpTBNZ:
		taken = e.branchUnit.TBZ(inst.Rd, inst.TestBit, inst.BranchOffset, inst.Op == insts.OpTBNZ)
	case insts.OpBR:
		e.branchUnit.BR(inst.Rn)
	case insts.OpBLR:
		e.branchUnit.BLR(inst.Rn)
	case insts.OpRET:
		e.branchUnit.RET(inst.Rn)
	default:
		return false
	}
	if !taken {
		e.regFile.PC += insts.InstrSize
	}
	return true
}
