// Package asm writes ARM64 instruction words into a code buffer.
//
// Words are appended in order. Branches may name a Label that is bound
// later; Finalize patches each such branch once every label has an offset.
// Code already emitted is only modified through Patch and Finalize, both of
// which rewrite whole words in place.
package asm

import (
	"errors"
	"fmt"

	"github.com/sarchlab/a64/insts"
)

// Buffer errors.
var (
	ErrUnboundLabel = errors.New("asm: label not bound")
	ErrLabelBound   = errors.New("asm: label already bound")
	ErrBadOffset    = errors.New("asm: offset outside the buffer")
	ErrNotBranch    = errors.New("asm: op cannot target a label")
)

// Label names a code offset that may not be known yet.
type Label int

const unbound = -1

type fixup struct {
	offset int
	label  Label
}

// Buffer is a variable-capacity code buffer. The zero value is a valid,
// empty buffer.
type Buffer struct {
	code   []byte
	labels []int
	fixups []fixup
}

// NewBuffer returns a buffer with room for sizeHint bytes.
func NewBuffer(sizeHint int) *Buffer {
	return &Buffer{code: make([]byte, 0, sizeHint)}
}

// Len returns the number of bytes emitted so far.
func (b *Buffer) Len() int {
	return len(b.code)
}

// Bytes returns the code. Branches to unbound labels still hold a zero
// offset until Finalize succeeds.
func (b *Buffer) Bytes() []byte {
	return b.code
}

func (b *Buffer) extend(n int) []byte {
	offset := len(b.code)
	size := offset + n
	if size > cap(b.code) {
		newBuf := make([]byte, size, cap(b.code)*2+n)
		copy(newBuf, b.code)
		b.code = newBuf
	} else {
		b.code = b.code[:size]
	}
	return b.code[offset:]
}

// EmitWord appends w and returns its offset.
func (b *Buffer) EmitWord(w insts.Word) int {
	offset := len(b.code)
	b.extend(insts.InstrSize)
	insts.WriteWord(b.code, offset, w)
	return offset
}

// Emit encodes inst and appends it.
func (b *Buffer) Emit(inst *insts.Instruction) error {
	w, err := insts.Encode(inst)
	if err != nil {
		return fmt.Errorf("emitting %v at %#x: %w", inst.Op, len(b.code), err)
	}
	b.EmitWord(w)
	return nil
}

// Nop appends the canonical no-op.
func (b *Buffer) Nop() {
	b.EmitWord(insts.NopInstruction)
}

// Breakpoint appends the debugger breakpoint.
func (b *Buffer) Breakpoint() {
	b.EmitWord(insts.BreakPointInstruction)
}

// Align pads the buffer with no-ops to a multiple of n bytes. n must be a
// power of two no smaller than the instruction size.
func (b *Buffer) Align(n int) {
	if n < insts.InstrSize || n&(n-1) != 0 {
		panic(fmt.Sprintf("asm: bad alignment %d", n))
	}
	for len(b.code)&(n-1) != 0 {
		b.Nop()
	}
}

// ReadWord returns the word at offset.
func (b *Buffer) ReadWord(offset int) (insts.Word, error) {
	if err := b.checkOffset(offset); err != nil {
		return 0, err
	}
	return insts.ReadWord(b.code, offset), nil
}

// Patch replaces the word at offset.
func (b *Buffer) Patch(offset int, w insts.Word) error {
	if err := b.checkOffset(offset); err != nil {
		return err
	}
	insts.WriteWord(b.code, offset, w)
	return nil
}

func (b *Buffer) checkOffset(offset int) error {
	if offset < 0 || offset%insts.InstrSize != 0 || offset+insts.InstrSize > len(b.code) {
		return fmt.Errorf("%w: %#x", ErrBadOffset, offset)
	}
	return nil
}
