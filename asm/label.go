package asm

import (
	"fmt"

	"github.com/sarchlab/a64/insts"
)

// NewLabel returns a fresh unbound label.
func (b *Buffer) NewLabel() Label {
	b.labels = append(b.labels, unbound)
	return Label(len(b.labels) - 1)
}

// Bind binds l to the current end of the buffer.
func (b *Buffer) Bind(l Label) error {
	if b.labels[l] != unbound {
		return fmt.Errorf("%w: label %d at %#x", ErrLabelBound, l, b.labels[l])
	}
	b.labels[l] = len(b.code)
	return nil
}

// Offset returns the offset l is bound to.
func (b *Buffer) Offset(l Label) (int, bool) {
	off := b.labels[l]
	return off, off != unbound
}

// Branch appends inst with its offset pointing at l. inst must be one of B,
// BL, B.cond, CBZ, CBNZ, TBZ, TBNZ or ADR; its BranchOffset is ignored.
// Backward branches are resolved at once, forward ones by Finalize.
func (b *Buffer) Branch(inst *insts.Instruction, l Label) error {
	switch inst.Op {
	case insts.OpB, insts.OpBL, insts.OpBCond, insts.OpCBZ, insts.OpCBNZ,
		insts.OpTBZ, insts.OpTBNZ, insts.OpADR:
	default:
		return fmt.Errorf("%w: %v", ErrNotBranch, inst.Op)
	}

	placeholder := *inst
	placeholder.BranchOffset = 0
	w, err := insts.Encode(&placeholder)
	if err != nil {
		return fmt.Errorf("emitting %v at %#x: %w", inst.Op, len(b.code), err)
	}

	offset := b.EmitWord(w)
	if target, ok := b.Offset(l); ok {
		if err := b.resolve(offset, target); err != nil {
			b.code = b.code[:offset]
			return err
		}
		return nil
	}
	b.fixups = append(b.fixups, fixup{offset: offset, label: l})
	return nil
}

func (b *Buffer) resolve(offset, target int) error {
	w := insts.ReadWord(b.code, offset)
	patched, err := insts.SetBranchOffset(w, int64(target-offset))
	if err != nil {
		return fmt.Errorf("branch at %#x to %#x: %w", offset, target, err)
	}
	insts.WriteWord(b.code, offset, patched)
	return nil
}

// Finalize patches every forward branch. It fails if a label is still
// unbound or a target is out of range of its branch.
func (b *Buffer) Finalize() error {
	for _, f := range b.fixups {
		target, ok := b.Offset(f.label)
		if !ok {
			return fmt.Errorf("%w: label %d used at %#x", ErrUnboundLabel, f.label, f.offset)
		}
		if err := b.resolve(f.offset, target); err != nil {
			return err
		}
	}
	b.fixups = b.fixups[:0]
	return nil
}
