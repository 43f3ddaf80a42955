package asm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/asm"
	"github.com/sarchlab/a64/insts"
)

// materialize computes the value a move sequence leaves in its register.
func materialize(ws []insts.Word) uint64 {
	decoder := insts.NewDecoder()
	var v uint64
	for _, w := range ws {
		inst := decoder.Decode(uint32(w))
		switch inst.Op {
		case insts.OpMOVZ:
			v = inst.Imm << inst.Shift
		case insts.OpMOVN:
			v = ^(inst.Imm << inst.Shift)
		case insts.OpMOVK:
			v = v&^(0xffff<<inst.Shift) | inst.Imm<<inst.Shift
		case insts.OpORR:
			Expect(inst.Rn).To(Equal(insts.ZR))
			v = inst.Imm
		default:
			Fail("unexpected " + inst.String())
		}
	}
	return v
}

var _ = Describe("MoveImmediate", func() {
	DescribeTable("sequences",
		func(value uint64, length int) {
			b := asm.NewBuffer(0)
			Expect(b.MoveImmediate(insts.R7, value)).To(Succeed())

			ws := words(b)
			Expect(ws).To(HaveLen(length))
			Expect(materialize(ws)).To(Equal(value))
		},
		Entry("zero", uint64(0), 1),
		Entry("low halfword", uint64(0x1234), 1),
		Entry("high halfword", uint64(0x1234)<<48, 1),
		Entry("all ones", ^uint64(0), 1),
		Entry("small negative", uint64(0xffffffffffff1234), 1),
		Entry("logical immediate", uint64(0x5555555555555555), 1),
		Entry("two halfwords", uint64(0x0000123400005678), 2),
		Entry("four halfwords", uint64(0x123456789abcdef0), 4),
	)

	It("should only move into SP through ORR", func() {
		b := asm.NewBuffer(0)
		Expect(b.MoveImmediate(insts.SP, 0x1234)).To(MatchError(insts.ErrNotEncodable))

		b = asm.NewBuffer(0)
		Expect(b.MoveImmediate(insts.SP, 0x00ff00ff00ff00ff)).To(Succeed())
		inst := insts.NewDecoder().Decode(uint32(words(b)[0]))
		Expect(inst.Op).To(Equal(insts.OpORR))
		Expect(inst.Rd).To(Equal(insts.SP))
	})
})
