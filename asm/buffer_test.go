package asm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/asm"
	"github.com/sarchlab/a64/insts"
)

func words(b *asm.Buffer) []insts.Word {
	var out []insts.Word
	for off := 0; off < b.Len(); off += insts.InstrSize {
		w, err := b.ReadWord(off)
		Expect(err).NotTo(HaveOccurred())
		out = append(out, w)
	}
	return out
}

var _ = Describe("Buffer", func() {
	var (
		b       *asm.Buffer
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		b = asm.NewBuffer(16)
		decoder = insts.NewDecoder()
	})

	It("should store words little-endian", func() {
		b.Nop()

		Expect(b.Bytes()).To(Equal([]byte{0x1f, 0x20, 0x03, 0xd5}))
	})

	It("should grow past its size hint", func() {
		for i := 0; i < 10; i++ {
			Expect(b.EmitWord(insts.Word(i))).To(Equal(4 * i))
		}

		Expect(b.Len()).To(Equal(40))
		Expect(words(b)[9]).To(Equal(insts.Word(9)))
	})

	It("should be usable as a zero value", func() {
		var zero asm.Buffer
		zero.Breakpoint()

		Expect(words(&zero)).To(Equal([]insts.Word{insts.BreakPointInstruction}))
	})

	It("should encode instructions", func() {
		err := b.Emit(&insts.Instruction{
			Op: insts.OpADD, Format: insts.FormatDPImm, Is64Bit: true,
			Rd: insts.R0, Rn: insts.R1, Imm: 42,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(words(b)).To(Equal([]insts.Word{0x9100A820}))
	})

	It("should report encoding errors without emitting", func() {
		err := b.Emit(&insts.Instruction{
			Op: insts.OpADD, Format: insts.FormatDPImm, Is64Bit: true,
			Rd: insts.ZR, Rn: insts.R1,
		})

		Expect(err).To(MatchError(insts.ErrNotEncodable))
		Expect(b.Len()).To(BeZero())
	})

	It("should pad to an alignment with no-ops", func() {
		b.Breakpoint()
		b.Align(16)

		Expect(b.Len()).To(Equal(16))
		Expect(words(b)[3]).To(Equal(insts.NopInstruction))
	})

	It("should patch words in place", func() {
		b.Nop()
		b.Nop()

		Expect(b.Patch(4, insts.BreakPointInstruction)).To(Succeed())
		Expect(words(b)).To(Equal([]insts.Word{insts.NopInstruction, insts.BreakPointInstruction}))
	})

	It("should reject patches outside the code", func() {
		b.Nop()

		Expect(b.Patch(4, 0)).To(MatchError(asm.ErrBadOffset))
		Expect(b.Patch(2, 0)).To(MatchError(asm.ErrBadOffset))
		Expect(b.Patch(-4, 0)).To(MatchError(asm.ErrBadOffset))
	})

	Describe("Labels", func() {
		It("should patch forward branches on Finalize", func() {
			l := b.NewLabel()
			Expect(b.Branch(&insts.Instruction{Op: insts.OpB}, l)).To(Succeed())
			b.Nop()
			b.Nop()
			Expect(b.Bind(l)).To(Succeed())
			b.Breakpoint()

			Expect(b.Finalize()).To(Succeed())
			Expect(words(b)[0]).To(Equal(insts.Word(0x14000003)))
		})

		It("should resolve backward branches at once", func() {
			l := b.NewLabel()
			Expect(b.Bind(l)).To(Succeed())
			b.Nop()
			Expect(b.Branch(&insts.Instruction{Op: insts.OpCBZ, Is64Bit: true, Rd: insts.R0}, l)).To(Succeed())

			inst := decoder.Decode(uint32(words(b)[1]))
			Expect(inst.Op).To(Equal(insts.OpCBZ))
			Expect(inst.BranchOffset).To(Equal(int64(-4)))
		})

		It("should keep the condition of a conditional branch", func() {
			l := b.NewLabel()
			Expect(b.Branch(&insts.Instruction{Op: insts.OpBCond, Cond: insts.NE}, l)).To(Succeed())
			Expect(b.Bind(l)).To(Succeed())
			Expect(b.Finalize()).To(Succeed())

			inst := decoder.Decode(uint32(words(b)[0]))
			Expect(inst.Cond).To(Equal(insts.NE))
			Expect(inst.BranchOffset).To(Equal(int64(4)))
		})

		It("should address labels with ADR", func() {
			l := b.NewLabel()
			Expect(b.Branch(&insts.Instruction{Op: insts.OpADR, Rd: insts.R3}, l)).To(Succeed())
			b.Nop()
			Expect(b.Bind(l)).To(Succeed())
			Expect(b.Finalize()).To(Succeed())

			inst := decoder.Decode(uint32(words(b)[0]))
			Expect(inst.Op).To(Equal(insts.OpADR))
			Expect(inst.Rd).To(Equal(insts.R3))
			Expect(inst.BranchOffset).To(Equal(int64(8)))
		})

		It("should fail on unbound labels", func() {
			l := b.NewLabel()
			Expect(b.Branch(&insts.Instruction{Op: insts.OpBL}, l)).To(Succeed())

			Expect(b.Finalize()).To(MatchError(asm.ErrUnboundLabel))
		})

		It("should not bind a label twice", func() {
			l := b.NewLabel()
			Expect(b.Bind(l)).To(Succeed())

			Expect(b.Bind(l)).To(MatchError(asm.ErrLabelBound))
		})

		It("should refuse ops without a label form", func() {
			err := b.Branch(&insts.Instruction{Op: insts.OpBR, Rn: insts.R0}, b.NewLabel())

			Expect(err).To(MatchError(asm.ErrNotBranch))
		})

		It("should report targets out of range", func() {
			l := b.NewLabel()
			Expect(b.Branch(&insts.Instruction{Op: insts.OpTBZ, Rd: insts.R0, TestBit: 3}, l)).To(Succeed())
			for i := 0; i < 8192; i++ {
				b.Nop()
			}
			Expect(b.Bind(l)).To(Succeed())

			Expect(b.Finalize()).To(MatchError(insts.ErrNotEncodable))
		})

		It("should drop a backward branch that is out of range", func() {
			l := b.NewLabel()
			Expect(b.Bind(l)).To(Succeed())
			for i := 0; i < 8193; i++ {
				b.Nop()
			}
			size := b.Len()

			err := b.Branch(&insts.Instruction{Op: insts.OpTBZ, Rd: insts.R0, TestBit: 3}, l)

			Expect(err).To(MatchError(insts.ErrNotEncodable))
			Expect(b.Len()).To(Equal(size))
			Expect(b.Finalize()).To(Succeed())
		})
	})
})
