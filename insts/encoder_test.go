package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/insts"
)

// sampleWords are canonical encodings of every decoded operation.
var sampleWords = []uint32{
	0x9100A820, // add x0, x1, #42
	0x11019020, // add w0, w1, #100
	0xB1002862, // adds x2, x3, #10
	0x91400420, // add x0, x1, #1, lsl #12
	0xD10050C5, // sub x5, x6, #20
	0xF1001549, // subs x9, x10, #5
	0x910043FF, // add sp, sp, #16
	0xB10007FF, // adds xzr, sp, #1
	0x8B020020, // add x0, x1, x2
	0x8B020C20, // add x0, x1, x2, lsl #3
	0x8B820C20, // add x0, x1, x2, asr #3
	0x0B050083, // add w3, w4, w5
	0xEB11020F, // subs x15, x16, x17
	0x8B214BE0, // add x0, sp, w1, uxtw #2
	0xAB214BE0, // adds x0, sp, w1, uxtw #2
	0x8A020020, // and x0, x1, x2
	0x8A220020, // bic x0, x1, x2
	0xAA0B0149, // orr x9, x10, x11
	0xAA220020, // orn x0, x1, x2
	0xCA11020F, // eor x15, x16, x17
	0xCA220020, // eon x0, x1, x2
	0xEA0800E6, // ands x6, x7, x8
	0xEA220020, // bics x0, x1, x2
	0x8AC20C20, // and x0, x1, x2, ror #3
	0xAA0103E0, // orr x0, xzr, x1
	0x92401C1F, // and sp, x0, #0xff
	0xB2401C1F, // orr sp, x0, #0xff
	0xF2401C1F, // ands xzr, x0, #0xff
	0x3200F3E0, // orr w0, wzr, #0x55555555
	0xD2A24680, // movz x0, #0x1234, lsl #16
	0x729FFFE1, // movk w1, #0xffff
	0x92800000, // movn x0, #0
	0x10FFFFE0, // adr x0, #-4
	0xB0000001, // adrp x1, #4096
	0x14000040, // b #256
	0x17FFFFFE, // b #-8
	0x94000080, // bl #512
	0x54000101, // b.ne #32
	0xB4000040, // cbz x0, #8
	0x35FFFFE1, // cbnz w1, #-4
	0xB6080082, // tbz x2, #33, #16
	0x3707FFC3, // tbnz w3, #0, #-8
	0xD61F03C0, // br x30
	0xD63F0140, // blr x10
	0xD65F03C0, // ret
	0xD4000001, // svc #0
	0xD4200000, // brk #0
	0xD45BD600, // hlt #0xdeb0
	0xD503201F, // nop
	0xD503203F, // yield
	0xF94007E0, // ldr x0, [sp, #8]
	0xB81FCC41, // str w1, [x2, #-4]!
	0xB8808483, // ldrsw x3, [x4], #8
	0xF86778C5, // ldr x5, [x6, x7, lsl #3]
	0x385FF020, // ldurb w0, [x1, #-1]
	0x39C00020, // ldrsb w0, [x1]
}

var _ = Describe("Encoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	It("should invert the decoder on every sample word", func() {
		for _, word := range sampleWords {
			inst := decoder.Decode(word)
			Expect(inst.Op).NotTo(Equal(insts.OpUnknown), "%#08x", word)

			got, err := insts.Encode(inst)
			Expect(err).NotTo(HaveOccurred(), "%#08x", word)
			Expect(uint32(got)).To(Equal(word), "%#08x: %v", word, inst)
		}
	})

	It("should round trip the canonical no-op", func() {
		w, err := insts.Encode(decoder.Decode(uint32(insts.NopInstruction)))

		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(insts.NopInstruction))
	})

	It("should build words from semantic fields", func() {
		w, err := insts.Encode(&insts.Instruction{
			Op:      insts.OpADD,
			Format:  insts.FormatDPImm,
			Is64Bit: true,
			Rd:      insts.SP,
			Rn:      insts.SP,
			Imm:     16,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(insts.Word(0x910043FF)))
	})

	DescribeTable("operands that cannot be encoded",
		func(inst insts.Instruction) {
			_, err := insts.Encode(&inst)
			Expect(err).To(MatchError(insts.ErrNotEncodable))
		},
		Entry("ZR as add immediate destination", insts.Instruction{
			Op: insts.OpADD, Format: insts.FormatDPImm, Is64Bit: true, Rd: insts.ZR, Rn: insts.R1,
		}),
		Entry("SP as shifted register source", insts.Instruction{
			Op: insts.OpORR, Format: insts.FormatDPReg, Is64Bit: true, Rd: insts.R0, Rn: insts.SP, Rm: insts.R1,
		}),
		Entry("SP as ANDS destination", insts.Instruction{
			Op: insts.OpAND, Format: insts.FormatLogicalImm, SetFlags: true, Is64Bit: true,
			Rd: insts.SP, Rn: insts.R0, Imm: 0xff,
		}),
		Entry("add immediate too wide", insts.Instruction{
			Op: insts.OpADD, Format: insts.FormatDPImm, Is64Bit: true, Rd: insts.R0, Rn: insts.R1, Imm: 0x1000,
		}),
		Entry("value with no logical immediate", insts.Instruction{
			Op: insts.OpAND, Format: insts.FormatLogicalImm, Is64Bit: true, Rd: insts.R0, Rn: insts.R1, Imm: 0x1234,
		}),
		Entry("unaligned branch", insts.Instruction{Op: insts.OpB, BranchOffset: 3}),
		Entry("branch out of range", insts.Instruction{Op: insts.OpB, BranchOffset: 1 << 27}),
		Entry("conditional branch out of range", insts.Instruction{
			Op: insts.OpBCond, Cond: insts.EQ, BranchOffset: 1 << 20,
		}),
		Entry("misaligned scaled offset", insts.Instruction{
			Op: insts.OpLDR, Size: 3, Rd: insts.R0, Rn: insts.R1, AddrMode: insts.AddrUnsignedOffset, Offset: 4,
		}),
		Entry("32-bit move wide shifted by 32", insts.Instruction{
			Op: insts.OpMOVZ, Rd: insts.R0, Imm: 1, Shift: 32,
		}),
		Entry("missing register", insts.Instruction{
			Op: insts.OpBR, Rn: insts.NoRegister,
		}),
	)

	It("should reject operations it cannot build", func() {
		_, err := insts.Encode(&insts.Instruction{Op: insts.OpUnknown})
		Expect(err).To(MatchError(insts.ErrUnsupportedOp))

		_, err = insts.Encode(&insts.Instruction{Op: insts.OpLDR, Vector: true})
		Expect(err).To(MatchError(insts.ErrUnsupportedOp))
	})

	DescribeTable("SetBranchOffset",
		func(word uint32, offset int64, want uint32) {
			got, err := insts.SetBranchOffset(insts.Word(word), offset)
			Expect(err).NotTo(HaveOccurred())
			Expect(uint32(got)).To(Equal(want))
			Expect(decoder.Decode(uint32(got)).BranchOffset).To(Equal(offset))
		},
		Entry("b", uint32(0x14000000), int64(256), uint32(0x14000040)),
		Entry("b backward", uint32(0x14000040), int64(-8), uint32(0x17FFFFFE)),
		Entry("cbz", uint32(0xB4000000), int64(8), uint32(0xB4000040)),
		Entry("b.ne", uint32(0x54000001), int64(32), uint32(0x54000101)),
		Entry("tbz", uint32(0xB6080002), int64(16), uint32(0xB6080082)),
		Entry("adr", uint32(0x10000000), int64(-4), uint32(0x10FFFFE0)),
		Entry("adrp", uint32(0x90000001), int64(4096), uint32(0xB0000001)),
	)

	It("should refuse to patch words without an offset", func() {
		_, err := insts.SetBranchOffset(0x9100A820, 8)
		Expect(err).To(MatchError(insts.ErrNotEncodable))

		_, err = insts.SetBranchOffset(0x54000000, 1<<20)
		Expect(err).To(MatchError(insts.ErrNotEncodable))
	})
})
