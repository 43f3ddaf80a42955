package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/insts"
)

var _ = Describe("Register Model", func() {
	It("should keep SP and ZR apart from the numbered registers", func() {
		Expect(insts.SP).NotTo(Equal(insts.ZR))
		Expect(int(insts.SP)).To(BeNumerically(">", int(insts.R31)))
		Expect(int(insts.ZR)).To(BeNumerically(">", int(insts.R31)))
		Expect(insts.NumberOfCpuRegisters).To(Equal(32))
	})

	It("should map SP and ZR to index 31", func() {
		Expect(insts.ConcreteRegister(insts.SP)).To(Equal(insts.R31))
		Expect(insts.ConcreteRegister(insts.ZR)).To(Equal(insts.R31))
		Expect(insts.ConcreteRegister(insts.R7)).To(Equal(insts.R7))
		Expect(insts.SP.Encoding()).To(Equal(uint32(31)))
		Expect(insts.LR.Encoding()).To(Equal(uint32(30)))
	})

	It("should resolve index 31 by role", func() {
		Expect(insts.RegisterFromField(31, insts.R31IsSP)).To(Equal(insts.SP))
		Expect(insts.RegisterFromField(31, insts.R31IsZR)).To(Equal(insts.ZR))
		Expect(insts.RegisterFromField(31, insts.R31IsUndef)).To(Equal(insts.R31))
		Expect(insts.RegisterFromField(5, insts.R31IsSP)).To(Equal(insts.R5))
	})

	It("should define the platform aliases", func() {
		Expect(insts.IP0).To(Equal(insts.R25))
		Expect(insts.TMP).To(Equal(insts.IP0))
		Expect(insts.IP1).To(Equal(insts.R26))
		Expect(insts.TMP1).To(Equal(insts.IP1))
		Expect(insts.PP).To(Equal(insts.R26))
		Expect(insts.CTX).To(Equal(insts.R27))
		Expect(insts.FP).To(Equal(insts.R29))
		Expect(insts.LR).To(Equal(insts.R30))
		Expect(insts.ICREG).To(Equal(insts.R5))
		Expect(insts.VTMP0).To(Equal(insts.V30))
		Expect(insts.V23).To(Equal(insts.VRegister(23)))
	})

	DescribeTable("names",
		func(r insts.Register, canonical, x, w string) {
			Expect(r.String()).To(Equal(canonical))
			Expect(r.Name(true)).To(Equal(x))
			Expect(r.Name(false)).To(Equal(w))
		},
		Entry("R0", insts.R0, "R0", "x0", "w0"),
		Entry("IP0", insts.IP0, "IP0", "x25", "w25"),
		Entry("PP", insts.R26, "PP", "x26", "w26"),
		Entry("CTX", insts.R27, "CTX", "x27", "w27"),
		Entry("R28", insts.R28, "R28", "x28", "w28"),
		Entry("LR", insts.LR, "LR", "x30", "w30"),
		Entry("SP", insts.SP, "SP", "sp", "wsp"),
		Entry("ZR", insts.ZR, "ZR", "xzr", "wzr"),
	)

	It("should look up names and aliases", func() {
		r, ok := insts.LookupRegister("lr")
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(insts.LR))

		r, ok = insts.LookupRegister("x17")
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(insts.R17))

		r, ok = insts.LookupRegister("XZR")
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(insts.ZR))

		_, ok = insts.LookupRegister("x32")
		Expect(ok).To(BeFalse())
		_, ok = insts.LookupRegister("x+1")
		Expect(ok).To(BeFalse())
	})

	It("should classify registers by calling convention", func() {
		Expect(insts.R0.IsVolatile()).To(BeTrue())
		Expect(insts.R19.IsVolatile()).To(BeFalse())
		Expect(insts.R19.IsPreserved()).To(BeTrue())
		Expect(insts.FP.IsPreserved()).To(BeTrue())
		Expect(insts.LR.IsPreserved()).To(BeFalse())
		Expect(insts.V8.IsPreserved()).To(BeTrue())
		Expect(insts.V0.IsVolatile()).To(BeTrue())
		Expect(insts.AbiArgumentCpuRegs.Count()).To(Equal(8))
		Expect(insts.AvailableCpuRegs.Contains(int(insts.R25))).To(BeFalse())
	})

	It("should invert conditions", func() {
		Expect(insts.EQ.Invert()).To(Equal(insts.NE))
		Expect(insts.LT.Invert()).To(Equal(insts.GE))
		Expect(insts.HS).To(Equal(insts.CS))
		Expect(insts.AL.Invert()).To(Equal(insts.AL))
	})
})
