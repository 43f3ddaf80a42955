package disasm_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/disasm"
	"github.com/sarchlab/a64/insts"
	"github.com/sarchlab/a64/loader"
)

func assemble(words ...insts.Word) []byte {
	code := make([]byte, len(words)*insts.InstrSize)
	for i, w := range words {
		insts.WriteWord(code, i*insts.InstrSize, w)
	}
	return code
}

var _ = Describe("Disassembler", func() {
	const base = 0x400000

	var (
		code = assemble(
			0xd2800540, // movz x0, #0x2a
			0x94000002, // bl helper
			0xd65f03c0, // ret
			0xd45bd600, // helper: hlt #0xdeb0
			0x00000000, // unallocated
		)
		prog = &loader.Program{Symbols: []loader.Symbol{
			{Name: "main", Addr: 0x400000, Size: 12},
			{Name: "helper", Addr: 0x40000c, Size: 8},
		}}
	)

	It("should write an objdump-style listing", func() {
		d, err := disasm.New(nil, disasm.WithSymbols(prog))
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		Expect(d.Disassemble(&out, base, code)).To(Succeed())
		Expect(out.String()).To(Equal("" +
			"\n0000000000400000 <main>:\n" +
			"  400000:\td2800540\tmovz x0, #0x2a\n" +
			"  400004:\t94000002\tbl #8\t<helper>\n" +
			"  400008:\td65f03c0\tret\n" +
			"\n000000000040000c <helper>:\n" +
			"  40000c:\td45bd600\thlt #0xdeb0\t; breakpoint\n" +
			"  400010:\t00000000\t.inst 0x00000000 ; unknown\n"))
	})

	It("should print only the text when columns are off", func() {
		config := disasm.DefaultConfig()
		config.ShowAddress = false
		config.ShowRaw = false
		config.MarkBreakpoints = false
		d, err := disasm.New(config)
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		Expect(d.Disassemble(&out, base, code)).To(Succeed())
		Expect(out.String()).To(Equal("" +
			"movz x0, #0x2a\n" +
			"bl #8\t<0x40000c>\n" +
			"ret\n" +
			"hlt #0xdeb0\n" +
			".inst 0x00000000 ; unknown\n"))
	})

	It("should print trailing bytes as data", func() {
		d, err := disasm.New(nil)
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		Expect(d.Disassemble(&out, 0x1000, append(assemble(insts.NopInstruction), 0x01, 0xff))).To(Succeed())
		Expect(out.String()).To(Equal("" +
			"    1000:\td503201f\tnop\n" +
			"    1004:\t.byte 0x01, 0xff\n"))
	})

	It("should name registers by the register model in vm syntax", func() {
		config := disasm.DefaultConfig()
		config.Syntax = disasm.SyntaxVM
		d, err := disasm.New(config)
		Expect(err).NotTo(HaveOccurred())

		// add sp, sp, #0x10
		Expect(d.Line(base, 0x910043ff).Text).To(Equal("add SP, SP, #0x10"))
		// ret
		Expect(d.Line(base, 0xd65f03c0).Text).To(Equal("ret"))
	})

	It("should add the arm64asm rendering as a reference", func() {
		config := disasm.DefaultConfig()
		config.Reference = true
		d, err := disasm.New(config)
		Expect(err).NotTo(HaveOccurred())

		line := d.Line(base, 0xd65f03c0)
		Expect(line.Reference).To(Equal("ret"))
		Expect(d.Format(line)).To(HaveSuffix("ret\t// ret"))
	})

	It("should reject an unknown syntax", func() {
		config := disasm.DefaultConfig()
		config.Syntax = "intel"

		_, err := disasm.New(config)
		Expect(err).To(MatchError(ContainSubstring("syntax")))
	})

	It("should not be affected by later config changes", func() {
		config := disasm.DefaultConfig()
		d, err := disasm.New(config)
		Expect(err).NotTo(HaveOccurred())

		config.ShowRaw = false
		Expect(d.Format(d.Line(base, 0xd65f03c0))).To(ContainSubstring("d65f03c0"))
	})

	DescribeTable("Target",
		func(pc uint64, word uint32, target uint64, ok bool) {
			inst := insts.NewDecoder().Decode(word)
			got, gotOK := disasm.Target(pc, inst)
			Expect(gotOK).To(Equal(ok))
			Expect(got).To(Equal(target))
		},
		// b #-4
		Entry("backward branch", uint64(0x1000), uint32(0x17ffffff), uint64(0xffc), true),
		// b.eq #8
		Entry("conditional branch", uint64(0x1000), uint32(0x54000040), uint64(0x1008), true),
		// adr x0, #16
		Entry("adr", uint64(0x1000), uint32(0x10000080), uint64(0x1010), true),
		// adrp x0, #4096 from the middle of a page
		Entry("adrp", uint64(0x400124), uint32(0xb0000000), uint64(0x401000), true),
		// ret
		Entry("indirect branch", uint64(0x1000), uint32(0xd65f03c0), uint64(0), false),
	)
})
