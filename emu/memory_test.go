package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/emu"
	"github.com/sarchlab/a64/insts"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read unwritten memory as zero", func() {
		Expect(memory.Read64(0xFFFF_0000_0000)).To(BeZero())
		Expect(memory.Read8(0)).To(BeZero())
	})

	It("should store values little-endian", func() {
		memory.Write32(0x100, 0x11223344)

		Expect(memory.Read8(0x100)).To(Equal(byte(0x44)))
		Expect(memory.Read16(0x102)).To(Equal(uint16(0x1122)))
	})

	It("should access values across a page boundary", func() {
		memory.Write64(0xFFC, 0x0102030405060708)

		Expect(memory.Read64(0xFFC)).To(Equal(uint64(0x0102030405060708)))
		Expect(memory.Read32(0x1000)).To(Equal(uint32(0x01020304)))
	})

	It("should copy byte slices across pages", func() {
		data := make([]byte, 5000)
		for i := range data {
			data[i] = byte(i)
		}
		memory.WriteBytes(0x800, data)

		out := make([]byte, len(data))
		memory.ReadBytes(0x800, out)
		Expect(out).To(Equal(data))
	})

	It("should zero-fill segments to their memory size", func() {
		memory.Write64(0x2000, ^uint64(0))
		memory.LoadSegment(0x1FFC, []byte{1, 2, 3, 4}, 16)

		Expect(memory.Read32(0x1FFC)).To(Equal(uint32(0x04030201)))
		Expect(memory.Read64(0x2000)).To(BeZero())
	})
})

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	It("should keep SP apart from the zero register", func() {
		regFile.WriteReg(insts.SP, 0x8000)
		regFile.WriteReg(insts.ZR, 0x1234)

		Expect(regFile.ReadReg(insts.SP)).To(Equal(uint64(0x8000)))
		Expect(regFile.ReadReg(insts.ZR)).To(BeZero())
		Expect(regFile.X).To(Equal([31]uint64{}))
	})

	It("should alias LR to X30", func() {
		regFile.WriteReg(insts.LR, 0x42)

		Expect(regFile.X[30]).To(Equal(uint64(0x42)))
	})

	It("should zero-extend 32-bit writes", func() {
		regFile.WriteReg(insts.R3, ^uint64(0))
		regFile.WriteReg32(insts.R3, 0x80000000)

		Expect(regFile.ReadReg(insts.R3)).To(Equal(uint64(0x80000000)))
		Expect(regFile.ReadReg32(insts.R3)).To(Equal(uint32(0x80000000)))
	})
})

var _ = Describe("ALU", func() {
	var (
		regFile *emu.RegFile
		alu     *emu.ALU
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		alu = emu.NewALU(regFile)
	})

	It("should set carry and overflow on signed overflow", func() {
		alu.Add(insts.R0, 0x7FFFFFFF, 1, false, true)

		Expect(regFile.ReadReg(insts.R0)).To(Equal(uint64(0x80000000)))
		Expect(regFile.PSTATE).To(Equal(emu.PSTATE{N: true, V: true}))
	})

	It("should set carry on subtraction without borrow", func() {
		alu.Sub(insts.ZR, 5, 5, true, true)

		Expect(regFile.PSTATE).To(Equal(emu.PSTATE{Z: true, C: true}))
	})

	It("should leave flags alone without setFlags", func() {
		regFile.PSTATE.Z = true
		alu.Sub(insts.R1, 1, 2, true, false)

		Expect(regFile.ReadReg(insts.R1)).To(Equal(^uint64(0)))
		Expect(regFile.PSTATE).To(Equal(emu.PSTATE{Z: true}))
	})

	It("should clear C and V for flag-setting logical operations", func() {
		regFile.PSTATE = emu.PSTATE{C: true, V: true}
		alu.Logic(insts.OpAND, insts.R2, 0x8000000000000000, ^uint64(0), true, true)

		Expect(regFile.PSTATE).To(Equal(emu.PSTATE{N: true}))
	})
})
