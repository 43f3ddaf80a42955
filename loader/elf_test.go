package loader_test

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64/loader"
)

// progHeader describes one program header written by writeELF.
type progHeader struct {
	typ     elf.ProgType
	flags   elf.ProgFlag
	vaddr   uint64
	data    []byte
	memSize uint64
}

// writeELF writes an ELF image with program headers only. A 32-bit class
// writes just the file header.
func writeELF(path string, class elf.Class, machine elf.Machine, entry uint64, progs ...progHeader) {
	const (
		ehsize    = 64
		phentsize = 56
	)

	if class == elf.ELFCLASS32 {
		hdr := make([]byte, 52)
		copy(hdr, elf.ELFMAG)
		hdr[elf.EI_CLASS] = byte(elf.ELFCLASS32)
		hdr[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
		hdr[elf.EI_VERSION] = byte(elf.EV_CURRENT)
		binary.LittleEndian.PutUint16(hdr[16:], uint16(elf.ET_EXEC))
		binary.LittleEndian.PutUint16(hdr[18:], uint16(machine))
		binary.LittleEndian.PutUint32(hdr[20:], uint32(elf.EV_CURRENT))
		Expect(os.WriteFile(path, hdr, 0644)).To(Succeed())
		return
	}

	img := make([]byte, ehsize+phentsize*len(progs))
	copy(img, elf.ELFMAG)
	img[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	img[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	img[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	binary.LittleEndian.PutUint16(img[16:], uint16(elf.ET_EXEC))
	binary.LittleEndian.PutUint16(img[18:], uint16(machine))
	binary.LittleEndian.PutUint32(img[20:], uint32(elf.EV_CURRENT))
	binary.LittleEndian.PutUint64(img[24:], entry)
	binary.LittleEndian.PutUint64(img[32:], ehsize) // phoff
	binary.LittleEndian.PutUint16(img[52:], ehsize)
	binary.LittleEndian.PutUint16(img[54:], phentsize)
	binary.LittleEndian.PutUint16(img[56:], uint16(len(progs)))

	for i, p := range progs {
		ph := img[ehsize+i*phentsize:]
		memSize := p.memSize
		if memSize == 0 {
			memSize = uint64(len(p.data))
		}
		binary.LittleEndian.PutUint32(ph[0:], uint32(p.typ))
		binary.LittleEndian.PutUint32(ph[4:], uint32(p.flags))
		binary.LittleEndian.PutUint64(ph[8:], uint64(len(img))) // offset
		binary.LittleEndian.PutUint64(ph[16:], p.vaddr)
		binary.LittleEndian.PutUint64(ph[24:], p.vaddr) // paddr
		binary.LittleEndian.PutUint64(ph[32:], uint64(len(p.data)))
		binary.LittleEndian.PutUint64(ph[40:], memSize)
		binary.LittleEndian.PutUint64(ph[48:], 0x1000) // align
		img = append(img, p.data...)
	}

	Expect(os.WriteFile(path, img, 0644)).To(Succeed())
}

var _ = Describe("ELF Loader", func() {
	var (
		tempDir string
		elfPath string
		code    = []byte{
			0x40, 0x05, 0x80, 0xd2, // movz x0, #0x2a
			0xc0, 0x03, 0x5f, 0xd6, // ret
		}
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		elfPath = filepath.Join(tempDir, "test.elf")
	})

	segment := func(prog *loader.Program, vaddr uint64) loader.Segment {
		for _, seg := range prog.Segments {
			if seg.VirtAddr == vaddr {
				return seg
			}
		}
		Fail("no segment at the address")
		return loader.Segment{}
	}

	Describe("Load", func() {
		It("should load a code segment", func() {
			writeELF(elfPath, elf.ELFCLASS64, elf.EM_AARCH64, 0x400080,
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_X, vaddr: 0x400000, data: code})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x400080)))
			Expect(prog.InitialSP).To(Equal(uint64(loader.DefaultStackTop)))
			Expect(prog.Segments).To(Equal([]loader.Segment{{
				VirtAddr: 0x400000,
				Data:     code,
				MemSize:  uint64(len(code)),
				Flags:    loader.SegmentFlagRead | loader.SegmentFlagExecute,
			}}))
		})

		It("should load code and data segments", func() {
			data := []byte{0x01, 0x02, 0x03, 0x04}
			writeELF(elfPath, elf.ELFCLASS64, elf.EM_AARCH64, 0x400000,
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_X, vaddr: 0x400000, data: code},
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_W, vaddr: 0x600000, data: data})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))
			Expect(segment(prog, 0x400000).Data).To(Equal(code))
			dataSeg := segment(prog, 0x600000)
			Expect(dataSeg.Data).To(Equal(data))
			Expect(dataSeg.Flags).To(Equal(loader.SegmentFlagRead | loader.SegmentFlagWrite))
		})

		It("should keep the memory size of BSS segments", func() {
			writeELF(elfPath, elf.ELFCLASS64, elf.EM_AARCH64, 0x400000,
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_W, vaddr: 0x600000, data: []byte{1, 2, 3, 4}, memSize: 1024},
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_W, vaddr: 0x700000, memSize: 4096})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(segment(prog, 0x600000).Data).To(Equal([]byte{1, 2, 3, 4}))
			Expect(segment(prog, 0x600000).MemSize).To(Equal(uint64(1024)))
			Expect(segment(prog, 0x700000).Data).To(BeEmpty())
			Expect(segment(prog, 0x700000).MemSize).To(Equal(uint64(4096)))
		})

		It("should skip headers that are not PT_LOAD", func() {
			writeELF(elfPath, elf.ELFCLASS64, elf.EM_AARCH64, 0x400000,
				progHeader{typ: elf.PT_NOTE, flags: elf.PF_R, vaddr: 0x400000, data: []byte{0, 0, 0, 0}})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(BeEmpty())
			Expect(prog.TextSections).To(BeEmpty())
			Expect(prog.EntryPoint).To(Equal(uint64(0x400000)))
		})

		It("should use executable segments as text without section headers", func() {
			writeELF(elfPath, elf.ELFCLASS64, elf.EM_AARCH64, 0x400000,
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_X, vaddr: 0x400000, data: code},
				progHeader{typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_W, vaddr: 0x600000, data: []byte{1, 2, 3, 4}})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.TextSections).To(Equal([]loader.Section{
				{Name: "LOAD@0x400000", Addr: 0x400000, Data: code},
			}))
			Expect(prog.Symbols).To(BeEmpty())
		})
	})

	Describe("Load errors", func() {
		It("should fail on a missing file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.elf"))

			Expect(err).To(MatchError(ContainSubstring("failed to open")))
		})

		It("should fail on a file that is not ELF", func() {
			Expect(os.WriteFile(elfPath, []byte("not an elf file"), 0644)).To(Succeed())

			_, err := loader.Load(elfPath)

			Expect(err).To(MatchError(ContainSubstring("ELF")))
		})

		It("should fail on an empty file", func() {
			Expect(os.WriteFile(elfPath, nil, 0644)).To(Succeed())

			_, err := loader.Load(elfPath)

			Expect(err).To(HaveOccurred())
		})

		It("should reject other machines", func() {
			writeELF(elfPath, elf.ELFCLASS64, elf.EM_X86_64, 0)

			_, err := loader.Load(elfPath)

			Expect(err).To(MatchError(ContainSubstring("not an ARM64")))
		})

		It("should reject 32-bit files", func() {
			writeELF(elfPath, elf.ELFCLASS32, elf.EM_AARCH64, 0)

			_, err := loader.Load(elfPath)

			Expect(err).To(MatchError(ContainSubstring("not a 64-bit")))
		})
	})
})
