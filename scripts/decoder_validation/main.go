// Validate the decoder: allocation-free decoding and agreement with the
// x/arch reference disassembler on random words.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"slices"
	"time"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/sarchlab/a64/insts"
)

var (
	samples = flag.Int("samples", 1000000, "random words to cross-check")
	seed    = flag.Uint64("seed", 1, "random seed")
	show    = flag.Int("show", 20, "mismatches to print")
)

// referenceNames lists the x/arch mnemonics, aliases included, that each
// decoded operation may print as.
var referenceNames = map[insts.Op][]string{
	insts.OpADD:   {"ADD", "ADDS", "MOV", "CMN"},
	insts.OpSUB:   {"SUB", "SUBS", "CMP", "NEG", "NEGS"},
	insts.OpAND:   {"AND", "ANDS", "TST"},
	insts.OpBIC:   {"BIC", "BICS"},
	insts.OpORR:   {"ORR", "MOV"},
	insts.OpORN:   {"ORN", "MVN"},
	insts.OpEOR:   {"EOR"},
	insts.OpEON:   {"EON"},
	insts.OpMOVN:  {"MOVN", "MOV"},
	insts.OpMOVZ:  {"MOVZ", "MOV"},
	insts.OpMOVK:  {"MOVK"},
	insts.OpADR:   {"ADR"},
	insts.OpADRP:  {"ADRP"},
	insts.OpB:     {"B"},
	insts.OpBL:    {"BL"},
	insts.OpBCond: {"B"},
	insts.OpCBZ:   {"CBZ"},
	insts.OpCBNZ:  {"CBNZ"},
	insts.OpTBZ:   {"TBZ"},
	insts.OpTBNZ:  {"TBNZ"},
	insts.OpBR:    {"BR"},
	insts.OpBLR:   {"BLR"},
	insts.OpRET:   {"RET"},
	insts.OpSVC:   {"SVC"},
	insts.OpBRK:   {"BRK"},
	insts.OpHLT:   {"HLT"},
	insts.OpLDR:   {"LDR", "LDRB", "LDRH", "LDUR", "LDURB", "LDURH"},
	insts.OpLDRS:  {"LDRSB", "LDRSH", "LDRSW", "LDURSB", "LDURSH", "LDURSW"},
	insts.OpSTR:   {"STR", "STRB", "STRH", "STUR", "STURB", "STURH"},
}

func main() {
	flag.Parse()

	allocOK := validateAllocations()
	crossOK := crossCheck(*samples, *seed, *show)

	if !allocOK || !crossOK {
		os.Exit(1)
	}
}

func validateAllocations() bool {
	decoder := insts.NewDecoder()
	var inst insts.Instruction

	words := []uint32{
		0x91002820, // ADD X0, X1, #42
		0xB1002862, // ADDS X2, X3, #42
		0x8B020020, // ADD X0, X1, X2
		0xF1001549, // SUBS X9, X10, #5
		0xF8408420, // LDR X0, [X1], #8
		0x54000041, // B.NE +8
	}

	// Warm up
	for i := 0; i < 1000; i++ {
		decoder.DecodeInto(words[i%len(words)], &inst)
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100000
	for i := 0; i < iterations; i++ {
		for _, w := range words {
			decoder.DecodeInto(w, &inst)
		}
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	totalDecodes := iterations * len(words)
	allocations := m2.Mallocs - m1.Mallocs

	fmt.Printf("Decoder Allocation Results:\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Total decode operations: %d\n", totalDecodes)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(totalDecodes)/elapsed.Seconds())
	fmt.Printf("Allocations: %d\n", allocations)
	fmt.Printf("Allocations per decode: %.3f\n", float64(allocations)/float64(totalDecodes))

	if float64(allocations)/float64(totalDecodes) >= 0.01 {
		fmt.Printf("\nFAIL: DecodeInto allocates\n\n")
		return false
	}
	fmt.Printf("\nOK: DecodeInto does not allocate\n\n")
	return true
}

// crossCheck decodes random words with both decoders. Every word decoded to
// a known operation must be accepted by the reference with a matching
// mnemonic.
func crossCheck(n int, seed uint64, show int) bool {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	decoder := insts.NewDecoder()
	var inst insts.Instruction
	code := make([]byte, insts.InstrSize)

	var known, mismatches int
	for i := 0; i < n; i++ {
		w := insts.Word(rng.Uint32())
		decoder.DecodeInto(uint32(w), &inst)
		names, ok := referenceNames[inst.Op]
		if !ok {
			continue
		}
		known++

		insts.WriteWord(code, 0, w)
		ref, err := arm64asm.Decode(code)
		if err == nil && slices.Contains(names, ref.Op.String()) {
			continue
		}

		mismatches++
		if mismatches <= show {
			refText := "?"
			if err == nil {
				refText = arm64asm.GNUSyntax(ref)
			}
			fmt.Printf("  %08x: %-40s ref: %s\n", uint32(w), inst.String(), refText)
		}
	}

	fmt.Printf("Reference Cross-Check Results:\n")
	fmt.Printf("==============================\n")
	fmt.Printf("Random words: %d\n", n)
	fmt.Printf("Decoded to a known operation: %d\n", known)
	fmt.Printf("Mismatches: %d\n", mismatches)

	return mismatches == 0
}
