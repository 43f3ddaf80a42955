// Package main provides a profiling wrapper for the decoder, the
// disassembler and the emulator.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/a64/disasm"
	"github.com/sarchlab/a64/emu"
	"github.com/sarchlab/a64/insts"
	"github.com/sarchlab/a64/loader"
)

var (
	mode        = flag.String("mode", "decode", "What to profile: decode, disasm or emulate")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	passes      = flag.Int("passes", 100, "passes over the text sections in decode and disasm modes")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var count uint64
	switch *mode {
	case "decode":
		count = profileDecode(prog, *passes)
	case "disasm":
		count, err = profileDisasm(prog, *passes)
	case "emulate":
		count = profileEmulate(prog)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Mode: %s\n", *mode)
	fmt.Printf("Instructions processed: %d\n", count)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if count > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(count)/elapsed.Seconds())
	}
}

// profileDecode decodes every word of the text sections passes times.
func profileDecode(prog *loader.Program, passes int) uint64 {
	decoder := insts.NewDecoder()
	var inst insts.Instruction
	var count uint64

	for i := 0; i < passes; i++ {
		for _, sec := range prog.TextSections {
			for off := 0; off+insts.InstrSize <= len(sec.Data); off += insts.InstrSize {
				decoder.DecodeInto(uint32(insts.ReadWord(sec.Data, off)), &inst)
				count++
			}
		}
	}

	return count
}

// profileDisasm renders full listings of the text sections passes times.
func profileDisasm(prog *loader.Program, passes int) (uint64, error) {
	d, err := disasm.New(nil, disasm.WithSymbols(prog))
	if err != nil {
		return 0, err
	}

	var count uint64
	for i := 0; i < passes; i++ {
		for _, sec := range prog.TextSections {
			if err := d.Disassemble(io.Discard, sec.Addr, sec.Data); err != nil {
				return count, err
			}
			count += uint64(len(sec.Data) / insts.InstrSize)
		}
	}

	return count, nil
}

// profileEmulate runs the program in the functional emulator.
func profileEmulate(prog *loader.Program) uint64 {
	memory := emu.NewMemory()
	for _, seg := range prog.Segments {
		memory.LoadSegment(seg.VirtAddr, seg.Data, seg.MemSize)
	}

	emulator := emu.NewEmulator(
		emu.WithMemory(memory),
		emu.WithStackPointer(prog.InitialSP),
		emu.WithMaxInstructions(*instruction),
	)
	emulator.RegFile().PC = prog.EntryPoint

	exitCode := emulator.Run()
	fmt.Printf("Exit code: %d\n", exitCode)

	return emulator.InstructionCount()
}
