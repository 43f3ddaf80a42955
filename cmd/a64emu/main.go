// Package main provides a64emu, a functional ARM64 emulator for static
// Linux executables.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/a64/disasm"
	"github.com/sarchlab/a64/emu"
	"github.com/sarchlab/a64/loader"
)

var (
	verbose  = flag.Bool("v", false, "Verbose output")
	maxInstr = flag.Uint64("max-instr", 0, "Max instructions to execute (0 = unlimited)")
	trace    = flag.Bool("trace", false, "Print each instruction before it executes")
	binary   = flag.Bool("bin", false, "Input is a flat binary")
	base     = flag.Uint64("base", 0x400000, "Load address of a flat binary")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: a64emu [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	var (
		prog *loader.Program
		err  error
	)
	if *binary {
		prog, err = loader.LoadRaw(programPath, *base)
	} else {
		prog, err = loader.Load(programPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
		fmt.Printf("Symbols: %d\n", len(prog.Symbols))
	}

	emulator := newEmulator(prog, emu.WithMaxInstructions(*maxInstr))

	var exitCode int64
	if *trace {
		d, err := disasm.New(&disasm.Config{
			Syntax:          disasm.SyntaxArch,
			ShowAddress:     true,
			ShowRaw:         true,
			MarkBreakpoints: true,
		}, disasm.WithSymbols(prog))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		exitCode = runTraced(emulator, d, os.Stderr)
	} else {
		exitCode = emulator.Run()
	}

	if *verbose {
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Exit code: %d\n", exitCode)
		fmt.Printf("Instructions executed: %d\n", emulator.InstructionCount())
	}

	os.Exit(int(exitCode))
}

// newEmulator loads every segment of prog into a fresh memory and points
// the emulator at its entry.
func newEmulator(prog *loader.Program, opts ...emu.EmulatorOption) *emu.Emulator {
	memory := emu.NewMemory()
	for _, seg := range prog.Segments {
		memory.LoadSegment(seg.VirtAddr, seg.Data, seg.MemSize)
	}

	opts = append([]emu.EmulatorOption{
		emu.WithMemory(memory),
		emu.WithStackPointer(prog.InitialSP),
	}, opts...)
	emulator := emu.NewEmulator(opts...)
	emulator.RegFile().PC = prog.EntryPoint

	return emulator
}

// runTraced runs like Emulator.Run, writing each instruction to w before
// executing it.
func runTraced(e *emu.Emulator, d *disasm.Disassembler, w io.Writer) int64 {
	for {
		pc := e.RegFile().PC
		line := d.Line(pc, e.Fetch())
		if line.Symbol != "" {
			fmt.Fprintf(w, "<%s>:\n", line.Symbol)
		}
		fmt.Fprintln(w, d.Format(line))

		result := e.Step()
		switch {
		case result.Err != nil:
			fmt.Fprintf(w, "Emulation error: %v\n", result.Err)
			return -1
		case result.Exited:
			return result.ExitCode
		case result.Breakpoint:
			fmt.Fprintf(w, "Breakpoint at PC=0x%X\n", pc)
			return -1
		}
	}
}
