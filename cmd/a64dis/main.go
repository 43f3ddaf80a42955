// Package main provides a64dis, an objdump-style ARM64 disassembler.
//
// Inputs are an ELF executable, a flat binary (-bin), or instruction words
// given in hex on the command line (-hex).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/sarchlab/a64/disasm"
	"github.com/sarchlab/a64/insts"
	"github.com/sarchlab/a64/loader"
)

var (
	configPath = flag.String("config", "", "Path to disassembler configuration JSON file")
	syntax     = flag.String("syntax", "", "Register syntax: arch or vm (overrides config)")
	showRaw    = flag.Bool("raw", true, "Show the raw instruction word")
	reference  = flag.Bool("ref", false, "Append the x/arch reference disassembly")
	dump       = flag.Bool("dump", false, "Dump the decoded instruction structs")
	hexWords   = flag.Bool("hex", false, "Arguments are instruction words in hex")
	binary     = flag.Bool("bin", false, "Input is a flat binary")
	base       = flag.Uint64("base", 0, "Load address of a flat binary or hex words")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: a64dis [options] <program.elf | file.bin | word...>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	prog, err := loadProgram()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *dump {
		dumpSections(prog)
		return
	}

	d, err := disasm.New(config, disasm.WithSymbols(prog))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, sec := range prog.TextSections {
		fmt.Printf("\nDisassembly of section %s:\n", sec.Name)
		if err := d.Disassemble(os.Stdout, sec.Addr, sec.Data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig reads the config file, if any, and applies the flags that were
// set explicitly.
func loadConfig() (*disasm.Config, error) {
	config := disasm.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = disasm.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "syntax":
			config.Syntax = *syntax
		case "raw":
			config.ShowRaw = *showRaw
		case "ref":
			config.Reference = *reference
		}
	})

	return config, config.Validate()
}

func loadProgram() (*loader.Program, error) {
	switch {
	case *hexWords:
		return parseWords(flag.Args())
	case *binary:
		return loader.LoadRaw(flag.Arg(0), *base)
	}
	return loader.Load(flag.Arg(0))
}

// parseWords builds a one-section program from hex words such as
// d503201f or 0xd65f03c0.
func parseWords(args []string) (*loader.Program, error) {
	code := make([]byte, len(args)*insts.InstrSize)
	for i, arg := range args {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad instruction word %q: %w", arg, err)
		}
		insts.WriteWord(code, i*insts.InstrSize, insts.Word(v))
	}

	return &loader.Program{
		EntryPoint: *base,
		TextSections: []loader.Section{
			{Name: "words", Addr: *base, Data: code},
		},
	}, nil
}

func dumpSections(prog *loader.Program) {
	decoder := insts.NewDecoder()
	cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

	for _, sec := range prog.TextSections {
		for off := 0; off+insts.InstrSize <= len(sec.Data); off += insts.InstrSize {
			w := insts.ReadWord(sec.Data, off)
			fmt.Printf("%x: %08x %v\n", sec.Addr+uint64(off), uint32(w), insts.Classify(uint32(w)))
			cs.Dump(decoder.Decode(uint32(w)))
		}
	}
}
