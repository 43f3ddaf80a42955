// Package main provides the entry point for a64.
// a64 is an ARM64 instruction-word codec with a disassembler and a
// functional emulator built on it.
//
// For the tools, use: go run ./cmd/a64dis or go run ./cmd/a64emu
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("a64 - ARM64 instruction codec")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  a64dis [options] <program.elf | file.bin | word...>")
	fmt.Println("      -config   Path to disassembler configuration JSON file")
	fmt.Println("      -syntax   Register syntax: arch or vm")
	fmt.Println("      -raw      Show the raw instruction word")
	fmt.Println("      -ref      Append the x/arch reference disassembly")
	fmt.Println("      -dump     Dump the decoded instruction structs")
	fmt.Println("  a64emu [options] <program.elf>")
	fmt.Println("      -v         Verbose output")
	fmt.Println("      -max-instr Max instructions to execute")
	fmt.Println("      -trace     Print each instruction before it executes")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/a64dis' or 'go run ./cmd/a64emu' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use one of the commands instead.")
	}
}
