// Package disasm turns ARM64 machine code into an objdump-style listing.
//
// Every word produces exactly one line. Words the decoder does not know are
// printed as .inst directives, so a listing never stops early.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/sarchlab/a64/insts"
	"github.com/sarchlab/a64/loader"
)

// SymbolTable resolves addresses to function symbols. *loader.Program
// implements it.
type SymbolTable interface {
	SymbolAt(addr uint64) (loader.Symbol, bool)
}

// Line is one disassembled word.
type Line struct {
	Addr uint64
	Word insts.Word
	Text string

	// Symbol is set when a function starts at Addr.
	Symbol string

	// Target is the address a PC-relative instruction refers to.
	Target    uint64
	HasTarget bool
	// TargetSymbol locates Target within a function, e.g. "main+0x10".
	TargetSymbol string

	// Reference is the arm64asm rendering, when enabled.
	Reference string

	Breakpoint bool
}

// Option configures a Disassembler.
type Option func(*Disassembler)

// WithSymbols labels function starts and branch targets from symbols.
func WithSymbols(symbols SymbolTable) Option {
	return func(d *Disassembler) {
		d.symbols = symbols
	}
}

// Disassembler renders instruction words. It is not safe for concurrent
// use.
type Disassembler struct {
	config  *Config
	symbols SymbolTable
	decoder *insts.Decoder
	inst    insts.Instruction
}

// New creates a Disassembler. A nil config means DefaultConfig.
func New(config *Config, opts ...Option) (*Disassembler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid disassembler config: %w", err)
	}

	d := &Disassembler{
		config:  config.Clone(),
		decoder: insts.NewDecoder(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Line disassembles the word at pc.
func (d *Disassembler) Line(pc uint64, w insts.Word) Line {
	d.decoder.DecodeInto(uint32(w), &d.inst)

	line := Line{
		Addr:       pc,
		Word:       w,
		Text:       d.inst.Render(d.config.Style()),
		Breakpoint: w.IsBreakPoint(),
	}

	line.Target, line.HasTarget = Target(pc, &d.inst)

	if d.symbols != nil {
		if sym, ok := d.symbols.SymbolAt(pc); ok && sym.Addr == pc {
			line.Symbol = sym.Name
		}
		if line.HasTarget {
			line.TargetSymbol = d.symbolize(line.Target)
		}
	}

	if d.config.Reference {
		line.Reference = Reference(w)
	}

	return line
}

func (d *Disassembler) symbolize(addr uint64) string {
	sym, ok := d.symbols.SymbolAt(addr)
	if !ok {
		return ""
	}
	if addr == sym.Addr {
		return sym.Name
	}
	return fmt.Sprintf("%s+%#x", sym.Name, addr-sym.Addr)
}

// Target returns the address a PC-relative instruction at pc refers to.
func Target(pc uint64, inst *insts.Instruction) (uint64, bool) {
	switch inst.Op {
	case insts.OpB, insts.OpBL, insts.OpBCond,
		insts.OpCBZ, insts.OpCBNZ, insts.OpTBZ, insts.OpTBNZ, insts.OpADR:
		return pc + uint64(inst.BranchOffset), true
	case insts.OpADRP:
		return pc&^0xfff + uint64(inst.BranchOffset), true
	}
	return 0, false
}

// Reference renders w with arm64asm in GNU syntax, or "?" if arm64asm
// cannot decode it.
func Reference(w insts.Word) string {
	var buf [insts.InstrSize]byte
	insts.WriteWord(buf[:], 0, w)
	inst, err := arm64asm.Decode(buf[:])
	if err != nil {
		return "?"
	}
	return arm64asm.GNUSyntax(inst)
}

// Format renders a line according to the config, without the symbol
// header.
func (d *Disassembler) Format(line Line) string {
	var sb strings.Builder
	if d.config.ShowAddress {
		fmt.Fprintf(&sb, "%8x:\t", line.Addr)
	}
	if d.config.ShowRaw {
		fmt.Fprintf(&sb, "%08x\t", uint32(line.Word))
	}
	sb.WriteString(line.Text)

	switch {
	case line.TargetSymbol != "":
		fmt.Fprintf(&sb, "\t<%s>", line.TargetSymbol)
	case line.HasTarget:
		fmt.Fprintf(&sb, "\t<%#x>", line.Target)
	}
	if line.Breakpoint && d.config.MarkBreakpoints {
		sb.WriteString("\t; breakpoint")
	}
	if line.Reference != "" {
		fmt.Fprintf(&sb, "\t// %s", line.Reference)
	}
	return sb.String()
}

// Disassemble writes a listing of code loaded at base. Trailing bytes that
// do not fill a word are printed as a .byte directive.
func (d *Disassembler) Disassemble(w io.Writer, base uint64, code []byte) error {
	n := len(code) &^ (insts.InstrSize - 1)
	for off := 0; off < n; off += insts.InstrSize {
		pc := base + uint64(off)
		line := d.Line(pc, insts.ReadWord(code, off))

		if line.Symbol != "" {
			if _, err := fmt.Fprintf(w, "\n%016x <%s>:\n", pc, line.Symbol); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, d.Format(line)); err != nil {
			return err
		}
	}

	if n == len(code) {
		return nil
	}
	tail := make([]string, 0, len(code)-n)
	for _, b := range code[n:] {
		tail = append(tail, fmt.Sprintf("0x%02x", b))
	}
	var sb strings.Builder
	if d.config.ShowAddress {
		fmt.Fprintf(&sb, "%8x:\t", base+uint64(n))
	}
	sb.WriteString(".byte " + strings.Join(tail, ", "))
	_, err := fmt.Fprintln(w, sb.String())
	return err
}
