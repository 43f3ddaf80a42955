package disasm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/a64/insts"
)

// Register naming styles accepted in Config.Syntax.
const (
	SyntaxArch = "arch"
	SyntaxVM   = "vm"
)

// Config controls the columns of a listing.
type Config struct {
	// Syntax names registers architecturally ("arch": x0, sp, xzr) or by
	// the register model ("vm": R0, SP, ZR). Default: arch.
	Syntax string `json:"syntax"`

	// ShowAddress prefixes each line with its address. Default: true.
	ShowAddress bool `json:"show_address"`

	// ShowRaw prints the instruction word in hex. Default: true.
	ShowRaw bool `json:"show_raw"`

	// Reference adds the text arm64asm gives for the same word. Default: false.
	Reference bool `json:"reference"`

	// MarkBreakpoints annotates the debugger breakpoint word. Default: true.
	MarkBreakpoints bool `json:"mark_breakpoints"`
}

// DefaultConfig returns a Config with objdump-like defaults.
func DefaultConfig() *Config {
	return &Config{
		Syntax:          SyntaxArch,
		ShowAddress:     true,
		ShowRaw:         true,
		MarkBreakpoints: true,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disassembler config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse disassembler config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize disassembler config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write disassembler config file: %w", err)
	}

	return nil
}

// Validate checks the register naming style.
func (c *Config) Validate() error {
	switch c.Syntax {
	case SyntaxArch, SyntaxVM:
		return nil
	}
	return fmt.Errorf("syntax must be %q or %q, got %q", SyntaxArch, SyntaxVM, c.Syntax)
}

// Style returns the text style for Config.Syntax.
func (c *Config) Style() insts.Style {
	if c.Syntax == SyntaxVM {
		return insts.StyleVM
	}
	return insts.StyleArch
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
