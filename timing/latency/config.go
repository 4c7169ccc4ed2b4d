// Package latency provides a JSON-configurable table of per-opcode
// execution latencies, generalized from the teacher's ARM64-flavored
// TimingConfig to spec.md section 6's opcode/latency table.
package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/ooosim/isa"
)

// Config holds the execution latency, in cycles, for each instruction
// class. Individual opcodes within a class (e.g. ADD and ADDI) share one
// latency, matching spec.md section 6.
type Config struct {
	// ALU is the latency for ADD/SUB/AND/OR/XOR/CMP and their immediate
	// variants. Default: 3.
	ALU uint64 `json:"alu_latency"`

	// Multiply is the latency for MUL. Default: 5.
	Multiply uint64 `json:"multiply_latency"`

	// Divide is the latency for DIV. Default: 10.
	Divide uint64 `json:"divide_latency"`

	// Load is the latency for LD. Default: 5.
	Load uint64 `json:"load_latency"`

	// MoveImm is the latency for LDC and MOV. Default: 3.
	MoveImm uint64 `json:"move_latency"`

	// Store is the latency for ST and STC. Default: 3.
	Store uint64 `json:"store_latency"`

	// Branch is the latency for BEQ/BNE/BLT/BGT/JMP. Default: 3.
	Branch uint64 `json:"branch_latency"`

	// Halt is the latency for HALT. Default: 1.
	Halt uint64 `json:"halt_latency"`
}

// DefaultConfig returns the latency table specified by spec.md section 6.
func DefaultConfig() *Config {
	return &Config{
		ALU:      3,
		Multiply: 5,
		Divide:   10,
		Load:     5,
		MoveImm:  3,
		Store:    3,
		Branch:   3,
		Halt:     1,
	}
}

// LoadConfig loads a Config from a JSON file, starting from
// DefaultConfig so an omitted field keeps its default rather than
// zeroing out.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read latency config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse latency config: %w", err)
	}

	return config, nil
}

// SaveConfig writes c to path as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize latency config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write latency config file: %w", err)
	}

	return nil
}

// Validate checks that every latency is positive.
func (c *Config) Validate() error {
	fields := map[string]uint64{
		"alu_latency":      c.ALU,
		"multiply_latency": c.Multiply,
		"divide_latency":   c.Divide,
		"load_latency":     c.Load,
		"move_latency":     c.MoveImm,
		"store_latency":    c.Store,
		"branch_latency":   c.Branch,
		"halt_latency":     c.Halt,
	}
	for name, v := range fields {
		if v == 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Latency returns the configured latency for op.
func (c *Config) Latency(op isa.Opcode) uint64 {
	switch op {
	case isa.OpMUL:
		return c.Multiply
	case isa.OpDIV:
		return c.Divide
	case isa.OpLD:
		return c.Load
	case isa.OpLDC, isa.OpMOV:
		return c.MoveImm
	case isa.OpST, isa.OpSTC:
		return c.Store
	case isa.OpBEQ, isa.OpBNE, isa.OpBLT, isa.OpBGT, isa.OpJMP:
		return c.Branch
	case isa.OpHALT:
		return c.Halt
	default:
		return c.ALU
	}
}
