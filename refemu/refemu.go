// Package refemu provides a simple in-order reference interpreter for the
// ISA defined in package isa. It exists to make spec.md section 8's
// headline testable property checkable: "architectural register and
// memory state equals what a reference in-order interpreter would
// produce after the same prefix of committed instructions". It has no
// speculation, no renaming and no pipelining — one instruction, full
// effect, every step — the opposite design point from timing/ooo.Engine,
// by construction.
package refemu

import (
	"fmt"

	"github.com/sarchlab/ooosim/arch"
	"github.com/sarchlab/ooosim/asm"
	"github.com/sarchlab/ooosim/isa"
)

// Emulator executes a Program in program order, one instruction at a
// time, with no speculation.
type Emulator struct {
	regs *arch.Registers
	mem  *arch.Memory
	pc   int

	prog *asm.Program

	halted           bool
	instructionCount uint64
}

// EmulatorOption is a functional option for configuring the Emulator,
// mirroring emu.EmulatorOption's shape in the teacher.
type EmulatorOption func(*Emulator)

// WithRegisters supplies the register file the emulator reads and writes.
// Useful for sharing state with, or diffing against, another component.
func WithRegisters(regs *arch.Registers) EmulatorOption {
	return func(e *Emulator) { e.regs = regs }
}

// WithMemory supplies the memory the emulator reads and writes.
func WithMemory(mem *arch.Memory) EmulatorOption {
	return func(e *Emulator) { e.mem = mem }
}

// NewEmulator creates a reference emulator for prog.
func NewEmulator(prog *asm.Program, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regs: &arch.Registers{},
		mem:  arch.NewMemory(),
		prog: prog,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registers returns the emulator's register file.
func (e *Emulator) Registers() *arch.Registers { return e.regs }

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *arch.Memory { return e.mem }

// Halted reports whether the emulator has executed HALT.
func (e *Emulator) Halted() bool { return e.halted }

// InstructionCount returns the number of instructions retired so far.
func (e *Emulator) InstructionCount() uint64 { return e.instructionCount }

// Run executes instructions in program order until HALT or the end of the
// program is reached.
func (e *Emulator) Run() error {
	for !e.halted {
		if e.pc >= len(e.prog.Instructions) {
			return nil
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction with full, non-speculative
// semantics and advances the program counter (unless the instruction
// redirects it).
func (e *Emulator) Step() error {
	if e.pc < 0 || e.pc >= len(e.prog.Instructions) {
		return fmt.Errorf("refemu: pc %d out of program bounds", e.pc)
	}

	inst, err := isa.ParseText(e.pc, e.prog.Instructions[e.pc])
	if err != nil {
		return fmt.Errorf("refemu: %w", err)
	}

	e.instructionCount++
	nextPC := e.pc + 1

	switch inst.Op.Class() {
	case isa.ClassHalt:
		e.halted = true
		return nil

	case isa.ClassBranch:
		a, b := int64(0), int64(0)
		if inst.Op != isa.OpJMP {
			a = e.regs.Read(inst.Rs1)
			b = e.regs.Read(inst.Rs2)
		}
		if isa.EvalBranch(inst.Op, a, b) {
			nextPC = int(inst.Imm)
		}

	case isa.ClassMem:
		e.execMemory(inst)

	default: // ClassALU
		e.execALU(inst)
	}

	e.pc = nextPC
	return nil
}

func (e *Emulator) execALU(inst *isa.Instruction) {
	a := e.regs.Read(inst.Rs1)
	b := inst.Imm
	if !inst.Op.IsImmediate() {
		b = e.regs.Read(inst.Rs2)
	}

	result := isa.Execute(inst.Op, a, b)
	if inst.Op.HasDest() {
		e.regs.Write(inst.Rd, result)
	}
}

func (e *Emulator) execMemory(inst *isa.Instruction) {
	switch inst.Op {
	case isa.OpLDC:
		e.regs.Write(inst.Rd, inst.Imm)
	case isa.OpMOV:
		e.regs.Write(inst.Rd, e.regs.Read(inst.Rs1))
	case isa.OpLD:
		addr := int(e.regs.Read(inst.Rs1) + inst.Imm)
		e.regs.Write(inst.Rd, e.mem.Read(addr))
	case isa.OpST:
		addr := int(e.regs.Read(inst.Rs2) + inst.Imm)
		e.mem.Write(addr, e.regs.Read(inst.Rs1))
	case isa.OpSTC:
		e.mem.Write(int(inst.Imm), e.regs.Read(inst.Rs1))
	}
}
