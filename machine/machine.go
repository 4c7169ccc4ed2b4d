// Package machine wires the assembler and the out-of-order engine into the
// single entry point the CLI tools use: load a program from disk, run it
// to completion, and report timing statistics, or compare its final
// architectural state against refemu.Emulator for differential testing.
// It plays the role the teacher's timing/core.Core plays for its
// pipeline: a thin wrapper that hides construction details from main.
package machine

import (
	"fmt"
	"os"

	"github.com/sarchlab/ooosim/arch"
	"github.com/sarchlab/ooosim/asm"
	"github.com/sarchlab/ooosim/refemu"
	"github.com/sarchlab/ooosim/timing/ooo"
)

// Machine owns one assembled program and the out-of-order engine executing
// it against a private register file and memory.
type Machine struct {
	prog   *asm.Program
	regs   *arch.Registers
	mem    *arch.Memory
	engine *ooo.Engine
}

// Load assembles the program at path and builds the engine that will
// execute it, forwarding opts to ooo.NewEngine.
func Load(path string, opts ...ooo.Option) (*Machine, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}
	defer src.Close()

	prog, err := asm.Assemble(src)
	if err != nil {
		return nil, fmt.Errorf("machine: assembling %s: %w", path, err)
	}

	regs := &arch.Registers{}
	mem := arch.NewMemory()
	return &Machine{
		prog:   prog,
		regs:   regs,
		mem:    mem,
		engine: ooo.NewEngine(prog.Instructions, regs, mem, opts...),
	}, nil
}

// Registers exposes the machine's register file.
func (m *Machine) Registers() *arch.Registers { return m.regs }

// Memory exposes the machine's memory.
func (m *Machine) Memory() *arch.Memory { return m.mem }

// Engine exposes the underlying out-of-order engine, for callers that want
// direct access to per-cycle state (e.g. attaching an observer before Run).
func (m *Machine) Engine() *ooo.Engine { return m.engine }

// Run executes the program to completion (HALT or a drained pipeline).
func (m *Machine) Run() {
	m.engine.Run()
}

// Stats returns the engine's performance counters.
func (m *Machine) Stats() ooo.Stats { return m.engine.Stats() }

// RunDifferential re-executes the same assembled program through
// refemu.Emulator against fresh state and reports whether the out-of-order
// engine's final architectural registers and memory agree with it
// (spec.md section 8's headline correctness property). It does not
// itself run m's engine; call Run first.
func (m *Machine) RunDifferential() (equal bool, err error) {
	refRegs := &arch.Registers{}
	refMem := arch.NewMemory()
	ref := refemu.NewEmulator(m.prog, refemu.WithRegisters(refRegs), refemu.WithMemory(refMem))
	if err := ref.Run(); err != nil {
		return false, fmt.Errorf("machine: reference run: %w", err)
	}

	if m.regs.R != refRegs.R {
		return false, nil
	}
	ourMem, refMemSnap := m.mem.Snapshot(arch.MemorySize), refMem.Snapshot(arch.MemorySize)
	for i := range ourMem {
		if ourMem[i] != refMemSnap[i] {
			return false, nil
		}
	}
	return true, nil
}
