package ooo

import (
	"github.com/sarchlab/ooosim/arch"
	"github.com/sarchlab/ooosim/isa"
)

// ExecutionUnit is a single multi-cycle functional unit: one pipeline
// register holding the in-flight instruction and a remaining-cycle
// counter that counts down to completion (spec.md section 4.4). The
// class-specific effect (arithmetic, memory, branch, halt) is injected as
// a function rather than subtyped, following spec.md section 9's
// "tagged variant... single execute function" redesign note.
type ExecutionUnit struct {
	inst      *isa.Instruction
	remaining int
	done      bool
	result    int64

	effect func(inst *isa.Instruction) (result int64, completed bool)
}

func newALUUnit() *ExecutionUnit { return &ExecutionUnit{effect: executeALU} }

func newBRUUnit() *ExecutionUnit { return &ExecutionUnit{effect: executeBRU} }

func newHaltUnit() *ExecutionUnit { return &ExecutionUnit{effect: executeHalt} }

func newLSUUnit(mem *arch.Memory, mob *MemoryOrderBuffer) *ExecutionUnit {
	return &ExecutionUnit{
		effect: func(inst *isa.Instruction) (int64, bool) {
			return executeLSU(inst, mem, mob)
		},
	}
}

// Busy reports whether the unit currently holds an instruction, including
// one that has already completed but not yet been picked up by
// writeback.
func (u *ExecutionUnit) Busy() bool { return u.inst != nil }

// Done reports whether the occupied instruction has finished executing.
func (u *ExecutionUnit) Done() bool { return u.done }

// Dispatch occupies a free unit with inst, initializing the remaining
// cycle counter from its declared latency. Callers must check Busy first.
func (u *ExecutionUnit) Dispatch(inst *isa.Instruction) {
	u.inst = inst
	u.remaining = inst.Latency
	if u.remaining < 1 {
		u.remaining = 1
	}
	u.done = false
}

// Tick advances the unit's countdown by one cycle. When remaining reaches
// one it invokes the instruction's effect; an effect may decline to
// complete (a load blocked on an older, unresolved store), in which case
// the unit simply retries next cycle without decrementing further.
func (u *ExecutionUnit) Tick() {
	if u.inst == nil || u.done {
		return
	}

	if u.remaining > 1 {
		u.remaining--
		return
	}

	result, completed := u.effect(u.inst)
	if !completed {
		return
	}
	u.result = result
	u.done = true
}

// Take clears a completed unit and returns its instruction and result,
// called by writeback once it has broadcast them on the CDB.
func (u *ExecutionUnit) Take() (*isa.Instruction, int64) {
	inst, result := u.inst, u.result
	u.inst, u.result, u.done, u.remaining = nil, 0, false, 0
	return inst, result
}

// Flush clears the unit if it holds an instruction younger than keepSeq.
func (u *ExecutionUnit) Flush(keepSeq uint64, seqOf func(tag int) uint64) {
	if u.inst == nil {
		return
	}
	if seqOf(u.inst.DestTag) > keepSeq {
		u.inst, u.result, u.done, u.remaining = nil, 0, false, 0
	}
}

func executeALU(inst *isa.Instruction) (int64, bool) {
	a, b := inst.EO[0].Value, inst.EO[1].Value
	return isa.Execute(inst.Op, a, b), true
}

func executeBRU(inst *isa.Instruction) (int64, bool) {
	if inst.Op == isa.OpJMP {
		inst.BranchTaken = true
		inst.BranchTarget = int(inst.Imm)
		return 0, true
	}

	a, b := inst.EO[0].Value, inst.EO[1].Value
	inst.BranchTaken = isa.EvalBranch(inst.Op, a, b)
	inst.BranchTarget = int(inst.Imm)
	return 0, true
}

func executeHalt(inst *isa.Instruction) (int64, bool) {
	return 0, true
}

func executeLSU(inst *isa.Instruction, mem *arch.Memory, mob *MemoryOrderBuffer) (int64, bool) {
	switch inst.Op {
	case isa.OpLDC:
		return inst.Imm, true

	case isa.OpMOV:
		return inst.EO[0].Value, true

	case isa.OpLD:
		addr := int(inst.EO[0].Value + inst.Imm)
		mob.Resolve(inst.MOBIndex, addr, 0)
		inst.MemAddr, inst.MemAddrKnown = addr, true

		value, found, blocked := mob.Forward(inst.MOBIndex)
		if blocked {
			return 0, false
		}
		if found {
			return value, true
		}
		return mem.Read(addr), true

	case isa.OpST:
		value := inst.EO[0].Value
		addr := int(inst.EO[1].Value + inst.Imm)
		mob.Resolve(inst.MOBIndex, addr, value)
		inst.MemAddr, inst.MemAddrKnown = addr, true
		return 0, true

	case isa.OpSTC:
		value := inst.EO[0].Value
		addr := int(inst.Imm)
		mob.Resolve(inst.MOBIndex, addr, value)
		inst.MemAddr, inst.MemAddrKnown = addr, true
		return 0, true

	default:
		return 0, true
	}
}
