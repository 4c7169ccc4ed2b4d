package ooo

import (
	"github.com/sarchlab/ooosim/arch"
	"github.com/sarchlab/ooosim/isa"
)

// renameOperand substitutes the current RAT mapping for a source register:
// a concrete value when the architectural value is current, or the
// pending ROB tag otherwise (spec.md section 4.2).
func renameOperand(rat *RAT, regs *arch.Registers, reg int) isa.Operand {
	if tag, pending := rat.Lookup(reg); pending {
		return isa.TagOperand(tag)
	}
	return isa.ValueOperand(regs.Read(reg))
}

// isMemAccess reports whether op actually touches memory and therefore
// needs an MOB entry. LDC and MOV are ClassMem (they share the LSU for
// routing purposes) but never read or write memory.
func isMemAccess(op isa.Opcode) bool {
	return op == isa.OpLD || op == isa.OpST || op == isa.OpSTC
}

// doDecode consumes the fetch buffer, renames its operands, and issues it
// into the reservation station matching its class. It does nothing if the
// buffer is empty, and stalls (leaving the buffer occupied) if the ROB,
// the chosen reservation station, or (for a real memory op) the MOB has
// no room — spec.md section 4.2's back-pressure contract.
func (e *Engine) doDecode() {
	inst := e.fetchBuf
	if inst == nil {
		return
	}

	if e.rob.Full() {
		return
	}

	rs, unit := e.stationFor(inst)
	if rs.Full() {
		return
	}

	needsMOB := isMemAccess(inst.Op)
	if needsMOB && e.mob.Full() {
		return
	}

	dest := -1
	if inst.Op.HasDest() {
		dest = inst.Rd
	}

	tag, seq := e.rob.Alloc(inst, dest)
	inst.DestTag = tag

	// Sources are renamed before the destination so an instruction that
	// reads its own destination register (MUL r2, r2, r1) sees the older
	// producer, not itself.
	e.renameOperands(inst)

	if dest != -1 {
		e.rat.Rename(dest, tag)
		e.scoreboard.MarkBusy(dest)
	}

	if needsMOB {
		inst.MOBIndex = e.mob.Alloc(tag, seq, inst.Op.IsStore())
	}

	rs.Add(inst, seq)
	_ = unit // unit is selected for symmetry with dispatch; RS ownership alone drives issue

	inst.Stamps.Decoded = e.cycle
	e.fetchBuf = nil
}

// renameOperands fills in inst.EO for every opcode shape the ISA defines.
func (e *Engine) renameOperands(inst *isa.Instruction) {
	switch inst.Op.Class() {
	case isa.ClassALU:
		inst.EO[0] = renameOperand(e.rat, e.regs, inst.Rs1)
		if inst.Op.IsImmediate() {
			inst.EO[1] = isa.ValueOperand(inst.Imm)
		} else {
			inst.EO[1] = renameOperand(e.rat, e.regs, inst.Rs2)
		}

	case isa.ClassMem:
		switch inst.Op {
		case isa.OpLDC:
			// No register operands; execute reads inst.Imm directly.
		case isa.OpMOV, isa.OpLD:
			inst.EO[0] = renameOperand(e.rat, e.regs, inst.Rs1)
		case isa.OpST:
			inst.EO[0] = renameOperand(e.rat, e.regs, inst.Rs1)
			inst.EO[1] = renameOperand(e.rat, e.regs, inst.Rs2)
		case isa.OpSTC:
			inst.EO[0] = renameOperand(e.rat, e.regs, inst.Rs1)
		}

	case isa.ClassBranch:
		if inst.Op != isa.OpJMP {
			inst.EO[0] = renameOperand(e.rat, e.regs, inst.Rs1)
			inst.EO[1] = renameOperand(e.rat, e.regs, inst.Rs2)
		}

	case isa.ClassHalt:
		// No operands.
	}
}

// stationFor returns the reservation station (and, for classes with more
// than one unit, the specific unit it front-ends) inst should issue into.
// For ALU class it picks the first unit with a non-full station; ties
// when multiple are free go to the lowest index.
func (e *Engine) stationFor(inst *isa.Instruction) (*ReservationStation, *ExecutionUnit) {
	switch inst.Op.Class() {
	case isa.ClassMem:
		return e.lsuRS, e.lsuUnit
	case isa.ClassBranch:
		return e.bruRS, e.bruUnit
	case isa.ClassHalt:
		return e.haltRS, e.haltUnit
	default:
		for i, rs := range e.aluRS {
			if !rs.Full() {
				return rs, e.aluUnits[i]
			}
		}
		// Every ALU station is full: return the first anyway so the
		// caller's Full() check correctly reports back-pressure.
		return e.aluRS[0], e.aluUnits[0]
	}
}
