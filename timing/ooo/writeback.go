package ooo

import "github.com/sarchlab/ooosim/isa"

// doWriteback broadcasts at most one completed execution unit's result on
// the CDB (round-robin across units, spec.md section 4.7), then attempts
// to retire the ROB head (spec.md section 4.6). A load or store's address
// and, for a store, its data are resolved by the LSU's effect function
// directly against the MOB at completion time rather than via a separate
// CDB step; register results still broadcast through Complete/Broadcast
// like any other unit.
func (e *Engine) doWriteback() {
	e.broadcastCDB()
	e.commitHead()
}

func (e *Engine) broadcastCDB() {
	n := len(e.allUnits)
	for i := 0; i < n; i++ {
		idx := (e.cdbNext + i) % n
		unit := e.allUnits[idx]
		if !unit.Done() {
			continue
		}

		inst, result := unit.Take()
		inst.Stamps.Writeback = e.cycle
		e.rob.Complete(inst.DestTag, result)

		for _, rs := range e.allStations {
			rs.Broadcast(inst.DestTag, result)
		}

		e.cdbNext = (idx + 1) % n
		return
	}
}

// commitHead retires the ROB head if it is ready, applying exactly the
// effects spec.md section 4.6 describes. At most one retirement happens
// per cycle.
func (e *Engine) commitHead() {
	tag, inst, dest, result, ready, ok := e.rob.Peek()
	if !ok || !ready {
		return
	}

	if dest != -1 {
		if e.rat.ClearIfOwner(dest, tag) {
			e.scoreboard.ClearBusy(dest)
		}
		e.regs.Write(dest, result)
	}

	if isMemAccess(inst.Op) {
		if inst.Op.IsStore() {
			addr, data := e.mob.CommitStore(inst.MOBIndex)
			e.mem.Write(addr, data)
		}
		e.mob.Retire()
	}

	if inst.Op.IsBranch() && inst.BranchTaken {
		e.flushAfter(tag)
		e.fetch.Redirect(inst.BranchTarget)
		e.fetchBuf = nil
	}

	if inst.Op == isa.OpHALT {
		e.halted = true
		e.fetch.Stop()
	}

	e.rob.Retire()
	e.stats.Retired++

	if e.observer != nil {
		e.observer.OnRetire(inst)
	}
}
