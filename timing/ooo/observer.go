package ooo

import "github.com/sarchlab/ooosim/isa"

// Snapshot is a read-only view of machine state at the end of one cycle —
// the visualization hook spec.md section 9 calls for ("expose it as an
// observer that receives a read-only snapshot of machine state each
// cycle; keep the core free of plotting concerns").
type Snapshot struct {
	Cycle        uint64
	Registers    [32]int64
	ROBOccupancy int
	ROBCapacity  int
	Retired      uint64
	Flushes      uint64
	Halted       bool
}

// Snapshot captures the engine's current state for an Observer.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Cycle:        e.cycle,
		Registers:    e.regs.R,
		ROBOccupancy: e.rob.Occupancy(),
		ROBCapacity:  e.rob.Capacity(),
		Retired:      e.stats.Retired,
		Flushes:      e.stats.Flushes,
		Halted:       e.halted,
	}
}

// Observer receives per-cycle and per-retirement notifications. No
// plotting library appears in this repo's dependency pack (see
// DESIGN.md), so the only implementation provided is HistoryObserver,
// which just records what it is given.
type Observer interface {
	OnCycle(Snapshot)
	OnRetire(inst *isa.Instruction)
}

// HistoryObserver records every snapshot and retired instruction in
// memory, for tests. cmd/ooosim's -debug trace dump does not use it; it
// reads Engine.Snapshot directly.
type HistoryObserver struct {
	Snapshots []Snapshot
	Retired   []*isa.Instruction
}

// OnCycle appends s to the recorded history.
func (h *HistoryObserver) OnCycle(s Snapshot) {
	h.Snapshots = append(h.Snapshots, s)
}

// OnRetire appends inst to the recorded retirement log.
func (h *HistoryObserver) OnRetire(inst *isa.Instruction) {
	h.Retired = append(h.Retired, inst)
}
