package ooo

import "github.com/sarchlab/ooosim/isa"

type rsSlot struct {
	occupied bool
	seq      uint64
	inst     *isa.Instruction
}

// ReservationStation is the wait queue in front of one execution unit
// (spec.md section 3: "one per execution unit"). Each slot holds an
// instruction whose operands are a mix of concrete values and pending ROB
// tags; a slot becomes dispatchable once every operand is concrete.
type ReservationStation struct {
	slots []rsSlot
}

// NewReservationStation returns an empty station with the given number of
// slots.
func NewReservationStation(capacity int) *ReservationStation {
	return &ReservationStation{slots: make([]rsSlot, capacity)}
}

// Full reports whether every slot is occupied.
func (rs *ReservationStation) Full() bool {
	for i := range rs.slots {
		if !rs.slots[i].occupied {
			return false
		}
	}
	return true
}

// Occupancy returns the number of occupied slots.
func (rs *ReservationStation) Occupancy() int {
	n := 0
	for i := range rs.slots {
		if rs.slots[i].occupied {
			n++
		}
	}
	return n
}

// Add places inst, at allocation order seq, into the first free slot. It
// reports false if the station is full; decode must check Full before
// issuing to avoid this.
func (rs *ReservationStation) Add(inst *isa.Instruction, seq uint64) bool {
	for i := range rs.slots {
		if !rs.slots[i].occupied {
			rs.slots[i] = rsSlot{occupied: true, seq: seq, inst: inst}
			return true
		}
	}
	return false
}

// Broadcast applies a CDB write to every occupied slot: any operand
// waiting on tag is replaced by value (spec.md section 4.3).
func (rs *ReservationStation) Broadcast(tag int, value int64) {
	for i := range rs.slots {
		if !rs.slots[i].occupied {
			continue
		}
		inst := rs.slots[i].inst
		for j := range inst.EO {
			if inst.EO[j].Kind == isa.KindTag && inst.EO[j].Tag == tag {
				inst.EO[j] = isa.ValueOperand(value)
			}
		}
	}
}

// ready reports whether every operand in inst is concrete.
func ready(inst *isa.Instruction) bool {
	for _, op := range inst.EO {
		if op.Kind == isa.KindTag {
			return false
		}
	}
	return true
}

// Dispatch selects the oldest ready slot (lowest allocation sequence,
// ties broken by slot index) that eligible also accepts, frees it, and
// returns its instruction. eligible may be nil to accept every ready
// slot; a non-nil eligible lets the caller withhold an instruction that
// is operand-ready but still unsafe to run (spec.md section 4.5's
// load-vs-unresolved-older-store ordering), without that instruction
// occupying the execution unit and starving the slot behind it. It
// returns ok=false if no slot is currently dispatchable.
func (rs *ReservationStation) Dispatch(eligible func(*isa.Instruction) bool) (inst *isa.Instruction, ok bool) {
	best := -1
	for i := range rs.slots {
		if !rs.slots[i].occupied || !ready(rs.slots[i].inst) {
			continue
		}
		if eligible != nil && !eligible(rs.slots[i].inst) {
			continue
		}
		if best == -1 || rs.slots[i].seq < rs.slots[best].seq {
			best = i
		}
	}
	if best == -1 {
		return nil, false
	}

	inst = rs.slots[best].inst
	rs.slots[best] = rsSlot{}
	return inst, true
}

// FlushAfter clears every slot holding an instruction younger than
// keepSeq (spec.md invariant 6).
func (rs *ReservationStation) FlushAfter(keepSeq uint64) {
	for i := range rs.slots {
		if rs.slots[i].occupied && rs.slots[i].seq > keepSeq {
			rs.slots[i] = rsSlot{}
		}
	}
}
