package ooo

import "github.com/sarchlab/ooosim/isa"

// robEntry is one slot of the reorder buffer: the speculative state for
// one in-flight instruction between decode and commit.
type robEntry struct {
	valid bool

	// seq is a monotonically increasing allocation order, used to compare
	// the age of two entries across a wraparound of the circular index —
	// the circular index alone is ambiguous once the buffer has wrapped.
	seq uint64

	inst *isa.Instruction

	// dest is the architectural register this entry will write at
	// commit, or -1 for instructions with no destination (spec.md
	// section 4.2: control instructions have no destination register,
	// only an implicit PC effect).
	dest int

	result int64
	ready  bool
}

// ReorderBuffer is the circular FIFO of speculative results spec.md
// section 3 describes: entries commit strictly in allocation order,
// regardless of the out-of-order completion order of the instructions
// they track.
type ReorderBuffer struct {
	entries []robEntry
	head    int // oldest entry, next to commit
	tail    int // next free slot to allocate
	count   int
	nextSeq uint64
}

// NewReorderBuffer returns an empty ROB with room for capacity in-flight
// instructions.
func NewReorderBuffer(capacity int) *ReorderBuffer {
	return &ReorderBuffer{entries: make([]robEntry, capacity)}
}

// Capacity returns the maximum number of in-flight instructions.
func (r *ReorderBuffer) Capacity() int { return len(r.entries) }

// Occupancy returns the number of valid entries currently in the buffer.
func (r *ReorderBuffer) Occupancy() int { return r.count }

// Full reports whether the ROB has no room for another allocation.
func (r *ReorderBuffer) Full() bool { return r.count == len(r.entries) }

// Empty reports whether the ROB holds no in-flight instructions.
func (r *ReorderBuffer) Empty() bool { return r.count == 0 }

// Alloc reserves the next ROB slot for inst, whose commit-time
// architectural write target is dest (-1 if it writes no register). It
// returns the circular tag used by reservation stations and the CDB, and
// the entry's allocation sequence number used for age comparisons.
//
// Alloc panics if the ROB is full; callers must check Full first — decode
// back-pressure (spec.md section 4.2) exists precisely so this never
// happens in practice.
func (r *ReorderBuffer) Alloc(inst *isa.Instruction, dest int) (tag int, seq uint64) {
	if r.Full() {
		panic("ooo: ROB.Alloc called while full")
	}

	tag = r.tail
	seq = r.nextSeq
	r.nextSeq++

	r.entries[tag] = robEntry{
		valid:  true,
		seq:    seq,
		inst:   inst,
		dest:   dest,
		result: 0,
		ready:  false,
	}

	r.tail = (r.tail + 1) % len(r.entries)
	r.count++
	return tag, seq
}

// Complete marks the entry at tag ready with its speculative result, the
// CDB write every reservation-station slot and the MOB also observe
// (spec.md section 4.7).
func (r *ReorderBuffer) Complete(tag int, result int64) {
	e := &r.entries[tag]
	if !e.valid {
		panic("ooo: ROB.Complete on invalid entry")
	}
	e.result = result
	e.ready = true
}

// Peek returns the head entry without retiring it, and whether the ROB is
// non-empty.
func (r *ReorderBuffer) Peek() (tag int, inst *isa.Instruction, dest int, result int64, ready bool, ok bool) {
	if r.Empty() {
		return 0, nil, 0, 0, false, false
	}
	e := &r.entries[r.head]
	return r.head, e.inst, e.dest, e.result, e.ready, true
}

// Retire advances head past the current oldest entry, the in-order commit
// step (spec.md section 4.6). The caller must already have applied that
// entry's architectural effects and must only call Retire when Peek
// reported ready.
func (r *ReorderBuffer) Retire() {
	if r.Empty() {
		panic("ooo: ROB.Retire on empty buffer")
	}
	r.entries[r.head] = robEntry{}
	r.head = (r.head + 1) % len(r.entries)
	r.count--
}

// SeqOf returns the allocation sequence number of the entry at tag, used
// by callers that need to compare ages without retiring anything.
func (r *ReorderBuffer) SeqOf(tag int) uint64 {
	return r.entries[tag].seq
}

// FlushedEntry describes one ROB entry invalidated by a flush, enough for
// the caller to restore the RAT (spec.md invariant 6).
type FlushedEntry struct {
	Tag  int
	Dest int // -1 if the instruction had no architectural destination
}

// FlushAfter invalidates every entry strictly younger than keepTag
// (spec.md invariant 6). It returns the invalidated entries so callers
// can release the reservation-station slots, execution-unit pipeline
// registers and MOB entries that belonged to them, and restore any RAT
// mapping that pointed at one of them.
func (r *ReorderBuffer) FlushAfter(keepTag int) []FlushedEntry {
	keepSeq := r.entries[keepTag].seq

	var flushed []FlushedEntry
	for i := 0; i < len(r.entries); i++ {
		if !r.entries[i].valid {
			continue
		}
		if r.entries[i].seq > keepSeq {
			flushed = append(flushed, FlushedEntry{Tag: i, Dest: r.entries[i].dest})
		}
	}

	for _, f := range flushed {
		r.entries[f.Tag] = robEntry{}
	}

	// Recompute tail as one past the youngest surviving entry, and count
	// as the number of valid entries remaining. head is unaffected: it
	// still names the oldest surviving (or about-to-be-retired) entry.
	r.count -= len(flushed)
	if r.count == 0 {
		r.tail = r.head
		return flushed
	}
	r.tail = (keepTag + 1) % len(r.entries)
	return flushed
}
