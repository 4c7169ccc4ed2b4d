package ooo

import "github.com/sarchlab/ooosim/arch"

// noTag marks a RAT entry as pointing at the architectural register itself
// rather than at a pending ROB entry ("the register's own name" in spec.md
// section 3).
const noTag = -1

// RAT is the register alias table: for each architectural register it
// names either the ROB entry that will produce its next value, or
// nothing when the architectural value is already current.
type RAT struct {
	tag [arch.NumRegisters]int
}

// NewRAT returns a RAT with every register pointing at its own
// architectural value.
func NewRAT() *RAT {
	r := &RAT{}
	for i := range r.tag {
		r.tag[i] = noTag
	}
	return r
}

// Lookup returns the ROB tag a register is waiting on, and whether one is
// pending. When pending is false the register's architectural value is
// current.
func (r *RAT) Lookup(reg int) (tag int, pending bool) {
	t := r.tag[reg]
	return t, t != noTag
}

// Rename sets reg's alias to the ROB entry tag, the "RAT[dest] := rob<i>"
// step of decode (spec.md section 4.2).
func (r *RAT) Rename(reg, tag int) {
	r.tag[reg] = tag
}

// ClearIfOwner restores reg to its architectural value, but only if tag is
// still the most recent rename — an older, already-superseded rename must
// not clobber a younger one's alias. This is the WAW hazard check spec.md
// section 4.6(a) and section 9 call for: "restore to architectural
// register only if the current RAT still names that ROB entry."
func (r *RAT) ClearIfOwner(reg, tag int) (cleared bool) {
	if r.tag[reg] == tag {
		r.tag[reg] = noTag
		return true
	}
	return false
}

// Reset restores every register to its architectural value. The engine's
// flush does not call it; it restores only the flushed entries' mappings
// through ClearIfOwner.
func (r *RAT) Reset() {
	for i := range r.tag {
		r.tag[i] = noTag
	}
}

// Scoreboard is a busy-bit vector over architectural registers: bit set
// means at least one in-flight instruction will write that register.
// Adapted from the bitmap-based register scoreboard in
// Maemo32-SupraX_Legacy/proto/ooo/ooo.go, sized down from a 64-bit window
// bitmap to one bit per architectural register.
type Scoreboard uint32

// IsBusy reports whether reg has a pending write.
func (s Scoreboard) IsBusy(reg int) bool {
	return s&(1<<uint(reg)) != 0
}

// MarkBusy sets reg's busy bit.
func (s *Scoreboard) MarkBusy(reg int) {
	*s |= 1 << uint(reg)
}

// ClearBusy clears reg's busy bit.
func (s *Scoreboard) ClearBusy(reg int) {
	*s &^= 1 << uint(reg)
}
