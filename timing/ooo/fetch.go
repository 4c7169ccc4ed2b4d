package ooo

import "github.com/sarchlab/ooosim/isa"

// FetchUnit supplies decode with at most one instruction per cycle from
// the assembled instruction cache, honoring PC redirects from a resolved
// branch (spec.md section 4.1).
type FetchUnit struct {
	program []string
	pc      int
	stopped bool
}

// NewFetchUnit returns a fetch unit that starts reading program at PC 0.
func NewFetchUnit(program []string) *FetchUnit {
	return &FetchUnit{program: program}
}

// PC returns the next instruction index fetch will read.
func (f *FetchUnit) PC() int { return f.pc }

// Redirect overwrites the PC. The pipeline controller calls this during
// commit, before the next cycle's fetch, so the redirected PC is seen on
// the very next fetch (spec.md section 5).
func (f *FetchUnit) Redirect(pc int) { f.pc = pc }

// Stop halts the fetch unit permanently, once HALT has committed.
func (f *FetchUnit) Stop() { f.stopped = true }

// Stopped reports whether Stop has been called.
func (f *FetchUnit) Stopped() bool { return f.stopped }

// AtEnd reports whether fetch has read past the end of the program.
func (f *FetchUnit) AtEnd() bool { return f.pc >= len(f.program) }

// Fetch reads and parses the instruction at the current PC and advances
// it by one, unless the unit is stopped, has run off the end of the
// program, or bufferOccupied reports decode has not yet consumed the
// previous fetch (spec.md section 4.1's back-pressure contract). The
// program is assumed already validated by asm.Assemble, so a parse
// failure here is an internal inconsistency, not a user-facing assembly
// error (spec.md section 7(c)).
func (f *FetchUnit) Fetch(bufferOccupied bool) (*isa.Instruction, bool) {
	if f.stopped || bufferOccupied || f.AtEnd() {
		return nil, false
	}

	inst, err := isa.ParseText(f.pc, f.program[f.pc])
	if err != nil {
		panic("ooo: fetch encountered an unparsable instruction past assembly validation: " + err.Error())
	}
	f.pc++
	return inst, true
}
