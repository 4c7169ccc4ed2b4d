// Package ooo implements the out-of-order execution engine: register
// renaming through a RAT and scoreboard, reservation-station-fronted
// execution units, a reorder buffer for in-order commit, and a memory
// order buffer for load/store ordering and forwarding. It is the core
// this simulator exists to model; everything else (the assembler, the
// CLI, the in-order reference interpreter) is a collaborator around it.
package ooo

import (
	"github.com/sarchlab/ooosim/arch"
	"github.com/sarchlab/ooosim/isa"
	"github.com/sarchlab/ooosim/timing/latency"
)

// Default structural sizes, resolving spec.md section 9's open question
// ("ROB/RS/MOB capacities... are not explicit in the source") with
// concrete, documented defaults.
const (
	DefaultROBCapacity = 32
	DefaultRSCapacity  = 4
	DefaultMOBCapacity = 16
	DefaultALUCount    = 2
)

// Stats mirrors the teacher's timing/pipeline.Stats shape, generalized
// from CPI to spec.md section 8's IPC framing.
type Stats struct {
	Cycles  uint64
	Retired uint64
	Flushes uint64
	IPC     float64
}

// Engine is the pipeline controller: it owns the cycle counter and every
// shared structure (RAT, scoreboard, ROB, MOB, reservation stations,
// execution units), and orchestrates the per-tick stage schedule
// (spec.md section 4.8). Centralizing ownership here breaks the logical
// cycle the CDB would otherwise create between the ROB, the MOB,
// reservation stations and execution units (spec.md section 9).
type Engine struct {
	regs *arch.Registers
	mem  *arch.Memory

	rat        *RAT
	scoreboard Scoreboard
	rob        *ReorderBuffer
	mob        *MemoryOrderBuffer

	aluRS    []*ReservationStation
	aluUnits []*ExecutionUnit
	lsuRS    *ReservationStation
	lsuUnit  *ExecutionUnit
	bruRS    *ReservationStation
	bruUnit  *ExecutionUnit
	haltRS   *ReservationStation
	haltUnit *ExecutionUnit

	// allUnits and allStations enumerate every unit/station, for the CDB
	// round-robin and for broadcast/flush fan-out respectively.
	allUnits    []*ExecutionUnit
	allStations []*ReservationStation

	fetch    *FetchUnit
	fetchBuf *isa.Instruction

	latencies  *latency.Config
	aluCount   int
	rsCapacity int

	cycle   uint64
	halted  bool
	stats   Stats
	cdbNext int

	observer Observer
}

// Option configures an Engine at construction, mirroring the teacher's
// PipelineOption pattern.
type Option func(*Engine)

// WithROBCapacity overrides the default reorder-buffer capacity.
func WithROBCapacity(n int) Option {
	return func(e *Engine) { e.rob = NewReorderBuffer(n) }
}

// WithMOBCapacity overrides the default memory-order-buffer capacity.
func WithMOBCapacity(n int) Option {
	return func(e *Engine) { e.mob = NewMemoryOrderBuffer(n) }
}

// WithALUCount overrides the number of parallel ALU execution units.
func WithALUCount(n int) Option {
	return func(e *Engine) { e.aluCount = n }
}

// WithRSCapacity overrides the number of slots in every reservation
// station.
func WithRSCapacity(n int) Option {
	return func(e *Engine) { e.rsCapacity = n }
}

// WithLatencies overrides the default per-opcode latency table.
func WithLatencies(cfg *latency.Config) Option {
	return func(e *Engine) { e.latencies = cfg }
}

// WithObserver attaches an Observer that receives a read-only snapshot of
// machine state every cycle (spec.md section 9's visualization hook).
func WithObserver(obs Observer) Option {
	return func(e *Engine) { e.observer = obs }
}

// NewEngine constructs an Engine over program (already-assembled,
// label-resolved instruction text, one per line) and a shared register
// file and memory — the same arch.Registers/arch.Memory a refemu.Emulator
// can be pointed at for differential testing (spec.md section 8).
func NewEngine(program []string, regs *arch.Registers, mem *arch.Memory, opts ...Option) *Engine {
	e := &Engine{
		regs:       regs,
		mem:        mem,
		rat:        NewRAT(),
		rob:        NewReorderBuffer(DefaultROBCapacity),
		mob:        NewMemoryOrderBuffer(DefaultMOBCapacity),
		fetch:      NewFetchUnit(program),
		latencies:  latency.DefaultConfig(),
		aluCount:   DefaultALUCount,
		rsCapacity: DefaultRSCapacity,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.build()
	return e
}

// build wires up the reservation stations and execution units once every
// option has run, applying each opcode its configured latency.
func (e *Engine) build() {
	e.aluRS = make([]*ReservationStation, e.aluCount)
	e.aluUnits = make([]*ExecutionUnit, e.aluCount)
	for i := 0; i < e.aluCount; i++ {
		e.aluRS[i] = NewReservationStation(e.rsCapacity)
		e.aluUnits[i] = newALUUnit()
	}

	e.lsuRS = NewReservationStation(e.rsCapacity)
	e.lsuUnit = newLSUUnit(e.mem, e.mob)

	e.bruRS = NewReservationStation(e.rsCapacity)
	e.bruUnit = newBRUUnit()

	e.haltRS = NewReservationStation(1)
	e.haltUnit = newHaltUnit()

	e.allUnits = append(append([]*ExecutionUnit{}, e.aluUnits...), e.lsuUnit, e.bruUnit, e.haltUnit)
	e.allStations = append(append([]*ReservationStation{}, e.aluRS...), e.lsuRS, e.bruRS, e.haltRS)
}

// Cycle returns the number of ticks executed so far.
func (e *Engine) Cycle() uint64 { return e.cycle }

// Halted reports whether HALT has committed.
func (e *Engine) Halted() bool { return e.halted }

// Stats returns the engine's performance counters as of the last Tick.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Cycles = e.cycle
	if s.Cycles > 0 {
		s.IPC = float64(s.Retired) / float64(s.Cycles)
	}
	return s
}

// ROBOccupancy exposes the reorder buffer's current occupancy, for tests
// of spec.md section 8's "ROB occupancy never exceeds capacity" property.
func (e *Engine) ROBOccupancy() int { return e.rob.Occupancy() }

// Tick advances the engine by exactly one cycle, running every stage in
// writeback→execute→decode→fetch order so a value produced this cycle is
// never consumed by an earlier stage in the same cycle (spec.md section
// 2). It is a no-op once the engine has halted.
func (e *Engine) Tick() {
	if e.halted {
		return
	}

	e.cycle++

	e.doWriteback()
	if !e.halted {
		e.doExecute()
		e.doDecode()
		e.doFetch()
	}

	if e.observer != nil {
		e.observer.OnCycle(e.Snapshot())
	}
}

// doFetch pulls at most one instruction into the fetch buffer, applying
// inst.Latency from the configured latency table (spec.md section 4.1).
func (e *Engine) doFetch() {
	if e.fetchBuf != nil {
		return
	}

	inst, ok := e.fetch.Fetch(false)
	if !ok {
		return
	}

	inst.Latency = int(e.latencies.Latency(inst.Op))
	inst.Stamps.Fetched = e.cycle
	e.fetchBuf = inst
}

// doExecute advances every execution unit's countdown, then lets any unit
// that is now free pick up the oldest ready instruction from its
// reservation station (spec.md sections 4.3 and 4.4).
func (e *Engine) doExecute() {
	for _, u := range e.allUnits {
		u.Tick()
	}

	e.tryDispatch(e.aluUnitsStations())
	e.tryDispatch([]unitStation{{e.lsuUnit, e.lsuRS, e.lsuEligible}})
	e.tryDispatch([]unitStation{{e.bruUnit, e.bruRS, nil}})
	e.tryDispatch([]unitStation{{e.haltUnit, e.haltRS, nil}})
}

type unitStation struct {
	unit     *ExecutionUnit
	rs       *ReservationStation
	eligible func(*isa.Instruction) bool
}

func (e *Engine) aluUnitsStations() []unitStation {
	pairs := make([]unitStation, len(e.aluUnits))
	for i := range e.aluUnits {
		pairs[i] = unitStation{e.aluUnits[i], e.aluRS[i], nil}
	}
	return pairs
}

// lsuEligible withholds a load from dispatch while any MOB-older store is
// still unresolved, so that store keeps the single LSU free to run and
// resolve instead of being permanently blocked behind the load it would
// otherwise need to forward from (spec.md section 4.5).
func (e *Engine) lsuEligible(inst *isa.Instruction) bool {
	if !inst.Op.IsLoad() {
		return true
	}
	return !e.mob.OlderStoreUnresolved(inst.MOBIndex)
}

func (e *Engine) tryDispatch(pairs []unitStation) {
	for _, p := range pairs {
		if p.unit.Busy() {
			continue
		}
		inst, ok := p.rs.Dispatch(p.eligible)
		if !ok {
			continue
		}
		inst.Stamps.Issued = e.cycle
		p.unit.Dispatch(inst)
	}
}

// flushAfter invalidates every in-flight instruction younger than tag
// across the ROB, MOB, reservation stations and execution units, and
// restores any RAT mapping that pointed at one of them (spec.md
// invariant 6).
func (e *Engine) flushAfter(tag int) {
	seq := e.rob.SeqOf(tag)

	// Units look up their instruction's age in the ROB, so they are
	// flushed before the ROB clears the younger entries.
	for _, u := range e.allUnits {
		u.Flush(seq, e.rob.SeqOf)
	}

	flushed := e.rob.FlushAfter(tag)
	e.mob.FlushAfter(seq)

	for _, rs := range e.allStations {
		rs.FlushAfter(seq)
	}

	for _, f := range flushed {
		if f.Dest != -1 {
			if e.rat.ClearIfOwner(f.Dest, f.Tag) {
				e.scoreboard.ClearBusy(f.Dest)
			}
		}
	}

	e.stats.Flushes++
}

// Run ticks the engine until it halts or the program runs out of
// in-flight and fetchable work.
func (e *Engine) Run() {
	for !e.halted && !e.drained() {
		e.Tick()
	}
}

// RunCycles ticks the engine up to n times, stopping early if it halts.
func (e *Engine) RunCycles(n uint64) {
	for i := uint64(0); i < n && !e.halted; i++ {
		e.Tick()
	}
}

// drained reports whether the engine has nothing left to do: fetch has
// run past the end of the program, there is no pending fetch buffer, and
// the ROB is empty.
func (e *Engine) drained() bool {
	return e.fetch.AtEnd() && e.fetchBuf == nil && e.rob.Empty()
}
