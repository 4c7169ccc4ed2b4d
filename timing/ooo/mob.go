package ooo

// mobEntry tracks one in-flight load or store, in the order it was
// decoded.
type mobEntry struct {
	valid bool

	// seq mirrors the owning ROB entry's allocation sequence, so the MOB
	// can be ordered and flushed using the same age metric as the ROB
	// without needing its own counter.
	seq uint64

	tag     int // ROB tag
	isStore bool

	// resolved becomes true once the effective address (and, for a
	// store, the value to write) is known. Both become known together:
	// a memory op only dispatches out of its reservation station once
	// all of its operands are concrete (spec.md section 4.3), so there
	// is no state where the address is known but the store data is not.
	resolved bool
	addr     int
	data     int64

	committed bool
}

// MemoryOrderBuffer is the ordered queue of in-flight loads and stores
// spec.md section 3 describes: it enforces that a load may only read
// MEMORY when no older store's address is still unresolved, and that it
// must forward from the youngest older store to the same address when one
// exists (section 4.5).
type MemoryOrderBuffer struct {
	entries []mobEntry
	head    int
	tail    int
	count   int
}

// NewMemoryOrderBuffer returns an empty MOB with room for capacity
// in-flight memory operations.
func NewMemoryOrderBuffer(capacity int) *MemoryOrderBuffer {
	return &MemoryOrderBuffer{entries: make([]mobEntry, capacity)}
}

// Full reports whether the MOB has no room for another allocation.
func (m *MemoryOrderBuffer) Full() bool { return m.count == len(m.entries) }

// Alloc reserves an MOB entry for the memory instruction that owns ROB
// tag/seq, returning the index used to address it later (stashed on
// isa.Instruction.MOBIndex by decode).
func (m *MemoryOrderBuffer) Alloc(tag int, seq uint64, isStore bool) int {
	if m.Full() {
		panic("ooo: MOB.Alloc called while full")
	}

	idx := m.tail
	m.entries[idx] = mobEntry{valid: true, seq: seq, tag: tag, isStore: isStore}
	m.tail = (m.tail + 1) % len(m.entries)
	m.count++
	return idx
}

// Resolve records the effective address (and, for a store, the value to
// write) once the owning instruction's operands are concrete.
func (m *MemoryOrderBuffer) Resolve(idx, addr int, data int64) {
	e := &m.entries[idx]
	e.resolved = true
	e.addr = addr
	e.data = data
}

// Forward scans every store older than idx for one targeting the same
// address. It returns blocked=true if an older store's address is not
// yet resolved — its aliasing is unknown, so the load cannot safely
// proceed — and otherwise returns the value of the youngest matching
// older store, if any.
func (m *MemoryOrderBuffer) Forward(idx int) (value int64, found bool, blocked bool) {
	target := m.entries[idx]

	for i := m.head; i != m.tail; i = (i + 1) % len(m.entries) {
		if i == idx {
			break
		}
		e := &m.entries[i]
		if !e.valid || e.seq >= target.seq || !e.isStore {
			continue
		}
		if !e.resolved {
			return 0, false, true
		}
		if e.addr == target.addr {
			value, found = e.data, true
		}
	}

	return value, found, false
}

// OlderStoreUnresolved reports whether any store allocated before idx has
// not yet had its address resolved. A load at idx must not leave its
// reservation station while this holds — its aliasing against that store
// is unknown, so letting it occupy the shared execution unit would block
// the very store it is waiting on from ever resolving (spec.md section
// 4.5).
func (m *MemoryOrderBuffer) OlderStoreUnresolved(idx int) bool {
	target := m.entries[idx]

	for i := m.head; i != m.tail; i = (i + 1) % len(m.entries) {
		if i == idx {
			break
		}
		e := &m.entries[i]
		if !e.valid || e.seq >= target.seq || !e.isStore {
			continue
		}
		if !e.resolved {
			return true
		}
	}

	return false
}

// CommitStore returns the address and data a store should write to
// architectural memory, called by the commit stage once the store's ROB
// entry retires (spec.md section 4.6(b)).
func (m *MemoryOrderBuffer) CommitStore(idx int) (addr int, data int64) {
	e := &m.entries[idx]
	e.committed = true
	return e.addr, e.data
}

// Retire drops the MOB's oldest entry. The caller is responsible for only
// calling this once that entry's owning ROB entry has committed, which
// guarantees the committed memory op's entry is the current head since
// memory ops retire in the same relative order they were allocated.
func (m *MemoryOrderBuffer) Retire() {
	if m.count == 0 {
		panic("ooo: MOB.Retire on empty buffer")
	}
	m.entries[m.head] = mobEntry{}
	m.head = (m.head + 1) % len(m.entries)
	m.count--
}

// FlushAfter drops every entry strictly younger than keepSeq (spec.md
// invariant 6), mirroring ReorderBuffer.FlushAfter.
func (m *MemoryOrderBuffer) FlushAfter(keepSeq uint64) {
	var kept int
	youngestKept := -1

	for i := 0; i < len(m.entries); i++ {
		if !m.entries[i].valid {
			continue
		}
		if m.entries[i].seq > keepSeq {
			m.entries[i] = mobEntry{}
			continue
		}
		kept++
		if youngestKept == -1 || m.entries[i].seq > m.entries[youngestKept].seq {
			youngestKept = i
		}
	}

	m.count = kept
	if kept == 0 {
		m.tail = m.head
		return
	}
	m.tail = (youngestKept + 1) % len(m.entries)
}
