// Package chantable is the fixed-capacity channel table: one slot per
// concurrently active stream, holding mix-time parameters (gain,
// ducking, loop, category) plus the registry handle that owns the
// underlying decoder.
//
// Per the coarse-lock design note (spec.md §9), Table owns a single
// mutex that guards both itself and its embedded stream registry.
// Callers needing more than one operation done atomically (the
// processor's dispatch algorithm, the mixer's per-tick pass) call Lock
// / Unlock around the whole sequence rather than relying on
// per-method locking.
package chantable

import (
	"sync"

	"github.com/jsm174/libaltsound/internal/catalog"
	"github.com/jsm174/libaltsound/internal/registry"
)

// Slot is one channel table entry.
type Slot struct {
	Handle   registry.Handle
	Category catalog.Category
	Gain     float64 // base gain: the sample's DefaultGain; no per-category multiplier is applied
	Ducking  float64 // dynamic multiplier recomputed as other sounds start/stop; 1.0 = no duck
	Loop     bool
	StartSeq uint64 // allocation order, used to find the "oldest" slot in a category

	// DuckProfile is the name of the ducking profile declared on the
	// sample this slot is playing, or "" if the sample didn't declare
	// one. It takes precedence over the category behavior's own Ducks
	// entry when present (set via SetDuckProfile after Allocate).
	DuckProfile string
}

// Table is the fixed-capacity channel table plus its stream registry.
type Table struct {
	mu      sync.Mutex
	slots   []*Slot
	reg     *registry.Registry
	nextSeq uint64
}

// New returns a Table with the given fixed capacity.
func New(capacity int) *Table {
	return &Table{
		slots: make([]*Slot, capacity),
		reg:   registry.New(),
	}
}

// Lock acquires the coarse channel-table-plus-registry lock.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the coarse lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// Registry returns the embedded stream registry. Callers must hold
// the Table's lock for the duration of any registry access.
func (t *Table) Registry() *registry.Registry { return t.reg }

// Capacity returns the fixed number of channel slots.
func (t *Table) Capacity() int { return len(t.slots) }

// ActiveCount returns the number of occupied slots in category.
// Caller must hold the lock.
func (t *Table) ActiveCount(category catalog.Category) int {
	n := 0
	for _, s := range t.slots {
		if s != nil && s.Category == category {
			n++
		}
	}
	return n
}

// Allocate claims the first free slot. Returns (-1, false) if the
// table is at capacity. Caller must hold the lock.
func (t *Table) Allocate(handle registry.Handle, category catalog.Category, gain float64, loop bool) (int, bool) {
	for i, s := range t.slots {
		if s == nil {
			t.nextSeq++
			t.slots[i] = &Slot{
				Handle:   handle,
				Category: category,
				Gain:     gain,
				Ducking:  1.0,
				Loop:     loop,
				StartSeq: t.nextSeq,
			}
			return i, true
		}
	}
	return -1, false
}

// Free clears a slot by index. Caller must hold the lock.
func (t *Table) Free(index int) {
	if index >= 0 && index < len(t.slots) {
		t.slots[index] = nil
	}
}

// FreeByHandle clears whichever slot (if any) references handle.
// Caller must hold the lock.
func (t *Table) FreeByHandle(h registry.Handle) {
	for i, s := range t.slots {
		if s != nil && s.Handle == h {
			t.slots[i] = nil
			return
		}
	}
}

// Slot returns the slot at index, or nil if it's empty. Caller must
// hold the lock.
func (t *Table) Slot(index int) *Slot {
	if index < 0 || index >= len(t.slots) {
		return nil
	}
	return t.slots[index]
}

// OldestIndex returns the index of the longest-running slot in
// category, for the "evict oldest" saturation policy. Caller must
// hold the lock.
func (t *Table) OldestIndex(category catalog.Category) (int, bool) {
	best := -1
	var bestSeq uint64
	for i, s := range t.slots {
		if s == nil || s.Category != category {
			continue
		}
		if best == -1 || s.StartSeq < bestSeq {
			best = i
			bestSeq = s.StartSeq
		}
	}
	return best, best != -1
}

// Each calls fn for every occupied slot. Caller must hold the lock.
func (t *Table) Each(fn func(index int, s *Slot)) {
	for i, s := range t.slots {
		if s != nil {
			fn(i, s)
		}
	}
}

// SetDucking updates a slot's dynamic ducking multiplier. Caller must
// hold the lock.
func (t *Table) SetDucking(index int, v float64) {
	if s := t.Slot(index); s != nil {
		s.Ducking = v
	}
}

// SetDuckProfile records the name of the ducking profile declared on
// the sample a slot is playing. Caller must hold the lock.
func (t *Table) SetDuckProfile(index int, name string) {
	if s := t.Slot(index); s != nil {
		s.DuckProfile = name
	}
}
