package cache

import (
	"sync"
	"sync/atomic"
)

// SlotState is what a slot was last built from.
type SlotState struct {
	Hash          uint64
	TimeDependent bool
	Valid         bool
}

// BuildState tracks SlotState for a fixed number of environment slots and a
// frame counter.
type BuildState struct {
	mu    sync.Mutex
	slots []SlotState
	frame atomic.Uint64
}

// NewBuildState creates tracking for slots [0, n), all invalid.
func NewBuildState(n int) *BuildState {
	return &BuildState{slots: make([]SlotState, max(n, 0))}
}

// Len returns the number of tracked slots.
func (b *BuildState) Len() int { return len(b.slots) }

// NeedsRebuild reports whether slot id must be rebuilt for instructions with
// the given hash and time dependency, and records them as the slot's state.
// A slot is skipped only when it is valid, its hash matches, and it is not
// time dependent. Out-of-range slots always need a rebuild.
func (b *BuildState) NeedsRebuild(id int, hash uint64, timeDependent bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id < 0 || id >= len(b.slots) {
		return true
	}
	s := &b.slots[id]
	if s.Valid && s.Hash == hash && !s.TimeDependent {
		return false
	}
	*s = SlotState{Hash: hash, TimeDependent: timeDependent, Valid: true}
	return true
}

// Invalidate forces the next NeedsRebuild on slot id to report true.
func (b *BuildState) Invalidate(id int) {
	b.mu.Lock()
	if id >= 0 && id < len(b.slots) {
		b.slots[id].Valid = false
	}
	b.mu.Unlock()
}

// InvalidateAll invalidates every slot.
func (b *BuildState) InvalidateAll() {
	b.mu.Lock()
	for i := range b.slots {
		b.slots[i].Valid = false
	}
	b.mu.Unlock()
}

// Slot returns the recorded state of slot id.
func (b *BuildState) Slot(id int) SlotState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id < 0 || id >= len(b.slots) {
		return SlotState{}
	}
	return b.slots[id]
}

// AdvanceFrame increments the frame counter, wrapping on overflow, and
// returns the new value.
func (b *BuildState) AdvanceFrame() uint64 { return b.frame.Add(1) }

// Frame returns the current frame counter.
func (b *BuildState) Frame() uint64 { return b.frame.Load() }
