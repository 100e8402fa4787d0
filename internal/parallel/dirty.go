package parallel

import (
	"math/bits"
	"sync/atomic"
)

// DirtySet tracks which environment slots need rebuilding using an atomic
// bitmap, one bit per slot packed 64 to a word.
//
// All methods are safe for concurrent use without external locking.
type DirtySet struct {
	words []atomic.Uint64
	n     int
}

// NewDirtySet creates a set for slots [0, n). All slots start clean.
// Returns nil if n is not positive.
func NewDirtySet(n int) *DirtySet {
	if n <= 0 {
		return nil
	}
	return &DirtySet{
		words: make([]atomic.Uint64, (n+63)/64),
		n:     n,
	}
}

// Len returns the number of slots tracked.
func (d *DirtySet) Len() int { return d.n }

// Mark flags slot i as dirty. Out-of-range slots are ignored.
func (d *DirtySet) Mark(i int) {
	if i < 0 || i >= d.n {
		return
	}
	d.words[i/64].Or(1 << (i & 63))
}

// MarkAll flags every slot as dirty.
func (d *DirtySet) MarkAll() {
	full, rem := d.n/64, d.n%64
	for i := range full {
		d.words[i].Store(^uint64(0))
	}
	if rem > 0 {
		d.words[full].Store(1<<rem - 1)
	}
}

// IsDirty reports whether slot i is flagged.
func (d *DirtySet) IsDirty(i int) bool {
	if i < 0 || i >= d.n {
		return false
	}
	return d.words[i/64].Load()&(1<<(i&63)) != 0
}

// TestAndClear clears slot i and reports whether it was dirty.
func (d *DirtySet) TestAndClear(i int) bool {
	if i < 0 || i >= d.n {
		return false
	}
	bit := uint64(1) << (i & 63)
	return d.words[i/64].And(^bit)&bit != 0
}

// Clear marks every slot clean.
func (d *DirtySet) Clear() {
	for i := range d.words {
		d.words[i].Store(0)
	}
}

// Count returns the number of dirty slots.
func (d *DirtySet) Count() int {
	n := 0
	for i := range d.words {
		n += bits.OnesCount64(d.words[i].Load())
	}
	return n
}

// Drain atomically takes and clears every dirty slot, in ascending order.
func (d *DirtySet) Drain() []int {
	var out []int
	for w := range d.words {
		word := d.words[w].Swap(0)
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, w*64+b)
			word &= word - 1
		}
	}
	return out
}
