package epu

import "slices"

// ActiveList is the deduplicated, sorted and capped set of environment ids
// built by one pipeline invocation. IDs[i] occupies dispatch slot i.
type ActiveList struct {
	IDs []uint32

	// Overflow counts unique ids dropped by the cap.
	Overflow int

	slots map[uint32]int
}

// CollectActive deduplicates and sorts ids and keeps at most limit of them
// (MaxActiveEnvs when limit is not positive). Dropped ids resolve to slot 0.
func CollectActive(ids []uint32, limit int) ActiveList {
	if limit <= 0 || limit > MaxActiveEnvs {
		limit = MaxActiveEnvs
	}
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	var overflow int
	if len(unique) > limit {
		overflow = len(unique) - limit
		unique = unique[:limit]
	}

	slots := make(map[uint32]int, len(unique))
	for i, id := range unique {
		slots[id] = i
	}
	return ActiveList{IDs: unique, Overflow: overflow, slots: slots}
}

// Slot returns the dispatch slot of id, or 0 for ids that are not active.
func (a *ActiveList) Slot(id uint32) int {
	return a.slots[id]
}

// Contains reports whether id made it into the list.
func (a *ActiveList) Contains(id uint32) bool {
	_, ok := a.slots[id]
	return ok
}

// Len returns the number of active ids.
func (a *ActiveList) Len() int { return len(a.IDs) }
