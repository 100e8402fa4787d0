// Package cache provides the caching primitives of the radiance runtime.
//
// # BuildState
//
// Per-slot dirty tracking. Each environment slot remembers the state hash
// and time dependency of the instructions it was last built from, so static
// environments are rebuilt only when their instructions change:
//
//	bs := cache.NewBuildState(256)
//	if bs.NeedsRebuild(id, env.StateHash(), env.IsTimeDependent()) {
//	    // build
//	}
//
// # Sharded[V]
//
// A sharded LRU keyed by 64-bit state hashes. The runtime memoizes built
// outputs of static environments in it, so an environment id switched back
// to instructions it already showed reuses the earlier build.
//
//	maps := cache.NewSharded[*Output](64)
//	maps.Set(hash, out)
//	out, ok := maps.Get(hash)
//
// # Thread Safety
//
// Both types are safe for concurrent use and must not be copied after
// creation.
package cache
