package epu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/epu/internal/cache"
	"github.com/gogpu/epu/internal/parallel"
)

// Runtime owns the environment store and the per-slot pipeline outputs.
//
// Environments are replaced whole: SetEnvironment publishes an immutable
// copy and every build reads a snapshot, so a build never observes a
// partially written environment. Output lookups never block on builds.
//
// Runtime is safe for concurrent use. Builds are serialized.
type Runtime struct {
	settings Settings
	pool     *parallel.WorkerPool

	envs    [MaxEnvStates]atomic.Pointer[Environment]
	outputs [MaxEnvStates]atomic.Pointer[EnvMaps]

	state *cache.BuildState
	memo  *cache.Sharded[*EnvMaps]
	dirty *parallel.DirtySet

	buildMu sync.Mutex
	stats   runtimeCounters
	closed  atomic.Bool
}

type runtimeCounters struct {
	builds    atomic.Uint64
	envBuilds atomic.Uint64
	skipped   atomic.Uint64
	reused    atomic.Uint64
	fallbacks atomic.Uint64
	overflow  atomic.Uint64
	accelEnvs atomic.Uint64
}

// memoCapacity bounds how many built static environments are retained by
// state hash.
const memoCapacity = 64

// NewRuntime creates a runtime with DefaultSettings modified by opts.
// Settings are validated here; invalid settings or settings that exceed the
// platform limits are rejected with ErrInvalidSettings or ErrLimitExceeded.
func NewRuntime(opts ...Option) (*Runtime, error) {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{
		settings: s,
		pool:     parallel.NewWorkerPool(s.Workers),
		state:    cache.NewBuildState(MaxEnvStates),
		memo:     cache.NewSharded[*EnvMaps](memoCapacity),
		dirty:    parallel.NewDirtySet(MaxEnvStates),
	}
	placeholder := placeholderMaps()
	for i := range rt.outputs {
		rt.outputs[i].Store(placeholder)
	}

	Logger().Info("epu: runtime created",
		"mapSize", s.MapSize,
		"mips", len(s.MipSizes()),
		"workers", rt.pool.Workers(),
		"compose", s.BoundsCompose.String())
	return rt, nil
}

// Settings returns the runtime's settings.
func (rt *Runtime) Settings() Settings { return rt.settings }

// Close stops the worker pool. Outputs stay readable.
func (rt *Runtime) Close() {
	if rt.closed.CompareAndSwap(false, true) {
		rt.pool.Close()
	}
}

func checkID(id uint32) error {
	if id >= MaxEnvStates {
		return fmt.Errorf("%w: %d (max %d)", ErrEnvIDOutOfRange, id, MaxEnvStates-1)
	}
	return nil
}

// SetEnvironment replaces environment id as a whole.
func (rt *Runtime) SetEnvironment(id uint32, env Environment) error {
	if err := checkID(id); err != nil {
		return err
	}
	rt.envs[id].Store(&env)
	rt.dirty.Mark(int(id))
	return nil
}

// SetLayers packs layers and replaces environment id with them.
func (rt *Runtime) SetLayers(id uint32, layers [LayerCount]Layer) error {
	return rt.SetEnvironment(id, NewEnvironment(layers[:]...))
}

// Environment returns a snapshot of environment id. Unset ids hold the
// empty environment.
func (rt *Runtime) Environment(id uint32) (Environment, error) {
	if err := checkID(id); err != nil {
		return Environment{}, err
	}
	if p := rt.envs[id].Load(); p != nil {
		return *p, nil
	}
	return Environment{}, nil
}

// Maps returns the latest outputs of environment id. Before its first build
// a slot holds a 1x1 black radiance level and zero SH. Ids out of range
// resolve to slot 0.
func (rt *Runtime) Maps(id uint32) *EnvMaps {
	if id >= MaxEnvStates {
		id = 0
	}
	return rt.outputs[id].Load()
}

// Background returns the sharp radiance of environment id along dir.
func (rt *Runtime) Background(id uint32, dir Vec3) Vec3 { return rt.Maps(id).Background(dir) }

// Reflection returns prefiltered radiance of environment id along dir.
func (rt *Runtime) Reflection(id uint32, dir Vec3, roughness float32) Vec3 {
	return rt.Maps(id).Reflection(dir, roughness)
}

// Ambient returns the diffuse ambient of environment id for normal n.
func (rt *Runtime) Ambient(id uint32, n Vec3) Vec3 { return rt.Maps(id).Ambient(n) }

// Invalidate forces environment id to rebuild on its next build.
func (rt *Runtime) Invalidate(id uint32) {
	if id < MaxEnvStates {
		rt.state.Invalidate(int(id))
		rt.dirty.Mark(int(id))
	}
}

// InvalidateAll forces every environment to rebuild and drops retained
// builds.
func (rt *Runtime) InvalidateAll() {
	rt.state.InvalidateAll()
	rt.memo.Clear()
	rt.dirty.MarkAll()
}

// Pending returns the ids changed or invalidated since they were last built.
func (rt *Runtime) Pending() int { return rt.dirty.Count() }

// BuildReport describes one Build call.
type BuildReport struct {
	Active  ActiveList
	Frame   uint64
	Built   []uint32 // ids run through the pipeline
	Reused  []uint32 // ids served from retained builds
	Skipped []uint32 // ids whose outputs were already current
	Backend string   // accelerator name, or "cpu"
}

// Build brings the outputs of the environments referenced by ids up to date
// for time t.
//
// The ids are collected into an ActiveList; static environments whose
// instructions did not change since their last build are skipped, and
// time-dependent environments are always rebuilt. The registered
// accelerator runs first; on ErrFallbackToCPU or any other accelerator error
// the batch is rebuilt on the CPU. Cancellation of ctx is honored between
// environments and pipeline stages; slots that were not finished keep their
// previous outputs and are rebuilt next time.
func (rt *Runtime) Build(ctx context.Context, ids []uint32, t float32) (BuildReport, error) {
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return BuildReport{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return BuildReport{}, err
	}

	rt.buildMu.Lock()
	defer rt.buildMu.Unlock()

	active := CollectActive(ids, rt.settings.MaxActive)
	report := BuildReport{Active: active, Frame: rt.state.AdvanceFrame(), Backend: "cpu"}
	rt.stats.builds.Add(1)
	if active.Overflow > 0 {
		rt.stats.overflow.Add(uint64(active.Overflow))
		Logger().Warn("epu: active environments exceed cap, extra ids fall back to slot 0",
			"unique", len(active.IDs)+active.Overflow,
			"cap", len(active.IDs),
			"dropped", active.Overflow)
	}

	var jobs []BuildJob
	for _, id := range active.IDs {
		env, _ := rt.Environment(id)
		hash := env.StateHash()
		timeDep := env.IsTimeDependent()
		if !rt.state.NeedsRebuild(int(id), hash, timeDep) {
			report.Skipped = append(report.Skipped, id)
			continue
		}
		if !timeDep {
			if m, ok := rt.memo.Get(hash); ok {
				rt.outputs[id].Store(m)
				rt.dirty.TestAndClear(int(id))
				report.Reused = append(report.Reused, id)
				continue
			}
		}
		jobs = append(jobs, BuildJob{ID: id, Env: env})
	}
	rt.stats.skipped.Add(uint64(len(report.Skipped)))
	rt.stats.reused.Add(uint64(len(report.Reused)))
	Logger().Debug("epu: build",
		"frame", report.Frame,
		"active", len(active.IDs),
		"jobs", len(jobs),
		"skipped", len(report.Skipped),
		"reused", len(report.Reused))

	if len(jobs) == 0 {
		return report, nil
	}

	batch := &BuildBatch{Jobs: jobs, Time: t, Settings: rt.settings}
	out, backend, err := rt.runBatch(ctx, batch)
	if backend != "" {
		report.Backend = backend
	}
	for i, job := range jobs {
		if i >= len(out) || out[i] == nil {
			rt.state.Invalidate(int(job.ID))
			continue
		}
		rt.outputs[job.ID].Store(out[i])
		rt.dirty.TestAndClear(int(job.ID))
		if !job.Env.IsTimeDependent() {
			rt.memo.Set(job.Env.StateHash(), out[i])
		}
		report.Built = append(report.Built, job.ID)
	}
	rt.stats.envBuilds.Add(uint64(len(report.Built)))
	return report, err
}

// runBatch tries the accelerator and falls back to the CPU pipeline.
func (rt *Runtime) runBatch(ctx context.Context, batch *BuildBatch) ([]*EnvMaps, string, error) {
	if a := Accelerator(); a != nil {
		out, err := a.Build(ctx, batch)
		switch {
		case err == nil && len(out) == len(batch.Jobs):
			rt.stats.accelEnvs.Add(uint64(len(out)))
			return out, a.Name(), nil
		case ctx.Err() != nil:
			return nil, a.Name(), ctx.Err()
		case err == nil:
			err = fmt.Errorf("accelerator returned %d outputs for %d jobs", len(out), len(batch.Jobs))
		}
		rt.stats.fallbacks.Add(1)
		if errors.Is(err, ErrFallbackToCPU) {
			Logger().Debug("epu: accelerator declined batch", "name", a.Name(), "err", err)
		} else {
			Logger().Warn("epu: accelerator failed, falling back to CPU", "name", a.Name(), "err", err)
		}
	}
	out, err := rt.buildCPU(ctx, batch)
	return out, "", err
}

func (rt *Runtime) buildCPU(ctx context.Context, batch *BuildBatch) ([]*EnvMaps, error) {
	out := make([]*EnvMaps, len(batch.Jobs))
	for i := range batch.Jobs {
		m, err := buildEnvMaps(ctx, &batch.Jobs[i].Env, batch.Time, &batch.Settings, rt.pool)
		if err != nil {
			return out, err
		}
		out[i] = m
	}
	return out, nil
}

// RuntimeStats are cumulative runtime counters.
type RuntimeStats struct {
	Builds        uint64 // Build calls
	EnvBuilds     uint64 // environments run through the pipeline
	Skipped       uint64 // environments already current
	Reused        uint64 // environments served from retained builds
	Fallbacks     uint64 // batches moved from the accelerator to the CPU
	Overflow      uint64 // ids dropped by the active cap
	Accelerated   uint64 // environments built by the accelerator
	Pending       int    // environments changed since their last build
	Frame         uint64
	MemoEntries   int
	MemoHitRate   float64
	MemoEvictions uint64
}

// Stats returns a snapshot of the runtime counters.
func (rt *Runtime) Stats() RuntimeStats {
	ms := rt.memo.Stats()
	return RuntimeStats{
		Builds:        rt.stats.builds.Load(),
		EnvBuilds:     rt.stats.envBuilds.Load(),
		Skipped:       rt.stats.skipped.Load(),
		Reused:        rt.stats.reused.Load(),
		Fallbacks:     rt.stats.fallbacks.Load(),
		Overflow:      rt.stats.overflow.Load(),
		Accelerated:   rt.stats.accelEnvs.Load(),
		Pending:       rt.dirty.Count(),
		Frame:         rt.state.Frame(),
		MemoEntries:   ms.Len,
		MemoHitRate:   ms.HitRate,
		MemoEvictions: ms.Evictions,
	}
}
