package epu

// regionEpsilon is the region weight under which a feature is skipped.
const regionEpsilon = 1e-4

// Compositor folds the eight layers of an environment into a color.
// The zero value uses ComposeReplace.
type Compositor struct {
	Compose BoundsCompose
}

// Composite evaluates env at direction dir and time t with the default
// compositor. It is a pure function: identical inputs give bit-identical
// output.
func Composite(dir Vec3, env *Environment, t float32) Vec3 {
	return Compositor{}.Eval(dir, env, t)
}

// Eval evaluates env at direction dir and time t.
//
// The accumulator starts black, the bounds direction starts at +Y and the
// regions start as all sky. Each bounds layer replaces or composes the
// regions; each feature layer is gated by the mask sum of the current
// regions. A zero-length dir is treated as +Y.
func (c Compositor) Eval(dir Vec3, env *Environment, t float32) Vec3 {
	layers := env.Decode()
	return c.evalLayers(dir, &layers, t)
}

func (c Compositor) evalLayers(dir Vec3, layers *[LayerCount]Layer, t float32) Vec3 {
	d := dir.NormalizeOr(AxisY)
	state := initialBounds()
	var acc Vec3
	for i := range layers {
		l := &layers[i]
		s, ok := c.step(d, l, &state, t)
		if !ok {
			continue
		}
		acc = BlendInto(l.Blend, acc, s.RGB, s.W)
	}
	return acc
}

// step evaluates one layer against the threaded state and advances it.
// ok is false for layers that contribute nothing (NOP, reserved opcodes,
// features outside their regions).
func (c Compositor) step(d Vec3, l *Layer, state *boundsState, t float32) (Sample, bool) {
	switch {
	case l.Opcode.IsBounds():
		s, next := evalBounds(d, l, *state, t)
		var k float32
		*state, k = composeBounds(c.Compose, l.Region, *state, next)
		s.W *= k
		return s.sanitize(), true
	case l.Opcode.IsFeature():
		rw := state.regions.Masked(l.Region)
		if rw <= regionEpsilon {
			return Sample{}, false
		}
		s := evalFeature(d, l, featureContext{axis: state.dir, time: t})
		s.W *= rw
		return s.sanitize(), true
	}
	return Sample{}, false
}

// LayerTrace records one layer's contribution during a traced evaluation.
type LayerTrace struct {
	Index       int
	Opcode      Opcode
	Sample      Sample
	Regions     RegionWeights // regions after the layer
	BoundsDir   Vec3          // bounds direction after the layer
	Accumulator Vec3          // accumulator after blending
	Active      bool
}

// Trace evaluates env like Eval and records every layer's sample and the
// threaded state. It backs the inspector's per-layer contribution view.
func (c Compositor) Trace(dir Vec3, env *Environment, t float32) [LayerCount]LayerTrace {
	layers := env.Decode()
	d := dir.NormalizeOr(AxisY)
	state := initialBounds()
	var acc Vec3
	var out [LayerCount]LayerTrace
	for i := range layers {
		l := &layers[i]
		s, ok := c.step(d, l, &state, t)
		if ok {
			acc = BlendInto(l.Blend, acc, s.RGB, s.W)
		}
		out[i] = LayerTrace{
			Index:       i,
			Opcode:      l.Opcode,
			Sample:      s,
			Regions:     state.regions,
			BoundsDir:   state.dir,
			Accumulator: acc,
			Active:      ok,
		}
	}
	return out
}

// EvalRegions returns the region triple left by the bounds layers of env at
// dir, ignoring features.
func (c Compositor) EvalRegions(dir Vec3, env *Environment, t float32) RegionWeights {
	layers := env.Decode()
	d := dir.NormalizeOr(AxisY)
	state := initialBounds()
	for i := range layers {
		if l := &layers[i]; l.Opcode.IsBounds() {
			_, next := evalBounds(d, l, state, t)
			state, _ = composeBounds(c.Compose, l.Region, state, next)
		}
	}
	return state.regions
}
