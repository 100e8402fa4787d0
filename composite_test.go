package epu

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
)

func vecNear(a, b Vec3, tol float32) bool {
	return math32.Abs(a.X-b.X) <= tol && math32.Abs(a.Y-b.Y) <= tol && math32.Abs(a.Z-b.Z) <= tol
}

func TestBlendIdentityLaws(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	for range 1000 {
		dst := Vec3{X: r.Float32() * 4, Y: r.Float32() * 4, Z: r.Float32() * 4}
		src := Vec3{X: r.Float32() * 4, Y: r.Float32() * 4, Z: r.Float32() * 4}

		for mode := range Blend(8) {
			if got := BlendInto(mode, dst, src, 0); got != dst {
				t.Fatalf("%v with weight 0 = %v, want %v", mode, got, dst)
			}
		}
		if got := BlendInto(BlendLerp, dst, src, 1); got != src {
			t.Fatalf("LERP with weight 1 = %v, want %v", got, src)
		}
	}
}

func TestBlendNaNWeightIsIgnored(t *testing.T) {
	dst := V3(0.2, 0.3, 0.4)
	nan := float32(math.NaN())
	for mode := range Blend(8) {
		if got := BlendInto(mode, dst, V3(1, 1, 1), nan); got != dst {
			t.Errorf("%v with NaN weight = %v, want %v", mode, got, dst)
		}
	}
}

func TestBlendModes(t *testing.T) {
	dst := V3(0.5, 0.5, 0.5)
	src := V3(1, 0, 0.5)
	tests := []struct {
		mode Blend
		want Vec3
	}{
		{BlendAdd, V3(1.5, 0.5, 1)},
		{BlendMultiply, V3(0.5, 0, 0.25)},
		{BlendMax, V3(1, 0.5, 0.5)},
		{BlendLerp, src},
		{BlendScreen, V3(1, 0.5, 0.75)},
		{BlendMin, V3(0.5, 0, 0.5)},
		{BlendOverlay, V3(1, 0, 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := BlendInto(tt.mode, dst, src, 1); !vecNear(got, tt.want, 1e-6) {
				t.Errorf("BlendInto() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlendAccumulationIsBounded(t *testing.T) {
	acc := Vec3{}
	big := V3(MaxRadiance, MaxRadiance, MaxRadiance)
	for range 8 {
		for _, mode := range []Blend{BlendAdd, BlendScreen, BlendOverlay} {
			acc = BlendInto(mode, acc, big, 1)
		}
	}
	if acc.X > MaxRadiance || acc.Y > MaxRadiance || acc.Z > MaxRadiance {
		t.Errorf("accumulator = %v, exceeds %v", acc, MaxRadiance)
	}
}

func TestHSVRoundTrip(t *testing.T) {
	for _, c := range []Vec3{V3(1, 0, 0), V3(0.2, 0.7, 0.4), V3(0.5, 0.5, 0.5), V3(0, 0, 0)} {
		h, s, v := rgbToHSV(c)
		if got := hsvToRGB(h, s, v); !vecNear(got, c, 1e-5) {
			t.Errorf("hsvToRGB(rgbToHSV(%v)) = %v", c, got)
		}
	}
	// Neutral modulation leaves the color unchanged.
	c := V3(0.2, 0.7, 0.4)
	if got := BlendInto(BlendHSVMod, c, V3(0.5, 0.5, 0.5), 1); !vecNear(got, c, 1e-5) {
		t.Errorf("neutral HSV modulation = %v, want %v", got, c)
	}
}

func TestNopLayerContributesNothing(t *testing.T) {
	r := rand.New(rand.NewPCG(23, 24))
	for range 500 {
		l := randomLayer(r)
		l.Opcode = OpNop
		state := initialBounds()
		s, ok := Compositor{}.step(AxisY, &l, &state, 1)
		if ok || s.W != 0 {
			t.Fatalf("NOP layer %+v produced %+v", l, s)
		}
		if state != initialBounds() {
			t.Fatal("NOP layer changed the bounds state")
		}
	}
}

func TestReservedOpcodesAreNoOps(t *testing.T) {
	r := rand.New(rand.NewPCG(25, 26))
	dirs := testDirections(32)
	for op := OpBand + 1; op <= OpMax; op++ {
		for range 20 {
			l := randomLayer(r)
			l.Opcode = op
			env := NewEnvironment(l)
			for _, d := range dirs {
				if got := Composite(d, &env, 2); got != (Vec3{}) {
					t.Fatalf("reserved opcode %v produced %v", op, got)
				}
			}
		}
	}
}

func TestEmptyEnvironmentIsBlack(t *testing.T) {
	var env Environment
	for _, d := range testDirections(64) {
		if got := Composite(d, &env, 0); got != (Vec3{}) {
			t.Fatalf("Composite(empty) = %v, want black", got)
		}
	}
}

func TestCompositeNeverProducesInvalidColors(t *testing.T) {
	r := rand.New(rand.NewPCG(27, 28))
	dirs := testDirections(48)
	for _, policy := range []BoundsCompose{ComposeReplace, ComposeMask} {
		c := Compositor{Compose: policy}
		for range 200 {
			env := randomEnvironment(r)
			tm := r.Float32() * 100
			for _, d := range dirs {
				got := c.Eval(d, &env, tm)
				for _, v := range []float32{got.X, got.Y, got.Z} {
					if math32.IsNaN(v) || v < 0 || v > MaxRadiance {
						t.Fatalf("Eval() = %v for env %s", got, env.Hex())
					}
				}
			}
		}
	}
}

func TestCompositeDeterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(29, 30))
	envs := []Environment{randomEnvironment(r), randomEnvironment(r)}
	for _, name := range PresetNames() {
		env, _ := Preset(name)
		envs = append(envs, env)
	}
	dirs := testDirections(128)
	for _, env := range envs {
		for _, tm := range []float32{0, 0.5, 13.25, 1000} {
			for _, d := range dirs {
				a := Composite(d, &env, tm)
				b := Composite(d, &env, tm)
				if a != b {
					t.Fatalf("Composite not deterministic at %v t=%v: %v vs %v", d, tm, a, b)
				}
			}
		}
	}
}

func TestCompositeZeroDirection(t *testing.T) {
	env, _ := Preset("daylight")
	if got, want := Composite(Vec3{}, &env, 0), Composite(AxisY, &env, 0); got != want {
		t.Errorf("Composite(zero) = %v, want the +Y result %v", got, want)
	}
}

// Ramp only: ceiling +0.3, floor -0.3, blue sky, gray walls, brown floor.
func TestScenarioRampOnly(t *testing.T) {
	blue, gray, brown := RGB(40, 90, 255), RGB(128, 128, 128), RGB(120, 70, 30)
	p := DefaultRampParams()
	p.SkyColor, p.WallColor, p.FloorColor = blue, gray, brown
	p.CeilQ, p.FloorQ = QuantizeThreshold(0.3), QuantizeThreshold(-0.3)
	env := NewBuilder().Ramp(p).Build()

	if got := Composite(AxisY, &env, 0); !vecNear(got, blue.Vec3(), 1e-4) {
		t.Errorf("up = %v, want blue %v", got, blue.Vec3())
	}
	if got := Composite(AxisY.Neg(), &env, 0); !vecNear(got, brown.Vec3(), 1e-4) {
		t.Errorf("down = %v, want brown %v", got, brown.Vec3())
	}

	horizon := Composite(V3(1, 0.05, 0.2), &env, 0)
	regions := Compositor{}.EvalRegions(V3(1, 0.05, 0.2), &env, 0)
	if regions.Wall < 0.5 {
		t.Errorf("horizon regions = %v, want wall dominated", regions)
	}
	if d := horizon.Sub(gray.Vec3()).Length(); d > 0.1 {
		t.Errorf("horizon = %v, want close to gray %v", horizon, gray.Vec3())
	}
}

// Scatter isolation: directions within a point's size are lit, directions
// farther than size from every point are not.
func TestScenarioScatterIsolation(t *testing.T) {
	p := DefaultScatterParams()
	p.Region = RegionAll
	l := p.layer()
	sp := scatterParamsOf(&l)
	ctx := featureContext{axis: AxisY}

	var point Vec3
	found := false
	for i := range 256 {
		if pt, _, ok := nearestScatterPoint(fibonacciDir(i, 256), Domain3D, sp); ok {
			point, found = pt, true
			break
		}
	}
	if !found {
		t.Fatal("no scatter point found")
	}

	tb, _ := basis(point)
	near := rotateAround(point, tb, sp.size*0.3)
	if a := angleBetween(point, near); a >= float64(sp.size) {
		t.Fatalf("test directions are %v apart, want < %v", a, sp.size)
	}
	for _, d := range []Vec3{point, near} {
		if s := evalFeature(d, &l, ctx); s.W <= 0 {
			t.Errorf("direction %v near point %v has zero weight", d, point)
		}
	}

	far := 0
	for i := range 512 {
		d := fibonacciDir(i, 512)
		if _, dist, ok := nearestScatterPoint(d, Domain3D, sp); ok && dist < sp.size*1.01 {
			continue
		}
		far++
		if s := evalFeature(d, &l, ctx); s.W != 0 {
			t.Errorf("direction %v away from every point has weight %v", d, s.W)
		}
	}
	if far == 0 {
		t.Fatal("no direction away from the point field was found")
	}
}

// Seam check: animated streaks sampled on both sides of the octahedral fold
// near -Z agree, and change smoothly frame to frame.
func TestScenarioSeamCheck(t *testing.T) {
	p := DefaultFlowParams()
	p.Pattern = FlowStreaks
	p.Region = RegionAll
	p.Blend = BlendAdd
	p.ColorA = RGB(255, 255, 255)
	p.ColorB = 0
	p.Speed = 8
	env := NewBuilder().Flow(p).Build()

	const eps = 1e-4
	pairs := [][2]Vec3{
		{V3(eps, 0.3, -1), V3(-eps, 0.3, -1)},  // across x = 0
		{V3(0.3, eps, -1), V3(0.3, -eps, -1)},  // across y = 0
		{V3(eps, eps, -1), V3(-eps, -eps, -1)}, // through -Z
	}
	for _, pr := range pairs {
		pa, pb := EncodeOct(pr[0]), EncodeOct(pr[1])
		if pa.Sub(pb).Length() < 0.5 {
			t.Fatalf("pair %v does not straddle the fold", pr)
		}
	}

	const dt = 1.0 / 60
	for f := range 240 {
		tm := float32(f) * dt
		for _, pr := range pairs {
			a := Composite(pr[0], &env, tm)
			b := Composite(pr[1], &env, tm)
			if d := a.Sub(b).Length(); d > 0.05 {
				t.Fatalf("frame %d: fold jump %v between %v and %v", f, d, a, b)
			}
			next := Composite(pr[0], &env, tm+dt)
			if d := next.Sub(a).Length(); d > 0.15 {
				t.Fatalf("frame %d: temporal jump %v at %v", f, d, pr[0])
			}
		}
	}
}

func TestFeatureRegionGating(t *testing.T) {
	ramp := DefaultRampParams()
	ramp.CeilQ, ramp.FloorQ = 12, 3
	ramp.Softness = 0
	glow := DefaultLobeParams()
	glow.Region = RegionFloor
	glow.Dir = AxisY
	glow.ColorA = RGB(255, 255, 255)
	glow.Exponent = 0

	base := NewBuilder().Ramp(ramp).Build()
	env := NewBuilder().Ramp(ramp).Lobe(glow).Build()
	if got, want := Composite(AxisY, &env, 0), Composite(AxisY, &base, 0); got != want {
		t.Errorf("floor-gated glow changed the sky: %v vs %v", got, want)
	}
}

func TestTraceMatchesEval(t *testing.T) {
	env, _ := Preset("daylight")
	c := Compositor{}
	for _, d := range testDirections(32) {
		tr := c.Trace(d, &env, 3)
		if got, want := tr[LayerCount-1].Accumulator, c.Eval(d, &env, 3); got != want {
			t.Fatalf("Trace accumulator %v != Eval %v", got, want)
		}
		if tr[0].Opcode != OpRamp || !tr[0].Active {
			t.Errorf("trace[0] = %+v, want active RAMP", tr[0])
		}
	}
}

func BenchmarkComposite(b *testing.B) {
	env, _ := Preset("daylight")
	d := V3(0.3, 0.4, -0.5).Normalize()
	b.ReportAllocs()
	for b.Loop() {
		_ = Composite(d, &env, 1.5)
	}
}
