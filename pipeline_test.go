package epu

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chewxy/math32"

	"github.com/gogpu/epu/internal/parallel"
)

func constantMap(size int, c Vec3) *RadianceMap {
	m := NewRadianceMap(size)
	for y := range size {
		for x := range size {
			m.Set(x, y, c)
		}
	}
	return m
}

// gradientMap stores a smooth function of direction.
func gradientMap(size int) *RadianceMap {
	m := NewRadianceMap(size)
	for y := range size {
		for x := range size {
			d := TexelDir(x, y, size)
			m.Set(x, y, d.Mul(0.5).Add(V3(0.5, 0.5, 0.5)))
		}
	}
	return m
}

func TestTexelDirCoordRoundTrip(t *testing.T) {
	const size = 16
	for y := range size {
		for x := range size {
			fx, fy := texelCoord(TexelDir(x, y, size), size)
			if math32.Abs(fx-float32(x)) > 1e-3 || math32.Abs(fy-float32(y)) > 1e-3 {
				t.Fatalf("texelCoord(TexelDir(%d, %d)) = %v, %v", x, y, fx, fy)
			}
		}
	}
}

func TestRadianceSampleAtTexelCenters(t *testing.T) {
	m := gradientMap(32)
	for y := range m.Size {
		for x := range m.Size {
			if got, want := m.Sample(TexelDir(x, y, m.Size)), m.At(x, y); !vecNear(got, want, 2e-3) {
				t.Fatalf("Sample at texel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRadianceSampleIsContinuousAcrossFold(t *testing.T) {
	m := gradientMap(64)
	const eps = 1e-3
	for _, pr := range [][2]Vec3{
		{V3(eps, 0.4, -1), V3(-eps, 0.4, -1)},
		{V3(0.4, eps, -1), V3(0.4, -eps, -1)},
		{V3(0.7, 0.7, -eps), V3(0.7, 0.7, eps)},
	} {
		a, b := m.Sample(pr[0]), m.Sample(pr[1])
		if d := a.Sub(b).Length(); d > 0.03 {
			t.Errorf("Sample jumps by %v across the fold between %v and %v", d, pr[0], pr[1])
		}
	}
}

func TestBuildRadianceParallelMatchesSerial(t *testing.T) {
	env, _ := Preset("night")
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	serial := BuildRadiance(&env, 2, 32, Compositor{}, nil)
	par := BuildRadiance(&env, 2, 32, Compositor{}, pool)
	for i := range serial.Pix {
		if serial.Pix[i] != par.Pix[i] {
			t.Fatalf("Pix[%d] = %v parallel, %v serial", i, par.Pix[i], serial.Pix[i])
		}
	}
}

func TestBuildRadianceMatchesComposite(t *testing.T) {
	env, _ := Preset("sunset")
	m := BuildRadiance(&env, 0, 16, Compositor{}, nil)
	for _, xy := range [][2]int{{0, 0}, {7, 8}, {15, 15}, {3, 12}} {
		want := Composite(TexelDir(xy[0], xy[1], 16), &env, 0)
		if got := m.At(xy[0], xy[1]); got != want {
			t.Errorf("texel %v = %v, want %v", xy, got, want)
		}
	}
}

func TestMipSizes(t *testing.T) {
	tests := []struct {
		size, min int
		want      []int
	}{
		{128, 4, []int{128, 64, 32, 16, 8, 4}},
		{64, 64, []int{64}},
		{16, 1, []int{16, 8, 4, 2, 1}},
		{0, 0, []int{1}},
	}
	for _, tt := range tests {
		got := MipSizes(tt.size, tt.min)
		if len(got) != len(tt.want) {
			t.Errorf("MipSizes(%d, %d) = %v, want %v", tt.size, tt.min, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("MipSizes(%d, %d) = %v, want %v", tt.size, tt.min, got, tt.want)
				break
			}
		}
	}
	sizes := MipSizes(128, 4)
	if got := IrradianceLevel(sizes, 16); got != 3 {
		t.Errorf("IrradianceLevel(16) = %d, want 3", got)
	}
	if got := IrradianceLevel(sizes, 1); got != len(sizes)-1 {
		t.Errorf("IrradianceLevel(1) = %d, want last level", got)
	}
}

func TestBlurPreservesConstant(t *testing.T) {
	c := V3(0.25, 0.5, 2)
	levels := BuildPyramid(constantMap(32, c), 4, nil)
	if len(levels) != 4 {
		t.Fatalf("BuildPyramid returned %d levels, want 4", len(levels))
	}
	for i, l := range levels {
		for y := range l.Size {
			for x := range l.Size {
				if got := l.At(x, y); !vecNear(got, c, 1e-5) {
					t.Fatalf("level %d texel (%d, %d) = %v, want %v", i, x, y, got, c)
				}
			}
		}
	}
}

func TestBlurIsSeamFree(t *testing.T) {
	levels := BuildPyramid(gradientMap(64), 8, nil)
	blurred := levels[len(levels)-1]
	const eps = 1e-3
	for _, pr := range [][2]Vec3{
		{V3(eps, 0.4, -1), V3(-eps, 0.4, -1)},
		{V3(0.4, eps, -1), V3(0.4, -eps, -1)},
		{V3(eps, eps, -1), V3(-eps, -eps, -1)},
	} {
		a, b := blurred.Sample(pr[0]), blurred.Sample(pr[1])
		if d := a.Sub(b).Length(); d > 0.05 {
			t.Errorf("blurred level jumps by %v across the fold at %v", d, pr[0])
		}
	}
	// A smooth function stays close to itself after blurring.
	for _, d := range testDirections(64) {
		d = d.Normalize()
		want := d.Mul(0.5).Add(V3(0.5, 0.5, 0.5))
		if got := blurred.Sample(d); got.Sub(want).Length() > 0.35 {
			t.Errorf("blurred(%v) = %v, want near %v", d, got, want)
		}
	}
}

func TestFibonacciDirections(t *testing.T) {
	var sum Vec3
	for i := range SHSampleCount {
		d := fibonacciDir(i, SHSampleCount)
		if math32.Abs(d.Length()-1) > 1e-5 {
			t.Fatalf("fibonacciDir(%d) = %v, not unit", i, d)
		}
		sum = sum.Add(d)
	}
	if sum.Length()/SHSampleCount > 5e-3 {
		t.Errorf("mean Fibonacci direction = %v, want ~0", sum.Mul(1.0/SHSampleCount))
	}
}

func TestSHConstantEnvironment(t *testing.T) {
	c := V3(0.3, 0.6, 0.9)
	sh := ExtractSH9(constantMap(16, c))
	for _, n := range testDirections(64) {
		if got := sh.Eval(n); !vecNear(got, c, 0.01) {
			t.Errorf("Eval(%v) = %v, want %v", n, got, c)
		}
	}
}

func TestSHDirectionalEnvironment(t *testing.T) {
	p := DefaultRampParams()
	p.SkyColor = RGB(255, 255, 255)
	env := NewBuilder().Ramp(p).Build()
	sh := ExtractSH9(BuildRadiance(&env, 0, 16, Compositor{}, nil))

	up, down := sh.Eval(AxisY), sh.Eval(AxisY.Neg())
	if up.X <= down.X+0.3 {
		t.Errorf("ambient up %v should be well above ambient down %v", up, down)
	}
	for _, n := range testDirections(64) {
		if got := sh.Eval(n); got.X < 0 || got.Y < 0 || got.Z < 0 {
			t.Errorf("Eval(%v) = %v, want non-negative", n, got)
		}
	}
}

func TestSHString(t *testing.T) {
	var sh SH9
	sh[0] = V3(1, 2, 3)
	if s := sh.String(); len(s) == 0 || s[:3] != "L0:" {
		t.Errorf("String() = %q", s)
	}
}

func testMaps(t *testing.T, name string) *EnvMaps {
	t.Helper()
	env, ok := Preset(name)
	if !ok {
		t.Fatalf("no preset %q", name)
	}
	s := DefaultSettings()
	s.MapSize = 32
	return BuildEnvMaps(&env, 0, &s, nil)
}

func TestEnvMapsLayout(t *testing.T) {
	m := testMaps(t, "daylight")
	if len(m.Levels) != 4 {
		t.Fatalf("levels = %d, want 4 (32..4)", len(m.Levels))
	}
	for i, l := range m.Levels {
		if want := 32 >> i; l.Size != want {
			t.Errorf("level %d size = %d, want %d", i, l.Size, want)
		}
	}
	if m.IrradianceLevel != 1 {
		t.Errorf("IrradianceLevel = %d, want 1 (size 16)", m.IrradianceLevel)
	}
}

func TestReflectionLOD(t *testing.T) {
	m := testMaps(t, "sunset")
	d := V3(0.8, 0.1, -0.5).Normalize()
	last := m.Levels[len(m.Levels)-1]

	if got, want := m.Reflection(d, 0), m.Background(d); got != want {
		t.Errorf("Reflection(0) = %v, want background %v", got, want)
	}
	if got, want := m.Reflection(d, 1), last.Sample(d); !vecNear(got, want, 1e-5) {
		t.Errorf("Reflection(1) = %v, want last level %v", got, want)
	}
	if got, want := m.Reflection(d, float32(math.NaN())), m.Background(d); got != want {
		t.Errorf("Reflection(NaN) = %v, want background %v", got, want)
	}
	if got, want := m.Reflection(d, 7), m.Reflection(d, 1); got != want {
		t.Errorf("Reflection(7) = %v, want clamped %v", got, want)
	}

	// Continuous in roughness: a 0.01 step moves the level by at most 0.06.
	var maxStep float32
	for i := 0; i+1 < len(m.Levels); i++ {
		maxStep = max(maxStep, m.Levels[i].Sample(d).Sub(m.Levels[i+1].Sample(d)).Length())
	}
	prev := m.Reflection(d, 0)
	for i := 1; i <= 100; i++ {
		r := float32(i) / 100
		cur := m.Reflection(d, r)
		if cur.Sub(prev).Length() > 0.07*maxStep+1e-4 {
			t.Fatalf("Reflection jumps from %v to %v at roughness %v", prev, cur, r)
		}
		prev = cur
	}
}

func TestPlaceholderMaps(t *testing.T) {
	m := placeholderMaps()
	d := V3(0.3, 0.4, 0.5)
	if got := m.Background(d); got != (Vec3{}) {
		t.Errorf("placeholder background = %v", got)
	}
	if got := m.Reflection(d, 0.5); got != (Vec3{}) {
		t.Errorf("placeholder reflection = %v", got)
	}
	if got := m.Ambient(d); got != (Vec3{}) {
		t.Errorf("placeholder ambient = %v", got)
	}
}

func TestBuildEnvMapsHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env, _ := Preset("studio")
	s := DefaultSettings()
	if _, err := buildEnvMaps(ctx, &env, 0, &s, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("buildEnvMaps(canceled) error = %v, want context.Canceled", err)
	}
}

func BenchmarkBuildEnvMaps64(b *testing.B) {
	env, _ := Preset("daylight")
	s := DefaultSettings()
	s.MapSize = 64
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()
	b.ReportAllocs()
	for b.Loop() {
		_ = BuildEnvMaps(&env, 0, &s, pool)
	}
}
