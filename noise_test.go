package epu

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/chewxy/math32"
)

func TestNoiseRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := range 2000 {
		p := Vec3{X: rng.Float32()*400 - 200, Y: rng.Float32()*400 - 200, Z: rng.Float32()*400 - 200}
		seed := rng.Uint32()
		for _, tt := range []struct {
			name string
			v    float32
		}{
			{"valueNoise", valueNoise(p, seed)},
			{"fbm", fbm(p, 1+i%6, seed)},
			{"ridged", ridged(p, 1+i%6, seed)},
		} {
			if tt.v < 0 || tt.v > 1 || math32.IsNaN(tt.v) {
				t.Fatalf("%s(%v, seed %d) = %v, want [0,1]", tt.name, p, seed, tt.v)
			}
		}
	}
}

func TestNoiseDeterministicAndSeeded(t *testing.T) {
	p := Vec3{X: 3.7, Y: -1.2, Z: 0.45}
	if a, b := fbm(p, 4, 0x91a7), fbm(p, 4, 0x91a7); a != b {
		t.Fatalf("fbm not deterministic: %v vs %v", a, b)
	}
	var differ int
	for seed := range uint32(16) {
		if valueNoise(p, seed) != valueNoise(p, seed+1) {
			differ++
		}
	}
	if differ < 12 {
		t.Errorf("only %d of 16 adjacent seeds produced different noise", differ)
	}
}

func TestNoiseVaries(t *testing.T) {
	lo, hi := float32(1), float32(0)
	for i := range 256 {
		v := fbm(Vec3{X: float32(i) * 0.37, Y: 0.5, Z: 2.25}, 4, 3)
		lo, hi = min(lo, v), max(hi, v)
	}
	if hi-lo < 0.2 {
		t.Errorf("fbm spans only [%v, %v] along a line", lo, hi)
	}
}

func TestNoiseWrapsAtPeriod(t *testing.T) {
	tests := []Vec3{
		{X: 0.3, Y: 0.6, Z: 0.9},
		{X: -12.25, Y: 40.5, Z: -0.125},
		{X: 255.5, Y: -255.5, Z: 128},
	}
	for _, p := range tests {
		q := p.Add(Vec3{X: noisePeriod, Y: -noisePeriod, Z: 2 * noisePeriod})
		if a, b := valueNoise(p, 5), valueNoise(q, 5); math32.Abs(a-b) > 1e-3 {
			t.Errorf("valueNoise(%v) = %v, shifted by a period = %v", p, a, b)
		}
	}
}

func TestNoiseWrapPositive(t *testing.T) {
	for _, x := range []float32{-1e6, -256, -0.001, 0, 255.999, 1e6} {
		if v := noiseWrap(x); v < 0 || v >= noisePeriod {
			t.Errorf("noiseWrap(%v) = %v, want [0,%d)", x, v, noisePeriod)
		}
	}
}

func TestNoiseConcurrentFirstUse(t *testing.T) {
	p := Vec3{X: 1.5, Y: 2.5, Z: 3.5}
	want := fbm(p, 7, 0xbeef)
	var wg sync.WaitGroup
	errs := make(chan float32, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range uint32(64) {
				_ = fbm(p, 1+int(seed)%noiseMaxOctaves, seed)
			}
			if got := fbm(p, 7, 0xbeef); got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("concurrent fbm = %v, want %v", got, want)
	}
}
