package epu

import (
	"sync/atomic"

	"github.com/aquilax/go-perlin"
	"github.com/chewxy/math32"
)

// Deterministic noise. Smooth noise is Perlin gradient noise; the integer
// hashes below drive cell jitter, scatter points and seed folding.

// hash32 is the lowbias32 integer finalizer.
func hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// hashCell hashes a 3D lattice cell and a seed.
func hashCell(ix, iy, iz int32, seed uint32) uint32 {
	h := hash32(uint32(ix)*0x8da6b343 ^ hash32(uint32(iy)*0xd8163841^hash32(uint32(iz)*0xcb1ab31f^seed)))
	return h
}

// hashFloat maps a hash to [0,1).
func hashFloat(h uint32) float32 {
	return float32(h>>8) / 16777216
}

// hash3 returns three independent values in [0,1) for a cell.
func hash3(ix, iy, iz int32, seed uint32) Vec3 {
	h := hashCell(ix, iy, iz, seed)
	h2 := hash32(h ^ 0x68bc21eb)
	h3 := hash32(h2 ^ 0x02e5be93)
	return Vec3{X: hashFloat(h), Y: hashFloat(h2), Z: hashFloat(h3)}
}

func floorI(x float32) int32 { return int32(math32.Floor(x)) }

const (
	noiseSlots      = 32
	noiseMaxOctaves = 8
	// noisePeriod is the lattice period of a perlin.Perlin table.
	noisePeriod = 256
)

// noiseGens holds one generator per (seed slot, octave count), built on
// first use and shared by all workers.
var noiseGens [noiseSlots][noiseMaxOctaves]atomic.Pointer[perlin.Perlin]

func noiseGen(slot uint32, octaves int) *perlin.Perlin {
	o := min(max(octaves, 1), noiseMaxOctaves)
	cell := &noiseGens[slot%noiseSlots][o-1]
	if g := cell.Load(); g != nil {
		return g
	}
	g := perlin.NewPerlin(2, 2, int32(o), int64(slot%noiseSlots)+1)
	if !cell.CompareAndSwap(nil, g) {
		return cell.Load()
	}
	return g
}

// noiseWrap folds a coordinate into [0, noisePeriod). The tables repeat
// with that period, so the fold is seamless and keeps every axis positive
// (Noise3D drops to 2D for negative z).
func noiseWrap(x float32) float64 {
	v := float64(x) - noisePeriod*float64(math32.Floor(x/noisePeriod))
	if v >= noisePeriod || v < 0 {
		return 0
	}
	return v
}

// perlinAt samples the seed's generator. Seeds sharing a slot are decorrelated
// by a hashed lattice offset.
func perlinAt(p Vec3, octaves int, seed uint32) float32 {
	h := hash32(seed)
	off := hash3(int32(h), int32(seed), 0, 0x51ed)
	x := noiseWrap(p.X + off.X*noisePeriod)
	y := noiseWrap(p.Y + off.Y*noisePeriod)
	z := noiseWrap(p.Z + off.Z*noisePeriod)
	return float32(noiseGen(h>>27, octaves).Noise3D(x, y, z))
}

// octaveNorm is the summed amplitude of n octaves at persistence 1/2.
func octaveNorm(n int) float32 {
	n = min(max(n, 1), noiseMaxOctaves)
	return 2 - math32.Ldexp(1, 1-n)
}

// valueNoise returns smooth noise in [0,1].
func valueNoise(p Vec3, seed uint32) float32 {
	return saturate(0.5 + 0.75*perlinAt(p, 1, seed))
}

// fbm sums octaves of gradient noise at lacunarity 2, normalized to [0,1].
func fbm(p Vec3, octaves int, seed uint32) float32 {
	if octaves <= 0 {
		return 0
	}
	return saturate(0.5 + 0.75*perlinAt(p, octaves, seed)/octaveNorm(octaves))
}

// ridged returns ridged multifractal noise in [0,1].
func ridged(p Vec3, octaves int, seed uint32) float32 {
	var sum, norm float32
	amp := float32(0.5)
	for i := range min(octaves, noiseMaxOctaves) {
		n := 1 - saturate(math32.Abs(1.5*perlinAt(p, 1, seed+uint32(i)*0x9e37)))
		sum += n * n * amp
		norm += amp
		p = p.Mul(2)
		amp *= 0.5
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// voronoiResult holds the two nearest feature distances and the owning cell.
type voronoiResult struct {
	f1, f2 float32
	cell   [3]int32
}

// voronoi evaluates jittered-grid cellular noise over the 27 neighbors.
func voronoi(p Vec3, jitter float32, seed uint32) voronoiResult {
	ix, iy, iz := floorI(p.X), floorI(p.Y), floorI(p.Z)
	r := voronoiResult{f1: 1e9, f2: 1e9}
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				cx, cy, cz := ix+dx, iy+dy, iz+dz
				j := hash3(cx, cy, cz, seed)
				fp := Vec3{
					X: float32(cx) + 0.5 + (j.X-0.5)*jitter,
					Y: float32(cy) + 0.5 + (j.Y-0.5)*jitter,
					Z: float32(cz) + 0.5 + (j.Z-0.5)*jitter,
				}
				d := fp.Sub(p).Length()
				if d < r.f1 {
					r.f2 = r.f1
					r.f1 = d
					r.cell = [3]int32{cx, cy, cz}
				} else if d < r.f2 {
					r.f2 = d
				}
			}
		}
	}
	return r
}
