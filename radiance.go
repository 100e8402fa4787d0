package epu

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/epu/internal/parallel"
)

// RadianceMap is one octahedral radiance level: Size x Size texels of linear
// RGBA float32, row-major. Alpha is always 1.
type RadianceMap struct {
	Size int
	Pix  []float32
}

// NewRadianceMap allocates a black map. Size is clamped to at least 1.
func NewRadianceMap(size int) *RadianceMap {
	size = max(size, 1)
	m := &RadianceMap{Size: size, Pix: make([]float32, size*size*4)}
	for i := 3; i < len(m.Pix); i += 4 {
		m.Pix[i] = 1
	}
	return m
}

// At returns the texel at (x, y). Coordinates must be in range.
func (m *RadianceMap) At(x, y int) Vec3 {
	i := (y*m.Size + x) * 4
	return Vec3{X: m.Pix[i], Y: m.Pix[i+1], Z: m.Pix[i+2]}
}

// Set stores c at (x, y).
func (m *RadianceMap) Set(x, y int, c Vec3) {
	i := (y*m.Size + x) * 4
	m.Pix[i] = c.X
	m.Pix[i+1] = c.Y
	m.Pix[i+2] = c.Z
	m.Pix[i+3] = 1
}

// atWrapped reads a texel with octahedral border mirroring: stepping off one
// edge lands on the mirrored texel of the same edge, which is the neighbor
// across the fold.
func (m *RadianceMap) atWrapped(x, y int) Vec3 {
	n := m.Size
	if x < 0 {
		x, y = -x-1, n-1-y
	} else if x >= n {
		x, y = 2*n-1-x, n-1-y
	}
	if y < 0 {
		x, y = n-1-x, -y-1
	} else if y >= n {
		x, y = n-1-x, 2*n-1-y
	}
	x = min(max(x, 0), n-1)
	y = min(max(y, 0), n-1)
	return m.At(x, y)
}

// TexelDir returns the direction through the center of texel (x, y) of a
// size x size octahedral map.
func TexelDir(x, y, size int) Vec3 {
	s := float32(size)
	return DecodeOct(Vec2{
		X: (float32(x)+0.5)/s*2 - 1,
		Y: (float32(y)+0.5)/s*2 - 1,
	})
}

// texelCoord returns the continuous texel coordinate of dir, with texel
// centers at integer values.
func texelCoord(dir Vec3, size int) (float32, float32) {
	p := EncodeOct(dir)
	s := float32(size)
	return (p.X*0.5+0.5)*s - 0.5, (p.Y*0.5+0.5)*s - 0.5
}

// Sample returns the bilinearly filtered radiance toward dir.
func (m *RadianceMap) Sample(dir Vec3) Vec3 {
	if m.Size == 1 {
		return m.At(0, 0)
	}
	fx, fy := texelCoord(dir, m.Size)
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := m.atWrapped(x0, y0)
	c10 := m.atWrapped(x0+1, y0)
	c01 := m.atWrapped(x0, y0+1)
	c11 := m.atWrapped(x0+1, y0+1)
	return c00.Lerp(c10, tx).Lerp(c01.Lerp(c11, tx), ty)
}

// Average returns the mean texel color.
func (m *RadianceMap) Average() Vec3 {
	var sum Vec3
	for y := range m.Size {
		for x := range m.Size {
			sum = sum.Add(m.At(x, y))
		}
	}
	return sum.Mul(1 / float32(m.Size*m.Size))
}

// BuildRadiance evaluates env at time t into a size x size map. Rows are
// spread over pool; a nil pool builds on the calling goroutine.
func BuildRadiance(env *Environment, t float32, size int, c Compositor, pool *parallel.WorkerPool) *RadianceMap {
	m := NewRadianceMap(size)
	layers := env.Decode()
	parallel.ForRows(pool, m.Size, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			for x := range m.Size {
				m.Set(x, y, c.evalLayers(TexelDir(x, y, m.Size), &layers, t))
			}
		}
	})
	return m
}
