package epu

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/epu/internal/parallel"
)

// Blur kernel weights: one center tap and four taps on a ring.
const (
	blurCenterWeight = 0.4
	blurRingWeight   = 0.15
)

// MipSizes returns the level sizes of a pyramid whose base is size and whose
// smallest level is not below minSize. Each level halves the previous one.
func MipSizes(size, minSize int) []int {
	size = max(size, 1)
	minSize = max(minSize, 1)
	sizes := []int{size}
	for s := size / 2; s >= minSize && s >= 1; s /= 2 {
		sizes = append(sizes, s)
	}
	return sizes
}

// IrradianceLevel picks the level used as the source for SH9 extraction:
// the first level whose size is at most target, or the last level.
func IrradianceLevel(sizes []int, target int) int {
	for i, s := range sizes {
		if s <= target {
			return i
		}
	}
	return len(sizes) - 1
}

// BuildPyramid returns base followed by progressively blurred levels down to
// minSize. Each level is filtered from the previous one with taps placed in
// direction space around a tangent frame, so the filter never steps across
// the octahedral fold in 2D.
func BuildPyramid(base *RadianceMap, minSize int, pool *parallel.WorkerPool) []*RadianceMap {
	sizes := MipSizes(base.Size, minSize)
	levels := make([]*RadianceMap, len(sizes))
	levels[0] = base
	for i := 1; i < len(sizes); i++ {
		levels[i] = blurLevel(levels[i-1], sizes[i], pool)
	}
	return levels
}

func blurLevel(src *RadianceMap, size int, pool *parallel.WorkerPool) *RadianceMap {
	dst := NewRadianceMap(size)
	angle := 2 * math32.Pi / float32(size)
	sa, ca := math32.Sin(angle), math32.Cos(angle)
	parallel.ForRows(pool, size, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			for x := range size {
				dst.Set(x, y, blurTap(src, TexelDir(x, y, size), sa, ca))
			}
		}
	})
	return dst
}

// blurTap applies the 5-tap kernel around n; sa and ca are the sine and
// cosine of the tap angle.
func blurTap(src *RadianceMap, n Vec3, sa, ca float32) Vec3 {
	t, b := basis(n)
	c := src.Sample(n).Mul(blurCenterWeight)
	c = c.Add(src.Sample(n.Mul(ca).Add(t.Mul(sa))).Mul(blurRingWeight))
	c = c.Add(src.Sample(n.Mul(ca).Sub(t.Mul(sa))).Mul(blurRingWeight))
	c = c.Add(src.Sample(n.Mul(ca).Add(b.Mul(sa))).Mul(blurRingWeight))
	c = c.Add(src.Sample(n.Mul(ca).Sub(b.Mul(sa))).Mul(blurRingWeight))
	return c
}
