package epu

import "github.com/chewxy/math32"

// Direction codec.
//
// Directions are stored as octahedral coordinates: the unit sphere is
// projected onto the octahedron |x|+|y|+|z| = 1 and the lower half (z < 0)
// is folded outwards over the upper half, yielding a square in [-1,1]^2 with
// a single fold along the square's border. The 16-bit form quantizes each
// coordinate to 8 bits, so the round-trip error is bounded by half a step
// (1/255) per axis in the 2D coordinate.

// DirQuantStep is the spacing of the 16-bit direction lattice in octahedral
// coordinates.
const DirQuantStep = 2.0 / 255.0

// signNotZero returns 1 for x >= 0 and -1 otherwise. Directions lying on the
// axis planes must not collapse to the fold.
func signNotZero(x float32) float32 {
	if x >= 0 {
		return 1
	}
	return -1
}

// EncodeOct maps a direction to octahedral coordinates in [-1,1]^2.
// Zero-length or NaN input encodes +Y.
func EncodeOct(v Vec3) Vec2 {
	n := v.NormalizeOr(AxisY)
	inv := 1 / (math32.Abs(n.X) + math32.Abs(n.Y) + math32.Abs(n.Z))
	p := Vec2{X: n.X * inv, Y: n.Y * inv}
	if n.Z < 0 {
		p = Vec2{
			X: (1 - math32.Abs(p.Y)) * signNotZero(p.X),
			Y: (1 - math32.Abs(p.X)) * signNotZero(p.Y),
		}
	}
	return p
}

// DecodeOct maps octahedral coordinates back to a unit direction.
// Coordinates outside [-1,1]^2 are clamped.
func DecodeOct(p Vec2) Vec3 {
	x := clamp(p.X, -1, 1)
	y := clamp(p.Y, -1, 1)
	z := 1 - math32.Abs(x) - math32.Abs(y)
	if z < 0 {
		ox, oy := x, y
		x = (1 - math32.Abs(oy)) * signNotZero(ox)
		y = (1 - math32.Abs(ox)) * signNotZero(oy)
	}
	return Vec3{X: x, Y: y, Z: z}.NormalizeOr(AxisY)
}

// EncodeDir16 quantizes a direction to the 16-bit instruction form:
// low byte u, high byte v.
func EncodeDir16(v Vec3) uint16 {
	p := EncodeOct(v)
	u := quantizeUnit(p.X*0.5 + 0.5)
	w := quantizeUnit(p.Y*0.5 + 0.5)
	return uint16(u) | uint16(w)<<8
}

// DecodeDir16 expands a 16-bit direction to a unit vector.
func DecodeDir16(d uint16) Vec3 {
	u := float32(d&0xFF) / 255
	v := float32(d>>8) / 255
	return DecodeOct(Vec2{X: u*2 - 1, Y: v*2 - 1})
}

func quantizeUnit(x float32) uint8 {
	return uint8(math32.Floor(saturate(x)*255 + 0.5))
}
