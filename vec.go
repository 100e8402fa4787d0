package epu

import "github.com/chewxy/math32"

// Vec3 is a 3D vector in float32, matching the precision of the compute shaders.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is a convenience function to create a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Common axes.
var (
	AxisX = Vec3{X: 1}
	AxisY = Vec3{Y: 1}
	AxisZ = Vec3{Z: 1}
)

// Add returns the sum of two vectors.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Mul returns the vector scaled by a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// MulVec returns the component-wise product.
func (v Vec3) MulVec(w Vec3) Vec3 {
	return Vec3{X: v.X * w.X, Y: v.Y * w.Y, Z: v.Z * w.Z}
}

// Neg returns the negation of the vector.
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(w Vec3) float32 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product of two vectors.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the length of the vector.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.Dot(v))
}

// Normalize returns a unit vector in the same direction.
// Zero-length input returns the zero vector; use NormalizeOr when a
// fallback axis is required.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// NormalizeOr returns a unit vector in the same direction, or fallback when
// v is too short to normalize or contains NaN.
func (v Vec3) NormalizeOr(fallback Vec3) Vec3 {
	l := v.Length()
	if !(l > 1e-12) || math32.IsInf(l, 0) {
		return fallback
	}
	return v.Mul(1 / l)
}

// Lerp interpolates between v and w.
func (v Vec3) Lerp(w Vec3, t float32) Vec3 {
	return Vec3{
		X: v.X + (w.X-v.X)*t,
		Y: v.Y + (w.Y-v.Y)*t,
		Z: v.Z + (w.Z-v.Z)*t,
	}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(w Vec3) Vec3 {
	return Vec3{X: max(v.X, w.X), Y: max(v.Y, w.Y), Z: max(v.Z, w.Z)}
}

// Min returns the component-wise minimum.
func (v Vec3) Min(w Vec3) Vec3 {
	return Vec3{X: min(v.X, w.X), Y: min(v.Y, w.Y), Z: min(v.Z, w.Z)}
}

// Clamp clamps every component to [lo, hi].
func (v Vec3) Clamp(lo, hi float32) Vec3 {
	return Vec3{X: clamp(v.X, lo, hi), Y: clamp(v.Y, lo, hi), Z: clamp(v.Z, lo, hi)}
}

// Vec2 is a 2D vector used for direction codec coordinates.
type Vec2 struct {
	X, Y float32
}

// Sub returns the difference of two vectors.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{X: v.X - w.X, Y: v.Y - w.Y}
}

// Length returns the length of the vector.
func (v Vec2) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y)
}

// basis returns two unit vectors that together with n form an orthonormal frame.
// n must be unit length.
func basis(n Vec3) (t, b Vec3) {
	up := AxisY
	if math32.Abs(n.Y) > 0.999 {
		up = AxisX
	}
	t = up.Cross(n).NormalizeOr(AxisZ)
	b = n.Cross(t)
	return t, b
}

// rotateAround rotates v around the unit axis k by angle radians (Rodrigues).
func rotateAround(v, k Vec3, angle float32) Vec3 {
	c, s := math32.Cos(angle), math32.Sin(angle)
	return v.Mul(c).Add(k.Cross(v).Mul(s)).Add(k.Mul(k.Dot(v) * (1 - c)))
}

func acos32(x float32) float32 {
	return math32.Acos(clamp(x, -1, 1))
}

func pow32(x, y float32) float32 {
	if x <= 0 {
		return 0
	}
	return math32.Pow(x, y)
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func saturate(x float32) float32 { return clamp(x, 0, 1) }

func mix(a, b, t float32) float32 { return a + (b-a)*t }

func fract(x float32) float32 { return x - math32.Floor(x) }

// smoothstep matches the WGSL builtin, including the degenerate e0 == e1 case
// which behaves as a step.
func smoothstep(e0, e1, x float32) float32 {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := saturate((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// wrapAngle maps an angle to [-pi, pi].
func wrapAngle(a float32) float32 {
	const twoPi = 2 * math32.Pi
	return a - twoPi*math32.Floor((a+math32.Pi)/twoPi)
}
