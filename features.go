package epu

import "github.com/chewxy/math32"

// Domain selector values.
const (
	// Domain3D evaluates the pattern directly on the direction.
	Domain3D = 0
	// DomainCylinder evaluates on the unit cylinder around the bounds axis.
	DomainCylinder = 1
	// DomainPolar evaluates on a polar disk centered on the bounds axis.
	DomainPolar = 2
	// DomainTangent evaluates on the tangent plane at the layer direction.
	DomainTangent = 3
)

// featureContext carries the threaded inputs a feature may read.
type featureContext struct {
	axis Vec3 // most recently set bounds direction
	time float32
}

// evalFeature evaluates a feature opcode. Reserved opcodes yield a zero
// sample. Region gating is applied by the caller.
func evalFeature(dir Vec3, l *Layer, ctx featureContext) Sample {
	switch l.Opcode {
	case OpDecal:
		return evalDecal(dir, l, ctx)
	case OpGrid:
		return evalGrid(dir, l, ctx)
	case OpScatter:
		return evalScatter(dir, l, ctx)
	case OpFlow:
		return evalFlow(dir, l, ctx)
	case OpTrace:
		return evalTrace(dir, l, ctx)
	case OpVeil:
		return evalVeil(dir, l, ctx)
	case OpAtmosphere:
		return evalAtmosphere(dir, l, ctx)
	case OpPlane:
		return evalPlane(dir, l, ctx)
	case OpCelestial:
		return evalCelestial(dir, l, ctx)
	case OpPortal:
		return evalPortal(dir, l, ctx)
	case OpLobe:
		return evalLobe(dir, l, ctx)
	case OpBand:
		return evalBand(dir, l, ctx)
	}
	return Sample{}
}

// horizontal returns the unit heading of dir around axis together with the
// height dir·axis. At the poles the heading falls back to the frame's
// first tangent.
func horizontal(dir, axis Vec3) (hx, hz, y float32) {
	t, b := basis(axis)
	y = dir.Dot(axis)
	hx, hz = dir.Dot(t), dir.Dot(b)
	r := math32.Sqrt(hx*hx + hz*hz)
	if r < 1e-6 {
		return 1, 0, y
	}
	return hx / r, hz / r, y
}

// domainPoint maps dir into the coordinate space chosen by the domain
// selector. valid fades to 0 where the space is undefined (the back side of
// a tangent plane).
func domainPoint(dir Vec3, domain uint8, axis, anchor Vec3) (Vec3, float32) {
	switch domain & 3 {
	case DomainCylinder:
		hx, hz, y := horizontal(dir, axis)
		return Vec3{X: hx, Y: y, Z: hz}, 1
	case DomainPolar:
		hx, hz, y := horizontal(dir, axis)
		theta := acos32(y)
		return Vec3{X: hx * theta, Y: hz * theta}, 1
	case DomainTangent:
		f := dir.Dot(anchor)
		valid := smoothstep(0.02, 0.12, f)
		if valid <= 0 {
			return Vec3{}, 0
		}
		t, b := basis(anchor)
		return Vec3{X: dir.Dot(t) / f, Y: dir.Dot(b) / f}, valid
	}
	return dir, 1
}

// domainOffset returns the 2D position of dir relative to anchor in the
// selected domain, with anchor at the origin. The direct domain uses the
// azimuthal equidistant map around anchor, so lengths are great-circle
// angles. The cylinder and polar domains measure around the bounds axis.
// The tangent domain is the gnomonic plane at anchor and is invalid on the
// back hemisphere.
func domainOffset(dir Vec3, domain uint8, axis, anchor Vec3) (Vec2, float32) {
	switch domain & 3 {
	case DomainCylinder:
		ax, az, ay := horizontal(anchor, axis)
		hx, hz, y := horizontal(dir, axis)
		return Vec2{
			X: wrapAngle(math32.Atan2(hz, hx) - math32.Atan2(az, ax)),
			Y: math32.Asin(clamp(y, -1, 1)) - math32.Asin(clamp(ay, -1, 1)),
		}, 1
	case DomainPolar:
		p, _ := domainPoint(dir, DomainPolar, axis, anchor)
		a, _ := domainPoint(anchor, DomainPolar, axis, anchor)
		return Vec2{X: p.X - a.X, Y: p.Y - a.Y}, 1
	case DomainTangent:
		q, _, ok := tangentPlane(dir, anchor)
		if !ok {
			return Vec2{}, 0
		}
		return q, 1
	}
	t, b := basis(anchor)
	x, y := dir.Dot(t), dir.Dot(b)
	ang := acos32(dir.Dot(anchor))
	r := math32.Sqrt(x*x + y*y)
	if r < 1e-7 {
		return Vec2{X: ang}, 1
	}
	return Vec2{X: x / r * ang, Y: y / r * ang}, 1
}

// ringHeight returns the signed height of dir along n in the selected
// domain. Direct 3D uses dir·n and the cylinder uses the height on the unit
// cylinder around n. Polar maps the angle from n linearly to [-1,1]; the
// tangent plane at n gives 1 minus the gnomonic radius and is invalid on the
// back hemisphere.
func ringHeight(dir Vec3, domain uint8, n Vec3) (float32, float32) {
	y := clamp(dir.Dot(n), -1, 1)
	switch domain & 3 {
	case DomainCylinder:
		return clamp(y/max(math32.Sqrt(1-y*y), 1e-3), -4, 4), 1
	case DomainPolar:
		return 1 - 2*acos32(y)/math32.Pi, 1
	case DomainTangent:
		if y <= 0.01 {
			return 0, 0
		}
		return 1 - math32.Sqrt(1-y*y)/y, smoothstep(0.01, 0.12, y)
	}
	return y, 1
}

// tangentPlane projects dir onto the gnomonic plane at anchor. ok is false
// on the back hemisphere.
func tangentPlane(dir, anchor Vec3) (q Vec2, facing float32, ok bool) {
	facing = dir.Dot(anchor)
	if facing <= 0.01 {
		return Vec2{}, facing, false
	}
	t, b := basis(anchor)
	return Vec2{X: dir.Dot(t) / facing, Y: dir.Dot(b) / facing}, facing, true
}

// seedOf spreads an 8-bit seed across the hash space.
func seedOf(x uint8) uint32 { return hash32(uint32(x) + 0x9e3779b9) }

// wave is a smooth periodic signal in [0,1] with period 1.
func wave(x float32) float32 {
	return 0.5 + 0.5*math32.Sin(x*2*math32.Pi)
}
