package epu

import "github.com/chewxy/math32"

// Cell variants.
const (
	CellVoronoi  = 0
	CellInverted = 1
	CellCubic    = 2
)

// evalCell partitions the sphere into cells: filled cells are floor, open
// cells are sky and the gaps between cells are walls.
func evalCell(dir Vec3, l *Layer) boundsState {
	density := 2 + unorm8(l.ParamA)*62
	fill := unorm8(l.ParamB)
	gap := 0.02 + unorm8(l.ParamC)*0.5
	seed := uint32(l.ParamD) * 0x2545f491

	p := dir.Mul(density)
	var edge float32
	var cell [3]int32
	if l.Variant == CellCubic {
		cell = [3]int32{floorI(p.X), floorI(p.Y), floorI(p.Z)}
		fx, fy, fz := fract(p.X), fract(p.Y), fract(p.Z)
		edge = 2 * min(min(min(fx, 1-fx), min(fy, 1-fy)), min(fz, 1-fz))
	} else {
		v := voronoi(p, 0.9, seed)
		edge = v.f2 - v.f1
		cell = v.cell
	}

	solid := hashFloat(hashCell(cell[0], cell[1], cell[2], seed^0xa5a5)) < fill
	if l.Variant == CellInverted {
		solid = !solid
	}
	base := AllSky
	if solid {
		base = AllFloor
	}
	e := 1 - smoothstep(gap*0.5, gap, edge)
	return boundsState{dir: l.Dir(), regions: base.Lerp(AllWall, e)}
}

// Patches variants.
const (
	PatchesSky      = 0
	PatchesInverted = 1
	PatchesIslands  = 2
)

// evalPatches thresholds fbm noise: patches above the coverage threshold
// are sky. Islands turns patches into floor with wide wall rims.
func evalPatches(dir Vec3, l *Layer) boundsState {
	axis := l.Dir()
	scale := 1 + unorm8(l.ParamA)*15
	coverage := unorm8(l.ParamB)
	band := 0.01 + (1-unorm8(l.ParamC))*0.3
	seed := uint32(l.ParamD) * 0x68e31da4

	p, valid := domainPoint(dir, l.Domain, axis, axis)
	v := fbm(p.Mul(scale), 4, seed)
	sd := (1 - coverage) - v
	switch l.Variant {
	case PatchesInverted:
		sd = -sd
	case PatchesIslands:
		sd = -sd
		band *= 3
	}
	r := RegionsFromSignedDistance(sd, band)
	if valid < 1 {
		r = AllFloor.Lerp(r, valid)
	}
	return boundsState{dir: axis, regions: r}
}

// Aperture variants.
const (
	ApertureCircle    = 0
	ApertureRect      = 1
	ApertureRounded   = 2
	ApertureArch      = 3
	ApertureBars      = 4
	ApertureMulti     = 5
	ApertureIrregular = 6
)

// evalAperture cuts an opening around the layer direction, evaluated on the
// gnomonic tangent plane. Inside is sky, the frame is walls and everything
// else, including the back hemisphere, is floor.
func evalAperture(dir Vec3, l *Layer) boundsState {
	c := l.Dir()
	facing := dir.Dot(c)
	back := smoothstep(0.02, 0.12, facing)
	if back <= 0 {
		return boundsState{dir: c, regions: AllFloor}
	}

	tb, bb := basis(c)
	q := Vec2{X: dir.Dot(tb) / facing, Y: dir.Dot(bb) / facing}
	hw := 0.05 + unorm8(l.ParamA)*2
	hh := 0.05 + unorm8(l.ParamB)*2
	frame := unorm8(l.ParamC) * 0.5
	vp := unorm8(l.ParamD)
	soft := 0.002 + unorm8(l.Intensity)*0.1

	var sd float32
	switch l.Variant {
	case ApertureRect:
		sd = sdBox(q, hw, hh)
	case ApertureRounded:
		r := min(hw, hh) * (0.1 + vp*0.9)
		sd = sdBox(q, hw-r, hh-r) - r
	case ApertureArch:
		body := sdBox(Vec2{X: q.X, Y: q.Y + hh*0.5}, hw, hh*0.5)
		sd = min(body, Vec2{X: q.X, Y: q.Y}.Length()-hw)
	case ApertureBars:
		n := 2 + math32.Floor(vp*10)
		cellW := 2 * hw / n
		local := (q.X + hw) / cellW
		db := math32.Abs(local-math32.Floor(local+0.5)) * cellW
		sd = max(sdBox(q, hw, hh), frame*0.5-db)
	case ApertureMulti:
		spacing := hw * 1.25
		r := hw * 0.5
		sd = 1e9
		for k := float32(-1); k <= 1; k++ {
			sd = min(sd, Vec2{X: q.X - k*spacing, Y: q.Y}.Length()-r)
		}
	case ApertureIrregular:
		wobble := (valueNoise(dir.Mul(4), uint32(l.ParamD)) - 0.5) * 0.6
		sd = q.Length() - hw*(1+wobble*max(vp, 0.25))
	default:
		sd = q.Length() - hw
	}

	r := RegionsFromFrame(sd, frame, soft)
	return boundsState{dir: c, regions: AllFloor.Lerp(r, back)}
}

// sdBox is the signed distance to an axis-aligned box with half extents.
func sdBox(q Vec2, hx, hy float32) float32 {
	dx := math32.Abs(q.X) - hx
	dy := math32.Abs(q.Y) - hy
	outside := Vec2{X: max(dx, 0), Y: max(dy, 0)}.Length()
	return outside + min(max(dx, dy), 0)
}
