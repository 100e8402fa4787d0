package epu

import "github.com/chewxy/math32"

// evalBounds evaluates a bounds opcode (RAMP through APERTURE). It computes
// its region triple from its own geometry and returns the sample it paints
// together with the state it hands to later layers.
func evalBounds(dir Vec3, l *Layer, prev boundsState, t float32) (Sample, boundsState) {
	switch l.Opcode {
	case OpRamp:
		return evalRamp(dir, l)
	case OpSector:
		return paintBounds(l, evalSector(dir, l))
	case OpSilhouette:
		return evalSilhouette(dir, l, t)
	case OpSplit:
		return paintBounds(l, evalSplit(dir, l))
	case OpCell:
		return paintBounds(l, evalCell(dir, l))
	case OpPatches:
		return paintBounds(l, evalPatches(dir, l))
	case OpAperture:
		return paintBounds(l, evalAperture(dir, l))
	}
	return Sample{}, prev
}

// paintBounds paints ColorA over the sky region and ColorB over the wall
// region, weighted by the alpha nibbles.
func paintBounds(l *Layer, next boundsState) (Sample, boundsState) {
	return paint2(l.ColorA, nibble(l.AlphaA)*next.regions.Sky, l.ColorB, nibble(l.AlphaB)*next.regions.Wall), next
}

func paint2(ca RGB24, wa float32, cb RGB24, wb float32) Sample {
	w := wa + wb
	if w <= 0 {
		return Sample{}
	}
	rgb := ca.Vec3().Mul(wa).Add(cb.Vec3().Mul(wb)).Mul(1 / w)
	return Sample{RGB: rgb, W: saturate(w)}
}

// RampThresholds decodes the ceiling and floor thresholds packed in ParamD.
func RampThresholds(paramD uint8) (ceil, floor float32) {
	return threshold(hiNibble(paramD)), threshold(loNibble(paramD))
}

func rampSoftness(intensity uint8) float32 {
	return 0.005 + unorm8(intensity)*0.25
}

// evalRamp is the enclosure seed: sky above the ceiling, floor below the
// floor threshold and walls between, all relative to the up axis. It paints
// its three colors directly with full weight.
func evalRamp(dir Vec3, l *Layer) (Sample, boundsState) {
	up := l.Dir()
	y := dir.Dot(up)
	ceil, fl := RampThresholds(l.ParamD)
	soft := rampSoftness(l.Intensity)

	sky := smoothstep(ceil-soft, ceil+soft, y)
	floor := 1 - smoothstep(fl-soft, fl+soft, y)
	floor = min(floor, 1-sky)
	r := RegionWeights{Sky: sky, Floor: floor, Wall: 1 - sky - floor}

	wall := RGB(l.ParamA, l.ParamB, l.ParamC).Vec3()
	rgb := l.ColorA.Vec3().Mul(r.Sky).
		Add(wall.Mul(r.Wall)).
		Add(l.ColorB.Vec3().Mul(r.Floor))
	return Sample{RGB: rgb, W: 1}, boundsState{dir: up, regions: r}
}

// poleFade returns 1 where the azimuth around an axis is ill-defined.
func poleFade(y float32) float32 {
	return smoothstep(0.97, 0.999, math32.Abs(y))
}

// azimuth returns the angle of dir around axis in [-pi, pi].
func azimuth(dir, axis Vec3) float32 {
	t, b := basis(axis)
	return math32.Atan2(dir.Dot(b), dir.Dot(t))
}

// evalSector opens an azimuthal wedge around the up axis.
// Variants: 0 wedge, 1 mirrored pair, 2 inverted; others read as wedge.
func evalSector(dir Vec3, l *Layer) boundsState {
	up := l.Dir()
	center := unorm8(l.ParamA) * 2 * math32.Pi
	half := max(unorm8(l.ParamB)*math32.Pi, 0.01)
	band := 0.01 + unorm8(l.ParamC)*0.5

	delta := math32.Abs(wrapAngle(azimuth(dir, up) - center))
	if l.Variant == 1 {
		delta = min(delta, math32.Abs(wrapAngle(delta+math32.Pi)))
	}
	sd := delta - half
	if l.Variant == 2 {
		sd = -sd
	}
	r := RegionsFromSignedDistance(sd, band)
	r = r.Lerp(AllWall, poleFade(dir.Dot(up)))
	return boundsState{dir: up, regions: r}
}

// Silhouette variants.
const (
	SilhouetteMountains = 0
	SilhouetteCity      = 1
	SilhouetteForest    = 2
	SilhouetteDunes     = 3
)

// evalSilhouette cuts the sphere along a noisy horizon. Sky is above the
// horizon, walls are the soft edge and floor is the silhouette body. It
// paints ColorA on the body (walls and floor) and ColorB on the sky.
func evalSilhouette(dir Vec3, l *Layer, t float32) (Sample, boundsState) {
	up := l.Dir()
	y := dir.Dot(up)
	h := silhouetteHeight(dir, up, l, t)
	band := 0.004 + unorm8(l.Intensity)*0.1
	r := RegionsFromSignedDistance(h-y, band)
	next := boundsState{dir: up, regions: r}

	strength := nibble(l.AlphaA)
	s := paint2(l.ColorA, strength*(r.Wall+r.Floor), l.ColorB, nibble(l.AlphaB)*r.Sky)
	return s, next
}

// silhouetteHeight returns the horizon height in [-1,1] along the
// horizontal heading of dir. Drift rotates the heading around the up axis
// so the profile scrolls without a seam.
func silhouetteHeight(dir, up Vec3, l *Layer, t float32) float32 {
	tb, _ := basis(up)
	heading := dir.Sub(up.Mul(dir.Dot(up))).NormalizeOr(tb)
	if drift := nibble(loNibble(l.ParamC)); drift > 0 {
		heading = rotateAround(heading, up, t*unorm8(l.ParamD)*drift*0.5)
	}

	bias := snorm8(l.ParamA) * 0.5
	rough := unorm8(l.ParamB) * 0.5
	octaves := int(clamp(float32(hiNibble(l.ParamC)), 1, 6))
	seed := uint32(l.Variant)*0x51ed + 0x1234

	var shape float32
	switch l.Variant {
	case SilhouetteCity:
		// Blocks: flat-topped steps from a coarse cell lattice.
		c := heading.Mul(12)
		shape = hashFloat(hashCell(floorI(c.X), floorI(c.Y), floorI(c.Z), seed))
		shape = shape * shape
	case SilhouetteForest:
		n := fbm(heading.Mul(24), octaves, seed)
		shape = pow32(n, 0.5) * (0.6 + 0.4*valueNoise(heading.Mul(3), seed+7))
	case SilhouetteDunes:
		shape = fbm(heading.Mul(1.5), max(octaves/2, 1), seed)
	default:
		shape = ridged(heading.Mul(2.5), octaves, seed)
	}
	return bias + (shape-0.5)*2*rough
}

// Split variants.
const (
	SplitHalf   = 0
	SplitWedge  = 1
	SplitCorner = 2
	SplitBands  = 3
	SplitCross  = 4
	SplitPrism  = 5
)

// evalSplit cuts the sphere with one or more planes through the origin.
// The side the axis points into is sky.
func evalSplit(dir Vec3, l *Layer) boundsState {
	n := l.Dir()
	tb, bb := basis(n)
	band := 0.005 + unorm8(l.ParamA)*0.3
	offset := snorm8(l.ParamD)
	y := dir.Dot(n)

	var sd float32
	switch l.Variant {
	case SplitWedge:
		w := unorm8(l.ParamB) * math32.Pi * 0.5
		n1 := n.Mul(math32.Cos(w)).Add(tb.Mul(math32.Sin(w)))
		n2 := n.Mul(math32.Cos(w)).Sub(tb.Mul(math32.Sin(w)))
		sd = max(offset-dir.Dot(n1), offset-dir.Dot(n2))
	case SplitCorner:
		sd = max(offset-y, max(offset-dir.Dot(tb), offset-dir.Dot(bb)))
	case SplitBands:
		count := 1 + float32(l.ParamC/32)
		sd = -math32.Sin((y+offset)*count*math32.Pi) / (count * math32.Pi)
	case SplitCross:
		sd = -2 * (y - offset) * dir.Dot(tb)
	case SplitPrism:
		sides := 3 + float32(l.ParamC/64)
		phi := math32.Atan2(dir.Dot(bb), dir.Dot(tb))
		radial := math32.Sqrt(max(1-y*y, 0))
		sd = -math32.Sin(sides*phi+offset*math32.Pi) * radial / sides
	default:
		sd = offset - y
	}
	return boundsState{dir: n, regions: RegionsFromSignedDistance(sd, band)}
}
