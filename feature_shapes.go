package epu

import "github.com/chewxy/math32"

// Decal shapes (high nibble of ParamA).
const (
	DecalDisk = 0
	DecalRing = 1
	DecalRect = 2
	DecalLine = 3
)

// evalDecal draws a soft shape centered on the layer direction in the
// selected domain, with an optional glow halo in ColorB and a pulse when
// Variant > 0.
func evalDecal(dir Vec3, l *Layer, ctx featureContext) Sample {
	q, valid := domainOffset(dir, l.Domain, ctx.axis, l.Dir())
	if valid <= 0 {
		return Sample{}
	}
	soft := 0.002 + nibble(l.ParamA)*0.1
	size := 0.01 + unorm8(l.ParamB)*0.5
	glowSoft := unorm8(l.ParamC) * 0.3

	var sd float32
	switch hiNibble(l.ParamA) & 3 {
	case DecalRing:
		sd = math32.Abs(q.Length()-size) - size*0.2
	case DecalRect:
		sd = sdBox(q, size, size*0.6)
	case DecalLine:
		sd = sdBox(q, size, size*0.05)
	default:
		sd = q.Length() - size
	}

	core := 1 - smoothstep(-soft, soft, sd)
	var glow float32
	if glowSoft > 0 {
		glow = math32.Exp(-max(sd, 0)/glowSoft) * 0.5 * (1 - core)
	}
	s := paint2(l.ColorA, core, l.ColorB, glow)
	pulse := float32(1)
	if l.Variant > 0 {
		pulse = 0.6 + 0.4*wave(ctx.time*float32(l.Variant)*0.25+unorm8(l.ParamD))
	}
	s.W *= l.brightness() * pulse * valid
	return s
}

// Grid patterns (high nibble of ParamC).
const (
	GridStripes = 0
	GridLines   = 1
	GridChecker = 2
)

// evalGrid repeats stripes, grid lines or a checkerboard. The cylinder
// domain is azimuth/height around the bounds axis with an integer cell
// count, so the pattern closes on itself. The direct domain slices the
// direction's components in the bounds frame. Variant shears the pattern
// and the low nibble of ParamC scrolls it.
func evalGrid(dir Vec3, l *Layer, ctx featureContext) Sample {
	cells := 1 + math32.Floor(unorm8(l.ParamA)*63)
	thick := 0.01 + unorm8(l.ParamB)*0.45
	pattern := hiNibble(l.ParamC) % 3
	scroll := nibble(loNibble(l.ParamC)) * 0.1
	shear := float32(l.Variant) / 7 * 0.5

	var u, v float32
	fade := float32(1)
	vcells := cells
	switch l.Domain & 3 {
	case DomainPolar:
		hx, hz, y := horizontal(dir, ctx.axis)
		u = math32.Atan2(hz, hx)/(2*math32.Pi) + 0.5
		v = acos32(y) / math32.Pi
		fade = smoothstep(0.01, 0.05, v)
	case DomainTangent:
		q, facing, ok := tangentPlane(dir, l.Dir())
		if !ok {
			return Sample{}
		}
		u, v = q.X*0.5, q.Y*0.5
		fade = smoothstep(0.02, 0.12, facing)
	case DomainCylinder:
		hx, hz, y := horizontal(dir, ctx.axis)
		u = math32.Atan2(hz, hx)/(2*math32.Pi) + 0.5
		v = math32.Asin(clamp(y, -1, 1))/math32.Pi + 0.5
		fade = 1 - smoothstep(0.9, 0.995, math32.Abs(y))
		vcells = max(math32.Floor(cells*0.5), 1)
		if pattern == GridChecker && int(cells)%2 == 1 {
			cells++
		}
	default:
		tb, _ := basis(ctx.axis)
		u = dir.Dot(tb)*0.5 + 0.5
		v = dir.Dot(ctx.axis)*0.5 + 0.5
	}

	u += v*shear + ctx.time*scroll + unorm8(l.ParamD)/cells
	x, y := u*cells, v*vcells

	var s Sample
	switch pattern {
	case GridChecker:
		if (int64(math32.Floor(x))+int64(math32.Floor(y)))&1 == 0 {
			s = Sample{RGB: l.ColorA.Vec3(), W: 1}
		} else {
			s = Sample{RGB: l.ColorB.Vec3(), W: 1}
		}
	case GridLines:
		line := max(gridLine(x, thick), gridLine(y, thick))
		s = paint2(l.ColorA, line, l.ColorB, 0)
	default:
		s = paint2(l.ColorA, gridLine(x, thick), l.ColorB, 0)
	}
	s.W *= l.brightness() * fade
	return s
}

// gridLine returns 1 on the integer lines of x with the given width.
func gridLine(x, width float32) float32 {
	f := fract(x)
	d := min(f, 1-f)
	return 1 - smoothstep(width*0.5, width*0.5+0.02, d)
}

// scatterParams are the decoded SCATTER fields.
type scatterParams struct {
	scale   float32 // lattice cells per unit
	size    float32 // point radius in radians
	twinkle float32
	drift   float32
	seed    uint32
}

func scatterParamsOf(l *Layer) scatterParams {
	return scatterParams{
		scale:   2 + unorm8(l.ParamA)*62,
		size:    0.002 + unorm8(l.ParamB)*0.05,
		twinkle: nibble(hiNibble(l.ParamC)),
		drift:   nibble(loNibble(l.ParamC)),
		seed:    seedOf(l.ParamD),
	}
}

// scatterShell limits points to lattice cells close to the sphere (or
// cylinder) of radius scale, so every point lands near its own direction.
const scatterShell = 0.5

// scatterPoint returns the point owned by a lattice cell in domain
// coordinates, or ok=false when the cell has no point. Direct points lie on
// the unit sphere, cylinder points on the unit cylinder, and polar and
// tangent points on the z = 0 plane.
func scatterPoint(cx, cy, cz int32, domain uint8, p scatterParams) (Vec3, Vec3, bool) {
	j := hash3(cx, cy, cz, p.seed)
	fp := Vec3{
		X: float32(cx) + 0.5 + (j.X-0.5)*0.8,
		Y: float32(cy) + 0.5 + (j.Y-0.5)*0.8,
		Z: float32(cz) + 0.5 + (j.Z-0.5)*0.8,
	}
	switch domain & 3 {
	case DomainCylinder:
		r := math32.Sqrt(fp.X*fp.X + fp.Z*fp.Z)
		if math32.Abs(r-p.scale) > scatterShell || r < 1e-3 {
			return Vec3{}, j, false
		}
		return Vec3{X: fp.X / r, Y: fp.Y / p.scale, Z: fp.Z / r}, j, true
	case DomainPolar, DomainTangent:
		if cz != 0 {
			return Vec3{}, j, false
		}
		return Vec3{X: fp.X / p.scale, Y: fp.Y / p.scale}, j, true
	}
	r := fp.Length()
	if math32.Abs(r-p.scale) > scatterShell || r < 1e-3 {
		return Vec3{}, j, false
	}
	return fp.Mul(1 / r), j, true
}

// scatterReach is the lattice search radius in cells that covers every
// point within size of the sample.
func scatterReach(p scatterParams) int32 {
	return max(int32(math32.Ceil(p.size*p.scale+scatterShell)), 1)
}

// eachScatterPoint calls fn for every point whose cell is within reach of q.
func eachScatterPoint(q Vec3, domain uint8, p scatterParams, fn func(pt, j Vec3)) {
	c := q.Mul(p.scale)
	ix, iy, iz := floorI(c.X), floorI(c.Y), floorI(c.Z)
	r := scatterReach(p)
	rz := r
	if d := domain & 3; d == DomainPolar || d == DomainTangent {
		iz, rz = 0, 0
	}
	for dz := -rz; dz <= rz; dz++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if pt, j, ok := scatterPoint(ix+dx, iy+dy, iz+dz, domain, p); ok {
					fn(pt, j)
				}
			}
		}
	}
}

// scatterDir applies drift: a rotation about the bounds axis, which moves
// the field without seams.
func scatterDir(dir Vec3, p scatterParams, ctx featureContext) Vec3 {
	if p.drift == 0 {
		return dir
	}
	return rotateAround(dir, ctx.axis, -ctx.time*p.drift*0.05)
}

// nearestScatterPoint returns the closest point to the domain position q
// and its distance.
func nearestScatterPoint(q Vec3, domain uint8, p scatterParams) (point Vec3, dist float32, ok bool) {
	dist = 1e9
	eachScatterPoint(q, domain, p, func(pt, _ Vec3) {
		if d := pt.Sub(q).Length(); d < dist {
			point, dist, ok = pt, d, true
		}
	})
	return point, dist, ok
}

// evalScatter draws a hashed point field in the selected domain. Each
// lattice cell near the surface owns one jittered point; a direction is lit
// when it lies within size of a point. Twinkle modulates each point's
// brightness over time.
func evalScatter(dir Vec3, l *Layer, ctx featureContext) Sample {
	p := scatterParamsOf(l)
	q, valid := domainPoint(scatterDir(dir, p, ctx), l.Domain, ctx.axis, l.Dir())
	if valid <= 0 {
		return Sample{}
	}

	var best float32
	var bestJ Vec3
	eachScatterPoint(q, l.Domain, p, func(pt, j Vec3) {
		dist := pt.Sub(q).Length()
		if dist >= p.size {
			return
		}
		v := 1 - smoothstep(p.size*0.5, p.size, dist)
		b := 0.5 + 0.5*j.X
		if p.twinkle > 0 {
			b *= 1 - p.twinkle*0.6*wave(ctx.time*(0.5+j.Y*1.5)+j.Z)
		}
		if v*b > best {
			best, bestJ = v*b, j
		}
	})
	if best <= 0 {
		return Sample{}
	}
	rgb := l.ColorA.Vec3().Lerp(l.ColorB.Vec3(), bestJ.Y)
	return Sample{RGB: rgb, W: saturate(best * l.brightness() * valid)}
}
