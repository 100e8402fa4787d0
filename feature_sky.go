package epu

import "github.com/chewxy/math32"

// Atmosphere variants.
const (
	AtmosphereRayleigh = 0
	AtmosphereMie      = 1
	AtmosphereFog      = 2
)

// evalAtmosphere shades a zenith-to-horizon gradient relative to the bounds
// axis, with a forward-scattering glow around the sun direction. The
// gradient runs along the domain's height.
func evalAtmosphere(dir Vec3, l *Layer, ctx featureContext) Sample {
	sun := l.Dir()
	y, valid := ringHeight(dir, l.Domain, ctx.axis)
	if valid <= 0 {
		return Sample{}
	}
	falloff := 0.5 + unorm8(l.ParamA)*8
	shift := snorm8(l.ParamB) * 0.3
	mieAmount := unorm8(l.ParamC)
	mieExp := 1 + unorm8(l.ParamD)*127

	zenith := l.ColorA.Vec3()
	horizon := l.ColorB.Vec3()
	h := pow32(saturate(1-max(y-shift, 0)), falloff)
	mie := pow32(max(dir.Dot(sun), 0), mieExp) * mieAmount

	switch l.Variant {
	case AtmosphereMie:
		haze := pow32(saturate(1-math32.Abs(y-shift)), falloff)
		rgb := horizon.Mul(haze).Add(zenith.Mul(mie * 2))
		w := saturate(haze*0.5 + mie)
		return Sample{RGB: rgb.Mul(1 / max(w*2, 1)), W: w * l.brightness() * valid}
	case AtmosphereFog:
		fog := pow32(saturate(1-math32.Abs(y-shift)), falloff)
		rgb := zenith.Lerp(horizon, mie)
		return Sample{RGB: rgb, W: saturate(fog * l.brightness() * valid)}
	}
	rgb := zenith.Lerp(horizon, h).Add(horizon.Mul(mie))
	return Sample{RGB: rgb, W: l.brightness() * valid}
}

// Plane variants.
const (
	PlaneTiles = 0
	PlaneGrid  = 1
	PlaneNoise = 2
	PlaneWater = 3
	PlaneSand  = 4
)

// Plane domains.
const (
	PlaneFloor    = 0
	PlaneCeiling  = 1
	PlaneBoth     = 2
	PlaneVertical = 3
)

// evalPlane ray-casts an infinite plane from the origin and textures it.
// The plane is its own coordinate space, so the domain field picks the
// plane instead: floor or ceiling perpendicular to the bounds axis, both,
// or a vertical plane facing the layer direction.
func evalPlane(dir Vec3, l *Layer, ctx featureContext) Sample {
	dist := 0.1 + unorm8(l.ParamB)*2
	scale := 0.25 + unorm8(l.ParamA)*8
	width := 0.01 + unorm8(l.ParamC)*0.3
	scroll := unorm8(l.ParamD)

	normal := ctx.axis
	if l.Domain&3 == PlaneVertical {
		normal = l.Dir()
	}
	tb, bb := basis(normal)
	cosN := dir.Dot(normal)

	var denom float32
	switch l.Domain & 3 {
	case PlaneFloor:
		denom = -cosN
	case PlaneCeiling, PlaneVertical:
		denom = cosN
	default:
		denom = math32.Abs(cosN)
	}
	if denom <= 1e-3 {
		return Sample{}
	}
	hit := dir.Mul(dist / denom)
	u := hit.Dot(tb)*scale + ctx.time*scroll
	v := hit.Dot(bb) * scale
	fade := smoothstep(0, 0.08, denom)

	ca, cb := l.ColorA.Vec3(), l.ColorB.Vec3()
	var rgb Vec3
	switch l.Variant {
	case PlaneGrid:
		line := max(gridLine(u, width), gridLine(v, width))
		rgb = cb.Lerp(ca, line)
	case PlaneNoise:
		n := fbm(Vec3{X: u, Y: v}, 4, 0x91a7)
		rgb = cb.Lerp(ca, n)
	case PlaneWater:
		n := fbm(Vec3{X: u * 2, Y: v * 2, Z: ctx.time * scroll * 0.5}, 3, 0x3a7e)
		fresnel := pow32(1-denom, 5)
		rgb = cb.Lerp(ca, saturate(n*0.6+fresnel))
	case PlaneSand:
		n := valueNoise(Vec3{X: u * 0.5, Y: v * 0.5}, 0x5a4d)
		r := 0.5 + 0.5*math32.Sin((u+n*2)*6)
		rgb = cb.Lerp(ca, r*(1-width))
	default:
		cu, cv := floorI(u), floorI(v)
		tone := hashFloat(hashCell(cu, cv, 0, 0x711e))
		grout := max(gridLine(u, width), gridLine(v, width))
		tile := ca.Mul(0.85 + 0.3*tone)
		rgb = tile.Lerp(cb, grout)
	}
	return Sample{RGB: rgb, W: saturate(fade * l.brightness())}
}

// Celestial variants.
const (
	CelestialSun    = 0
	CelestialMoon   = 1
	CelestialPlanet = 2
	CelestialRinged = 3
)

// evalCelestial draws a lit disk at the layer direction, measured in the
// selected domain. Suns are limb-darkened with a corona; moons and planets
// are shaded from a phase angle using the sphere normal reconstructed from
// the disk offset.
func evalCelestial(dir Vec3, l *Layer, ctx featureContext) Sample {
	body := l.Dir()
	q, valid := domainOffset(dir, l.Domain, ctx.axis, body)
	if valid <= 0 {
		return Sample{}
	}
	radius := 0.005 + unorm8(l.ParamA)*0.3
	phase := unorm8(l.ParamB) * 2 * math32.Pi
	corona := unorm8(l.ParamC) * 0.5
	detail := unorm8(l.ParamD)
	gain := l.emissive()

	ang := q.Length()
	edge := max(radius*0.03, 1e-3)
	disk := 1 - smoothstep(radius-edge, radius, ang)

	var glow float32
	if corona > 0 && ang > radius*0.9 {
		glow = math32.Exp(-(ang-radius)/max(corona*0.25, 1e-3)) * 0.6
	}

	var surface Vec3
	if disk > 0 {
		nx, ny := q.X/radius, q.Y/radius
		nz := math32.Sqrt(saturate(1 - nx*nx - ny*ny))
		n := Vec3{X: nx, Y: ny, Z: nz}
		tex := 1 - detail*0.5*fbm(n.Mul(4), 3, 0x0c1e)
		switch l.Variant {
		case CelestialMoon, CelestialPlanet, CelestialRinged:
			light := Vec3{X: math32.Sin(phase), Z: math32.Cos(phase)}
			lit := saturate(n.Dot(light)*1.2 + 0.05)
			surface = l.ColorA.Vec3().Mul(lit * tex)
		default:
			limb := 0.6 + 0.4*nz
			surface = l.ColorA.Vec3().Mul(limb * tex)
		}
	}

	var ring float32
	if l.Variant == CelestialRinged {
		rx, ry := q.X/radius, q.Y/radius*3
		rr := math32.Sqrt(rx*rx + ry*ry)
		ring = 1 - smoothstep(0.15, 0.25, math32.Abs(rr-1.8))
		if ry > 0 && disk > 0 {
			ring *= 1 - disk
		}
	}

	rgb := surface.Mul(disk).Add(l.ColorB.Vec3().Mul(glow*(1-disk) + ring*(1-disk*0.5)))
	w := saturate(disk + glow + ring)
	if w <= 0 {
		return Sample{}
	}
	return Sample{RGB: rgb.Mul(gain / w), W: w * valid}
}

// Portal variants.
const (
	PortalVortex = 0
	PortalRift   = 1
	PortalRing   = 2
	PortalTunnel = 3
)

// evalPortal draws an animated opening at the layer direction in the
// selected domain. Swirls use an integer arm count so the pattern closes
// around the center.
func evalPortal(dir Vec3, l *Layer, ctx featureContext) Sample {
	q, valid := domainOffset(dir, l.Domain, ctx.axis, l.Dir())
	if valid <= 0 {
		return Sample{}
	}
	radius := 0.02 + unorm8(l.ParamA)*0.6
	swirl := unorm8(l.ParamB) * 8
	arms := 1 + float32(hiNibble(l.ParamC)/2)
	speed := nibble(loNibble(l.ParamC))
	rim := 0.005 + unorm8(l.ParamD)*0.2
	gain := l.emissive()

	if l.Variant == PortalRift {
		q.X *= 3
	}
	r := q.Length()
	theta := math32.Atan2(q.Y, q.X)
	inside := 1 - smoothstep(radius-rim, radius, r)
	rimW := 1 - smoothstep(0, rim, math32.Abs(r-radius))
	rn := r / radius

	var v float32
	switch l.Variant {
	case PortalRing:
		v = rimW
		inside = 0
	case PortalTunnel:
		z := fract(math32.Log(max(rn, 1e-3))*3 - ctx.time*speed)
		v = inside * (smoothstep(0, 0.2, z) * (1 - smoothstep(0.3, 0.6, z)))
	default:
		s := wave((arms*theta+swirl*math32.Log(max(rn, 1e-3)))/(2*math32.Pi) + ctx.time*speed)
		v = inside * (0.3 + 0.7*s) * (1 - rn*0.5)
	}
	w := saturate(max(v, rimW)) * valid
	if w <= 0 {
		return Sample{}
	}
	rgb := l.ColorB.Vec3().Lerp(l.ColorA.Vec3(), rimW)
	return Sample{RGB: rgb.Mul(gain), W: w}
}

// Lobe waveforms (low two bits of ParamC).
const (
	WaveOff      = 0
	WaveSine     = 1
	WaveTriangle = 2
	WaveStrobe   = 3
)

// evalLobe emits a cosine-power glow toward the layer direction,
// optionally modulated by a periodic waveform at Variant/4 Hz. The angle
// from the layer direction is the domain offset's length.
func evalLobe(dir Vec3, l *Layer, ctx featureContext) Sample {
	q, valid := domainOffset(dir, l.Domain, ctx.axis, l.Dir())
	ang := q.Length()
	if valid <= 0 || ang >= math32.Pi/2 {
		return Sample{}
	}
	c := math32.Cos(ang)
	exp := 1 + unorm8(l.ParamA)*127
	falloff := unorm8(l.ParamB)
	lobe := pow32(c, exp)*(1-falloff) + pow32(c, max(exp*0.125, 1))*falloff*0.5

	mod := float32(1)
	if rate := float32(l.Variant) * 0.25; rate > 0 {
		x := ctx.time*rate + unorm8(l.ParamD)
		switch l.ParamC & 3 {
		case WaveSine:
			mod = wave(x)
		case WaveTriangle:
			mod = 1 - math32.Abs(2*fract(x)-1)
		case WaveStrobe:
			mod = smoothstep(0.3, 0.7, wave(x))
		}
	}
	w := saturate(lobe * mod * valid)
	if w <= 0 {
		return Sample{}
	}
	rgb := l.ColorB.Vec3().Lerp(l.ColorA.Vec3(), saturate(lobe))
	return Sample{RGB: rgb.Mul(l.emissive()), W: w}
}

// evalBand emits a soft ring around the layer axis at a signed offset in
// the domain's height, shading from ColorA at its center to ColorB at its
// edges.
func evalBand(dir Vec3, l *Layer, ctx featureContext) Sample {
	n := l.Dir()
	width := 0.01 + unorm8(l.ParamA)*0.8
	offset := snorm8(l.ParamB) * 0.9
	soft := 0.005 + unorm8(l.ParamC)*0.3
	half := width * 0.5

	y, valid := ringHeight(dir, l.Domain, n)
	if valid <= 0 {
		return Sample{}
	}
	d := math32.Abs(y - offset)
	band := 1 - smoothstep(half-soft, half+soft, d)
	if band <= 0 {
		return Sample{}
	}
	mod := float32(1)
	if l.Variant > 0 {
		hx, hz, _ := horizontal(dir, n)
		phi := math32.Atan2(hz, hx)
		mod = 0.75 + 0.25*wave(3*phi/(2*math32.Pi)+unorm8(l.ParamD)+ctx.time*float32(l.Variant)*0.1)
	}
	rgb := l.ColorA.Vec3().Lerp(l.ColorB.Vec3(), saturate(d/half))
	return Sample{RGB: rgb, W: saturate(band * mod * l.brightness() * valid)}
}
