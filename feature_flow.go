package epu

import "github.com/chewxy/math32"

// Flow patterns (low nibble of ParamC).
const (
	FlowNoise   = 0
	FlowStreaks = 1
	FlowCaustic = 2
)

// flowParams are the decoded FLOW fields.
type flowParams struct {
	wind    Vec3
	scale   float32
	turb    float32
	octaves int
	pattern uint8
	speed   float32
}

func flowParamsOf(l *Layer) flowParams {
	return flowParams{
		wind:    l.Dir(),
		scale:   1 + unorm8(l.ParamA)*15,
		turb:    unorm8(l.ParamB),
		octaves: int(clamp(float32(hiNibble(l.ParamC)), 1, 6)),
		pattern: loNibble(l.ParamC) % 3,
		speed:   unorm8(l.ParamD),
	}
}

// evalFlow animates noise, streaks or caustics. Noise and caustics are
// evaluated at the domain point with a time-driven offset, so in the direct
// domain the animation has no parameterization seam. Streaks run in lanes
// around the bounds axis and fall along the domain's height.
func evalFlow(dir Vec3, l *Layer, ctx featureContext) Sample {
	p := flowParamsOf(l)
	var v float32
	if p.pattern == FlowStreaks {
		v = flowStreaks(dir, l.Domain, p, ctx)
	} else {
		pt, valid := domainPoint(dir, l.Domain, ctx.axis, p.wind)
		if valid <= 0 {
			return Sample{}
		}
		if p.pattern == FlowCaustic {
			v = flowCaustic(pt, p, ctx)
		} else {
			v = flowNoise(pt, p, ctx)
		}
		v *= valid
	}
	if v <= 0 {
		return Sample{}
	}
	rgb := l.ColorB.Vec3().Lerp(l.ColorA.Vec3(), v)
	return Sample{RGB: rgb, W: saturate(v * l.brightness())}
}

func flowOffset(p flowParams, t float32) Vec3 {
	return p.wind.Mul(t * p.speed)
}

func flowNoise(pt Vec3, p flowParams, ctx featureContext) float32 {
	q := pt.Mul(p.scale).Add(flowOffset(p, ctx.time))
	if p.turb > 0 {
		w := Vec3{
			X: valueNoise(q.Add(Vec3{X: 5.2}), 11),
			Y: valueNoise(q.Add(Vec3{Y: 1.3}), 12),
			Z: valueNoise(q.Add(Vec3{Z: 7.9}), 13),
		}
		q = q.Add(w.Sub(Vec3{X: 0.5, Y: 0.5, Z: 0.5}).Mul(p.turb * 2))
	}
	v := fbm(q, p.octaves, 0x0f10)
	return smoothstep(0.35, 0.75, v)
}

func flowCaustic(pt Vec3, p flowParams, ctx featureContext) float32 {
	off := flowOffset(p, ctx.time)
	q := pt.Mul(p.scale)
	a := ridged(q.Add(off), p.octaves, 0xca05)
	b := ridged(q.Mul(1.3).Sub(off.Mul(0.7)), p.octaves, 0xca06)
	v := a * b
	return pow32(saturate(v*1.6), 2+p.turb*4)
}

// flowStreaks builds lanes around the bounds axis. The lane count is an
// integer so lanes close around the axis, and each lane gets hashed jitter
// in position, speed and phase so the field reads as falling particles.
func flowStreaks(dir Vec3, domain uint8, p flowParams, ctx featureContext) float32 {
	hx, hz, y := horizontal(dir, ctx.axis)
	hv, valid := ringHeight(dir, domain, ctx.axis)
	if valid <= 0 {
		return 0
	}
	lanes := math32.Floor(8 + p.scale*8)
	x := (math32.Atan2(hz, hx)/(2*math32.Pi) + 0.5) * lanes
	li := math32.Floor(x)
	fx := x - li
	lane := uint32(int64(li) % int64(lanes))

	j := hash3(int32(lane), 0, 0, 0x57ea)
	center := 0.5 + (j.X-0.5)*0.6
	width := 0.05 + p.turb*0.15
	across := 1 - smoothstep(width*0.5, width, math32.Abs(fx-center))
	if across <= 0 {
		return 0
	}

	length := 1.5 + j.Y*2
	s := hv*length + ctx.time*p.speed*(1+j.Z)*2 + j.Y*7
	seg := fract(s)
	along := smoothstep(0, 0.15, seg) * (1 - smoothstep(0.25, 0.5, seg))
	pole := 1 - smoothstep(0.85, 0.98, math32.Abs(y))
	return across * along * pole * valid
}

// Trace variants.
const (
	TraceCracks    = 0
	TraceLightning = 1
	TraceCircuit   = 2
	TraceVeins     = 3
)

// evalTrace draws thin line networks in the selected domain.
func evalTrace(dir Vec3, l *Layer, ctx featureContext) Sample {
	pt, valid := domainPoint(dir, l.Domain, ctx.axis, l.Dir())
	if valid <= 0 {
		return Sample{}
	}
	scale := 1 + unorm8(l.ParamA)*15
	thick := 0.005 + unorm8(l.ParamB)*0.1
	jag := nibble(hiNibble(l.ParamC))
	rate := nibble(loNibble(l.ParamC))
	seed := seedOf(l.ParamD)
	q := pt.Mul(scale)
	if jag > 0 {
		q = q.Add(Vec3{
			X: valueNoise(q.Mul(3), seed+1) - 0.5,
			Y: valueNoise(q.Mul(3), seed+2) - 0.5,
			Z: valueNoise(q.Mul(3), seed+3) - 0.5,
		}.Mul(jag * 0.5))
	}

	var line float32
	anim := float32(1)
	switch l.Variant & 3 {
	case TraceLightning:
		n := valueNoise(q, seed)
		line = 1 - smoothstep(thick*0.5, thick, math32.Abs(n-0.5))
		if rate > 0 {
			f := wave(ctx.time*rate*0.5 + hashFloat(seed))
			anim = f * f * f * f
		}
	case TraceCircuit:
		cx, cy, cz := floorI(q.X), floorI(q.Y), floorI(q.Z)
		on := hashFloat(hashCell(cx, cy, cz, seed)) < 0.5
		lx := gridLine(q.X, thick*4)
		ly := gridLine(q.Y, thick*4)
		if on {
			line = max(lx, ly)
		} else {
			line = lx * ly
		}
		if rate > 0 {
			anim = 0.5 + 0.5*wave(ctx.time*rate+q.X*0.1)
		}
	case TraceVeins:
		r := ridged(q, 4, seed)
		line = smoothstep(1-thick*4, 1, r)
		if rate > 0 {
			anim = 0.7 + 0.3*wave(ctx.time*rate*0.25)
		}
	default:
		v := voronoi(q, 0.9, seed)
		line = 1 - smoothstep(thick, thick*2, v.f2-v.f1)
		if rate > 0 {
			anim = 0.7 + 0.3*wave(ctx.time*rate*0.25)
		}
	}
	s := paint2(l.ColorA, line, l.ColorB, 0)
	s.W *= l.brightness() * anim * valid
	return s
}

// Veil variants.
const (
	VeilCurtain = 0
	VeilRibbon  = 1
	VeilSheets  = 2
)

// evalVeil draws aurora-like curtains above a base height on the bounds
// axis, shading from ColorA at the bottom to ColorB at the top. Heights are
// measured in the selected domain.
func evalVeil(dir Vec3, l *Layer, ctx featureContext) Sample {
	y, valid := ringHeight(dir, l.Domain, ctx.axis)
	if valid <= 0 {
		return Sample{}
	}
	hx, hz, _ := horizontal(dir, ctx.axis)
	heading := Vec3{X: hx, Z: hz}
	base := snorm8(l.ParamA) * 0.8
	thick := 0.05 + unorm8(l.ParamB)*0.6
	wavy := nibble(hiNibble(l.ParamC))
	speed := nibble(loNibble(l.ParamC))
	seed := seedOf(l.ParamD)
	drift := Vec3{Y: ctx.time * speed * 0.3}

	var v, f float32
	switch l.Variant {
	case VeilRibbon:
		off := (valueNoise(heading.Mul(2).Add(drift), seed) - 0.5) * (0.1 + wavy*0.5)
		center := base + off
		d := math32.Abs(y-center) / (thick * 0.3)
		v = 1 - smoothstep(0.5, 1, d)
		f = saturate((y - center + thick*0.15) / (thick * 0.3))
	case VeilSheets:
		for k := 0; k < 3; k++ {
			kb := base + float32(k)*thick*0.4
			off := (valueNoise(heading.Mul(3).Add(drift), seed+uint32(k)) - 0.5) * wavy * 0.2
			fk := (y - kb - off) / (thick * 0.3)
			v = max(v, smoothstep(0, 0.2, fk)*(1-smoothstep(0.4, 1, fk))*(1-float32(k)*0.25))
		}
		f = saturate((y - base) / thick)
	default:
		off := (valueNoise(heading.Mul(3).Add(drift), seed) - 0.5) * wavy * 0.3
		f = (y - base - off) / thick
		v = smoothstep(0, 0.1, f) * (1 - smoothstep(0.4, 1, f))
		rays := 0.5 + 0.5*valueNoise(heading.Mul(14).Add(drift.Mul(2)), seed+9)
		v *= rays
		f = saturate(f)
	}
	if v <= 0 {
		return Sample{}
	}
	rgb := l.ColorA.Vec3().Lerp(l.ColorB.Vec3(), f)
	return Sample{RGB: rgb, W: saturate(v * l.brightness() * valid)}
}
