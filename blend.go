package epu

import "github.com/chewxy/math32"

// MaxRadiance bounds every channel of the accumulator and of layer samples.
const MaxRadiance = 64

// Sample is a layer's contribution before blending: a color and a weight
// in [0,1].
type Sample struct {
	RGB Vec3
	W   float32
}

// sanitize clears NaNs and clamps the sample to its valid range.
func (s Sample) sanitize() Sample {
	return Sample{RGB: sanitizeRGB(s.RGB), W: sanitizeUnit(s.W)}
}

func sanitizeUnit(x float32) float32 {
	if math32.IsNaN(x) {
		return 0
	}
	return saturate(x)
}

func sanitizeRGB(v Vec3) Vec3 {
	c := func(x float32) float32 {
		if math32.IsNaN(x) {
			return 0
		}
		return clamp(x, 0, MaxRadiance)
	}
	return Vec3{X: c(v.X), Y: c(v.Y), Z: c(v.Z)}
}

// BlendInto folds src with weight w into dst using mode. A weight of 0
// leaves dst unchanged for every mode; LERP with weight 1 returns src.
func BlendInto(mode Blend, dst, src Vec3, w float32) Vec3 {
	if !(w > 0) {
		return dst
	}
	w = min(w, 1)
	switch mode & 7 {
	case BlendAdd:
		return dst.Add(src.Mul(w)).Clamp(0, MaxRadiance)
	case BlendMultiply:
		return dst.MulVec(Vec3{X: 1, Y: 1, Z: 1}.Lerp(src, w)).Clamp(0, MaxRadiance)
	case BlendMax:
		return dst.Max(src.Mul(w))
	case BlendLerp:
		if w >= 1 {
			return src
		}
		return dst.Mul(1 - w).Add(src.Mul(w))
	case BlendScreen:
		s := src.Mul(w)
		return dst.Add(s).Sub(dst.MulVec(s)).Clamp(0, MaxRadiance)
	case BlendHSVMod:
		return hsvModulate(dst, src, w)
	case BlendMin:
		return dst.Lerp(dst.Min(src), w)
	default:
		return dst.Lerp(overlay(dst, src), w).Clamp(0, MaxRadiance)
	}
}

// overlay applies the overlay operator per channel. Channels above 1 are
// treated as saturated.
func overlay(dst, src Vec3) Vec3 {
	o := func(a, b float32) float32 {
		a = saturate(a)
		if a < 0.5 {
			return 2 * a * b
		}
		return 1 - 2*(1-a)*(1-b)
	}
	return Vec3{X: o(dst.X, src.X), Y: o(dst.Y, src.Y), Z: o(dst.Z, src.Z)}
}

// hsvModulate reads the sample as a modulation: R shifts hue (in turns),
// G scales saturation and B scales value, with 0.5 meaning no change.
func hsvModulate(dst, src Vec3, w float32) Vec3 {
	h, s, v := rgbToHSV(dst)
	h = fract(h + (src.X-0.5)*w)
	s = saturate(s * mix(1, 2*src.Y, w))
	v = clamp(v*mix(1, 2*src.Z, w), 0, MaxRadiance)
	return hsvToRGB(h, s, v)
}

// rgbToHSV converts to hue in turns [0,1), saturation and value.
func rgbToHSV(c Vec3) (h, s, v float32) {
	mx := max(c.X, max(c.Y, c.Z))
	mn := min(c.X, min(c.Y, c.Z))
	v = mx
	d := mx - mn
	if mx <= 0 || d <= 0 {
		return 0, 0, v
	}
	s = d / mx
	switch mx {
	case c.X:
		h = (c.Y - c.Z) / d
	case c.Y:
		h = 2 + (c.Z-c.X)/d
	default:
		h = 4 + (c.X-c.Y)/d
	}
	return fract(h / 6), s, v
}

func hsvToRGB(h, s, v float32) Vec3 {
	if s <= 0 {
		return Vec3{X: v, Y: v, Z: v}
	}
	h6 := fract(h) * 6
	i := math32.Floor(h6)
	f := h6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		return Vec3{X: v, Y: t, Z: p}
	case 1:
		return Vec3{X: q, Y: v, Z: p}
	case 2:
		return Vec3{X: p, Y: v, Z: t}
	case 3:
		return Vec3{X: p, Y: q, Z: v}
	case 4:
		return Vec3{X: t, Y: p, Z: v}
	default:
		return Vec3{X: v, Y: p, Z: q}
	}
}
