package epu

import (
	"fmt"
	"math"
	"strings"
)

// SHSampleCount is the number of spherical Fibonacci directions integrated
// per extraction.
const SHSampleCount = 1024

// SH9 holds order-2 real spherical harmonic coefficients of irradiance, one
// RGB triple per basis function. Coefficients are pre-convolved with the
// clamped-cosine lobe and divided by pi, so Eval returns outgoing radiance of
// a white Lambertian surface; a constant environment of color c evaluates
// to c everywhere.
type SH9 [9]Vec3

// Real SH basis constants.
const (
	shY00  = 0.282095
	shY1   = 0.488603
	shY2n2 = 1.092548
	shY20  = 0.315392
	shY22  = 0.546274
)

// Cosine-lobe convolution factors A_l divided by pi.
var shBand = [9]float32{
	1,
	2.0 / 3, 2.0 / 3, 2.0 / 3,
	0.25, 0.25, 0.25, 0.25, 0.25,
}

// shBasis evaluates the 9 basis functions at unit direction d.
func shBasis(d Vec3) [9]float32 {
	x, y, z := d.X, d.Y, d.Z
	return [9]float32{
		shY00,
		shY1 * y,
		shY1 * z,
		shY1 * x,
		shY2n2 * x * y,
		shY2n2 * y * z,
		shY20 * (3*z*z - 1),
		shY2n2 * x * z,
		shY22 * (x*x - y*y),
	}
}

// fibonacciDir returns the i-th of n spherical Fibonacci directions.
func fibonacciDir(i, n int) Vec3 {
	golden := math.Pi * (3 - math.Sqrt(5))
	z := 1 - (2*float64(i)+1)/float64(n)
	r := math.Sqrt(max(0, 1-z*z))
	phi := golden * float64(i)
	return Vec3{
		X: float32(r * math.Cos(phi)),
		Y: float32(r * math.Sin(phi)),
		Z: float32(z),
	}
}

// ExtractSH9 projects the radiance of m onto the SH9 basis using the fixed
// Fibonacci sample set.
func ExtractSH9(m *RadianceMap) SH9 {
	var raw [9]Vec3
	for i := range SHSampleCount {
		d := fibonacciDir(i, SHSampleCount)
		c := m.Sample(d)
		y := shBasis(d)
		for k := range raw {
			raw[k] = raw[k].Add(c.Mul(y[k]))
		}
	}
	// Each sample covers 4pi/N steradians.
	w := float32(4 * math.Pi / SHSampleCount)
	for k := range raw {
		raw[k] = raw[k].Mul(w)
	}
	return ConvolveSH9(raw)
}

// ConvolveSH9 turns radiance projection coefficients (the solid-angle
// weighted sums of radiance times each basis function) into irradiance
// coefficients by applying the clamped-cosine band factors.
func ConvolveSH9(raw [9]Vec3) SH9 {
	var sh SH9
	for k := range sh {
		sh[k] = raw[k].Mul(shBand[k])
	}
	return sh
}

// Eval returns the irradiance-derived ambient color for surface normal n,
// clamped to non-negative.
func (sh *SH9) Eval(n Vec3) Vec3 {
	y := shBasis(n.NormalizeOr(AxisY))
	var c Vec3
	for k := range sh {
		c = c.Add(sh[k].Mul(y[k]))
	}
	return c.Max(Vec3{})
}

// String formats the coefficients one per line.
func (sh *SH9) String() string {
	var b strings.Builder
	for k, c := range sh {
		fmt.Fprintf(&b, "L%d: %.6f %.6f %.6f\n", k, c.X, c.Y, c.Z)
	}
	return b.String()
}
