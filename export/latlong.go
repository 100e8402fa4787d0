package export

import (
	"math"

	"github.com/gogpu/epu"
)

// Sampler returns radiance toward a direction. *epu.RadianceMap satisfies
// it; wrap EnvMaps lookups with SamplerFunc.
type Sampler interface {
	Sample(dir epu.Vec3) epu.Vec3
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(dir epu.Vec3) epu.Vec3

// Sample implements Sampler.
func (f SamplerFunc) Sample(dir epu.Vec3) epu.Vec3 { return f(dir) }

// LatLongDir returns the direction through the center of pixel (x, y) of a
// width x height equirectangular image. Row 0 looks up (+Y); column 0 starts
// at -Z and longitude increases toward +X.
func LatLongDir(x, y, width, height int) epu.Vec3 {
	theta := math.Pi * (float64(y) + 0.5) / float64(height)
	phi := 2*math.Pi*(float64(x)+0.5)/float64(width) - math.Pi
	st := math.Sin(theta)
	return epu.Vec3{
		X: float32(st * math.Sin(phi)),
		Y: float32(math.Cos(theta)),
		Z: float32(-st * math.Cos(phi)),
	}
}

// LatLong resamples src into a width x height equirectangular RGBA float32
// image, row-major, alpha 1.
func LatLong(src Sampler, width, height int) []float32 {
	pix := make([]float32, width*height*4)
	for y := range height {
		for x := range width {
			c := src.Sample(LatLongDir(x, y, width, height))
			i := (y*width + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.X, c.Y, c.Z, 1
		}
	}
	return pix
}
