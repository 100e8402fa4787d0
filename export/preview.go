package export

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/epu"
)

// previewSupersample is the resolution factor of the lat-long render that is
// scaled down into the preview.
const previewSupersample = 2

// Preview renders src as a tone-mapped width x height lat-long image.
// Radiance is scaled by 2^exposure, Reinhard tone mapped and sRGB encoded.
func Preview(src Sampler, width, height int, exposure float32) *image.RGBA {
	sw, sh := width*previewSupersample, height*previewSupersample
	pix := LatLong(src, sw, sh)
	scale := float32(math.Exp2(float64(exposure)))

	hi := image.NewRGBA(image.Rect(0, 0, sw, sh))
	for y := range sh {
		for x := range sw {
			i := (y*sw + x) * 4
			c := epu.Vec3{X: pix[i], Y: pix[i+1], Z: pix[i+2]}.Mul(scale)
			hi.SetRGBA(x, y, color.RGBA{R: toneMap(c.X), G: toneMap(c.Y), B: toneMap(c.Z), A: 255})
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), hi, hi.Bounds(), xdraw.Src, nil)
	return dst
}

// WritePreviewPNG encodes Preview(src, width, height, exposure) as PNG.
func WritePreviewPNG(w io.Writer, src Sampler, width, height int, exposure float32) error {
	return png.Encode(w, Preview(src, width, height, exposure))
}

func toneMap(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	v /= 1 + v
	var s float64
	if v <= 0.0031308 {
		s = 12.92 * float64(v)
	} else {
		s = 1.055*math.Pow(float64(v), 1/2.4) - 0.055
	}
	return uint8(math.Round(math.Min(s, 1) * 255))
}
