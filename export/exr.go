package export

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/gogpu/epu"
)

// ErrNotSquare is returned when an EXR image cannot hold an octahedral map.
var ErrNotSquare = errors.New("export: octahedral map image must be square")

func rgbaImage(pix []float32, width, height int) *exr.RGBAImage {
	img := exr.NewRGBAImage(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			i := (y*width + x) * 4
			img.SetRGBA(x, y, pix[i], pix[i+1], pix[i+2], pix[i+3])
		}
	}
	return img
}

// WriteEXR writes m as a half-float RGBA OpenEXR image in octahedral layout.
func WriteEXR(w io.WriteSeeker, m *epu.RadianceMap) error {
	if err := exr.Encode(w, rgbaImage(m.Pix, m.Size, m.Size)); err != nil {
		return fmt.Errorf("export: encode exr: %w", err)
	}
	return nil
}

// WriteLatLongEXR writes src unwrapped to a width x height equirectangular
// half-float RGBA image.
func WriteLatLongEXR(w io.WriteSeeker, src Sampler, width, height int) error {
	if err := exr.Encode(w, rgbaImage(LatLong(src, width, height), width, height)); err != nil {
		return fmt.Errorf("export: encode lat-long exr: %w", err)
	}
	return nil
}

// ReadEXR decodes an octahedral radiance level written by WriteEXR.
func ReadEXR(r io.ReaderAt, size int64) (*epu.RadianceMap, error) {
	img, err := exr.Decode(r, size)
	if err != nil {
		return nil, fmt.Errorf("export: decode exr: %w", err)
	}
	b := img.Rect
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, b.Dx(), b.Dy())
	}
	m := epu.NewRadianceMap(b.Dx())
	for y := range m.Size {
		for x := range m.Size {
			r, g, bl, _ := img.RGBA(b.Min.X+x, b.Min.Y+y)
			m.Set(x, y, epu.Vec3{X: r, Y: g, Z: bl})
		}
	}
	return m, nil
}

// WriteLevels writes every pyramid level of maps to dir as
// <prefix>_mip<N>.exr and returns the paths written.
func WriteLevels(dir, prefix string, maps *epu.EnvMaps) ([]string, error) {
	paths := make([]string, 0, len(maps.Levels))
	for i, level := range maps.Levels {
		path := fmt.Sprintf("%s/%s_mip%d.exr", dir, prefix, i)
		if err := writeFile(path, func(f *os.File) error { return WriteEXR(f, level) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
