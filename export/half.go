package export

import (
	"fmt"

	"github.com/mrjoshuak/go-openexr/half"

	"github.com/gogpu/epu"
)

// EncodeRGBA16F packs m into little-endian RGBA16F texels, the layout of a
// Rgba16Float texture upload.
func EncodeRGBA16F(m *epu.RadianceMap) []byte {
	out := make([]byte, len(m.Pix)*2)
	half.ConvertFloat32ToBytes(out, m.Pix)
	return out
}

// DecodeRGBA16F unpacks a size x size RGBA16F blob.
func DecodeRGBA16F(data []byte, size int) (*epu.RadianceMap, error) {
	if want := size * size * 4 * 2; len(data) != want {
		return nil, fmt.Errorf("export: RGBA16F blob is %d bytes, want %d for size %d", len(data), want, size)
	}
	m := epu.NewRadianceMap(size)
	half.ConvertBytesToFloat32(m.Pix, data)
	return m, nil
}
