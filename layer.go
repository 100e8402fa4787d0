package epu

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode selects the evaluator for a layer.
//
// The opcode set is closed: values without an evaluator decode fine and
// contribute nothing.
type Opcode uint8

// Opcodes.
const (
	OpNop        Opcode = 0x00
	OpRamp       Opcode = 0x01
	OpSector     Opcode = 0x02
	OpSilhouette Opcode = 0x03
	OpSplit      Opcode = 0x04
	OpCell       Opcode = 0x05
	OpPatches    Opcode = 0x06
	OpAperture   Opcode = 0x07
	OpDecal      Opcode = 0x08
	OpGrid       Opcode = 0x09
	OpScatter    Opcode = 0x0A
	OpFlow       Opcode = 0x0B
	OpTrace      Opcode = 0x0C
	OpVeil       Opcode = 0x0D
	OpAtmosphere Opcode = 0x0E
	OpPlane      Opcode = 0x0F
	OpCelestial  Opcode = 0x10
	OpPortal     Opcode = 0x11
	OpLobe       Opcode = 0x12
	OpBand       Opcode = 0x13

	// OpMax is the largest encodable opcode.
	OpMax Opcode = 0x1F
)

var opcodeNames = [...]string{
	OpNop:        "NOP",
	OpRamp:       "RAMP",
	OpSector:     "SECTOR",
	OpSilhouette: "SILHOUETTE",
	OpSplit:      "SPLIT",
	OpCell:       "CELL",
	OpPatches:    "PATCHES",
	OpAperture:   "APERTURE",
	OpDecal:      "DECAL",
	OpGrid:       "GRID",
	OpScatter:    "SCATTER",
	OpFlow:       "FLOW",
	OpTrace:      "TRACE",
	OpVeil:       "VEIL",
	OpAtmosphere: "ATMOSPHERE",
	OpPlane:      "PLANE",
	OpCelestial:  "CELESTIAL",
	OpPortal:     "PORTAL",
	OpLobe:       "LOBE_RADIANCE",
	OpBand:       "BAND_RADIANCE",
}

// String returns the opcode mnemonic, or RESERVED_xx for unassigned values.
func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("RESERVED_%02X", uint8(o))
}

// IsBounds reports whether the opcode partitions the sphere into regions.
func (o Opcode) IsBounds() bool { return o >= OpRamp && o <= OpAperture }

// IsFeature reports whether the opcode is an implemented feature opcode.
func (o Opcode) IsFeature() bool { return o >= OpDecal && o <= OpBand }

// IsReserved reports whether the opcode has no evaluator.
func (o Opcode) IsReserved() bool { return o > OpBand }

// Region is the 3-bit region mask field.
type Region uint8

// Region bits.
const (
	RegionNone  Region = 0
	RegionFloor Region = 0b001
	RegionWalls Region = 0b010
	RegionSky   Region = 0b100
	RegionAll   Region = 0b111
)

// String returns a compact form such as "SKY|FLOOR".
func (r Region) String() string {
	r &= RegionAll
	switch r {
	case RegionNone:
		return "NONE"
	case RegionAll:
		return "ALL"
	}
	s := ""
	for _, p := range []struct {
		bit  Region
		name string
	}{{RegionSky, "SKY"}, {RegionWalls, "WALLS"}, {RegionFloor, "FLOOR"}} {
		if r&p.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += p.name
		}
	}
	return s
}

// Blend is the 3-bit blend mode field.
type Blend uint8

// Blend modes.
const (
	BlendAdd      Blend = 0
	BlendMultiply Blend = 1
	BlendMax      Blend = 2
	BlendLerp     Blend = 3
	BlendScreen   Blend = 4
	BlendHSVMod   Blend = 5
	BlendMin      Blend = 6
	BlendOverlay  Blend = 7
)

var blendNames = [...]string{"ADD", "MULTIPLY", "MAX", "LERP", "SCREEN", "HSV_MOD", "MIN", "OVERLAY"}

func (b Blend) String() string { return blendNames[b&7] }

// RGB24 is a packed 0xRRGGBB color.
type RGB24 uint32

// RGB packs 8-bit channels.
func RGB(r, g, b uint8) RGB24 {
	return RGB24(r)<<16 | RGB24(g)<<8 | RGB24(b)
}

// Channels returns the 8-bit channels.
func (c RGB24) Channels() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Vec3 returns the color with channels mapped to [0,1].
func (c RGB24) Vec3() Vec3 {
	r, g, b := c.Channels()
	return Vec3{X: float32(r) / 255, Y: float32(g) / 255, Z: float32(b) / 255}
}

// PackedLayer is the 128-bit wire form of a layer: [0] is the high word,
// [1] the low word.
type PackedLayer [2]uint64

// Layer is the decoded form of one instruction. Every field is defined
// for its full bit range; Pack masks values to their field width.
type Layer struct {
	Opcode    Opcode // 5 bits
	Region    Region // 3 bits
	Blend     Blend  // 3 bits
	Domain    uint8  // 2 bits
	Variant   uint8  // 3 bits
	ColorA    RGB24
	ColorB    RGB24
	Intensity uint8
	ParamA    uint8
	ParamB    uint8
	ParamC    uint8
	ParamD    uint8
	Direction uint16 // octahedral, low byte u, high byte v
	AlphaA    uint8  // 4 bits
	AlphaB    uint8  // 4 bits
}

// Bit positions.
const (
	hiOpcodeShift  = 59
	hiRegionShift  = 56
	hiBlendShift   = 53
	hiDomainShift  = 51
	hiVariantShift = 48
	hiColorAShift  = 24
	hiColorBShift  = 0

	loIntensityShift = 56
	loParamAShift    = 48
	loParamBShift    = 40
	loParamCShift    = 32
	loParamDShift    = 24
	loDirectionShift = 8
	loAlphaAShift    = 4
	loAlphaBShift    = 0
)

// Pack encodes the layer. Out-of-range field values are masked.
func (l Layer) Pack() PackedLayer {
	hi := uint64(l.Opcode&0x1F)<<hiOpcodeShift |
		uint64(l.Region&0x7)<<hiRegionShift |
		uint64(l.Blend&0x7)<<hiBlendShift |
		uint64(l.Domain&0x3)<<hiDomainShift |
		uint64(l.Variant&0x7)<<hiVariantShift |
		uint64(l.ColorA&0xFFFFFF)<<hiColorAShift |
		uint64(l.ColorB&0xFFFFFF)<<hiColorBShift
	lo := uint64(l.Intensity)<<loIntensityShift |
		uint64(l.ParamA)<<loParamAShift |
		uint64(l.ParamB)<<loParamBShift |
		uint64(l.ParamC)<<loParamCShift |
		uint64(l.ParamD)<<loParamDShift |
		uint64(l.Direction)<<loDirectionShift |
		uint64(l.AlphaA&0xF)<<loAlphaAShift |
		uint64(l.AlphaB&0xF)<<loAlphaBShift
	return PackedLayer{hi, lo}
}

// Unpack decodes a packed layer. It never fails: every bit pattern is a
// valid layer.
func (p PackedLayer) Unpack() Layer {
	hi, lo := p[0], p[1]
	return Layer{
		Opcode:    Opcode(hi >> hiOpcodeShift & 0x1F),
		Region:    Region(hi >> hiRegionShift & 0x7),
		Blend:     Blend(hi >> hiBlendShift & 0x7),
		Domain:    uint8(hi >> hiDomainShift & 0x3),
		Variant:   uint8(hi >> hiVariantShift & 0x7),
		ColorA:    RGB24(hi >> hiColorAShift & 0xFFFFFF),
		ColorB:    RGB24(hi >> hiColorBShift & 0xFFFFFF),
		Intensity: uint8(lo >> loIntensityShift),
		ParamA:    uint8(lo >> loParamAShift),
		ParamB:    uint8(lo >> loParamBShift),
		ParamC:    uint8(lo >> loParamCShift),
		ParamD:    uint8(lo >> loParamDShift),
		Direction: uint16(lo >> loDirectionShift),
		AlphaA:    uint8(lo >> loAlphaAShift & 0xF),
		AlphaB:    uint8(lo >> loAlphaBShift & 0xF),
	}
}

// Opcode returns the opcode without decoding the other fields.
func (p PackedLayer) Opcode() Opcode { return Opcode(p[0] >> hiOpcodeShift & 0x1F) }

// Dir decodes the direction field.
func (l *Layer) Dir() Vec3 { return DecodeDir16(l.Direction) }

// SetDir encodes v into the direction field.
func (l *Layer) SetDir(v Vec3) { l.Direction = EncodeDir16(v) }

// Meta5 returns the combined domain/variant field as stored on the wire.
func (l *Layer) Meta5() uint8 { return (l.Domain&0x3)<<3 | l.Variant&0x7 }

func unorm8(x uint8) float32    { return float32(x) / 255 }
func snorm8(x uint8) float32    { return float32(x)/255*2 - 1 }
func nibble(x uint8) float32    { return float32(x&0xF) / 15 }
func hiNibble(x uint8) uint8    { return x >> 4 }
func loNibble(x uint8) uint8    { return x & 0xF }
func threshold(q uint8) float32 { return float32(q&0xF)/15*2 - 1 }

// brightness is the linear feature gain.
func (l *Layer) brightness() float32 { return unorm8(l.Intensity) }

// emissive is the HDR gain for emitters: (intensity/128)^2, 0..~4.
func (l *Layer) emissive() float32 {
	e := float32(l.Intensity) / 128
	return e * e
}

// ParseOpcode parses a mnemonic as printed by Opcode.String, case
// insensitively. Numeric forms ("0x0a", "10") are accepted for any value
// in 0..31.
func ParseOpcode(s string) (Opcode, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range opcodeNames {
		if name == u {
			return Opcode(i), nil
		}
	}
	switch u {
	case "LOBE":
		return OpLobe, nil
	case "BAND":
		return OpBand, nil
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil && n <= uint64(OpMax) {
		return Opcode(n), nil
	}
	return OpNop, fmt.Errorf("epu: unknown opcode %q", s)
}

// ParseBlend parses a blend mode name as printed by Blend.String.
func ParseBlend(s string) (Blend, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range blendNames {
		if name == u {
			return Blend(i), nil
		}
	}
	return BlendAdd, fmt.Errorf("epu: unknown blend mode %q", s)
}

// ParseRegion parses ALL, NONE or names joined by "|" or "+"
// (e.g. "SKY|WALLS").
func ParseRegion(s string) (Region, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch u {
	case "ALL":
		return RegionAll, nil
	case "NONE", "":
		return RegionNone, nil
	}
	var r Region
	for _, part := range strings.FieldsFunc(u, func(c rune) bool { return c == '|' || c == '+' }) {
		switch strings.TrimSpace(part) {
		case "SKY":
			r |= RegionSky
		case "WALLS", "WALL":
			r |= RegionWalls
		case "FLOOR":
			r |= RegionFloor
		default:
			return RegionNone, fmt.Errorf("epu: unknown region %q", part)
		}
	}
	return r, nil
}
