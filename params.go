package epu

import "github.com/chewxy/math32"

// Per-opcode parameter structs for the Builder. Fields are in the quantized
// units stored in the instruction; the evaluator reads them back through
// the same field layout.

// PackThresholds packs RAMP ceiling and floor thresholds (0..15 each, mapping
// to -1..1) into ParamD.
func PackThresholds(ceilQ, floorQ uint8) uint8 {
	return (ceilQ&0xF)<<4 | floorQ&0xF
}

// QuantizeThreshold maps a height in [-1,1] to the nearest 4-bit threshold.
func QuantizeThreshold(h float32) uint8 {
	return uint8(math32.Floor(saturate(h*0.5+0.5)*15 + 0.5))
}

// PackNibbles packs two 4-bit values into one byte, hi first.
func PackNibbles(hi, lo uint8) uint8 { return (hi&0xF)<<4 | lo&0xF }

// RampParams configures a RAMP layer.
type RampParams struct {
	Up         Vec3
	SkyColor   RGB24
	WallColor  RGB24
	FloorColor RGB24
	CeilQ      uint8 // 0..15 -> -1..1
	FloorQ     uint8 // 0..15 -> -1..1
	Softness   uint8
}

// DefaultRampParams returns a black ramp split at the horizon.
func DefaultRampParams() RampParams {
	return RampParams{Up: AxisY, CeilQ: 8, FloorQ: 8, Softness: 128}
}

func (p RampParams) layer() Layer {
	r, g, b := p.WallColor.Channels()
	l := Layer{
		Opcode: OpRamp, Region: RegionAll, Blend: BlendAdd,
		ColorA: p.SkyColor, ColorB: p.FloorColor,
		AlphaA: 15, AlphaB: 15,
		Intensity: p.Softness,
		ParamA:    r, ParamB: g, ParamC: b,
		ParamD: PackThresholds(p.CeilQ, p.FloorQ),
	}
	l.SetDir(p.Up)
	return l
}

// SectorParams configures a SECTOR layer.
type SectorParams struct {
	Up        Vec3
	SkyColor  RGB24
	WallColor RGB24
	Center    uint8 // azimuth, 0..255 -> 0..2pi
	Width     uint8 // half angle, 0..255 -> 0..pi
	Softness  uint8
	Variant   uint8
}

// DefaultSectorParams returns a quarter-turn wedge.
func DefaultSectorParams() SectorParams {
	return SectorParams{Up: AxisY, Width: 64, Softness: 32}
}

func (p SectorParams) layer() Layer {
	l := Layer{
		Opcode: OpSector, Region: RegionAll, Blend: BlendAdd,
		Variant: p.Variant,
		ColorA:  p.SkyColor, ColorB: p.WallColor,
		AlphaA: 15, AlphaB: 15,
		ParamA: p.Center, ParamB: p.Width, ParamC: p.Softness,
	}
	l.SetDir(p.Up)
	return l
}

// SilhouetteParams configures a SILHOUETTE layer.
type SilhouetteParams struct {
	Up              Vec3
	SilhouetteColor RGB24
	SkyColor        RGB24
	Strength        uint8 // alpha nibble of the silhouette body
	EdgeSoftness    uint8
	Height          uint8 // 0..255 -> -0.5..0.5
	Roughness       uint8
	OctavesQ        uint8 // 1..6
	DriftQ          uint8 // 0..15, 0 is static
	DriftSpeed      uint8
	Variant         uint8
}

// DefaultSilhouetteParams returns a static mountain range on the horizon.
func DefaultSilhouetteParams() SilhouetteParams {
	return SilhouetteParams{
		Up: AxisY, Strength: 15, EdgeSoftness: 16,
		Height: 140, Roughness: 128, OctavesQ: 4,
	}
}

func (p SilhouetteParams) layer() Layer {
	l := Layer{
		Opcode: OpSilhouette, Region: RegionAll, Blend: BlendLerp,
		Variant: p.Variant,
		ColorA:  p.SilhouetteColor, ColorB: p.SkyColor,
		AlphaA: p.Strength & 0xF, AlphaB: 0,
		Intensity: p.EdgeSoftness,
		ParamA:    p.Height, ParamB: p.Roughness,
		ParamC: PackNibbles(p.OctavesQ, p.DriftQ),
		ParamD: p.DriftSpeed,
	}
	l.SetDir(p.Up)
	return l
}

// SplitParams configures a SPLIT layer.
type SplitParams struct {
	Axis      Vec3
	SkyColor  RGB24
	WallColor RGB24
	Blend     uint8 // edge softness
	Angle     uint8 // wedge opening
	Count     uint8 // bands/prism sides selector
	Offset    uint8 // 0..255 -> -1..1
	Variant   uint8
}

// DefaultSplitParams returns a half split along +Y.
func DefaultSplitParams() SplitParams {
	return SplitParams{Axis: AxisY, Blend: 16, Angle: 128, Offset: 128}
}

func (p SplitParams) layer() Layer {
	l := Layer{
		Opcode: OpSplit, Region: RegionAll, Blend: BlendAdd,
		Variant: p.Variant,
		ColorA:  p.SkyColor, ColorB: p.WallColor,
		AlphaA: 15, AlphaB: 15,
		ParamA: p.Blend, ParamB: p.Angle, ParamC: p.Count, ParamD: p.Offset,
	}
	l.SetDir(p.Axis)
	return l
}

// CellParams configures a CELL layer.
type CellParams struct {
	Axis      Vec3
	GapColor  RGB24
	WallColor RGB24
	Density   uint8
	Fill      uint8 // fraction of solid cells
	Gap       uint8
	Seed      uint8
	Variant   uint8
}

// DefaultCellParams returns a half-filled Voronoi partition.
func DefaultCellParams() CellParams {
	return CellParams{Axis: AxisY, Density: 32, Fill: 128, Gap: 32}
}

func (p CellParams) layer() Layer {
	l := Layer{
		Opcode: OpCell, Region: RegionAll, Blend: BlendAdd,
		Variant: p.Variant,
		ColorA:  p.GapColor, ColorB: p.WallColor,
		AlphaA: 15, AlphaB: 15,
		ParamA: p.Density, ParamB: p.Fill, ParamC: p.Gap, ParamD: p.Seed,
	}
	l.SetDir(p.Axis)
	return l
}

// PatchesParams configures a PATCHES layer.
type PatchesParams struct {
	Axis      Vec3
	SkyColor  RGB24
	WallColor RGB24
	Scale     uint8
	Coverage  uint8
	Sharpness uint8
	Seed      uint8
	Domain    uint8
	Variant   uint8
}

// DefaultPatchesParams returns medium patches covering half the sphere.
func DefaultPatchesParams() PatchesParams {
	return PatchesParams{Axis: AxisY, Scale: 64, Coverage: 128, Sharpness: 128}
}

func (p PatchesParams) layer() Layer {
	l := Layer{
		Opcode: OpPatches, Region: RegionAll, Blend: BlendAdd,
		Domain: p.Domain, Variant: p.Variant,
		ColorA: p.SkyColor, ColorB: p.WallColor,
		AlphaA: 15, AlphaB: 15,
		ParamA: p.Scale, ParamB: p.Coverage, ParamC: p.Sharpness, ParamD: p.Seed,
	}
	l.SetDir(p.Axis)
	return l
}

// ApertureParams configures an APERTURE layer.
type ApertureParams struct {
	Center     Vec3
	SkyColor   RGB24
	FrameColor RGB24
	Softness   uint8
	HalfWidth  uint8
	HalfHeight uint8
	Frame      uint8
	Shape      uint8 // variant-specific: corner radius, bar count, wobble
	Variant    uint8
}

// DefaultApertureParams returns a round window straight ahead.
func DefaultApertureParams() ApertureParams {
	return ApertureParams{
		Center: V3(0, 0, -1), Softness: 8,
		HalfWidth: 96, HalfHeight: 96, Frame: 16, Shape: 128,
	}
}

func (p ApertureParams) layer() Layer {
	l := Layer{
		Opcode: OpAperture, Region: RegionAll, Blend: BlendAdd,
		Variant: p.Variant,
		ColorA:  p.SkyColor, ColorB: p.FrameColor,
		AlphaA: 15, AlphaB: 15,
		Intensity: p.Softness,
		ParamA:    p.HalfWidth, ParamB: p.HalfHeight, ParamC: p.Frame, ParamD: p.Shape,
	}
	l.SetDir(p.Center)
	return l
}

// FeatureBase holds the fields every feature layer shares.
type FeatureBase struct {
	Region    Region
	Blend     Blend
	ColorA    RGB24
	ColorB    RGB24
	Intensity uint8
	Domain    uint8 // Domain3D..DomainTangent; PLANE stores Place instead
}

func (f FeatureBase) layer(op Opcode) Layer {
	return Layer{
		Opcode: op, Region: f.Region, Blend: f.Blend, Domain: f.Domain,
		ColorA: f.ColorA, ColorB: f.ColorB,
		AlphaA: 15, AlphaB: 15,
		Intensity: f.Intensity,
	}
}

func defaultFeatureBase(region Region, blend Blend) FeatureBase {
	return FeatureBase{Region: region, Blend: blend, Intensity: 255}
}

// DecalParams configures a DECAL layer.
type DecalParams struct {
	FeatureBase
	Center   Vec3
	Shape    uint8 // DecalDisk..DecalLine
	Softness uint8 // 0..15
	Size     uint8
	Glow     uint8
	Phase    uint8
	Pulse    uint8 // 0 static, else speed 1..7
}

// DefaultDecalParams returns a small disk overhead.
func DefaultDecalParams() DecalParams {
	return DecalParams{
		FeatureBase: defaultFeatureBase(RegionAll, BlendAdd),
		Center:      AxisY, Softness: 2, Size: 32,
	}
}

func (p DecalParams) layer() Layer {
	l := p.FeatureBase.layer(OpDecal)
	l.Variant = p.Pulse
	l.ParamA = PackNibbles(p.Shape, p.Softness)
	l.ParamB, l.ParamC, l.ParamD = p.Size, p.Glow, p.Phase
	l.SetDir(p.Center)
	return l
}

// GridParams configures a GRID layer.
type GridParams struct {
	FeatureBase
	Anchor    Vec3
	Cells     uint8
	Thickness uint8
	Pattern   uint8 // GridStripes, GridLines, GridChecker
	Scroll    uint8 // 0..15
	Offset    uint8
	Shear     uint8 // 0..7
}

// DefaultGridParams returns thin grid lines wrapped around the walls.
func DefaultGridParams() GridParams {
	p := GridParams{
		FeatureBase: defaultFeatureBase(RegionWalls, BlendAdd),
		Anchor:      AxisY, Cells: 16, Thickness: 8, Pattern: GridLines,
	}
	p.Domain = DomainCylinder
	return p
}

func (p GridParams) layer() Layer {
	l := p.FeatureBase.layer(OpGrid)
	l.Variant = p.Shear
	l.ParamA, l.ParamB = p.Cells, p.Thickness
	l.ParamC = PackNibbles(p.Pattern, p.Scroll)
	l.ParamD = p.Offset
	l.SetDir(p.Anchor)
	return l
}

// ScatterParams configures a SCATTER layer.
type ScatterParams struct {
	FeatureBase
	Anchor  Vec3 // tangent-domain center
	Density uint8
	Size    uint8
	Twinkle uint8 // 0..15
	Drift   uint8 // 0..15
	Seed    uint8
}

// DefaultScatterParams returns a static star field in the sky.
func DefaultScatterParams() ScatterParams {
	return ScatterParams{
		FeatureBase: defaultFeatureBase(RegionSky, BlendAdd),
		Anchor:      AxisY, Density: 160, Size: 24,
	}
}

func (p ScatterParams) layer() Layer {
	l := p.FeatureBase.layer(OpScatter)
	l.ParamA, l.ParamB = p.Density, p.Size
	l.ParamC = PackNibbles(p.Twinkle, p.Drift)
	l.ParamD = p.Seed
	l.SetDir(p.Anchor)
	return l
}

// FlowParams configures a FLOW layer.
type FlowParams struct {
	FeatureBase
	Axis       Vec3
	Scale      uint8
	Turbulence uint8
	Octaves    uint8 // 1..6
	Pattern    uint8 // FlowNoise, FlowStreaks, FlowCaustic
	Speed      uint8 // 0 is static
}

// DefaultFlowParams returns slow drifting clouds in the sky.
func DefaultFlowParams() FlowParams {
	return FlowParams{
		FeatureBase: defaultFeatureBase(RegionSky, BlendScreen),
		Axis:        AxisX, Scale: 48, Turbulence: 96, Octaves: 4, Speed: 16,
	}
}

func (p FlowParams) layer() Layer {
	l := p.FeatureBase.layer(OpFlow)
	l.ParamA, l.ParamB = p.Scale, p.Turbulence
	l.ParamC = PackNibbles(p.Octaves, p.Pattern)
	l.ParamD = p.Speed
	l.SetDir(p.Axis)
	return l
}

// TraceParams configures a TRACE layer.
type TraceParams struct {
	FeatureBase
	Anchor    Vec3
	Scale     uint8
	Thickness uint8
	Jag       uint8 // 0..15
	Rate      uint8 // 0..15, 0 is static
	Seed      uint8
	Variant   uint8 // TraceCracks..TraceVeins
}

// DefaultTraceParams returns static cracks on the floor.
func DefaultTraceParams() TraceParams {
	return TraceParams{
		FeatureBase: defaultFeatureBase(RegionFloor, BlendAdd),
		Anchor:      AxisY.Neg(), Scale: 64, Thickness: 32, Jag: 8,
	}
}

func (p TraceParams) layer() Layer {
	l := p.FeatureBase.layer(OpTrace)
	l.Variant = p.Variant
	l.ParamA, l.ParamB = p.Scale, p.Thickness
	l.ParamC = PackNibbles(p.Jag, p.Rate)
	l.ParamD = p.Seed
	l.SetDir(p.Anchor)
	return l
}

// VeilParams configures a VEIL layer.
type VeilParams struct {
	FeatureBase
	Height    uint8 // 0..255 -> -0.8..0.8
	Thickness uint8
	Waviness  uint8 // 0..15
	Speed     uint8 // 0..15, 0 is static
	Seed      uint8
	Variant   uint8 // VeilCurtain, VeilRibbon, VeilSheets
}

// DefaultVeilParams returns a static aurora curtain.
func DefaultVeilParams() VeilParams {
	return VeilParams{
		FeatureBase: defaultFeatureBase(RegionSky, BlendScreen),
		Height:      180, Thickness: 96, Waviness: 8,
	}
}

func (p VeilParams) layer() Layer {
	l := p.FeatureBase.layer(OpVeil)
	l.Variant = p.Variant
	l.ParamA, l.ParamB = p.Height, p.Thickness
	l.ParamC = PackNibbles(p.Waviness, p.Speed)
	l.ParamD = p.Seed
	return l
}

// AtmosphereParams configures an ATMOSPHERE layer.
type AtmosphereParams struct {
	FeatureBase
	Sun        Vec3
	Falloff    uint8
	HorizonY   uint8 // 0..255 -> -0.3..0.3
	MieAmount  uint8
	MieConcent uint8
	Variant    uint8 // AtmosphereRayleigh, AtmosphereMie, AtmosphereFog
}

// DefaultAtmosphereParams returns a Rayleigh sky gradient.
func DefaultAtmosphereParams() AtmosphereParams {
	return AtmosphereParams{
		FeatureBase: defaultFeatureBase(RegionSky, BlendAdd),
		Sun:         V3(0.3, 0.6, -0.7), Falloff: 64, HorizonY: 128,
		MieAmount: 96, MieConcent: 96,
	}
}

func (p AtmosphereParams) layer() Layer {
	l := p.FeatureBase.layer(OpAtmosphere)
	l.Variant = p.Variant
	l.ParamA, l.ParamB, l.ParamC, l.ParamD = p.Falloff, p.HorizonY, p.MieAmount, p.MieConcent
	l.SetDir(p.Sun)
	return l
}

// PlaneParams configures a PLANE layer.
type PlaneParams struct {
	FeatureBase
	Normal   Vec3 // used by PlaneVertical
	Scale    uint8
	Distance uint8
	Width    uint8
	Scroll   uint8
	Variant  uint8 // PlaneTiles..PlaneSand
	Place    uint8 // PlaneFloor..PlaneVertical, stored in the domain field
}

// DefaultPlaneParams returns a tiled floor.
func DefaultPlaneParams() PlaneParams {
	return PlaneParams{
		FeatureBase: defaultFeatureBase(RegionFloor, BlendLerp),
		Normal:      V3(0, 0, -1), Scale: 64, Distance: 64, Width: 16,
	}
}

func (p PlaneParams) layer() Layer {
	l := p.FeatureBase.layer(OpPlane)
	l.Domain, l.Variant = p.Place, p.Variant
	l.ParamA, l.ParamB, l.ParamC, l.ParamD = p.Scale, p.Distance, p.Width, p.Scroll
	l.SetDir(p.Normal)
	return l
}

// CelestialParams configures a CELESTIAL layer.
type CelestialParams struct {
	FeatureBase
	Dir     Vec3
	Radius  uint8
	Phase   uint8
	Corona  uint8
	Detail  uint8
	Variant uint8 // CelestialSun..CelestialRinged
}

// DefaultCelestialParams returns a sun high in the sky.
func DefaultCelestialParams() CelestialParams {
	return CelestialParams{
		FeatureBase: defaultFeatureBase(RegionSky, BlendAdd),
		Dir:         V3(0.3, 0.6, -0.7), Radius: 16, Corona: 64,
	}
}

func (p CelestialParams) layer() Layer {
	l := p.FeatureBase.layer(OpCelestial)
	l.Variant = p.Variant
	l.ParamA, l.ParamB, l.ParamC, l.ParamD = p.Radius, p.Phase, p.Corona, p.Detail
	l.SetDir(p.Dir)
	return l
}

// PortalParams configures a PORTAL layer.
type PortalParams struct {
	FeatureBase
	Center  Vec3
	Radius  uint8
	Swirl   uint8
	Arms    uint8 // 0..15
	Speed   uint8 // 0..15, 0 is static
	Rim     uint8
	Variant uint8 // PortalVortex..PortalTunnel
}

// DefaultPortalParams returns a static vortex straight ahead.
func DefaultPortalParams() PortalParams {
	return PortalParams{
		FeatureBase: defaultFeatureBase(RegionAll, BlendAdd),
		Center:      V3(0, 0, -1), Radius: 64, Swirl: 96, Arms: 4, Rim: 16,
	}
}

func (p PortalParams) layer() Layer {
	l := p.FeatureBase.layer(OpPortal)
	l.Variant = p.Variant
	l.ParamA, l.ParamB = p.Radius, p.Swirl
	l.ParamC = PackNibbles(p.Arms, p.Speed)
	l.ParamD = p.Rim
	l.SetDir(p.Center)
	return l
}

// LobeParams configures a LOBE layer: a directional glow.
type LobeParams struct {
	FeatureBase
	Dir      Vec3
	Exponent uint8
	Falloff  uint8
	Waveform uint8 // WaveOff..WaveStrobe
	Rate     uint8 // 0..7, quarter hertz
	Phase    uint8
}

// DefaultLobeParams returns a soft static glow overhead.
func DefaultLobeParams() LobeParams {
	return LobeParams{
		FeatureBase: defaultFeatureBase(RegionAll, BlendAdd),
		Dir:         AxisY, Exponent: 16, Falloff: 64,
	}
}

func (p LobeParams) layer() Layer {
	l := p.FeatureBase.layer(OpLobe)
	l.Variant = p.Rate
	l.ParamA, l.ParamB, l.ParamC, l.ParamD = p.Exponent, p.Falloff, p.Waveform&3, p.Phase
	l.SetDir(p.Dir)
	return l
}

// BandParams configures a BAND layer: a glowing ring around an axis.
type BandParams struct {
	FeatureBase
	Axis     Vec3
	Width    uint8
	Offset   uint8 // 0..255 -> -0.9..0.9
	Softness uint8
	Phase    uint8
	Rate     uint8 // 0..7, 0 is static
}

// DefaultBandParams returns a horizon glow band.
func DefaultBandParams() BandParams {
	return BandParams{
		FeatureBase: defaultFeatureBase(RegionAll, BlendAdd),
		Axis:        AxisY, Width: 24, Offset: 128, Softness: 64,
	}
}

func (p BandParams) layer() Layer {
	l := p.FeatureBase.layer(OpBand)
	l.Variant = p.Rate
	l.ParamA, l.ParamB, l.ParamC, l.ParamD = p.Width, p.Offset, p.Softness, p.Phase
	l.SetDir(p.Axis)
	return l
}
