package epu

// Layer slot allocation used by Builder.
const (
	boundsSlots  = 4 // slots 0..3, RAMP in 0
	featureStart = boundsSlots
)

// Builder assembles an Environment from semantic layer descriptions.
//
// Slot 0 is reserved for RAMP. Other bounds layers fill slots 1..3 in call
// order and feature layers fill slots 4..7. Layers beyond a group's capacity are
// dropped. Unused slots stay NOP.
//
// Example:
//
//	p := epu.DefaultRampParams()
//	p.SkyColor = epu.RGB(90, 140, 220)
//	env := epu.NewBuilder().
//	    Ramp(p).
//	    Scatter(epu.DefaultScatterParams()).
//	    Build()
type Builder struct {
	env         Environment
	nextBounds  int
	nextFeature int
	dropped     int
}

// NewBuilder returns a builder with every layer NOP.
func NewBuilder() *Builder {
	return &Builder{nextBounds: 1, nextFeature: featureStart}
}

// Build returns the assembled environment. The builder may keep being used.
func (b *Builder) Build() Environment { return b.env }

// Dropped returns how many layers did not fit.
func (b *Builder) Dropped() int { return b.dropped }

// Bounds appends a raw bounds layer.
func (b *Builder) Bounds(l Layer) *Builder {
	if b.nextBounds >= boundsSlots {
		b.dropped++
		return b
	}
	b.env.Layers[b.nextBounds] = l.Pack()
	b.nextBounds++
	return b
}

// Feature appends a raw feature layer.
func (b *Builder) Feature(l Layer) *Builder {
	if b.nextFeature >= LayerCount {
		b.dropped++
		return b
	}
	b.env.Layers[b.nextFeature] = l.Pack()
	b.nextFeature++
	return b
}

// Ramp sets slot 0. A later Ramp replaces an earlier one.
func (b *Builder) Ramp(p RampParams) *Builder {
	b.env.Layers[0] = p.layer().Pack()
	return b
}

// Sector appends an azimuthal wedge region bounds layer.
func (b *Builder) Sector(p SectorParams) *Builder { return b.Bounds(p.layer()) }

// Silhouette appends a noise skyline bounds layer.
func (b *Builder) Silhouette(p SilhouetteParams) *Builder { return b.Bounds(p.layer()) }

// Split appends a planar split bounds layer.
func (b *Builder) Split(p SplitParams) *Builder { return b.Bounds(p.layer()) }

// Cell appends a cellular partition bounds layer.
func (b *Builder) Cell(p CellParams) *Builder { return b.Bounds(p.layer()) }

// Patches appends a noise-patch bounds layer.
func (b *Builder) Patches(p PatchesParams) *Builder { return b.Bounds(p.layer()) }

// Aperture appends a framed opening bounds layer.
func (b *Builder) Aperture(p ApertureParams) *Builder { return b.Bounds(p.layer()) }

// Decal appends a shaped decal feature layer.
func (b *Builder) Decal(p DecalParams) *Builder { return b.Feature(p.layer()) }

// Grid appends a line grid feature layer.
func (b *Builder) Grid(p GridParams) *Builder { return b.Feature(p.layer()) }

// Scatter appends a point-scatter feature layer.
func (b *Builder) Scatter(p ScatterParams) *Builder { return b.Feature(p.layer()) }

// Flow appends an animated flow feature layer.
func (b *Builder) Flow(p FlowParams) *Builder { return b.Feature(p.layer()) }

// Trace appends a branching trace feature layer.
func (b *Builder) Trace(p TraceParams) *Builder { return b.Feature(p.layer()) }

// Veil appends a curtain feature layer.
func (b *Builder) Veil(p VeilParams) *Builder { return b.Feature(p.layer()) }

// Atmosphere appends an atmospheric gradient feature layer.
func (b *Builder) Atmosphere(p AtmosphereParams) *Builder { return b.Feature(p.layer()) }

// Plane appends a ground or ceiling plane feature layer.
func (b *Builder) Plane(p PlaneParams) *Builder { return b.Feature(p.layer()) }

// Celestial appends a sun or moon disk feature layer.
func (b *Builder) Celestial(p CelestialParams) *Builder { return b.Feature(p.layer()) }

// Portal appends a glowing opening feature layer.
func (b *Builder) Portal(p PortalParams) *Builder { return b.Feature(p.layer()) }

// Lobe appends a soft directional lobe feature layer.
func (b *Builder) Lobe(p LobeParams) *Builder { return b.Feature(p.layer()) }

// Band appends a horizontal band feature layer.
func (b *Builder) Band(p BandParams) *Builder { return b.Feature(p.layer()) }
