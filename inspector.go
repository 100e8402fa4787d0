package epu

import (
	"fmt"
	"math/bits"
	"strings"
)

// Isolation selects which layers an inspector renders: one soloed layer,
// or every layer not muted. Hidden layers are forced to NOP.
type Isolation struct {
	solo int // layer index + 1; 0 means none
	Mute uint8
}

// Muted reports whether layer i is muted.
func (s *Isolation) Muted(i int) bool {
	return i >= 0 && i < LayerCount && s.Mute&(1<<i) != 0
}

// SetMuted mutes or unmutes layer i.
func (s *Isolation) SetMuted(i int, muted bool) {
	if i < 0 || i >= LayerCount {
		return
	}
	if muted {
		s.Mute |= 1 << i
	} else {
		s.Mute &^= 1 << i
	}
}

// ToggleMute flips the mute state of layer i.
func (s *Isolation) ToggleMute(i int) {
	if i >= 0 && i < LayerCount {
		s.Mute ^= 1 << i
	}
}

// Solo returns the soloed layer and whether solo is active.
func (s *Isolation) Solo() (int, bool) { return s.solo - 1, s.solo > 0 }

// ToggleSolo solos layer i, or clears solo if i is already soloed.
func (s *Isolation) ToggleSolo(i int) {
	if i < 0 || i >= LayerCount {
		return
	}
	if s.solo == i+1 {
		s.solo = 0
	} else {
		s.solo = i + 1
	}
}

// ShowAll clears solo. Mutes are kept.
func (s *Isolation) ShowAll() { s.solo = 0 }

// Visible reports whether layer i is rendered.
func (s *Isolation) Visible(i int) bool {
	if i < 0 || i >= LayerCount {
		return false
	}
	if s.solo > 0 {
		return i == s.solo-1
	}
	return !s.Muted(i)
}

// Mask returns a bit per visible layer.
func (s *Isolation) Mask() uint8 {
	var m uint8
	for i := range LayerCount {
		if s.Visible(i) {
			m |= 1 << i
		}
	}
	return m
}

// VisibleCount returns the number of rendered layers.
func (s *Isolation) VisibleCount() int { return bits.OnesCount8(s.Mask()) }

// Apply returns env with every hidden layer replaced by NOP.
func (s *Isolation) Apply(env Environment) Environment {
	for i := range env.Layers {
		if !s.Visible(i) {
			env.Layers[i] = PackedLayer{}
		}
	}
	return env
}

// LayerCategory classifies a layer for display.
type LayerCategory uint8

const (
	CategoryDisabled LayerCategory = iota
	CategoryBounds
	CategoryFeature
)

// Icon returns a one-letter status marker.
func (c LayerCategory) Icon() string {
	switch c {
	case CategoryBounds:
		return "B"
	case CategoryFeature:
		return "R"
	}
	return "-"
}

// CategoryOf returns the category of opcode o.
func CategoryOf(o Opcode) LayerCategory {
	switch {
	case o.IsBounds():
		return CategoryBounds
	case o.IsFeature():
		return CategoryFeature
	}
	return CategoryDisabled
}

var variantNames = map[Opcode][]string{
	OpSector:     {"wedge", "mirrored", "inverted"},
	OpSilhouette: {"mountains", "city", "forest", "dunes"},
	OpSplit:      {"half", "wedge", "corner", "bands", "cross", "prism"},
	OpCell:       {"voronoi", "inverted", "cubic"},
	OpPatches:    {"sky", "inverted", "islands"},
	OpAperture:   {"circle", "rect", "rounded", "arch", "bars", "multi", "irregular"},
	OpTrace:      {"cracks", "lightning", "circuit", "veins"},
	OpVeil:       {"curtain", "ribbon", "sheets"},
	OpAtmosphere: {"rayleigh", "mie", "fog"},
	OpPlane:      {"tiles", "grid", "noise", "water", "sand"},
	OpCelestial:  {"sun", "moon", "planet", "ringed"},
	OpPortal:     {"vortex", "rift", "ring", "tunnel"},
}

// VariantName returns the name of a variant, or "" when the opcode has no
// named variants or the value is unnamed.
func VariantName(o Opcode, variant uint8) string {
	names := variantNames[o]
	if int(variant) < len(names) {
		return names[variant]
	}
	return ""
}

// describeColor names a color coarsely for summaries.
func describeColor(c RGB24) string {
	v := c.Vec3()
	hi := max(v.X, v.Y, v.Z)
	lo := min(v.X, v.Y, v.Z)
	switch {
	case hi < 0.1:
		return "black"
	case hi-lo < 0.1:
		if hi > 0.85 {
			return "white"
		}
		return "gray"
	}
	h, _, _ := rgbToHSV(v)
	names := [...]string{"red", "orange", "yellow", "green", "cyan", "blue", "purple", "magenta"}
	bounds := [...]float32{0.04, 0.1, 0.18, 0.45, 0.54, 0.7, 0.8, 0.95}
	for i, b := range bounds {
		if h < b {
			return names[i]
		}
	}
	return "red"
}

var layerVerbs = map[Opcode]string{
	OpRamp:       "Vertical gradient",
	OpSector:     "Sector bounds",
	OpSilhouette: "Horizon silhouette",
	OpSplit:      "Split pattern",
	OpCell:       "Cell pattern",
	OpPatches:    "Patch pattern",
	OpAperture:   "Aperture shape",
	OpDecal:      "Adds %s decal",
	OpGrid:       "Adds %s grid",
	OpScatter:    "Scatters %s points",
	OpFlow:       "Adds %s flow",
	OpTrace:      "Draws %s traces",
	OpVeil:       "Adds %s veil",
	OpAtmosphere: "Applies %s atmosphere",
	OpPlane:      "Adds %s plane texture",
	OpCelestial:  "Renders %s celestial body",
	OpPortal:     "Opens %s portal",
	OpLobe:       "Adds %s glow lobe",
	OpBand:       "Adds %s glow band",
}

// DescribeLayer returns a one-line human summary of l.
func DescribeLayer(l Layer) string {
	verb, ok := layerVerbs[l.Opcode]
	if !ok {
		if l.Opcode.IsReserved() {
			return fmt.Sprintf("Reserved opcode %s (no-op)", l.Opcode)
		}
		return "Disabled"
	}
	if strings.Contains(verb, "%s") {
		verb = fmt.Sprintf(verb, describeColor(l.ColorA))
	}
	var b strings.Builder
	b.WriteString(verb)
	if v := VariantName(l.Opcode, l.Variant); v != "" {
		fmt.Fprintf(&b, " (%s)", v)
	}
	target := l.Region.String()
	if l.Opcode.IsBounds() {
		fmt.Fprintf(&b, " toward %s", fmtDir(l.Dir()))
	} else {
		fmt.Fprintf(&b, " on %s", target)
	}
	fmt.Fprintf(&b, ", blend %s", l.Blend)
	return b.String()
}

func fmtDir(v Vec3) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// DescribeEnvironment summarizes every layer, one per line, prefixed with
// its slot and category icon.
func DescribeEnvironment(env *Environment) string {
	var b strings.Builder
	for i, l := range env.Decode() {
		fmt.Fprintf(&b, "%d %s %s\n", i, CategoryOf(l.Opcode).Icon(), DescribeLayer(l))
	}
	return b.String()
}

// Editor is a live inspector session on one runtime slot. It keeps the
// authored environment, applies field edits through Unpack and Pack, and
// publishes the isolated view as a whole-environment replacement.
type Editor struct {
	rt        *Runtime
	id        uint32
	authored  Environment
	Isolation Isolation
}

// NewEditor opens an editor on environment id of rt.
func NewEditor(rt *Runtime, id uint32) (*Editor, error) {
	env, err := rt.Environment(id)
	if err != nil {
		return nil, err
	}
	return &Editor{rt: rt, id: id, authored: env}, nil
}

// Authored returns the edited environment without isolation applied.
func (e *Editor) Authored() Environment { return e.authored }

// Layer returns the decoded layer i.
func (e *Editor) Layer(i int) Layer { return e.authored.Layer(i) }

// EditLayer decodes layer i, applies fn and stores the repacked layer, then
// publishes.
func (e *Editor) EditLayer(i int, fn func(*Layer)) error {
	if i < 0 || i >= LayerCount {
		return fmt.Errorf("epu: layer index %d out of range", i)
	}
	l := e.authored.Layer(i)
	fn(&l)
	e.authored = e.authored.WithLayer(i, l)
	return e.Publish()
}

// Load replaces the authored environment, for example from a parsed hex
// export, and publishes it.
func (e *Editor) Load(env Environment) error {
	e.authored = env
	return e.Publish()
}

// Publish writes the isolated view of the authored environment to the
// runtime slot.
func (e *Editor) Publish() error {
	return e.rt.SetEnvironment(e.id, e.Isolation.Apply(e.authored))
}

// Hex returns the authored environment in hex export form.
func (e *Editor) Hex() string { return e.authored.Hex() }
