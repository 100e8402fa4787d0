// Package envfile reads and writes YAML authoring files for EPU
// environments.
//
// A file names up to eight layers. Each layer is either a raw instruction
// pair or a field map:
//
//	name: dusk
//	preset: sunset          # optional base environment
//	time: 0
//	layers:
//	  - slot: 0
//	    opcode: RAMP
//	    color_a: "#5078c8"   # sky
//	    color_b: "#3c3228"   # floor
//	    params: [90, 40, 127, 0]
//	    direction: [0, 1, 0]
//	  - hex: [0x5000000000000000, 0xff00000000007f00]
//
// Layers without a slot fill the slots after the previous layer.
package envfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/epu"
)

// ErrInvalidFile is returned for structurally invalid authoring files.
var ErrInvalidFile = errors.New("envfile: invalid environment file")

// File is the decoded form of an authoring file.
type File struct {
	Name   string      `yaml:"name,omitempty"`
	Preset string      `yaml:"preset,omitempty"`
	Time   float32     `yaml:"time,omitempty"`
	Layers []LayerSpec `yaml:"layers"`
}

// LayerSpec is one layer entry. Hex, when set, wins over the fields.
type LayerSpec struct {
	Slot *int     `yaml:"slot,omitempty"`
	Hex  LayerHex `yaml:"hex,omitempty"`

	Opcode    string    `yaml:"opcode,omitempty"`
	Region    string    `yaml:"region,omitempty"`
	Blend     string    `yaml:"blend,omitempty"`
	Domain    uint8     `yaml:"domain,omitempty"`
	Variant   uint8     `yaml:"variant,omitempty"`
	ColorA    Color     `yaml:"color_a,omitempty"`
	ColorB    Color     `yaml:"color_b,omitempty"`
	Intensity uint8     `yaml:"intensity,omitempty"`
	Params    []int     `yaml:"params,omitempty,flow"`
	Direction []float32 `yaml:"direction,omitempty,flow"`
	Dir16     *uint16   `yaml:"dir16,omitempty"`
	AlphaA    uint8     `yaml:"alpha_a,omitempty"`
	AlphaB    uint8     `yaml:"alpha_b,omitempty"`
}

// LayerHex is a raw instruction pair. It accepts a two-item sequence or a
// single "hi, lo" string; the 0x prefix is optional.
type LayerHex struct {
	Set    bool
	Packed epu.PackedLayer
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *LayerHex) UnmarshalYAML(n *yaml.Node) error {
	var words []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, c := range n.Content {
			words = append(words, c.Value)
		}
	case yaml.ScalarNode:
		words = strings.FieldsFunc(n.Value, func(r rune) bool {
			return r == ',' || r == ' ' || r == '[' || r == ']'
		})
	default:
		return fmt.Errorf("%w: line %d: hex must be a pair", ErrInvalidFile, n.Line)
	}
	if len(words) != 2 {
		return fmt.Errorf("%w: line %d: hex needs 2 words, got %d", ErrInvalidFile, n.Line, len(words))
	}
	for i, w := range words {
		w = strings.TrimPrefix(strings.TrimPrefix(w, "0x"), "0X")
		v, err := strconv.ParseUint(w, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidFile, n.Line, err)
		}
		h.Packed[i] = v
	}
	h.Set = true
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h LayerHex) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.SequenceNode,
		Style: yaml.FlowStyle,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: fmt.Sprintf("0x%016x", h.Packed[0])},
			{Kind: yaml.ScalarNode, Value: fmt.Sprintf("0x%016x", h.Packed[1])},
		},
	}, nil
}

// IsZero lets omitempty skip unset pairs.
func (h LayerHex) IsZero() bool { return !h.Set }

// Color is an RGB24 written as "#rrggbb".
type Color struct {
	Set bool
	RGB epu.RGB24
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	s := strings.TrimPrefix(strings.TrimSpace(n.Value), "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return fmt.Errorf("%w: line %d: color %q is not #rrggbb", ErrInvalidFile, n.Line, n.Value)
	}
	c.RGB = epu.RGB24(v)
	c.Set = true
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Color) MarshalYAML() (any, error) {
	return fmt.Sprintf("#%06x", uint32(c.RGB)), nil
}

// IsZero lets omitempty skip unset colors.
func (c Color) IsZero() bool { return !c.Set }

// Load decodes an authoring file. Unknown keys are errors.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidFile)
		}
		return nil, fmt.Errorf("envfile: decode: %w", err)
	}
	return &f, nil
}

// LoadFile reads and decodes the authoring file at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Environment assembles the file's layers over its base preset.
func (f *File) Environment() (epu.Environment, error) {
	var env epu.Environment
	if f.Preset != "" {
		base, ok := epu.Preset(f.Preset)
		if !ok {
			return env, fmt.Errorf("%w: unknown preset %q", ErrInvalidFile, f.Preset)
		}
		env = base
	}
	if len(f.Layers) > epu.LayerCount {
		return env, fmt.Errorf("%w: %d layers, at most %d", ErrInvalidFile, len(f.Layers), epu.LayerCount)
	}

	var used [epu.LayerCount]bool
	next := 0
	for i := range f.Layers {
		spec := &f.Layers[i]
		slot := next
		if spec.Slot != nil {
			slot = *spec.Slot
		}
		if slot < 0 || slot >= epu.LayerCount {
			return env, fmt.Errorf("%w: layer %d: slot %d out of range", ErrInvalidFile, i, slot)
		}
		if used[slot] {
			return env, fmt.Errorf("%w: layer %d: slot %d used twice", ErrInvalidFile, i, slot)
		}
		used[slot] = true
		next = slot + 1

		packed, err := spec.Pack()
		if err != nil {
			return env, fmt.Errorf("layer %d: %w", i, err)
		}
		env.Layers[slot] = packed
	}
	return env, nil
}

// Pack encodes the layer entry.
func (s *LayerSpec) Pack() (epu.PackedLayer, error) {
	if s.Hex.Set {
		return s.Hex.Packed, nil
	}
	var l epu.Layer
	var err error
	if l.Opcode, err = epu.ParseOpcode(s.Opcode); err != nil {
		return epu.PackedLayer{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	l.Region = epu.RegionAll
	if s.Region != "" {
		if l.Region, err = epu.ParseRegion(s.Region); err != nil {
			return epu.PackedLayer{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	}
	if s.Blend != "" {
		if l.Blend, err = epu.ParseBlend(s.Blend); err != nil {
			return epu.PackedLayer{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	}
	if len(s.Params) > 4 {
		return epu.PackedLayer{}, fmt.Errorf("%w: %d params, at most 4", ErrInvalidFile, len(s.Params))
	}
	var p [4]uint8
	for i, v := range s.Params {
		if v < 0 || v > 255 {
			return epu.PackedLayer{}, fmt.Errorf("%w: param %d = %d, want 0..255", ErrInvalidFile, i, v)
		}
		p[i] = uint8(v)
	}

	l.Domain = s.Domain
	l.Variant = s.Variant
	l.ColorA = s.ColorA.RGB
	l.ColorB = s.ColorB.RGB
	l.Intensity = s.Intensity
	l.ParamA, l.ParamB, l.ParamC, l.ParamD = p[0], p[1], p[2], p[3]
	l.AlphaA = s.AlphaA
	l.AlphaB = s.AlphaB

	switch {
	case s.Dir16 != nil:
		l.Direction = *s.Dir16
	case len(s.Direction) == 3:
		l.SetDir(epu.Vec3{X: s.Direction[0], Y: s.Direction[1], Z: s.Direction[2]})
	case len(s.Direction) != 0:
		return epu.PackedLayer{}, fmt.Errorf("%w: direction needs 3 components", ErrInvalidFile)
	default:
		l.SetDir(epu.AxisY)
	}
	return l.Pack(), nil
}

// FromEnvironment returns the field-map form of env. All-zero layers are
// left out; reserved opcodes keep their raw pair.
func FromEnvironment(name string, env *epu.Environment) *File {
	f := &File{Name: name}
	for i, p := range env.Layers {
		if p == (epu.PackedLayer{}) {
			continue
		}
		l := p.Unpack()
		slot := i
		spec := LayerSpec{Slot: &slot}
		if l.Opcode.IsReserved() {
			spec.Hex = LayerHex{Set: true, Packed: p}
		} else {
			dir := l.Direction
			spec.Opcode = l.Opcode.String()
			spec.Region = l.Region.String()
			spec.Blend = l.Blend.String()
			spec.Domain = l.Domain
			spec.Variant = l.Variant
			spec.ColorA = Color{Set: true, RGB: l.ColorA}
			spec.ColorB = Color{Set: true, RGB: l.ColorB}
			spec.Intensity = l.Intensity
			spec.Params = []int{int(l.ParamA), int(l.ParamB), int(l.ParamC), int(l.ParamD)}
			spec.Dir16 = &dir
			spec.AlphaA = l.AlphaA
			spec.AlphaB = l.AlphaB
		}
		f.Layers = append(f.Layers, spec)
	}
	return f
}

// Marshal encodes f as YAML.
func Marshal(f *File) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("envfile: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("envfile: encode: %w", err)
	}
	return []byte(sb.String()), nil
}
