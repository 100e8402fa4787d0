package epu

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// LayerCount is the number of layers in an environment.
const LayerCount = 8

// EnvironmentSize is the wire size of one environment in bytes.
const EnvironmentSize = LayerCount * 16

// Environment is an ordered stack of eight packed layers. The zero value is
// the empty environment (all NOP), which evaluates to black.
//
// Environment is a value type; it is replaced wholesale and never edited in
// place while a build reads it.
type Environment struct {
	Layers [LayerCount]PackedLayer
}

// NewEnvironment packs up to eight layers. Missing layers are NOP and
// extra layers are ignored.
func NewEnvironment(layers ...Layer) Environment {
	var e Environment
	for i := 0; i < len(layers) && i < LayerCount; i++ {
		e.Layers[i] = layers[i].Pack()
	}
	return e
}

// Decode unpacks all eight layers.
func (e *Environment) Decode() [LayerCount]Layer {
	var out [LayerCount]Layer
	for i, p := range e.Layers {
		out[i] = p.Unpack()
	}
	return out
}

// Layer returns the decoded layer at index i. i must be in [0, LayerCount).
func (e *Environment) Layer(i int) Layer { return e.Layers[i].Unpack() }

// WithLayer returns a copy of e with layer i replaced.
func (e Environment) WithLayer(i int, l Layer) Environment {
	if i >= 0 && i < LayerCount {
		e.Layers[i] = l.Pack()
	}
	return e
}

// IsEmpty reports whether every layer is NOP.
func (e *Environment) IsEmpty() bool {
	for _, p := range e.Layers {
		if p.Opcode() != OpNop {
			return false
		}
	}
	return true
}

// StateHash returns an FNV-1a hash of the wire bytes. Two environments with
// the same hash are treated as identical by the build cache.
func (e *Environment) StateHash() uint64 {
	h := fnv.New64a()
	var buf [EnvironmentSize]byte
	e.PutBytes(buf[:])
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

// IsTimeDependent reports whether any layer animates with time.
// Static environments only need rebuilding when their instructions change.
func (e *Environment) IsTimeDependent() bool {
	for _, p := range e.Layers {
		l := p.Unpack()
		if l.isAnimated() {
			return true
		}
	}
	return false
}

// isAnimated reports whether the layer reads the time input with a
// non-zero rate.
func (l *Layer) isAnimated() bool {
	switch l.Opcode {
	case OpSilhouette:
		return loNibble(l.ParamC) > 0 && l.ParamD > 0
	case OpDecal:
		return l.Variant > 0
	case OpGrid, OpTrace, OpVeil, OpPortal:
		return loNibble(l.ParamC) > 0
	case OpScatter:
		return l.ParamC != 0
	case OpFlow, OpPlane:
		return l.ParamD > 0
	case OpLobe:
		return l.ParamC&3 != 0 && l.Variant > 0
	case OpBand:
		return l.Variant > 0
	}
	return false
}

// PutBytes writes the 128-byte wire form into dst: per layer the high word
// then the low word, little-endian. dst must hold EnvironmentSize bytes.
func (e *Environment) PutBytes(dst []byte) {
	_ = dst[EnvironmentSize-1]
	for i, p := range e.Layers {
		binary.LittleEndian.PutUint64(dst[i*16:], p[0])
		binary.LittleEndian.PutUint64(dst[i*16+8:], p[1])
	}
}

// Bytes returns the 128-byte wire form.
func (e *Environment) Bytes() []byte {
	b := make([]byte, EnvironmentSize)
	e.PutBytes(b)
	return b
}

// EnvironmentFromBytes decodes the wire form produced by Bytes.
func EnvironmentFromBytes(b []byte) (Environment, error) {
	var e Environment
	if len(b) != EnvironmentSize {
		return e, fmt.Errorf("epu: environment must be %d bytes, got %d", EnvironmentSize, len(b))
	}
	for i := range e.Layers {
		e.Layers[i][0] = binary.LittleEndian.Uint64(b[i*16:])
		e.Layers[i][1] = binary.LittleEndian.Uint64(b[i*16+8:])
	}
	return e, nil
}

// Hex returns the raw 128-bit pairs, one layer per line, in a form that can
// be pasted into authored content:
//
//	[0x0c00000000000000, 0x0000000000000000],
func (e *Environment) Hex() string {
	var sb strings.Builder
	for _, p := range e.Layers {
		fmt.Fprintf(&sb, "[0x%016x, 0x%016x],\n", p[0], p[1])
	}
	return sb.String()
}

// ParseEnvironmentHex parses the output of Hex. Brackets, commas and
// whitespace are separators and the 0x prefix is optional. Exactly sixteen
// words are required.
func ParseEnvironmentHex(s string) (Environment, error) {
	var e Environment
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '[', ']', ',', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	if len(fields) != LayerCount*2 {
		return e, fmt.Errorf("%w: want %d words, got %d", ErrInvalidHex, LayerCount*2, len(fields))
	}
	for i, f := range fields {
		f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
		v, err := strconv.ParseUint(f, 16, 64)
		if err != nil {
			return e, fmt.Errorf("%w: word %d: %v", ErrInvalidHex, i, err)
		}
		e.Layers[i/2][i%2] = v
	}
	return e, nil
}

// MarshalText implements encoding.TextMarshaler using the Hex form.
func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Environment) UnmarshalText(b []byte) error {
	v, err := ParseEnvironmentHex(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
