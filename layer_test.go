package epu

import (
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
)

func randomLayer(r *rand.Rand) Layer {
	return Layer{
		Opcode:    Opcode(r.IntN(32)),
		Region:    Region(r.IntN(8)),
		Blend:     Blend(r.IntN(8)),
		Domain:    uint8(r.IntN(4)),
		Variant:   uint8(r.IntN(8)),
		ColorA:    RGB24(r.Uint32() & 0xFFFFFF),
		ColorB:    RGB24(r.Uint32() & 0xFFFFFF),
		Intensity: uint8(r.Uint32()),
		ParamA:    uint8(r.Uint32()),
		ParamB:    uint8(r.Uint32()),
		ParamC:    uint8(r.Uint32()),
		ParamD:    uint8(r.Uint32()),
		Direction: uint16(r.Uint32()),
		AlphaA:    uint8(r.IntN(16)),
		AlphaB:    uint8(r.IntN(16)),
	}
}

func TestLayerPackUnpackRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 10000 {
		l := randomLayer(r)
		if got := l.Pack().Unpack(); got != l {
			t.Fatalf("Unpack(Pack(%+v)) = %+v", l, got)
		}
	}
}

func TestPackedLayerEveryBitIsAField(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for range 10000 {
		p := PackedLayer{r.Uint64(), r.Uint64()}
		if got := p.Unpack().Pack(); got != p {
			t.Fatalf("Pack(Unpack(%#x)) = %#x", p, got)
		}
	}
}

func TestPackMasksOutOfRangeFields(t *testing.T) {
	l := Layer{
		Opcode: 0xFF, Region: 0xFF, Blend: 0xFF,
		Domain: 0xFF, Variant: 0xFF,
		ColorA: 0xFFFFFFFF, AlphaA: 0xFF, AlphaB: 0xFF,
	}
	got := l.Pack().Unpack()
	want := Layer{
		Opcode: 0x1F, Region: 7, Blend: 7, Domain: 3, Variant: 7,
		ColorA: 0xFFFFFF, AlphaA: 15, AlphaB: 15,
	}
	if got != want {
		t.Errorf("masked layer = %+v, want %+v", got, want)
	}
}

func TestPackedLayerOpcode(t *testing.T) {
	for op := range OpMax + 1 {
		p := Layer{Opcode: op, ParamA: 0xAB}.Pack()
		if got := p.Opcode(); got != op {
			t.Errorf("Opcode() = %v, want %v", got, op)
		}
	}
}

func TestOpcodeClasses(t *testing.T) {
	tests := []struct {
		op       Opcode
		bounds   bool
		feature  bool
		reserved bool
	}{
		{OpNop, false, false, false},
		{OpRamp, true, false, false},
		{OpAperture, true, false, false},
		{OpDecal, false, true, false},
		{OpBand, false, true, false},
		{0x14, false, false, true},
		{OpMax, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			if got := tt.op.IsBounds(); got != tt.bounds {
				t.Errorf("IsBounds() = %v, want %v", got, tt.bounds)
			}
			if got := tt.op.IsFeature(); got != tt.feature {
				t.Errorf("IsFeature() = %v, want %v", got, tt.feature)
			}
			if got := tt.op.IsReserved(); got != tt.reserved {
				t.Errorf("IsReserved() = %v, want %v", got, tt.reserved)
			}
		})
	}
}

func TestOpcodeStringAndParse(t *testing.T) {
	for op := range OpMax + 1 {
		got, err := ParseOpcode(op.String())
		if op.IsReserved() {
			// RESERVED_xx is display only; numeric forms parse.
			got, err = ParseOpcode("0x" + op.String()[len("RESERVED_"):])
		}
		if err != nil || got != op {
			t.Errorf("ParseOpcode(%q) = %v, %v; want %v", op.String(), got, err, op)
		}
	}
	for in, want := range map[string]Opcode{"lobe": OpLobe, "Band": OpBand, " ramp ": OpRamp, "10": OpScatter} {
		if got, err := ParseOpcode(in); err != nil || got != want {
			t.Errorf("ParseOpcode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "SPARKLE", "0x20", "300"} {
		if _, err := ParseOpcode(in); err == nil {
			t.Errorf("ParseOpcode(%q) succeeded, want error", in)
		}
	}
}

func TestParseBlend(t *testing.T) {
	for b := range Blend(8) {
		if got, err := ParseBlend(b.String()); err != nil || got != b {
			t.Errorf("ParseBlend(%q) = %v, %v", b.String(), got, err)
		}
	}
	if _, err := ParseBlend("dodge"); err == nil {
		t.Error("ParseBlend(dodge) succeeded, want error")
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in   string
		want Region
	}{
		{"ALL", RegionAll},
		{"none", RegionNone},
		{"SKY", RegionSky},
		{"sky|walls", RegionSky | RegionWalls},
		{"WALL+FLOOR", RegionWalls | RegionFloor},
		{RegionSky.String(), RegionSky},
		{(RegionSky | RegionFloor).String(), RegionSky | RegionFloor},
	}
	for _, tt := range tests {
		got, err := ParseRegion(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseRegion(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseRegion("sky|ceiling"); err == nil {
		t.Error("ParseRegion(sky|ceiling) succeeded, want error")
	}
}

func TestRGB24(t *testing.T) {
	c := RGB(255, 128, 0)
	if r, g, b := c.Channels(); r != 255 || g != 128 || b != 0 {
		t.Errorf("Channels() = %d %d %d", r, g, b)
	}
	v := c.Vec3()
	if v.X != 1 || v.Z != 0 || math32.Abs(v.Y-128.0/255) > 1e-7 {
		t.Errorf("Vec3() = %v", v)
	}
}

func TestRampThresholds(t *testing.T) {
	ceil, floor := RampThresholds(PackThresholds(15, 0))
	if ceil != 1 || floor != -1 {
		t.Errorf("RampThresholds(15, 0) = %v, %v; want 1, -1", ceil, floor)
	}
	if q := QuantizeThreshold(0.3); q != 10 {
		t.Errorf("QuantizeThreshold(0.3) = %d, want 10", q)
	}
	if q := QuantizeThreshold(-0.3); q != 5 {
		t.Errorf("QuantizeThreshold(-0.3) = %d, want 5", q)
	}
}
