//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/epu"
)

func compileWGSL(t *testing.T, name, src string) {
	t.Helper()
	if src == "" {
		t.Fatalf("%s shader source is empty", name)
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("failed to compile %s shader: %v", name, err)
	}
	if len(spirv) < 4 {
		t.Fatal("SPIR-V too short")
	}
	magic := uint32(spirv[0]) | uint32(spirv[1])<<8 | uint32(spirv[2])<<16 | uint32(spirv[3])<<24
	if magic != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", magic)
	}
	t.Logf("%s shader compiled to %d bytes of SPIR-V", name, len(spirv))
}

func TestOctBlurShaderCompilation(t *testing.T) {
	compileWGSL(t, "oct_blur", octBlurShaderSource)
}

func TestSH9ProjectShaderCompilation(t *testing.T) {
	compileWGSL(t, "sh9_project", sh9ProjectShaderSource)
}

func testSettings() epu.Settings {
	s := epu.DefaultSettings()
	s.MapSize = 16
	s.MinMipSize = 4
	s.IrradianceSize = 8
	return s
}

func TestPyramidLayout(t *testing.T) {
	s := testSettings()
	l := newPyramidLayout(&s)

	if l.levels() != 3 {
		t.Fatalf("levels = %d, want 3", l.levels())
	}
	wantOffsets := []int{0, 256, 320}
	for i, want := range wantOffsets {
		if l.offsets[i] != want {
			t.Errorf("offsets[%d] = %d, want %d", i, l.offsets[i], want)
		}
	}
	if l.envTexels != 336 {
		t.Errorf("envTexels = %d, want 336", l.envTexels)
	}
	if l.irrLevel != 1 {
		t.Errorf("irrLevel = %d, want 1", l.irrLevel)
	}
	if got := l.texelBufferSize(2); got != 2*336*16 {
		t.Errorf("texelBufferSize(2) = %d, want %d", got, 2*336*16)
	}
	if got := termBufferSize(2); got != 2*1024*9*16 {
		t.Errorf("termBufferSize(2) = %d", got)
	}

	bp := l.blurPass(1, 2)
	want := blurParams{SrcOffset: 336 + 256, SrcSize: 8, DstOffset: 336 + 320, DstSize: 4}
	if bp.SrcOffset != want.SrcOffset || bp.SrcSize != want.SrcSize ||
		bp.DstOffset != want.DstOffset || bp.DstSize != want.DstSize {
		t.Errorf("blurPass(1, 2) = %+v, want offsets %+v", bp, want)
	}
	if math32.Abs(bp.SinA-1) > 1e-6 || math32.Abs(bp.CosA) > 1e-6 {
		t.Errorf("4-texel level angle: sin=%v cos=%v, want 1 and 0", bp.SinA, bp.CosA)
	}

	sp := l.shPass(1)
	if sp.SrcOffset != 336+256 || sp.SrcSize != 8 || sp.OutOffset != 1024*9 || sp.SampleCount != 1024 {
		t.Errorf("shPass(1) = %+v", sp)
	}
}

func TestParamsBytes(t *testing.T) {
	bp := blurParams{SrcOffset: 1, SrcSize: 2, DstOffset: 3, DstSize: 4, SinA: 0.5, CosA: -0.25}
	b := bp.bytes()
	if len(b) != blurParamsSize {
		t.Fatalf("len = %d, want %d", len(b), blurParamsSize)
	}
	f := bytesToFloat32(b[16:24])
	if b[0] != 1 || b[4] != 2 || b[8] != 3 || b[12] != 4 || f[0] != 0.5 || f[1] != -0.25 {
		t.Errorf("blur params not serialized correctly: % x", b)
	}

	sp := shParams{SrcOffset: 7, SrcSize: 8, OutOffset: 9, SampleCount: 1024}
	b = sp.bytes()
	if len(b) != shParamsSize || b[0] != 7 || b[4] != 8 || b[8] != 9 || b[12] != 0 || b[13] != 4 {
		t.Errorf("sh params not serialized correctly: % x", b)
	}
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	in := []float32{0, 1, -2.5, 1e-7, math.MaxFloat32}
	out := bytesToFloat32(float32Bytes(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if float32Bytes(nil) != nil {
		t.Error("float32Bytes(nil) should be nil")
	}
}

func TestPackUnpack(t *testing.T) {
	s := testSettings()
	l := newPyramidLayout(&s)
	texels := make([]float32, 2*l.envTexels*4)

	m := epu.NewRadianceMap(16)
	m.Set(3, 5, epu.Vec3{X: 1, Y: 2, Z: 3})
	packBase(texels, l.base(1), m)

	levels := l.unpackEnv(texels, 1)
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(levels))
	}
	if got := levels[0].At(3, 5); got != (epu.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("At(3, 5) = %v", got)
	}
	// Copies, not views.
	texels[(l.base(1)+5*16+3)*4] = 9
	if levels[0].At(3, 5).X != 1 {
		t.Error("unpacked level aliases the texel slice")
	}
	if levels[2].Size != 4 {
		t.Errorf("level 2 size = %d, want 4", levels[2].Size)
	}
}

// projectOnCPU mirrors sh9_project.wgsl for environment j.
func projectOnCPU(terms []float32, j int, src *epu.RadianceMap) {
	const n = epu.SHSampleCount
	w := float32(4 * math.Pi / n)
	for i := range n {
		z := 1 - (2*float64(i)+1)/n
		r := math.Sqrt(max(0, 1-z*z))
		_, frac := math.Modf(float64(i) * 0.38196601125)
		phi := 2 * math.Pi * frac
		d := epu.Vec3{X: float32(r * math.Cos(phi)), Y: float32(r * math.Sin(phi)), Z: float32(z)}
		c := src.Sample(d).Mul(w)
		basis := [9]float32{
			0.282095,
			0.488603 * d.Y,
			0.488603 * d.Z,
			0.488603 * d.X,
			1.092548 * d.X * d.Y,
			1.092548 * d.Y * d.Z,
			0.315392 * (3*d.Z*d.Z - 1),
			1.092548 * d.X * d.Z,
			0.546274 * (d.X*d.X - d.Y*d.Y),
		}
		o := (j*n + i) * 9 * 4
		for k, b := range basis {
			terms[o+k*4] = c.X * b
			terms[o+k*4+1] = c.Y * b
			terms[o+k*4+2] = c.Z * b
		}
	}
}

func TestReduceSHMatchesExtract(t *testing.T) {
	env, ok := epu.Preset("daylight")
	if !ok {
		t.Fatal("missing daylight preset")
	}
	s := testSettings()
	maps := epu.BuildEnvMaps(&env, 0, &s, nil)
	src := maps.Levels[maps.IrradianceLevel]

	terms := make([]float32, 2*epu.SHSampleCount*9*4)
	projectOnCPU(terms, 1, src)
	got := reduceSH(terms, 1)

	for k := range got {
		d := got[k].Sub(maps.SH[k])
		if max(math32.Abs(d.X), math32.Abs(d.Y), math32.Abs(d.Z)) > 1e-3 {
			t.Errorf("SH[%d] = %v, want %v", k, got[k], maps.SH[k])
		}
	}
}

func TestAcceleratorNotReadyFallsBack(t *testing.T) {
	a := &Accelerator{}
	if a.Name() != "wgpu" {
		t.Errorf("Name() = %q, want wgpu", a.Name())
	}
	if a.Ready() {
		t.Fatal("zero Accelerator should not be ready")
	}
	_, err := a.Build(context.Background(), &epu.BuildBatch{Settings: testSettings()})
	if !errors.Is(err, epu.ErrFallbackToCPU) {
		t.Errorf("Build() err = %v, want ErrFallbackToCPU", err)
	}
	a.Close()
	a.Close()
}

func TestSetDeviceProviderRejectsUnknown(t *testing.T) {
	a := &Accelerator{}
	if err := a.SetDeviceProvider("not a provider"); err == nil {
		t.Error("expected error for non-DeviceProvider")
	}
	if a.Ready() {
		t.Error("failed SetDeviceProvider should leave the accelerator not ready")
	}
}

func TestCheckAdapter(t *testing.T) {
	tests := []struct {
		name    string
		info    wgpu.AdapterInfo
		wantErr bool
	}{
		{"software renderer", wgpu.AdapterInfo{Name: "Software Renderer", Vendor: "GoGPU", DeviceType: gputypes.DeviceTypeCPU, Backend: gputypes.BackendEmpty}, true},
		{"llvmpipe", wgpu.AdapterInfo{Name: "llvmpipe", DeviceType: gputypes.DeviceTypeCPU, Backend: gputypes.BackendVulkan}, true},
		{"no backend", wgpu.AdapterInfo{Name: "ghost", DeviceType: gputypes.DeviceTypeDiscreteGPU, Backend: gputypes.BackendEmpty}, true},
		{"discrete vulkan", wgpu.AdapterInfo{Name: "dGPU", DeviceType: gputypes.DeviceTypeDiscreteGPU, Backend: gputypes.BackendVulkan}, false},
		{"integrated metal", wgpu.AdapterInfo{Name: "iGPU", DeviceType: gputypes.DeviceTypeIntegratedGPU, Backend: gputypes.BackendMetal}, false},
		{"virtual dx12", wgpu.AdapterInfo{Name: "vGPU", DeviceType: gputypes.DeviceTypeVirtualGPU, Backend: gputypes.BackendDX12}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAdapter(tt.info)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkAdapter() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errSoftwareAdapter) {
				t.Errorf("checkAdapter() = %v, want errSoftwareAdapter", err)
			}
		})
	}
}

// softwareProvider is a DeviceProvider backed by a software renderer.
type softwareProvider struct{}

func (softwareProvider) Device() gpucontext.Device             { return nil }
func (softwareProvider) Queue() gpucontext.Queue               { return nil }
func (softwareProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (softwareProvider) Adapter() gpucontext.Adapter           { return nil }
func (softwareProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "Software Renderer", Type: gpucontext.AdapterTypeSoftware}
}

func TestSoftwareProviderFallsBackToCPU(t *testing.T) {
	a := &Accelerator{}
	err := a.SetDeviceProvider(softwareProvider{})
	if !errors.Is(err, errSoftwareAdapter) {
		t.Fatalf("SetDeviceProvider() = %v, want errSoftwareAdapter", err)
	}
	if a.Ready() {
		t.Fatal("accelerator is ready on a software adapter")
	}
	_, err = a.Build(context.Background(), &epu.BuildBatch{Settings: testSettings()})
	if !errors.Is(err, epu.ErrFallbackToCPU) {
		t.Errorf("Build() err = %v, want ErrFallbackToCPU", err)
	}
}

func TestAcceleratorMatchesCPU(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping GPU test in short mode")
	}
	a := &Accelerator{}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	defer a.Close()
	if !a.Ready() {
		t.Skip("no hardware GPU adapter available")
	}
	if err := checkAdapter(a.adapter.Info()); err != nil {
		t.Fatalf("accelerator ready on %v", err)
	}

	s := epu.DefaultSettings()
	s.MapSize = 32
	s.MinMipSize = 4
	s.IrradianceSize = 8
	var batch epu.BuildBatch
	batch.Settings = s
	for i, name := range []string{"daylight", "night"} {
		env, ok := epu.Preset(name)
		if !ok {
			t.Fatalf("missing %s preset", name)
		}
		batch.Jobs = append(batch.Jobs, epu.BuildJob{ID: uint32(i), Env: env})
	}

	out, err := a.Build(context.Background(), &batch)
	if errors.Is(err, epu.ErrFallbackToCPU) {
		t.Skipf("accelerator declined batch: %v", err)
	}
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if len(out) != len(batch.Jobs) {
		t.Fatalf("got %d outputs, want %d", len(out), len(batch.Jobs))
	}

	for j, job := range batch.Jobs {
		want := epu.BuildEnvMaps(&job.Env, 0, &s, nil)
		got := out[j]
		if len(got.Levels) != len(want.Levels) {
			t.Fatalf("env %d: %d levels, want %d", j, len(got.Levels), len(want.Levels))
		}
		for i := range want.Levels {
			if d := maxDiff(got.Levels[i], want.Levels[i]); d > 1e-2 {
				t.Errorf("env %d level %d: max diff %v", j, i, d)
			}
		}
		for k := range want.SH {
			d := got.SH[k].Sub(want.SH[k])
			if max(math32.Abs(d.X), math32.Abs(d.Y), math32.Abs(d.Z)) > 1e-2 {
				t.Errorf("env %d SH[%d] = %v, want %v", j, k, got.SH[k], want.SH[k])
			}
		}
	}
}

func maxDiff(a, b *epu.RadianceMap) float32 {
	var d float32
	for i := range a.Pix {
		d = max(d, math32.Abs(a.Pix[i]-b.Pix[i]))
	}
	return d
}
