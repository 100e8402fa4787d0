// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/epu"
	"github.com/gogpu/epu/internal/parallel"
)

// readbackTimeout bounds the wait for staging buffers to map.
const readbackTimeout = 5 * time.Second

// errSoftwareAdapter is returned for adapters that emulate the GPU on the
// CPU; batches then build on the CPU path.
var errSoftwareAdapter = errors.New("epu/gpu: software adapter")

// checkAdapter accepts hardware adapters with a real graphics backend.
func checkAdapter(info wgpu.AdapterInfo) error {
	if info.DeviceType == gputypes.DeviceTypeCPU || info.Backend == gputypes.BackendEmpty {
		return fmt.Errorf("%w %q (%s, backend %s)", errSoftwareAdapter, info.Name, info.DeviceType, info.Backend)
	}
	return nil
}

// computePipeline bundles a compute pipeline with the objects it owns.
type computePipeline struct {
	module   *wgpu.ShaderModule
	bgLayout *wgpu.BindGroupLayout
	layout   *wgpu.PipelineLayout
	pipeline *wgpu.ComputePipeline
}

func (p *computePipeline) release() {
	if p == nil {
		return
	}
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.bgLayout != nil {
		p.bgLayout.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

// Accelerator runs the blur pyramid and SH9 projection stages as WGSL
// compute passes. The radiance stage stays on a CPU worker pool: it is
// branchy per-layer evaluation and is uploaded once per batch.
//
// The zero value is ready for registration with epu.RegisterAccelerator.
type Accelerator struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   gputypes.Limits

	blur *computePipeline
	sh   *computePipeline

	pool *parallel.WorkerPool

	gpuReady       bool
	externalDevice bool
}

var (
	_ epu.RadianceAccelerator = (*Accelerator)(nil)
	_ epu.DeviceProviderAware = (*Accelerator)(nil)
)

// Name implements epu.RadianceAccelerator.
func (a *Accelerator) Name() string { return "wgpu" }

// Init implements epu.RadianceAccelerator. A missing adapter is not an
// error: the accelerator stays registered and declines every batch.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pool == nil {
		a.pool = parallel.NewWorkerPool(0)
	}
	if err := a.initGPU(); err != nil {
		slogger().Warn("epu/gpu: GPU init failed, using CPU fallback", "err", err)
	}
	return nil
}

// SetLogger implements the logger propagation hook of epu.SetLogger.
func (a *Accelerator) SetLogger(l *slog.Logger) { setLogger(l) }

// Ready reports whether a device and both pipelines are available.
func (a *Accelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// Close implements epu.RadianceAccelerator. A shared device is left to its
// provider.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyPipelines()
	a.releaseDevice()
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

// SetDeviceProvider switches the accelerator to a device owned by a
// gpucontext.DeviceProvider whose Device is a *wgpu.Device.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	dp, ok := provider.(gpucontext.DeviceProvider)
	if !ok {
		return fmt.Errorf("epu/gpu: provider %T is not a gpucontext.DeviceProvider", provider)
	}
	if info := dp.AdapterInfo(); info.Type == gpucontext.AdapterTypeSoftware {
		return fmt.Errorf("%w %q", errSoftwareAdapter, info.Name)
	}
	device, ok := dp.Device().(*wgpu.Device)
	if !ok || device == nil {
		return fmt.Errorf("epu/gpu: provider device %T is not a *wgpu.Device", dp.Device())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	a.releaseDevice()

	a.device = device
	a.queue = device.Queue()
	a.limits = device.Limits()
	a.externalDevice = true

	if err := a.createPipelines(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("epu/gpu: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	slogger().Info("epu/gpu: switched to shared GPU device")
	return nil
}

func (a *Accelerator) initGPU() error {
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return fmt.Errorf("request adapter: %w", err)
	}
	info := adapter.Info()
	if err := checkAdapter(info); err != nil {
		adapter.Release()
		instance.Release()
		return err
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return fmt.Errorf("request device: %w", err)
	}

	a.instance = instance
	a.adapter = adapter
	a.device = device
	a.queue = device.Queue()
	a.limits = device.Limits()

	if err := a.createPipelines(); err != nil {
		a.releaseDevice()
		return err
	}
	a.gpuReady = true
	slogger().Info("epu/gpu: accelerator ready",
		"adapter", info.Name, "type", info.DeviceType, "backend", info.Backend)
	return nil
}

// releaseDevice drops the device, releasing it only if it is owned.
func (a *Accelerator) releaseDevice() {
	if !a.externalDevice {
		if a.device != nil {
			a.device.Release()
		}
		if a.adapter != nil {
			a.adapter.Release()
		}
		if a.instance != nil {
			a.instance.Release()
		}
	}
	a.device = nil
	a.adapter = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}

func (a *Accelerator) createPipelines() error {
	var err error
	a.blur, err = a.createPipeline("epu_oct_blur", octBlurShaderSource, []gputypes.BufferBindingType{
		gputypes.BufferBindingTypeUniform,
		gputypes.BufferBindingTypeStorage,
	})
	if err != nil {
		return err
	}
	a.sh, err = a.createPipeline("epu_sh9_project", sh9ProjectShaderSource, []gputypes.BufferBindingType{
		gputypes.BufferBindingTypeUniform,
		gputypes.BufferBindingTypeReadOnlyStorage,
		gputypes.BufferBindingTypeStorage,
	})
	if err != nil {
		a.destroyPipelines()
		return err
	}
	return nil
}

func (a *Accelerator) createPipeline(label, source string, bindings []gputypes.BufferBindingType) (*computePipeline, error) {
	p := &computePipeline{}
	var err error
	p.module, err = a.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSL:  source,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create shader module: %w", label, err)
	}

	entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	for i, typ := range bindings {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	p.bgLayout, err = a.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: entries,
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("%s: create bind group layout: %w", label, err)
	}
	p.layout, err = a.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bgLayout},
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("%s: create pipeline layout: %w", label, err)
	}
	p.pipeline, err = a.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      label,
		Layout:     p.layout,
		Module:     p.module,
		EntryPoint: "main",
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("%s: create compute pipeline: %w", label, err)
	}
	return p, nil
}

func (a *Accelerator) destroyPipelines() {
	a.blur.release()
	a.sh.release()
	a.blur = nil
	a.sh = nil
}

// Build implements epu.RadianceAccelerator.
func (a *Accelerator) Build(ctx context.Context, batch *epu.BuildBatch) ([]*epu.EnvMaps, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.gpuReady {
		return nil, epu.ErrFallbackToCPU
	}
	n := len(batch.Jobs)
	if n == 0 {
		return nil, nil
	}
	layout := newPyramidLayout(&batch.Settings)
	texSize := layout.texelBufferSize(n)
	termSize := termBufferSize(n)
	if max(texSize, termSize) > a.limits.MaxStorageBufferBindingSize {
		return nil, fmt.Errorf("%w: batch needs %d bytes of storage, device allows %d",
			epu.ErrFallbackToCPU, max(texSize, termSize), a.limits.MaxStorageBufferBindingSize)
	}

	// Stage 1: radiance on the CPU pool, written straight into the upload.
	texels := make([]float32, n*layout.envTexels*4)
	c := epu.Compositor{Compose: batch.Settings.BoundsCompose}
	for j := range batch.Jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := epu.BuildRadiance(&batch.Jobs[j].Env, batch.Time, layout.sizes[0], c, a.pool)
		packBase(texels, layout.base(j), base)
	}

	// Stages 2 and 3 on the GPU.
	texOut, termOut, err := a.dispatch(ctx, &layout, n, texels, texSize, termSize)
	if err != nil {
		return nil, err
	}

	out := make([]*epu.EnvMaps, n)
	for j := range n {
		out[j] = &epu.EnvMaps{
			Levels:          layout.unpackEnv(texOut, j),
			SH:              reduceSH(termOut, j),
			IrradianceLevel: layout.irrLevel,
		}
	}
	slogger().Debug("epu/gpu: batch built", "envs", n, "texel_bytes", texSize)
	return out, nil
}

// batchResources tracks per-batch GPU objects for release.
type batchResources struct {
	buffers    []*wgpu.Buffer
	bindGroups []*wgpu.BindGroup
}

func (r *batchResources) buffer(device *wgpu.Device, label string, size uint64, usage gputypes.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	r.buffers = append(r.buffers, buf)
	return buf, nil
}

func (r *batchResources) bindGroup(device *wgpu.Device, label string, p *computePipeline, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  p.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind group: %w", label, err)
	}
	r.bindGroups = append(r.bindGroups, bg)
	return bg, nil
}

func (r *batchResources) release() {
	for _, bg := range r.bindGroups {
		bg.Release()
	}
	for _, buf := range r.buffers {
		buf.Release()
	}
}

// pass is one recorded compute dispatch.
type pass struct {
	pipeline *computePipeline
	group    *wgpu.BindGroup
	x, y     uint32
}

// dispatch uploads the base levels, records every blur and projection pass
// into one command buffer and reads back the texel and term buffers.
func (a *Accelerator) dispatch(ctx context.Context, layout *pyramidLayout, n int, texels []float32, texSize, termSize uint64) ([]float32, []float32, error) {
	res := &batchResources{}
	defer res.release()

	texBuf, err := res.buffer(a.device, "epu_texels", texSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, nil, err
	}
	termBuf, err := res.buffer(a.device, "epu_sh_terms", termSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		return nil, nil, err
	}
	texStaging, err := res.buffer(a.device, "epu_texels_staging", texSize,
		wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, nil, err
	}
	termStaging, err := res.buffer(a.device, "epu_sh_terms_staging", termSize,
		wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, nil, err
	}
	if err := a.queue.WriteBuffer(texBuf, 0, float32Bytes(texels)); err != nil {
		return nil, nil, fmt.Errorf("upload texels: %w", err)
	}

	var passes []pass
	for j := range n {
		for i := 1; i < layout.levels(); i++ {
			params := layout.blurPass(j, i)
			ub, err := a.uniform(res, "epu_blur_params", params.bytes())
			if err != nil {
				return nil, nil, err
			}
			bg, err := res.bindGroup(a.device, "epu_blur_bg", a.blur, []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: ub, Size: blurParamsSize},
				{Binding: 1, Buffer: texBuf, Size: texSize},
			})
			if err != nil {
				return nil, nil, err
			}
			groups := uint32((layout.sizes[i] + blurWorkgroupSize - 1) / blurWorkgroupSize)
			passes = append(passes, pass{pipeline: a.blur, group: bg, x: groups, y: groups})
		}
	}
	for j := range n {
		params := layout.shPass(j)
		ub, err := a.uniform(res, "epu_sh_params", params.bytes())
		if err != nil {
			return nil, nil, err
		}
		bg, err := res.bindGroup(a.device, "epu_sh_bg", a.sh, []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: ub, Size: shParamsSize},
			{Binding: 1, Buffer: texBuf, Size: texSize},
			{Binding: 2, Buffer: termBuf, Size: termSize},
		})
		if err != nil {
			return nil, nil, err
		}
		groups := uint32((epu.SHSampleCount + shWorkgroupSize - 1) / shWorkgroupSize)
		passes = append(passes, pass{pipeline: a.sh, group: bg, x: groups, y: 1})
	}

	cmdBuf, err := a.submit(passes, texBuf, texStaging, texSize, termBuf, termStaging, termSize)
	if err != nil {
		return nil, nil, err
	}
	// Mapping waits for the submission, so the command buffer is idle
	// once both readbacks return.
	defer cmdBuf.Release()

	mapCtx, cancel := context.WithTimeout(ctx, readbackTimeout)
	defer cancel()
	texOut, err := readBuffer(mapCtx, texStaging, texSize)
	if err != nil {
		return nil, nil, fmt.Errorf("read texels: %w", err)
	}
	termOut, err := readBuffer(mapCtx, termStaging, termSize)
	if err != nil {
		return nil, nil, fmt.Errorf("read sh terms: %w", err)
	}
	return texOut, termOut, nil
}

func (a *Accelerator) uniform(res *batchResources, label string, data []byte) (*wgpu.Buffer, error) {
	buf, err := res.buffer(a.device, label, uint64(len(data)),
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := a.queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}

// submit encodes the passes in order, followed by the staging copies. The
// returned command buffer is owned by the caller.
func (a *Accelerator) submit(passes []pass,
	texBuf, texStaging *wgpu.Buffer, texSize uint64,
	termBuf, termStaging *wgpu.Buffer, termSize uint64,
) (*wgpu.CommandBuffer, error) {
	encoder, err := a.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	for _, p := range passes {
		cp, err := encoder.BeginComputePass(nil)
		if err != nil {
			return nil, fmt.Errorf("begin compute pass: %w", err)
		}
		cp.SetPipeline(p.pipeline.pipeline)
		cp.SetBindGroup(0, p.group, nil)
		cp.Dispatch(p.x, p.y, 1)
		if err := cp.End(); err != nil {
			return nil, fmt.Errorf("end compute pass: %w", err)
		}
	}
	encoder.CopyBufferToBuffer(texBuf, 0, texStaging, 0, texSize)
	encoder.CopyBufferToBuffer(termBuf, 0, termStaging, 0, termSize)

	cmdBuf, err := encoder.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	if _, err := a.queue.Submit(cmdBuf); err != nil {
		cmdBuf.Release()
		return nil, fmt.Errorf("submit: %w", err)
	}
	return cmdBuf, nil
}

func readBuffer(ctx context.Context, buf *wgpu.Buffer, size uint64) ([]float32, error) {
	if err := buf.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return nil, err
	}
	rng, err := buf.MappedRange(0, size)
	if err != nil {
		_ = buf.Unmap()
		return nil, err
	}
	out := bytesToFloat32(rng.Bytes())
	rng.Release()
	if err := buf.Unmap(); err != nil {
		return nil, err
	}
	if uint64(len(out))*4 != size {
		return nil, errors.New("short mapped range")
	}
	return out, nil
}
