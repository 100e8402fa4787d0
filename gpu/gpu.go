// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu registers the WebGPU radiance accelerator.
//
// Import this package to run the blur pyramid and SH9 irradiance stages of
// Runtime.Build as compute passes. The accelerator uses gogpu/wgpu and
// needs no CGO.
//
// If GPU initialization fails (no Vulkan/Metal/DX12/GLES available), the
// accelerator declines every batch and builds fall back to the CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/epu/gpu" // enable GPU acceleration
package gpu

import (
	"github.com/gogpu/epu"
	gpuimpl "github.com/gogpu/epu/internal/gpu"
)

func init() {
	if err := epu.RegisterAccelerator(&gpuimpl.Accelerator{}); err != nil {
		epu.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider makes the accelerator use a device owned by an external
// gpucontext.DeviceProvider (for example a gogpu window) instead of its own.
// Call it before the first Runtime.Build that should share the device.
func SetDeviceProvider(provider any) error {
	return epu.SetAcceleratorDeviceProvider(provider)
}

// Ready reports whether the registered accelerator has a usable device.
func Ready() bool {
	a, ok := epu.Accelerator().(*gpuimpl.Accelerator)
	return ok && a.Ready()
}
