// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu implements the WebGPU radiance accelerator.
//
// The accelerator runs the radiance pipeline stages that dominate build
// time on the GPU through gogpu/wgpu (Pure Go, zero CGO; Vulkan, Metal,
// DX12 or GLES depending on the platform):
//
//	Radiance (CPU pool) -> Upload -> Blur pyramid (compute) -> SH9 projection (compute) -> Readback
//
// All environments of a batch share one storage buffer of RGBA32F texels.
// Each environment occupies a contiguous region holding its pyramid levels
// in order, so one compute pass per (environment, level) filters a level from
// the previous one in place. SH9 projection writes one weighted basis term
// per Fibonacci sample; the host sums and convolves them.
//
// Accelerator.Build returns epu.ErrFallbackToCPU when no device is available
// or a batch does not fit the device limits, and the runtime rebuilds the
// batch on the CPU.
//
// This is an internal package; import github.com/gogpu/epu/gpu to register
// the accelerator.
package gpu
