//go:build !nogpu

package gpu

import _ "embed"

// Embedded WGSL compute shaders.

//go:embed shaders/oct_blur.wgsl
var octBlurShaderSource string

//go:embed shaders/sh9_project.wgsl
var sh9ProjectShaderSource string

// Workgroup sizes, matching the @workgroup_size attributes above.
const (
	blurWorkgroupSize = 8
	shWorkgroupSize   = 64
)
