// Package epu implements the Environment Processing Unit, a procedural
// sky and environment renderer driven by compact bytecode.
//
// # Overview
//
// An Environment is an ordered stack of eight 128-bit instructions
// (layers). Evaluating it at a direction on the unit sphere yields a color.
// Evaluating it over a full direction grid produces a radiance map, from
// which a blurred reflection pyramid and nine spherical-harmonic irradiance
// coefficients are derived for use by a 3D renderer.
//
// # Quick Start
//
//	import "github.com/gogpu/epu"
//
//	rt, err := epu.NewRuntime(epu.WithMapSize(128))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	env, _ := epu.Preset("daylight")
//	_ = rt.SetEnvironment(0, env)
//
//	// Once per frame, for the environments on screen.
//	_, err = rt.Build(ctx, []uint32{0}, frameTime)
//
//	sky := rt.Background(0, viewDir)
//	spec := rt.Reflection(0, reflectDir, roughness)
//	diffuse := rt.Ambient(0, normal)
//
// # Layers
//
// Opcodes 0x01..0x07 are bounds opcodes. They partition the sphere into
// sky, wall and floor region weights that always sum to one, and set the
// bounds direction read by later layers. Opcodes 0x08..0x13 are feature
// opcodes. They draw a motif gated by the region weights selected by the
// layer's region mask. Every other opcode is a zero-contribution no-op, so
// any 128-bit pattern is a valid layer.
//
// Use Builder and the per-opcode parameter structs to author environments
// without touching bit fields. Layer.Pack and PackedLayer.Unpack convert
// between the decoded and packed forms.
//
// # Pipeline
//
// Runtime.Build runs three stages per active environment: a radiance map in
// octahedral layout, a blur pyramid sampled in direction space so that taps
// never cross the octahedral fold, and SH9 irradiance extraction over a
// fixed spherical Fibonacci sample set. Stages run on a registered
// RadianceAccelerator (see the gpu package) or on the CPU worker pool.
//
// # Determinism
//
// Composite is a pure function of (direction, environment, time). It never
// panics on instruction data and produces identical results for identical
// inputs.
package epu

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
