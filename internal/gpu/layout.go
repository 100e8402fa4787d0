// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gogpu/epu"
)

// texelBytes is the size of one RGBA32F texel.
const texelBytes = 16

// pyramidLayout places the pyramid levels of one environment in the shared
// texel buffer. Offsets are in texels, relative to the environment base.
type pyramidLayout struct {
	sizes     []int
	offsets   []int
	envTexels int
	irrLevel  int
}

func newPyramidLayout(s *epu.Settings) pyramidLayout {
	l := pyramidLayout{sizes: s.MipSizes()}
	l.offsets = make([]int, len(l.sizes))
	for i, size := range l.sizes {
		l.offsets[i] = l.envTexels
		l.envTexels += size * size
	}
	l.irrLevel = epu.IrradianceLevel(l.sizes, s.IrradianceSize)
	return l
}

// levels returns the number of pyramid levels.
func (l *pyramidLayout) levels() int { return len(l.sizes) }

// base returns the texel offset of environment j.
func (l *pyramidLayout) base(j int) int { return j * l.envTexels }

// texelBufferSize returns the byte size of the texel buffer for n
// environments.
func (l *pyramidLayout) texelBufferSize(n int) uint64 {
	return uint64(n) * uint64(l.envTexels) * texelBytes
}

// termBufferSize returns the byte size of the SH term buffer for n
// environments.
func termBufferSize(n int) uint64 {
	return uint64(n) * epu.SHSampleCount * 9 * texelBytes
}

// blurParams matches BlurParams in oct_blur.wgsl (32 bytes).
type blurParams struct {
	SrcOffset uint32
	SrcSize   uint32
	DstOffset uint32
	DstSize   uint32
	SinA      float32
	CosA      float32
	_         [2]uint32
}

const blurParamsSize = 32

// blurPass returns the parameters filtering level i of environment j from
// level i-1. The tap angle is computed in float64 like the CPU path.
func (l *pyramidLayout) blurPass(j, i int) blurParams {
	size := l.sizes[i]
	angle := 2 * math.Pi / float64(size)
	return blurParams{
		SrcOffset: uint32(l.base(j) + l.offsets[i-1]),
		SrcSize:   uint32(l.sizes[i-1]),
		DstOffset: uint32(l.base(j) + l.offsets[i]),
		DstSize:   uint32(size),
		SinA:      float32(math.Sin(angle)),
		CosA:      float32(math.Cos(angle)),
	}
}

func (p *blurParams) bytes() []byte {
	b := make([]byte, blurParamsSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], p.SrcOffset)
	le.PutUint32(b[4:], p.SrcSize)
	le.PutUint32(b[8:], p.DstOffset)
	le.PutUint32(b[12:], p.DstSize)
	le.PutUint32(b[16:], math.Float32bits(p.SinA))
	le.PutUint32(b[20:], math.Float32bits(p.CosA))
	return b
}

// shParams matches ShParams in sh9_project.wgsl (16 bytes).
type shParams struct {
	SrcOffset   uint32
	SrcSize     uint32
	OutOffset   uint32
	SampleCount uint32
}

const shParamsSize = 16

// shPass returns the projection parameters for environment j. OutOffset is
// in vec4 terms.
func (l *pyramidLayout) shPass(j int) shParams {
	return shParams{
		SrcOffset:   uint32(l.base(j) + l.offsets[l.irrLevel]),
		SrcSize:     uint32(l.sizes[l.irrLevel]),
		OutOffset:   uint32(j * epu.SHSampleCount * 9),
		SampleCount: epu.SHSampleCount,
	}
}

func (p *shParams) bytes() []byte {
	b := make([]byte, shParamsSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], p.SrcOffset)
	le.PutUint32(b[4:], p.SrcSize)
	le.PutUint32(b[8:], p.OutOffset)
	le.PutUint32(b[12:], p.SampleCount)
	return b
}

// packBase copies a radiance level into the texel slice at offset (in
// texels).
func packBase(dst []float32, offset int, m *epu.RadianceMap) {
	copy(dst[offset*4:], m.Pix)
}

// unpackEnv slices the pyramid of environment j out of the read-back texels.
// Every level gets its own copy so the maps outlive the staging data.
func (l *pyramidLayout) unpackEnv(texels []float32, j int) []*epu.RadianceMap {
	levels := make([]*epu.RadianceMap, l.levels())
	for i, size := range l.sizes {
		m := epu.NewRadianceMap(size)
		start := (l.base(j) + l.offsets[i]) * 4
		copy(m.Pix, texels[start:start+size*size*4])
		levels[i] = m
	}
	return levels
}

// reduceSH sums the per-sample terms of environment j and applies the
// irradiance band factors.
func reduceSH(terms []float32, j int) epu.SH9 {
	var raw [9]epu.Vec3
	base := j * epu.SHSampleCount * 9 * 4
	for s := range epu.SHSampleCount {
		o := base + s*9*4
		for k := range 9 {
			t := terms[o+k*4:]
			raw[k] = raw[k].Add(epu.Vec3{X: t[0], Y: t[1], Z: t[2]})
		}
	}
	return epu.ConvolveSH9(raw)
}

// float32Bytes reinterprets a float32 slice as bytes without copying.
func float32Bytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4) //nolint:gosec // tightly packed float data
}

// bytesToFloat32 decodes little-endian float32 data.
func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
