package epu

import (
	"context"

	"github.com/gogpu/epu/internal/parallel"
)

// EnvMaps is the output of the radiance pipeline for one environment: the
// radiance pyramid (level 0 sharp, each following level blurred and halved)
// and the SH9 irradiance coefficients.
type EnvMaps struct {
	Levels []*RadianceMap
	SH     SH9

	// IrradianceLevel is the pyramid level SH was extracted from.
	IrradianceLevel int
}

// placeholderMaps returns the minimal resident output exposed before an
// environment is built: a single 1x1 black level and zero SH.
func placeholderMaps() *EnvMaps {
	return &EnvMaps{Levels: []*RadianceMap{NewRadianceMap(1)}}
}

// BuildEnvMaps runs the full CPU pipeline (radiance, blur pyramid, SH9) for
// env at time t. A nil pool builds on the calling goroutine.
func BuildEnvMaps(env *Environment, t float32, s *Settings, pool *parallel.WorkerPool) *EnvMaps {
	m, _ := buildEnvMaps(context.Background(), env, t, s, pool)
	return m
}

// buildEnvMaps checks ctx before every stage.
func buildEnvMaps(ctx context.Context, env *Environment, t float32, s *Settings, pool *parallel.WorkerPool) (*EnvMaps, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := Compositor{Compose: s.BoundsCompose}
	sizes := s.MipSizes()
	levels := make([]*RadianceMap, len(sizes))
	levels[0] = BuildRadiance(env, t, sizes[0], c, pool)
	for i := 1; i < len(sizes); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		levels[i] = blurLevel(levels[i-1], sizes[i], pool)
	}
	src := IrradianceLevel(sizes, s.IrradianceSize)
	return &EnvMaps{
		Levels:          levels,
		SH:              ExtractSH9(levels[src]),
		IrradianceLevel: src,
	}, nil
}

// Background returns the sharp radiance seen along view direction dir.
func (m *EnvMaps) Background(dir Vec3) Vec3 {
	return m.Levels[0].Sample(dir)
}

// Reflection returns prefiltered radiance along reflection direction dir for
// a surface of the given roughness in [0,1]. The level is roughness squared
// mapped over the pyramid, interpolated linearly between adjacent levels.
func (m *EnvMaps) Reflection(dir Vec3, roughness float32) Vec3 {
	last := len(m.Levels) - 1
	if last <= 0 {
		return m.Levels[0].Sample(dir)
	}
	r := sanitizeUnit(roughness)
	lod := r * r * float32(last)
	i := min(int(lod), last-1)
	f := lod - float32(i)
	return m.Levels[i].Sample(dir).Lerp(m.Levels[i+1].Sample(dir), f)
}

// Ambient returns diffuse ambient light for surface normal n.
func (m *EnvMaps) Ambient(n Vec3) Vec3 {
	return m.SH.Eval(n)
}
