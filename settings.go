package epu

import (
	"fmt"
	"math/bits"
	"os"
	"strconv"

	"github.com/gogpu/gputypes"
)

// Resource model constants.
const (
	// MaxEnvStates is the number of addressable environment slots.
	MaxEnvStates = 256

	// MaxActiveEnvs caps how many environments one build processes.
	MaxActiveEnvs = 32
)

// Default settings.
const (
	DefaultMapSize        = 128
	DefaultMinMipSize     = 4
	DefaultIrradianceSize = 16
)

// Settings configures a Runtime.
type Settings struct {
	// MapSize is the edge length of the level-0 octahedral radiance map.
	// Must be a power of two.
	MapSize int

	// MinMipSize is the smallest pyramid level edge length.
	MinMipSize int

	// IrradianceSize selects the pyramid level SH9 is extracted from: the
	// first level no larger than this.
	IrradianceSize int

	// Workers sets the CPU worker pool size; 0 means GOMAXPROCS.
	Workers int

	// MaxActive caps the active list per build, at most MaxActiveEnvs.
	MaxActive int

	// BoundsCompose selects how chained bounds layers combine regions.
	BoundsCompose BoundsCompose

	// Limits are the platform limits the settings are validated against.
	Limits gputypes.Limits
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		MapSize:        DefaultMapSize,
		MinMipSize:     DefaultMinMipSize,
		IrradianceSize: DefaultIrradianceSize,
		MaxActive:      MaxActiveEnvs,
		BoundsCompose:  ComposeReplace,
		Limits:         gputypes.DefaultLimits(),
	}
}

// Option configures Settings.
//
// Example:
//
//	rt, err := epu.NewRuntime(epu.WithMapSize(256), epu.WithWorkers(4))
type Option func(*Settings)

// WithSettings replaces all settings, typically with SettingsFromEnv output.
func WithSettings(s Settings) Option {
	return func(o *Settings) { *o = s }
}

// WithMapSize sets the level-0 map edge length.
func WithMapSize(size int) Option {
	return func(o *Settings) { o.MapSize = size }
}

// WithMinMipSize sets the smallest pyramid level edge length.
func WithMinMipSize(size int) Option {
	return func(o *Settings) { o.MinMipSize = size }
}

// WithIrradianceSize sets the target level size for SH9 extraction.
func WithIrradianceSize(size int) Option {
	return func(o *Settings) { o.IrradianceSize = size }
}

// WithWorkers sets the CPU worker count.
func WithWorkers(n int) Option {
	return func(o *Settings) { o.Workers = n }
}

// WithMaxActive caps the number of environments built per call.
func WithMaxActive(n int) Option {
	return func(o *Settings) { o.MaxActive = n }
}

// WithBoundsCompose selects the bounds region composition policy.
func WithBoundsCompose(c BoundsCompose) Option {
	return func(o *Settings) { o.BoundsCompose = c }
}

// WithLimits sets the platform limits used for validation.
func WithLimits(l gputypes.Limits) Option {
	return func(o *Settings) { o.Limits = l }
}

// Environment variables read by SettingsFromEnv.
const (
	EnvMapSize       = "EPU_MAP_SIZE"
	EnvMinMipSize    = "EPU_MIN_MIP_SIZE"
	EnvWorkers       = "EPU_WORKERS"
	EnvBoundsCompose = "EPU_BOUNDS_COMPOSE"
)

// SettingsFromEnv returns DefaultSettings overridden by the EPU_*
// environment variables. Unset variables keep their defaults.
func SettingsFromEnv() (Settings, error) {
	s := DefaultSettings()
	ints := []struct {
		name string
		dst  *int
	}{
		{EnvMapSize, &s.MapSize},
		{EnvMinMipSize, &s.MinMipSize},
		{EnvWorkers, &s.Workers},
	}
	for _, v := range ints {
		raw, ok := os.LookupEnv(v.name)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return s, fmt.Errorf("%w: %s=%q: %v", ErrInvalidSettings, v.name, raw, err)
		}
		*v.dst = n
	}
	if raw := os.Getenv(EnvBoundsCompose); raw != "" {
		c, err := ParseBoundsCompose(raw)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvBoundsCompose, err)
		}
		s.BoundsCompose = c
	}
	return s, nil
}

// MipSizes returns the pyramid level sizes these settings produce.
func (s *Settings) MipSizes() []int { return MipSizes(s.MapSize, s.MinMipSize) }

// RadianceBytes returns the size of one environment's radiance pyramid
// stored as RGBA float32.
func (s *Settings) RadianceBytes() uint64 {
	var n uint64
	for _, size := range s.MipSizes() {
		n += uint64(size) * uint64(size) * 16
	}
	return n
}

// Validate reports settings that are out of range or that would need
// buffers larger than the platform limits. Settings are rejected here,
// before any resource is created, rather than truncated later.
func (s *Settings) Validate() error {
	switch {
	case s.MapSize < 1 || bits.OnesCount(uint(s.MapSize)) != 1:
		return fmt.Errorf("%w: map size %d is not a power of two", ErrInvalidSettings, s.MapSize)
	case s.MinMipSize < 1 || s.MinMipSize > s.MapSize:
		return fmt.Errorf("%w: min mip size %d not in [1, %d]", ErrInvalidSettings, s.MinMipSize, s.MapSize)
	case s.IrradianceSize < 1:
		return fmt.Errorf("%w: irradiance size %d", ErrInvalidSettings, s.IrradianceSize)
	case s.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidSettings, s.Workers)
	case s.MaxActive < 1 || s.MaxActive > MaxActiveEnvs:
		return fmt.Errorf("%w: max active %d not in [1, %d]", ErrInvalidSettings, s.MaxActive, MaxActiveEnvs)
	case s.BoundsCompose > ComposeMask:
		return fmt.Errorf("%w: bounds compose %d", ErrInvalidSettings, s.BoundsCompose)
	}

	if lim := s.Limits.MaxTextureDimension2D; lim > 0 && uint64(s.MapSize) > uint64(lim) {
		return fmt.Errorf("%w: map size %d exceeds max texture dimension %d", ErrLimitExceeded, s.MapSize, lim)
	}
	if lim := s.Limits.MaxBufferSize; lim > 0 {
		if need := uint64(s.MaxActive) * s.RadianceBytes(); need > lim {
			return fmt.Errorf("%w: radiance storage needs %d bytes, max buffer size is %d", ErrLimitExceeded, need, lim)
		}
		if need := uint64(MaxEnvStates * EnvironmentSize); need > lim {
			return fmt.Errorf("%w: environment buffer needs %d bytes, max buffer size is %d", ErrLimitExceeded, need, lim)
		}
	}
	return nil
}
