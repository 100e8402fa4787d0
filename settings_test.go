package epu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("DefaultSettings().Validate() = %v", err)
	}
	if got := len(s.MipSizes()); got != 6 {
		t.Errorf("default pyramid has %d levels, want 6", got)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Settings)
		want error
	}{
		{"map size 0", func(s *Settings) { s.MapSize = 0 }, ErrInvalidSettings},
		{"map size not pow2", func(s *Settings) { s.MapSize = 100 }, ErrInvalidSettings},
		{"min mip above map", func(s *Settings) { s.MinMipSize = 256 }, ErrInvalidSettings},
		{"min mip 0", func(s *Settings) { s.MinMipSize = 0 }, ErrInvalidSettings},
		{"irradiance 0", func(s *Settings) { s.IrradianceSize = 0 }, ErrInvalidSettings},
		{"negative workers", func(s *Settings) { s.Workers = -1 }, ErrInvalidSettings},
		{"max active 0", func(s *Settings) { s.MaxActive = 0 }, ErrInvalidSettings},
		{"max active above cap", func(s *Settings) { s.MaxActive = MaxActiveEnvs + 1 }, ErrInvalidSettings},
		{"unknown compose", func(s *Settings) { s.BoundsCompose = 9 }, ErrInvalidSettings},
		{"texture dimension", func(s *Settings) { s.MapSize = 16384 }, ErrLimitExceeded},
		{"radiance buffer", func(s *Settings) { s.MapSize = 1024 }, ErrLimitExceeded},
		{"small buffer limit", func(s *Settings) { s.Limits.MaxBufferSize = 4096 }, ErrLimitExceeded},
		{"one active 1024", func(s *Settings) { s.MapSize = 1024; s.MaxActive = 1 }, nil},
		{"zero limits skip checks", func(s *Settings) { s.MapSize = 4096; s.Limits = gputypes.Limits{} }, nil},
		{"mask compose", func(s *Settings) { s.BoundsCompose = ComposeMask }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.edit(&s)
			err := s.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRadianceBytes(t *testing.T) {
	s := DefaultSettings()
	s.MapSize = 8
	s.MinMipSize = 2
	// 8x8 + 4x4 + 2x2 texels, 16 bytes each.
	if got, want := s.RadianceBytes(), uint64((64+16+4)*16); got != want {
		t.Errorf("RadianceBytes() = %d, want %d", got, want)
	}
}

func TestOptions(t *testing.T) {
	s := DefaultSettings()
	for _, opt := range []Option{
		WithMapSize(64),
		WithMinMipSize(8),
		WithIrradianceSize(8),
		WithWorkers(3),
		WithMaxActive(4),
		WithBoundsCompose(ComposeMask),
	} {
		opt(&s)
	}
	want := Settings{
		MapSize: 64, MinMipSize: 8, IrradianceSize: 8, Workers: 3, MaxActive: 4,
		BoundsCompose: ComposeMask, Limits: gputypes.DefaultLimits(),
	}
	if s != want {
		t.Errorf("settings = %+v, want %+v", s, want)
	}

	WithSettings(DefaultSettings())(&s)
	if s != DefaultSettings() {
		t.Errorf("WithSettings did not replace settings: %+v", s)
	}
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv(EnvMapSize, "64")
	t.Setenv(EnvMinMipSize, "8")
	t.Setenv(EnvWorkers, "2")
	t.Setenv(EnvBoundsCompose, "mask")

	s, err := SettingsFromEnv()
	if err != nil {
		t.Fatalf("SettingsFromEnv() = %v", err)
	}
	if s.MapSize != 64 || s.MinMipSize != 8 || s.Workers != 2 || s.BoundsCompose != ComposeMask {
		t.Errorf("SettingsFromEnv() = %+v", s)
	}
	if s.IrradianceSize != DefaultIrradianceSize {
		t.Errorf("unset variable changed IrradianceSize to %d", s.IrradianceSize)
	}
}

func TestSettingsFromEnvErrors(t *testing.T) {
	t.Run("bad int", func(t *testing.T) {
		t.Setenv(EnvMapSize, "big")
		if _, err := SettingsFromEnv(); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("SettingsFromEnv() = %v, want ErrInvalidSettings", err)
		}
	})
	t.Run("bad compose", func(t *testing.T) {
		t.Setenv(EnvBoundsCompose, "blend")
		if _, err := SettingsFromEnv(); err == nil {
			t.Error("SettingsFromEnv() accepted an unknown compose policy")
		}
	})
}

func TestNewRuntimeRejectsInvalidSettings(t *testing.T) {
	if _, err := NewRuntime(WithMapSize(1024)); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("NewRuntime(1024) = %v, want ErrLimitExceeded", err)
	}
	if _, err := NewRuntime(WithMapSize(48)); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("NewRuntime(48) = %v, want ErrInvalidSettings", err)
	}
}
