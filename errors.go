package epu

import "errors"

// Sentinel errors. Evaluation never returns errors; these are raised only at
// construction and authoring boundaries.
var (
	// ErrFallbackToCPU indicates the accelerator cannot run a build.
	// The runtime transparently falls back to the CPU pipeline.
	ErrFallbackToCPU = errors.New("epu: falling back to CPU pipeline")

	// ErrInvalidSettings is returned for settings outside their valid range.
	ErrInvalidSettings = errors.New("epu: invalid settings")

	// ErrLimitExceeded is returned when requested resources exceed the
	// platform buffer limits.
	ErrLimitExceeded = errors.New("epu: resource limit exceeded")

	// ErrEnvIDOutOfRange is returned for environment ids >= MaxEnvStates.
	ErrEnvIDOutOfRange = errors.New("epu: environment id out of range")

	// ErrInvalidHex is returned when hex-encoded layers cannot be parsed.
	ErrInvalidHex = errors.New("epu: invalid environment hex")
)
