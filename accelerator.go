package epu

import (
	"context"
	"errors"
	"sync"
)

// BuildJob is one environment scheduled for a build: its slot id and an
// immutable snapshot of its instructions.
type BuildJob struct {
	ID  uint32
	Env Environment
}

// BuildBatch is the input of one pipeline invocation. Jobs are in active
// list order; job i occupies dispatch slot i.
type BuildBatch struct {
	Jobs     []BuildJob
	Time     float32
	Settings Settings
}

// RadianceAccelerator is an optional hardware provider for the radiance
// pipeline.
//
// When registered via RegisterAccelerator, Runtime.Build tries the
// accelerator first. If it returns ErrFallbackToCPU or any other error, the
// batch is rebuilt on the CPU.
//
// Implementations live in GPU backend packages. Users opt in with a blank
// import:
//
//	import _ "github.com/gogpu/epu/gpu"
type RadianceAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes resources. Called once during registration.
	Init() error

	// Close releases resources.
	Close()

	// Build runs the build, blur and irradiance stages for every job and
	// returns one EnvMaps per job, in job order.
	Build(ctx context.Context, batch *BuildBatch) ([]*EnvMaps, error)
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider instead of creating their
// own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   RadianceAccelerator
)

// RegisterAccelerator registers the radiance accelerator.
//
// Only one accelerator can be registered; a later call replaces and closes
// the previous one. Init is called during registration and, if it fails,
// the accelerator is not registered.
func RegisterAccelerator(a RadianceAccelerator) error {
	if a == nil {
		return errors.New("epu: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	forwardLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("epu: accelerator registered", "name", a.Name())
	return nil
}

// UnregisterAccelerator closes and removes the registered accelerator, if
// any. Builds run on the CPU afterwards.
func UnregisterAccelerator() {
	accelMu.Lock()
	old := accel
	accel = nil
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Accelerator returns the registered accelerator, or nil if none.
func Accelerator() RadianceAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator. It is a no-op if no accelerator is registered or it cannot
// share devices.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
