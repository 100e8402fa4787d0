//go:build !nogpu

package gpu

import (
	"testing"

	"github.com/gogpu/epu"
)

func TestAcceleratorRegistered(t *testing.T) {
	a := epu.Accelerator()
	if a == nil {
		t.Fatal("importing gpu should register an accelerator")
	}
	if a.Name() != "wgpu" {
		t.Errorf("Name() = %q, want wgpu", a.Name())
	}
	t.Logf("GPU ready: %v", Ready())
}

func TestSetDeviceProviderRejectsUnknown(t *testing.T) {
	if err := SetDeviceProvider(42); err == nil {
		t.Error("expected error for a provider that is not a gpucontext.DeviceProvider")
	}
}
