//go:build !nogpu

// Package gpu registers the GPU accelerator for colorize.
//
// The accelerator opens a Vulkan device through gogpu/wgpu and runs the
// colorize stages as WGSL compute shaders. If GPU initialization fails, the
// registration is skipped with a warning and every Colorizer uses the CPU
// device.
//
// Usage:
//
//	import _ "github.com/gogpu/colorize/gpu" // enable GPU acceleration
package gpu

import (
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/colorize"
	gpuimpl "github.com/gogpu/colorize/internal/gpu"
)

// ErrNilProvider is returned by SetDeviceProvider for a nil provider.
var ErrNilProvider = errors.New("gpu: device provider is nil")

func init() {
	accel := &gpuimpl.Accelerator{}
	if err := colorize.RegisterAccelerator(accel); err != nil {
		colorize.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider makes the GPU accelerator share the device of an
// external provider (e.g., gogpu.App.GPUContextProvider()) instead of its
// own. The provider must also expose HalDevice() and HalQueue().
//
// It is a no-op when no accelerator is registered.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return ErrNilProvider
	}
	return colorize.SetAcceleratorDeviceProvider(provider)
}
