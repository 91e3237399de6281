package colorize

import (
	"errors"
	"sync"

	"github.com/gogpu/colorize/internal/gpu/colorcompute"
	"github.com/gogpu/colorize/internal/palette"
)

// ErrFallbackToCPU indicates the accelerator cannot run this image.
// The Colorizer transparently falls back to the CPU device.
var ErrFallbackToCPU = errors.New("colorize: falling back to CPU")

// Accelerator is an optional device that runs the whole pipeline for one
// image.
//
// Implementations are provided by device packages and registered from their
// init function. Users opt in via blank import:
//
//	import _ "github.com/gogpu/colorize/gpu" // enables GPU acceleration
type Accelerator interface {
	// Name returns the accelerator name (e.g., "colorize-gpu").
	Name() string

	// Init acquires the device. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// Colorize runs every stage over input and returns the output pixels.
	// Returns ErrFallbackToCPU if the device cannot run the image.
	Colorize(input []Pixel, pal Palette, params Params) ([]Pixel, error)
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider (e.g., a gogpu window).
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers the accelerator used by every Colorizer.
//
// Only one accelerator can be registered; a later call replaces and closes
// the previous one. Init is called during registration. If Init fails, the
// accelerator is not registered and the error is returned.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("colorize: accelerator must not be nil")
	}
	propagateLogger(a, Logger())
	if err := a.Init(); err != nil {
		return err
	}
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("colorize: accelerator registered", "name", a.Name())
	return nil
}

// RegisteredAccelerator returns the registered accelerator, or nil if none.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator. If no accelerator is registered or it does not support device
// sharing, this is a no-op.
func SetAcceleratorDeviceProvider(provider any) error {
	a := RegisteredAccelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// Aliases for the internal types that appear in the accelerator contract.
type (
	// Pixel is one sRGB pixel with float channels in [0,1], laid out as
	// on the device.
	Pixel = colorcompute.Pixel

	// Params is the uniform block of one pipeline run.
	Params = colorcompute.Params

	// Palette is an interpolated colorscheme in Lab space.
	Palette = palette.Palette
)
