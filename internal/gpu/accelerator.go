// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/colorize"
	"github.com/gogpu/colorize/internal/gpu/colorcompute"
	"github.com/gogpu/colorize/internal/palette"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Accelerator runs the colorize pipeline on a GPU. It implements
// colorize.Accelerator.
//
// The accelerator either owns a Vulkan device it opened itself or uses a
// device shared through SetDeviceProvider. A shared device is never
// destroyed by Close.
type Accelerator struct {
	mu sync.RWMutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	dispatcher *Dispatcher

	adapterName    string
	gpuReady       bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

var (
	_ colorize.Accelerator         = (*Accelerator)(nil)
	_ colorize.DeviceProviderAware = (*Accelerator)(nil)
)

// Name returns "colorize-gpu".
func (a *Accelerator) Name() string { return "colorize-gpu" }

// Init opens a Vulkan device and compiles the pipelines. It is a no-op when
// a device is already attached.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gpuReady {
		return nil
	}
	if err := a.initGPU(); err != nil {
		a.releaseDevice()
		return &colorize.DeviceError{Op: "init", Err: err}
	}
	return nil
}

// Ready reports whether a device is attached and the pipelines are built.
func (a *Accelerator) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gpuReady
}

// AdapterName returns the name of the adapter in use, or "" for a shared
// device.
func (a *Accelerator) AdapterName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.adapterName
}

// Close releases the pipelines and, unless the device is shared, the
// device and instance.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseDevice()
}

func (a *Accelerator) releaseDevice() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
		a.dispatcher = nil
	}
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.adapterName = ""
	a.gpuReady = false
	a.externalDevice = false
}

// SetLogger sets the logger for the gpu package. Called by
// colorize.SetLogger to propagate logging configuration.
func (a *Accelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// SetDeviceProvider switches the accelerator to a GPU device shared by an
// external provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return errors.New("colorize-gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("colorize-gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("colorize-gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseDevice()
	a.device = device
	a.queue = queue
	a.externalDevice = true

	d := NewDispatcher(device, queue)
	if err := d.Init(); err != nil {
		return &colorize.DeviceError{Op: "init shared", Err: err}
	}
	a.dispatcher = d
	a.gpuReady = true
	slogger().Info("colorize-gpu: switched to shared GPU device")
	return nil
}

// Colorize runs every stage for one image. It returns
// colorize.ErrFallbackToCPU when no device is ready or the image needs more
// workgroups than a dispatch allows.
func (a *Accelerator) Colorize(input []colorcompute.Pixel, pal palette.Palette, params colorcompute.Params) ([]colorcompute.Pixel, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.gpuReady || a.dispatcher == nil {
		return nil, colorize.ErrFallbackToCPU
	}

	out, err := a.dispatcher.Run(input, pal, params)
	if err != nil {
		if errors.Is(err, colorcompute.ErrBufferSize) || errors.Is(err, palette.ErrEmptyPalette) {
			return nil, err
		}
		if errors.Is(err, errWorkgroupLimit) {
			return nil, fmt.Errorf("%w: %w", colorize.ErrFallbackToCPU, err)
		}
		return nil, &colorize.DeviceError{Op: "dispatch", Err: err}
	}
	return out, nil
}

func (a *Accelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return errors.New("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return errors.New("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue

	d := NewDispatcher(a.device, a.queue)
	if err := d.Init(); err != nil {
		return fmt.Errorf("create pipelines: %w", err)
	}
	a.dispatcher = d
	a.adapterName = selected.Info.Name
	a.gpuReady = true
	slogger().Info("colorize-gpu: GPU accelerator initialized", "adapter", selected.Info.Name)
	return nil
}
