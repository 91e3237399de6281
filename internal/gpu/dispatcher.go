// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/colorize/internal/gpu/colorcompute"
	"github.com/gogpu/colorize/internal/palette"
)

// fenceTimeout is the maximum time to wait for one pipeline run.
const fenceTimeout = 10 * time.Second

// errNotInitialized is returned by buffer and dispatch calls before Init.
var errNotInitialized = errors.New("colorize compute: dispatcher not initialized, call Init() first")

// maxWorkgroupsPerDimension is the WebGPU default limit on each dispatch axis.
const maxWorkgroupsPerDimension = 65535

// errWorkgroupLimit is returned when an image needs a larger dispatch than
// the device allows.
var errWorkgroupLimit = errors.New("colorize compute: image exceeds workgroup limit")

// checkWorkgroups verifies every stage of a width x height image fits the
// per-dimension dispatch limit.
func checkWorkgroups(width, height uint32) error {
	for s := colorcompute.Stage(0); s < colorcompute.StageCount; s++ {
		g := s.Workgroups(width, height)
		if g.X > maxWorkgroupsPerDimension || g.Y > maxWorkgroupsPerDimension {
			return fmt.Errorf("%w: %s needs %dx%d", errWorkgroupLimit, s, g.X, g.Y)
		}
	}
	return nil
}

// Buffers holds the device buffers of one pipeline run. Each image owns its
// buffers; nothing here is shared between runs.
type Buffers struct {
	// Params is the uniform for closest and average.
	Params hal.Buffer
	// ScanRows and ScanCols are the scan uniforms of the two orientations.
	ScanRows hal.Buffer
	ScanCols hal.Buffer

	// Input holds the original pixels. Read by closest and average.
	Input hal.Buffer
	// Palette holds the Lab palette in Pixel layout. Read by closest.
	Palette hal.Buffer
	// Output receives pass 1 and then the final pixels.
	Output hal.Buffer

	// SatA and SatB ping-pong the summed-area table; the final table is in SatB.
	SatA hal.Buffer
	SatB hal.Buffer

	// CarriesRows and CarriesCols are zero-filled fixed-point carry tables.
	CarriesRows hal.Buffer
	CarriesCols hal.Buffer

	// Staging is the MapRead copy of Output.
	Staging hal.Buffer

	outputSize uint64
}

// Dispatcher compiles the colorize kernels on a HAL device and runs the
// eight pipeline stages for one image at a time per call.
//
// Stages are recorded as separate compute passes in a single command
// encoder; the pass boundary orders every stage after the previous one.
// Pipelines are shared between concurrent runs. Queue writes, submission
// and readback are serialized.
type Dispatcher struct {
	mu sync.RWMutex

	// queueMu serializes queue access across concurrent runs.
	queueMu sync.Mutex

	device hal.Device
	queue  hal.Queue

	pipelines       [colorcompute.KernelCount]hal.ComputePipeline
	pipelineLayouts [colorcompute.KernelCount]hal.PipelineLayout
	bgLayouts       [colorcompute.KernelCount]hal.BindGroupLayout
	shaderModules   [colorcompute.KernelCount]hal.ShaderModule

	initialized bool
}

// NewDispatcher creates a dispatcher attached to the given device and queue.
// Init must be called before Run.
func NewDispatcher(device hal.Device, queue hal.Queue) *Dispatcher {
	return &Dispatcher{device: device, queue: queue}
}

// kernelBindGroupLayoutEntries returns the layout entries of a kernel. They
// match the @group(0) @binding(N) declarations of the WGSL source.
func kernelBindGroupLayoutEntries(k colorcompute.Kernel) []gputypes.BindGroupLayoutEntry {
	uniform := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
	storageRO := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	switch k {
	case colorcompute.KernelClosest:
		// params, src_pixels, palette_lab, dst_pixels
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRO(2), storageRW(3)}
	case colorcompute.KernelScan:
		// sp, src_pixels, dst_pixels, carries (atomic)
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRW(2), storageRW(3)}
	case colorcompute.KernelPropagate:
		// sp, data, carries
		return []gputypes.BindGroupLayoutEntry{uniform, storageRW(1), storageRO(2)}
	case colorcompute.KernelTranspose:
		// sp, src_pixels, dst_pixels
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRW(2)}
	case colorcompute.KernelAverage:
		// params, src_pixels, sat, dst_pixels
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRO(2), storageRW(3)}
	default:
		return nil
	}
}

// stageBindGroupEntries maps each binding of a stage to its buffer.
func stageBindGroupEntries(stage colorcompute.Stage, bufs *Buffers) []gputypes.BindGroupEntry {
	entry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}

	switch stage {
	case colorcompute.StageClosest:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.Params), entry(1, bufs.Input), entry(2, bufs.Palette), entry(3, bufs.Output),
		}
	case colorcompute.StageScanRows:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.ScanRows), entry(1, bufs.Output), entry(2, bufs.SatA), entry(3, bufs.CarriesRows),
		}
	case colorcompute.StagePropagateRows:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.ScanRows), entry(1, bufs.SatA), entry(2, bufs.CarriesRows),
		}
	case colorcompute.StageTransposeRows:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.ScanRows), entry(1, bufs.SatA), entry(2, bufs.SatB),
		}
	case colorcompute.StageScanCols:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.ScanCols), entry(1, bufs.SatB), entry(2, bufs.SatA), entry(3, bufs.CarriesCols),
		}
	case colorcompute.StagePropagateCols:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.ScanCols), entry(1, bufs.SatA), entry(2, bufs.CarriesCols),
		}
	case colorcompute.StageTransposeCols:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.ScanCols), entry(1, bufs.SatA), entry(2, bufs.SatB),
		}
	case colorcompute.StageAverage:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.Params), entry(1, bufs.Input), entry(2, bufs.SatB), entry(3, bufs.Output),
		}
	default:
		return nil
	}
}

// Init compiles every kernel and creates its compute pipeline.
// Calling Init on an initialized dispatcher is a no-op.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	for k := colorcompute.Kernel(0); k < colorcompute.KernelCount; k++ {
		src := ShaderSource(k)
		label := fmt.Sprintf("colorize_%s", k)

		module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{WGSL: src},
		})
		if err != nil {
			d.destroyPartialInit(k)
			return fmt.Errorf("colorize compute: create shader module for %s: %w", k, err)
		}
		d.shaderModules[k] = module

		entries := kernelBindGroupLayoutEntries(k)
		bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   label + "_bgl",
			Entries: entries,
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("colorize compute: create bind group layout for %s: %w", k, err)
		}
		d.bgLayouts[k] = bgLayout

		pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            label + "_pl",
			BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("colorize compute: create pipeline layout for %s: %w", k, err)
		}
		d.pipelineLayouts[k] = pipelineLayout

		pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  label,
			Layout: pipelineLayout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("colorize compute: create compute pipeline for %s: %w", k, err)
		}
		d.pipelines[k] = pipeline

		slogger().Debug("colorize compute: pipeline created",
			"kernel", k.String(),
			"bindings", len(entries),
			"shader_bytes", len(src))
	}

	d.initialized = true
	slogger().Info("colorize compute: pipelines initialized", "kernels", int(colorcompute.KernelCount))
	return nil
}

// destroyPartialInit releases kernels [0, upTo) after a failed Init.
func (d *Dispatcher) destroyPartialInit(upTo colorcompute.Kernel) {
	for k := colorcompute.Kernel(0); k < upTo; k++ {
		d.destroyKernel(k)
	}
}

func (d *Dispatcher) destroyKernel(k colorcompute.Kernel) {
	if d.pipelines[k] != nil {
		d.device.DestroyComputePipeline(d.pipelines[k])
		d.pipelines[k] = nil
	}
	if d.pipelineLayouts[k] != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayouts[k])
		d.pipelineLayouts[k] = nil
	}
	if d.bgLayouts[k] != nil {
		d.device.DestroyBindGroupLayout(d.bgLayouts[k])
		d.bgLayouts[k] = nil
	}
	if d.shaderModules[k] != nil {
		d.device.DestroyShaderModule(d.shaderModules[k])
		d.shaderModules[k] = nil
	}
}

// Close releases the pipelines. The device and queue are not destroyed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k := colorcompute.Kernel(0); k < colorcompute.KernelCount; k++ {
		d.destroyKernel(k)
	}
	d.initialized = false
}

// Initialized reports whether Init has completed.
func (d *Dispatcher) Initialized() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initialized
}

func (d *Dispatcher) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minBufSize = 16
	if size < minBufSize {
		size = minBufSize
	}
	return d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}

// AllocateBuffers creates the buffers of one run. Carry tables are zero
// filled. The caller must call DestroyBuffers.
func (d *Dispatcher) AllocateBuffers(params colorcompute.Params, paletteLen int) (*Buffers, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, errNotInitialized
	}

	pixels := uint64(params.Pixels()) * colorcompute.PixelSize
	rows := colorcompute.NewScanParams(params.Width, params.Height, true)
	cols := colorcompute.NewScanParams(params.Width, params.Height, false)

	uniformCPU := gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	storageCPU := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageGPU := gputypes.BufferUsageStorage
	storageOut := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc
	staging := gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst

	bufs := &Buffers{outputSize: pixels}

	type bufSpec struct {
		target   *hal.Buffer
		label    string
		size     uint64
		usage    gputypes.BufferUsage
		zeroInit bool
	}
	specs := []bufSpec{
		{&bufs.Params, "colorize_params", colorcompute.ParamsSize, uniformCPU, false},
		{&bufs.ScanRows, "colorize_scan_rows", colorcompute.ScanParamsSize, uniformCPU, false},
		{&bufs.ScanCols, "colorize_scan_cols", colorcompute.ScanParamsSize, uniformCPU, false},
		{&bufs.Input, "colorize_input", pixels, storageCPU, false},
		{&bufs.Palette, "colorize_palette", uint64(paletteLen) * colorcompute.PixelSize, storageCPU, false},
		{&bufs.Output, "colorize_output", pixels, storageOut, false},
		{&bufs.SatA, "colorize_sat_a", pixels, storageGPU, false},
		{&bufs.SatB, "colorize_sat_b", pixels, storageGPU, false},
		{&bufs.CarriesRows, "colorize_carries_rows", uint64(rows.CarryWords()) * 4, storageCPU, true}, // atomicAdd in scan
		{&bufs.CarriesCols, "colorize_carries_cols", uint64(cols.CarryWords()) * 4, storageCPU, true}, // atomicAdd in scan
		{&bufs.Staging, "colorize_staging", pixels, staging, false},
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()

	for _, s := range specs {
		buf, err := d.createBuffer(s.label, s.size, s.usage)
		if err != nil {
			d.DestroyBuffers(bufs)
			return nil, fmt.Errorf("colorize compute: create %s buffer: %w", s.label, err)
		}
		*s.target = buf
		if s.zeroInit && s.size > 0 {
			d.queue.WriteBuffer(buf, 0, make([]byte, s.size))
		}
	}

	slogger().Debug("colorize compute: buffers allocated",
		"image", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"pixel_bytes", pixels,
		"carry_words", rows.CarryWords()+cols.CarryWords(),
		"palette", paletteLen)
	return bufs, nil
}

// DestroyBuffers releases every buffer of a run.
func (d *Dispatcher) DestroyBuffers(bufs *Buffers) {
	if bufs == nil {
		return
	}
	for _, b := range []hal.Buffer{
		bufs.Params, bufs.ScanRows, bufs.ScanCols,
		bufs.Input, bufs.Palette, bufs.Output,
		bufs.SatA, bufs.SatB,
		bufs.CarriesRows, bufs.CarriesCols,
		bufs.Staging,
	} {
		if b != nil {
			d.device.DestroyBuffer(b)
		}
	}
	*bufs = Buffers{}
}

// dispatchResources tracks per-run command resources for cleanup.
type dispatchResources struct {
	device     hal.Device
	bindGroups []hal.BindGroup
	cmdBuf     hal.CommandBuffer
	fence      hal.Fence
}

func (r *dispatchResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	for _, g := range r.bindGroups {
		r.device.DestroyBindGroup(g)
	}
}

// Run uploads input, runs every stage and returns the output pixels.
func (d *Dispatcher) Run(input []colorcompute.Pixel, pal palette.Palette, params colorcompute.Params) ([]colorcompute.Pixel, error) {
	if len(pal) == 0 {
		return nil, palette.ErrEmptyPalette
	}
	if params.Pixels() == 0 || len(input) != params.Pixels() {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d",
			colorcompute.ErrBufferSize, len(input), params.Width, params.Height)
	}
	if err := checkWorkgroups(params.Width, params.Height); err != nil {
		return nil, err
	}
	params.PaletteSize = uint32(len(pal))

	bufs, err := d.AllocateBuffers(params, len(pal))
	if err != nil {
		return nil, err
	}
	defer d.DestroyBuffers(bufs)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.initialized {
		return nil, errNotInitialized
	}

	res := &dispatchResources{device: d.device}
	defer res.cleanup()

	if err := d.encodeStages(res, bufs, params); err != nil {
		return nil, err
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()

	d.queue.WriteBuffer(bufs.Params, 0, params.Bytes())
	d.queue.WriteBuffer(bufs.ScanRows, 0, colorcompute.NewScanParams(params.Width, params.Height, true).Bytes())
	d.queue.WriteBuffer(bufs.ScanCols, 0, colorcompute.NewScanParams(params.Width, params.Height, false).Bytes())
	d.queue.WriteBuffer(bufs.Input, 0, colorcompute.PixelsToBytes(input))
	d.queue.WriteBuffer(bufs.Palette, 0, colorcompute.PaletteToBytes(pal))

	if err := d.submitAndWait(res); err != nil {
		return nil, err
	}

	readback := make([]byte, bufs.outputSize)
	if err := d.queue.ReadBuffer(bufs.Staging, 0, readback); err != nil {
		return nil, fmt.Errorf("colorize compute: readback: %w", err)
	}
	return colorcompute.BytesToPixels(readback), nil
}

// encodeStages records one compute pass per stage followed by the copy of
// Output into Staging.
func (d *Dispatcher) encodeStages(res *dispatchResources, bufs *Buffers, params colorcompute.Params) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "colorize_compute",
	})
	if err != nil {
		return fmt.Errorf("colorize compute: create command encoder: %w", err)
	}

	if err := encoder.BeginEncoding("colorize_compute"); err != nil {
		return fmt.Errorf("colorize compute: begin encoding: %w", err)
	}

	for stage := colorcompute.Stage(0); stage < colorcompute.StageCount; stage++ {
		groups := stage.Workgroups(params.Width, params.Height)
		if groups.X == 0 || groups.Y == 0 {
			continue
		}
		kernel := stage.Kernel()

		bg, bgErr := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("colorize_%s_bg", stage),
			Layout:  d.bgLayouts[kernel],
			Entries: stageBindGroupEntries(stage, bufs),
		})
		if bgErr != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("colorize compute: create bind group for %s: %w", stage, bgErr)
		}
		res.bindGroups = append(res.bindGroups, bg)

		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
			Label: fmt.Sprintf("colorize_%s", stage),
		})
		pass.SetPipeline(d.pipelines[kernel])
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(groups.X, groups.Y, 1)
		pass.End()

		slogger().Debug("colorize compute: dispatched stage",
			"stage", stage.String(),
			"workgroups", fmt.Sprintf("%dx%d", groups.X, groups.Y))
	}

	encoder.CopyBufferToBuffer(bufs.Output, bufs.Staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: bufs.outputSize},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("colorize compute: end encoding: %w", err)
	}
	res.cmdBuf = cmdBuf
	return nil
}

// submitAndWait submits the recorded commands and blocks on the fence.
func (d *Dispatcher) submitAndWait(res *dispatchResources) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("colorize compute: create fence: %w", err)
	}
	res.fence = fence

	if err := d.queue.Submit([]hal.CommandBuffer{res.cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("colorize compute: submit: %w", err)
	}

	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("colorize compute: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("colorize compute: GPU timeout after %v", fenceTimeout)
	}
	return nil
}
