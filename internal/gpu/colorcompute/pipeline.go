// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/colorize/internal/palette"
	"github.com/gogpu/colorize/internal/parallel"
)

var (
	// ErrNegativeAccumulation is returned when a value entering the
	// fixed-point carry table is negative or NaN.
	ErrNegativeAccumulation = errors.New("colorcompute: negative value in prefix sum")

	// ErrBufferSize is returned when a pixel buffer does not hold exactly
	// width*height pixels.
	ErrBufferSize = errors.New("colorcompute: buffer size does not match dimensions")
)

// Buffers holds every buffer of one pipeline run. Names and roles match the
// device buffers allocated by the GPU dispatcher.
type Buffers struct {
	Input  []Pixel
	Output []Pixel
	SatA   []Pixel
	SatB   []Pixel

	// CarriesRows and CarriesCols are zero-initialised fixed-point carry
	// tables, one per scan orientation.
	CarriesRows []uint32
	CarriesCols []uint32
}

// NewBuffers allocates the buffers of a run over input.
func NewBuffers(input []Pixel, width, height uint32) *Buffers {
	n := len(input)
	return &Buffers{
		Input:       input,
		Output:      make([]Pixel, n),
		SatA:        make([]Pixel, n),
		SatB:        make([]Pixel, n),
		CarriesRows: make([]uint32, NewScanParams(width, height, true).CarryWords()),
		CarriesCols: make([]uint32, NewScanParams(width, height, false).CarryWords()),
	}
}

// SAT returns the finished summed-area table, row-major.
func (b *Buffers) SAT() []Pixel {
	return b.SatB
}

// Pipeline runs the colorize stages on the CPU.
//
// Each stage is one dispatch on the worker pool; Dispatch returning is the
// barrier between stages. Pipeline is safe for concurrent use as long as the
// pool is; every Run owns its buffers.
type Pipeline struct {
	pool *parallel.WorkerPool
}

// NewPipeline creates a CPU pipeline on the given pool.
func NewPipeline(pool *parallel.WorkerPool) *Pipeline {
	return &Pipeline{pool: pool}
}

// Run executes every stage over input and returns the output pixels.
func (p *Pipeline) Run(input []Pixel, pal palette.Palette, params Params) ([]Pixel, error) {
	b, err := p.prepare(input, pal, params)
	if err != nil {
		return nil, err
	}
	for s := Stage(0); s < StageCount; s++ {
		if err := p.Dispatch(s, b, pal, params); err != nil {
			return nil, err
		}
	}
	return b.Output, nil
}

// BuildSAT runs pass 2 alone over src and returns the row-major SAT.
func (p *Pipeline) BuildSAT(src []Pixel, width, height uint32) ([]Pixel, error) {
	if len(src) != int(width)*int(height) {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d", ErrBufferSize, len(src), width, height)
	}
	b := &Buffers{
		Output:      src,
		SatA:        make([]Pixel, len(src)),
		SatB:        make([]Pixel, len(src)),
		CarriesRows: make([]uint32, NewScanParams(width, height, true).CarryWords()),
		CarriesCols: make([]uint32, NewScanParams(width, height, false).CarryWords()),
	}
	params := Params{Width: width, Height: height}
	for s := StageScanRows; s <= StageTransposeCols; s++ {
		if err := p.Dispatch(s, b, nil, params); err != nil {
			return nil, err
		}
	}
	return b.SAT(), nil
}

func (p *Pipeline) prepare(input []Pixel, pal palette.Palette, params Params) (*Buffers, error) {
	if len(pal) == 0 {
		return nil, palette.ErrEmptyPalette
	}
	if params.Width == 0 || params.Height == 0 || len(input) != params.Pixels() {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d", ErrBufferSize, len(input), params.Width, params.Height)
	}
	return NewBuffers(input, params.Width, params.Height), nil
}

// Dispatch runs a single stage over b and returns after every workgroup
// has finished.
func (p *Pipeline) Dispatch(stage Stage, b *Buffers, pal palette.Palette, params Params) error {
	groups := stage.Workgroups(params.Width, params.Height)
	size := stage.Kernel().WorkgroupSize()
	sp := stage.ScanParams(params.Width, params.Height)

	var negative atomic.Bool
	var kernel func(wg *parallel.Workgroup)

	switch stage {
	case StageClosest:
		kernel = func(wg *parallel.Workgroup) { closestKernel(wg, params, pal, b.Input, b.Output) }
	case StageScanRows:
		kernel = func(wg *parallel.Workgroup) { scanKernel(wg, sp, b.Output, b.SatA, b.CarriesRows, &negative) }
	case StagePropagateRows:
		kernel = func(wg *parallel.Workgroup) { propagateKernel(wg, sp, b.SatA, b.CarriesRows) }
	case StageTransposeRows, StageTransposeCols:
		kernel = func(wg *parallel.Workgroup) { transposeKernel(wg, sp, b.SatA, b.SatB) }
	case StageScanCols:
		kernel = func(wg *parallel.Workgroup) { scanKernel(wg, sp, b.SatB, b.SatA, b.CarriesCols, &negative) }
	case StagePropagateCols:
		kernel = func(wg *parallel.Workgroup) { propagateKernel(wg, sp, b.SatA, b.CarriesCols) }
	case StageAverage:
		kernel = func(wg *parallel.Workgroup) { averageKernel(wg, params, b.Input, b.SatB, b.Output) }
	default:
		return fmt.Errorf("colorcompute: unknown stage %s", stage)
	}

	if err := p.pool.DispatchWorkgroups(groups, size, kernel); err != nil {
		return fmt.Errorf("colorcompute: %s: %w", stage, err)
	}
	if negative.Load() {
		return fmt.Errorf("colorcompute: %s: %w", stage, ErrNegativeAccumulation)
	}
	return nil
}
