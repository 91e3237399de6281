// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorize

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/colorize/internal/colorspace"
	"github.com/gogpu/colorize/internal/gpu/colorcompute"
	"github.com/gogpu/colorize/internal/palette"
	"github.com/gogpu/colorize/internal/parallel"
)

// RGB is a colorscheme entry with channels in [0,1].
type RGB = colorspace.RGB

// Colorizer snaps frames onto one interpolated palette.
//
// A Colorizer is safe for concurrent use. The palette is computed once in New
// and shared read-only by every run.
type Colorizer struct {
	opts    options
	palette Palette
	pool    *parallel.WorkerPool
	cpu     *colorcompute.Pipeline
}

// Result is the outcome of one frame of a batch.
type Result struct {
	Frame *Frame
	Err   error
}

// New validates opts and interpolates colors into the palette. Invalid
// options and an empty colorscheme return a *ConfigError.
func New(colors []RGB, opts ...Option) (*Colorizer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	pal, err := palette.Interpolate(colors, o.threshold)
	if err != nil {
		return nil, &ConfigError{Field: "Colorscheme", Reason: "cannot build palette", Err: err}
	}
	pool := parallel.NewWorkerPool(o.concurrency)
	Logger().Debug("colorize: palette interpolated",
		"colors", len(colors),
		"palette", len(pal),
		"threshold", o.threshold,
		"cpu_workers", pool.Workers())

	return &Colorizer{
		opts:    o,
		palette: pal,
		pool:    pool,
		cpu:     colorcompute.NewPipeline(pool),
	}, nil
}

// Palette returns a copy of the interpolated palette.
func (c *Colorizer) Palette() Palette {
	return append(Palette(nil), c.palette...)
}

// Close stops the CPU worker pool. The registered accelerator is not closed.
func (c *Colorizer) Close() {
	c.pool.Close()
}

func (c *Colorizer) params(f *Frame) (colorcompute.Params, error) {
	if err := f.validate(); err != nil {
		return colorcompute.Params{}, err
	}
	if c.opts.spatialRadius > min(f.Width, f.Height) {
		return colorcompute.Params{}, &ConfigError{
			Field: "SpatialRadius",
			Reason: fmt.Sprintf("%d exceeds the smaller dimension of a %dx%d frame",
				c.opts.spatialRadius, f.Width, f.Height),
		}
	}
	return colorcompute.Params{
		Width:         uint32(f.Width),
		Height:        uint32(f.Height),
		BlendFactor:   c.opts.blendFactor,
		DitherAmount:  c.opts.ditherAmount,
		SpatialRadius: uint32(c.opts.spatialRadius),
		PaletteSize:   uint32(len(c.palette)),
	}, nil
}

// Colorize runs the pipeline over one frame and returns a new frame.
//
// The registered accelerator is tried first unless WithCPU was given. Only
// ErrFallbackToCPU moves the frame to the CPU device; any other accelerator
// failure is returned as a *DeviceError and the frame is not retried. The
// run itself is not cancellable; ctx is checked before it starts.
func (c *Colorizer) Colorize(ctx context.Context, f *Frame) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := c.params(f)
	if err != nil {
		return nil, err
	}

	out, ok, err := c.tryAccelerator(f, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		if out, err = c.cpu.Run(f.Pix, c.palette, params); err != nil {
			return nil, &DeviceError{Op: "cpu", Err: err}
		}
	}
	return &Frame{Width: f.Width, Height: f.Height, Pix: out}, nil
}

// tryAccelerator reports ok=false when the frame should run on the CPU.
func (c *Colorizer) tryAccelerator(f *Frame, params colorcompute.Params) ([]Pixel, bool, error) {
	if c.opts.forceCPU {
		return nil, false, nil
	}
	a := RegisteredAccelerator()
	if a == nil {
		return nil, false, nil
	}
	out, err := a.Colorize(f.Pix, c.palette, params)
	switch {
	case err == nil:
		return out, true, nil
	case errors.Is(err, ErrFallbackToCPU):
		Logger().Debug("colorize: accelerator declined, using CPU",
			"accelerator", a.Name(),
			"reason", err)
		return nil, false, nil
	}

	Logger().Warn("colorize: accelerator failed",
		"accelerator", a.Name(),
		"size", fmt.Sprintf("%dx%d", f.Width, f.Height),
		"err", err)
	var de *DeviceError
	if errors.As(err, &de) {
		return nil, false, err
	}
	return nil, false, &DeviceError{Op: a.Name(), Err: err}
}

// ColorizeBatch colorizes frames concurrently, at most WithConcurrency at a
// time. Results are in input order. A failing frame does not stop the
// others; frames not yet started when ctx is done report ctx.Err().
func (c *Colorizer) ColorizeBatch(ctx context.Context, frames []*Frame) []Result {
	results := make([]Result, len(frames))

	var g errgroup.Group
	g.SetLimit(c.opts.concurrency)
	for i, f := range frames {
		g.Go(func() error {
			out, err := c.Colorize(ctx, f)
			results[i] = Result{Frame: out, Err: err}
			if err != nil && ctx.Err() == nil {
				Logger().Warn("colorize: frame failed", "index", i, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
