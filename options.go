package colorize

import (
	"fmt"
	"runtime"

	"github.com/gogpu/colorize/internal/palette"
)

// Default option values.
const (
	DefaultBlendFactor            = 0.9
	DefaultInterpolationThreshold = 2.5
	DefaultDitherAmount           = 0.1
	DefaultSpatialRadius          = 10
)

// Option configures a Colorizer during creation.
//
// Example:
//
//	c, err := colorize.New(colors,
//	    colorize.WithBlendFactor(0.8),
//	    colorize.WithSpatialRadius(4),
//	)
type Option func(*options)

type options struct {
	blendFactor   float32
	threshold     float32
	ditherAmount  float32
	spatialRadius int
	concurrency   int
	forceCPU      bool
}

func defaultOptions() options {
	return options{
		blendFactor:   DefaultBlendFactor,
		threshold:     DefaultInterpolationThreshold,
		ditherAmount:  DefaultDitherAmount,
		spatialRadius: DefaultSpatialRadius,
		concurrency:   runtime.GOMAXPROCS(0),
	}
}

// WithBlendFactor sets how far each pass moves a pixel from the original
// toward the palette. 0 keeps the input, 1 substitutes fully. Range [0,1].
func WithBlendFactor(f float32) Option {
	return func(o *options) {
		o.blendFactor = f
	}
}

// WithInterpolationThreshold sets the CIEDE2000 distance above which extra
// colors are inserted between adjacent colorscheme entries. Range (0,100].
func WithInterpolationThreshold(t float32) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithDitherAmount sets the strength of the coordinate-hashed dither that
// pulls the closest-color candidate back toward the original. Range [0,1].
func WithDitherAmount(d float32) Option {
	return func(o *options) {
		o.ditherAmount = d
	}
}

// WithSpatialRadius sets the half-size of the averaging window. The window
// is (2r+1) x (2r+1) pixels clamped to the image. r must not exceed the
// smaller image dimension; this is checked per frame.
func WithSpatialRadius(r int) Option {
	return func(o *options) {
		o.spatialRadius = r
	}
}

// WithConcurrency bounds the number of images processed at once by
// ColorizeBatch and sizes the CPU worker pool. Defaults to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithCPU disables the registered accelerator for this Colorizer.
func WithCPU() Option {
	return func(o *options) {
		o.forceCPU = true
	}
}

func (o *options) validate() error {
	if !(o.blendFactor >= 0 && o.blendFactor <= 1) {
		return &ConfigError{Field: "BlendFactor", Reason: fmt.Sprintf("%v not in [0,1]", o.blendFactor)}
	}
	if !(o.threshold > 0 && o.threshold <= palette.MaxThreshold) {
		return &ConfigError{Field: "InterpolationThreshold", Reason: fmt.Sprintf("%v not in (0,100]", o.threshold)}
	}
	if !(o.ditherAmount >= 0 && o.ditherAmount <= 1) {
		return &ConfigError{Field: "DitherAmount", Reason: fmt.Sprintf("%v not in [0,1]", o.ditherAmount)}
	}
	if o.spatialRadius < 0 {
		return &ConfigError{Field: "SpatialRadius", Reason: fmt.Sprintf("%d is negative", o.spatialRadius)}
	}
	if o.concurrency < 1 {
		return &ConfigError{Field: "Concurrency", Reason: fmt.Sprintf("%d is less than 1", o.concurrency)}
	}
	return nil
}
