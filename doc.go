// Package colorize snaps images onto a colorscheme while keeping their
// perceptual luminance and local detail.
//
// A Colorizer interpolates the colorscheme into a palette once and then runs
// a three-pass pipeline per image:
//
//  1. Closest color. Every pixel keeps its own Lab lightness and takes the
//     a/b channels of the nearest palette entry, with a coordinate-hashed
//     dither and a blend toward the original.
//  2. Summed-area table. The pass 1 output is prefix-summed along rows and
//     then columns (scan, carry propagation and transpose, twice).
//  3. Spatial average. A square window around every pixel is averaged from
//     the table; the result takes its lightness from the original pixel and
//     is blended toward it.
//
// # Quick Start
//
//	colors, _ := palette.ParseHexList([]string{"#1f1f28", "#dcd7ba", "#7e9cd8"})
//	c, err := colorize.New(colors, colorize.WithSpatialRadius(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	out, err := c.Colorize(ctx, colorize.FrameFromImage(img))
//
// # Devices
//
// By default the pipeline runs on the CPU with a work-stealing worker pool.
// Importing the gpu package registers a GPU accelerator that runs the same
// stages as WGSL compute shaders:
//
//	import _ "github.com/gogpu/colorize/gpu"
//
// When no adapter is available, or the accelerator reports ErrFallbackToCPU,
// the CPU device is used transparently.
//
// # Logging
//
// colorize is silent by default. Call SetLogger to enable log/slog output.
package colorize
