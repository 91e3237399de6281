// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"github.com/gogpu/colorize/internal/colorspace"
	"github.com/gogpu/colorize/internal/parallel"
)

// ClosestIndex returns the index of the palette entry nearest to c by squared
// Euclidean Lab distance. Ties resolve to the lowest index. The palette must
// not be empty.
func ClosestIndex(c colorspace.Lab, palette []colorspace.Lab) int {
	best := 0
	bestDist := c.DistanceSq(palette[0])
	for i := 1; i < len(palette); i++ {
		if d := c.DistanceSq(palette[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// ClosestPixel computes the closest-color output of one pixel at (x, y).
func ClosestPixel(px Pixel, x, y uint32, palette []colorspace.Lab, p Params) Pixel {
	orig := colorspace.RGB(px)
	lab := colorspace.RGBToLab(orig)

	match := palette[ClosestIndex(lab, palette)]
	candidate := colorspace.Lab{L: lab.L, A: match.A, B: match.B}
	candidate = candidate.Mix(lab, p.DitherAmount*DitherNoise(x, y))

	rgb := colorspace.LabToRGB(candidate)
	return Pixel(orig.Mix(rgb, p.BlendFactor).Clamp())
}

// closestKernel mirrors closest.wgsl: one lane per pixel, 16x16 tiles.
func closestKernel(wg *parallel.Workgroup, p Params, palette []colorspace.Lab, in, out []Pixel) {
	wg.Phase(func(local parallel.Grid) {
		g := wg.Global(local)
		if g.X >= p.Width || g.Y >= p.Height {
			return
		}
		idx := g.Y*p.Width + g.X
		out[idx] = ClosestPixel(in[idx], g.X, g.Y, palette, p)
	})
}
