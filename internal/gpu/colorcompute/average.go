// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"github.com/gogpu/colorize/internal/colorspace"
	"github.com/gogpu/colorize/internal/parallel"
)

// satAt reads the inclusive SAT value at (x, y). Index -1 on either axis is
// the implicit zero row or column.
func satAt(sat []Pixel, width int, x, y int) Pixel {
	if x < 0 || y < 0 {
		return Pixel{}
	}
	return sat[y*width+x]
}

// WindowSum returns the sum over the inclusive rectangle [x0,x1] x [y0,y1]
// using inclusion-exclusion on a row-major SAT.
func WindowSum(sat []Pixel, width int, x0, y0, x1, y1 int) Pixel {
	br := satAt(sat, width, x1, y1)
	tr := satAt(sat, width, x1, y0-1)
	bl := satAt(sat, width, x0-1, y1)
	tl := satAt(sat, width, x0-1, y0-1)
	return br.Sub(tr).Sub(bl).Add(tl)
}

// WindowAverage returns the mean over the square window of radius r centred
// at (x, y), clamped to the image.
func WindowAverage(sat []Pixel, width, height int, x, y, r int) Pixel {
	x0, y0 := max(x-r, 0), max(y-r, 0)
	x1, y1 := min(x+r, width-1), min(y+r, height-1)
	area := max((x1-x0+1)*(y1-y0+1), 1)
	return WindowSum(sat, width, x0, y0, x1, y1).Scale(1 / float32(area))
}

// TransferLuminance combines the lightness of orig with the chroma of avg
// and blends the result toward orig.
func TransferLuminance(orig, avg Pixel, blend float32) Pixel {
	o := colorspace.RGB(orig)
	lab := colorspace.RGBToLab(o)
	avgLab := colorspace.RGBToLab(colorspace.RGB(avg).Clamp())
	rgb := colorspace.LabToRGB(colorspace.Lab{L: lab.L, A: avgLab.A, B: avgLab.B})
	return Pixel(o.Mix(rgb, blend).Clamp())
}

// averageKernel mirrors average.wgsl.
func averageKernel(wg *parallel.Workgroup, p Params, in, sat, out []Pixel) {
	w, h, r := int(p.Width), int(p.Height), int(p.SpatialRadius)
	wg.Phase(func(local parallel.Grid) {
		g := wg.Global(local)
		if g.X >= p.Width || g.Y >= p.Height {
			return
		}
		idx := g.Y*p.Width + g.X
		avg := WindowAverage(sat, w, h, int(g.X), int(g.Y), r)
		out[idx] = TransferLuminance(in[idx], avg, p.BlendFactor)
	})
}
