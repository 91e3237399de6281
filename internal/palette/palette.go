// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package palette resolves and densifies colorschemes.
//
// A colorscheme is a short list of device RGB colors. Interpolate converts it
// to Lab, orders it by lightness and fills perceptual gaps so that the
// closest-color pass never has to jump across a large CIEDE2000 distance.
package palette

import (
	"errors"
	"fmt"
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/colorize/internal/colorspace"
)

// Palette is an ordered, non-empty list of Lab colors. It is shared
// read-only by every image of a batch.
type Palette []colorspace.Lab

var (
	// ErrEmptyPalette is returned when a colorscheme has no colors.
	ErrEmptyPalette = errors.New("palette: colorscheme is empty")

	// ErrThreshold is returned for an interpolation threshold outside (0, 100].
	ErrThreshold = errors.New("palette: interpolation threshold out of range")
)

// MaxThreshold is the largest accepted interpolation threshold.
const MaxThreshold = 100

// Interpolate converts colors to Lab, sorts them by lightness and inserts
// evenly spaced Lab points between every adjacent pair whose CIEDE2000
// distance exceeds threshold. A pair at distance d receives ceil(d/threshold)-1
// extra points. The result is deterministic for a given input.
func Interpolate(colors []colorspace.RGB, threshold float32) (Palette, error) {
	if len(colors) == 0 {
		return nil, ErrEmptyPalette
	}
	if !(threshold > 0 && threshold <= MaxThreshold) {
		return nil, fmt.Errorf("%w: %v", ErrThreshold, threshold)
	}

	type entry struct {
		rgb colorful.Color
		lab colorspace.Lab
	}
	entries := make([]entry, len(colors))
	for i, c := range colors {
		c = c.Clamp()
		entries[i] = entry{
			rgb: colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)},
			lab: colorspace.RGBToLab(c),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].lab.L < entries[j].lab.L
	})

	out := make(Palette, 0, len(entries))
	for i := 0; i+1 < len(entries); i++ {
		a, b := entries[i], entries[i+1]
		out = append(out, a.lab)

		d := float32(Distance(a.rgb, b.rgb))
		if d <= threshold {
			continue
		}
		steps := int(math.Ceil(float64(d / threshold)))
		for s := 1; s < steps; s++ {
			out = append(out, a.lab.Mix(b.lab, float32(s)/float32(steps)))
		}
	}
	out = append(out, entries[len(entries)-1].lab)

	return out, nil
}

// Distance returns the CIEDE2000 color difference on the conventional
// 0-100 lightness scale.
func Distance(a, b colorful.Color) float64 {
	return a.DistanceCIEDE2000(b) * 100
}
