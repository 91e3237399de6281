// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorize

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Frame is a flat pixel buffer exchanged with image I/O. Pixel (x, y) is
// Pix[x+y*Width]; len(Pix) == Width*Height.
type Frame struct {
	Width, Height int
	Pix           []Pixel
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]Pixel, width*height)}
}

// FrameFromImage converts img to a Frame. Alpha is discarded after
// un-premultiplying.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	f := NewFrame(b.Dx(), b.Dy())
	const inv = 1.0 / 255
	for y := range f.Height {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range f.Width {
			p := row[x*4:]
			f.Pix[x+y*f.Width] = Pixel{
				R: float32(p[0]) * inv,
				G: float32(p[1]) * inv,
				B: float32(p[2]) * inv,
			}
		}
	}
	return f
}

// Image converts the frame to an opaque NRGBA image, rounding each channel
// to the nearest 8-bit value.
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := range f.Height {
		for x := range f.Width {
			p := f.Pix[x+y*f.Width]
			img.SetNRGBA(x, y, color.NRGBA{R: to8(p.R), G: to8(p.G), B: to8(p.B), A: 0xff})
		}
	}
	return img
}

func (f *Frame) validate() error {
	if f == nil {
		return &ConfigError{Field: "Frame", Reason: "nil frame"}
	}
	if f.Width <= 0 || f.Height <= 0 {
		return &ConfigError{Field: "Frame", Reason: fmt.Sprintf("empty size %dx%d", f.Width, f.Height)}
	}
	if len(f.Pix) != f.Width*f.Height {
		return &ConfigError{
			Field:  "Frame",
			Reason: fmt.Sprintf("%d pixels for %dx%d", len(f.Pix), f.Width, f.Height),
		}
	}
	return nil
}

func to8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 0xff
	default:
		return uint8(v*255 + 0.5)
	}
}
