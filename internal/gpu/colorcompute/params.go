// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/colorize/internal/colorspace"
)

const (
	// PartitionSize is the number of elements one scan workgroup covers.
	// Matches PARTITION_SIZE in scan.wgsl and propagate.wgsl.
	PartitionSize = 256

	// TileSize is the edge of the 16x16 workgroup used by per-pixel
	// kernels and transpose.
	TileSize = 16

	// CarryScale is the number of fractional units per integer unit in a
	// fixed-point carry cell.
	CarryScale = 65536

	// carryWords is the number of u32 words per carry cell: hi then lo.
	carryWords = 2

	// channels is the number of color channels carried per cell.
	channels = 3
)

// Pixel is one RGB (or Lab) sample in device buffers.
// Layout matches the WGSL struct Pixel { r: f32, g: f32, b: f32 }.
type Pixel struct {
	R, G, B float32
}

// PixelSize is the storage stride of Pixel in bytes.
const PixelSize = 12

// Add returns the component-wise sum.
func (p Pixel) Add(o Pixel) Pixel {
	return Pixel{p.R + o.R, p.G + o.G, p.B + o.B}
}

// Sub returns the component-wise difference.
func (p Pixel) Sub(o Pixel) Pixel {
	return Pixel{p.R - o.R, p.G - o.G, p.B - o.B}
}

// Scale multiplies every component by s.
func (p Pixel) Scale(s float32) Pixel {
	return Pixel{p.R * s, p.G * s, p.B * s}
}

func (p Pixel) channel(c int) float32 {
	switch c {
	case 0:
		return p.R
	case 1:
		return p.G
	default:
		return p.B
	}
}

// Params is the uniform shared by the closest and average kernels.
//
// This struct must match the WGSL Params struct: 6 consecutive 32-bit
// fields padded to 32 bytes.
type Params struct {
	Width         uint32
	Height        uint32
	BlendFactor   float32
	DitherAmount  float32
	SpatialRadius uint32

	// PaletteSize is the number of valid palette entries. Storage buffers
	// may be padded, so the closest kernel never derives it from the
	// buffer length.
	PaletteSize uint32
}

// ParamsSize is the padded uniform size of Params.
const ParamsSize = 32

// Bytes serializes Params in little-endian order.
func (p Params) Bytes() []byte {
	buf := make([]byte, ParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.Width)
	le.PutUint32(buf[4:8], p.Height)
	le.PutUint32(buf[8:12], math.Float32bits(p.BlendFactor))
	le.PutUint32(buf[12:16], math.Float32bits(p.DitherAmount))
	le.PutUint32(buf[16:20], p.SpatialRadius)
	le.PutUint32(buf[20:24], p.PaletteSize)
	return buf
}

// Pixels returns Width*Height.
func (p Params) Pixels() int {
	return int(p.Width) * int(p.Height)
}

// ScanParams is the uniform of the scan, propagate and transpose kernels.
//
// Width and Height are always the dimensions of the image. IsHorizontal
// selects the line geometry: 1 means lines are rows of a row-major buffer,
// 0 means lines are columns of a buffer stored transposed.
type ScanParams struct {
	Width        uint32
	Height       uint32
	IsHorizontal uint32
	Partitions   uint32
}

// ScanParamsSize is the uniform size of ScanParams.
const ScanParamsSize = 16

// NewScanParams returns the scan uniform for one orientation.
func NewScanParams(width, height uint32, horizontal bool) ScanParams {
	s := ScanParams{Width: width, Height: height}
	if horizontal {
		s.IsHorizontal = 1
	}
	s.Partitions = PartitionCount(s.LineLength())
	return s
}

// Bytes serializes ScanParams in little-endian order.
func (s ScanParams) Bytes() []byte {
	buf := make([]byte, ScanParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], s.Width)
	le.PutUint32(buf[4:8], s.Height)
	le.PutUint32(buf[8:12], s.IsHorizontal)
	le.PutUint32(buf[12:16], s.Partitions)
	return buf
}

// LineLength is the number of elements per line.
func (s ScanParams) LineLength() uint32 {
	if s.IsHorizontal != 0 {
		return s.Width
	}
	return s.Height
}

// Lines is the number of lines.
func (s ScanParams) Lines() uint32 {
	if s.IsHorizontal != 0 {
		return s.Height
	}
	return s.Width
}

// CarryWords returns the number of u32 words of the carry table.
func (s ScanParams) CarryWords() int {
	return int(s.Lines()) * int(s.Partitions) * channels * carryWords
}

// PartitionCount returns ceil(n / PartitionSize).
func PartitionCount(n uint32) uint32 {
	return (n + PartitionSize - 1) / PartitionSize
}

// carryIndex returns the word offset of the hi word of a carry cell.
func carryIndex(line, partition, partitions uint32, channel int) int {
	return ((int(line)*int(partitions)+int(partition))*channels + channel) * carryWords
}

// encodeCarry splits a non-negative value into integer and 1/CarryScale parts.
// Non-positive and NaN values encode as zero.
func encodeCarry(v float32) (hi, lo uint32) {
	if !(v > 0) {
		return 0, 0
	}
	whole := float32(math.Floor(float64(v)))
	return uint32(whole), uint32((v-whole)*CarryScale + 0.5)
}

// decodeCarry is the inverse of summing encodeCarry results.
func decodeCarry(hi, lo uint32) float32 {
	return float32(hi) + float32(lo)/CarryScale
}

// PixelsToBytes serializes pixels into storage layout.
func PixelsToBytes(px []Pixel) []byte {
	buf := make([]byte, len(px)*PixelSize)
	le := binary.LittleEndian
	for i, p := range px {
		o := i * PixelSize
		le.PutUint32(buf[o:], math.Float32bits(p.R))
		le.PutUint32(buf[o+4:], math.Float32bits(p.G))
		le.PutUint32(buf[o+8:], math.Float32bits(p.B))
	}
	return buf
}

// BytesToPixels decodes storage layout. Trailing partial pixels are ignored.
func BytesToPixels(buf []byte) []Pixel {
	px := make([]Pixel, len(buf)/PixelSize)
	le := binary.LittleEndian
	for i := range px {
		o := i * PixelSize
		px[i] = Pixel{
			R: math.Float32frombits(le.Uint32(buf[o:])),
			G: math.Float32frombits(le.Uint32(buf[o+4:])),
			B: math.Float32frombits(le.Uint32(buf[o+8:])),
		}
	}
	return px
}

// PaletteToBytes serializes Lab palette entries with the Pixel layout.
func PaletteToBytes(pal []colorspace.Lab) []byte {
	px := make([]Pixel, len(pal))
	for i, c := range pal {
		px[i] = Pixel{R: c.L, G: c.A, B: c.B}
	}
	return PixelsToBytes(px)
}
