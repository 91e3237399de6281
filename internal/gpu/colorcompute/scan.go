// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"sync/atomic"

	"github.com/gogpu/colorize/internal/parallel"
)

// scanKernel mirrors scan.wgsl. Workgroup (partition, line) computes the
// inclusive prefix sum of its 256 elements with a Hillis-Steele doubling scan
// in shared scratch, then its last lane adds the partition total into the
// carry cell of every later partition of the same line.
//
// Inputs must be non-negative; negative or NaN values are clamped to zero and
// reported through negative.
func scanKernel(wg *parallel.Workgroup, sp ScanParams, in, out []Pixel, carries []uint32, negative *atomic.Bool) {
	lineLen := sp.LineLength()
	partition := wg.ID.X
	line := wg.ID.Y
	base := line * lineLen

	var scratch, tmp [PartitionSize]Pixel

	wg.Phase(func(l parallel.Grid) {
		pos := partition*PartitionSize + l.X
		if pos >= lineLen {
			scratch[l.X] = Pixel{}
			return
		}
		v := in[base+pos]
		if !(v.R >= 0 && v.G >= 0 && v.B >= 0) {
			negative.Store(true)
			v = Pixel{max0(v.R), max0(v.G), max0(v.B)}
		}
		scratch[l.X] = v
	})

	for offset := uint32(1); offset < PartitionSize; offset <<= 1 {
		wg.Phase(func(l parallel.Grid) {
			v := scratch[l.X]
			if l.X >= offset {
				v = v.Add(scratch[l.X-offset])
			}
			tmp[l.X] = v
		})
		wg.Phase(func(l parallel.Grid) {
			scratch[l.X] = tmp[l.X]
		})
	}

	wg.Phase(func(l parallel.Grid) {
		pos := partition*PartitionSize + l.X
		if pos < lineLen {
			out[base+pos] = scratch[l.X]
		}
		if l.X != PartitionSize-1 {
			return
		}
		total := scratch[l.X]
		for c := range channels {
			hi, lo := encodeCarry(total.channel(c))
			if hi == 0 && lo == 0 {
				continue
			}
			for next := partition + 1; next < sp.Partitions; next++ {
				i := carryIndex(line, next, sp.Partitions, c)
				atomic.AddUint32(&carries[i], hi)
				atomic.AddUint32(&carries[i+1], lo)
			}
		}
	})
}

// propagateKernel mirrors propagate.wgsl: every element adds the decoded
// carry of its partition. Partition 0 has no upstream total.
func propagateKernel(wg *parallel.Workgroup, sp ScanParams, data []Pixel, carries []uint32) {
	partition := wg.ID.X
	if partition == 0 {
		return
	}
	line := wg.ID.Y
	lineLen := sp.LineLength()

	var vals [channels]float32
	for c := range channels {
		i := carryIndex(line, partition, sp.Partitions, c)
		vals[c] = decodeCarry(atomic.LoadUint32(&carries[i]), atomic.LoadUint32(&carries[i+1]))
	}
	carry := Pixel{vals[0], vals[1], vals[2]}

	wg.Phase(func(l parallel.Grid) {
		pos := partition*PartitionSize + l.X
		if pos < lineLen {
			idx := line*lineLen + pos
			data[idx] = data[idx].Add(carry)
		}
	})
}

func max0(v float32) float32 {
	if v > 0 {
		return v
	}
	return 0
}
