// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"fmt"

	"github.com/gogpu/colorize/internal/parallel"
)

// Kernel identifies one compute shader. Several stages share a kernel and
// differ only in their uniform and buffer bindings.
type Kernel int

const (
	KernelClosest Kernel = iota
	KernelScan
	KernelPropagate
	KernelTranspose
	KernelAverage

	// KernelCount is the number of distinct kernels.
	KernelCount
)

// String returns the shader name of the kernel.
func (k Kernel) String() string {
	switch k {
	case KernelClosest:
		return "closest"
	case KernelScan:
		return "scan"
	case KernelPropagate:
		return "propagate"
	case KernelTranspose:
		return "transpose"
	case KernelAverage:
		return "average"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Stage is one step of the pipeline in dispatch order.
type Stage int

const (
	// StageClosest snaps every pixel to the palette. input -> output.
	StageClosest Stage = iota

	// StageScanRows scans each row per partition. output -> satA, carriesRows.
	StageScanRows

	// StagePropagateRows adds upstream partition totals. satA in place.
	StagePropagateRows

	// StageTransposeRows stores rows as columns. satA -> satB.
	StageTransposeRows

	// StageScanCols scans each column per partition. satB -> satA, carriesCols.
	StageScanCols

	// StagePropagateCols adds upstream partition totals. satA in place.
	StagePropagateCols

	// StageTransposeCols restores row-major order. satA -> satB.
	StageTransposeCols

	// StageAverage transfers windowed chroma from the SAT. input, satB -> output.
	StageAverage

	// StageCount is the number of stages.
	StageCount
)

// String returns the human-readable name of the stage.
func (s Stage) String() string {
	switch s {
	case StageClosest:
		return "closest"
	case StageScanRows:
		return "scan_rows"
	case StagePropagateRows:
		return "propagate_rows"
	case StageTransposeRows:
		return "transpose_rows"
	case StageScanCols:
		return "scan_cols"
	case StagePropagateCols:
		return "propagate_cols"
	case StageTransposeCols:
		return "transpose_cols"
	case StageAverage:
		return "average"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Kernel returns the shader the stage runs.
func (s Stage) Kernel() Kernel {
	switch s {
	case StageClosest:
		return KernelClosest
	case StageScanRows, StageScanCols:
		return KernelScan
	case StagePropagateRows, StagePropagateCols:
		return KernelPropagate
	case StageTransposeRows, StageTransposeCols:
		return KernelTranspose
	default:
		return KernelAverage
	}
}

// Horizontal reports whether a SAT stage works on rows.
func (s Stage) Horizontal() bool {
	return s == StageScanRows || s == StagePropagateRows || s == StageTransposeRows
}

// ScanParams returns the scan uniform of a SAT stage for a width x height image.
func (s Stage) ScanParams(width, height uint32) ScanParams {
	return NewScanParams(width, height, s.Horizontal())
}

// WorkgroupSize returns the lanes per workgroup of a kernel.
func (k Kernel) WorkgroupSize() parallel.Grid {
	switch k {
	case KernelScan, KernelPropagate:
		return parallel.Grid{X: PartitionSize, Y: 1}
	default:
		return parallel.Grid{X: TileSize, Y: TileSize}
	}
}

// Workgroups returns the dispatch size of a stage for a width x height image.
//
//   - closest, average: ceil(W/16) x ceil(H/16)
//   - scan, propagate:  partitions x lines
//   - transpose:        ceil(lineLength/16) x ceil(lines/16)
func (s Stage) Workgroups(width, height uint32) parallel.Grid {
	switch s.Kernel() {
	case KernelClosest, KernelAverage:
		return parallel.Grid{X: ceilDiv(width, TileSize), Y: ceilDiv(height, TileSize)}
	case KernelScan, KernelPropagate:
		sp := s.ScanParams(width, height)
		return parallel.Grid{X: sp.Partitions, Y: sp.Lines()}
	default:
		sp := s.ScanParams(width, height)
		return parallel.Grid{X: ceilDiv(sp.LineLength(), TileSize), Y: ceilDiv(sp.Lines(), TileSize)}
	}
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}
