// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package colorcompute is the CPU reference implementation of the colorize
// compute pipeline.
//
// The pipeline snaps an image onto a palette in three passes:
//
//  1. closest:   nearest palette color in Lab, luminance kept, dithered, blended
//  2. SAT:       scan rows, propagate carries, transpose, scan columns,
//     propagate carries, transpose back
//  3. average:   windowed mean chroma from the SAT, luminance of the original
//
// Every stage is written as a workgroup kernel with the same geometry, buffer
// layout and fixed-point carry encoding as the WGSL shaders in shaders/, so the
// CPU device and the GPU device produce the same values. Workgroups run on a
// parallel.WorkerPool; lanes of one workgroup run in lock-step phases.
package colorcompute
