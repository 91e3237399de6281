// Package gpu runs the colorize pipeline on a GPU through the gogpu/wgpu
// HAL.
//
// The kernels live in shaders/ as WGSL and are the device counterparts of
// the CPU kernels in colorcompute. Each run allocates its own buffers,
// records the eight stages as consecutive compute passes and reads the
// output back through a staging buffer:
//
//	closest -> scan rows -> propagate rows -> transpose
//	        -> scan cols -> propagate cols -> transpose -> average
//
// The package is excluded by the nogpu build tag.
package gpu
