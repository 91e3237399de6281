//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/colorize/internal/gpu/colorcompute"
)

//go:embed shaders/colorspace.wgsl
var colorspaceShaderWGSL string

//go:embed shaders/closest.wgsl
var closestShaderWGSL string

//go:embed shaders/scan.wgsl
var scanShaderWGSL string

//go:embed shaders/propagate.wgsl
var propagateShaderWGSL string

//go:embed shaders/transpose.wgsl
var transposeShaderWGSL string

//go:embed shaders/average.wgsl
var averageShaderWGSL string

// kernelShaders indexes the kernel bodies by colorcompute.Kernel.
var kernelShaders = [colorcompute.KernelCount]*string{
	colorcompute.KernelClosest:   &closestShaderWGSL,
	colorcompute.KernelScan:      &scanShaderWGSL,
	colorcompute.KernelPropagate: &propagateShaderWGSL,
	colorcompute.KernelTranspose: &transposeShaderWGSL,
	colorcompute.KernelAverage:   &averageShaderWGSL,
}

// ShaderSource returns the complete WGSL module of a kernel: the color-space
// prelude followed by the kernel body. Returns "" for an unknown kernel.
func ShaderSource(k colorcompute.Kernel) string {
	if k < 0 || k >= colorcompute.KernelCount {
		return ""
	}
	return colorspaceShaderWGSL + "\n" + *kernelShaders[k]
}

// CompileShader translates a kernel to SPIR-V with naga.
func CompileShader(k colorcompute.Kernel) ([]byte, error) {
	src := ShaderSource(k)
	if src == "" {
		return nil, fmt.Errorf("colorize compute: unknown kernel %s", k)
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("colorize compute: compile %s: %w", k, err)
	}
	return spirv, nil
}
