//go:build !nogpu

package gpu

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/colorize/internal/gpu/colorcompute"
)

func TestShaderSourceIncludesPrelude(t *testing.T) {
	for k := colorcompute.Kernel(0); k < colorcompute.KernelCount; k++ {
		t.Run(k.String(), func(t *testing.T) {
			src := ShaderSource(k)
			if src == "" {
				t.Fatal("shader source is empty")
			}
			if !strings.Contains(src, "struct Pixel") {
				t.Error("missing color-space prelude")
			}
			if !strings.Contains(src, "fn main(") {
				t.Error("missing entry point main")
			}
		})
	}
}

func TestShaderSourceUnknownKernel(t *testing.T) {
	if got := ShaderSource(colorcompute.KernelCount); got != "" {
		t.Errorf("ShaderSource(KernelCount) = %d bytes, want empty", len(got))
	}
	if _, err := CompileShader(colorcompute.KernelCount); err == nil {
		t.Error("CompileShader(KernelCount) should fail")
	}
}

// The bind group layouts are built in Go; every binding declared in WGSL
// must have a layout entry.
func TestShaderBindingsMatchLayouts(t *testing.T) {
	for k := colorcompute.Kernel(0); k < colorcompute.KernelCount; k++ {
		t.Run(k.String(), func(t *testing.T) {
			src := *kernelShaders[k]
			entries := kernelBindGroupLayoutEntries(k)
			if got := strings.Count(src, "@binding("); got != len(entries) {
				t.Fatalf("WGSL declares %d bindings, layout has %d", got, len(entries))
			}
			for _, e := range entries {
				if !strings.Contains(src, fmt.Sprintf("@binding(%d)", e.Binding)) {
					t.Errorf("binding %d not declared in WGSL", e.Binding)
				}
			}
		})
	}
}

func TestShaderWorkgroupSizes(t *testing.T) {
	for k := colorcompute.Kernel(0); k < colorcompute.KernelCount; k++ {
		size := k.WorkgroupSize()
		want := fmt.Sprintf("@workgroup_size(%d, %d, 1)", size.X, size.Y)
		if !strings.Contains(*kernelShaders[k], want) {
			t.Errorf("%s: WGSL does not declare %s", k, want)
		}
	}
}

// The palette buffer may be padded past its last entry, so the closest loop
// is bounded by the uniform rather than by arrayLength alone.
func TestClosestShaderBoundsPaletteByUniform(t *testing.T) {
	src := ShaderSource(colorcompute.KernelClosest)
	if !strings.Contains(src, "min(params.palette_size, arrayLength(&palette_lab))") {
		t.Error("closest.wgsl does not bound the palette scan by params.palette_size")
	}

	// palette_size is the sixth word, matching Params.Bytes()[20:24].
	for _, k := range []colorcompute.Kernel{colorcompute.KernelClosest, colorcompute.KernelAverage} {
		src := ShaderSource(k)
		radius := strings.Index(src, "spatial_radius: u32,")
		size := strings.Index(src, "palette_size: u32,")
		pad := strings.Index(src, "_pad0: u32,")
		if radius < 0 || size < radius || pad < size {
			t.Errorf("%s: Params does not place palette_size after spatial_radius", k)
		}
	}
}

func TestShaderCompilation(t *testing.T) {
	for k := colorcompute.Kernel(0); k < colorcompute.KernelCount; k++ {
		t.Run(k.String(), func(t *testing.T) {
			spirvBytes, err := CompileShader(k)
			if err != nil {
				errStr := err.Error()
				if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				// Atomics are a known limitation in naga
				if strings.Contains(errStr, "lowering error") || strings.Contains(errStr, "atomic") {
					t.Skipf("Skipping: naga atomic/lowering limitation: %v", err)
				}
				t.Fatalf("failed to compile %s shader: %v", k, err)
			}

			if len(spirvBytes) < 4 {
				t.Fatal("SPIR-V too short")
			}
			magic := uint32(spirvBytes[0]) |
				uint32(spirvBytes[1])<<8 |
				uint32(spirvBytes[2])<<16 |
				uint32(spirvBytes[3])<<24
			if magic != 0x07230203 {
				t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", magic)
			}
		})
	}
}
