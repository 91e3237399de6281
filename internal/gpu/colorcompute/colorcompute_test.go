// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorcompute

import (
	"encoding/binary"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/colorize/internal/colorspace"
	"github.com/gogpu/colorize/internal/palette"
	"github.com/gogpu/colorize/internal/parallel"
)

func floatNear(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func pixelNear(a, b Pixel, eps float32) bool {
	return floatNear(a.R, b.R, eps) && floatNear(a.G, b.G, eps) && floatNear(a.B, b.B, eps)
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	pool := parallel.NewWorkerPool(4)
	t.Cleanup(pool.Close)
	return NewPipeline(pool)
}

func randomPixels(n int, seed uint64) []Pixel {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	px := make([]Pixel, n)
	for i := range px {
		px[i] = Pixel{r.Float32(), r.Float32(), r.Float32()}
	}
	return px
}

func blackWhite() palette.Palette {
	return palette.Palette{
		colorspace.RGBToLab(colorspace.RGB{R: 0, G: 0, B: 0}),
		colorspace.RGBToLab(colorspace.RGB{R: 1, G: 1, B: 1}),
	}
}

// --- Layout ---

func TestParamsBytes(t *testing.T) {
	p := Params{Width: 640, Height: 480, BlendFactor: 0.9, DitherAmount: 0.1, SpatialRadius: 10, PaletteSize: 37}
	b := p.Bytes()
	if len(b) != ParamsSize {
		t.Fatalf("len = %d, want %d", len(b), ParamsSize)
	}
	le := binary.LittleEndian
	if le.Uint32(b[0:]) != 640 || le.Uint32(b[4:]) != 480 || le.Uint32(b[16:]) != 10 {
		t.Errorf("integer fields not serialized correctly: % x", b)
	}
	if math.Float32frombits(le.Uint32(b[8:])) != 0.9 {
		t.Errorf("blend factor not serialized correctly")
	}
	if le.Uint32(b[20:]) != 37 {
		t.Errorf("palette size = %d, want 37", le.Uint32(b[20:]))
	}
	for i := 24; i < ParamsSize; i++ {
		if b[i] != 0 {
			t.Fatalf("padding byte %d = %d, want 0", i, b[i])
		}
	}
}

func TestScanParamsGeometry(t *testing.T) {
	rows := NewScanParams(600, 40, true)
	if rows.LineLength() != 600 || rows.Lines() != 40 || rows.Partitions != 3 {
		t.Errorf("rows = %+v, want length 600, 40 lines, 3 partitions", rows)
	}
	cols := NewScanParams(600, 40, false)
	if cols.LineLength() != 40 || cols.Lines() != 600 || cols.Partitions != 1 {
		t.Errorf("cols = %+v, want length 40, 600 lines, 1 partition", cols)
	}
	if got := rows.CarryWords(); got != 40*3*6 {
		t.Errorf("CarryWords = %d, want %d", got, 40*3*6)
	}
	if len(rows.Bytes()) != ScanParamsSize {
		t.Errorf("ScanParams bytes = %d, want %d", len(rows.Bytes()), ScanParamsSize)
	}
}

func TestPixelBytesRoundTrip(t *testing.T) {
	px := []Pixel{{0.25, 0.5, 1}, {-3, 7.5, 0}}
	b := PixelsToBytes(px)
	if len(b) != 2*PixelSize {
		t.Fatalf("len = %d", len(b))
	}
	got := BytesToPixels(b)
	if len(got) != 2 || got[0] != px[0] || got[1] != px[1] {
		t.Errorf("BytesToPixels = %v, want %v", got, px)
	}
}

func TestStageWorkgroups(t *testing.T) {
	const w, h = 600, 40
	tests := []struct {
		stage Stage
		want  parallel.Grid
	}{
		{StageClosest, parallel.Grid{X: 38, Y: 3}},
		{StageScanRows, parallel.Grid{X: 3, Y: 40}},
		{StagePropagateRows, parallel.Grid{X: 3, Y: 40}},
		{StageTransposeRows, parallel.Grid{X: 38, Y: 3}},
		{StageScanCols, parallel.Grid{X: 1, Y: 600}},
		{StagePropagateCols, parallel.Grid{X: 1, Y: 600}},
		{StageTransposeCols, parallel.Grid{X: 3, Y: 38}},
		{StageAverage, parallel.Grid{X: 38, Y: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			if got := tt.stage.Workgroups(w, h); got != tt.want {
				t.Errorf("Workgroups = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStageKernels(t *testing.T) {
	seen := map[Kernel]bool{}
	for s := Stage(0); s < StageCount; s++ {
		seen[s.Kernel()] = true
	}
	if len(seen) != int(KernelCount) {
		t.Errorf("stages use %d kernels, want %d", len(seen), KernelCount)
	}
	if Stage(99).String() != "Unknown(99)" {
		t.Errorf("unexpected name for invalid stage: %s", Stage(99))
	}
}

// --- Carry encoding ---

func TestCarryEncoding(t *testing.T) {
	tests := []struct {
		in   float32
		want float32
	}{
		{0, 0},
		{-5, 0},
		{float32(math.NaN()), 0},
		{1, 1},
		{0.5, 0.5},
		{255.75, 255.75},
		{123.456, 123.456},
	}
	for _, tt := range tests {
		hi, lo := encodeCarry(tt.in)
		if got := decodeCarry(hi, lo); !floatNear(got, tt.want, 1.0/CarryScale) {
			t.Errorf("decode(encode(%v)) = %v, want %v", tt.in, got, tt.want)
		}
	}

	// Sums of encodings decode to the sum.
	var hi, lo uint32
	var want float32
	for _, v := range []float32{0.9, 12.3, 0.999, 200.5} {
		h, l := encodeCarry(v)
		hi += h
		lo += l
		want += v
	}
	if got := decodeCarry(hi, lo); !floatNear(got, want, 4.0/CarryScale) {
		t.Errorf("accumulated carry = %v, want %v", got, want)
	}
}

// --- SAT builder ---

// TestScanAcrossPartitions checks that a line longer than one partition
// scans to the serial prefix sum.
func TestScanAcrossPartitions(t *testing.T) {
	p := newTestPipeline(t)

	for _, n := range []uint32{PartitionSize + 1, 700, 3 * PartitionSize} {
		src := randomPixels(int(n), uint64(n))

		// A single row: the SAT equals the row prefix sum.
		row, err := p.BuildSAT(src, n, 1)
		if err != nil {
			t.Fatalf("BuildSAT(%dx1): %v", n, err)
		}
		// A single column exercises the column scan.
		col, err := p.BuildSAT(src, 1, n)
		if err != nil {
			t.Fatalf("BuildSAT(1x%d): %v", n, err)
		}

		var sum [3]float64
		for i, v := range src {
			sum[0] += float64(v.R)
			sum[1] += float64(v.G)
			sum[2] += float64(v.B)
			want := Pixel{float32(sum[0]), float32(sum[1]), float32(sum[2])}
			if !pixelNear(row[i], want, 2e-3) {
				t.Fatalf("n=%d row[%d] = %v, want %v", n, i, row[i], want)
			}
			if !pixelNear(col[i], want, 2e-3) {
				t.Fatalf("n=%d col[%d] = %v, want %v", n, i, col[i], want)
			}
		}
	}
}

func TestSATMatchesBruteForce(t *testing.T) {
	p := newTestPipeline(t)
	const w, h = 37, 19
	src := randomPixels(w*h, 7)

	sat, err := p.BuildSAT(src, w, h)
	if err != nil {
		t.Fatalf("BuildSAT: %v", err)
	}
	for y := range h {
		for x := range w {
			var want Pixel
			for yy := 0; yy <= y; yy++ {
				for xx := 0; xx <= x; xx++ {
					want = want.Add(src[yy*w+xx])
				}
			}
			if got := sat[y*w+x]; !pixelNear(got, want, 1e-3) {
				t.Fatalf("sat(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestSATFullImageSum(t *testing.T) {
	p := newTestPipeline(t)
	const w, h = 300, 70
	src := randomPixels(w*h, 42)

	sat, err := p.BuildSAT(src, w, h)
	if err != nil {
		t.Fatalf("BuildSAT: %v", err)
	}

	var sum [3]float64
	for _, v := range src {
		sum[0] += float64(v.R)
		sum[1] += float64(v.G)
		sum[2] += float64(v.B)
	}
	got := WindowSum(sat, w, 0, 0, w-1, h-1)
	for c, g := range []float32{got.R, got.G, got.B} {
		tol := float32(sum[c] * 1e-4)
		if !floatNear(g, float32(sum[c]), tol) {
			t.Errorf("channel %d: SAT sum = %v, direct sum = %v", c, g, sum[c])
		}
	}
}

func TestSATRejectsNegativeInput(t *testing.T) {
	p := newTestPipeline(t)
	src := randomPixels(16, 1)
	src[5].G = -0.5

	if _, err := p.BuildSAT(src, 4, 4); !errors.Is(err, ErrNegativeAccumulation) {
		t.Errorf("BuildSAT error = %v, want ErrNegativeAccumulation", err)
	}
}

func TestBuildSATSizeMismatch(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.BuildSAT(make([]Pixel, 3), 2, 2); !errors.Is(err, ErrBufferSize) {
		t.Errorf("error = %v, want ErrBufferSize", err)
	}
}

// --- Closest color ---

func TestClosestIndexTieBreak(t *testing.T) {
	pal := []colorspace.Lab{{50, 10, 0}, {50, -10, 0}, {50, 10, 0}}
	if got := ClosestIndex(colorspace.Lab{L: 50}, pal); got != 0 {
		t.Errorf("ClosestIndex = %d, want first minimum 0", got)
	}
	if got := ClosestIndex(colorspace.Lab{L: 50, A: 9}, pal); got != 0 {
		t.Errorf("ClosestIndex = %d, want 0", got)
	}
	if got := ClosestIndex(colorspace.Lab{L: 50, A: -9}, pal); got != 1 {
		t.Errorf("ClosestIndex = %d, want 1", got)
	}
}

func TestClosestDeterministic(t *testing.T) {
	p := newTestPipeline(t)
	const w, h = 33, 17
	src := randomPixels(w*h, 3)
	params := Params{Width: w, Height: h, BlendFactor: 0.8, DitherAmount: 0.3, SpatialRadius: 2}

	a, err := p.Run(src, blackWhite(), params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := p.Run(src, blackWhite(), params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestDitherNoise(t *testing.T) {
	distinct := map[float32]bool{}
	for y := range uint32(8) {
		for x := range uint32(8) {
			v := DitherNoise(x, y)
			if v < 0 || v > 1 {
				t.Fatalf("DitherNoise(%d,%d) = %v outside [0,1]", x, y, v)
			}
			if v != DitherNoise(x, y) {
				t.Fatal("DitherNoise not reproducible")
			}
			distinct[v] = true
		}
	}
	if len(distinct) < 60 {
		t.Errorf("only %d distinct values in 64 positions", len(distinct))
	}
}

// --- Pipeline ---

func TestBlendZeroIsIdentity(t *testing.T) {
	p := newTestPipeline(t)
	const w, h = 20, 12
	src := randomPixels(w*h, 11)

	out, err := p.Run(src, blackWhite(), Params{Width: w, Height: h, DitherAmount: 0.5, SpatialRadius: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := range src {
		if !pixelNear(out[i], src[i], 1e-6) {
			t.Fatalf("pixel %d = %v, want input %v", i, out[i], src[i])
		}
	}
}

func TestBlendOneSubstitutes(t *testing.T) {
	pal := blackWhite()
	px := Pixel{0.8, 0.2, 0.1}
	got := ClosestPixel(px, 0, 0, pal, Params{BlendFactor: 1})

	lab := colorspace.RGBToLab(colorspace.RGB(px))
	want := Pixel(colorspace.LabToRGB(colorspace.Lab{L: lab.L}))
	if !pixelNear(got, want, 1e-6) {
		t.Errorf("ClosestPixel = %v, want %v", got, want)
	}
}

func TestRadiusZeroAverageIsPassOneValue(t *testing.T) {
	p := newTestPipeline(t)
	const w, h = 24, 18
	src := randomPixels(w*h, 5)
	params := Params{Width: w, Height: h, BlendFactor: 0.7, DitherAmount: 0.2}

	b := NewBuffers(src, w, h)
	if err := p.Dispatch(StageClosest, b, blackWhite(), params); err != nil {
		t.Fatal(err)
	}
	pass1 := append([]Pixel(nil), b.Output...)

	sat, err := p.BuildSAT(pass1, w, h)
	if err != nil {
		t.Fatal(err)
	}
	for y := range h {
		for x := range w {
			avg := WindowAverage(sat, w, h, x, y, 0)
			if !pixelNear(avg, pass1[y*w+x], 1e-3) {
				t.Fatalf("average at (%d,%d) = %v, want %v", x, y, avg, pass1[y*w+x])
			}
		}
	}
}

func TestWindowAverageClampsToImage(t *testing.T) {
	const w, h = 5, 4
	src := make([]Pixel, w*h)
	for i := range src {
		src[i] = Pixel{1, 0.5, 0.25}
	}
	p := newTestPipeline(t)
	sat, err := p.BuildSAT(src, w, h)
	if err != nil {
		t.Fatal(err)
	}
	// A constant image averages to itself for every radius and position.
	for _, r := range []int{0, 1, 3, 4} {
		for _, pt := range [][2]int{{0, 0}, {4, 3}, {2, 1}} {
			got := WindowAverage(sat, w, h, pt[0], pt[1], r)
			if !pixelNear(got, src[0], 1e-5) {
				t.Errorf("r=%d at %v: %v, want %v", r, pt, got, src[0])
			}
		}
	}
}

// TestEndToEnd2x2 snaps primaries and white onto a black/white palette.
func TestEndToEnd2x2(t *testing.T) {
	p := newTestPipeline(t)
	src := []Pixel{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	params := Params{Width: 2, Height: 2, BlendFactor: 1, DitherAmount: 0, SpatialRadius: 0}

	out, err := p.Run(src, blackWhite(), params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := range src {
		in := colorspace.RGBToLab(colorspace.RGB(src[i]))
		got := colorspace.RGBToLab(colorspace.RGB(out[i]))
		if !floatNear(got.L, in.L, 0.5) {
			t.Errorf("pixel %d: L = %v, want original %v", i, got.L, in.L)
		}
		if !floatNear(got.A, 0, 1) || !floatNear(got.B, 0, 1) {
			t.Errorf("pixel %d: chroma (%v, %v), want neutral", i, got.A, got.B)
		}
	}
	if !pixelNear(out[3], Pixel{1, 1, 1}, 1e-3) {
		t.Errorf("white pixel = %v, want white", out[3])
	}
}

func TestRunErrors(t *testing.T) {
	p := newTestPipeline(t)
	src := randomPixels(4, 1)

	if _, err := p.Run(src, nil, Params{Width: 2, Height: 2}); !errors.Is(err, palette.ErrEmptyPalette) {
		t.Errorf("empty palette: error = %v", err)
	}
	if _, err := p.Run(src, blackWhite(), Params{Width: 3, Height: 2}); !errors.Is(err, ErrBufferSize) {
		t.Errorf("size mismatch: error = %v", err)
	}
	if _, err := p.Run(nil, blackWhite(), Params{}); !errors.Is(err, ErrBufferSize) {
		t.Errorf("zero size: error = %v", err)
	}
}

func BenchmarkRun256(b *testing.B) {
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()
	p := NewPipeline(pool)
	src := randomPixels(256*256, 1)
	params := Params{Width: 256, Height: 256, BlendFactor: 0.9, DitherAmount: 0.1, SpatialRadius: 10}

	b.ResetTimer()
	for range b.N {
		if _, err := p.Run(src, blackWhite(), params); err != nil {
			b.Fatal(err)
		}
	}
}
