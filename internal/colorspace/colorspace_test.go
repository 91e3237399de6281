package colorspace

import (
	"math"
	"testing"
)

func floatNear(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestSRGBCompandingEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		input float32
		want  float32
	}{
		{"black", 0.0, 0.0},
		{"white", 1.0, 1.0},
		{"threshold", 0.04045, 0.04045 / 12.92},
		{"mid gray", 0.5, float32(math.Pow((0.5+0.055)/1.055, 2.4))},
		{"negative stays linear", -0.1, -0.1 / 12.92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SRGBToLinear(tt.input)
			if !floatNear(got, tt.want, 1e-6) {
				t.Errorf("SRGBToLinear(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKnownLabValues(t *testing.T) {
	tests := []struct {
		name string
		in   RGB
		want Lab
	}{
		{"black", RGB{0, 0, 0}, Lab{0, 0, 0}},
		{"white", RGB{1, 1, 1}, Lab{100, 0, 0}},
		{"red", RGB{1, 0, 0}, Lab{53.24, 80.09, 67.20}},
		{"green", RGB{0, 1, 0}, Lab{87.73, -86.18, 83.18}},
		{"blue", RGB{0, 0, 1}, Lab{32.30, 79.19, -107.86}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RGBToLab(tt.in)
			if !floatNear(got.L, tt.want.L, 0.1) || !floatNear(got.A, tt.want.A, 0.2) || !floatNear(got.B, tt.want.B, 0.2) {
				t.Errorf("RGBToLab(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestRoundTripRGBLab walks a 17^3 grid of the RGB cube.
func TestRoundTripRGBLab(t *testing.T) {
	const maxError = 1e-4
	const steps = 16

	for ri := 0; ri <= steps; ri++ {
		for gi := 0; gi <= steps; gi++ {
			for bi := 0; bi <= steps; bi++ {
				in := RGB{float32(ri) / steps, float32(gi) / steps, float32(bi) / steps}
				out := LabToRGB(RGBToLab(in))
				if !floatNear(out.R, in.R, maxError) || !floatNear(out.G, in.G, maxError) || !floatNear(out.B, in.B, maxError) {
					t.Fatalf("round trip %v -> %v exceeds %v", in, out, maxError)
				}
			}
		}
	}
}

func TestRoundTripEightBit(t *testing.T) {
	const maxError = 1e-4
	for i := 0; i <= 255; i++ {
		v := float32(i) / 255
		in := RGB{v, 1 - v, v * 0.5}
		out := LabToRGB(RGBToLab(in))
		if !floatNear(out.R, in.R, maxError) || !floatNear(out.G, in.G, maxError) || !floatNear(out.B, in.B, maxError) {
			t.Errorf("round trip %v -> %v exceeds %v", in, out, maxError)
		}
	}
}

func TestLabToRGBClamps(t *testing.T) {
	tests := []struct {
		name string
		in   Lab
	}{
		{"out of gamut chroma", Lab{50, 200, -200}},
		{"negative lightness", Lab{-20, 0, 0}},
		{"over white", Lab{150, 0, 0}},
		{"nan", Lab{float32(math.NaN()), 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LabToRGB(tt.in)
			for _, c := range []float32{got.R, got.G, got.B} {
				if !(c >= 0 && c <= 1) {
					t.Errorf("LabToRGB(%v) = %v, component outside [0,1]", tt.in, got)
				}
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{-1, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{2, 1},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 1},
		{float32(math.Inf(-1)), 0},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMixEndpoints(t *testing.T) {
	a := Lab{10, 20, 30}
	b := Lab{50, -20, 0}
	if got := a.Mix(b, 0); got != a {
		t.Errorf("Mix(t=0) = %v, want %v", got, a)
	}
	if got := a.Mix(b, 1); got != b {
		t.Errorf("Mix(t=1) = %v, want %v", got, b)
	}
	if got := a.DistanceSq(b); got != 40*40+40*40+30*30 {
		t.Errorf("DistanceSq = %v", got)
	}
}
