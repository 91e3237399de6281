// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package colorspace converts between device RGB, linear RGB, CIE XYZ and
// CIE Lab in single precision.
//
// The formulas and constants are mirrored one-to-one by the WGSL prelude
// (internal/gpu/shaders/colorspace.wgsl) that is prepended to
// every compute kernel, so host and device produce the same values.
package colorspace

import "math"

// RGB is a device (sRGB encoded) color with components nominally in [0,1].
// Components are not clamped on input.
type RGB struct {
	R, G, B float32
}

// XYZ is a CIE 1931 XYZ color relative to the D65 illuminant.
type XYZ struct {
	X, Y, Z float32
}

// Lab is a CIE L*a*b* color referenced to the D65 white point.
type Lab struct {
	L, A, B float32
}

// sRGB companding breakpoints.
const (
	srgbDecodeThreshold = 0.04045
	srgbEncodeThreshold = 0.0031308
	srgbLinearSlope     = 12.92
	srgbOffset          = 0.055
	srgbGamma           = 2.4
)

// CIE Lab transfer function breakpoints.
const (
	LabEpsilon = 0.008856
	LabKappa   = 903.3
)

// D65 reference white.
const (
	WhiteX = 0.950489
	WhiteY = 1.0
	WhiteZ = 1.088840
)

// rgbToXYZ is the linear sRGB to XYZ (D65) matrix, row major.
var rgbToXYZ = [9]float32{
	0.4124564, 0.3575761, 0.1804375,
	0.2126729, 0.7151522, 0.0721750,
	0.0193339, 0.1191920, 0.9503041,
}

// xyzToRGB is the inverse of rgbToXYZ.
var xyzToRGB = [9]float32{
	3.2404542, -1.5371385, -0.4985314,
	-0.9692660, 1.8760108, 0.0415560,
	0.0556434, -0.2040259, 1.0572252,
}

// SRGBToLinear decodes one sRGB component.
// Formula: if s <= 0.04045: s/12.92; else: pow((s+0.055)/1.055, 2.4)
func SRGBToLinear(s float32) float32 {
	if s <= srgbDecodeThreshold {
		return s / srgbLinearSlope
	}
	return float32(math.Pow(float64((s+srgbOffset)/(1+srgbOffset)), srgbGamma))
}

// LinearToSRGB encodes one linear component.
// Formula: if l <= 0.0031308: l*12.92; else: 1.055*pow(l, 1/2.4)-0.055
func LinearToSRGB(l float32) float32 {
	if l <= srgbEncodeThreshold {
		return l * srgbLinearSlope
	}
	return (1+srgbOffset)*float32(math.Pow(float64(l), 1.0/srgbGamma)) - srgbOffset
}

// RGBToXYZ linearizes c and applies the D65 matrix.
func RGBToXYZ(c RGB) XYZ {
	r := SRGBToLinear(c.R)
	g := SRGBToLinear(c.G)
	b := SRGBToLinear(c.B)
	m := &rgbToXYZ
	return XYZ{
		X: m[0]*r + m[1]*g + m[2]*b,
		Y: m[3]*r + m[4]*g + m[5]*b,
		Z: m[6]*r + m[7]*g + m[8]*b,
	}
}

// XYZToRGB applies the inverse D65 matrix, re-encodes and clamps to [0,1].
func XYZToRGB(c XYZ) RGB {
	m := &xyzToRGB
	r := m[0]*c.X + m[1]*c.Y + m[2]*c.Z
	g := m[3]*c.X + m[4]*c.Y + m[5]*c.Z
	b := m[6]*c.X + m[7]*c.Y + m[8]*c.Z
	return RGB{
		R: Clamp01(LinearToSRGB(r)),
		G: Clamp01(LinearToSRGB(g)),
		B: Clamp01(LinearToSRGB(b)),
	}
}

func labF(t float32) float32 {
	if t > LabEpsilon {
		return float32(math.Cbrt(float64(t)))
	}
	return (LabKappa*t + 16) / 116
}

// XYZToLab converts relative to the D65 white point.
func XYZToLab(c XYZ) Lab {
	fx := labF(c.X / WhiteX)
	fy := labF(c.Y / WhiteY)
	fz := labF(c.Z / WhiteZ)
	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// LabToXYZ inverts XYZToLab.
func LabToXYZ(c Lab) XYZ {
	fy := (c.L + 16) / 116
	fx := c.A/500 + fy
	fz := fy - c.B/200

	var xr, yr, zr float32
	if fx3 := fx * fx * fx; fx3 > LabEpsilon {
		xr = fx3
	} else {
		xr = (116*fx - 16) / LabKappa
	}
	if c.L > LabKappa*LabEpsilon {
		yr = fy * fy * fy
	} else {
		yr = c.L / LabKappa
	}
	if fz3 := fz * fz * fz; fz3 > LabEpsilon {
		zr = fz3
	} else {
		zr = (116*fz - 16) / LabKappa
	}
	return XYZ{X: xr * WhiteX, Y: yr * WhiteY, Z: zr * WhiteZ}
}

// RGBToLab converts a device color to Lab.
func RGBToLab(c RGB) Lab {
	return XYZToLab(RGBToXYZ(c))
}

// LabToRGB converts Lab to a device color clamped to [0,1].
func LabToRGB(c Lab) RGB {
	return XYZToRGB(LabToXYZ(c))
}

// Clamp01 clamps v to [0,1]. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp clamps every component of c to [0,1].
func (c RGB) Clamp() RGB {
	return RGB{R: Clamp01(c.R), G: Clamp01(c.G), B: Clamp01(c.B)}
}

// Mix returns a + (b-a)*t per component.
func (c RGB) Mix(b RGB, t float32) RGB {
	return RGB{
		R: c.R + (b.R-c.R)*t,
		G: c.G + (b.G-c.G)*t,
		B: c.B + (b.B-c.B)*t,
	}
}

// Mix returns a + (b-a)*t per component.
func (c Lab) Mix(b Lab, t float32) Lab {
	return Lab{
		L: c.L + (b.L-c.L)*t,
		A: c.A + (b.A-c.A)*t,
		B: c.B + (b.B-c.B)*t,
	}
}

// DistanceSq is the squared Euclidean distance in Lab space.
func (c Lab) DistanceSq(o Lab) float32 {
	dl := c.L - o.L
	da := c.A - o.A
	db := c.B - o.B
	return dl*dl + da*da + db*db
}
