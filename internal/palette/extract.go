package palette

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/gogpu/colorize/internal/colorspace"
)

// Extract derives a colorscheme of at most n colors from a reference image
// with median cut quantization.
func Extract(img image.Image, n int) ([]colorspace.RGB, error) {
	if n <= 0 {
		return nil, fmt.Errorf("palette: extract %d colors: count must be positive", n)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyPalette
	}

	q := quantize.MedianCutQuantizer{AddTransparent: false}
	p := q.Quantize(make(color.Palette, 0, n), img)
	if len(p) == 0 {
		return nil, ErrEmptyPalette
	}

	out := make([]colorspace.RGB, 0, len(p))
	for _, c := range p {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		out = append(out, colorspace.RGB{
			R: float32(nc.R) / 255,
			G: float32(nc.G) / 255,
			B: float32(nc.B) / 255,
		})
	}
	return out, nil
}
