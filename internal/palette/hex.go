package palette

import (
	"errors"
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/colorize/internal/colorspace"
)

// ErrInvalidHex is returned for a color that is not a 3 or 6 digit hex code.
var ErrInvalidHex = errors.New("palette: invalid hex color")

// ParseHex parses "#rgb", "#rrggbb" or the same without '#'.
func ParseHex(s string) (colorspace.RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return colorspace.RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	c, err := colorful.Hex("#" + h)
	if err != nil {
		return colorspace.RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return colorspace.RGB{R: float32(c.R), G: float32(c.G), B: float32(c.B)}, nil
}

// ParseHexList parses every entry of list, stopping at the first error.
func ParseHexList(list []string) ([]colorspace.RGB, error) {
	out := make([]colorspace.RGB, 0, len(list))
	for i, s := range list {
		c, err := ParseHex(s)
		if err != nil {
			return nil, fmt.Errorf("color %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
