// Package config loads the colorize configuration file and colorscheme
// files.
//
// Configuration is layered: built-in defaults, then
// $XDG_CONFIG_HOME/colorizer/config.toml if it exists, then an explicit file
// given on the command line. Each layer overrides only the keys it sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/gogpu/colorize/internal/colorspace"
	"github.com/gogpu/colorize/internal/palette"
)

// AppName is the directory name under the XDG config home.
const AppName = "colorizer"

var (
	// ErrUnknownKey is returned when a config file sets a key colorize does
	// not know.
	ErrUnknownKey = errors.New("config: unknown key")

	// ErrColorschemeNotFound is returned when a colorscheme is neither a file
	// in the config directory nor built in.
	ErrColorschemeNotFound = errors.New("config: colorscheme not found")
)

// File is the content of config.toml.
type File struct {
	BlendFactor            float32 `toml:"blend_factor"`
	Colorscheme            string  `toml:"colorscheme"`
	InterpolationThreshold float32 `toml:"interpolation_threshold"`
	DitherAmount           float32 `toml:"dither_amount"`
	SpatialRadius          int     `toml:"spatial_averaging_radius"`

	// Concurrency bounds the images processed at once. 0 means GOMAXPROCS.
	Concurrency int `toml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		BlendFactor:            0.9,
		Colorscheme:            "kanagawa",
		InterpolationThreshold: 2.5,
		DitherAmount:           0.1,
		SpatialRadius:          10,
	}
}

// Dir returns the colorize config directory, $XDG_CONFIG_HOME/colorizer.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// LoadDir layers the defaults, the config.toml in dir (usually Dir) and
// explicit. An empty explicit path is skipped; a non-empty one must exist.
func LoadDir(dir, explicit string) (File, error) {
	f := Default()

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(path, &f); err != nil {
			return File{}, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return File{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if explicit != "" {
		if err := decodeFile(explicit, &f); err != nil {
			return File{}, err
		}
	}
	return f, nil
}

// decodeFile decodes path over f, leaving keys it does not set untouched.
func decodeFile(path string, f *File) error {
	md, err := toml.DecodeFile(filepath.Clean(path), f)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w %q in %s", ErrUnknownKey, undecoded[0].String(), path)
	}
	return nil
}

type colorschemeFile struct {
	Colors []string `toml:"colors"`
}

// LoadColorscheme resolves a colorscheme by name: <dir>/<name>.toml with a
// `colors = ["#rrggbb", ...]` array if it exists, otherwise a built-in
// scheme.
func LoadColorscheme(name, dir string) ([]colorspace.RGB, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: invalid name %q", ErrColorschemeNotFound, name)
	}

	path := filepath.Join(dir, name+".toml")
	var hexes []string
	switch _, err := os.Stat(path); {
	case err == nil:
		var cs colorschemeFile
		if _, err := toml.DecodeFile(path, &cs); err != nil {
			return nil, fmt.Errorf("config: colorscheme %s: %w", path, err)
		}
		if len(cs.Colors) == 0 {
			return nil, fmt.Errorf("config: colorscheme %s: %w", path, palette.ErrEmptyPalette)
		}
		hexes = cs.Colors
	case errors.Is(err, os.ErrNotExist):
		hexes, err = palette.Builtin(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q (no %s, built-in: %s): %w", ErrColorschemeNotFound,
				name, path, strings.Join(palette.BuiltinNames(), ", "), err)
		}
	default:
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	colors, err := palette.ParseHexList(hexes)
	if err != nil {
		return nil, fmt.Errorf("config: colorscheme %q: %w", name, err)
	}
	return colors, nil
}
