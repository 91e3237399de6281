// Command colorize snaps images onto a colorscheme.
//
//	colorize [flags] IMAGE...
//
// Each input is written next to itself (or into --output-dir) as
// <stem>_<colorscheme>.<ext>. Settings come from
// $XDG_CONFIG_HOME/colorizer/config.toml, an optional --config file and the
// flags, in increasing precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/colorize/internal/config"
	"github.com/gogpu/colorize/internal/palette"

	_ "github.com/gogpu/colorize/gpu" // enables GPU acceleration
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "colorize",
		Usage:     "apply a colorscheme to images",
		Version:   version,
		ArgsUsage: "IMAGE...",
		Description: "Blend factor [0-1]: higher values adhere more strictly to the colorscheme,\n" +
			"lower values make artifacts less visible. The colorscheme is the name of a\n" +
			"TOML file (colors = [\"#rrggbb\", ...]) in the config directory, or a\n" +
			"built-in scheme: " + strings.Join(palette.BuiltinNames(), ", ") + ".",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load an additional config `FILE`",
			},
			&cli.StringFlag{
				Name:    "config-dir",
				EnvVars: []string{"COLORIZE_CONFIG_DIR"},
				Value:   config.Dir(),
				Usage:   "directory holding config.toml and colorscheme files",
			},
			&cli.StringFlag{
				Name:    "colorscheme",
				Aliases: []string{"s"},
				Usage:   "colorscheme `NAME`, overrides the config",
			},
			&cli.StringFlag{
				Name:  "palette-from",
				Usage: "extract the colorscheme from a reference `IMAGE`",
			},
			&cli.IntFlag{
				Name:  "palette-size",
				Value: 16,
				Usage: "number of colors extracted by --palette-from",
			},
			&cli.Float64Flag{
				Name:    "blend",
				Aliases: []string{"b"},
				Usage:   "[0-1] blend factor, overrides the config",
			},
			&cli.Float64Flag{
				Name:    "threshold",
				Aliases: []string{"t"},
				Usage:   "(0-100] interpolation threshold, overrides the config",
			},
			&cli.Float64Flag{
				Name:    "dither",
				Aliases: []string{"d"},
				Usage:   "[0-1] dither amount, overrides the config",
			},
			&cli.IntFlag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "spatial averaging radius in pixels, overrides the config",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"j"},
				Usage:   "images processed at once (default GOMAXPROCS)",
			},
			&cli.BoolFlag{
				Name:  "cpu",
				Usage: "do not use the GPU",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "write results to `DIR` instead of next to the inputs",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "log debug output",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("colorize: no input images", 2)
			}
			if err := run(c); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}
