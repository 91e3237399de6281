package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/colorize"
	"github.com/gogpu/colorize/internal/colorspace"
	"github.com/gogpu/colorize/internal/config"
	"github.com/gogpu/colorize/internal/imageio"
	"github.com/gogpu/colorize/internal/palette"
)

// errSomeFailed is returned when at least one input could not be processed.
var errSomeFailed = errors.New("colorize: some images failed")

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(c.App.ErrWriter, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// settings merges the layered config with the flags that were set.
func settings(c *cli.Context) (config.File, error) {
	cfg, err := config.LoadDir(c.String("config-dir"), c.String("config"))
	if err != nil {
		return config.File{}, err
	}
	if c.IsSet("colorscheme") {
		cfg.Colorscheme = c.String("colorscheme")
	}
	if c.IsSet("blend") {
		cfg.BlendFactor = float32(c.Float64("blend"))
	}
	if c.IsSet("threshold") {
		cfg.InterpolationThreshold = float32(c.Float64("threshold"))
	}
	if c.IsSet("dither") {
		cfg.DitherAmount = float32(c.Float64("dither"))
	}
	if c.IsSet("radius") {
		cfg.SpatialRadius = c.Int("radius")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	return cfg, nil
}

// colorscheme returns the colors to snap to and the name used in output
// file names.
func colorscheme(c *cli.Context, cfg config.File) ([]colorspace.RGB, string, error) {
	ref := c.String("palette-from")
	if ref == "" {
		colors, err := config.LoadColorscheme(cfg.Colorscheme, c.String("config-dir"))
		return colors, cfg.Colorscheme, err
	}

	img, _, err := imageio.Load(ref)
	if err != nil {
		return nil, "", err
	}
	colors, err := palette.Extract(img, c.Int("palette-size"))
	if err != nil {
		return nil, "", fmt.Errorf("palette from %s: %w", ref, err)
	}
	name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	return colors, name, nil
}

func run(c *cli.Context) error {
	logger := newLogger(c)
	colorize.SetLogger(logger)
	defer colorize.SetLogger(nil)

	cfg, err := settings(c)
	if err != nil {
		return err
	}
	colors, scheme, err := colorscheme(c, cfg)
	if err != nil {
		return err
	}

	opts := []colorize.Option{
		colorize.WithBlendFactor(cfg.BlendFactor),
		colorize.WithInterpolationThreshold(cfg.InterpolationThreshold),
		colorize.WithDitherAmount(cfg.DitherAmount),
		colorize.WithSpatialRadius(cfg.SpatialRadius),
	}
	if cfg.Concurrency > 0 {
		opts = append(opts, colorize.WithConcurrency(cfg.Concurrency))
	}
	if c.Bool("cpu") {
		opts = append(opts, colorize.WithCPU())
	}

	col, err := colorize.New(colors, opts...)
	if err != nil {
		return err
	}
	defer col.Close()

	device := "cpu"
	if a := colorize.RegisteredAccelerator(); a != nil && !c.Bool("cpu") {
		device = a.Name()
	}
	logger.Debug("colorscheme ready",
		"name", scheme,
		"colors", len(colors),
		"palette", len(col.Palette()),
		"device", device)

	outDir := c.String("output-dir")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	inputs := c.Args().Slice()
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var failed atomic.Int64
	var written atomic.Uint64
	start := time.Now()

	// Each task owns one image from decode to save, so at most limit
	// frames are resident.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, in := range inputs {
		g.Go(func() error {
			n, err := processImage(c.Context, logger, col, in, scheme, outDir)
			if err != nil {
				logger.Error("image failed", "input", in, "err", err)
				failed.Add(1)
				return nil
			}
			written.Add(uint64(n))
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("done",
		"images", fmt.Sprintf("%d/%d", int64(len(inputs))-failed.Load(), len(inputs)),
		"written", humanize.Bytes(written.Load()),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d", errSomeFailed, n, len(inputs))
	}
	return nil
}

// processImage loads, colorizes and saves one input and returns the size of
// the written file.
func processImage(ctx context.Context, logger *slog.Logger, col *colorize.Colorizer, in, scheme, outDir string) (int64, error) {
	img, format, err := imageio.Load(in)
	if err != nil {
		return 0, err
	}
	f := colorize.FrameFromImage(img)
	logger.Debug("loaded", "input", in, "format", format, "size", fmt.Sprintf("%dx%d", f.Width, f.Height))

	res, err := col.Colorize(ctx, f)
	if err != nil {
		return 0, err
	}

	out := imageio.OutputPath(in, scheme, outDir)
	if err := imageio.Save(out, res.Image()); err != nil {
		return 0, err
	}
	st, err := os.Stat(out)
	if err != nil {
		return 0, err
	}
	logger.Info("wrote", "output", out, "size", humanize.Bytes(uint64(st.Size())))
	return st.Size(), nil
}
