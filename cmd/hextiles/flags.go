package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/banshee-data/hextiles/internal/config"
	"github.com/banshee-data/hextiles/internal/monitoring"
)

var errUsage = errors.New("usage")

// tileFlags are the binning and rendering flags shared by every command
// that reads samples.
type tileFlags struct {
	configPath  string
	gridSize    int
	gridSizeY   int
	orientation string
	aggregator  string
	minCount    float64
	vdims       string
	xCol        string
	yCol        string
	frameCol    string
	colormap    string
	sizeIndex   string
	maxScale    float64
	title       string
	debug       bool
}

// registerInput adds the flags needed to read and configure an input
// file.
func (f *tileFlags) registerInput(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "JSON settings file")
	fs.StringVar(&f.vdims, "vdims", "", "comma separated value columns")
	fs.StringVar(&f.xCol, "x", "x", "x column name")
	fs.StringVar(&f.yCol, "y", "y", "y column name")
	fs.StringVar(&f.frameCol, "frame-column", "frame", "column holding stack frame keys")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging")
}

// register adds the input flags plus the binning and rendering flags.
func (f *tileFlags) register(fs *flag.FlagSet) {
	f.registerInput(fs)
	fs.IntVar(&f.gridSize, "gridsize", 0, "number of bins along x (and y)")
	fs.IntVar(&f.gridSizeY, "gridsize-y", 0, "number of bins along y")
	fs.StringVar(&f.orientation, "orientation", "", "hexagon orientation: pointy or flat")
	fs.StringVar(&f.aggregator, "aggregator", "", "reduction applied per tile")
	fs.Float64Var(&f.minCount, "min-count", 0, "minimum first-column value a tile needs")
	fs.StringVar(&f.colormap, "colormap", "", "colour map name")
	fs.StringVar(&f.sizeIndex, "size-index", "", "value column scaling each tile")
	fs.Float64Var(&f.maxScale, "max-scale", 0, "largest tile scale when -size-index is set")
	fs.StringVar(&f.title, "title", "", "figure title")
}

// overrides turns the flags that were set on the command line into a
// config layer.
func (f *tileFlags) overrides(fs *flag.FlagSet) *config.TilesConfig {
	o := config.EmptyTilesConfig()
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "gridsize":
			o.GridSize = &f.gridSize
		case "gridsize-y":
			o.GridSizeY = &f.gridSizeY
		case "orientation":
			o.Orientation = &f.orientation
		case "aggregator":
			o.Aggregator = &f.aggregator
		case "min-count":
			o.MinCount = &f.minCount
		case "colormap":
			o.Colormap = &f.colormap
		case "size-index":
			o.SizeIndex = &f.sizeIndex
		case "max-scale":
			o.MaxScale = &f.maxScale
		case "title":
			o.Title = &f.title
		}
	})
	return o
}

// settings loads the config file, layers the command-line overrides on
// top and validates the result.
func (f *tileFlags) settings(a *app, fs *flag.FlagSet) (*config.TilesConfig, error) {
	monitoring.SetDebug(f.debug)

	base := config.EmptyTilesConfig()
	switch {
	case f.configPath != "":
		cfg, err := config.LoadTilesConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		base = cfg
	case a.fs.Exists(config.DefaultConfigPath):
		cfg, err := config.LoadTilesConfig(config.DefaultConfigPath)
		if err != nil {
			return nil, err
		}
		base = cfg
	}

	cfg := base.Merge(f.overrides(fs))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	monitoring.Debugf("settings: gridsize=%dx%d orientation=%s aggregator=%s",
		cfg.GetGridSize(), cfg.GetGridSizeY(), cfg.GetOrientation(), cfg.GetAggregator())
	return cfg, nil
}

func (f *tileFlags) csvColumns() csvColumns {
	c := csvColumns{x: f.xCol, y: f.yCol, frame: f.frameCol}
	if f.vdims != "" {
		for _, v := range strings.Split(f.vdims, ",") {
			if v = strings.TrimSpace(v); v != "" {
				c.vdims = append(c.vdims, v)
			}
		}
	}
	return c
}

// parseFlags parses args, marking malformed flags as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// inputArg returns the single positional input file.
func inputArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: expected one input file, got %d", errUsage, fs.NArg())
	}
	return fs.Arg(0), nil
}
