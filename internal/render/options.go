// Package render draws binned hexagon tables as static figures (gonum/plot)
// and interactive HTML charts (go-echarts).
package render

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hextiles/internal/hexbin"
)

// DefaultMaxScale is the largest tile scale used when a size column is
// set.
const DefaultMaxScale = 0.9

// DefaultAssetsHost serves the echarts javascript.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ErrUnknownFormat is returned for image formats the renderer cannot
// write.
var ErrUnknownFormat = errors.New("unknown image format")

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	PDF Format = "pdf"
)

// ParseFormat accepts png, svg and pdf, with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(s), "."))
	switch f {
	case PNG, SVG, PDF:
		return f, nil
	case "":
		return PNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case SVG:
		return "image/svg+xml"
	case PDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Options controls how a table is drawn.
type Options struct {
	Title  string
	XLabel string
	YLabel string

	Colormap string
	// ColorIndex names the value column mapped to colour. Empty selects
	// the first value column.
	ColorIndex string
	// SizeIndex optionally names a value column mapped to tile scale.
	SizeIndex string
	MaxScale  float64
	// ColorRange fixes the colour map bounds, e.g. across stack frames.
	ColorRange *hexbin.Range
	// MinCount mirrors the binning threshold. At or below zero it lowers
	// the colour map bound and paints the background with the lowest
	// colour so that empty cells read as zero.
	MinCount *float64

	// Static figure size.
	Width  vg.Length
	Height vg.Length

	// HTML chart size in pixels.
	PixelWidth  int
	PixelHeight int
	AssetsHost  string
}

// DefaultOptions returns an 8x6 inch viridis figure.
func DefaultOptions() Options {
	return Options{
		Colormap:    DefaultColormap,
		MaxScale:    DefaultMaxScale,
		Width:       8 * vg.Inch,
		Height:      6 * vg.Inch,
		PixelWidth:  900,
		PixelHeight: 700,
		AssetsHost:  DefaultAssetsHost,
		XLabel:      "x",
		YLabel:      "y",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Colormap == "" {
		o.Colormap = d.Colormap
	}
	if o.MaxScale <= 0 {
		o.MaxScale = d.MaxScale
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.PixelWidth <= 0 {
		o.PixelWidth = d.PixelWidth
	}
	if o.PixelHeight <= 0 {
		o.PixelHeight = d.PixelHeight
	}
	if o.AssetsHost == "" {
		o.AssetsHost = d.AssetsHost
	}
	return o
}

// colorColumn resolves the column used for colour.
func (o Options) colorColumn(t *hexbin.Table) (string, error) {
	if o.ColorIndex != "" {
		if t.ColumnIndex(o.ColorIndex) < 2 {
			return "", fmt.Errorf("%w: %q", hexbin.ErrUnknownColumn, o.ColorIndex)
		}
		return o.ColorIndex, nil
	}
	cols := t.ValueColumns()
	if len(cols) == 0 {
		return "", fmt.Errorf("%w: table has no value columns", hexbin.ErrUnknownColumn)
	}
	return cols[0], nil
}

// zeroFloor reports whether empty cells should be drawn as the lowest
// colour.
func (o Options) zeroFloor() bool {
	return o.MinCount != nil && *o.MinCount <= 0
}

// tileStyle holds the per-row colour values and scales of a table.
type tileStyle struct {
	column string
	values []float64
	scales []float64
	bounds hexbin.Range
}

func styleTiles(t *hexbin.Table, o Options) (*tileStyle, error) {
	col, err := o.colorColumn(t)
	if err != nil {
		return nil, err
	}
	vals, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	s := &tileStyle{column: col, values: vals}

	if o.SizeIndex != "" {
		if t.ColumnIndex(o.SizeIndex) < 2 {
			return nil, fmt.Errorf("%w: size index %q", hexbin.ErrUnknownColumn, o.SizeIndex)
		}
		if s.scales, err = t.ScaleColumn(o.SizeIndex, o.MaxScale); err != nil {
			return nil, err
		}
	} else {
		s.scales = make([]float64, len(vals))
		for i := range s.scales {
			s.scales[i] = 1
		}
	}

	switch {
	case o.ColorRange != nil:
		s.bounds = *o.ColorRange
	default:
		r, ok, err := t.ValueRange(col)
		if err != nil {
			return nil, err
		}
		if !ok {
			r = hexbin.Range{Min: 0, Max: 1}
		}
		s.bounds = r
	}
	if o.zeroFloor() {
		s.bounds.Min = math.Min(s.bounds.Min, *o.MinCount)
	}
	if !(s.bounds.Max > s.bounds.Min) {
		s.bounds.Max = s.bounds.Min + 1
	}
	return s, nil
}

// StackColorRange returns the union of the colour column ranges of every
// frame so that frames share one colour scale.
func StackColorRange(stack []hexbin.StackFrame, o Options) (hexbin.Range, bool, error) {
	var (
		out   hexbin.Range
		found bool
	)
	for _, f := range stack {
		col, err := o.colorColumn(f.Table)
		if err != nil {
			return hexbin.Range{}, false, err
		}
		r, ok, err := f.Table.ValueRange(col)
		if err != nil {
			return hexbin.Range{}, false, err
		}
		if !ok {
			continue
		}
		if !found {
			out, found = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, found, nil
}
