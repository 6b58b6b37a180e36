package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/hextiles/internal/hexbin"
)

// colorBarWidth is the horizontal space reserved for the colour bar.
const colorBarWidth = 1.1 * vg.Inch

// HexTiles is a plot.Plotter that fills one hexagon per table row.
type HexTiles struct {
	Table    *hexbin.Table
	ColorMap palette.ColorMap

	// Values are the per-row colour values, Scales the per-row tile
	// scales. Both are as long as Table.Rows.
	Values []float64
	Scales []float64

	// LineStyle outlines each tile when its width is positive.
	LineStyle draw.LineStyle
}

// NewHexTiles prepares a plotter for t using the colour and size settings
// in o.
func NewHexTiles(t *hexbin.Table, o Options) (*HexTiles, error) {
	o = o.withDefaults()
	style, err := styleTiles(t, o)
	if err != nil {
		return nil, err
	}
	cm, err := LookupColormap(o.Colormap)
	if err != nil {
		return nil, err
	}
	cm.SetMin(style.bounds.Min)
	cm.SetMax(style.bounds.Max)
	return &HexTiles{
		Table:    t,
		ColorMap: cm,
		Values:   style.values,
		Scales:   style.scales,
	}, nil
}

// Plot implements plot.Plotter.
func (h *HexTiles) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	xsize, ysize := h.Table.Pitch()
	o := h.Table.Orientation

	for i, row := range h.Table.Rows {
		if h.Scales[i] <= 0 {
			continue
		}
		clr, ok := colorAt(h.ColorMap, h.Values[i])
		if !ok {
			continue
		}
		cx, cy := o.Center(row.Hex(), xsize, ysize)
		verts := o.Vertices(cx, cy, xsize, ysize, h.Scales[i])
		pts := make([]vg.Point, len(verts)+1)
		for k, v := range verts {
			pts[k] = vg.Point{X: trX(v[0]), Y: trY(v[1])}
		}
		pts[len(verts)] = pts[0]
		c.FillPolygon(clr, c.ClipPolygonXY(pts))
		if h.LineStyle.Width > 0 {
			c.StrokeLines(h.LineStyle, c.ClipLinesXY(pts)...)
		}
	}
}

// DataRange implements plot.DataRanger. It covers every full-size tile,
// not just the tile centres.
func (h *HexTiles) DataRange() (xmin, xmax, ymin, ymax float64) {
	if len(h.Table.Rows) == 0 {
		return h.Table.XRange.Min, h.Table.XRange.Max, h.Table.YRange.Min, h.Table.YRange.Max
	}
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	xsize, ysize := h.Table.Pitch()
	for _, c := range h.Table.Centers() {
		xmin = math.Min(xmin, c[0]-xsize)
		xmax = math.Max(xmax, c[0]+xsize)
		ymin = math.Min(ymin, c[1]-ysize)
		ymax = math.Max(ymax, c[1]+ysize)
	}
	return xmin, xmax, ymin, ymax
}

// Plots builds the tile plot and its colour bar.
func Plots(t *hexbin.Table, o Options) (tiles, bar *plot.Plot, err error) {
	o = o.withDefaults()
	h, err := NewHexTiles(t, o)
	if err != nil {
		return nil, nil, err
	}

	tiles = plot.New()
	tiles.Title.Text = o.Title
	tiles.X.Label.Text = o.XLabel
	tiles.Y.Label.Text = o.YLabel
	if o.zeroFloor() {
		if bg, ok := colorAt(h.ColorMap, h.ColorMap.Min()); ok {
			tiles.BackgroundColor = bg
		}
	}
	tiles.Add(h)

	col, _ := o.colorColumn(t)
	bar = plot.New()
	bar.HideX()
	bar.Y.Label.Text = col
	bar.Add(&plotter.ColorBar{ColorMap: h.ColorMap, Vertical: true, Colors: 256})
	return tiles, bar, nil
}

// Draw renders t onto c with the colour bar on the right.
func Draw(c draw.Canvas, t *hexbin.Table, o Options) error {
	tiles, bar, err := Plots(t, o)
	if err != nil {
		return err
	}
	width := c.Max.X - c.Min.X
	tiles.Draw(draw.Crop(c, 0, -colorBarWidth, 0, 0))
	bar.Draw(draw.Crop(c, width-colorBarWidth, 0, 0, 0))
	return nil
}

// WriteImage renders t as an image of the given format to w.
func WriteImage(w io.Writer, t *hexbin.Table, o Options, f Format) error {
	o = o.withDefaults()
	cw, err := draw.NewFormattedCanvas(o.Width, o.Height, string(f))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	if err := Draw(draw.New(cw), t, o); err != nil {
		return err
	}
	if _, err := cw.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

// Swatch returns the fill colour for value v, transparent for NaN.
func (h *HexTiles) Swatch(v float64) color.Color {
	c, ok := colorAt(h.ColorMap, v)
	if !ok {
		return color.Transparent
	}
	return c
}
