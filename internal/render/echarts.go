package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/hextiles/internal/hexbin"
)

// plotFraction approximates the share of the chart width echarts leaves
// for the grid.
const plotFraction = 0.8

// hexSymbol returns an SVG path for a unit hexagon in the given
// orientation, usable as an echarts "path://" symbol.
func hexSymbol(o hexbin.Orientation) string {
	var b strings.Builder
	b.WriteString("path://")
	for i, v := range o.Vertices(0, 0, 1, 1, 1) {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		// SVG y runs downwards.
		fmt.Fprintf(&b, "%.4f,%.4f", v[0], -v[1])
	}
	b.WriteString(" Z")
	return b.String()
}

// Chart builds an interactive scatter chart with one hexagon symbol per
// table row. Each point carries x, y, the colour value and then every
// value column; the VisualMap colours by the third dimension.
func Chart(t *hexbin.Table, o Options) (*charts.Scatter, error) {
	o = o.withDefaults()
	style, err := styleTiles(t, o)
	if err != nil {
		return nil, err
	}
	swatches, err := CSSColors(o.Colormap, 10)
	if err != nil {
		return nil, err
	}

	h := &HexTiles{Table: t}
	xmin, xmax, ymin, ymax := h.DataRange()
	xsize, ysize := t.Pitch()
	var pxX, pxY float64
	if xmax > xmin {
		pxX = float64(o.PixelWidth) * plotFraction / (xmax - xmin)
	}
	if ymax > ymin {
		pxY = float64(o.PixelHeight) * plotFraction / (ymax - ymin)
	}

	symbol := hexSymbol(t.Orientation)
	centers := t.Centers()
	cols := t.ValueColumns()
	data := make([]tileDatum, 0, len(t.Rows))
	for i, row := range t.Rows {
		value := make([]interface{}, 0, 3+len(row.Values))
		value = append(value, centers[i][0], centers[i][1], jsonFloat(style.values[i]))
		for _, v := range row.Values {
			value = append(value, jsonFloat(v))
		}
		data = append(data, tileDatum{
			Name:       tileName(row, cols),
			Value:      value,
			Symbol:     symbol,
			SymbolSize: tileSymbolSize(t.Orientation, xsize, ysize, style.scales[i], pxX, pxY),
		})
	}

	initOpts := opts.Initialization{
		PageTitle:  o.Title,
		Width:      fmt.Sprintf("%dpx", o.PixelWidth),
		Height:     fmt.Sprintf("%dpx", o.PixelHeight),
		AssetsHost: o.AssetsHost,
	}
	if o.zeroFloor() {
		initOpts.BackgroundColor = swatches[0]
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("%s tiles=%d", style.column, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xmin, Max: xmax, Name: o.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: ymin, Max: ymax, Name: o.YLabel, NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(style.bounds.Min),
			Max:        float32(style.bounds.Max),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: swatches},
		}),
	)
	scatter.AddSeries(style.column, nil)
	// opts.ScatterData only takes a square symbol size.
	scatter.MultiSeries[len(scatter.MultiSeries)-1].Data = data
	return scatter, nil
}

// tileDatum is one scatter point with a [width, height] symbol size.
type tileDatum struct {
	Name       string        `json:"name,omitempty"`
	Value      []interface{} `json:"value"`
	Symbol     string        `json:"symbol,omitempty"`
	SymbolSize [2]int        `json:"symbolSize"`
}

// tileSymbolSize returns the pixel bounding box of one tile. echarts
// stretches a path symbol to fill this box, so the hexagon keeps the
// table's aspect on screen.
func tileSymbolSize(o hexbin.Orientation, xsize, ysize, scale, pxX, pxY float64) [2]int {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, v := range o.Vertices(0, 0, xsize, ysize, scale) {
		xmin, xmax = math.Min(xmin, v[0]), math.Max(xmax, v[0])
		ymin, ymax = math.Min(ymin, v[1]), math.Max(ymax, v[1])
	}
	px := func(span, perUnit float64) int {
		n := int(math.Round(span * perUnit))
		if n < 1 {
			return 1
		}
		return n
	}
	return [2]int{px(xmax-xmin, pxX), px(ymax-ymin, pxY)}
}

// WriteHTML renders t as a standalone HTML chart.
func WriteHTML(w io.Writer, t *hexbin.Table, o Options) error {
	scatter, err := Chart(t, o)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteStackHTML renders every frame of a stack on one page. Frames share
// a colour scale unless o.ColorRange is already set.
func WriteStackHTML(w io.Writer, stack []hexbin.StackFrame, o Options) error {
	o = o.withDefaults()
	if o.ColorRange == nil {
		r, ok, err := StackColorRange(stack, o)
		if err != nil {
			return err
		}
		if ok {
			o.ColorRange = &r
		}
	}

	page := components.NewPage()
	page.SetAssetsHost(o.AssetsHost)
	for _, f := range stack {
		fo := o
		fo.Title = frameTitle(o.Title, f.Key)
		scatter, err := Chart(f.Table, fo)
		if err != nil {
			return fmt.Errorf("frame %q: %w", f.Key, err)
		}
		page.AddCharts(scatter)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func frameTitle(title, key string) string {
	if title == "" {
		return key
	}
	return title + " " + key
}

func tileName(row hexbin.Row, cols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%d r=%d", row.Q, row.R)
	for i, c := range cols {
		fmt.Fprintf(&b, " %s=%g", c, row.Values[i])
	}
	return b.String()
}

// jsonFloat maps non-finite values to nil, which echarts treats as
// missing.
func jsonFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
