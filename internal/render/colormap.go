package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// DefaultColormap is used when no colour map is named.
const DefaultColormap = "viridis"

// ErrUnknownColormap is returned for colour map names with no definition.
var ErrUnknownColormap = errors.New("unknown colormap")

var (
	viridisStops = []string{
		"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	}
	plasmaStops = []string{
		"#0d0887", "#4b03a1", "#7d03a8", "#a82296", "#cb4679",
		"#e56b5d", "#f89441", "#fdc328", "#f0f921",
	}
	magmaStops = []string{
		"#000004", "#1c1044", "#4f127b", "#812581", "#b5367a",
		"#e55064", "#fb8761", "#fec287", "#fcfdbf",
	}
	greysStops = []string{"#ffffff", "#000000"}
)

var colormaps = map[string]func() palette.ColorMap{
	"viridis":            func() palette.ColorMap { return mustStops(viridisStops) },
	"plasma":             func() palette.ColorMap { return mustStops(plasmaStops) },
	"magma":              func() palette.ColorMap { return mustStops(magmaStops) },
	"greys":              func() palette.ColorMap { return mustStops(greysStops) },
	"kindlmann":          moreland.Kindlmann,
	"extended_kindlmann": moreland.ExtendedKindlmann,
	"blackbody":          moreland.BlackBody,
	"extended_blackbody": moreland.ExtendedBlackBody,
	"blue_red":           func() palette.ColorMap { return moreland.SmoothBlueRed() },
}

// Colormaps returns the names accepted by LookupColormap, sorted.
func Colormaps() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupColormap returns a fresh colour map spanning [0, 1]. An empty name
// selects DefaultColormap.
func LookupColormap(name string) (palette.ColorMap, error) {
	if name == "" {
		name = DefaultColormap
	}
	mk, ok := colormaps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownColormap, name, strings.Join(Colormaps(), ", "))
	}
	cm := mk()
	cm.SetMin(0)
	cm.SetMax(1)
	return cm, nil
}

// CSSColors samples n evenly spaced colours from the named map as
// "#rrggbb" strings, lowest first.
func CSSColors(name string, n int) ([]string, error) {
	if n < 2 {
		n = 2
	}
	cm, err := LookupColormap(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		c, err := cm.At(float64(i) / float64(n-1))
		if err != nil {
			return nil, err
		}
		cf, _ := colorful.MakeColor(c)
		out[i] = cf.Hex()
	}
	return out, nil
}

// colorAt clamps v into the map's range before looking it up. ok is false
// for NaN.
func colorAt(cm palette.ColorMap, v float64) (color.Color, bool) {
	if math.IsNaN(v) {
		return nil, false
	}
	v = math.Max(cm.Min(), math.Min(cm.Max(), v))
	c, err := cm.At(v)
	if err != nil {
		return nil, false
	}
	return c, true
}

// stopMap interpolates between evenly spaced colour stops in Lab space.
type stopMap struct {
	stops    []colorful.Color
	min, max float64
	alpha    float64
}

func newStopMap(hex []string) (*stopMap, error) {
	if len(hex) < 2 {
		return nil, fmt.Errorf("colormap needs at least 2 stops, got %d", len(hex))
	}
	m := &stopMap{stops: make([]colorful.Color, len(hex)), max: 1, alpha: 1}
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("stop %d: %w", i, err)
		}
		m.stops[i] = c
	}
	return m, nil
}

func mustStops(hex []string) palette.ColorMap {
	m, err := newStopMap(hex)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *stopMap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < m.min:
		return nil, palette.ErrUnderflow
	case v > m.max:
		return nil, palette.ErrOverflow
	}
	t := 0.0
	if m.max > m.min {
		t = (v - m.min) / (m.max - m.min)
	}
	pos := t * float64(len(m.stops)-1)
	i := int(pos)
	if i >= len(m.stops)-1 {
		i = len(m.stops) - 2
	}
	c := m.stops[i].BlendLab(m.stops[i+1], pos-float64(i)).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(m.alpha * 255))}, nil
}

func (m *stopMap) Max() float64       { return m.max }
func (m *stopMap) Min() float64       { return m.min }
func (m *stopMap) SetMax(v float64)   { m.max = v }
func (m *stopMap) SetMin(v float64)   { m.min = v }
func (m *stopMap) Alpha() float64     { return m.alpha }
func (m *stopMap) SetAlpha(a float64) { m.alpha = a }

func (m *stopMap) Palette(n int) palette.Palette {
	if n < 2 {
		n = 2
	}
	cols := make(colors, n)
	for i := range cols {
		v := m.min + (m.max-m.min)*float64(i)/float64(n-1)
		c, err := m.At(v)
		if err != nil {
			c = color.Transparent
		}
		cols[i] = c
	}
	return cols
}

type colors []color.Color

func (c colors) Colors() []color.Color { return c }
