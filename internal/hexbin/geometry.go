package hexbin

import "math"

// Center returns the data-space centre of cell h for the given hexagon
// size. It inverts the transform used by Bin.
func (o Orientation) Center(h Hex, xsize, ysize float64) (x, y float64) {
	m := o.inverse()
	q, r := float64(h.Q), float64(h.R)
	nx := m[0]*q + m[1]*r
	ny := m[2]*q + m[3]*r
	return nx * xsize, -ny * ysize
}

// Vertices returns the six corners of a hexagon centred on (x, y). scale
// shrinks or grows the tile relative to the full cell; 1 makes adjacent
// tiles touch.
func (o Orientation) Vertices(x, y, xsize, ysize, scale float64) [6][2]float64 {
	var pts [6][2]float64
	for i := range pts {
		a := (o.startAngle() + 60*float64(i)) * math.Pi / 180
		pts[i][0] = x + math.Cos(a)*xsize*scale
		pts[i][1] = y + math.Sin(a)*ysize*scale
	}
	return pts
}

// Layout describes how a table's tiles should be drawn.
type Layout struct {
	XSize float64 `json:"x_size"`
	YSize float64 `json:"y_size"`
	// Size is the hexagon size along the axis the orientation measures
	// it on: x for flat tiles, y for pointy ones.
	Size float64 `json:"size"`
	// AspectScale is YSize/XSize.
	AspectScale float64 `json:"aspect_scale"`
}

// Layout returns the tile geometry of t.
func (t *Table) Layout() Layout {
	xsize, ysize := t.Pitch()
	l := Layout{XSize: xsize, YSize: ysize, AspectScale: ysize / xsize}
	if t.Orientation == Flat {
		l.Size = xsize
	} else {
		l.Size = ysize
	}
	return l
}

// Centers returns the data-space centre of every row, in row order.
func (t *Table) Centers() [][2]float64 {
	xsize, ysize := t.Pitch()
	out := make([][2]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i][0], out[i][1] = t.Orientation.Center(row.Hex(), xsize, ysize)
	}
	return out
}

// ScaleColumn maps the named value column onto per-row tile scales in
// [0, maxScale], linearly between the column's minimum and maximum. When
// every value is equal each tile gets maxScale.
func (t *Table) ScaleColumn(name string, maxScale float64) ([]float64, error) {
	vals, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	r, ok, err := t.ValueRange(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		switch {
		case !ok || r.Span() == 0:
			out[i] = maxScale
		case !isFinite(v):
			out[i] = 0
		default:
			out[i] = (v - r.Min) / r.Span() * maxScale
		}
	}
	return out, nil
}
