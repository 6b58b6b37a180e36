package hexbin

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidConfiguration reports a binning request that cannot be
	// satisfied, such as value aggregation without value dimensions.
	ErrInvalidConfiguration = errors.New("hexbin: invalid configuration")
	// ErrMismatchedLength reports sample columns of unequal length.
	ErrMismatchedLength = errors.New("hexbin: mismatched sample lengths")
	// ErrUnknownAggregator reports an aggregator name with no reducer.
	ErrUnknownAggregator = errors.New("hexbin: unknown aggregator")
	// ErrUnknownOrientation reports an unrecognised orientation name.
	ErrUnknownOrientation = errors.New("hexbin: unknown orientation")
	// ErrUnknownColumn reports a column name missing from a Table.
	ErrUnknownColumn = errors.New("hexbin: unknown column")
)

// DefaultGridSize is the number of bins along each axis when none is given.
const DefaultGridSize = 50

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max-Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Union returns the smallest range covering both r and o.
func (r Range) Union(o Range) Range {
	return Range{Min: math.Min(r.Min, o.Min), Max: math.Max(r.Max, o.Max)}
}

// GridSize holds the number of hexagonal bins along the x and y axes.
type GridSize struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Uniform returns a GridSize with n bins along both axes.
func Uniform(n int) GridSize { return GridSize{X: n, Y: n} }

func (g GridSize) validate() error {
	if g.X <= 0 || g.Y <= 0 {
		return fmt.Errorf("%w: gridsize must be positive, got %dx%d", ErrInvalidConfiguration, g.X, g.Y)
	}
	return nil
}

// Config controls a single aggregation.
type Config struct {
	GridSize    GridSize
	Orientation Orientation
	// Aggregator reduces each value dimension per cell. The zero value
	// counts samples.
	Aggregator Aggregator
	// MinCount, when set above 1, drops cells whose first value is
	// below it.
	MinCount *float64
	// XRange and YRange pin the extent used to derive the bin pitch.
	// When nil the extent of the finite samples is used.
	XRange *Range
	YRange *Range
}

// DefaultConfig returns a pointy 50x50 count configuration.
func DefaultConfig() Config {
	return Config{
		GridSize:    Uniform(DefaultGridSize),
		Orientation: Pointy,
		Aggregator:  Count,
	}
}

// Samples is an ordered set of (x, y) points with optional value
// dimensions. Values holds one column per entry of VDims, each as long as
// X.
type Samples struct {
	X      []float64
	Y      []float64
	VDims  []string
	Values [][]float64
}

// Len returns the number of samples.
func (s Samples) Len() int { return len(s.X) }

// Validate checks that every column has the same length and that each
// value dimension has a column.
func (s Samples) Validate() error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("%w: x has %d entries, y has %d", ErrMismatchedLength, len(s.X), len(s.Y))
	}
	if len(s.Values) != len(s.VDims) {
		return fmt.Errorf("%w: %d value dimensions but %d value columns", ErrMismatchedLength, len(s.VDims), len(s.Values))
	}
	for i, col := range s.Values {
		if len(col) != len(s.X) {
			return fmt.Errorf("%w: value dimension %q has %d entries, want %d", ErrMismatchedLength, s.VDims[i], len(col), len(s.X))
		}
	}
	return nil
}

// finite returns the indices of samples whose x and y are both finite.
func (s Samples) finite() []int {
	idx := make([]int, 0, len(s.X))
	for i := range s.X {
		if isFinite(s.X[i]) && isFinite(s.Y[i]) {
			idx = append(idx, i)
		}
	}
	return idx
}

// subset returns the samples at idx, keeping value columns in lockstep.
func (s Samples) subset(idx []int) Samples {
	out := Samples{
		X:      make([]float64, len(idx)),
		Y:      make([]float64, len(idx)),
		VDims:  s.VDims,
		Values: make([][]float64, len(s.Values)),
	}
	for j := range s.Values {
		out.Values[j] = make([]float64, len(idx))
	}
	for k, i := range idx {
		out.X[k] = s.X[i]
		out.Y[k] = s.Y[i]
		for j, col := range s.Values {
			out.Values[j][k] = col[i]
		}
	}
	return out
}

// Extent returns the x and y ranges of the finite samples. ok is false
// when there are none.
func (s Samples) Extent() (xr, yr Range, ok bool) {
	f := s.subset(s.finite())
	if f.Len() == 0 {
		return Range{}, Range{}, false
	}
	xr = Range{Min: floats.Min(f.X), Max: floats.Max(f.X)}
	yr = Range{Min: floats.Min(f.Y), Max: floats.Max(f.Y)}
	return xr, yr, true
}

// Pitch returns the per-axis hexagon size for the given extent. The 2/3
// factor converts a bin count into the centre-to-corner size of a
// hexagon.
func Pitch(g GridSize, xr, yr Range) (xsize, ysize float64) {
	xsize = (xr.Span() / float64(g.X)) * (2.0 / 3.0)
	ysize = (yr.Span() / float64(g.Y)) * (2.0 / 3.0)
	return xsize, ysize
}

// Bin aggregates samples onto a hexagonal grid.
//
// Non-finite coordinates are dropped. An empty sample set yields an empty
// Table whatever the aggregator. Requesting a value aggregator on
// non-empty samples without value dimensions returns an error wrapping
// ErrInvalidConfiguration, even when every sample is non-finite.
func Bin(s Samples, cfg Config) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.GridSize.validate(); err != nil {
		return nil, err
	}
	agg := cfg.Aggregator

	t := &Table{
		GridSize:    cfg.GridSize,
		Orientation: cfg.Orientation,
		Aggregator:  agg.String(),
		Rows:        []Row{},
	}
	if agg.IsCount() {
		t.Columns = []string{ColumnQ, ColumnR, CountColumn}
	} else {
		t.Columns = append([]string{ColumnQ, ColumnR}, s.VDims...)
	}
	if s.Len() == 0 {
		return t, nil
	}
	if !agg.IsCount() && len(s.VDims) == 0 {
		return nil, fmt.Errorf("%w: aggregating by %s requires at least one value dimension", ErrInvalidConfiguration, agg)
	}

	f := s.subset(s.finite())
	if f.Len() == 0 {
		return t, nil
	}

	xr, yr, _ := f.Extent()
	if cfg.XRange != nil {
		xr = *cfg.XRange
	}
	if cfg.YRange != nil {
		yr = *cfg.YRange
	}
	t.XRange, t.YRange = xr, yr
	xsize, ysize := Pitch(cfg.GridSize, xr, yr)

	cells := make(map[Hex][]int)
	for i := range f.X {
		h := coordsToHex(f.X[i], f.Y[i], cfg.Orientation, xsize, ysize)
		cells[h] = append(cells[h], i)
	}

	var buf []float64
	for h, members := range cells {
		row := Row{Q: h.Q, R: h.R}
		if agg.IsCount() {
			row.Values = []float64{float64(len(members))}
		} else {
			row.Values = make([]float64, len(f.Values))
			for j, col := range f.Values {
				buf = buf[:0]
				for _, i := range members {
					buf = append(buf, col[i])
				}
				row.Values[j] = agg.Reduce(buf)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	sort.Slice(t.Rows, func(a, b int) bool {
		if t.Rows[a].Q != t.Rows[b].Q {
			return t.Rows[a].Q < t.Rows[b].Q
		}
		return t.Rows[a].R < t.Rows[b].R
	})

	if cfg.MinCount != nil && *cfg.MinCount > 1 {
		t.Rows = filterMin(t.Rows, *cfg.MinCount)
	}
	return t, nil
}

func filterMin(rows []Row, min float64) []Row {
	kept := rows[:0]
	for _, row := range rows {
		if row.Values[0] >= min {
			kept = append(kept, row)
		}
	}
	return kept
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
