package hexbin

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// pinned returns a config whose pitch is 4/3 on both axes.
func pinned(o Orientation) Config {
	cfg := DefaultConfig()
	cfg.GridSize = Uniform(5)
	cfg.Orientation = o
	cfg.XRange = &Range{Min: 0, Max: 10}
	cfg.YRange = &Range{Min: 0, Max: 10}
	return cfg
}

func gridHexes(n int) []Hex {
	var hs []Hex
	for q := -n; q <= n; q++ {
		for r := -n; r <= n; r++ {
			hs = append(hs, Hex{q, r})
		}
	}
	return hs
}

func centerSamples(o Orientation, hs []Hex, xsize, ysize float64) Samples {
	var s Samples
	for _, h := range hs {
		x, y := o.Center(h, xsize, ysize)
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
	}
	return s
}

func counts(t *testing.T, tbl *Table) map[Hex]float64 {
	t.Helper()
	out := make(map[Hex]float64, tbl.Len())
	for _, row := range tbl.Rows {
		require.Len(t, row.Values, 1)
		out[row.Hex()] = row.Values[0]
	}
	return out
}

func TestBin_Empty(t *testing.T) {
	t.Parallel()

	tbl, err := Bin(Samples{}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.NotNil(t, tbl.Rows)
	assert.Equal(t, []string{"q", "r", "Count"}, tbl.Columns)
}

func TestBin_AllNonFinite(t *testing.T) {
	t.Parallel()

	s := Samples{X: []float64{math.NaN(), 1}, Y: []float64{0, math.Inf(1)}}
	tbl, err := Bin(s, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestBin_RecoversCellCentres(t *testing.T) {
	t.Parallel()

	for _, o := range []Orientation{Pointy, Flat} {
		o := o
		t.Run(o.String(), func(t *testing.T) {
			t.Parallel()
			cfg := pinned(o)
			xsize, ysize := Pitch(cfg.GridSize, *cfg.XRange, *cfg.YRange)
			require.InDelta(t, 4.0/3.0, xsize, 1e-12)

			hs := gridHexes(3)
			tbl, err := Bin(centerSamples(o, hs, xsize, ysize), cfg)
			require.NoError(t, err)

			want := make(map[Hex]float64, len(hs))
			for _, h := range hs {
				want[h] = 1
			}
			if diff := cmp.Diff(want, counts(t, tbl)); diff != "" {
				t.Errorf("cells mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBin_StableNearCentre(t *testing.T) {
	t.Parallel()

	for _, o := range []Orientation{Pointy, Flat} {
		cfg := pinned(o)
		xsize, ysize := Pitch(cfg.GridSize, *cfg.XRange, *cfg.YRange)
		hs := gridHexes(2)
		var s Samples
		for _, h := range hs {
			cx, cy := o.Center(h, xsize, ysize)
			for _, d := range [][2]float64{{0, 0}, {0.2, 0}, {0, 0.2}, {-0.15, 0.15}} {
				s.X = append(s.X, cx+d[0]*xsize)
				s.Y = append(s.Y, cy+d[1]*ysize)
			}
		}
		tbl, err := Bin(s, cfg)
		require.NoError(t, err)
		assert.Equal(t, len(hs), tbl.Len(), o.String())
		for h, c := range counts(t, tbl) {
			assert.Equal(t, 4.0, c, "%s cell %v", o, h)
		}
	}
}

func TestBin_CountsRepeatedSamples(t *testing.T) {
	t.Parallel()

	s := Samples{
		X: []float64{0, 0, 0, 0, 0, 10},
		Y: []float64{0, 0, 0, 0, 0, 10},
	}
	cfg := DefaultConfig()
	cfg.GridSize = Uniform(5)
	tbl, err := Bin(s, cfg)
	require.NoError(t, err)

	row, ok := tbl.Lookup(Hex{0, 0})
	require.True(t, ok)
	assert.Equal(t, []float64{5}, row.Values)

	var total float64
	for _, row := range tbl.Rows {
		total += row.Values[0]
	}
	assert.Equal(t, 6.0, total)
}

func TestBin_MinCount(t *testing.T) {
	t.Parallel()

	cfg := pinned(Pointy)
	xsize, ysize := Pitch(cfg.GridSize, *cfg.XRange, *cfg.YRange)
	hs := []Hex{{0, 0}, {0, 0}, {1, 0}, {0, 1}, {0, 1}, {0, 1}}
	s := centerSamples(Pointy, hs, xsize, ysize)

	t.Run("threshold 2", func(t *testing.T) {
		cfg := cfg
		cfg.MinCount = ptr(2.0)
		tbl, err := Bin(s, cfg)
		require.NoError(t, err)
		assert.Equal(t, map[Hex]float64{{0, 0}: 2, {0, 1}: 3}, counts(t, tbl))
	})

	t.Run("threshold 1 keeps everything", func(t *testing.T) {
		cfg := cfg
		cfg.MinCount = ptr(1.0)
		tbl, err := Bin(s, cfg)
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.Len())
	})

	t.Run("unset", func(t *testing.T) {
		tbl, err := Bin(s, cfg)
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.Len())
	})
}

func TestBin_DropsNonFinite(t *testing.T) {
	t.Parallel()

	s := Samples{
		X: []float64{0, math.NaN(), 1, math.Inf(-1), 2, 3},
		Y: []float64{0, 1, math.NaN(), 2, 2, 3},
	}
	tbl, err := Bin(s, DefaultConfig())
	require.NoError(t, err)

	var total float64
	for _, row := range tbl.Rows {
		total += row.Values[0]
	}
	assert.Equal(t, 3.0, total)
	assert.Equal(t, Range{Min: 0, Max: 3}, tbl.XRange)
	assert.Equal(t, Range{Min: 0, Max: 3}, tbl.YRange)
}

func TestBin_ValueAggregation(t *testing.T) {
	t.Parallel()

	cfg := pinned(Flat)
	cfg.Aggregator = Sum
	xsize, ysize := Pitch(cfg.GridSize, *cfg.XRange, *cfg.YRange)
	s := centerSamples(Flat, []Hex{{0, 0}, {0, 0}, {0, 0}, {2, -1}}, xsize, ysize)
	s.X[1] = math.NaN()
	s.VDims = []string{"w", "z"}
	s.Values = [][]float64{
		{10, 20, 30, 5},
		{1, 1, 1, 7},
	}

	tbl, err := Bin(s, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "r", "w", "z"}, tbl.Columns)
	assert.Equal(t, "sum", tbl.Aggregator)

	// The NaN sample's values are dropped along with its coordinates.
	want := []Row{
		{Q: 0, R: 0, Values: []float64{40, 2}},
		{Q: 2, R: -1, Values: []float64{5, 7}},
	}
	assert.Equal(t, want, tbl.Rows)
}

func TestBin_MinCountUsesFirstValue(t *testing.T) {
	t.Parallel()

	cfg := pinned(Pointy)
	cfg.Aggregator = Mean
	cfg.MinCount = ptr(2.0)
	xsize, ysize := Pitch(cfg.GridSize, *cfg.XRange, *cfg.YRange)
	s := centerSamples(Pointy, []Hex{{0, 0}, {1, 1}}, xsize, ysize)
	s.VDims = []string{"a", "b"}
	s.Values = [][]float64{{1.5, 2}, {100, 0}}

	tbl, err := Bin(s, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, Hex{1, 1}, tbl.Rows[0].Hex())
}

func TestBin_EmptyValueAggregator(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Aggregator = Sum
	tbl, err := Bin(Samples{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{ColumnQ, ColumnR}, tbl.Columns)
}

func TestBin_Errors(t *testing.T) {
	t.Parallel()

	t.Run("value aggregator without value dimensions", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Aggregator = Mean
		_, err := Bin(Samples{X: []float64{1, 2}, Y: []float64{1, 2}}, cfg)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("value aggregator on only non-finite samples", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Aggregator = Sum
		_, err := Bin(Samples{X: []float64{math.NaN()}, Y: []float64{1}}, cfg)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("mismatched x and y", func(t *testing.T) {
		_, err := Bin(Samples{X: []float64{1, 2}, Y: []float64{1}}, DefaultConfig())
		assert.ErrorIs(t, err, ErrMismatchedLength)
	})

	t.Run("short value column", func(t *testing.T) {
		s := Samples{X: []float64{1, 2}, Y: []float64{1, 2}, VDims: []string{"v"}, Values: [][]float64{{1}}}
		_, err := Bin(s, DefaultConfig())
		assert.ErrorIs(t, err, ErrMismatchedLength)
	})

	t.Run("non-positive gridsize", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GridSize = GridSize{X: 10, Y: 0}
		_, err := Bin(Samples{X: []float64{1, 2}, Y: []float64{1, 2}}, cfg)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestBin_RectangularGrid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.GridSize = GridSize{X: 10, Y: 4}
	cfg.XRange = &Range{Min: 0, Max: 30}
	cfg.YRange = &Range{Min: 0, Max: 12}

	xsize, ysize := Pitch(cfg.GridSize, *cfg.XRange, *cfg.YRange)
	assert.InDelta(t, 2.0, xsize, 1e-12)
	assert.InDelta(t, 2.0, ysize, 1e-12)

	x, y := Pointy.Center(Hex{2, -1}, xsize, ysize)
	tbl, err := Bin(Samples{X: []float64{x}, Y: []float64{y}}, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, Hex{2, -1}, tbl.Rows[0].Hex())
}

func TestSamples_Extent(t *testing.T) {
	t.Parallel()

	s := Samples{X: []float64{3, -1, math.NaN(), 4}, Y: []float64{0, 5, 9, math.Inf(1)}}
	xr, yr, ok := s.Extent()
	require.True(t, ok)
	assert.Equal(t, Range{Min: -1, Max: 3}, xr)
	assert.Equal(t, Range{Min: 0, Max: 5}, yr)

	_, _, ok = Samples{}.Extent()
	assert.False(t, ok)
}
