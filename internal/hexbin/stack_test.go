package hexbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrames(t *testing.T) {
	t.Parallel()

	s := Samples{
		X:      []float64{1, 2, 3, 4},
		Y:      []float64{5, 6, 7, 8},
		VDims:  []string{"v"},
		Values: [][]float64{{10, 20, 30, 40}},
	}
	frames, err := SplitFrames(s, []string{"b", "a", "b", "a"})
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, "b", frames[0].Key)
	assert.Equal(t, []float64{1, 3}, frames[0].Samples.X)
	assert.Equal(t, [][]float64{{10, 30}}, frames[0].Samples.Values)
	assert.Equal(t, "a", frames[1].Key)
	assert.Equal(t, []float64{6, 8}, frames[1].Samples.Y)

	_, err = SplitFrames(s, []string{"a"})
	assert.ErrorIs(t, err, ErrMismatchedLength)
}

func TestBinStack_SharedExtent(t *testing.T) {
	t.Parallel()

	frames := []Frame{
		{Key: "t0", Samples: Samples{X: []float64{0, 10, 5}, Y: []float64{0, 10, 5}}},
		{Key: "t1", Samples: Samples{X: []float64{4, 5}, Y: []float64{4, 5}}},
		{Key: "t2", Samples: Samples{}},
	}
	cfg := DefaultConfig()
	cfg.GridSize = Uniform(5)

	stack, err := BinStack(frames, cfg)
	require.NoError(t, err)
	require.Len(t, stack, 3)

	for _, f := range stack[:2] {
		assert.Equal(t, Range{Min: 0, Max: 10}, f.Table.XRange, f.Key)
		assert.Equal(t, Range{Min: 0, Max: 10}, f.Table.YRange, f.Key)
	}

	// (5, 5) lands in the same cell in both frames.
	xsize, ysize := Pitch(cfg.GridSize, Range{Max: 10}, Range{Max: 10})
	h := coordsToHex(5, 5, Pointy, xsize, ysize)
	_, ok := stack[0].Table.Lookup(h)
	assert.True(t, ok)
	_, ok = stack[1].Table.Lookup(h)
	assert.True(t, ok)

	assert.Equal(t, 0, stack[2].Table.Len())
	assert.Nil(t, cfg.XRange, "BinStack must not modify the caller's config")
}

func TestBinStack_Empty(t *testing.T) {
	t.Parallel()

	stack, err := BinStack(nil, DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, stack)
}

func TestBinStack_FrameError(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Aggregator = Sum
	_, err := BinStack([]Frame{{Key: "t0", Samples: Samples{X: []float64{1}, Y: []float64{1}}}}, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `frame "t0"`)
}
