package db

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/monitoring"
	"github.com/banshee-data/hextiles/internal/testutil"
	"github.com/banshee-data/hextiles/internal/timeutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(nil)
	db, err := NewDB(testutil.TempDBPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateDataset_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := hexbin.Samples{
		X:      []float64{0, 1.5, math.NaN(), -2},
		Y:      []float64{0, 2.5, 1, math.NaN()},
		VDims:  []string{"z", "w"},
		Values: [][]float64{{1, 2, 3, 4}, {10, math.NaN(), 30, 40}},
	}
	d := &Dataset{Name: "cloud", XLabel: "east"}
	id, err := db.CreateDataset(ctx, d, in, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, "y", d.YLabel)

	got, err := db.Dataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cloud", got.Name)
	assert.Equal(t, "east", got.XLabel)
	assert.Equal(t, []string{"z", "w"}, got.VDims)
	assert.Equal(t, 4, got.SampleCount)
	assert.Equal(t, []string{""}, got.Frames)

	s, keys, err := db.Samples(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", ""}, keys)
	if diff := cmp.Diff(in, s, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Samples mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDataset_InfiniteStoredAsNaN(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := hexbin.Samples{X: []float64{math.Inf(-1), 1}, Y: []float64{1, math.Inf(1)}}
	id, err := db.CreateDataset(ctx, &Dataset{Name: "inf"}, in, nil)
	require.NoError(t, err)

	s, _, err := db.Samples(ctx, id)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(s.X[0]))
	assert.True(t, math.IsNaN(s.Y[1]))
	assert.Equal(t, 1.0, s.X[1])
}

func TestCreateDataset_Frames(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := hexbin.Samples{
		X: []float64{0, 1, 2, 3, 4},
		Y: []float64{5, 6, 7, 8, 9},
	}
	keys := []string{"t1", "t0", "t1", "t0", "t2"}
	id, err := db.CreateDataset(ctx, &Dataset{Name: "stack"}, in, keys)
	require.NoError(t, err)

	frames, err := db.Frames(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t0", "t2"}, frames)

	t0, err := db.FrameSamples(ctx, id, "t0")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, t0.X)
	assert.Equal(t, []float64{6, 8}, t0.Y)

	stack, err := db.Stack(ctx, id)
	require.NoError(t, err)
	require.Len(t, stack, 3)
	assert.Equal(t, "t1", stack[0].Key)
	assert.Equal(t, []float64{0, 2}, stack[0].Samples.X)
	assert.Equal(t, []float64{4}, stack[2].Samples.X)
}

func TestCreateDataset_Errors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	good := hexbin.Samples{X: []float64{1}, Y: []float64{2}}

	tests := []struct {
		name    string
		d       *Dataset
		s       hexbin.Samples
		frames  []string
		wantErr error
	}{
		{
			name:    "mismatched coordinates",
			d:       &Dataset{Name: "bad"},
			s:       hexbin.Samples{X: []float64{1, 2}, Y: []float64{1}},
			wantErr: hexbin.ErrMismatchedLength,
		},
		{
			name:    "mismatched frames",
			d:       &Dataset{Name: "bad"},
			s:       good,
			frames:  []string{"a", "b"},
			wantErr: hexbin.ErrMismatchedLength,
		},
		{
			name: "missing name",
			d:    &Dataset{},
			s:    good,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateDataset(ctx, tt.d, tt.s, tt.frames)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	list, err := db.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListAndDeleteDatasets(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := hexbin.Samples{
		X:      []float64{1, 2},
		Y:      []float64{3, 4},
		VDims:  []string{"v"},
		Values: [][]float64{{5, 6}},
	}
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	db.SetClock(timeutil.NewStepClock(start, time.Minute))

	first, err := db.CreateDataset(ctx, &Dataset{Name: "first"}, s, nil)
	require.NoError(t, err)
	second, err := db.CreateDataset(ctx, &Dataset{Name: "second"}, s, nil)
	require.NoError(t, err)

	list, err := db.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{second, first}, []string{list[0].ID, list[1].ID})
	assert.True(t, list[1].CreatedAt.Equal(start))
	assert.True(t, list[0].CreatedAt.Equal(start.Add(time.Minute)))

	require.NoError(t, db.DeleteDataset(ctx, first))

	_, err = db.Dataset(ctx, first)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	_, _, err = db.Samples(ctx, first)
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	var orphans int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sample_values WHERE dataset_id = ?`, first).Scan(&orphans))
	assert.Zero(t, orphans)

	err = db.DeleteDataset(ctx, first)
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	left, _, err := db.Samples(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, left.Values[0])
}

func TestDataset_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Dataset(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestCreateDataset_Empty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.CreateDataset(ctx, &Dataset{Name: "empty"}, hexbin.Samples{VDims: []string{"z"}, Values: [][]float64{{}}}, nil)
	require.NoError(t, err)

	d, err := db.Dataset(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, d.SampleCount)
	assert.Empty(t, d.Frames)

	stack, err := db.Stack(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stack)
}
