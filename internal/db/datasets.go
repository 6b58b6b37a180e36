package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/monitoring"
)

// Dataset describes a stored sample set.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	XLabel      string    `json:"x_label"`
	YLabel      string    `json:"y_label"`
	VDims       []string  `json:"vdims"`
	SampleCount int       `json:"sample_count"`
	Frames      []string  `json:"frames,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateDataset stores s under a new dataset id and returns it. frames is
// either nil (every sample in the "" frame) or one key per sample. The
// dataset's VDims are taken from s.
func (db *DB) CreateDataset(ctx context.Context, d *Dataset, s hexbin.Samples, frames []string) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if frames != nil && len(frames) != s.Len() {
		return "", fmt.Errorf("%w: %d frame keys for %d samples", hexbin.ErrMismatchedLength, len(frames), s.Len())
	}
	if d.Name == "" {
		return "", errors.New("dataset name is required")
	}

	vdims := s.VDims
	if vdims == nil {
		vdims = []string{}
	}
	vdimsJSON, err := json.Marshal(vdims)
	if err != nil {
		return "", fmt.Errorf("encode vdims: %w", err)
	}
	xLabel, yLabel := d.XLabel, d.YLabel
	if xLabel == "" {
		xLabel = "x"
	}
	if yLabel == "" {
		yLabel = "y"
	}

	id := uuid.NewString()
	created := db.clock.Now()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			monitoring.Logf("rollback dataset %s: %v", id, err)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (dataset_id, name, x_label, y_label, vdims_json, sample_count, created_unix_nanos)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, d.Name, xLabel, yLabel, string(vdimsJSON), s.Len(), created.UnixNano(),
	); err != nil {
		return "", fmt.Errorf("insert dataset: %w", err)
	}

	sampleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (dataset_id, seq, frame, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer sampleStmt.Close()

	valueStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sample_values (dataset_id, seq, dim, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer valueStmt.Close()

	for i := 0; i < s.Len(); i++ {
		frame := ""
		if frames != nil {
			frame = frames[i]
		}
		if _, err := sampleStmt.ExecContext(ctx, id, i, frame, nullFloat(s.X[i]), nullFloat(s.Y[i])); err != nil {
			return "", fmt.Errorf("insert sample %d: %w", i, err)
		}
		for dim, col := range s.Values {
			if _, err := valueStmt.ExecContext(ctx, id, i, dim, nullFloat(col[i])); err != nil {
				return "", fmt.Errorf("insert sample %d value %d: %w", i, dim, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	d.ID = id
	d.XLabel, d.YLabel = xLabel, yLabel
	d.VDims = vdims
	d.SampleCount = s.Len()
	d.CreatedAt = time.Unix(0, created.UnixNano())
	monitoring.Logf("stored dataset %s (%q) with %d samples", id, d.Name, s.Len())
	return id, nil
}

// Dataset returns the metadata of dataset id, including its frame keys.
func (db *DB) Dataset(ctx context.Context, id string) (*Dataset, error) {
	row := db.QueryRowContext(ctx,
		`SELECT dataset_id, name, x_label, y_label, vdims_json, sample_count, created_unix_nanos
		 FROM datasets WHERE dataset_id = ?`, id)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if d.Frames, err = db.Frames(ctx, id); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDatasets returns every dataset, newest first. Frames are not
// populated.
func (db *DB) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT dataset_id, name, x_label, y_label, vdims_json, sample_count, created_unix_nanos
		 FROM datasets ORDER BY created_unix_nanos DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and all of its samples.
func (db *DB) DeleteDataset(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			monitoring.Logf("rollback delete %s: %v", id, err)
		}
	}()

	for _, q := range []string{
		`DELETE FROM sample_values WHERE dataset_id = ?`,
		`DELETE FROM samples WHERE dataset_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE dataset_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return tx.Commit()
}

// Frames returns the distinct frame keys of a dataset in order of first
// appearance.
func (db *DB) Frames(ctx context.Context, id string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT frame FROM samples WHERE dataset_id = ? GROUP BY frame ORDER BY MIN(seq)`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// Samples loads every sample of a dataset in insertion order, along with
// each sample's frame key. Stored NULLs come back as NaN.
func (db *DB) Samples(ctx context.Context, id string) (hexbin.Samples, []string, error) {
	return db.loadSamples(ctx, id, nil)
}

// FrameSamples loads the samples of one frame of a dataset.
func (db *DB) FrameSamples(ctx context.Context, id, frame string) (hexbin.Samples, error) {
	s, _, err := db.loadSamples(ctx, id, &frame)
	return s, err
}

// Stack loads a dataset split into its frames.
func (db *DB) Stack(ctx context.Context, id string) ([]hexbin.Frame, error) {
	s, keys, err := db.Samples(ctx, id)
	if err != nil {
		return nil, err
	}
	return hexbin.SplitFrames(s, keys)
}

func (db *DB) loadSamples(ctx context.Context, id string, frame *string) (hexbin.Samples, []string, error) {
	d, err := db.datasetRow(ctx, id)
	if err != nil {
		return hexbin.Samples{}, nil, err
	}

	q := `SELECT seq, frame, x, y FROM samples WHERE dataset_id = ?`
	args := []any{id}
	if frame != nil {
		q += ` AND frame = ?`
		args = append(args, *frame)
	}
	q += ` ORDER BY seq`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return hexbin.Samples{}, nil, err
	}

	s := hexbin.Samples{VDims: d.VDims, Values: make([][]float64, len(d.VDims))}
	var keys []string
	index := make(map[int64]int)
	for rows.Next() {
		var (
			seq  int64
			key  string
			x, y sql.NullFloat64
		)
		if err := rows.Scan(&seq, &key, &x, &y); err != nil {
			rows.Close()
			return hexbin.Samples{}, nil, err
		}
		index[seq] = len(s.X)
		s.X = append(s.X, fromNull(x))
		s.Y = append(s.Y, fromNull(y))
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return hexbin.Samples{}, nil, err
	}
	rows.Close()

	for j := range s.Values {
		s.Values[j] = make([]float64, len(s.X))
		for i := range s.Values[j] {
			s.Values[j][i] = math.NaN()
		}
	}
	if len(d.VDims) > 0 && len(s.X) > 0 {
		if err := db.loadValues(ctx, id, index, s.Values); err != nil {
			return hexbin.Samples{}, nil, err
		}
	}
	return s, keys, nil
}

func (db *DB) loadValues(ctx context.Context, id string, index map[int64]int, values [][]float64) error {
	rows, err := db.QueryContext(ctx,
		`SELECT seq, dim, value FROM sample_values WHERE dataset_id = ?`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq int64
			dim int
			v   sql.NullFloat64
		)
		if err := rows.Scan(&seq, &dim, &v); err != nil {
			return err
		}
		i, ok := index[seq]
		if !ok || dim < 0 || dim >= len(values) {
			continue
		}
		values[dim][i] = fromNull(v)
	}
	return rows.Err()
}

func (db *DB) datasetRow(ctx context.Context, id string) (*Dataset, error) {
	row := db.QueryRowContext(ctx,
		`SELECT dataset_id, name, x_label, y_label, vdims_json, sample_count, created_unix_nanos
		 FROM datasets WHERE dataset_id = ?`, id)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return d, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(sc scanner) (*Dataset, error) {
	var (
		d         Dataset
		vdimsJSON string
		created   int64
	)
	if err := sc.Scan(&d.ID, &d.Name, &d.XLabel, &d.YLabel, &vdimsJSON, &d.SampleCount, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vdimsJSON), &d.VDims); err != nil {
		return nil, fmt.Errorf("decode vdims of %s: %w", d.ID, err)
	}
	d.CreatedAt = time.Unix(0, created)
	return &d, nil
}

// nullFloat stores non-finite values as NULL; SQLite has no NaN.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
