package hexbin

import (
	"fmt"
	"math"
)

// Column names for the axial address and the synthetic count column.
const (
	ColumnQ     = "q"
	ColumnR     = "r"
	CountColumn = "Count"
)

// Row is one occupied cell: its address and one value per value column.
type Row struct {
	Q      int       `json:"q"`
	R      int       `json:"r"`
	Values []float64 `json:"values"`
}

// Hex returns the row's cell address.
func (r Row) Hex() Hex { return Hex{Q: r.Q, R: r.R} }

// Table is the result of Bin: one Row per occupied cell, sorted by Q and
// then R. Columns always starts with "q" and "r".
type Table struct {
	Columns     []string    `json:"columns"`
	Rows        []Row       `json:"rows"`
	XRange      Range       `json:"x_range"`
	YRange      Range       `json:"y_range"`
	GridSize    GridSize    `json:"gridsize"`
	Orientation Orientation `json:"orientation"`
	Aggregator  string      `json:"aggregator"`
}

// Len returns the number of occupied cells.
func (t *Table) Len() int { return len(t.Rows) }

// ValueColumns returns the column names after q and r.
func (t *Table) ValueColumns() []string {
	if len(t.Columns) < 2 {
		return nil
	}
	return t.Columns[2:]
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column, one per row. The q and r
// columns are returned as floats.
func (t *Table) Column(name string) ([]float64, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make([]float64, len(t.Rows))
	for k, row := range t.Rows {
		switch i {
		case 0:
			out[k] = float64(row.Q)
		case 1:
			out[k] = float64(row.R)
		default:
			out[k] = row.Values[i-2]
		}
	}
	return out, nil
}

// ValueRange returns the finite min and max of a value column. ok is false
// when the column has no finite values.
func (t *Table) ValueRange(name string) (r Range, ok bool, err error) {
	vals, err := t.Column(name)
	if err != nil {
		return Range{}, false, err
	}
	r = Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range vals {
		if !isFinite(v) {
			continue
		}
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
		ok = true
	}
	if !ok {
		return Range{}, false, nil
	}
	return r, true, nil
}

// Lookup returns the row for cell h.
func (t *Table) Lookup(h Hex) (Row, bool) {
	for _, row := range t.Rows {
		if row.Q == h.Q && row.R == h.R {
			return row, true
		}
	}
	return Row{}, false
}

// Pitch returns the hexagon size the table was binned with.
func (t *Table) Pitch() (xsize, ysize float64) {
	return Pitch(t.GridSize, t.XRange, t.YRange)
}
