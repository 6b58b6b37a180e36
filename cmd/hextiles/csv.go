package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/monitoring"
)

// csvColumns names the header columns read from an input file. An empty
// vdims list selects every numeric column other than x, y and frame.
type csvColumns struct {
	x, y  string
	frame string
	vdims []string
}

// readSamples parses CSV with a header row into columnar samples. Empty
// cells read as NaN. frames is nil unless the frame column is present.
// A cell that does not parse is an error in x, y and named value columns;
// an automatically selected column containing one is left out.
func readSamples(r io.Reader, cols csvColumns) (hexbin.Samples, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return hexbin.Samples{}, nil, fmt.Errorf("%w: input has no header row", errUsage)
	}
	if err != nil {
		return hexbin.Samples{}, nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	xi, ok := index[cols.x]
	if !ok {
		return hexbin.Samples{}, nil, fmt.Errorf("%w: missing column %q", errUsage, cols.x)
	}
	yi, ok := index[cols.y]
	if !ok {
		return hexbin.Samples{}, nil, fmt.Errorf("%w: missing column %q", errUsage, cols.y)
	}
	fi, hasFrame := index[cols.frame]
	if cols.frame == "" {
		hasFrame = false
	}

	// Value columns are either named explicitly or every remaining
	// column. Remaining columns holding text, such as labels, are skipped.
	type valueColumn struct {
		name    string
		index   int
		values  []float64
		skipped bool
	}
	explicit := len(cols.vdims) > 0
	var vcols []*valueColumn
	if explicit {
		for _, name := range cols.vdims {
			i, ok := index[name]
			if !ok {
				return hexbin.Samples{}, nil, fmt.Errorf("%w: missing column %q", errUsage, name)
			}
			vcols = append(vcols, &valueColumn{name: name, index: i})
		}
	} else {
		for i, name := range header {
			if i != xi && i != yi && !(hasFrame && i == fi) {
				vcols = append(vcols, &valueColumn{name: strings.TrimSpace(name), index: i})
			}
		}
	}

	var s hexbin.Samples
	var frames []string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return hexbin.Samples{}, nil, fmt.Errorf("read line %d: %w", line, err)
		}
		x, err := parseCell(rec[xi])
		if err != nil {
			return hexbin.Samples{}, nil, fmt.Errorf("line %d column %q: %w", line, cols.x, err)
		}
		y, err := parseCell(rec[yi])
		if err != nil {
			return hexbin.Samples{}, nil, fmt.Errorf("line %d column %q: %w", line, cols.y, err)
		}
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
		for _, vc := range vcols {
			if vc.skipped {
				continue
			}
			v, err := parseCell(rec[vc.index])
			if err != nil {
				if explicit {
					return hexbin.Samples{}, nil, fmt.Errorf("line %d column %q: %w", line, vc.name, err)
				}
				monitoring.Debugf("skipping non-numeric column %q (line %d: %q)", vc.name, line, rec[vc.index])
				vc.skipped = true
				vc.values = nil
				continue
			}
			vc.values = append(vc.values, v)
		}
		if hasFrame {
			frames = append(frames, strings.TrimSpace(rec[fi]))
		}
	}

	s.Values = [][]float64{}
	for _, vc := range vcols {
		if vc.skipped {
			continue
		}
		if vc.values == nil {
			vc.values = []float64{}
		}
		s.VDims = append(s.VDims, vc.name)
		s.Values = append(s.Values, vc.values)
	}
	return s, frames, nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// writeTableCSV prints one row per tile. A non-empty frame key is written
// as a leading column so that stacks concatenate into one table.
func writeTableCSV(w *csv.Writer, t *hexbin.Table, frame string, header bool) error {
	if header {
		cols := t.Columns
		if frame != "" {
			cols = append([]string{"frame"}, cols...)
		}
		if err := w.Write(cols); err != nil {
			return err
		}
	}
	rec := make([]string, 0, len(t.Columns)+1)
	for _, row := range t.Rows {
		rec = rec[:0]
		if frame != "" {
			rec = append(rec, frame)
		}
		rec = append(rec, strconv.Itoa(row.Q), strconv.Itoa(row.R))
		for _, v := range row.Values {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
