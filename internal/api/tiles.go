package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/banshee-data/hextiles/internal/config"
	"github.com/banshee-data/hextiles/internal/db"
	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/httputil"
	"github.com/banshee-data/hextiles/internal/render"
)

var errFrameNotFound = errors.New("frame not found")

// RowJSON is a table row with missing values encoded as null.
type RowJSON struct {
	Q      int        `json:"q"`
	R      int        `json:"r"`
	Values []*float64 `json:"values"`
}

// TableJSON is the response body of the hexbin endpoint.
type TableJSON struct {
	Columns     []string           `json:"columns"`
	Rows        []RowJSON          `json:"rows"`
	XRange      hexbin.Range       `json:"x_range"`
	YRange      hexbin.Range       `json:"y_range"`
	GridSize    hexbin.GridSize    `json:"gridsize"`
	Orientation hexbin.Orientation `json:"orientation"`
	Aggregator  string             `json:"aggregator"`
	Layout      *hexbin.Layout     `json:"layout,omitempty"`
}

// NewTableJSON converts t for encoding. Layout is omitted for empty
// tables, which have no tile size.
func NewTableJSON(t *hexbin.Table) TableJSON {
	out := TableJSON{
		Columns:     t.Columns,
		Rows:        make([]RowJSON, len(t.Rows)),
		XRange:      t.XRange,
		YRange:      t.YRange,
		GridSize:    t.GridSize,
		Orientation: t.Orientation,
		Aggregator:  t.Aggregator,
	}
	for i, row := range t.Rows {
		rj := RowJSON{Q: row.Q, R: row.R, Values: make([]*float64, len(row.Values))}
		for j, v := range row.Values {
			rj.Values[j] = finitePtr(v)
		}
		out.Rows[i] = rj
	}
	if t.Len() > 0 {
		l := t.Layout()
		out.Layout = &l
	}
	return out
}

// requestConfig overlays the query parameters of r on the server config.
func (s *Server) requestConfig(r *http.Request) (*config.TilesConfig, error) {
	q := r.URL.Query()
	o := config.EmptyTilesConfig()

	for _, p := range []struct {
		name string
		dst  **int
	}{{"gridsize", &o.GridSize}, {"gridsize_y", &o.GridSizeY}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid '%s' parameter %q", errBadRequest, p.name, v)
		}
		*p.dst = &n
	}
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"min_count", &o.MinCount}, {"max_scale", &o.MaxScale}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid '%s' parameter %q", errBadRequest, p.name, v)
		}
		*p.dst = &f
	}
	for _, p := range []struct {
		name string
		dst  **string
	}{
		{"orientation", &o.Orientation},
		{"aggregator", &o.Aggregator},
		{"colormap", &o.Colormap},
		{"size_index", &o.SizeIndex},
		{"title", &o.Title},
	} {
		if q.Has(p.name) {
			v := q.Get(p.name)
			*p.dst = &v
		}
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.cfg.Merge(o), nil
}

// tileRequest is everything a tile handler needs after parsing.
type tileRequest struct {
	dataset *db.Dataset
	cfg     *config.TilesConfig
	hexbin  hexbin.Config
	opts    render.Options
	// frame is nil when the whole dataset is requested.
	frame *string
}

func (s *Server) parseTileRequest(r *http.Request) (*tileRequest, error) {
	d, err := s.store.Dataset(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	cfg, err := s.requestConfig(r)
	if err != nil {
		return nil, err
	}
	hc, err := cfg.HexbinConfig()
	if err != nil {
		return nil, err
	}

	tr := &tileRequest{dataset: d, cfg: cfg, hexbin: hc, opts: cfg.RenderOptions()}
	tr.opts.XLabel, tr.opts.YLabel = d.XLabel, d.YLabel
	if tr.opts.Title == "" {
		tr.opts.Title = d.Name
	}
	if q := r.URL.Query(); q.Has("frame") {
		f := q.Get("frame")
		if !slices.Contains(d.Frames, f) {
			return nil, fmt.Errorf("%w: %q in dataset %s", errFrameNotFound, f, d.ID)
		}
		tr.frame = &f
	}
	return tr, nil
}

func (s *Server) binRequest(ctx context.Context, tr *tileRequest) (*hexbin.Table, error) {
	var (
		samples hexbin.Samples
		err     error
	)
	if tr.frame != nil {
		samples, err = s.store.FrameSamples(ctx, tr.dataset.ID, *tr.frame)
	} else {
		samples, _, err = s.store.Samples(ctx, tr.dataset.ID)
	}
	if err != nil {
		return nil, err
	}
	return hexbin.Bin(samples, tr.hexbin)
}

func (s *Server) handleHexbin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	tr, err := s.parseTileRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := s.binRequest(r.Context(), tr)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewTableJSON(t))
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	tr, err := s.parseTileRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if tr.frame == nil && len(tr.dataset.Frames) > 1 {
		err = s.writeStackHTML(r.Context(), &buf, tr)
	} else {
		var t *hexbin.Table
		if t, err = s.binRequest(r.Context(), tr); err == nil {
			err = render.WriteHTML(&buf, t, tr.opts)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteBody(w, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) writeStackHTML(ctx context.Context, buf *bytes.Buffer, tr *tileRequest) error {
	samples, keys, err := s.store.Samples(ctx, tr.dataset.ID)
	if err != nil {
		return err
	}
	frames, err := hexbin.SplitFrames(samples, keys)
	if err != nil {
		return err
	}
	stack, err := hexbin.BinStack(frames, tr.hexbin)
	if err != nil {
		return err
	}
	return render.WriteStackHTML(buf, stack, tr.opts)
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	tr, err := s.parseTileRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := s.binRequest(r.Context(), tr)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render.WriteImage(&buf, t, tr.opts, render.PNG); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteBody(w, render.PNG.ContentType(), buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	tr, err := s.parseTileRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := s.binRequest(r.Context(), tr)
	if err != nil {
		writeError(w, err)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = tr.dataset.Name
		if tr.frame != nil {
			name += "_" + *tr.frame
		}
	}
	path, err := s.exporter.Export(name, format, t, tr.opts)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"path":   path,
		"format": format,
		"tiles":  t.Len(),
	})
}
