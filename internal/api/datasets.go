package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/banshee-data/hextiles/internal/db"
	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/httputil"
)

var errBadRequest = errors.New("bad request")

// SampleJSON is one uploaded sample. Null coordinates or values stand for
// missing data and are dropped by the aggregation.
type SampleJSON struct {
	X      *float64   `json:"x"`
	Y      *float64   `json:"y"`
	Values []*float64 `json:"values,omitempty"`
	Frame  string     `json:"frame,omitempty"`
}

// CreateDatasetRequest is the body of POST /api/datasets.
type CreateDatasetRequest struct {
	Name    string       `json:"name"`
	XLabel  string       `json:"x_label,omitempty"`
	YLabel  string       `json:"y_label,omitempty"`
	VDims   []string     `json:"vdims,omitempty"`
	Samples []SampleJSON `json:"samples"`
}

// NewCreateDatasetRequest builds a request body from columnar samples.
// frames may be nil.
func NewCreateDatasetRequest(name string, s hexbin.Samples, frames []string) CreateDatasetRequest {
	req := CreateDatasetRequest{Name: name, VDims: s.VDims, Samples: make([]SampleJSON, s.Len())}
	for i := range req.Samples {
		sj := SampleJSON{X: finitePtr(s.X[i]), Y: finitePtr(s.Y[i])}
		if len(s.Values) > 0 {
			sj.Values = make([]*float64, len(s.Values))
			for j, col := range s.Values {
				sj.Values[j] = finitePtr(col[i])
			}
		}
		if frames != nil {
			sj.Frame = frames[i]
		}
		req.Samples[i] = sj
	}
	return req
}

// Columns converts the request into columnar samples and one frame key
// per sample.
func (req CreateDatasetRequest) Columns() (hexbin.Samples, []string, error) {
	n := len(req.Samples)
	s := hexbin.Samples{
		X:      make([]float64, n),
		Y:      make([]float64, n),
		VDims:  req.VDims,
		Values: make([][]float64, len(req.VDims)),
	}
	for j := range s.Values {
		s.Values[j] = make([]float64, n)
	}
	frames := make([]string, n)
	for i, sj := range req.Samples {
		if len(sj.Values) != len(req.VDims) {
			return hexbin.Samples{}, nil, fmt.Errorf("%w: sample %d has %d values for %d vdims",
				hexbin.ErrMismatchedLength, i, len(sj.Values), len(req.VDims))
		}
		s.X[i], s.Y[i] = fromPtr(sj.X), fromPtr(sj.Y)
		for j, v := range sj.Values {
			s.Values[j][i] = fromPtr(v)
		}
		frames[i] = sj.Frame
	}
	return s, frames, nil
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.store.ListDatasets(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, list)
	case http.MethodPost:
		s.createDataset(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) createDataset(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		httputil.BadRequest(w, "missing 'name'")
		return
	}
	samples, frames, err := req.Columns()
	if err != nil {
		writeError(w, err)
		return
	}

	d := &db.Dataset{Name: req.Name, XLabel: req.XLabel, YLabel: req.YLabel}
	id, err := s.store.CreateDataset(r.Context(), d, samples, frames)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := s.store.Dataset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		d, err := s.store.Dataset(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		if err := s.store.DeleteDataset(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromPtr(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
