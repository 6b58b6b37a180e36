// Package testutil provides shared test utilities and fixtures.
//
// This package centralises sample generators and assertion helpers used by
// the store, renderer and API tests.
package testutil

import (
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/hextiles/internal/hexbin"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request with an optional body.
func NewTestRequest(method, path string, body ...string) *http.Request {
	var r io.Reader
	if len(body) > 0 {
		r = strings.NewReader(strings.Join(body, ""))
	}
	return httptest.NewRequest(method, path, r)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// TempDBPath returns a path for a fresh SQLite file inside t.TempDir().
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "hextiles_test.db")
}

// CenterSamples places one sample at the centre of each hex for the given
// orientation and hexagon size.
func CenterSamples(o hexbin.Orientation, hexes []hexbin.Hex, xsize, ysize float64) hexbin.Samples {
	s := hexbin.Samples{
		X: make([]float64, len(hexes)),
		Y: make([]float64, len(hexes)),
	}
	for i, h := range hexes {
		s.X[i], s.Y[i] = o.Center(h, xsize, ysize)
	}
	return s
}

// GaussianCloud returns n samples drawn from a unit normal around the
// origin with one value dimension, "weight", equal to the sample's
// squared distance from the origin. The same seed always yields the same cloud.
func GaussianCloud(n int, seed uint64) hexbin.Samples {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := hexbin.Samples{
		X:      make([]float64, n),
		Y:      make([]float64, n),
		VDims:  []string{"weight"},
		Values: [][]float64{make([]float64, n)},
	}
	for i := 0; i < n; i++ {
		x, y := rng.NormFloat64(), rng.NormFloat64()
		s.X[i], s.Y[i] = x, y
		s.Values[0][i] = x*x + y*y
	}
	return s
}
