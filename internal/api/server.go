// Package api serves stored datasets, their hexagon aggregates and the
// rendered figures over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/hextiles/internal/config"
	"github.com/banshee-data/hextiles/internal/db"
	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/httputil"
	"github.com/banshee-data/hextiles/internal/monitoring"
	"github.com/banshee-data/hextiles/internal/render"
	"github.com/banshee-data/hextiles/internal/version"
)

// ANSI colours for the request log.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// maxRequestBody bounds uploaded datasets.
const maxRequestBody = 32 << 20

// Store is the dataset persistence used by the handlers. *db.DB
// implements it.
type Store interface {
	CreateDataset(ctx context.Context, d *db.Dataset, s hexbin.Samples, frames []string) (string, error)
	Dataset(ctx context.Context, id string) (*db.Dataset, error)
	ListDatasets(ctx context.Context) ([]db.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error
	Samples(ctx context.Context, id string) (hexbin.Samples, []string, error)
	FrameSamples(ctx context.Context, id, frame string) (hexbin.Samples, error)
}

var _ Store = (*db.DB)(nil)

// Server exposes a Store over HTTP.
type Server struct {
	store    Store
	cfg      *config.TilesConfig
	exporter *render.Exporter
}

// NewServer returns a Server using cfg for every setting a request does
// not override. A nil cfg uses the built-in defaults.
func NewServer(store Store, cfg *config.TilesConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyTilesConfig()
	}
	return &Server{
		store:    store,
		cfg:      cfg,
		exporter: render.NewExporter(cfg.GetExportDir()),
	}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/datasets", s.handleDatasets)
	mux.HandleFunc("/api/datasets/{id}", s.handleDataset)
	mux.HandleFunc("/api/datasets/{id}/hexbin", s.handleHexbin)
	mux.HandleFunc("/api/datasets/{id}/hextiles.html", s.handleHTML)
	mux.HandleFunc("/api/datasets/{id}/hextiles.png", s.handlePNG)
	mux.HandleFunc("/api/datasets/{id}/export", s.handleExport)
	return mux
}

// Start serves on addr until ctx is cancelled, then shuts down within the
// configured timeout.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(s.ServeMux()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := srv.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// writeError maps store, binning and rendering errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrDatasetNotFound), errors.Is(err, errFrameNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, hexbin.ErrInvalidConfiguration),
		errors.Is(err, hexbin.ErrMismatchedLength),
		errors.Is(err, hexbin.ErrUnknownAggregator),
		errors.Is(err, hexbin.ErrUnknownOrientation),
		errors.Is(err, hexbin.ErrUnknownColumn),
		errors.Is(err, render.ErrUnknownColormap),
		errors.Is(err, render.ErrUnknownFormat),
		errors.Is(err, errBadRequest):
		httputil.BadRequest(w, err.Error())
	default:
		monitoring.Logf("internal error: %v", err)
		httputil.InternalServerError(w, err.Error())
	}
}
