package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/render"
)

func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyTilesConfig_Defaults(t *testing.T) {
	cfg := EmptyTilesConfig()

	if cfg.GetGridSize() != 50 {
		t.Errorf("GetGridSize() = %d, want 50", cfg.GetGridSize())
	}
	if cfg.GetGridSizeY() != 50 {
		t.Errorf("GetGridSizeY() = %d, want 50", cfg.GetGridSizeY())
	}
	if cfg.GetOrientation() != "pointy" {
		t.Errorf("GetOrientation() = %q, want pointy", cfg.GetOrientation())
	}
	if cfg.GetAggregator() != "count" {
		t.Errorf("GetAggregator() = %q, want count", cfg.GetAggregator())
	}
	if cfg.GetMaxScale() != 0.9 {
		t.Errorf("GetMaxScale() = %f, want 0.9", cfg.GetMaxScale())
	}
	if cfg.GetColormap() != "viridis" {
		t.Errorf("GetColormap() = %q, want viridis", cfg.GetColormap())
	}
	if cfg.GetListen() != ":8080" {
		t.Errorf("GetListen() = %q, want :8080", cfg.GetListen())
	}
	if cfg.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("GetShutdownTimeout() = %v, want 5s", cfg.GetShutdownTimeout())
	}
	if cfg.GetSizeIndex() != "" || cfg.GetTitle() != "" {
		t.Errorf("expected empty size_index and title")
	}
}

func TestLoadTilesConfig(t *testing.T) {
	path := writeConfig(t, "tiles.json", `{
  "gridsize": 20,
  "gridsize_y": 10,
  "orientation": "flat",
  "aggregator": "mean",
  "min_count": 2,
  "size_index": "Count",
  "shutdown_timeout": "250ms"
}`)

	cfg, err := LoadTilesConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetGridSize() != 20 || cfg.GetGridSizeY() != 10 {
		t.Errorf("gridsize = %dx%d, want 20x10", cfg.GetGridSize(), cfg.GetGridSizeY())
	}
	if cfg.GetOrientation() != "flat" {
		t.Errorf("orientation = %q, want flat", cfg.GetOrientation())
	}
	if cfg.MinCount == nil || *cfg.MinCount != 2 {
		t.Errorf("min_count = %v, want 2", cfg.MinCount)
	}
	if cfg.GetShutdownTimeout() != 250*time.Millisecond {
		t.Errorf("shutdown_timeout = %v, want 250ms", cfg.GetShutdownTimeout())
	}
	// Unset fields keep their defaults.
	if cfg.GetColormap() != "viridis" {
		t.Errorf("colormap = %q, want viridis", cfg.GetColormap())
	}
}

func TestLoadTilesConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "tiles.yaml", `{}`, ".json extension"},
		{"bad json", "tiles.json", `{"gridsize": `, "parse config JSON"},
		{"zero gridsize", "tiles.json", `{"gridsize": 0}`, "gridsize must be positive"},
		{"bad orientation", "tiles.json", `{"orientation": "sideways"}`, "unknown orientation"},
		{"bad aggregator", "tiles.json", `{"aggregator": "mode"}`, "unknown aggregator"},
		{"negative max_scale", "tiles.json", `{"max_scale": -1}`, "max_scale"},
		{"bad timeout", "tiles.json", `{"shutdown_timeout": "soon"}`, "shutdown_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadTilesConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadTilesConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTilesConfig_TooLarge(t *testing.T) {
	big := `{"title": "` + strings.Repeat("x", 1024*1024) + `"}`
	path := writeConfig(t, "big.json", big)
	if _, err := LoadTilesConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetGridSize() != 50 {
		t.Errorf("default gridsize = %d, want 50", cfg.GetGridSize())
	}
	if cfg.GetExportDir() != "exports" {
		t.Errorf("default export_dir = %q, want exports", cfg.GetExportDir())
	}
}

func TestMerge(t *testing.T) {
	base := &TilesConfig{GridSize: ptrInt(30), Orientation: ptrString("flat"), Title: ptrString("base")}
	over := &TilesConfig{GridSize: ptrInt(10), MinCount: ptrFloat64(3)}

	got := base.Merge(over)
	if got.GetGridSize() != 10 {
		t.Errorf("gridsize = %d, want 10", got.GetGridSize())
	}
	if got.GetOrientation() != "flat" {
		t.Errorf("orientation = %q, want flat", got.GetOrientation())
	}
	if got.MinCount == nil || *got.MinCount != 3 {
		t.Errorf("min_count = %v, want 3", got.MinCount)
	}
	if *base.GridSize != 30 {
		t.Errorf("Merge modified the receiver")
	}
	if base.Merge(nil).GetTitle() != "base" {
		t.Errorf("Merge(nil) should copy the receiver")
	}
}

func TestHexbinConfig(t *testing.T) {
	cfg := &TilesConfig{
		GridSize:    ptrInt(12),
		GridSizeY:   ptrInt(6),
		Orientation: ptrString("flattop"),
		Aggregator:  ptrString("median"),
		MinCount:    ptrFloat64(2),
	}
	hc, err := cfg.HexbinConfig()
	if err != nil {
		t.Fatalf("HexbinConfig: %v", err)
	}
	if hc.GridSize != (hexbin.GridSize{X: 12, Y: 6}) {
		t.Errorf("GridSize = %+v", hc.GridSize)
	}
	if hc.Orientation != hexbin.Flat {
		t.Errorf("Orientation = %v, want flat", hc.Orientation)
	}
	if hc.Aggregator.Name != "median" {
		t.Errorf("Aggregator = %v, want median", hc.Aggregator)
	}
	if hc.MinCount == nil || *hc.MinCount != 2 {
		t.Errorf("MinCount = %v, want 2", hc.MinCount)
	}
	*cfg.MinCount = 5
	if *hc.MinCount != 2 {
		t.Errorf("HexbinConfig should copy min_count")
	}

	if _, err := (&TilesConfig{Aggregator: ptrString("bogus")}).HexbinConfig(); err == nil {
		t.Error("expected error for unknown aggregator")
	}
}

func TestRenderOptions(t *testing.T) {
	cfg := &TilesConfig{
		Colormap:     ptrString("magma"),
		SizeIndex:    ptrString("weight"),
		WidthInches:  ptrFloat64(4),
		HeightInches: ptrFloat64(3),
		MinCount:     ptrFloat64(0),
		Title:        ptrString("cloud"),
	}
	o := cfg.RenderOptions()
	if o.Colormap != "magma" || o.SizeIndex != "weight" || o.Title != "cloud" {
		t.Errorf("unexpected options: %+v", o)
	}
	if o.Width != 4*vg.Inch || o.Height != 3*vg.Inch {
		t.Errorf("size = %v x %v, want 4in x 3in", o.Width, o.Height)
	}
	if o.MaxScale != render.DefaultMaxScale {
		t.Errorf("MaxScale = %v, want %v", o.MaxScale, render.DefaultMaxScale)
	}
	if o.MinCount == nil || *o.MinCount != 0 {
		t.Errorf("MinCount = %v, want 0", o.MinCount)
	}
}
