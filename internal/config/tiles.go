package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/render"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/hextiles.defaults.json"

// TilesConfig is the root configuration for binning, rendering and
// serving hex tiles. The schema matches the query parameters accepted by
// the HTTP API so the same names work in both places.
type TilesConfig struct {
	// Binning
	GridSize    *int     `json:"gridsize,omitempty"`
	GridSizeY   *int     `json:"gridsize_y,omitempty"` // defaults to gridsize
	Orientation *string  `json:"orientation,omitempty"`
	Aggregator  *string  `json:"aggregator,omitempty"`
	MinCount    *float64 `json:"min_count,omitempty"`

	// Rendering
	MaxScale     *float64 `json:"max_scale,omitempty"`
	SizeIndex    *string  `json:"size_index,omitempty"` // value column driving tile size
	Colormap     *string  `json:"colormap,omitempty"`
	WidthInches  *float64 `json:"width_inches,omitempty"`
	HeightInches *float64 `json:"height_inches,omitempty"`
	Title        *string  `json:"title,omitempty"`

	// Serving
	Listen          *string `json:"listen,omitempty"`
	DBPath          *string `json:"db_path,omitempty"`
	ExportDir       *string `json:"export_dir,omitempty"`
	ShutdownTimeout *string `json:"shutdown_timeout,omitempty"` // duration string like "5s"
}

// EmptyTilesConfig returns a TilesConfig with all fields set to nil.
func EmptyTilesConfig() *TilesConfig {
	return &TilesConfig{}
}

// LoadTilesConfig loads a TilesConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTilesConfig(path string) (*TilesConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTilesConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TilesConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTilesConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TilesConfig) Validate() error {
	if c.GridSize != nil && *c.GridSize <= 0 {
		return fmt.Errorf("gridsize must be positive, got %d", *c.GridSize)
	}
	if c.GridSizeY != nil && *c.GridSizeY <= 0 {
		return fmt.Errorf("gridsize_y must be positive, got %d", *c.GridSizeY)
	}
	if c.Orientation != nil {
		if _, err := hexbin.ParseOrientation(*c.Orientation); err != nil {
			return err
		}
	}
	if c.Aggregator != nil {
		if _, err := hexbin.LookupAggregator(*c.Aggregator); err != nil {
			return err
		}
	}
	if c.MaxScale != nil && *c.MaxScale < 0 {
		return fmt.Errorf("max_scale must be non-negative, got %f", *c.MaxScale)
	}
	if c.WidthInches != nil && *c.WidthInches <= 0 {
		return fmt.Errorf("width_inches must be positive, got %f", *c.WidthInches)
	}
	if c.HeightInches != nil && *c.HeightInches <= 0 {
		return fmt.Errorf("height_inches must be positive, got %f", *c.HeightInches)
	}
	if c.ShutdownTimeout != nil && *c.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(*c.ShutdownTimeout); err != nil {
			return fmt.Errorf("invalid shutdown_timeout '%s': %w", *c.ShutdownTimeout, err)
		}
	}
	return nil
}

// Merge returns a copy of c with every field that is set in o taking
// precedence. Command-line flags are merged over the loaded file this way.
func (c *TilesConfig) Merge(o *TilesConfig) *TilesConfig {
	out := *c
	if o == nil {
		return &out
	}
	if o.GridSize != nil {
		out.GridSize = o.GridSize
	}
	if o.GridSizeY != nil {
		out.GridSizeY = o.GridSizeY
	}
	if o.Orientation != nil {
		out.Orientation = o.Orientation
	}
	if o.Aggregator != nil {
		out.Aggregator = o.Aggregator
	}
	if o.MinCount != nil {
		out.MinCount = o.MinCount
	}
	if o.MaxScale != nil {
		out.MaxScale = o.MaxScale
	}
	if o.SizeIndex != nil {
		out.SizeIndex = o.SizeIndex
	}
	if o.Colormap != nil {
		out.Colormap = o.Colormap
	}
	if o.WidthInches != nil {
		out.WidthInches = o.WidthInches
	}
	if o.HeightInches != nil {
		out.HeightInches = o.HeightInches
	}
	if o.Title != nil {
		out.Title = o.Title
	}
	if o.Listen != nil {
		out.Listen = o.Listen
	}
	if o.DBPath != nil {
		out.DBPath = o.DBPath
	}
	if o.ExportDir != nil {
		out.ExportDir = o.ExportDir
	}
	if o.ShutdownTimeout != nil {
		out.ShutdownTimeout = o.ShutdownTimeout
	}
	return &out
}

// HexbinConfig builds the aggregation settings described by c.
func (c *TilesConfig) HexbinConfig() (hexbin.Config, error) {
	o, err := hexbin.ParseOrientation(c.GetOrientation())
	if err != nil {
		return hexbin.Config{}, err
	}
	agg, err := hexbin.LookupAggregator(c.GetAggregator())
	if err != nil {
		return hexbin.Config{}, err
	}
	cfg := hexbin.Config{
		GridSize:    hexbin.GridSize{X: c.GetGridSize(), Y: c.GetGridSizeY()},
		Orientation: o,
		Aggregator:  agg,
	}
	if c.MinCount != nil {
		v := *c.MinCount
		cfg.MinCount = &v
	}
	return cfg, nil
}

// RenderOptions builds the figure settings described by c.
func (c *TilesConfig) RenderOptions() render.Options {
	o := render.DefaultOptions()
	o.Title = c.GetTitle()
	o.Colormap = c.GetColormap()
	o.SizeIndex = c.GetSizeIndex()
	o.MaxScale = c.GetMaxScale()
	o.Width = vg.Length(c.GetWidthInches()) * vg.Inch
	o.Height = vg.Length(c.GetHeightInches()) * vg.Inch
	if c.MinCount != nil {
		v := *c.MinCount
		o.MinCount = &v
	}
	return o
}

// GetGridSize returns the gridsize value or the default.
func (c *TilesConfig) GetGridSize() int {
	if c.GridSize == nil {
		return hexbin.DefaultGridSize
	}
	return *c.GridSize
}

// GetGridSizeY returns gridsize_y, falling back to gridsize.
func (c *TilesConfig) GetGridSizeY() int {
	if c.GridSizeY == nil {
		return c.GetGridSize()
	}
	return *c.GridSizeY
}

// GetOrientation returns the orientation value or the default.
func (c *TilesConfig) GetOrientation() string {
	if c.Orientation == nil {
		return hexbin.Pointy.String()
	}
	return *c.Orientation
}

// GetAggregator returns the aggregator value or the default.
func (c *TilesConfig) GetAggregator() string {
	if c.Aggregator == nil {
		return hexbin.Count.Name
	}
	return *c.Aggregator
}

// GetMaxScale returns the max_scale value or the default.
func (c *TilesConfig) GetMaxScale() float64 {
	if c.MaxScale == nil {
		return render.DefaultMaxScale
	}
	return *c.MaxScale
}

// GetSizeIndex returns the size_index value; empty disables size scaling.
func (c *TilesConfig) GetSizeIndex() string {
	if c.SizeIndex == nil {
		return ""
	}
	return *c.SizeIndex
}

// GetColormap returns the colormap value or the default.
func (c *TilesConfig) GetColormap() string {
	if c.Colormap == nil || *c.Colormap == "" {
		return render.DefaultColormap
	}
	return *c.Colormap
}

// GetWidthInches returns the width_inches value or the default.
func (c *TilesConfig) GetWidthInches() float64 {
	if c.WidthInches == nil {
		return 8
	}
	return *c.WidthInches
}

// GetHeightInches returns the height_inches value or the default.
func (c *TilesConfig) GetHeightInches() float64 {
	if c.HeightInches == nil {
		return 6
	}
	return *c.HeightInches
}

// GetTitle returns the title value or "".
func (c *TilesConfig) GetTitle() string {
	if c.Title == nil {
		return ""
	}
	return *c.Title
}

// GetListen returns the listen value or the default.
func (c *TilesConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetDBPath returns the db_path value or the default.
func (c *TilesConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "hextiles.db"
	}
	return *c.DBPath
}

// GetExportDir returns the export_dir value or the default.
func (c *TilesConfig) GetExportDir() string {
	if c.ExportDir == nil || *c.ExportDir == "" {
		return "exports"
	}
	return *c.ExportDir
}

// GetShutdownTimeout parses and returns the ShutdownTimeout as a time.Duration.
func (c *TilesConfig) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == nil || *c.ShutdownTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}
