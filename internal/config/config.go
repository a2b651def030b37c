// Package config loads and validates the three YAML documents driving a
// pipeline run: the catalog search parameters, the band load
// parameters, and the scene filter thresholds.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/paulmach/orb"
)

// File names expected inside the config directory.
const (
	SearchFile = "search_parameters.yml"
	LoadFile   = "load_parameters.yml"
	FilterFile = "filter_parameters.yml"
)

// SearchConfig holds the STAC catalog query parameters.
type SearchConfig struct {
	CatalogURL          string    `koanf:"catalog_url"`
	BBox                []float64 `koanf:"bbox"`
	DateRange           string    `koanf:"date_range"`
	CloudCoverThreshold float64   `koanf:"cloud_cover_threshold"`
}

// Validate checks required keys, value types already being enforced by
// unmarshalling, and value ranges.
func (c *SearchConfig) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("missing required configuration key: 'catalog_url'")
	}
	if len(c.BBox) != 4 {
		return fmt.Errorf("bbox must be four numbers [min_lon, min_lat, max_lon, max_lat], got %d values", len(c.BBox))
	}
	if c.BBox[0] >= c.BBox[2] || c.BBox[1] >= c.BBox[3] {
		return fmt.Errorf("bbox min must be strictly below max, got %v", c.BBox)
	}
	if c.DateRange == "" {
		return fmt.Errorf("missing required configuration key: 'date_range'")
	}
	if parts := strings.Split(c.DateRange, "/"); len(parts) != 2 {
		return fmt.Errorf("date_range must be an ISO-8601 interval like 2020-06-01/2020-12-30, got %q", c.DateRange)
	}
	if c.CloudCoverThreshold < 0 || c.CloudCoverThreshold > 100 {
		return fmt.Errorf("cloud_cover_threshold must be between 0 and 100, got %v", c.CloudCoverThreshold)
	}
	return nil
}

// Bound returns the bbox as an orb.Bound. Call Validate first.
func (c *SearchConfig) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.BBox[0], c.BBox[1]},
		Max: orb.Point{c.BBox[2], c.BBox[3]},
	}
}

// LoadConfig holds the band loading parameters.
type LoadConfig struct {
	Bands       []string       `koanf:"bands"`
	Resolution  int            `koanf:"resolution"`
	Aggregation bool           `koanf:"aggregation"`
	// Chunks sizes the GDAL read windows, keyed "x" and "y". Missing
	// or zero axes read whole bands in one request.
	Chunks map[string]int `koanf:"chunks"`
}

// Validate checks the band list and resolution. Chunk sizes need no
// range check since non-positive values fall back to unchunked reads.
func (c *LoadConfig) Validate() error {
	if len(c.Bands) == 0 {
		return fmt.Errorf("missing required configuration key: 'bands'")
	}
	for i, b := range c.Bands {
		if b == "" {
			return fmt.Errorf("bands[%d] must be a non-empty band name", i)
		}
	}
	if c.Resolution <= 0 {
		return fmt.Errorf("resolution must be a positive integer (metres per pixel), got %d", c.Resolution)
	}
	return nil
}

// FilterConfig holds the scene retention thresholds.
type FilterConfig struct {
	ValidityThreshold float64 `koanf:"validity_threshold"`
	CoverageThreshold float64 `koanf:"coverage_threshold"`
}

// Validate checks both thresholds are in [0, 1].
func (c *FilterConfig) Validate() error {
	if c.ValidityThreshold < 0 || c.ValidityThreshold > 1 {
		return fmt.Errorf("validity_threshold must be between 0 and 1, got %v", c.ValidityThreshold)
	}
	if c.CoverageThreshold < 0 || c.CoverageThreshold > 1 {
		return fmt.Errorf("coverage_threshold must be between 0 and 1, got %v", c.CoverageThreshold)
	}
	return nil
}

// Pipeline bundles the three validated documents for one run.
type Pipeline struct {
	Search SearchConfig
	Load   LoadConfig
	Filter FilterConfig
}

// LoadDir reads and validates all three configuration files from dir.
// Any missing file, unparseable document, or invalid value aborts with
// a descriptive error.
func LoadDir(dir string) (*Pipeline, error) {
	var p Pipeline
	if err := loadYAML(filepath.Join(dir, SearchFile), &p.Search); err != nil {
		return nil, err
	}
	if err := p.Search.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", SearchFile, err)
	}
	if err := loadYAML(filepath.Join(dir, LoadFile), &p.Load); err != nil {
		return nil, err
	}
	if err := p.Load.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", LoadFile, err)
	}
	if err := loadYAML(filepath.Join(dir, FilterFile), &p.Filter); err != nil {
		return nil, err
	}
	if err := p.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", FilterFile, err)
	}
	return &p, nil
}

func loadYAML(path string, out interface{}) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := k.Unmarshal("", out); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
