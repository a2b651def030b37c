package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/eo-data/vegetation.report/internal/config"
	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/eo/loader"
	"github.com/eo-data/vegetation.report/internal/eo/stac"
	"github.com/eo-data/vegetation.report/internal/eo/store"
)

type fakeCatalog struct {
	items []stac.Item
	err   error
}

func (f *fakeCatalog) Search(ctx context.Context, opts stac.SearchOptions) ([]stac.Item, error) {
	return f.items, f.err
}

type fakeReader struct {
	rasters map[string]*loader.Raster
}

func (f *fakeReader) ReadBand(href string) (*loader.Raster, error) {
	r, ok := f.rasters[href]
	if !ok {
		return nil, fmt.Errorf("no raster for %s", href)
	}
	return r, nil
}

func sclRaster(codes []uint8) *loader.Raster {
	r := &loader.Raster{Rows: 4, Cols: 4, Data: make([]float64, 16), PixelSizeM: 20}
	for i, c := range codes {
		r.Data[i] = float64(c)
	}
	return r
}

func uniformCodes(code uint8) []uint8 {
	codes := make([]uint8, 16)
	for i := range codes {
		codes[i] = code
	}
	return codes
}

func testConfig() *config.Pipeline {
	return &config.Pipeline{
		Search: config.SearchConfig{
			CatalogURL:          "https://example.com/v1",
			BBox:                []float64{10, 45, 11, 46},
			DateRange:           "2023-07-01/2023-07-31",
			CloudCoverThreshold: 30,
		},
		Load: config.LoadConfig{
			Bands:      []string{"scl"},
			Resolution: 20,
		},
		Filter: config.FilterConfig{
			ValidityThreshold: 0.9,
			CoverageThreshold: 0.5,
		},
	}
}

func catalogItem(id, datetime, sclHref string) stac.Item {
	item := stac.Item{
		ID:         id,
		Collection: stac.Sentinel2L2A,
		BBox:       []float64{10, 45, 11, 46},
		Assets:     map[string]stac.Asset{"scl": {Href: sclHref}},
	}
	item.Properties.Datetime = datetime
	return item
}

func TestPipelineRun(t *testing.T) {
	catalog := &fakeCatalog{items: []stac.Item{
		catalogItem("clear", "2023-07-01T10:00:00Z", "s3://clear/scl.tif"),
		catalogItem("cloudy", "2023-07-06T10:00:00Z", "s3://cloudy/scl.tif"),
	}}
	reader := &fakeReader{rasters: map[string]*loader.Raster{
		"s3://clear/scl.tif":  sclRaster(uniformCodes(eo.ClassVegetation)),
		"s3://cloudy/scl.tif": sclRaster(uniformCodes(eo.ClassCloudHigh)),
	}}

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	outDir := filepath.Join(t.TempDir(), "out")
	p := &Pipeline{
		Config:  testConfig(),
		Catalog: catalog,
		Reader:  reader,
		Store:   s,
		OutDir:  outDir,
	}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The fully clouded scene fails coverage; only the clear one
	// survives.
	if len(res.Kept) != 1 || res.Kept[0] != 0 {
		t.Errorf("kept = %v, want [0]", res.Kept)
	}
	if len(res.Series) != 1 {
		t.Fatalf("series has %d points, want 1", len(res.Series))
	}
	if res.Series[0].Pixels != 16 {
		t.Errorf("vegetation pixels = %d, want 16", res.Series[0].Pixels)
	}
	if res.RunID == "" {
		t.Error("run was not recorded")
	}

	// Rendered outputs exist.
	for _, name := range []string{"vegetation_area.png", "vegetation_area.html"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	// The stored series matches the returned one.
	stored, err := s.TimeSeries(res.RunID)
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if len(stored) != 1 || stored[0].Pixels != 16 {
		t.Errorf("stored series = %+v", stored)
	}

	// Every assessed scene got a quality record.
	records, err := s.QualityReport(res.RunID)
	if err != nil {
		t.Fatalf("QualityReport: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d quality records, want 2", len(records))
	}
}

func TestPipelineRunWithSpectralBands(t *testing.T) {
	nir := &loader.Raster{Rows: 4, Cols: 4, Data: make([]float64, 16), PixelSizeM: 20}
	red := &loader.Raster{Rows: 4, Cols: 4, Data: make([]float64, 16), PixelSizeM: 20}
	for i := range nir.Data {
		nir.Data[i] = 0.8
		red.Data[i] = 0.1
	}

	catalog := &fakeCatalog{items: []stac.Item{
		{
			ID:         "clear",
			Collection: stac.Sentinel2L2A,
			BBox:       []float64{10, 45, 11, 46},
			Properties: stac.ItemProperties{Datetime: "2023-07-01T10:00:00Z"},
			Assets: map[string]stac.Asset{
				"scl": {Href: "s3://clear/scl.tif"},
				"red": {Href: "s3://clear/red.tif"},
				"nir": {Href: "s3://clear/nir.tif"},
			},
		},
	}}
	reader := &fakeReader{rasters: map[string]*loader.Raster{
		"s3://clear/scl.tif": sclRaster(uniformCodes(eo.ClassVegetation)),
		"s3://clear/red.tif": red,
		"s3://clear/nir.tif": nir,
	}}

	cfg := testConfig()
	cfg.Load.Bands = []string{"red", "nir", "scl"}

	p := &Pipeline{Config: cfg, Catalog: catalog, Reader: reader}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.NDVISeries) != 1 {
		t.Fatalf("ndvi series has %d points, want 1", len(res.NDVISeries))
	}
	// All 16 pixels have NDVI 0.7/0.9, well inside the vegetation bins.
	if res.NDVISeries[0].Pixels != 16 {
		t.Errorf("ndvi vegetation pixels = %d, want 16", res.NDVISeries[0].Pixels)
	}
}

func TestPipelineRunAllScenesRejected(t *testing.T) {
	catalog := &fakeCatalog{items: []stac.Item{
		catalogItem("cloudy", "2023-07-06T10:00:00Z", "s3://cloudy/scl.tif"),
	}}
	reader := &fakeReader{rasters: map[string]*loader.Raster{
		"s3://cloudy/scl.tif": sclRaster(uniformCodes(eo.ClassCloudHigh)),
	}}

	p := &Pipeline{Config: testConfig(), Catalog: catalog, Reader: reader}
	_, err := p.Run(context.Background())
	if !errors.Is(err, eo.ErrNoScenesKept) {
		t.Fatalf("err = %v, want ErrNoScenesKept", err)
	}
}

func TestPipelineRunNoItems(t *testing.T) {
	p := &Pipeline{Config: testConfig(), Catalog: &fakeCatalog{}, Reader: &fakeReader{}}
	_, err := p.Run(context.Background())
	if !errors.Is(err, eo.ErrNoScenes) {
		t.Fatalf("err = %v, want ErrNoScenes", err)
	}
}

func TestPipelineRunSearchError(t *testing.T) {
	p := &Pipeline{
		Config:  testConfig(),
		Catalog: &fakeCatalog{err: errors.New("catalog down")},
		Reader:  &fakeReader{},
	}
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected a search error to propagate")
	}
}
