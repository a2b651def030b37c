package loader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/eo/stac"
)

// fakeReader serves canned rasters keyed by href and records the reads.
type fakeReader struct {
	rasters map[string]*Raster
	reads   []string
}

func (f *fakeReader) ReadBand(href string) (*Raster, error) {
	f.reads = append(f.reads, href)
	r, ok := f.rasters[href]
	if !ok {
		return nil, fmt.Errorf("no raster for %s", href)
	}
	return r, nil
}

func flatRaster(rows, cols int, fill float64, pixelSize float64) *Raster {
	r := &Raster{Rows: rows, Cols: cols, Data: make([]float64, rows*cols), PixelSizeM: pixelSize}
	for i := range r.Data {
		r.Data[i] = fill
	}
	return r
}

func testItem(id, datetime string, assets map[string]string) stac.Item {
	item := stac.Item{
		ID:         id,
		Collection: stac.Sentinel2L2A,
		BBox:       []float64{10, 45, 11, 46},
		Assets:     map[string]stac.Asset{},
	}
	item.Properties.Datetime = datetime
	for key, href := range assets {
		item.Assets[key] = stac.Asset{Href: href}
	}
	return item
}

func TestLoad(t *testing.T) {
	reader := &fakeReader{rasters: map[string]*Raster{
		"s3://a/scl.tif": flatRaster(4, 4, float64(eo.ClassVegetation), 20),
		"s3://a/red.tif": flatRaster(4, 4, 0.1, 20),
		"s3://b/scl.tif": flatRaster(4, 4, float64(eo.ClassWater), 20),
		"s3://b/red.tif": flatRaster(4, 4, 0.2, 20),
	}}
	items := []stac.Item{
		// Out of temporal order on purpose.
		testItem("b", "2023-07-05T10:00:00Z", map[string]string{"scl": "s3://b/scl.tif", "red": "s3://b/red.tif"}),
		testItem("a", "2023-07-01T10:00:00Z", map[string]string{"scl": "s3://a/scl.tif", "red": "s3://a/red.tif"}),
	}

	cube, err := Load(items, reader, Options{Bands: []string{"red", "scl"}, ResolutionM: 20})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cube.Scenes() != 2 {
		t.Fatalf("cube has %d scenes, want 2", cube.Scenes())
	}
	if !cube.Times[0].Before(cube.Times[1]) {
		t.Errorf("scenes out of temporal order: %v", cube.Times)
	}
	// Scene 0 is item "a", the earlier capture.
	if got := cube.SCL[0].At(0, 0); got != eo.ClassVegetation {
		t.Errorf("scene 0 class = %d, want vegetation", got)
	}
	if got := cube.Spectral[eo.BandRed][1].At(0, 0); got != 0.2 {
		t.Errorf("scene 1 red = %v, want 0.2", got)
	}
	if cube.PixelSizeM != 20 {
		t.Errorf("pixel size = %v, want 20", cube.PixelSizeM)
	}
}

func TestLoadAggregation(t *testing.T) {
	reader := &fakeReader{rasters: map[string]*Raster{
		"s3://a/scl.tif": flatRaster(2, 2, 4, 20),
		"s3://b/scl.tif": flatRaster(2, 2, 6, 20),
		"s3://c/scl.tif": flatRaster(2, 2, 5, 20),
	}}
	items := []stac.Item{
		testItem("a", "2023-07-01T10:00:00Z", map[string]string{"scl": "s3://a/scl.tif"}),
		testItem("b", "2023-07-01T12:30:00Z", map[string]string{"scl": "s3://b/scl.tif"}),
		testItem("c", "2023-07-02T10:00:00Z", map[string]string{"scl": "s3://c/scl.tif"}),
	}

	cube, err := Load(items, reader, Options{Bands: []string{"scl"}, ResolutionM: 20, Aggregation: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cube.Scenes() != 2 {
		t.Fatalf("cube has %d scenes, want 2 after same-day aggregation", cube.Scenes())
	}
	// The day's first capture wins.
	if got := cube.SCL[0].At(0, 0); got != 4 {
		t.Errorf("aggregated scene class = %d, want 4", got)
	}
	if !cube.Aggregated {
		t.Error("cube should be marked aggregated")
	}
}

func TestLoadDecimation(t *testing.T) {
	// A 10m raster loaded at 20m keeps every second pixel.
	src := flatRaster(4, 4, 0, 10)
	for i := range src.Data {
		src.Data[i] = float64(i)
	}
	reader := &fakeReader{rasters: map[string]*Raster{"s3://a/red.tif": src}}
	items := []stac.Item{
		testItem("a", "2023-07-01T10:00:00Z", map[string]string{"red": "s3://a/red.tif"}),
	}

	cube, err := Load(items, reader, Options{Bands: []string{"red"}, ResolutionM: 20})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g := cube.Spectral[eo.BandRed][0]
	if g.Rows != 2 || g.Cols != 2 {
		t.Fatalf("decimated shape = %dx%d, want 2x2", g.Rows, g.Cols)
	}
	want := []float64{0, 2, 8, 10}
	for i, v := range want {
		if g.Data[i] != v {
			t.Errorf("pixel %d = %v, want %v", i, g.Data[i], v)
		}
	}
}

func TestLoadAssetAliases(t *testing.T) {
	reader := &fakeReader{rasters: map[string]*Raster{
		"s3://a/B04.tif": flatRaster(2, 2, 0.1, 20),
		"s3://a/B08.tif": flatRaster(2, 2, 0.5, 20),
	}}
	items := []stac.Item{
		testItem("a", "2023-07-01T10:00:00Z", map[string]string{
			"B04": "s3://a/B04.tif",
			"B08": "s3://a/B08.tif",
		}),
	}

	cube, err := Load(items, reader, Options{Bands: []string{"red", "nir"}, ResolutionM: 20})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cube.Spectral[eo.BandNIR][0].At(0, 0); got != 0.5 {
		t.Errorf("nir = %v, want 0.5", got)
	}
}

func TestLoadErrors(t *testing.T) {
	scl := flatRaster(2, 2, 4, 20)

	t.Run("no items", func(t *testing.T) {
		_, err := Load(nil, &fakeReader{}, Options{Bands: []string{"scl"}, ResolutionM: 20})
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("missing asset", func(t *testing.T) {
		items := []stac.Item{testItem("a", "2023-07-01T10:00:00Z", nil)}
		_, err := Load(items, &fakeReader{}, Options{Bands: []string{"scl"}, ResolutionM: 20})
		if err == nil {
			t.Fatal("expected an error for a missing asset")
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		reader := &fakeReader{rasters: map[string]*Raster{
			"s3://a/scl.tif": scl,
			"s3://b/scl.tif": flatRaster(3, 3, 4, 20),
		}}
		items := []stac.Item{
			testItem("a", "2023-07-01T10:00:00Z", map[string]string{"scl": "s3://a/scl.tif"}),
			testItem("b", "2023-07-02T10:00:00Z", map[string]string{"scl": "s3://b/scl.tif"}),
		}
		_, err := Load(items, reader, Options{Bands: []string{"scl"}, ResolutionM: 20})
		if !errors.Is(err, eo.ErrShapeMismatch) {
			t.Fatalf("err = %v, want ErrShapeMismatch", err)
		}
	})

	t.Run("unparseable datetime", func(t *testing.T) {
		items := []stac.Item{testItem("a", "yesterday", map[string]string{"scl": "s3://a/scl.tif"})}
		reader := &fakeReader{rasters: map[string]*Raster{"s3://a/scl.tif": scl}}
		_, err := Load(items, reader, Options{Bands: []string{"scl"}, ResolutionM: 20})
		if err == nil {
			t.Fatal("expected an error for a bad datetime")
		}
	})
}
