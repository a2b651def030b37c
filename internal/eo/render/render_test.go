package render

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eo-data/vegetation.report/internal/eo"
)

func testSeries() []eo.TimeSeriesPoint {
	base := time.Date(2023, 7, 1, 10, 0, 0, 0, time.UTC)
	return []eo.TimeSeriesPoint{
		{Time: base, Pixels: 1200, AreaKm2: 0.48},
		{Time: base.AddDate(0, 0, 5), Pixels: 900, AreaKm2: 0.36},
		{Time: base.AddDate(0, 0, 10), Pixels: 1500, AreaKm2: 0.60},
	}
}

func TestPlotTimeSeries(t *testing.T) {
	out := filepath.Join(t.TempDir(), "vegetation_area.png")
	if err := PlotTimeSeries(testSeries(), out); err != nil {
		t.Fatalf("PlotTimeSeries: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestPlotTimeSeriesEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.png")
	if err := PlotTimeSeries(nil, out); err == nil {
		t.Fatal("expected an error for an empty series")
	}
}

func TestWriteTimeSeriesHTML(t *testing.T) {
	out := filepath.Join(t.TempDir(), "vegetation_area.html")
	if err := WriteTimeSeriesHTML(testSeries(), true, out); err != nil {
		t.Fatalf("WriteTimeSeriesHTML: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "echarts") {
		t.Error("output does not embed an echarts chart")
	}
	if !strings.Contains(html, "2023-07-01") {
		t.Error("output does not contain the scene labels")
	}
}

func TestSCLImage(t *testing.T) {
	g := eo.NewClassGrid(2, 2)
	g.Set(0, 0, eo.ClassVegetation)
	g.Set(0, 1, eo.ClassWater)
	g.Set(1, 0, 200) // out of range renders as no data

	img := SCLImage(g)
	if got := img.RGBAAt(0, 0); got != classPalette[eo.ClassVegetation] {
		t.Errorf("vegetation pixel = %v", got)
	}
	if got := img.RGBAAt(1, 0); got != classPalette[eo.ClassWater] {
		t.Errorf("water pixel = %v", got)
	}
	if got := img.RGBAAt(0, 1); got != classPalette[eo.ClassNoData] {
		t.Errorf("out-of-range pixel = %v, want no data colour", got)
	}
	if got := img.RGBAAt(1, 1); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Errorf("zero pixel = %v, want no data colour", got)
	}
}

func TestSaveSCLMaps(t *testing.T) {
	g := eo.NewClassGrid(2, 2)
	cube := &eo.Cube{
		Times:      []time.Time{time.Date(2023, 7, 1, 10, 15, 0, 0, time.UTC)},
		X:          []float64{0, 1},
		Y:          []float64{1, 0},
		SCL:        []*eo.ClassGrid{g},
		Aggregated: false,
	}
	dir := t.TempDir()
	if err := SaveSCLMaps(cube, dir); err != nil {
		t.Fatalf("SaveSCLMaps: %v", err)
	}

	// Colons in the timestamp are not filesystem-safe.
	want := filepath.Join(dir, "scl_2023-07-01T10-15-00.png")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected map at %s: %v", want, err)
	}
}

func TestSaveSCLMapsMissingBand(t *testing.T) {
	cube := &eo.Cube{Times: []time.Time{time.Now()}}
	if err := SaveSCLMaps(cube, t.TempDir()); err == nil {
		t.Fatal("expected an error for a cube without scl")
	}
}
