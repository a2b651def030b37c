// Package loader assembles the time-indexed band cube from STAC items.
// Band rasters are read through a BandReader, normally GDAL-backed (see
// gdal.go), so the assembly logic stays testable without raster
// fixtures.
package loader

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/eo/stac"
)

// Raster is one decoded band: a row-major value grid plus the ground
// resolution it was stored at.
type Raster struct {
	Rows       int
	Cols       int
	Data       []float64
	PixelSizeM float64
}

// BandReader resolves an asset href to its pixel values.
type BandReader interface {
	ReadBand(href string) (*Raster, error)
}

// Options control cube assembly.
type Options struct {
	// Bands to load, e.g. ["red", "nir", "scl"].
	Bands []string

	// ResolutionM is the target ground resolution in metres per
	// pixel. Rasters stored finer than this are decimated by
	// nearest-neighbour stride.
	ResolutionM int

	// Aggregation groups multiple captures of the same solar day
	// into one scene (the day's first item).
	Aggregation bool
}

// assetAliases maps the configured band names to the asset keys used by
// common Sentinel-2 catalogs.
var assetAliases = map[string][]string{
	eo.BandRed: {"red", "B04", "b04"},
	eo.BandNIR: {"nir", "B08", "b08"},
	eo.BandSCL: {"scl", "SCL"},
}

// Load reads the requested bands of every item into a cube. Scenes are
// ordered by acquisition time; with aggregation enabled, items sharing
// a solar day collapse into a single scene. Every raster must share the
// grid shape of the first one read, otherwise the load fails whole.
func Load(items []stac.Item, reader BandReader, opts Options) (*eo.Cube, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no catalog items provided for loading")
	}
	if len(opts.Bands) == 0 {
		return nil, fmt.Errorf("no bands requested")
	}
	if opts.ResolutionM <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %d", opts.ResolutionM)
	}

	scenes, err := orderScenes(items, opts.Aggregation)
	if err != nil {
		return nil, err
	}

	cube := &eo.Cube{
		Aggregated: opts.Aggregation,
		PixelSizeM: float64(opts.ResolutionM),
		Spectral:   make(map[string][]*eo.FloatGrid),
	}

	rows, cols := 0, 0
	for _, sc := range scenes {
		cube.Times = append(cube.Times, sc.time)
		for _, band := range opts.Bands {
			href, err := assetHref(sc.item, band)
			if err != nil {
				return nil, err
			}
			raster, err := reader.ReadBand(href)
			if err != nil {
				return nil, fmt.Errorf("item %s band %s: %w", sc.item.ID, band, err)
			}
			raster = decimate(raster, opts.ResolutionM)
			if rows == 0 {
				rows, cols = raster.Rows, raster.Cols
				cube.X, cube.Y = gridCoords(sc.item.BBox, rows, cols)
			} else if raster.Rows != rows || raster.Cols != cols {
				return nil, fmt.Errorf("%w: item %s band %s is %dx%d, cube is %dx%d",
					eo.ErrShapeMismatch, sc.item.ID, band, raster.Rows, raster.Cols, rows, cols)
			}
			if band == eo.BandSCL {
				cube.SCL = append(cube.SCL, toClassGrid(raster))
			} else {
				cube.Spectral[band] = append(cube.Spectral[band], toFloatGrid(raster))
			}
		}
	}
	if len(cube.Spectral) == 0 {
		cube.Spectral = nil
	}
	if err := cube.Validate(); err != nil {
		return nil, err
	}
	return cube, nil
}

type scene struct {
	time time.Time
	item stac.Item
}

// orderScenes sorts items by acquisition time and optionally collapses
// each solar day to its first item.
func orderScenes(items []stac.Item, aggregate bool) ([]scene, error) {
	scenes := make([]scene, 0, len(items))
	for i := range items {
		t, err := items[i].Time()
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene{time: t, item: items[i]})
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].time.Before(scenes[j].time) })

	if !aggregate {
		return scenes, nil
	}
	grouped := scenes[:0]
	lastDay := ""
	for _, sc := range scenes {
		day := sc.time.UTC().Format("2006-01-02")
		if day == lastDay {
			continue
		}
		lastDay = day
		grouped = append(grouped, sc)
	}
	return grouped, nil
}

// assetHref finds the asset backing a configured band name, trying the
// catalog's common key aliases.
func assetHref(item stac.Item, band string) (string, error) {
	keys, ok := assetAliases[band]
	if !ok {
		keys = []string{band}
	}
	for _, key := range keys {
		if asset, ok := item.Assets[key]; ok && asset.Href != "" {
			return asset.Href, nil
		}
	}
	return "", fmt.Errorf("item %s has no asset for band %q", item.ID, band)
}

// decimate reduces the raster to the target resolution by striding.
// Rasters already at or below the target resolution pass through.
func decimate(r *Raster, resolutionM int) *Raster {
	if r.PixelSizeM <= 0 {
		return r
	}
	stride := int(math.Round(float64(resolutionM) / r.PixelSizeM))
	if stride <= 1 {
		return r
	}
	rows := (r.Rows + stride - 1) / stride
	cols := (r.Cols + stride - 1) / stride
	out := &Raster{
		Rows:       rows,
		Cols:       cols,
		Data:       make([]float64, rows*cols),
		PixelSizeM: r.PixelSizeM * float64(stride),
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Data[y*cols+x] = r.Data[(y*stride)*r.Cols+x*stride]
		}
	}
	return out
}

// gridCoords derives per-axis cell-centre coordinates by spreading the
// item's WGS84 footprint linearly across the grid: longitude ascending
// per column, latitude descending per row (north up).
func gridCoords(bbox []float64, rows, cols int) (x, y []float64) {
	minLon, minLat, maxLon, maxLat := -180.0, -90.0, 180.0, 90.0
	if len(bbox) == 4 {
		minLon, minLat, maxLon, maxLat = bbox[0], bbox[1], bbox[2], bbox[3]
	}
	x = make([]float64, cols)
	dx := (maxLon - minLon) / float64(cols)
	for i := range x {
		x[i] = minLon + (float64(i)+0.5)*dx
	}
	y = make([]float64, rows)
	dy := (maxLat - minLat) / float64(rows)
	for j := range y {
		y[j] = maxLat - (float64(j)+0.5)*dy
	}
	return x, y
}

func toClassGrid(r *Raster) *eo.ClassGrid {
	g := eo.NewClassGrid(r.Rows, r.Cols)
	for i, v := range r.Data {
		code := int(math.Round(v))
		if code < 0 || code > math.MaxUint8 {
			code = 0
		}
		g.Data[i] = uint8(code)
	}
	return g
}

func toFloatGrid(r *Raster) *eo.FloatGrid {
	g := eo.NewFloatGrid(r.Rows, r.Cols)
	copy(g.Data, r.Data)
	return g
}
