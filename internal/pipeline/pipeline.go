// Package pipeline runs the full scene processing chain: catalog
// search, band loading, clipping, quality assessment, scene filtering,
// vegetation extraction, and result rendering.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/eo-data/vegetation.report/internal/config"
	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/eo/loader"
	"github.com/eo-data/vegetation.report/internal/eo/render"
	"github.com/eo-data/vegetation.report/internal/eo/stac"
	"github.com/eo-data/vegetation.report/internal/eo/store"
	"github.com/eo-data/vegetation.report/internal/timeutil"
)

// Reporter receives progress lines as the pipeline advances.
type Reporter interface {
	Printf(format string, v ...interface{})
}

// NopReporter discards all progress output.
type NopReporter struct{}

func (NopReporter) Printf(format string, v ...interface{}) {}

// Searcher is the catalog query dependency of the pipeline.
type Searcher interface {
	Search(ctx context.Context, opts stac.SearchOptions) ([]stac.Item, error)
}

// Pipeline wires the stages together. Catalog and Reader are required;
// Store and OutDir are optional and skipped when unset.
type Pipeline struct {
	Config  *config.Pipeline
	Catalog Searcher
	Reader  loader.BandReader
	Store   *store.Store
	OutDir  string
	Report  Reporter
}

// Result collects everything a run produced. NDVISeries is only set
// when the red and nir bands were loaded.
type Result struct {
	RunID      string
	Items      []stac.Item
	Cube       *eo.Cube
	Quality    eo.QualityReport
	Kept       []int
	Series     []eo.TimeSeriesPoint
	NDVISeries []eo.TimeSeriesPoint
}

// Run executes every stage in order. Each stage consumes the previous
// stage's output; a failing stage aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	rep := p.Report
	if rep == nil {
		rep = NopReporter{}
	}

	items, err := p.Catalog.Search(ctx, stac.SearchOptions{
		Collection:          stac.Sentinel2L2A,
		BBox:                p.Config.Search.Bound(),
		DateRange:           p.Config.Search.DateRange,
		CloudCoverThreshold: p.Config.Search.CloudCoverThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	if len(items) == 0 {
		return nil, eo.ErrNoScenes
	}
	rep.Printf("catalog search matched %d items", len(items))

	cube, err := loader.Load(items, p.Reader, loader.Options{
		Bands:       p.Config.Load.Bands,
		ResolutionM: p.Config.Load.Resolution,
		Aggregation: p.Config.Load.Aggregation,
	})
	if err != nil {
		return nil, fmt.Errorf("band loading: %w", err)
	}
	rep.Printf("loaded %d scenes at %d m resolution", cube.Scenes(), p.Config.Load.Resolution)

	clipped, err := eo.Clip(cube, p.Config.Search.Bound())
	if err != nil {
		return nil, fmt.Errorf("clipping: %w", err)
	}
	rep.Printf("clipped to %dx%d pixels", clipped.Rows(), clipped.Cols())

	quality, err := eo.AssessQuality(clipped)
	if err != nil {
		return nil, fmt.Errorf("quality assessment: %w", err)
	}
	for _, sceneID := range sortedSceneIDs(quality) {
		rec := quality[sceneID]
		rep.Printf("scene %s: valid %.3f coverage %.3f",
			timeutil.SceneLabel(clipped.Times[sceneID], clipped.Aggregated), rec.ValidRatio, rec.Coverage)
	}

	kept, err := eo.FilterScenes(quality, p.Config.Filter.ValidityThreshold, p.Config.Filter.CoverageThreshold)
	if err != nil {
		return nil, fmt.Errorf("scene filtering: %w", err)
	}
	rep.Printf("kept %d of %d scenes", len(kept), clipped.Scenes())

	filtered, err := clipped.Select(kept)
	if err != nil {
		return nil, fmt.Errorf("scene selection: %w", err)
	}

	series, err := eo.VegetationTimeSeries(filtered, filtered.PixelSizeM)
	if err != nil {
		return nil, fmt.Errorf("vegetation extraction: %w", err)
	}

	res := &Result{
		Items:   items,
		Cube:    filtered,
		Quality: quality,
		Kept:    kept,
		Series:  series,
	}

	if hasBand(filtered, eo.BandNIR) && hasBand(filtered, eo.BandRed) {
		ndvi, err := eo.NDVITimeSeries(filtered, filtered.PixelSizeM)
		if err != nil {
			return nil, fmt.Errorf("ndvi extraction: %w", err)
		}
		res.NDVISeries = ndvi
		rep.Printf("ndvi series computed for %d scenes", len(ndvi))
	}

	if p.OutDir != "" {
		if err := p.writeOutputs(res); err != nil {
			return nil, err
		}
	}
	if p.Store != nil {
		if err := p.persist(res, clipped); err != nil {
			return nil, err
		}
		rep.Printf("recorded run %s", res.RunID)
	}

	return res, nil
}

func (p *Pipeline) writeOutputs(res *Result) error {
	if err := os.MkdirAll(p.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := render.PlotTimeSeries(res.Series, filepath.Join(p.OutDir, "vegetation_area.png")); err != nil {
		return fmt.Errorf("plot time series: %w", err)
	}
	if err := render.WriteTimeSeriesHTML(res.Series, res.Cube.Aggregated, filepath.Join(p.OutDir, "vegetation_area.html")); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	if err := render.SaveSCLMaps(res.Cube, p.OutDir); err != nil {
		return fmt.Errorf("save classification maps: %w", err)
	}
	if len(res.NDVISeries) > 0 {
		if err := render.PlotTimeSeries(res.NDVISeries, filepath.Join(p.OutDir, "ndvi_area.png")); err != nil {
			return fmt.Errorf("plot ndvi series: %w", err)
		}
	}
	return nil
}

func hasBand(c *eo.Cube, band string) bool {
	_, ok := c.Spectral[band]
	return ok
}

// persist records the run. Quality records are keyed by pre-filter
// scene index, so they are stored against the assessed cube's timeline
// rather than the selected one.
func (p *Pipeline) persist(res *Result, assessed *eo.Cube) error {
	run := &store.Run{
		SceneCount: len(res.Quality),
		KeptCount:  len(res.Kept),
		PixelSizeM: res.Cube.PixelSizeM,
		Aggregated: res.Cube.Aggregated,
	}
	if err := p.Store.InsertRun(run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	res.RunID = run.RunID

	if err := p.Store.RecordQuality(res.RunID, assessed, res.Quality, res.Kept); err != nil {
		return fmt.Errorf("record quality: %w", err)
	}
	if err := p.Store.RecordTimeSeries(res.RunID, res.Series); err != nil {
		return fmt.Errorf("record series: %w", err)
	}
	return nil
}

func sortedSceneIDs(report eo.QualityReport) []int {
	ids := make([]int, 0, len(report))
	for id := range report {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
