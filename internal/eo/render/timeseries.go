// Package render produces the pipeline's visual outputs: the
// vegetation time-series chart as PNG and HTML, and per-scene
// classification maps.
package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/timeutil"
)

// PlotTimeSeries writes a PNG line chart of vegetation surface area
// over time.
func PlotTimeSeries(series []eo.TimeSeriesPoint, outPath string) error {
	if len(series) == 0 {
		return fmt.Errorf("no time series points to plot")
	}

	p := plot.New()
	p.Title.Text = "Vegetation Surface Area Over Time"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Vegetation Surface Area (km²)"
	p.X.Tick.Marker = plot.TimeTicks{Format: timeutil.DateLayout}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(series))
	for i, tp := range series {
		pts[i] = plotter.XY{X: float64(tp.Time.Unix()), Y: tp.AreaKm2}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("failed to build line plot: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	line.Width = vg.Points(1)
	points.Shape = draw.CircleGlyph{}
	points.Color = color.RGBA{B: 255, A: 255}
	p.Add(line, points)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("failed to save time series plot: %w", err)
	}
	return nil
}
