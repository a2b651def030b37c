package render

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/timeutil"
)

// TimeSeriesChart builds an interactive line chart of the vegetation
// time series. Callers render it to an http.ResponseWriter or a file.
func TimeSeriesChart(series []eo.TimeSeriesPoint, aggregated bool) *charts.Line {
	labels := make([]string, len(series))
	values := make([]opts.LineData, len(series))
	for i, tp := range series {
		labels[i] = timeutil.SceneLabel(tp.Time, aggregated)
		values[i] = opts.LineData{Value: tp.AreaKm2}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vegetation Surface Area", Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vegetation Surface Area Over Time", Subtitle: fmt.Sprintf("%d scenes", len(series))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Area (km²)"}),
	)
	line.SetXAxis(labels).
		AddSeries("vegetation", values,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false), ShowSymbol: opts.Bool(true)}),
		)
	return line
}

// WriteTimeSeriesHTML renders the chart as a standalone HTML page.
func WriteTimeSeriesHTML(series []eo.TimeSeriesPoint, aggregated bool, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()
	return renderChart(TimeSeriesChart(series, aggregated), f)
}

func renderChart(line *charts.Line, w io.Writer) error {
	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
