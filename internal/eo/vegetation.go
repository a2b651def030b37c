package eo

import "time"

// TimeSeriesPoint is one (date, vegetation area) observation. Points
// are emitted in the cube's temporal order.
type TimeSeriesPoint struct {
	Time    time.Time
	Pixels  int
	AreaKm2 float64
}

// PixelAreaKm2 converts a pixel count at the given ground resolution to
// a surface area in square kilometres.
func PixelAreaKm2(pixels int, pixelSizeM float64) float64 {
	return float64(pixels) * pixelSizeM * pixelSizeM / 1e6
}

// VegetationTimeSeries counts vegetation-classified pixels (SCL class 4)
// per scene and converts the counts to area estimates. The vegetation
// count is looked up by class code in the histogram, never by slice
// position, so the result does not depend on class ordering.
func VegetationTimeSeries(cube *Cube, pixelSizeM float64) ([]TimeSeriesPoint, error) {
	if cube.SCL == nil {
		return nil, ErrMissingSCL
	}
	if len(cube.Times) == 0 {
		return nil, ErrNoScenes
	}

	series := make([]TimeSeriesPoint, 0, len(cube.Times))
	for sceneID, ts := range cube.Times {
		h := ClassHistogram(cube.SCL[sceneID])
		pixels := h[ClassVegetation]
		series = append(series, TimeSeriesPoint{
			Time:    ts,
			Pixels:  pixels,
			AreaKm2: PixelAreaKm2(pixels, pixelSizeM),
		})
	}
	return series, nil
}
