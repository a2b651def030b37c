package eo

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// NDVIBinEdges are the histogram dividers used to bucket NDVI values
// into interpretation classes. Vegetation is counted from
// VegetationBin upward, i.e. NDVI of roughly 0.2 and above.
var NDVIBinEdges = []float64{-1.0, 0.0, 0.1, 0.2, 0.3, 0.5, 1.0}

// VegetationBin is the first NDVI histogram bin counted as vegetation.
const VegetationBin = 3

// ndviEpsilon bounds the denominator below which a pixel is treated as
// undefined rather than divided.
const ndviEpsilon = 1e-8

// NDVI computes the normalized difference vegetation index
// (nir-red)/(nir+red) per pixel. Pixels whose denominator is near zero
// are set to NaN and excluded from any subsequent histogram; all other
// values are clamped to [-1, 1].
func NDVI(nir, red *FloatGrid) (*FloatGrid, error) {
	if nir.Rows != red.Rows || nir.Cols != red.Cols {
		return nil, fmt.Errorf("%w: nir is %dx%d, red is %dx%d", ErrShapeMismatch, nir.Rows, nir.Cols, red.Rows, red.Cols)
	}
	out := NewFloatGrid(nir.Rows, nir.Cols)
	for i := range nir.Data {
		denom := nir.Data[i] + red.Data[i]
		if math.Abs(denom) < ndviEpsilon {
			out.Data[i] = math.NaN()
			continue
		}
		v := (nir.Data[i] - red.Data[i]) / denom
		out.Data[i] = math.Max(-1, math.Min(1, v))
	}
	return out, nil
}

// NDVIHistogram buckets the grid's defined (non-NaN) values into the
// given bin edges and returns one count per bin. The top edge is
// inclusive, so a clamped NDVI of exactly 1.0 lands in the last bin.
func NDVIHistogram(g *FloatGrid, edges []float64) []float64 {
	values := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	counts := make([]float64, len(edges)-1)
	if len(values) == 0 {
		return counts
	}
	sort.Float64s(values)

	// stat.Histogram treats the last divider as exclusive and panics
	// on samples at or above it. Split those off and count them in
	// the last bin directly.
	top := edges[len(edges)-1]
	n := len(values)
	for n > 0 && values[n-1] >= top {
		n--
	}
	if n > 0 {
		stat.Histogram(counts, edges, values[:n], nil)
	}
	counts[len(counts)-1] += float64(len(values) - n)
	return counts
}

// NDVITimeSeries computes a vegetation surface area time series from
// the cube's nir and red bands. Per scene, pixels whose NDVI falls into
// the vegetation bins are counted and converted to km2. This is the
// index-based alternative to the classification-based
// VegetationTimeSeries.
func NDVITimeSeries(cube *Cube, pixelSizeM float64) ([]TimeSeriesPoint, error) {
	if len(cube.Times) == 0 {
		return nil, ErrNoScenes
	}
	nirGrids, ok := cube.Spectral[BandNIR]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingBand, BandNIR)
	}
	redGrids, ok := cube.Spectral[BandRed]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingBand, BandRed)
	}

	series := make([]TimeSeriesPoint, 0, len(cube.Times))
	for sceneID, ts := range cube.Times {
		ndvi, err := NDVI(nirGrids[sceneID], redGrids[sceneID])
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", sceneID, err)
		}
		counts := NDVIHistogram(ndvi, NDVIBinEdges)

		pixels := 0
		for _, c := range counts[VegetationBin:] {
			pixels += int(c)
		}
		series = append(series, TimeSeriesPoint{
			Time:    ts,
			Pixels:  pixels,
			AreaKm2: PixelAreaKm2(pixels, pixelSizeM),
		})
	}
	return series, nil
}
