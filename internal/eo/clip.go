package eo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Clip restricts the cube to the cells whose centre coordinates fall
// inside the bounding box, for every time slice. Selection is purely
// coordinate-based against the cube's X/Y vectors (longitude ascending,
// latitude descending), so the bbox must be expressed in the cube's
// georeference. The input cube is not modified; clipped grids are
// copies.
func Clip(c *Cube, bbox orb.Bound) (*Cube, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	colLo, colHi := -1, -1
	for i, x := range c.X {
		if x >= bbox.Min[0] && x <= bbox.Max[0] {
			if colLo < 0 {
				colLo = i
			}
			colHi = i
		}
	}
	rowLo, rowHi := -1, -1
	for j, y := range c.Y {
		if y >= bbox.Min[1] && y <= bbox.Max[1] {
			if rowLo < 0 {
				rowLo = j
			}
			rowHi = j
		}
	}
	if colLo < 0 || rowLo < 0 {
		return nil, fmt.Errorf("bounding box [%v %v] does not intersect the cube extent", bbox.Min, bbox.Max)
	}

	rows := rowHi - rowLo + 1
	cols := colHi - colLo + 1

	out := &Cube{
		Times:      c.Times,
		X:          append([]float64(nil), c.X[colLo:colHi+1]...),
		Y:          append([]float64(nil), c.Y[rowLo:rowHi+1]...),
		PixelSizeM: c.PixelSizeM,
		Aggregated: c.Aggregated,
	}

	if c.SCL != nil {
		out.SCL = make([]*ClassGrid, len(c.SCL))
		for i, g := range c.SCL {
			clipped := NewClassGrid(rows, cols)
			for r := 0; r < rows; r++ {
				src := (rowLo+r)*g.Cols + colLo
				copy(clipped.Data[r*cols:(r+1)*cols], g.Data[src:src+cols])
			}
			out.SCL[i] = clipped
		}
	}
	if c.Spectral != nil {
		out.Spectral = make(map[string][]*FloatGrid, len(c.Spectral))
		for band, grids := range c.Spectral {
			clippedGrids := make([]*FloatGrid, len(grids))
			for i, g := range grids {
				clipped := NewFloatGrid(rows, cols)
				for r := 0; r < rows; r++ {
					src := (rowLo+r)*g.Cols + colLo
					copy(clipped.Data[r*cols:(r+1)*cols], g.Data[src:src+cols])
				}
				clippedGrids[i] = clipped
			}
			out.Spectral[band] = clippedGrids
		}
	}
	return out, nil
}
