// Package eo holds the in-memory raster model for the Sentinel-2
// vegetation pipeline: the time-indexed band cube, the scene
// classification enumeration, and the quality metrics derived from it.
package eo

import (
	"errors"
	"fmt"
	"time"
)

// SCL class codes as defined by the ESA Sentinel-2 Level-2A product.
const (
	ClassNoData uint8 = iota
	ClassSaturated
	ClassDarkArea
	ClassCloudShadow
	ClassVegetation
	ClassBareSoil
	ClassWater
	ClassCloudLow
	ClassCloudMedium
	ClassCloudHigh
	ClassCirrus
	ClassSnowIce
)

// NumClasses is the size of the SCL enumeration (codes 0..11).
const NumClasses = 12

// ClassLabels maps SCL codes to human-readable names, used in legends
// and log output.
var ClassLabels = [NumClasses]string{
	"No data",
	"Saturated / defective",
	"Dark area pixels",
	"Cloud shadows",
	"Vegetation",
	"Bare soils",
	"Water",
	"Clouds low probability",
	"Clouds medium probability",
	"Clouds high probability",
	"Cirrus",
	"Snow / ice",
}

// Band names the loader understands. The SCL band is held separately
// from the spectral bands because its pixels are class codes, not
// reflectance values.
const (
	BandRed = "red"
	BandNIR = "nir"
	BandSCL = "scl"
)

// Shape and content errors surfaced by cube operations. They map to the
// "input-shape" error class: a malformed cube aborts the whole run.
var (
	ErrMissingSCL    = errors.New("cube does not contain an scl band")
	ErrMissingBand   = errors.New("cube is missing a required spectral band")
	ErrNoScenes      = errors.New("cube has no time steps")
	ErrShapeMismatch = errors.New("band shape does not match cube shape")
)

// ClassGrid is a single 2D scene of SCL class codes, row-major.
type ClassGrid struct {
	Rows int
	Cols int
	Data []uint8
}

// NewClassGrid allocates a zeroed (all No Data) grid.
func NewClassGrid(rows, cols int) *ClassGrid {
	return &ClassGrid{Rows: rows, Cols: cols, Data: make([]uint8, rows*cols)}
}

// At returns the class code at (row, col).
func (g *ClassGrid) At(row, col int) uint8 {
	return g.Data[row*g.Cols+col]
}

// Set writes the class code at (row, col).
func (g *ClassGrid) Set(row, col int, code uint8) {
	g.Data[row*g.Cols+col] = code
}

// FloatGrid is a single 2D scene of reflectance (or index) values,
// row-major. NaN marks pixels excluded from computation.
type FloatGrid struct {
	Rows int
	Cols int
	Data []float64
}

// NewFloatGrid allocates a zeroed grid.
func NewFloatGrid(rows, cols int) *FloatGrid {
	return &FloatGrid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the value at (row, col).
func (g *FloatGrid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set writes the value at (row, col).
func (g *FloatGrid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// Cube is a time-indexed multi-band raster over a single spatial grid.
// Times are in ascending temporal order and every per-scene grid shares
// the Rows x Cols shape. X and Y hold cell-centre coordinates in the
// cube's native georeference, ascending in X and descending in Y (north
// up), mirroring how the rasters are stored.
//
// Stages never mutate a cube they receive; selection and clipping return
// new cubes that share the underlying grid storage.
type Cube struct {
	Times    []time.Time
	X        []float64
	Y        []float64
	SCL      []*ClassGrid            // one grid per time step, may be nil if scl was not loaded
	Spectral map[string][]*FloatGrid // band name -> one grid per time step

	// PixelSizeM is the ground resolution in metres per pixel, used
	// for area conversion downstream.
	PixelSizeM float64

	// Aggregated records whether same-day captures were merged; it
	// only affects how scene timestamps are formatted.
	Aggregated bool
}

// Scenes returns the number of time steps.
func (c *Cube) Scenes() int {
	return len(c.Times)
}

// Rows returns the per-scene row count.
func (c *Cube) Rows() int {
	return len(c.Y)
}

// Cols returns the per-scene column count.
func (c *Cube) Cols() int {
	return len(c.X)
}

// SCLScene returns the classification grid for one time step.
func (c *Cube) SCLScene(sceneID int) (*ClassGrid, error) {
	if c.SCL == nil {
		return nil, ErrMissingSCL
	}
	if sceneID < 0 || sceneID >= len(c.SCL) {
		return nil, fmt.Errorf("scene %d out of bounds (0 to %d)", sceneID, len(c.SCL)-1)
	}
	return c.SCL[sceneID], nil
}

// SpectralScene returns the named band grid for one time step.
func (c *Cube) SpectralScene(band string, sceneID int) (*FloatGrid, error) {
	grids, ok := c.Spectral[band]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingBand, band)
	}
	if sceneID < 0 || sceneID >= len(grids) {
		return nil, fmt.Errorf("scene %d out of bounds (0 to %d)", sceneID, len(grids)-1)
	}
	return grids[sceneID], nil
}

// Validate checks the cube's internal consistency: at least one time
// step, and every band holding one grid of the shared shape per step.
func (c *Cube) Validate() error {
	if len(c.Times) == 0 {
		return ErrNoScenes
	}
	rows, cols := c.Rows(), c.Cols()
	if c.SCL != nil {
		if len(c.SCL) != len(c.Times) {
			return fmt.Errorf("%w: scl has %d scenes, cube has %d", ErrShapeMismatch, len(c.SCL), len(c.Times))
		}
		for i, g := range c.SCL {
			if g.Rows != rows || g.Cols != cols {
				return fmt.Errorf("%w: scl scene %d is %dx%d, cube is %dx%d", ErrShapeMismatch, i, g.Rows, g.Cols, rows, cols)
			}
		}
	}
	for band, grids := range c.Spectral {
		if len(grids) != len(c.Times) {
			return fmt.Errorf("%w: %s has %d scenes, cube has %d", ErrShapeMismatch, band, len(grids), len(c.Times))
		}
		for i, g := range grids {
			if g.Rows != rows || g.Cols != cols {
				return fmt.Errorf("%w: %s scene %d is %dx%d, cube is %dx%d", ErrShapeMismatch, band, i, g.Rows, g.Cols, rows, cols)
			}
		}
	}
	return nil
}

// Select returns a new cube containing only the scenes at the given
// time indices, in the order given. Grid storage is shared with the
// receiver; the receiver is not modified.
func (c *Cube) Select(sceneIDs []int) (*Cube, error) {
	out := &Cube{
		X:          c.X,
		Y:          c.Y,
		PixelSizeM: c.PixelSizeM,
		Aggregated: c.Aggregated,
	}
	if c.Spectral != nil {
		out.Spectral = make(map[string][]*FloatGrid, len(c.Spectral))
	}
	for _, id := range sceneIDs {
		if id < 0 || id >= len(c.Times) {
			return nil, fmt.Errorf("scene %d out of bounds (0 to %d)", id, len(c.Times)-1)
		}
		out.Times = append(out.Times, c.Times[id])
		if c.SCL != nil {
			out.SCL = append(out.SCL, c.SCL[id])
		}
		for band, grids := range c.Spectral {
			out.Spectral[band] = append(out.Spectral[band], grids[id])
		}
	}
	return out, nil
}
