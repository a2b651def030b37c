package loader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
)

// GDALReader reads band rasters through GDAL. HTTP(S) hrefs are opened
// with the /vsicurl/ virtual filesystem so cloud-optimized GeoTIFFs are
// range-read rather than downloaded whole.
type GDALReader struct {
	chunkX int
	chunkY int
}

var registerOnce sync.Once

// NewGDALReader registers the GDAL drivers once and returns a reader.
// Positive chunk sizes bound each read request to a chunkX by chunkY
// pixel window; zero reads a band in a single request.
func NewGDALReader(chunkX, chunkY int) *GDALReader {
	registerOnce.Do(godal.RegisterAll)
	return &GDALReader{chunkX: chunkX, chunkY: chunkY}
}

// ReadBand opens the raster at href and reads its first band at native
// size, one chunk window per request.
func (g *GDALReader) ReadBand(href string) (*Raster, error) {
	path := href
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		path = "/vsicurl/" + href
	}

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", href, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("raster %s has no bands", href)
	}
	band := bands[0]

	st := band.Structure()
	data, err := readWindowed(func(x, y int, buf []float64, sx, sy int) error {
		return band.Read(x, y, buf, sx, sy)
	}, st.SizeX, st.SizeY, g.chunkX, g.chunkY)
	if err != nil {
		return nil, fmt.Errorf("failed to read raster %s: %w", href, err)
	}

	pixelSize := 0.0
	if gt, err := ds.GeoTransform(); err == nil {
		pixelSize = gt[1]
	}

	return &Raster{
		Rows:       st.SizeY,
		Cols:       st.SizeX,
		Data:       data,
		PixelSizeM: pixelSize,
	}, nil
}

// readWindowed assembles a full row-major band from per-window reads of
// at most chunkX by chunkY pixels. Non-positive chunk sizes collapse to
// one full-band read.
func readWindowed(read func(x, y int, buf []float64, sx, sy int) error, sizeX, sizeY, chunkX, chunkY int) ([]float64, error) {
	data := make([]float64, sizeX*sizeY)
	if chunkX <= 0 || chunkY <= 0 {
		if err := read(0, 0, data, sizeX, sizeY); err != nil {
			return nil, err
		}
		return data, nil
	}
	for y0 := 0; y0 < sizeY; y0 += chunkY {
		sy := min(chunkY, sizeY-y0)
		for x0 := 0; x0 < sizeX; x0 += chunkX {
			sx := min(chunkX, sizeX-x0)
			buf := make([]float64, sx*sy)
			if err := read(x0, y0, buf, sx, sy); err != nil {
				return nil, err
			}
			for r := 0; r < sy; r++ {
				row := (y0+r)*sizeX + x0
				copy(data[row:row+sx], buf[r*sx:(r+1)*sx])
			}
		}
	}
	return data, nil
}
