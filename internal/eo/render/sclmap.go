package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/timeutil"
)

// classPalette assigns one colour per SCL class, roughly following the
// conventional Sentinel-2 classification colouring.
var classPalette = [eo.NumClasses]color.RGBA{
	{0x00, 0x00, 0x00, 0xff}, // no data
	{0xff, 0x00, 0x00, 0xff}, // saturated / defective
	{0x2f, 0x2f, 0x2f, 0xff}, // dark area
	{0x64, 0x32, 0x00, 0xff}, // cloud shadow
	{0x00, 0xa0, 0x00, 0xff}, // vegetation
	{0xff, 0xe6, 0x5c, 0xff}, // bare soil
	{0x00, 0x00, 0xff, 0xff}, // water
	{0x80, 0x80, 0x80, 0xff}, // cloud low probability
	{0xc0, 0xc0, 0xc0, 0xff}, // cloud medium probability
	{0xff, 0xff, 0xff, 0xff}, // cloud high probability
	{0x64, 0xc8, 0xff, 0xff}, // cirrus
	{0xff, 0x96, 0xff, 0xff}, // snow / ice
}

// SCLImage renders one classification grid to an RGBA image using the
// class palette. Out-of-range codes render as No Data.
func SCLImage(g *eo.ClassGrid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			code := g.At(r, c)
			if int(code) >= eo.NumClasses {
				code = eo.ClassNoData
			}
			img.SetRGBA(c, r, classPalette[code])
		}
	}
	return img
}

// SaveSCLMaps writes one classification map PNG per scene into outDir,
// named by the scene's timestamp label.
func SaveSCLMaps(cube *eo.Cube, outDir string) error {
	if cube.SCL == nil {
		return eo.ErrMissingSCL
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for sceneID, ts := range cube.Times {
		label := timeutil.SceneLabel(ts, cube.Aggregated)
		path := filepath.Join(outDir, fmt.Sprintf("scl_%s.png", sanitizeLabel(label)))
		if err := writePNG(path, SCLImage(cube.SCL[sceneID])); err != nil {
			return fmt.Errorf("scene %d: %w", sceneID, err)
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel makes a timestamp label filesystem-safe.
func sanitizeLabel(label string) string {
	out := []rune(label)
	for i, r := range out {
		if r == ':' {
			out[i] = '-'
		}
	}
	return string(out)
}
