package eo

import "fmt"

// QualityRecord holds the per-scene quality metrics derived from the
// scene's classification histogram. Records are computed once and never
// updated; the filter stage consumes them as-is.
type QualityRecord struct {
	TotalPixels int     `json:"total_pixels"`
	ValidPixels int     `json:"valid_pixels"`
	ValidRatio  float64 `json:"valid_ratio"`
	CloudPixels int     `json:"cloud_pixels"`
	Coverage    float64 `json:"coverage"`
}

// QualityReport maps scene (time) index to its quality record.
type QualityReport map[int]QualityRecord

// AssessQuality computes a QualityRecord for every scene in the cube
// from its SCL band. The whole cube is assessed or the call fails;
// there are no partial reports.
//
// Per scene:
//   - valid ratio is the fraction of pixels carrying any code other
//     than No Data, 0 when the scene is empty
//   - coverage is 1 - cloud/vegetation when vegetation pixels exist and
//     clouds are strictly fewer than vegetation pixels, otherwise 0.
//     The asymmetry is intentional: a scene where clouds rival the
//     vegetation signal is treated as having no usable coverage.
func AssessQuality(cube *Cube) (QualityReport, error) {
	if cube.SCL == nil {
		return nil, ErrMissingSCL
	}
	if len(cube.Times) == 0 {
		return nil, ErrNoScenes
	}
	if len(cube.SCL) != len(cube.Times) {
		return nil, fmt.Errorf("%w: scl has %d scenes, cube has %d", ErrShapeMismatch, len(cube.SCL), len(cube.Times))
	}

	report := make(QualityReport, len(cube.Times))
	for sceneID := range cube.Times {
		h := ClassHistogram(cube.SCL[sceneID])

		total := h.Total()
		valid := h.Valid()
		validRatio := 0.0
		if total > 0 {
			validRatio = float64(valid) / float64(total)
		}

		cloud := h.Cloud()
		vegetation := h[ClassVegetation]
		coverage := 0.0
		if vegetation > 0 && cloud < vegetation {
			coverage = 1 - float64(cloud)/float64(vegetation)
		}

		report[sceneID] = QualityRecord{
			TotalPixels: total,
			ValidPixels: valid,
			ValidRatio:  validRatio,
			CloudPixels: cloud,
			Coverage:    coverage,
		}
	}
	return report, nil
}
