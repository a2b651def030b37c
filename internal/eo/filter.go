package eo

import (
	"errors"
	"sort"
)

// ErrNoScenesKept reports that filtering removed every scene. The
// pipeline treats this as fatal: there is nothing downstream can do
// with an empty cube, so the run aborts rather than continuing.
var ErrNoScenesKept = errors.New("no scenes above the quality thresholds")

// FilterScenes partitions the report's scene indices by the two quality
// thresholds and returns the kept indices in ascending temporal order.
// A scene is kept iff its valid ratio and its coverage both meet their
// thresholds; comparisons are inclusive, so a record exactly at a
// threshold passes.
//
// The decision is a pure function of the report and the thresholds:
// repeated calls with the same inputs return the same index set.
func FilterScenes(report QualityReport, validityThreshold, coverageThreshold float64) ([]int, error) {
	sceneIDs := make([]int, 0, len(report))
	for id := range report {
		sceneIDs = append(sceneIDs, id)
	}
	sort.Ints(sceneIDs)

	kept := make([]int, 0, len(sceneIDs))
	for _, id := range sceneIDs {
		rec := report[id]
		if rec.ValidRatio >= validityThreshold && rec.Coverage >= coverageThreshold {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoScenesKept
	}
	return kept, nil
}
