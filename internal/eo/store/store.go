// Package store persists pipeline runs, per-scene quality records and
// the resulting vegetation time series in a sqlite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/timeutil"
)

// Store wraps the sqlite handle.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (or creates) the database at path and applies any pending
// schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for debug tooling (tailsql mount).
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetClock overrides the run timestamp source, for tests.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Run is one recorded pipeline execution.
type Run struct {
	RunID      string
	CreatedAt  time.Time
	SceneCount int
	KeptCount  int
	PixelSizeM float64
	Aggregated bool
}

// InsertRun records a run. An empty RunID is assigned a fresh UUID.
func (s *Store) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, created_at_ns, scene_count, kept_count, pixel_size_m, aggregated)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.UnixNano(), run.SceneCount, run.KeptCount, run.PixelSizeM, boolToInt(run.Aggregated),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SceneQuality is a stored quality record with its retention decision.
type SceneQuality struct {
	SceneID   int
	SceneTime time.Time
	Record    eo.QualityRecord
	Kept      bool
}

// RecordQuality stores the full quality report of a run along with the
// per-scene retention decisions.
func (s *Store) RecordQuality(runID string, cube *eo.Cube, report eo.QualityReport, kept []int) error {
	keptSet := make(map[int]bool, len(kept))
	for _, id := range kept {
		keptSet[id] = true
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin quality tx: %w", err)
	}
	defer tx.Rollback()

	for sceneID, rec := range report {
		_, err := tx.Exec(`
			INSERT INTO scene_quality (run_id, scene_idx, scene_time_ns, total_pixels, valid_pixels, valid_ratio, cloud_pixels, coverage, kept)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, sceneID, cube.Times[sceneID].UnixNano(),
			rec.TotalPixels, rec.ValidPixels, rec.ValidRatio, rec.CloudPixels, rec.Coverage,
			boolToInt(keptSet[sceneID]),
		)
		if err != nil {
			return fmt.Errorf("insert scene quality %d: %w", sceneID, err)
		}
	}
	return tx.Commit()
}

// RecordTimeSeries stores the vegetation time series of a run.
func (s *Store) RecordTimeSeries(runID string, series []eo.TimeSeriesPoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin series tx: %w", err)
	}
	defer tx.Rollback()

	for _, tp := range series {
		_, err := tx.Exec(`
			INSERT INTO vegetation_series (run_id, scene_time_ns, pixels, area_km2)
			VALUES (?, ?, ?, ?)`,
			runID, tp.Time.UnixNano(), tp.Pixels, tp.AreaKm2,
		)
		if err != nil {
			return fmt.Errorf("insert series point %s: %w", tp.Time, err)
		}
	}
	return tx.Commit()
}

// Runs lists recorded runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, created_at_ns, scene_count, kept_count, pixel_size_m, aggregated
		FROM runs ORDER BY created_at_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdNs int64
		var aggregated int
		if err := rows.Scan(&r.RunID, &createdNs, &r.SceneCount, &r.KeptCount, &r.PixelSizeM, &aggregated); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdNs).UTC()
		r.Aggregated = aggregated != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRunID returns the most recently recorded run's ID, or sql.ErrNoRows.
func (s *Store) LatestRunID() (string, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY created_at_ns DESC LIMIT 1`).Scan(&runID)
	if err != nil {
		return "", err
	}
	return runID, nil
}

// TimeSeries loads a run's stored vegetation series in temporal order.
func (s *Store) TimeSeries(runID string) ([]eo.TimeSeriesPoint, error) {
	rows, err := s.db.Query(`
		SELECT scene_time_ns, pixels, area_km2
		FROM vegetation_series WHERE run_id = ? ORDER BY scene_time_ns ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var series []eo.TimeSeriesPoint
	for rows.Next() {
		var ns int64
		var tp eo.TimeSeriesPoint
		if err := rows.Scan(&ns, &tp.Pixels, &tp.AreaKm2); err != nil {
			return nil, fmt.Errorf("scan series point: %w", err)
		}
		tp.Time = time.Unix(0, ns).UTC()
		series = append(series, tp)
	}
	return series, rows.Err()
}

// QualityReport loads a run's stored quality records in scene order.
func (s *Store) QualityReport(runID string) ([]SceneQuality, error) {
	rows, err := s.db.Query(`
		SELECT scene_idx, scene_time_ns, total_pixels, valid_pixels, valid_ratio, cloud_pixels, coverage, kept
		FROM scene_quality WHERE run_id = ? ORDER BY scene_idx ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query quality: %w", err)
	}
	defer rows.Close()

	var records []SceneQuality
	for rows.Next() {
		var sq SceneQuality
		var ns int64
		var kept int
		if err := rows.Scan(&sq.SceneID, &ns, &sq.Record.TotalPixels, &sq.Record.ValidPixels,
			&sq.Record.ValidRatio, &sq.Record.CloudPixels, &sq.Record.Coverage, &kept); err != nil {
			return nil, fmt.Errorf("scan scene quality: %w", err)
		}
		sq.SceneTime = time.Unix(0, ns).UTC()
		sq.Kept = kept != 0
		records = append(records, sq)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
