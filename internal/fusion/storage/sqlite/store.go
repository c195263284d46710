package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/collision.report/internal/fusion/l4perception"
	"github.com/banshee-data/collision.report/internal/fusion/l6ttc"
	"github.com/banshee-data/collision.report/internal/fusion/pipeline"
	"github.com/banshee-data/collision.report/internal/timeutil"
)

// pragmas are applied to every pooled connection through the DSN, so
// settings such as foreign_keys hold on whichever connection a query uses.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// Run is one replay of a sequence through the pipeline.
type Run struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source"`
	FrameRate  float64         `json:"frame_rate"`
	ConfigJSON json.RawMessage `json:"config_json,omitempty"`
	StartedAt  int64           `json:"started_at"` // unix nanos
}

// ResultRow is one persisted object TTC. TTC columns are nil unless the
// corresponding outcome is an estimate.
type ResultRow struct {
	RunID           string   `json:"run_id"`
	FrameIndex      int      `json:"frame_index"`
	PrevBoxID       int      `json:"prev_box_id"`
	CurrBoxID       int      `json:"curr_box_id"`
	RangeOutcome    string   `json:"range_outcome"`
	RangeTTC        *float64 `json:"range_ttc_s,omitempty"`
	CameraOutcome   string   `json:"camera_outcome"`
	CameraTTC       *float64 `json:"camera_ttc_s,omitempty"`
	CameraDetail    string   `json:"camera_detail,omitempty"`
	RobustDistance  *float64 `json:"robust_distance_m,omitempty"`
	ClosingSpeedMPS float64  `json:"closing_speed_mps"`
	PointCount      int      `json:"point_count"`
	MatchCount      int      `json:"match_count"`
}

// FrameRow is the per-frame-pair bookkeeping persisted alongside results.
type FrameRow struct {
	FrameIndex      int
	PointsTotal     int
	PointsAssigned  int
	PointsAmbiguous int
	LostRegions     int
	NewRegions      int
}

// ResultStore provides persistence for TTC runs.
type ResultStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path, applies PRAGMAs and
// migrates the schema to the latest version.
func Open(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &ResultStore{db: db, clock: timeutil.RealClock{}}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for read-only debugging surfaces.
func (s *ResultStore) DB() *sql.DB {
	return s.db
}

// SetClock replaces the clock used for run timestamps and busy backoff.
func (s *ResultStore) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Close closes the database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// CreateRun records a new run and returns it with a generated RunID.
// cfg is stored as JSON when non-nil.
func (s *ResultStore) CreateRun(ctx context.Context, source string, frameRate float64, cfg interface{}) (*Run, error) {
	run := &Run{
		RunID:     uuid.New().String(),
		Source:    source,
		FrameRate: frameRate,
		StartedAt: s.clock.Now().UnixNano(),
	}
	var cfgStr interface{}
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshal run config: %w", err)
		}
		run.ConfigJSON = b
		cfgStr = string(b)
	}

	err := s.retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO ttc_runs (run_id, source, frame_rate, config_json, started_at)
			VALUES (?, ?, ?, ?, ?)`,
			run.RunID, run.Source, run.FrameRate, cfgStr, run.StartedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun returns a run by ID.
func (s *ResultStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var cfg sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, source, frame_rate, config_json, started_at
		FROM ttc_runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.Source, &r.FrameRate, &cfg, &r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if cfg.Valid {
		r.ConfigJSON = json.RawMessage(cfg.String)
	}
	return &r, nil
}

// InsertFrameResult persists every object of res in one transaction.
func (s *ResultStore) InsertFrameResult(ctx context.Context, runID string, res *pipeline.FramePairResult) error {
	return s.retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ttc_frames (run_id, frame_index, points_total, points_assigned,
			                        points_ambiguous, lost_regions, new_regions)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, res.FrameIndex, res.Clustering.Total, res.Clustering.Assigned,
			res.Clustering.Ambiguous, len(res.Lost), len(res.Unmatched))
		if err != nil {
			return fmt.Errorf("insert frame %d: %w", res.FrameIndex, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ttc_results (
				run_id, frame_index, prev_box_id, curr_box_id,
				range_outcome, range_ttc_s, camera_outcome, camera_ttc_s, camera_detail,
				robust_distance_m, closing_speed_mps, point_count, match_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, obj := range res.Objects {
			var dist interface{}
			if obj.DistCurr < l4perception.FarDistance {
				dist = obj.DistCurr
			}
			_, err := stmt.ExecContext(ctx,
				runID, res.FrameIndex, obj.PrevBoxID, obj.CurrBoxID,
				string(obj.Range.Outcome), ttcValue(obj.Range),
				string(obj.Camera.Outcome), ttcValue(obj.Camera), obj.Camera.Detail,
				dist, obj.ClosingSpeed, obj.RangeSummary.PointCount, obj.MatchCount,
			)
			if err != nil {
				return fmt.Errorf("insert result %d->%d: %w", obj.PrevBoxID, obj.CurrBoxID, err)
			}
		}
		return tx.Commit()
	})
}

// ListResults returns all results of a run ordered by frame and previous box id.
func (s *ResultStore) ListResults(ctx context.Context, runID string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, frame_index, prev_box_id, curr_box_id,
		       range_outcome, range_ttc_s, camera_outcome, camera_ttc_s, camera_detail,
		       robust_distance_m, closing_speed_mps, point_count, match_count
		FROM ttc_results
		WHERE run_id = ?
		ORDER BY frame_index, prev_box_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var rangeTTC, cameraTTC, dist sql.NullFloat64
		var detail sql.NullString
		if err := rows.Scan(
			&r.RunID, &r.FrameIndex, &r.PrevBoxID, &r.CurrBoxID,
			&r.RangeOutcome, &rangeTTC, &r.CameraOutcome, &cameraTTC, &detail,
			&dist, &r.ClosingSpeedMPS, &r.PointCount, &r.MatchCount,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.RangeTTC = nullFloat(rangeTTC)
		r.CameraTTC = nullFloat(cameraTTC)
		r.RobustDistance = nullFloat(dist)
		r.CameraDetail = detail.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFrames returns the per-frame bookkeeping of a run in frame order.
func (s *ResultStore) ListFrames(ctx context.Context, runID string) ([]FrameRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame_index, points_total, points_assigned, points_ambiguous, lost_regions, new_regions
		FROM ttc_frames WHERE run_id = ? ORDER BY frame_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRow
	for rows.Next() {
		var f FrameRow
		if err := rows.Scan(&f.FrameIndex, &f.PointsTotal, &f.PointsAssigned, &f.PointsAmbiguous, &f.LostRegions, &f.NewRegions); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func ttcValue(r l6ttc.Result) interface{} {
	if !r.Valid() {
		return nil
	}
	return r.Seconds
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// retryOnBusy retries fn while SQLite reports the database as locked.
func (s *ResultStore) retryOnBusy(fn func() error) error {
	const attempts = 5
	backoff := 10 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		s.clock.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
