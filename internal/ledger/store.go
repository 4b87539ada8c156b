// Package ledger persists run history to SQLite: one row per run plus
// per-tile and per-image rows as stages complete. Together with the
// idempotent skip-if-exists stages this is the restart mechanism; an
// interrupted run is audited here and simply re-executed.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rasterprep/internal/imagery"
)

// Work-unit status values as stored in the tiles and images tables.
const (
	StatusPlanned = "planned"
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "rasterprep.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	BaseDir    string
	Method     string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Skipped    int
	Errored    int
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, id, baseDir, method string, dryRun bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, base_dir, method, dry_run, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, baseDir, method, boolToInt(dryRun), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// FinishRun records a run's end time and aggregate counts.
func (s *Store) FinishRun(ctx context.Context, id string, processed, skipped, errored int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, errored = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), processed, skipped, errored, id)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, base_dir, method, dry_run, started_at, COALESCE(finished_at, ''), processed, skipped, errored
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var dryRun int
		var started, finished string
		if err := rows.Scan(&run.ID, &run.BaseDir, &run.Method, &dryRun,
			&started, &finished, &run.Processed, &run.Skipped, &run.Errored); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.DryRun = dryRun != 0
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordTile inserts a planned tile row and returns its ledger id.
func (s *Store) RecordTile(ctx context.Context, runID string, tile *imagery.Tile) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tiles (run_id, image_folder, prep_folder, mul_tile, pan_tile, psh_tile, dtype, steps, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, tile.ImageFolder, tile.PrepFolder, tile.MulTile, tile.PanTile, tile.PshTile,
		string(tile.DType), imagery.FormatSteps(tile.Steps), StatusPlanned)
	if err != nil {
		return 0, fmt.Errorf("record tile: %w", err)
	}
	return res.LastInsertId()
}

// UpdateTile advances a tile row to its terminal state.
func (s *Store) UpdateTile(ctx context.Context, tileID int64, status, lastOutput, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tiles SET status = ?, last_output = ?, error = ? WHERE id = ?`,
		status, lastOutput, errMsg, tileID)
	if err != nil {
		return fmt.Errorf("update tile: %w", err)
	}
	return nil
}

// RecordImage inserts an image outcome row.
func (s *Store) RecordImage(ctx context.Context, runID string, img *imagery.Image, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (run_id, image_folder, prep_folder, merged_output, band_outputs, status, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, img.ImageFolder, img.PrepFolder, img.MergedOutput,
		joinPaths(img.BandOutputs), status, img.Err, img.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record image: %w", err)
	}
	return nil
}

// TileStatusCounts returns per-status tile counts for one run.
func (s *Store) TileStatusCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM tiles WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("count tiles: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan tile count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func joinPaths(paths []string) string {
	return strings.Join(paths, ";")
}
