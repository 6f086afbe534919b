package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the journal database name inside log_dir.
const FileName = "promap.db"

// Journal persists run and stage history in SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies migrations.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

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

	j := &Journal{db: db, path: path}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginRun records a new run in the running state.
func (j *Journal) BeginRun(ctx context.Context, id, configPath string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id is required")
	}
	now := time.Now().UTC()
	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, config_path, started_at, status) VALUES (?, ?, ?, ?)`,
		id, nullableString(configPath), formatTime(now), StatusRunning,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, ConfigPath: configPath, StartedAt: now, Status: StatusRunning}, nil
}

// RecordStage appends a stage event.
func (j *Journal) RecordStage(ctx context.Context, ev StageEvent) error {
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO stage_events (
            run_id, sample, stage, ordinal, outcome, output_path, log_path,
            exit_code, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		ev.Sample,
		ev.Stage,
		ev.Ordinal,
		ev.Outcome,
		nullableString(ev.OutputPath),
		nullableString(ev.LogPath),
		ev.ExitCode,
		ev.Duration.Milliseconds(),
		formatTime(ev.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert stage event: %w", err)
	}
	return nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (j *Journal) FinishRun(ctx context.Context, id string, runErr error) error {
	status := StatusCompleted
	var message any
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), status, message, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when none exist.
func (j *Journal) LatestRun(ctx context.Context) (*Run, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, config_path, started_at, finished_at, status, error_message
         FROM runs ORDER BY rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// StageEvents lists the events of one run in recording order.
func (j *Journal) StageEvents(ctx context.Context, runID string) ([]StageEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM stage_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// LatestOutcomes returns the most recent event per sample and stage across
// all runs.
func (j *Journal) LatestOutcomes(ctx context.Context) (map[Key]StageEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM stage_events
         WHERE id IN (SELECT MAX(id) FROM stage_events GROUP BY sample, stage)`)
	if err != nil {
		return nil, fmt.Errorf("query latest outcomes: %w", err)
	}
	defer rows.Close()
	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[Key]StageEvent, len(events))
	for _, ev := range events {
		out[Key{Sample: ev.Sample, Stage: ev.Stage}] = ev
	}
	return out, nil
}
