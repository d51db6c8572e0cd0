package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gainscan/internal/report"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users need to delete the history database afterwards.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrLocked indicates another gainscan instance holds the history lock.
var ErrLocked = errors.New("history database locked by another instance")

// Store persists scan runs and their per-record results in SQLite. A flock
// sidecar keeps two instances from writing the same database.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open connects to (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire history lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
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
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close releases the database connection and the instance lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Run is one recorded invocation of the scanner.
type Run struct {
	ID            string
	Mode          string
	Pregain       float64
	StartedAt     time.Time
	FinishedAt    time.Time
	Finished      bool
	Tracks        int
	TracksFailed  int
	Folders       int
	FoldersFailed int
}

// BeginRun records the start of a scan and returns its identifier.
func (s *Store) BeginRun(ctx context.Context, mode string, pregain float64) (string, error) {
	id := uuid.NewString()
	started := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, mode, pregain, started_at) VALUES (?, ?, ?, ?)",
		id, mode, pregain, started,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's end time and outcome counters.
func (s *Store) FinishRun(ctx context.Context, id string, tracks, tracksFailed, folders, foldersFailed int) error {
	finished := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, tracks = ?, tracks_failed = ?,
		        folders = ?, folders_failed = ? WHERE id = ?`,
		finished, tracks, tracksFailed, folders, foldersFailed, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", id)
	}
	return nil
}

// Append stores one emitted record under the given run.
func (s *Store) Append(ctx context.Context, runID string, r report.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (
		    run_id, kind, location, loudness, loudness_range, peak,
		    reference, will_clip, clip_prevented, gain, new_peak
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		r.Kind.String(),
		r.Location,
		r.Loudness,
		r.Range,
		r.Peak,
		r.Reference,
		boolInt(r.WillClip),
		boolInt(r.ClipPrevented),
		r.Gain,
		r.NewPeak,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Runs lists the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, pregain, started_at, finished_at,
		        tracks, tracks_failed, folders, folders_failed
		   FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Mode, &run.Pregain, &started, &finished,
			&run.Tracks, &run.TracksFailed, &run.Folders, &run.FoldersFailed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finished.Valid {
			if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
			run.Finished = true
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Results lists the records stored for one run, in insertion order.
func (s *Store) Results(ctx context.Context, runID string) ([]report.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, location, loudness, loudness_range, peak,
		        reference, will_clip, clip_prevented, gain, new_peak
		   FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []report.Record
	for rows.Next() {
		var (
			r             report.Record
			kind          string
			clip, prevent int
		)
		if err := rows.Scan(&kind, &r.Location, &r.Loudness, &r.Range, &r.Peak,
			&r.Reference, &clip, &prevent, &r.Gain, &r.NewPeak); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if kind == report.KindAlbum.String() {
			r.Kind = report.KindAlbum
		}
		r.WillClip = clip != 0
		r.ClipPrevented = prevent != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
