// Package history persists one row per pipeline run, giving repeat runs an
// audit trail for what was produced, skipped, or failed.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"recpub/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the database must be cleared after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// timeFormat keeps fractional seconds fixed-width so created_at sorts
// lexicographically. RFC3339Nano trims trailing zeros and does not.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one persisted pipeline run.
type Run struct {
	ID           string
	BaseName     string
	SourcePath   string
	Title        string
	Artist       string
	State        string
	ErrorMessage string
	StageResults map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
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

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
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
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
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

// StartRun inserts a new run row in the given initial state.
func (s *Store) StartRun(ctx context.Context, id, sourcePath, title, artist, state string) (*Run, error) {
	now := time.Now().UTC()
	timestamp := now.Format(timeFormat)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, base_name, source_path, title, artist, state,
            error_message, stage_results_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		nil,
		nullableString(sourcePath),
		nullableString(title),
		nullableString(artist),
		state,
		nil,
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update persists changes to an existing run.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()

	var resultsJSON any
	if len(run.StageResults) > 0 {
		encoded, err := json.Marshal(run.StageResults)
		if err != nil {
			return fmt.Errorf("marshal stage results: %w", err)
		}
		resultsJSON = string(encoded)
	}

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET base_name = ?, source_path = ?, title = ?, artist = ?, state = ?,
             error_message = ?, stage_results_json = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(run.BaseName),
		nullableString(run.SourcePath),
		nullableString(run.Title),
		nullableString(run.Artist),
		run.State,
		nullableString(run.ErrorMessage),
		resultsJSON,
		run.UpdatedAt.Format(timeFormat),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetByID fetches a run by identifier, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Clear removes all runs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = "id, base_name, source_path, title, artist, state, error_message, stage_results_json, created_at, updated_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		baseName     sql.NullString
		sourcePath   sql.NullString
		title        sql.NullString
		artist       sql.NullString
		state        string
		errorMessage sql.NullString
		resultsRaw   sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&baseName,
		&sourcePath,
		&title,
		&artist,
		&state,
		&errorMessage,
		&resultsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		BaseName:     baseName.String,
		SourcePath:   sourcePath.String,
		Title:        title.String,
		Artist:       artist.String,
		State:        state,
		ErrorMessage: errorMessage.String,
	}
	if resultsRaw.Valid && resultsRaw.String != "" {
		if err := json.Unmarshal([]byte(resultsRaw.String), &run.StageResults); err != nil {
			return nil, fmt.Errorf("unmarshal stage results: %w", err)
		}
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		run.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		run.UpdatedAt = updated
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
