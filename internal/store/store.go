// Package store persists runs, sources and prediction records in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding runs, sources and predictions
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database at path with WAL mode and foreign keys enabled
// and creates the schema if missing. A failure here is fatal to startup:
// the pipeline cannot be constructed without a reachable store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// WAL lets status polls read while a save transaction is open
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sources (
	source_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	screen_name TEXT,
	is_closed INTEGER NOT NULL DEFAULT 0,
	category TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	target_date TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_sources (
	run_id INTEGER NOT NULL,
	source_id INTEGER NOT NULL,
	PRIMARY KEY(run_id, source_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE,
	FOREIGN KEY(source_id) REFERENCES sources(source_id)
);

CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL,
	source_id INTEGER NOT NULL,
	container_id INTEGER NOT NULL DEFAULT 0,
	item_id INTEGER NOT NULL,
	prediction INTEGER NOT NULL,
	UNIQUE(source_id, container_id, item_id),
	FOREIGN KEY(run_id) REFERENCES runs(id)
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// isForeignKeyViolation reports whether err is a SQLite referential
// integrity failure. modernc.org/sqlite does not export typed errors, so
// the constraint name in the message is the stable signal.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// CountPredictions returns the number of prediction rows for a run; a
// runID of 0 counts all rows.
func (s *Store) CountPredictions(ctx context.Context, runID int64) (int, error) {
	query := "SELECT COUNT(*) FROM predictions"
	args := []any{}
	if runID != 0 {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

// RunSourceIDs returns the source ids linked to a run, ordered by id
func (s *Store) RunSourceIDs(ctx context.Context, runID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_id FROM run_sources WHERE run_id = ? ORDER BY source_id", runID)
	if err != nil {
		return nil, fmt.Errorf("query run sources: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestRun returns the most recently created run, or sql.ErrNoRows
func (s *Store) LatestRun(ctx context.Context) (id int64, targetDate string, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT id, target_date FROM runs ORDER BY id DESC LIMIT 1").Scan(&id, &targetDate)
	return id, targetDate, err
}

// formatDate renders a date for storage
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
