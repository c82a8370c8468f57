package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"socialpulse/internal/infrastructure"
	"socialpulse/pkg/contracts/domain"
)

// RunSaver is the transaction-scoped handle for persisting one pipeline
// run. Every write between BeginRun and Commit is atomic: a genuine store
// failure rolls the whole run back, while expected conflicts (duplicate
// predictions, unlinkable sources) are absorbed per row.
type RunSaver struct {
	tx     *sql.Tx
	logger *slog.Logger
	runID  int64
}

// BeginRun opens the save-phase transaction
func (s *Store) BeginRun(ctx context.Context) (*RunSaver, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run transaction: %w", err)
	}
	return &RunSaver{tx: tx, logger: s.logger}, nil
}

// StartRun inserts the run record, upserts every evaluated source and
// links each to the run. A link that fails referential integrity is
// logged and skipped; it stays unlinked for this run. Returns the
// generated run id.
func (rs *RunSaver) StartRun(ctx context.Context, sources []domain.Source, targetDate time.Time) (int64, error) {
	res, err := rs.tx.ExecContext(ctx,
		"INSERT INTO runs (target_date, created_at) VALUES (?, ?)",
		formatDate(targetDate), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	rs.runID = runID

	for _, src := range sources {
		_, err := rs.tx.ExecContext(ctx, `
			INSERT INTO sources (source_id, name, screen_name, is_closed, category)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source_id) DO UPDATE SET
				name = excluded.name,
				screen_name = excluded.screen_name,
				is_closed = excluded.is_closed,
				category = excluded.category`,
			src.ID, src.Name, src.ScreenName, src.IsClosed, src.Category)
		if err != nil {
			return 0, fmt.Errorf("upsert source %d: %w", src.ID, err)
		}

		_, err = rs.tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO run_sources (run_id, source_id) VALUES (?, ?)",
			runID, src.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				rs.logger.Warn("source could not be linked to run",
					slog.Int64("run_id", runID),
					slog.Int64("source_id", src.ID))
				continue
			}
			return 0, fmt.Errorf("link source %d to run %d: %w", src.ID, runID, err)
		}
	}

	return runID, nil
}

// SavePrediction inserts one prediction row. A natural-key conflict on
// (source_id, container_id, item_id) is a silent no-op so re-runs and
// overlapping date windows never fail or duplicate.
func (rs *RunSaver) SavePrediction(ctx context.Context, rec domain.PredictionRecord) error {
	res, err := rs.tx.ExecContext(ctx, `
		INSERT INTO predictions (run_id, source_id, container_id, item_id, prediction)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, container_id, item_id) DO NOTHING`,
		rec.RunID, rec.SourceID, rec.ContainerID, rec.ItemID, rec.Outcome)
	if err != nil {
		return fmt.Errorf("insert prediction (%d,%d,%d): %w",
			rec.SourceID, rec.ContainerID, rec.ItemID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("prediction rows affected: %w", err)
	}
	if affected == 0 {
		infrastructure.PredictionsSavedTotal.WithLabelValues("duplicate").Inc()
		rs.logger.Debug("prediction already recorded",
			slog.Int64("source_id", rec.SourceID),
			slog.Int64("container_id", rec.ContainerID),
			slog.Int64("item_id", rec.ItemID))
		return nil
	}
	infrastructure.PredictionsSavedTotal.WithLabelValues("inserted").Inc()
	return nil
}

// Commit commits the save-phase transaction
func (rs *RunSaver) Commit() error {
	if err := rs.tx.Commit(); err != nil {
		return fmt.Errorf("commit run %d: %w", rs.runID, err)
	}
	return nil
}

// Rollback discards every write of the save phase. Safe to call after
// Commit; the underlying no-op error is ignored.
func (rs *RunSaver) Rollback() error {
	if err := rs.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback run %d: %w", rs.runID, err)
	}
	return nil
}
