// Package store persists prediction batches to SQLite, keeping an
// append-only history for the HTTP endpoints and offline analysis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id            TEXT PRIMARY KEY,
	date          TEXT NOT NULL,
	generated_at  TEXT NOT NULL,
	model_version TEXT NOT NULL,
	payload       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_date ON batches (date, generated_at);

CREATE TABLE IF NOT EXISTS predictions (
	batch_id    TEXT NOT NULL REFERENCES batches (id),
	date        TEXT NOT NULL,
	lgu         TEXT NOT NULL,
	probability REAL NOT NULL,
	suspended   INTEGER NOT NULL,
	risk_tier   TEXT NOT NULL,
	PRIMARY KEY (batch_id, lgu)
);
CREATE INDEX IF NOT EXISTS idx_predictions_date ON predictions (date, lgu);
`

// Store is a SQLite-backed batch history.
// It implements pipeline.BatchLoader and the HTTP server's BatchSource.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path and applies
// the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY on concurrent batch writes and reads.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// LoadBatch stores one batch: the full document plus one queryable row per
// unit, in one transaction.
func (s *Store) LoadBatch(ctx context.Context, batch domain.PredictionBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("serialize batch: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, date, generated_at, model_version, payload) VALUES (?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Date.Format(domain.DateLayout),
		batch.GeneratedAt.Format(time.RFC3339Nano),
		batch.ModelVersion,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", batch.ID, err)
	}

	for _, r := range batch.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO predictions (batch_id, date, lgu, probability, suspended, risk_tier) VALUES (?, ?, ?, ?, ?, ?)`,
			batch.ID,
			r.Date.Format(domain.DateLayout),
			r.Unit,
			r.Probability,
			boolToInt(r.Suspended),
			r.Tier.String(),
		)
		if err != nil {
			return fmt.Errorf("insert prediction %s/%s: %w", batch.ID, r.Unit, err)
		}
	}

	return tx.Commit()
}

// LatestBatch returns the most recently generated batch.
func (s *Store) LatestBatch(ctx context.Context) (domain.PredictionBatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM batches ORDER BY generated_at DESC, id DESC LIMIT 1`)
	return scanBatch(row)
}

// BatchByDate returns the most recent batch for a prediction date.
func (s *Store) BatchByDate(ctx context.Context, date time.Time) (domain.PredictionBatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM batches WHERE date = ? ORDER BY generated_at DESC, id DESC LIMIT 1`,
		date.Format(domain.DateLayout))
	return scanBatch(row)
}

func scanBatch(row *sql.Row) (domain.PredictionBatch, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PredictionBatch{}, domain.ErrNoBatches
		}
		return domain.PredictionBatch{}, fmt.Errorf("scan batch: %w", err)
	}

	var batch domain.PredictionBatch
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		return domain.PredictionBatch{}, fmt.Errorf("parse stored batch: %w", err)
	}
	return batch, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
