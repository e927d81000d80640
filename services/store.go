package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hcda/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS forecast_runs (
	id              UUID PRIMARY KEY,
	created_at      TIMESTAMPTZ NOT NULL,
	horizon         INTEGER NOT NULL,
	history_end     DATE NOT NULL,
	status          TEXT NOT NULL,
	peak            DOUBLE PRECISION NOT NULL,
	threshold       DOUBLE PRECISION NOT NULL,
	historical_mean DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS forecasts (
	run_id      UUID NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
	ds          DATE NOT NULL,
	predicted   DOUBLE PRECISION NOT NULL,
	lower_bound DOUBLE PRECISION NOT NULL,
	upper_bound DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, ds)
);
`

// pgxPool is the part of *pgxpool.Pool the store uses.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// ForecastStore persists the latest batch forecast. Each save replaces the
// previous run entirely.
type ForecastStore struct {
	pool pgxPool
}

func NewForecastStore(ctx context.Context, dsn string) (*ForecastStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &ForecastStore{pool: pool}, nil
}

func (s *ForecastStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Save writes the run and its rows in one transaction after deleting every
// earlier run.
func (s *ForecastStore) Save(ctx context.Context, run models.ForecastRun, records []models.ForecastRecord) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := replaceRun(ctx, tx, run, records); err != nil {
		_ = tx.Rollback(ctx)
		return uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

func replaceRun(ctx context.Context, tx pgx.Tx, run models.ForecastRun, records []models.ForecastRecord) error {
	if _, err := tx.Exec(ctx, `DELETE FROM forecast_runs`); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO forecast_runs (id, created_at, horizon, history_end, status, peak, threshold, historical_mean)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.CreatedAt, run.Horizon, run.HistoryEnd, run.Status, run.Peak, run.Threshold, run.HistoricalMean)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"forecasts"},
		[]string{"run_id", "ds", "predicted", "lower_bound", "upper_bound"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{run.ID, r.Date, r.Predicted, r.Lower, r.Upper}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy forecasts: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy forecasts: wrote %d of %d rows", n, len(records))
	}
	return nil
}

func (s *ForecastStore) Close() {
	s.pool.Close()
}
