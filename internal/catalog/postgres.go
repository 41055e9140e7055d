package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// postgresWriter implements Writer using PostgreSQL.
type postgresWriter struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func newPostgresWriter(cfg Config) (*postgresWriter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log := slog.With("component", "catalog")
	log.Info("connected to PostgreSQL round catalog")

	return &postgresWriter{pool: pool, log: log}, nil
}

// RecordRound inserts one row per processed round. Re-inserting the same
// round updates the existing row, so restarts stay idempotent.
func (w *postgresWriter) RecordRound(ctx context.Context, rec RoundRecord) error {
	query := `
		INSERT INTO tourneyd_rounds (tournament_id, round_number, run_id, trained, dataset_checksum, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tournament_id, round_number)
		DO UPDATE SET run_id = $3, trained = $4, dataset_checksum = $5, processed_at = $6
	`

	_, err := w.pool.Exec(ctx, query,
		rec.TournamentID,
		int64(rec.Round),
		rec.RunID,
		rec.Trained,
		rec.DatasetChecksum,
		rec.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("record round %d: %w", rec.Round, err)
	}
	return nil
}

func (w *postgresWriter) Close() {
	w.pool.Close()
}
