// Package catalog records processed rounds in an optional Postgres
// catalog. Catalog failures are never fatal to the round cycle.
package catalog

import (
	"context"
	"time"

	"github.com/tourneyd/tourneyd/internal/round"
)

// RoundRecord describes one fully processed round.
type RoundRecord struct {
	RunID           string
	TournamentID    int
	Round           round.Number
	Trained         bool
	DatasetChecksum string
	ProcessedAt     time.Time
}

// Writer persists round records.
type Writer interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
	Close()
}

// Config configures the catalog writer.
type Config struct {
	PostgresDSN string
}

// NewWriter returns a Postgres writer when a DSN is configured, and a
// no-op writer otherwise.
func NewWriter(cfg Config) (Writer, error) {
	if cfg.PostgresDSN == "" {
		return noopWriter{}, nil
	}
	return newPostgresWriter(cfg)
}

type noopWriter struct{}

func (noopWriter) RecordRound(context.Context, RoundRecord) error { return nil }
func (noopWriter) Close()                                         {}
