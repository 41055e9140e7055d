// Package round defines tournament round identities and the provider
// interface for querying the currently open round.
package round

import (
	"context"
	"time"
)

// Number identifies a scheduling period. Numbers increase monotonically;
// no two rounds share a number.
type Number int64

// Info describes the currently open round as reported by the tournament
// API. A fresh Info is produced on every query and is never mutated.
type Info struct {
	Number    Number    `json:"number"`
	CloseTime time.Time `json:"closeTime"`
}

// InfoProvider reports the current round. Implementations may fail
// transiently; callers are expected to retry.
type InfoProvider interface {
	// CurrentRoundDetails returns the current round number and its
	// data-close timestamp.
	CurrentRoundDetails(ctx context.Context) (Info, error)

	// CurrentRoundNumber returns just the current round number.
	CurrentRoundNumber(ctx context.Context) (Number, error)
}
