// Package events defines the lifecycle handler contract and the ordered
// dispatch bus.
package events

import (
	"context"

	"github.com/tourneyd/tourneyd/internal/round"
)

// Event identifies a lifecycle notification.
type Event int

const (
	Start Event = iota
	Shutdown
	RoundBegin
	NewTrainingData
	NewTournamentData
)

// String returns the event name used in logs and metric labels.
func (e Event) String() string {
	switch e {
	case Start:
		return "on_start"
	case Shutdown:
		return "on_shutdown"
	case RoundBegin:
		return "on_round_begin"
	case NewTrainingData:
		return "on_new_training_data"
	case NewTournamentData:
		return "on_new_tournament_data"
	default:
		return "unknown"
	}
}

// Handler reacts to round lifecycle events. Embed NoopHandler to pick up
// no-op defaults and override only the events of interest.
type Handler interface {
	Name() string
	OnStart(ctx context.Context) error
	OnShutdown(ctx context.Context) error
	OnRoundBegin(ctx context.Context, n round.Number) error
	OnNewTrainingData(ctx context.Context, n round.Number) error
	OnNewTournamentData(ctx context.Context, n round.Number) error
}

// Env is the daemon-owned context exposed to handlers. Handlers read it;
// they never mutate daemon state through it.
type Env interface {
	// DatasetDir returns the unpacked dataset directory for a round.
	DatasetDir(n round.Number) string

	// TournamentID returns the configured tournament identifier.
	TournamentID() int

	// Progress returns copies of the checkpoint fields. Nil means the
	// corresponding round has never happened.
	Progress() (lastProcessed, lastTrained *round.Number)
}

// EnvAware is implemented by handlers that want the daemon environment.
// Bind is called once at registration.
type EnvAware interface {
	Bind(env Env)
}

// NoopHandler provides no-op implementations of every lifecycle event.
type NoopHandler struct{}

func (NoopHandler) OnStart(context.Context) error                           { return nil }
func (NoopHandler) OnShutdown(context.Context) error                        { return nil }
func (NoopHandler) OnRoundBegin(context.Context, round.Number) error        { return nil }
func (NoopHandler) OnNewTrainingData(context.Context, round.Number) error   { return nil }
func (NoopHandler) OnNewTournamentData(context.Context, round.Number) error { return nil }
