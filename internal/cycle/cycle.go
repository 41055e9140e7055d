// Package cycle implements the round lifecycle state machine: waiting for
// the next round, fetching and validating its dataset, and dispatching
// lifecycle events with checkpointed progress.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tourneyd/tourneyd/internal/catalog"
	"github.com/tourneyd/tourneyd/internal/dataset"
	"github.com/tourneyd/tourneyd/internal/events"
	"github.com/tourneyd/tourneyd/internal/metrics"
	"github.com/tourneyd/tourneyd/internal/round"
	"github.com/tourneyd/tourneyd/internal/state"
	"github.com/tourneyd/tourneyd/internal/util"
)

const (
	// closeSlack is added past the reported close time before re-polling,
	// so the poll lands after the API has rolled the round over.
	closeSlack = 5 * time.Second

	// preCloseWindow is how long before round close the cycle switches
	// from one long sleep to short re-polls.
	preCloseWindow = 6 * time.Minute

	defaultPollInterval  = 60 * time.Second
	defaultRetryInterval = 10 * time.Minute
)

// Phase is the cycle's current position in the round state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWaitingForRound
	PhaseFetchingDataset
	PhaseValidatingDataset
	PhaseProcessingRound
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaitingForRound:
		return "waiting_for_round"
	case PhaseFetchingDataset:
		return "fetching_dataset"
	case PhaseValidatingDataset:
		return "validating_dataset"
	case PhaseProcessingRound:
		return "processing_round"
	default:
		return "unknown"
	}
}

// Config wires the cycle's collaborators.
type Config struct {
	Rounds       round.InfoProvider
	Datasets     dataset.Provider
	Validator    *dataset.Validator
	Store        *state.Store
	Bus          *events.Bus
	Catalog      catalog.Writer
	State        *state.State
	DataDir      string
	TournamentID int
	RunID        string
}

// Cycle drives one round at a time on a single goroutine. All waits are
// context-cancellable; cancellation unwinds without completing the
// in-flight round's checkpoint update.
type Cycle struct {
	rounds    round.InfoProvider
	datasets  dataset.Provider
	validator *dataset.Validator
	store     *state.Store
	bus       *events.Bus
	catalog   catalog.Writer

	st           *state.State
	dataDir      string
	tournamentID int
	runID        string

	phase Phase
	log   *slog.Logger

	now           func() time.Time
	pollInterval  time.Duration
	retryInterval time.Duration
}

// New creates a round cycle.
func New(cfg Config) *Cycle {
	return &Cycle{
		rounds:        cfg.Rounds,
		datasets:      cfg.Datasets,
		validator:     cfg.Validator,
		store:         cfg.Store,
		bus:           cfg.Bus,
		catalog:       cfg.Catalog,
		st:            cfg.State,
		dataDir:       cfg.DataDir,
		tournamentID:  cfg.TournamentID,
		runID:         cfg.RunID,
		phase:         PhaseIdle,
		log:           slog.With("component", "cycle"),
		now:           time.Now,
		pollInterval:  defaultPollInterval,
		retryInterval: defaultRetryInterval,
	}
}

// Phase returns the cycle's current state machine phase.
func (c *Cycle) Phase() Phase {
	return c.phase
}

func (c *Cycle) setPhase(p Phase) {
	c.phase = p
	c.log.Debug("phase transition", "phase", p.String())
}

// ComputeWaitInterval returns how long to sleep before re-checking the
// round, given the current round's close time. Far from the close it
// sleeps until six minutes before; near the close it re-polls at most
// every minute. The tiered policy avoids hammering the rounds API while
// still reacting promptly at the close boundary.
func ComputeWaitInterval(info round.Info, now time.Time) time.Duration {
	remaining := info.CloseTime.Sub(now) + closeSlack
	if remaining > preCloseWindow {
		return remaining - preCloseWindow
	}
	if remaining > defaultPollInterval {
		return defaultPollInterval
	}
	if remaining < time.Second {
		return time.Second
	}
	return remaining
}

// wait sleeps for d or until the context is cancelled.
func (c *Cycle) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// queryRoundDetails queries the rounds provider, retrying indefinitely on
// failure. A provider failure here is never fatal, it only delays
// progress.
func (c *Cycle) queryRoundDetails(ctx context.Context) (round.Info, error) {
	for {
		info, err := c.rounds.CurrentRoundDetails(ctx)
		if err == nil {
			return info, nil
		}
		if ctx.Err() != nil {
			return round.Info{}, ctx.Err()
		}

		metrics.ProviderErrors.Inc()
		c.log.Warn("round info query failed, retrying",
			"error", err,
			"retry_in", c.pollInterval.String(),
		)
		if err := c.wait(ctx, c.pollInterval); err != nil {
			return round.Info{}, err
		}
	}
}

// WaitTillNextRound blocks until the rounds provider reports a round
// number different from the one observed at the start of the call, and
// returns that round's info. Returns the context error on cancellation.
func (c *Cycle) WaitTillNextRound(ctx context.Context) (round.Info, error) {
	c.setPhase(PhaseWaitingForRound)
	defer c.setPhase(PhaseIdle)

	first, err := c.queryRoundDetails(ctx)
	if err != nil {
		return round.Info{}, err
	}

	c.log.Info("waiting for next round",
		"current_round", int64(first.Number),
		"hours_to_close", fmt.Sprintf("%.1f", first.CloseTime.Sub(c.now()).Hours()),
	)

	cur := first
	for cur.Number == first.Number {
		interval := ComputeWaitInterval(first, c.now())
		if err := c.wait(ctx, interval); err != nil {
			return round.Info{}, err
		}

		cur, err = c.queryRoundDetails(ctx)
		if err != nil {
			return round.Info{}, err
		}

		c.log.Info("periodic round check",
			"current_round", int64(cur.Number),
			"minutes_to_close", fmt.Sprintf("%.1f", first.CloseTime.Sub(c.now()).Minutes()),
		)
	}

	return cur, nil
}

// fetchAndValidate downloads the round's dataset and checks that it is
// usable and novel relative to the previous round. Transport and IO
// failures degrade to false, never to a fatal error.
func (c *Cycle) fetchAndValidate(ctx context.Context, n round.Number) bool {
	c.setPhase(PhaseFetchingDataset)
	if _, err := c.datasets.Download(ctx, n, c.dataDir); err != nil {
		c.log.Warn("dataset download failed", "round", int64(n), "error", err)
		return false
	}

	c.setPhase(PhaseValidatingDataset)
	oldPath := dataset.TournamentPath(c.dataDir, n-1)
	newPath := dataset.TournamentPath(c.dataDir, n)

	isNew, err := c.validator.IsNew(oldPath, newPath, dataset.ModeLive)
	if err != nil {
		c.log.Warn("dataset validation failed", "round", int64(n), "error", err)
		return false
	}
	return isNew
}

// checkNewTrainingData decides whether the round's dataset carries new
// training data relative to the last round trained on. First run (no
// round trained yet) is always new; so is a failed comparison, preferring
// redundant retraining over silently skipping it.
func (c *Cycle) checkNewTrainingData(n round.Number) bool {
	if c.st.LastRoundTrained == nil {
		c.log.Info("no training round recorded, treating training data as new")
		return true
	}

	oldPath := dataset.TrainingPath(c.dataDir, *c.st.LastRoundTrained)
	newPath := dataset.TrainingPath(c.dataDir, n)

	isNew, err := c.validator.IsNew(oldPath, newPath, dataset.ModeTraining)
	if err != nil {
		c.log.Warn("training data comparison failed, treating as new",
			"round", int64(n), "error", err)
		return true
	}
	return isNew
}

// cleanupArtifacts removes a round's downloaded archive and extracted
// directory. Best effort only; the next download overwrites both.
func (c *Cycle) cleanupArtifacts(n round.Number) {
	if err := util.RemoveAllQuiet(dataset.ArchivePath(c.dataDir, n)); err != nil {
		c.log.Warn("failed to remove dataset archive", "round", int64(n), "error", err)
	}
	if err := util.RemoveAllQuiet(dataset.Dir(c.dataDir, n)); err != nil {
		c.log.Warn("failed to remove dataset directory", "round", int64(n), "error", err)
	}
}

// RunNewRound fetches and validates round n's dataset, retrying until it
// is valid, then dispatches the round's lifecycle events and advances the
// checkpoint. Cancellation mid-retry aborts without touching the
// checkpoint.
func (c *Cycle) RunNewRound(ctx context.Context, n round.Number) error {
	defer c.setPhase(PhaseIdle)

	c.log.Info("running new round", "round", int64(n))

	valid := c.fetchAndValidate(ctx, n)
	for !valid {
		if err := ctx.Err(); err != nil {
			return err
		}

		metrics.FetchRetries.Inc()
		c.log.Info("dataset not valid, retrying",
			"round", int64(n),
			"retry_in", c.retryInterval.String(),
		)
		c.cleanupArtifacts(n)

		if err := c.wait(ctx, c.retryInterval); err != nil {
			return err
		}
		valid = c.fetchAndValidate(ctx, n)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.setPhase(PhaseProcessingRound)
	started := c.now()

	c.bus.Dispatch(ctx, events.RoundBegin, n)

	trained := false
	if c.checkNewTrainingData(n) {
		c.bus.Dispatch(ctx, events.NewTrainingData, n)

		t := n
		c.st.LastRoundTrained = &t
		// Persist before the tournament dispatch: a crash after training
		// must not cause retraining to be skipped on restart.
		if err := c.store.Save(c.st); err != nil {
			return fmt.Errorf("save checkpoint after training: %w", err)
		}
		metrics.LastRoundTrained.Set(float64(n))
		trained = true
	}

	c.bus.Dispatch(ctx, events.NewTournamentData, n)

	p := n
	c.st.LastRoundProcessed = &p
	if err := c.store.Save(c.st); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	metrics.LastRoundProcessed.Set(float64(n))
	metrics.RoundsProcessed.Inc()
	metrics.RoundDuration.Observe(c.now().Sub(started).Seconds())

	c.recordRound(ctx, n, trained)

	c.log.Info("round processed", "round", int64(n), "trained", trained)
	return nil
}

// recordRound writes the processed round to the catalog. Catalog failures
// are warnings, never fatal.
func (c *Cycle) recordRound(ctx context.Context, n round.Number, trained bool) {
	if c.catalog == nil {
		return
	}

	checksum := ""
	if sig, err := dataset.ComputeSignature(dataset.TournamentPath(c.dataDir, n)); err == nil {
		checksum = sig.Checksum
	}

	rec := catalog.RoundRecord{
		RunID:           c.runID,
		TournamentID:    c.tournamentID,
		Round:           n,
		Trained:         trained,
		DatasetChecksum: checksum,
		ProcessedAt:     c.now().UTC(),
	}
	if err := c.catalog.RecordRound(ctx, rec); err != nil {
		c.log.Warn("failed to record round in catalog", "round", int64(n), "error", err)
	}
}
