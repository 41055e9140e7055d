// Package daemon owns the run loop: startup bootstrap, catch-up,
// wait/process cycling, and graceful shutdown.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/tourneyd/tourneyd/internal/catalog"
	"github.com/tourneyd/tourneyd/internal/config"
	"github.com/tourneyd/tourneyd/internal/cycle"
	"github.com/tourneyd/tourneyd/internal/dataset"
	"github.com/tourneyd/tourneyd/internal/events"
	"github.com/tourneyd/tourneyd/internal/logging"
	"github.com/tourneyd/tourneyd/internal/metrics"
	"github.com/tourneyd/tourneyd/internal/round"
	"github.com/tourneyd/tourneyd/internal/state"
)

const shutdownTimeout = 30 * time.Second

// Daemon composes the round cycle, event bus, and progress store, and
// processes rounds until its context is cancelled.
type Daemon struct {
	cfg      config.Config
	rounds   round.InfoProvider
	datasets dataset.Provider
	catalog  catalog.Writer

	bus   *events.Bus
	store *state.Store
	st    *state.State
	runID string
	log   *slog.Logger
}

// New creates a daemon. Handlers are registered afterwards via Register.
func New(cfg config.Config, rounds round.InfoProvider, datasets dataset.Provider, cat catalog.Writer) (*Daemon, error) {
	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		rounds:   rounds,
		datasets: datasets,
		catalog:  cat,
		store:    store,
		runID:    logging.NewRunID(),
		log:      slog.With("component", "daemon"),
	}
	d.bus = events.NewBus(d)
	return d, nil
}

// Register adds a lifecycle handler. Duplicate or empty names fail.
func (d *Daemon) Register(h events.Handler) error {
	return d.bus.Register(h)
}

// Unregister removes all handlers with the given name.
func (d *Daemon) Unregister(name string) {
	d.bus.Unregister(name)
}

// DatasetDir implements events.Env.
func (d *Daemon) DatasetDir(n round.Number) string {
	return dataset.Dir(d.cfg.DataDir, n)
}

// TournamentID implements events.Env.
func (d *Daemon) TournamentID() int {
	return d.cfg.TournamentID
}

// Progress implements events.Env. Returns copies; handlers cannot mutate
// the checkpoint.
func (d *Daemon) Progress() (lastProcessed, lastTrained *round.Number) {
	if d.st == nil {
		return nil, nil
	}
	if d.st.LastRoundProcessed != nil {
		p := *d.st.LastRoundProcessed
		lastProcessed = &p
	}
	if d.st.LastRoundTrained != nil {
		t := *d.st.LastRoundTrained
		lastTrained = &t
	}
	return lastProcessed, lastTrained
}

// Run processes rounds until ctx is cancelled. On cancellation it
// dispatches the shutdown event and saves the checkpoint before
// returning; only a checkpoint write failure returns a non-nil error.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info("daemon starting",
		"run_id", d.runID,
		"tournament", d.cfg.TournamentID,
		"data_dir", d.cfg.DataDir,
	)

	d.st = d.store.Load()
	d.log.Info("loaded checkpoint",
		"last_round_processed", roundOrNull(d.st.LastRoundProcessed),
		"last_round_trained", roundOrNull(d.st.LastRoundTrained),
	)

	cyc := cycle.New(cycle.Config{
		Rounds:       d.rounds,
		Datasets:     d.datasets,
		Validator:    dataset.NewValidator(),
		Store:        d.store,
		Bus:          d.bus,
		Catalog:      d.catalog,
		State:        d.st,
		DataDir:      d.cfg.DataDir,
		TournamentID: d.cfg.TournamentID,
		RunID:        d.runID,
	})

	d.bus.Dispatch(ctx, events.Start, 0)

	var runErr error

	// Catch-up: first run or downtime may leave the current round
	// unprocessed.
	current, err := d.currentRound(ctx)
	if err == nil {
		if d.st.LastRoundProcessed == nil || current > *d.st.LastRoundProcessed {
			d.log.Info("current round does not appear to be processed", "round", int64(current))
			if err := cyc.RunNewRound(ctx, current); err != nil && ctx.Err() == nil {
				runErr = err
			}
		}
	}

	if runErr == nil {
		d.log.Info("entering daemon loop")
		for ctx.Err() == nil {
			info, err := cyc.WaitTillNextRound(ctx)
			if err != nil {
				break
			}
			if err := cyc.RunNewRound(ctx, info.Number); err != nil {
				if ctx.Err() == nil {
					runErr = err
				}
				break
			}
		}
		d.log.Info("exiting daemon loop")
	}

	// Shutdown dispatch and final save run on a fresh deadline so a
	// cancelled run context cannot skip them.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	d.bus.Dispatch(shutdownCtx, events.Shutdown, 0)

	if err := d.store.Save(d.st); err != nil {
		d.log.Error("final checkpoint save failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	d.log.Info("daemon stopped", "run_id", d.runID)
	return runErr
}

// currentRound queries the current round number, retrying every minute
// until it succeeds or the context is cancelled.
func (d *Daemon) currentRound(ctx context.Context) (round.Number, error) {
	for {
		n, err := d.rounds.CurrentRoundNumber(ctx)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		metrics.ProviderErrors.Inc()
		d.log.Warn("current round query failed, retrying", "error", err, "retry_in", "60s")

		timer := time.NewTimer(60 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
}

func roundOrNull(n *round.Number) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}
