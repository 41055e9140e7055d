package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tourneyd/tourneyd/internal/catalog"
	"github.com/tourneyd/tourneyd/internal/config"
	"github.com/tourneyd/tourneyd/internal/daemon"
	"github.com/tourneyd/tourneyd/internal/dataset"
	"github.com/tourneyd/tourneyd/internal/events"
	"github.com/tourneyd/tourneyd/internal/logging"
	"github.com/tourneyd/tourneyd/internal/metrics"
	"github.com/tourneyd/tourneyd/internal/round"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.Logging)

	slog.Info("tourneyd starting", "version", Version, "git_sha", GitSHA)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	rounds := round.NewClient(round.ClientConfig{
		BaseURL:      cfg.API.BaseURL,
		TournamentID: cfg.TournamentID,
		Timeout:      cfg.API.Timeout(),
	})

	var datasets dataset.Provider
	switch cfg.Dataset.Source {
	case "blob":
		datasets = dataset.NewBlobProvider(dataset.BlobConfig{
			BucketURL: cfg.Dataset.BlobURL,
			Prefix:    cfg.Dataset.BlobPrefix,
		})
	default:
		datasets = dataset.NewHTTPProvider(dataset.HTTPConfig{
			BaseURL:      cfg.API.BaseURL,
			TournamentID: cfg.TournamentID,
		})
	}

	cat, err := catalog.NewWriter(catalog.Config{PostgresDSN: cfg.Catalog.PostgresDSN})
	if err != nil {
		slog.Error("failed to create catalog writer", "error", err)
		os.Exit(1)
	}
	defer cat.Close()

	metrics.Serve(cfg.Metrics.Address)

	d, err := daemon.New(cfg, rounds, datasets, cat)
	if err != nil {
		slog.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	for _, h := range cfg.Handlers {
		handler := events.NewCommandHandler(h.Name, h.OnNewTraining, h.OnNewTournament)
		if err := d.Register(handler); err != nil {
			slog.Error("failed to register handler", "handler", h.Name, "error", err)
			os.Exit(1)
		}
	}

	if err := d.Run(ctx); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}

	slog.Info("tourneyd stopped cleanly")
}
