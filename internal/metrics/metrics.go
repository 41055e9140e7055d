// Package metrics provides Prometheus metrics for the daemon.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tourneyd"

var (
	// RoundsProcessed counts rounds fully processed since daemon start.
	RoundsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_processed_total",
		Help:      "Total rounds fully processed.",
	})

	// FetchRetries counts dataset fetch/validate retries.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_fetch_retries_total",
		Help:      "Total dataset fetch or validation retries.",
	})

	// ProviderErrors counts failed round info queries.
	ProviderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "round_info_errors_total",
		Help:      "Total failed round info queries.",
	})

	// HandlerErrors counts handler failures by handler and event.
	HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_errors_total",
		Help:      "Total handler failures during event dispatch.",
	}, []string{"handler", "event"})

	// LastRoundProcessed tracks the last fully processed round number.
	LastRoundProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_round_processed",
		Help:      "Number of the last fully processed round.",
	})

	// LastRoundTrained tracks the last round used for training.
	LastRoundTrained = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_round_trained",
		Help:      "Number of the last round used for training.",
	})

	// RoundDuration observes end-to-end round processing time.
	RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "round_processing_seconds",
		Help:      "Time spent processing a round, from valid dataset to checkpoint.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)

// Serve exposes /metrics on addr in a background goroutine. An empty addr
// disables the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}
