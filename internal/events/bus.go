package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tourneyd/tourneyd/internal/metrics"
	"github.com/tourneyd/tourneyd/internal/round"
)

var (
	// ErrDuplicateName is returned when registering a handler whose name
	// is already taken.
	ErrDuplicateName = errors.New("duplicate handler name")

	// ErrEmptyName is returned when registering a handler with an empty
	// name.
	ErrEmptyName = errors.New("handler name can not be empty")
)

// Bus holds handlers in registration order and dispatches lifecycle
// events to all of them synchronously on the calling goroutine. A failing
// handler never blocks later handlers or the round cycle.
//
// The bus is driven from the daemon's single control goroutine; it is not
// safe for concurrent registration and dispatch.
type Bus struct {
	handlers []Handler
	env      Env
	log      *slog.Logger
}

// NewBus creates an event bus. env may be nil when no handler needs the
// daemon environment.
func NewBus(env Env) *Bus {
	return &Bus{
		env: env,
		log: slog.With("component", "events"),
	}
}

// Register appends a handler to the dispatch order. Names must be unique
// and non-empty.
func (b *Bus) Register(h Handler) error {
	if h.Name() == "" {
		return ErrEmptyName
	}
	for _, existing := range b.handlers {
		if existing.Name() == h.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateName, h.Name())
		}
	}

	if aware, ok := h.(EnvAware); ok && b.env != nil {
		aware.Bind(b.env)
	}

	b.handlers = append(b.handlers, h)
	return nil
}

// Unregister removes all handlers with the given name. Removing an
// unknown name is a no-op.
func (b *Bus) Unregister(name string) {
	kept := b.handlers[:0]
	for _, h := range b.handlers {
		if h.Name() != name {
			kept = append(kept, h)
		}
	}
	b.handlers = kept
}

// Handlers returns the registered handler names in dispatch order.
func (b *Bus) Handlers() []string {
	names := make([]string, len(b.handlers))
	for i, h := range b.handlers {
		names[i] = h.Name()
	}
	return names
}

// Dispatch invokes ev on every registered handler in registration order.
// Iteration runs over a snapshot, so handlers mutating the registry
// during dispatch do not affect the in-flight dispatch.
func (b *Bus) Dispatch(ctx context.Context, ev Event, n round.Number) {
	b.log.Debug("dispatch", "event", ev.String(), "round", int64(n), "handlers", len(b.handlers))

	snapshot := make([]Handler, len(b.handlers))
	copy(snapshot, b.handlers)

	for _, h := range snapshot {
		if err := b.invoke(ctx, h, ev, n); err != nil {
			b.log.Error("handler failed",
				"handler", h.Name(),
				"event", ev.String(),
				"round", int64(n),
				"error", err,
			)
			metrics.HandlerErrors.WithLabelValues(h.Name(), ev.String()).Inc()
		}
	}
}

// invoke calls a single handler, converting panics into errors so one
// misbehaving handler cannot take down the daemon.
func (b *Bus) invoke(ctx context.Context, h Handler, ev Event, n round.Number) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch ev {
	case Start:
		return h.OnStart(ctx)
	case Shutdown:
		return h.OnShutdown(ctx)
	case RoundBegin:
		return h.OnRoundBegin(ctx, n)
	case NewTrainingData:
		return h.OnNewTrainingData(ctx, n)
	case NewTournamentData:
		return h.OnNewTournamentData(ctx, n)
	default:
		return fmt.Errorf("unknown event %d", ev)
	}
}
