package events

import (
	"context"
	"errors"
	"testing"

	"github.com/tourneyd/tourneyd/internal/round"
)

// recordingHandler records the events it receives, optionally failing or
// panicking on a chosen event.
type recordingHandler struct {
	NoopHandler

	name    string
	calls   *[]string
	failOn  Event
	panicOn Event
	fail    bool
	panics  bool
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) record(ev Event, n round.Number) error {
	*h.calls = append(*h.calls, h.name+":"+ev.String())
	if h.panics && ev == h.panicOn {
		panic("handler exploded")
	}
	if h.fail && ev == h.failOn {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) OnStart(context.Context) error    { return h.record(Start, 0) }
func (h *recordingHandler) OnShutdown(context.Context) error { return h.record(Shutdown, 0) }
func (h *recordingHandler) OnRoundBegin(_ context.Context, n round.Number) error {
	return h.record(RoundBegin, n)
}
func (h *recordingHandler) OnNewTrainingData(_ context.Context, n round.Number) error {
	return h.record(NewTrainingData, n)
}
func (h *recordingHandler) OnNewTournamentData(_ context.Context, n round.Number) error {
	return h.record(NewTournamentData, n)
}

func TestDispatchOrderMatchesRegistration(t *testing.T) {
	var calls []string
	bus := NewBus(nil)

	for _, name := range []string{"first", "second", "third"} {
		if err := bus.Register(&recordingHandler{name: name, calls: &calls}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	bus.Dispatch(context.Background(), RoundBegin, 100)

	want := []string{"first:on_round_begin", "second:on_round_begin", "third:on_round_begin"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestDispatchIsolatesFailingHandler(t *testing.T) {
	var calls []string
	bus := NewBus(nil)

	if err := bus.Register(&recordingHandler{name: "failing", calls: &calls, fail: true, failOn: RoundBegin}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := bus.Register(&recordingHandler{name: "after", calls: &calls}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	bus.Dispatch(context.Background(), RoundBegin, 55)

	if len(calls) != 2 || calls[1] != "after:on_round_begin" {
		t.Errorf("later handler should still run, calls = %v", calls)
	}
}

func TestDispatchIsolatesPanickingHandler(t *testing.T) {
	var calls []string
	bus := NewBus(nil)

	if err := bus.Register(&recordingHandler{name: "panicking", calls: &calls, panics: true, panicOn: NewTrainingData}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := bus.Register(&recordingHandler{name: "after", calls: &calls}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	bus.Dispatch(context.Background(), NewTrainingData, 55)

	if len(calls) != 2 || calls[1] != "after:on_new_training_data" {
		t.Errorf("later handler should still run after panic, calls = %v", calls)
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	var calls []string
	bus := NewBus(nil)

	if err := bus.Register(&recordingHandler{name: "model", calls: &calls}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := bus.Register(&recordingHandler{name: "model", calls: &calls})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate Register error = %v, want ErrDuplicateName", err)
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	var calls []string
	bus := NewBus(nil)

	err := bus.Register(&recordingHandler{name: "", calls: &calls})
	if !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name Register error = %v, want ErrEmptyName", err)
	}
}

func TestUnregister(t *testing.T) {
	var calls []string
	bus := NewBus(nil)

	if err := bus.Register(&recordingHandler{name: "keep", calls: &calls}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := bus.Register(&recordingHandler{name: "drop", calls: &calls}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	bus.Unregister("drop")
	bus.Unregister("unknown") // no-op

	names := bus.Handlers()
	if len(names) != 1 || names[0] != "keep" {
		t.Errorf("Handlers = %v, want [keep]", names)
	}

	bus.Dispatch(context.Background(), Start, 0)
	if len(calls) != 1 || calls[0] != "keep:on_start" {
		t.Errorf("calls = %v, want [keep:on_start]", calls)
	}
}
