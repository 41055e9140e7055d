package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tourneyd/tourneyd/internal/round"
)

func TestLoadMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	st := store.Load()
	if st.LastRoundProcessed != nil {
		t.Errorf("LastRoundProcessed = %v, want nil", *st.LastRoundProcessed)
	}
	if st.LastRoundTrained != nil {
		t.Errorf("LastRoundTrained = %v, want nil", *st.LastRoundTrained)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	processed := round.Number(102)
	trained := round.Number(100)
	if err := store.Save(&State{LastRoundProcessed: &processed, LastRoundTrained: &trained}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st := store.Load()
	if st.LastRoundProcessed == nil || *st.LastRoundProcessed != 102 {
		t.Errorf("LastRoundProcessed = %v, want 102", st.LastRoundProcessed)
	}
	if st.LastRoundTrained == nil || *st.LastRoundTrained != 100 {
		t.Errorf("LastRoundTrained = %v, want 100", st.LastRoundTrained)
	}
	if st.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set on save")
	}
}

func TestSaveLoadPreservesNull(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	processed := round.Number(57)
	if err := store.Save(&State{LastRoundProcessed: &processed}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st := store.Load()
	if st.LastRoundProcessed == nil || *st.LastRoundProcessed != 57 {
		t.Errorf("LastRoundProcessed = %v, want 57", st.LastRoundProcessed)
	}
	if st.LastRoundTrained != nil {
		t.Errorf("LastRoundTrained = %v, want nil", *st.LastRoundTrained)
	}
}

func TestLoadCorruptFileFailsOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, StateFile), []byte("{truncated"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	st := store.Load()
	if st.LastRoundProcessed != nil || st.LastRoundTrained != nil {
		t.Errorf("corrupt checkpoint should load as fresh state, got %+v", st)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	first := round.Number(10)
	if err := store.Save(&State{LastRoundProcessed: &first}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := round.Number(11)
	if err := store.Save(&State{LastRoundProcessed: &second, LastRoundTrained: &second}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st := store.Load()
	if st.LastRoundProcessed == nil || *st.LastRoundProcessed != 11 {
		t.Errorf("LastRoundProcessed = %v, want 11", st.LastRoundProcessed)
	}
	if st.LastRoundTrained == nil || *st.LastRoundTrained != 11 {
		t.Errorf("LastRoundTrained = %v, want 11", st.LastRoundTrained)
	}
}
