// Package state persists the daemon's round progress checkpoint.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tourneyd/tourneyd/internal/round"
)

// StateFile is the well-known checkpoint file name.
const StateFile = "state.json"

// State is the durable progress record. Nil round numbers mean "never".
// LastRoundTrained is nil or at most LastRoundProcessed once both are set,
// because training is only evaluated while processing a round.
type State struct {
	LastRoundProcessed *round.Number `json:"last_round_processed"`
	LastRoundTrained   *round.Number `json:"last_round_trained"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Store loads and saves the checkpoint file.
type Store struct {
	path string
	log  *slog.Logger
}

// NewStore creates a checkpoint store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dir, err)
	}
	return &Store{
		path: filepath.Join(dir, StateFile),
		log:  slog.With("component", "state"),
	}, nil
}

// Load reads the checkpoint. A missing, truncated, or corrupt file yields
// a fresh zero state: first-run and lost-state both degrade to "process
// everything as new" rather than failing. Losing the checkpoint causes
// redundant reprocessing, never silent data loss.
func (s *Store) Load() *State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("checkpoint unreadable, starting fresh", "path", s.path, "error", err)
		}
		return &State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("checkpoint corrupt, starting fresh", "path", s.path, "error", err)
		return &State{}
	}

	return &st
}

// Save writes the full checkpoint atomically via temp file + rename.
func (s *Store) Save(st *State) error {
	st.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename checkpoint file: %w", err)
	}

	return nil
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}
