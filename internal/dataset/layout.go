// Package dataset fetches, unpacks, and compares per-round dataset
// snapshots.
package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/tourneyd/tourneyd/internal/round"
)

// Well-known file names inside an unpacked dataset directory. The schema of
// these files is owned by the dataset publisher, not by this daemon.
const (
	TrainingFile   = "training_data.csv"
	TournamentFile = "tournament_data.csv"
)

// Dir returns the directory holding the unpacked dataset for a round.
func Dir(dataDir string, n round.Number) string {
	return filepath.Join(dataDir, fmt.Sprintf("dataset_%d", n))
}

// ArchivePath returns the path of the downloaded archive for a round.
func ArchivePath(dataDir string, n round.Number) string {
	return filepath.Join(dataDir, fmt.Sprintf("dataset_%d.zip", n))
}

// TrainingPath returns the path of a round's training data file.
func TrainingPath(dataDir string, n round.Number) string {
	return filepath.Join(Dir(dataDir, n), TrainingFile)
}

// TournamentPath returns the path of a round's tournament data file.
func TournamentPath(dataDir string, n round.Number) string {
	return filepath.Join(Dir(dataDir, n), TournamentFile)
}
