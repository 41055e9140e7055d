package dataset

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Mode selects which comparison a validator call is making.
type Mode string

const (
	// ModeTraining compares training data files to decide retraining.
	ModeTraining Mode = "training"
	// ModeLive compares tournament/live data files to decide whether a
	// downloaded dataset is usable and novel.
	ModeLive Mode = "live"
)

// Signature is the structural identity of a dataset file: content hash,
// data row count, and header line. Two files with equal signatures carry
// no new data relative to each other.
type Signature struct {
	Checksum string
	Rows     int64
	Header   string
}

// Equal reports whether two signatures match exactly.
func (s Signature) Equal(other Signature) bool {
	return s.Checksum == other.Checksum && s.Rows == other.Rows && s.Header == other.Header
}

// ComputeSignature reads a dataset file and computes its signature.
func ComputeSignature(path string) (Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return Signature{}, err
	}
	defer f.Close()

	hash := sha256.New()
	reader := bufio.NewReaderSize(io.TeeReader(f, hash), 1<<20)

	var sig Signature
	first := true
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if first {
				sig.Header = trimNewline(line)
				first = false
			} else {
				sig.Rows++
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Signature{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	sig.Checksum = "sha256:" + hex.EncodeToString(hash.Sum(nil))
	return sig, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Validator compares dataset snapshots by structural signature.
type Validator struct {
	log *slog.Logger
}

// NewValidator creates a dataset validator.
func NewValidator() *Validator {
	return &Validator{log: slog.With("component", "validator")}
}

// IsNew reports whether the file at newPath carries new data relative to
// oldPath. The signatures must match exactly to be considered equivalent;
// any mismatch, including a missing or unreadable old file, is new. An
// unreadable new file is an error.
func (v *Validator) IsNew(oldPath, newPath string, mode Mode) (bool, error) {
	newSig, err := ComputeSignature(newPath)
	if err != nil {
		return false, fmt.Errorf("signature of %s: %w", newPath, err)
	}

	oldSig, err := ComputeSignature(oldPath)
	if err != nil {
		if !os.IsNotExist(err) {
			v.log.Warn("old dataset file unreadable, treating as new",
				"mode", string(mode), "path", oldPath, "error", err)
		} else {
			v.log.Debug("old dataset file missing, treating as new",
				"mode", string(mode), "path", oldPath)
		}
		return true, nil
	}

	isNew := !newSig.Equal(oldSig)
	v.log.Debug("compared dataset files",
		"mode", string(mode),
		"old", oldPath,
		"new", newPath,
		"old_rows", oldSig.Rows,
		"new_rows", newSig.Rows,
		"is_new", isNew,
	)
	return isNew, nil
}
