package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TournamentID != 1 {
		t.Errorf("TournamentID = %d, want 1", cfg.TournamentID)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
	}
	if cfg.Dataset.Source != "api" {
		t.Errorf("Dataset.Source = %q, want api", cfg.Dataset.Source)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
tournament_id: 8
data_dir: /srv/rounds
api:
  base_url: https://rounds.example.com
  timeout_seconds: 10
dataset:
  source: blob
  blob_url: file:///srv/mirror
handlers:
  - name: train
    on_new_training: "train.sh %round%"
  - name: predict
    on_new_tournament: "predict.sh %dataset_path%"
`
	path := filepath.Join(t.TempDir(), "tourneyd.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TournamentID != 8 {
		t.Errorf("TournamentID = %d, want 8", cfg.TournamentID)
	}
	if cfg.DataDir != "/srv/rounds" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.API.BaseURL != "https://rounds.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout().Seconds() != 10 {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout())
	}
	if cfg.Dataset.Source != "blob" || cfg.Dataset.BlobURL != "file:///srv/mirror" {
		t.Errorf("Dataset = %+v", cfg.Dataset)
	}
	if len(cfg.Handlers) != 2 || cfg.Handlers[0].Name != "train" || cfg.Handlers[1].OnNewTournament == "" {
		t.Errorf("Handlers = %+v", cfg.Handlers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("TOURNAMENT_ID", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != "/env/data" {
		t.Errorf("DataDir = %q, want /env/data", cfg.DataDir)
	}
	if cfg.TournamentID != 3 {
		t.Errorf("TournamentID = %d, want 3", cfg.TournamentID)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidSource(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "ftp")

	if _, err := Load(""); err == nil {
		t.Error("invalid dataset source should fail")
	}
}

func TestLoadRejectsBlobWithoutURL(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "blob")

	if _, err := Load(""); err == nil {
		t.Error("blob source without blob_url should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("explicit missing config file should fail")
	}
}
