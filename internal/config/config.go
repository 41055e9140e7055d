// Package config loads daemon configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tourneyd/tourneyd/internal/logging"
)

// Config holds the daemon configuration.
type Config struct {
	TournamentID int    `yaml:"tournament_id"`
	DataDir      string `yaml:"data_dir"`
	StateDir     string `yaml:"state_dir"`

	API      APIConfig       `yaml:"api"`
	Dataset  DatasetConfig   `yaml:"dataset"`
	Catalog  CatalogConfig   `yaml:"catalog"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Logging  logging.Config  `yaml:"logging"`
	Handlers []HandlerConfig `yaml:"handlers"`
}

// APIConfig configures the tournament API client.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured API timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatasetConfig selects where round datasets are fetched from.
type DatasetConfig struct {
	Source     string `yaml:"source"` // "api" | "blob"
	BlobURL    string `yaml:"blob_url"`
	BlobPrefix string `yaml:"blob_prefix"`
}

// CatalogConfig configures the optional Postgres round catalog.
type CatalogConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Address string `yaml:"address"` // e.g. ":9090"; empty disables
}

// HandlerConfig declares a command handler registered at startup.
type HandlerConfig struct {
	Name            string `yaml:"name"`
	OnNewTraining   string `yaml:"on_new_training"`
	OnNewTournament string `yaml:"on_new_tournament"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TournamentID: 1,
		DataDir:      "./data",
		StateDir:     ".",
		API: APIConfig{
			BaseURL:        "https://api.tournament.example.com",
			TimeoutSeconds: 30,
		},
		Dataset: DatasetConfig{
			Source: "api",
		},
		Logging: logging.Config{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads configuration from path (optional) and applies environment
// overrides on top of defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.TournamentID <= 0 {
		return Config{}, fmt.Errorf("tournament_id must be positive, got %d", cfg.TournamentID)
	}
	switch cfg.Dataset.Source {
	case "api", "blob":
	default:
		return Config{}, fmt.Errorf("dataset source must be \"api\" or \"blob\", got %q", cfg.Dataset.Source)
	}
	if cfg.Dataset.Source == "blob" && cfg.Dataset.BlobURL == "" {
		return Config{}, fmt.Errorf("dataset blob_url is required when source is \"blob\"")
	}

	return cfg, nil
}

// MustLoad loads configuration from the path in TOURNEYD_CONFIG (or the
// default tourneyd.yaml if present) and exits the process on error.
func MustLoad() Config {
	path := os.Getenv("TOURNEYD_CONFIG")
	if path == "" {
		if _, err := os.Stat("tourneyd.yaml"); err == nil {
			path = "tourneyd.yaml"
		}
	}

	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TOURNAMENT_ID"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.TournamentID = parsed
		}
	}
	cfg.DataDir = getenvDefault("DATA_DIR", cfg.DataDir)
	cfg.StateDir = getenvDefault("STATE_DIR", cfg.StateDir)
	cfg.API.BaseURL = getenvDefault("API_BASE_URL", cfg.API.BaseURL)
	cfg.Dataset.Source = getenvDefault("DATASET_SOURCE", cfg.Dataset.Source)
	cfg.Dataset.BlobURL = getenvDefault("DATASET_BLOB_URL", cfg.Dataset.BlobURL)
	cfg.Dataset.BlobPrefix = getenvDefault("DATASET_BLOB_PREFIX", cfg.Dataset.BlobPrefix)
	cfg.Catalog.PostgresDSN = getenvDefault("CATALOG_DSN", cfg.Catalog.PostgresDSN)
	cfg.Metrics.Address = getenvDefault("METRICS_ADDR", cfg.Metrics.Address)
	cfg.Logging.Format = getenvDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Level = getenvDefault("LOG_LEVEL", cfg.Logging.Level)
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
