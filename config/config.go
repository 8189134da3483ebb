// Package config loads the iqa command configuration from YAML.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Backend selects the Gaussian filter implementation used by SSIM.
type Backend string

const (
	// BackendGo is the pure Go separable filter.
	BackendGo Backend = "go"
	// BackendOpenCV filters through gocv.
	BackendOpenCV Backend = "opencv"
)

// Config holds the settings shared by all iqa commands.
type Config struct {
	// Border is the number of pixels cropped from each edge before scoring.
	Border int `yaml:"border"`
	// Mode is the summary file prefix, e.g. "train" or "test".
	Mode string `yaml:"mode"`
	// CheckpointDir is where summary files are written.
	CheckpointDir string `yaml:"checkpoint_dir"`
	// Grayscale decodes images as a single plane instead of RGB.
	Grayscale bool `yaml:"grayscale"`
	// MatchSize resizes the second image to the first one's size.
	MatchSize bool `yaml:"match_size"`
	// HistoryDB, when set, is a SQLite file that records every summary.
	HistoryDB string `yaml:"history_db"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Backend is "go" or "opencv".
	Backend Backend `yaml:"backend"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Border:        0,
		Mode:          "test",
		CheckpointDir: ".",
		LogLevel:      "info",
		Backend:       BackendGo,
	}
}

// Load reads a YAML file over the defaults and validates the result.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if c.Border < 0 {
		return errors.Errorf("border must be non-negative, got %d", c.Border)
	}
	if strings.TrimSpace(c.Mode) == "" {
		return errors.New("mode must not be empty")
	}
	if strings.ContainsAny(c.Mode, `/\`) {
		return errors.Errorf("mode %q must not contain path separators", c.Mode)
	}
	switch c.Backend {
	case BackendGo, BackendOpenCV:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown log level %q", name)
}
