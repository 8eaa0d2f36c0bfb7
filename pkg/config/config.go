// Package config loads and persists the memorygraph configuration: a TOML
// file, environment variables with the MEMORYGRAPH_ prefix, and built-in
// defaults, in ascending precedence of flags > env > file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	// ConfigFile is the expected file name inside the config directory.
	ConfigFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Load reads the config file at path and merges defaults into any
// zero-value fields. A missing file yields the full default config.
func Load(path string) (*Config, error) {
	if path == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Save persists the configuration as TOML at path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if path == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ParseTOML parses raw TOML bytes into a Config. Returns an error if the
// version field is present and not the supported version.
func ParseTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = defaults.Retrieval.TopK
	}
	if cfg.Scoring.HalfLifeHours == 0 {
		cfg.Scoring.HalfLifeHours = defaults.Scoring.HalfLifeHours
	}
	if cfg.Scoring.IntentBonus == 0 {
		cfg.Scoring.IntentBonus = defaults.Scoring.IntentBonus
	}
	if cfg.Scoring.AssocBonusPerTag == 0 {
		cfg.Scoring.AssocBonusPerTag = defaults.Scoring.AssocBonusPerTag
	}
	if cfg.Scoring.AssocBonusCap == 0 {
		cfg.Scoring.AssocBonusCap = defaults.Scoring.AssocBonusCap
	}
	if cfg.Scoring.SurfacedPenalty == 0 {
		cfg.Scoring.SurfacedPenalty = defaults.Scoring.SurfacedPenalty
	}
	if cfg.Feedback.LearningRate == 0 {
		cfg.Feedback.LearningRate = defaults.Feedback.LearningRate
	}
}
