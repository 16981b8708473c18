// Package config loads gate thresholds and the scenario token dictionary.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"pack_audit/internal/coverage"
	"pack_audit/internal/gate"
)

//go:embed scenario_tokens.yaml
var defaultScenarioTokens []byte

const FileName = "pqa.yaml"

type Config struct {
	Thresholds gate.Thresholds `yaml:"thresholds"`
	// Scenarios replaces the built-in token list per scenario key.
	Scenarios map[string][]string `yaml:"scenarios,omitempty"`
	// ScenarioFile points at an extra YAML token dictionary, merged after Scenarios.
	ScenarioFile string `yaml:"scenario_file,omitempty"`
	Workers      int    `yaml:"workers"`
	LogMode      string `yaml:"log_mode"`
}

func Default() Config {
	return Config{
		Thresholds: gate.DefaultThresholds(),
		Workers:    4,
		LogMode:    "production",
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	th := c.Thresholds
	for name, v := range map[string]float64{
		"near_duplicate_similarity":      th.NearDuplicateSimilarity,
		"near_duplicate_rate_red":        th.NearDuplicateRateRed,
		"near_duplicate_rate_yellow":     th.NearDuplicateRateYellow,
		"multi_slot_fallback_similarity": th.MultiSlotFallbackSimilarity,
		"min_multi_slot_rate":            th.MinMultiSlotRate,
		"max_scenario_share":             th.MaxScenarioShare,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be within [0,1], got %v", name, v)
		}
	}
	if th.NearDuplicateRateYellow > th.NearDuplicateRateRed {
		return fmt.Errorf("near_duplicate_rate_yellow (%v) exceeds near_duplicate_rate_red (%v)",
			th.NearDuplicateRateYellow, th.NearDuplicateRateRed)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Dictionary builds the scenario token dictionary: built-in entries first,
// then inline Scenarios, then ScenarioFile. Later sources replace a whole
// scenario entry.
func (c Config) Dictionary() (*coverage.Dictionary, error) {
	entries, err := parseTokens(defaultScenarioTokens)
	if err != nil {
		return nil, fmt.Errorf("parse built-in scenario tokens: %w", err)
	}
	entries = overlay(entries, c.Scenarios)
	if c.ScenarioFile != "" {
		raw, err := os.ReadFile(c.ScenarioFile)
		if err != nil {
			return nil, fmt.Errorf("read scenario file: %w", err)
		}
		extra, err := parseTokens(raw)
		if err != nil {
			return nil, fmt.Errorf("parse scenario file %s: %w", c.ScenarioFile, err)
		}
		entries = overlay(entries, extra)
	}
	return coverage.NewDictionary(entries), nil
}

// overlay replaces whole entries of base with those of top. Keys are compared
// in their case-folded form so "Work" replaces the built-in "work". Keys are
// visited in sorted order so a collision inside one source is stable.
func overlay(base, top map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(top))
	for _, src := range []map[string][]string{base, top} {
		for _, k := range slices.Sorted(maps.Keys(src)) {
			out[coverage.ScenarioKey(k)] = src[k]
		}
	}
	return out
}

func Save(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func parseTokens(raw []byte) (map[string][]string, error) {
	out := map[string][]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
