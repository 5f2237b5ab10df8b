package pnl

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HealConfig tunes the auto-heal control loop. The zero value is unusable;
// start from DefaultHealConfig and override from a YAML file if present.
type HealConfig struct {
	// BatchSize caps the symbols per backfill dispatch; larger day buckets
	// are chunked.
	BatchSize int `yaml:"batch_size"`
	// RetryDelay is the window during which a (date, symbol) pair is not
	// re-dispatched after a dispatch.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// SessionBudget caps dispatches per session; past it the controller
	// trips into eco mode until Reset.
	SessionBudget int `yaml:"session_budget"`
	// RequestsPerSecond paces dispatches to respect provider rate limits.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// RecheckDelay is how long to cool down after a provider answers that
	// it queued the work asynchronously.
	RecheckDelay time.Duration `yaml:"recheck_delay"`
	// Tick is the period of the background control loop.
	Tick time.Duration `yaml:"tick"`
	// MaxAttempts bounds how often a failing cell is retried before it is
	// demoted to missing_vendor, which stops automatic retries for good.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultHealConfig returns the tuning used when no config file overrides it.
func DefaultHealConfig() HealConfig {
	return HealConfig{
		BatchSize:         10,
		RetryDelay:        5 * time.Minute,
		SessionBudget:     50,
		RequestsPerSecond: 1,
		RecheckDelay:      30 * time.Second,
		Tick:              15 * time.Second,
		MaxAttempts:       3,
	}
}

// LoadHealConfig reads path over the defaults. A missing file is not an
// error: the defaults apply.
func LoadHealConfig(path string) (HealConfig, error) {
	cfg := DefaultHealConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	// Durations are read as strings ("5m", "30s") and parsed explicitly.
	var raw struct {
		BatchSize         *int     `yaml:"batch_size"`
		RetryDelay        string   `yaml:"retry_delay"`
		SessionBudget     *int     `yaml:"session_budget"`
		RequestsPerSecond *float64 `yaml:"requests_per_second"`
		RecheckDelay      string   `yaml:"recheck_delay"`
		Tick              string   `yaml:"tick"`
		MaxAttempts       *int     `yaml:"max_attempts"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if raw.BatchSize != nil {
		cfg.BatchSize = *raw.BatchSize
	}
	if raw.SessionBudget != nil {
		cfg.SessionBudget = *raw.SessionBudget
	}
	if raw.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *raw.RequestsPerSecond
	}
	if raw.MaxAttempts != nil {
		cfg.MaxAttempts = *raw.MaxAttempts
	}
	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{raw.RetryDelay, &cfg.RetryDelay},
		{raw.RecheckDelay, &cfg.RecheckDelay},
		{raw.Tick, &cfg.Tick},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return cfg, fmt.Errorf("config %q: %w", path, err)
		}
		*d.dst = v
	}
	if cfg.BatchSize <= 0 || cfg.SessionBudget <= 0 || cfg.RequestsPerSecond <= 0 || cfg.MaxAttempts <= 0 {
		return cfg, fmt.Errorf("config %q: batch_size, session_budget, requests_per_second and max_attempts must be positive", path)
	}
	return cfg, nil
}
