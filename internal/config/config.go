// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors are wrapped via this package's error kinds.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file holding the competition roster and answers.
	DBPath string `koanf:"db_path"`

	// Season selects the registered grading scheme for the active competition.
	Season string `koanf:"season"`

	// LiveWindowSeconds bounds staleness of the live guts scoreboard. Repeated
	// polls inside the window are served from cache without regrading.
	LiveWindowSeconds int `koanf:"live_window_seconds"`

	// BlendWeights weight the final score categories.
	BlendWeights map[string]float64 `koanf:"blend_weights"`

	// TargetQuantile is the population target for power-mean calibration.
	TargetQuantile float64 `koanf:"target_quantile"`

	// MaxScoreboardLimit caps GET /scoreboard/*?limit.
	MaxScoreboardLimit int `koanf:"max_scoreboard_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		DBPath:            "podium.db",
		Season:            "classic",
		LiveWindowSeconds: 20,
		BlendWeights: map[string]float64{
			"indiv": 50,
			"team":  25,
			"guts":  25,
		},
		TargetQuantile:     0.375,
		MaxScoreboardLimit: 500,
	}
}

// LiveWindow returns the live scoreboard staleness window as a duration.
func (c *Config) LiveWindow() time.Duration {
	return time.Duration(c.LiveWindowSeconds) * time.Second
}
