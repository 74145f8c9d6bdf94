// Package config defines process configuration and its loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/pkg/logger"
)

// Config contains process configuration shared by the CLI and the inspector.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the inspector listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// IdentityMap is the path of the identity map document.
	IdentityMap string `koanf:"identity_map"`

	// StatsDB is the path of the stats document.
	StatsDB string `koanf:"stats_db"`

	// Producer and Release select the default window for read commands.
	Producer string `koanf:"producer"`
	Release  string `koanf:"release"`

	// WorkerCount sets the number of windows processed in parallel.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the number of windows waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	SelfReviewThreshold int `koanf:"self_review_threshold"`
	SampleSize          int `koanf:"sample_size"`

	// TopN is the default row count of `revstat top`.
	TopN int `koanf:"top_n"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	LockTimeoutMS int `koanf:"lock_timeout_ms"`

	// TieBreak picks between equally specific corporate fragments: first or last.
	TieBreak string `koanf:"tie_break"`

	// TransitiveAliases follows alias chains in the mailmap.
	TransitiveAliases bool `koanf:"transitive_aliases"`

	// DedupeMaxIDs bounds the event IDs remembered per window. Zero keeps all.
	DedupeMaxIDs int `koanf:"dedupe_max_ids"`

	// GitdmDB is an optional gitdm developer dump consulted by `revstat check`
	// for organizations of unattributed addresses.
	GitdmDB string `koanf:"gitdm_db"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           logger.FormatText,
		Addr:                ":9080",
		StatsDB:             "revstat.json",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           64,
		SelfReviewThreshold: 5,
		SampleSize:          200,
		TopN:                10,
		MaxLeaderboardLimit: 100,
		LockTimeoutMS:       10_000,
		TieBreak:            string(identity.TieBreakFirst),
	}
}

// LockTimeout returns the store lock timeout as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// IdentityOptions returns the identity map options selected by c.
func (c *Config) IdentityOptions() []identity.Option {
	tb, _ := identity.ParseTieBreak(c.TieBreak)
	return []identity.Option{
		identity.WithTieBreak(tb),
		identity.WithTransitiveAliases(c.TransitiveAliases),
	}
}

// Validate reports the first invalid key.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr", "must not be empty")
	case c.StatsDB == "":
		return invalid("stats_db", "must not be empty")
	case c.WorkerCount < 1:
		return invalid("worker_count", "must be positive")
	case c.QueueSize < 1:
		return invalid("queue_size", "must be positive")
	case c.SelfReviewThreshold < 0:
		return invalid("self_review_threshold", "must not be negative")
	case c.SampleSize < 0:
		return invalid("sample_size", "must not be negative")
	case c.TopN < 1:
		return invalid("top_n", "must be positive")
	case c.MaxLeaderboardLimit < 1:
		return invalid("max_leaderboard_limit", "must be positive")
	case c.LockTimeoutMS < 1:
		return invalid("lock_timeout_ms", "must be positive")
	case c.DedupeMaxIDs < 0:
		return invalid("dedupe_max_ids", "must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return invalid("log_format", fmt.Sprintf("unknown format %q", c.LogFormat))
	}
	if _, err := identity.ParseTieBreak(c.TieBreak); err != nil {
		return invalid("tie_break", err.Error())
	}
	return nil
}

func invalid(key, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, msg)
}
