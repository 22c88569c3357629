// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/groupify/groupify/internal/domain/grouping"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps everything in
	// process memory.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the pending partition jobs.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of partition workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps the number of rooms partitioned at once.
	DedupeSize int `koanf:"dedupe_size"`

	// IterationFactor sets refinement trials per roster member.
	IterationFactor int `koanf:"iteration_factor"`

	// RandomSeed makes partitions reproducible. 0 seeds from the clock.
	RandomSeed uint64 `koanf:"random_seed"`

	// SeedingMode is "legacy" or "balanced".
	SeedingMode string `koanf:"seeding_mode"`

	// MinEnergy and MaxEnergy bound every profile energy.
	MinEnergy float64 `koanf:"min_energy"`
	MaxEnergy float64 `koanf:"max_energy"`

	// MaxGroupSize caps the requested group size.
	MaxGroupSize int `koanf:"max_group_size"`

	// MatchLimit is the default number of matches returned.
	MatchLimit int `koanf:"match_limit"`

	// MetricsNamespace prefixes every exported series.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are constant labels on every series, e.g. a deployment
	// name. File only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsRosterBuckets overrides the roster size histogram buckets,
	// e.g. GROUPIFY_METRICS_ROSTER_BUCKETS=10,50,250. Empty keeps the defaults.
	MetricsRosterBuckets []float64 `koanf:"metrics_roster_buckets"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		DBPath:           "groupify.db",
		QueueSize:        1024,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       10_000,
		IterationFactor:  grouping.DefaultIterationFactor,
		SeedingMode:      grouping.SeedingLegacy.String(),
		MinEnergy:        0,
		MaxEnergy:        6,
		MaxGroupSize:     100,
		MatchLimit:       10,
		MetricsNamespace: "groupify",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr", "must not be empty")
	case strings.TrimSpace(c.DBPath) == "":
		return invalid("db_path", "must not be empty")
	case c.QueueSize < 1:
		return invalid("queue_size", "must be positive")
	case c.WorkerCount < 1:
		return invalid("worker_count", "must be positive")
	case c.DedupeSize < 1:
		return invalid("dedupe_size", "must be positive")
	case c.IterationFactor < 0:
		return invalid("iteration_factor", "must not be negative")
	case c.MinEnergy < 0 || c.MaxEnergy <= c.MinEnergy:
		return invalid("min_energy/max_energy", "need 0 <= min < max")
	case c.MaxGroupSize < grouping.MinGroupSize:
		return invalid("max_group_size", fmt.Sprintf("must be at least %d", grouping.MinGroupSize))
	case c.MatchLimit < 1:
		return invalid("match_limit", "must be positive")
	}
	if !metricName.MatchString(c.MetricsNamespace) {
		return invalid("metrics_namespace", "must be a valid Prometheus name")
	}
	for i, b := range c.MetricsRosterBuckets {
		if i > 0 && b <= c.MetricsRosterBuckets[i-1] {
			return invalid("metrics_roster_buckets", "must be strictly increasing")
		}
	}
	if _, err := grouping.ParseSeedingMode(c.SeedingMode); err != nil {
		return invalid("seeding_mode", err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format", "must be text or json")
	}
	return nil
}

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, reason)
}
