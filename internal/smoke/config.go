// Package smoke exercises a running fleetpower server over HTTP: it reads the
// leaderboard, cross-checks every row against the rank endpoint and can queue
// rescoring for the listed accounts.
package smoke

import (
	"errors"
	"time"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	TopN    int           // Leaderboard rows to verify
	Workers int           // Concurrent rank lookups
	Timeout time.Duration // HTTP request timeout
	Refresh bool          // Queue a rescore for every listed account
}

// Stats holds run statistics.
type Stats struct {
	Rows       int
	Checked    int
	Mismatches int
	Queued     int
	Duplicates int
	Rejected   int
	Failed     int
	Problems   []string
	StartTime  time.Time
	Duration   time.Duration
}

// OK reports whether the run found no inconsistencies.
func (s Stats) OK() bool { return s.Mismatches == 0 && s.Failed == 0 && len(s.Problems) == 0 }

var (
	ErrUnhealthy    = errors.New("service health check failed")
	ErrStatus       = errors.New("unexpected status")
	ErrInconsistent = errors.New("leaderboard inconsistent")
)

const (
	defaultTopN    = 50
	defaultWorkers = 8
	defaultTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.TopN < 1 {
		c.TopN = defaultTopN
	}
	if c.Workers < 1 {
		c.Workers = defaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
