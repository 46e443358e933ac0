package power

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/pkg/logger"
	"github.com/okian/fleetpower/pkg/metrics"
)

// Scorer computes power for a fetched account snapshot.
type Scorer interface {
	// Score honors ctx for cancellation.
	Score(ctx context.Context, snap fleet.Snapshot) (Result, error)
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithLogger sets the logger used for per-account debug lines.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides the time source used for scoring latency.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// Calculator is the Scorer backed by Compute.
type Calculator struct {
	log logger.Logger
	now func() time.Time
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		log: logger.Named("power"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score computes the result for snap and records scoring metrics.
func (c *Calculator) Score(ctx context.Context, snap fleet.Snapshot) (Result, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordScoringError()
		return Result{}, fmt.Errorf("score %s: %w", snap.Address, err)
	}
	start := c.now()
	res := Compute(snap.Ships, snap.Gems)
	metrics.RecordScoringLatency(float64(c.now().Sub(start).Microseconds()) / 1000)
	metrics.RecordAccountScored()

	c.log.Debug(ctx, "account scored",
		logger.Address(snap.Address),
		logger.Int64("total_power", res.TotalPower),
		logger.String("tier", res.Tier),
		logger.Int("fleet", res.FleetCount),
	)
	return res, nil
}
