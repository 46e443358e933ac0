package service

import (
	"time"

	"github.com/okian/fleetpower/internal/adapters/history"
	"github.com/okian/fleetpower/internal/domain/power"
	"github.com/okian/fleetpower/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the rescore queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the pending-address set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRefreshInterval sets the full rebuild period. Zero runs one rebuild at start only.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithSnapshotInterval sets how often a changed board is republished.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.snapshotInterval = d
		}
	}
}

// WithHistory sets the sink that receives each rebuilt board.
func WithHistory(h history.Sink) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithUpgradeReader enables UpgradeCosts.
func WithUpgradeReader(r UpgradeReader) Option {
	return func(s *Service) {
		s.upgrades = r
	}
}

// WithFuelDecimals sets the FUEL token decimals used for formatting.
func WithFuelDecimals(d int32) Option {
	return func(s *Service) {
		if d >= 0 {
			s.fuelDecimals = d
		}
	}
}

// WithScorer replaces the default power calculator.
func WithScorer(sc power.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
