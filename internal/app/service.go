// Package service wires providers, scoring, the rescore queue and the board
// store into the operations the HTTP API and the CLI call.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fleetpower/internal/adapters/chain"
	"github.com/okian/fleetpower/internal/adapters/history"
	eventqueue "github.com/okian/fleetpower/internal/adapters/mq/queue"
	workerpool "github.com/okian/fleetpower/internal/adapters/mq/worker"
	"github.com/okian/fleetpower/internal/adapters/provider"
	"github.com/okian/fleetpower/internal/adapters/repository"
	"github.com/okian/fleetpower/internal/domain/dedupe"
	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/internal/domain/model"
	"github.com/okian/fleetpower/internal/domain/power"
	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/okian/fleetpower/pkg/logger"
	"github.com/okian/fleetpower/pkg/metrics"
)

const (
	idlePollInterval = 10 * time.Millisecond
	stopTimeout      = 30 * time.Second
	maxUpgradeLevel  = 5
)

// UpgradeReader reads upgrade prices. *chain.GameController implements it.
type UpgradeReader interface {
	UpgradeCost(ctx context.Context, level uint8) (chain.UpgradeCost, error)
}

// invalidator is implemented by providers that cache snapshots.
type invalidator interface {
	Invalidate(ctx context.Context, address string) error
}

// Outcome is the result of a rescore request.
type Outcome string

const (
	OutcomeQueued    Outcome = "queued"
	OutcomeDuplicate Outcome = "duplicate"
)

// RefreshReport summarizes one full rebuild.
type RefreshReport struct {
	RunID        string        `json:"run_id"`
	Holders      int           `json:"holders"`
	Enqueued     int           `json:"enqueued"`
	Duplicates   int           `json:"duplicates"`
	Rejected     int           `json:"rejected"`
	Removed      int           `json:"removed"`
	BoardVersion uint64        `json:"board_version"`
	Duration     time.Duration `json:"duration"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// UpgradeRequirement is the price of raising a ship one level.
type UpgradeRequirement struct {
	FromLevel int    `json:"from_level"`
	ToLevel   int    `json:"to_level"`
	Fuel      string `json:"fuel"`
	FuelWei   string `json:"fuel_wei"`
	Sapphire  uint64 `json:"sapphire"`
	Sunstone  uint64 `json:"sunstone"`
	Lithium   uint64 `json:"lithium"`
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider provider.Provider
	scorer   power.Scorer
	store    *repository.MemoryStore
	tracker  dedupe.Tracker
	queue    eventqueue.Queue
	pool     *workerpool.Pool
	history  history.Sink
	upgrades UpgradeReader

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	refreshInterval  time.Duration
	snapshotInterval time.Duration
	fuelDecimals     int32

	// State
	started     bool
	refreshing  atomic.Bool
	lastRefresh atomic.Pointer[RefreshReport]
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service reading snapshots from p.
func New(p provider.Provider, opts ...Option) *Service {
	s := &Service{
		provider:         p,
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        10_000,
		dedupeSize:       50_000,
		snapshotInterval: 500 * time.Millisecond,
		fuelDecimals:     18,
		history:          history.Noop{},
		scorer:           power.NewCalculator(),
		logger:           logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the components, starts the workers and schedules rebuilds.
// The first rebuild runs in the background right away.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.provider == nil {
		return ErrNoProvider
	}
	s.logger.Info(ctx, "starting leaderboard service...", logger.String("provider", s.provider.Name()))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewMemoryStore(runCtx, repository.WithSnapshotInterval(s.snapshotInterval))
	s.tracker = dedupe.NewTracker(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.provider, s.scorer, s.store,
		workerpool.WithReleaser(s.tracker),
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(runCtx)

	s.wg.Add(1)
	go s.refreshLoop(runCtx)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// Stop halts rebuilds, drains the workers and closes the stores.
func (s *Service) Stop() {
	s.mu.RLock()
	started, stopLoop := s.started, s.cancel
	s.mu.RUnlock()
	if !started {
		return
	}

	// The rebuild loop takes the read lock, so it must exit before Stop
	// takes the write lock.
	stopLoop()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping leaderboard service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	_ = s.store.Close()
	if err := s.history.Close(ctx); err != nil {
		s.logger.Warn(ctx, "history close", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	s.runRefresh(ctx)
	if s.refreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Service) runRefresh(ctx context.Context) {
	_, err := s.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRefreshInProgress):
		s.logger.Debug(ctx, "rebuild skipped, previous one still running")
	case ctx.Err() != nil:
	default:
		s.logger.Error(ctx, "rebuild failed", logger.Error(err))
	}
}

// running returns the live components or ErrNotStarted.
func (s *Service) running() (*repository.MemoryStore, eventqueue.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.queue, nil
}

// Refresh rebuilds the board: every holder is rescored, accounts that are no
// longer holders are dropped, and the call returns once the queued jobs have
// been processed and the board republished. Overlapping calls fail with
// ErrRefreshInProgress.
func (s *Service) Refresh(ctx context.Context) (RefreshReport, error) {
	store, _, err := s.running()
	if err != nil {
		return RefreshReport{}, err
	}
	if !s.refreshing.CompareAndSwap(false, true) {
		metrics.RecordRefresh("skipped", 0)
		return RefreshReport{}, ErrRefreshInProgress
	}
	defer s.refreshing.Store(false)

	start := time.Now()
	report := RefreshReport{RunID: uuid.NewString()}
	log := s.logger.With(logger.String("run_id", report.RunID))

	holders, err := s.provider.Holders(ctx)
	if err != nil {
		metrics.RecordRefresh("error", msSince(start))
		return report, fmt.Errorf("list holders: %w", err)
	}
	report.Holders = len(holders)

	current := make(map[string]struct{}, len(holders))
	for _, h := range holders {
		h = normalizeKey(h)
		current[h] = struct{}{}
		out, err := s.submit(ctx, h, model.ReasonRefresh, report.RunID)
		switch {
		case err == nil && out == OutcomeQueued:
			report.Enqueued++
		case err == nil:
			report.Duplicates++
		default:
			report.Rejected++
			log.Warn(ctx, "holder not queued", logger.Address(h), logger.Error(err))
		}
	}

	for _, e := range store.Board(ctx).Entries {
		if _, ok := current[normalizeKey(e.Address)]; ok {
			continue
		}
		if removed, _ := store.Remove(ctx, e.Address); removed {
			report.Removed++
		}
	}

	if err := s.WaitIdle(ctx); err != nil {
		metrics.RecordRefresh("error", msSince(start))
		return report, err
	}

	board := store.Publish(ctx)
	report.BoardVersion = board.Version
	report.Duration = time.Since(start)
	report.FinishedAt = time.Now()

	rec := history.Record{
		RunID:       report.RunID,
		Version:     board.Version,
		GeneratedAt: board.GeneratedAt,
		Total:       len(board.Entries),
		Entries:     board.Entries,
	}
	if err := s.history.Write(ctx, rec); err != nil {
		log.Warn(ctx, "history write failed", logger.Error(err))
	}

	s.lastRefresh.Store(&report)
	metrics.RecordRefresh("ok", msSince(start))
	log.Info(ctx, "rebuild complete",
		logger.Int("holders", report.Holders),
		logger.Int("enqueued", report.Enqueued),
		logger.Int("removed", report.Removed),
		logger.Int("ranked", len(board.Entries)),
		logger.Duration("took", report.Duration),
	)
	return report, nil
}

// WaitIdle blocks until the queue is empty and no job is in flight.
func (s *Service) WaitIdle(ctx context.Context) error {
	_, q, err := s.running()
	if err != nil {
		return err
	}
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		if q.Len() == 0 && s.tracker.Size() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Submit queues a rescore of address. A pending address is reported as
// OutcomeDuplicate. A full queue is ErrBackpressure.
func (s *Service) Submit(ctx context.Context, address string) (Outcome, error) {
	addr, err := fleet.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	if inv, ok := s.provider.(invalidator); ok {
		if err := inv.Invalidate(ctx, addr); err != nil {
			s.logger.Warn(ctx, "cache invalidation failed", logger.Address(addr), logger.Error(err))
		}
	}
	return s.submit(ctx, addr, model.ReasonManual, "")
}

func (s *Service) submit(ctx context.Context, address string, reason model.Reason, runID string) (Outcome, error) {
	_, q, err := s.running()
	if err != nil {
		return "", err
	}
	if s.tracker.Mark(ctx, address) {
		metrics.RecordJobDuplicate()
		return OutcomeDuplicate, nil
	}
	if err := q.Enqueue(ctx, model.NewJob(address, reason, runID)); err != nil {
		s.tracker.Release(ctx, address)
		if errors.Is(err, eventqueue.ErrQueueFull) {
			return "", ErrBackpressure
		}
		return "", err
	}
	return OutcomeQueued, nil
}

// Enqueue submits a manual rescore. It reports true when the address is
// queued or already pending.
func (s *Service) Enqueue(ctx context.Context, address string) bool {
	_, err := s.Submit(ctx, address)
	if err != nil {
		s.logger.Debug(ctx, "enqueue rejected", logger.Address(address), logger.Error(err))
	}
	return err == nil
}

// Power fetches a fresh snapshot of address and scores it.
func (s *Service) Power(ctx context.Context, address string) (power.Result, fleet.Snapshot, error) {
	addr, err := fleet.NormalizeAddress(address)
	if err != nil {
		return power.Result{}, fleet.Snapshot{}, err
	}
	snap, err := s.provider.Snapshot(ctx, addr)
	if err != nil {
		return power.Result{}, fleet.Snapshot{}, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	res, err := s.scorer.Score(ctx, snap)
	if err != nil {
		return power.Result{}, fleet.Snapshot{}, err
	}
	return res, snap, nil
}

// Compute scores caller-supplied assets.
func (s *Service) Compute(ships []fleet.ShipAsset, gems fleet.GemHolding) power.Result {
	return power.Compute(ships, gems)
}

// TopN returns the top n published entries.
func (s *Service) TopN(ctx context.Context, n int) ([]ranking.Entry, error) {
	store, _, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.TopN(ctx, n)
}

// Rank returns the published entry of address.
func (s *Service) Rank(ctx context.Context, address string) (ranking.Entry, error) {
	store, _, err := s.running()
	if err != nil {
		return ranking.Entry{}, err
	}
	return store.Rank(ctx, address)
}

// Leaderboard returns the top n entries. When currentAddress is set that
// account is scored fresh and ranked together with the board; if its snapshot
// cannot be read the page is returned without it.
func (s *Service) Leaderboard(ctx context.Context, n int, currentAddress string) (repository.View, error) {
	store, _, err := s.running()
	if err != nil {
		return repository.View{}, err
	}
	if currentAddress == "" {
		return store.Leaderboard(ctx, n, nil)
	}

	res, snap, err := s.Power(ctx, currentAddress)
	if errors.Is(err, fleet.ErrInvalidAddress) {
		return repository.View{}, err
	}
	if err != nil {
		s.logger.Warn(ctx, "current account unavailable", logger.Address(currentAddress), logger.Error(err))
		return store.Leaderboard(ctx, n, nil)
	}
	entry := ranking.EntryFor(snap.Address, res)
	return store.Leaderboard(ctx, n, &entry)
}

// History returns up to n recent published boards.
func (s *Service) History(ctx context.Context, n int) ([]history.Record, error) {
	return s.history.Recent(ctx, n)
}

// UpgradeCosts returns the price of each level-up.
func (s *Service) UpgradeCosts(ctx context.Context) ([]UpgradeRequirement, error) {
	if s.upgrades == nil {
		return nil, ErrUpgradesUnavailable
	}
	out := make([]UpgradeRequirement, 0, maxUpgradeLevel-1)
	for level := uint8(1); level < maxUpgradeLevel; level++ {
		c, err := s.upgrades.UpgradeCost(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("upgrade cost for level %d: %w", level, err)
		}
		out = append(out, UpgradeRequirement{
			FromLevel: int(level),
			ToLevel:   int(level) + 1,
			Fuel:      fleet.FormatTokenAmount(c.Fuel, s.fuelDecimals),
			FuelWei:   bigString(c.Fuel),
			Sapphire:  bigUint(c.Sapphire),
			Sunstone:  bigUint(c.Sunstone),
			Lithium:   bigUint(c.Lithium),
		})
	}
	return out, nil
}

// LastRefresh returns the report of the latest completed rebuild.
func (s *Service) LastRefresh() (RefreshReport, bool) {
	r := s.lastRefresh.Load()
	if r == nil {
		return RefreshReport{}, false
	}
	return *r, true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"refreshing":  s.refreshing.Load(),
	}
	if s.provider != nil {
		stats["provider"] = s.provider.Name()
	}

	if s.started {
		board := s.store.Board(ctx)
		queueLen := s.queue.Len()
		pool := s.pool.Stats()

		stats["queueLength"] = queueLen
		stats["pending"] = s.tracker.Size()
		stats["totalAccounts"] = s.store.Count(ctx)
		stats["rankedAccounts"] = len(board.Entries)
		stats["boardVersion"] = board.Version
		stats["boardGeneratedAt"] = board.GeneratedAt
		stats["tiers"] = board.TierCounts()
		stats["processed"] = pool.Processed
		stats["failed"] = pool.Failed
		stats["removed"] = pool.Removed

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	if r, ok := s.LastRefresh(); ok {
		stats["lastRefresh"] = r
	}
	return stats
}

func normalizeKey(address string) string {
	addr, err := fleet.NormalizeAddress(address)
	if err != nil {
		return address
	}
	return addr
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func bigUint(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}
