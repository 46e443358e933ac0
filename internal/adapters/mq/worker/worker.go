// Package worker drains rescore jobs: fetch a snapshot, score it, store the entry.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/internal/domain/model"
	"github.com/okian/fleetpower/internal/domain/power"
	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/okian/fleetpower/pkg/logger"
	"github.com/okian/fleetpower/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	defaultJobTimeout       = 30 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Source hands out jobs.
type Source interface {
	Dequeue(ctx context.Context) (model.Job, error)
}

// Fetcher loads an account snapshot.
type Fetcher interface {
	Snapshot(ctx context.Context, address string) (fleet.Snapshot, error)
}

// Updater stores scored entries.
type Updater interface {
	Upsert(ctx context.Context, e ranking.Entry) (bool, error)
	Remove(ctx context.Context, address string) (bool, error)
}

// Releaser clears the pending mark of a finished job.
type Releaser interface {
	Release(ctx context.Context, key string)
}

type noopReleaser struct{}

func (noopReleaser) Release(context.Context, string) {}

// counters are shared by every worker of a pool.
type counters struct {
	processed atomic.Uint64
	failed    atomic.Uint64
	removed   atomic.Uint64
}

// InMemoryWorker processes jobs from a Source.
type InMemoryWorker struct {
	source   Source
	fetcher  Fetcher
	scorer   power.Scorer
	updater  Updater
	releaser Releaser
	name     string
	timeout  time.Duration
	stats    *counters

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(src Source, f Fetcher, s power.Scorer, u Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:   src,
		fetcher:  f,
		scorer:   s,
		updater:  u,
		releaser: noopReleaser{},
		name:     "worker",
		timeout:  defaultJobTimeout,
		stats:    &counters{},
		done:     make(chan struct{}),
		logger:   logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes jobs until the source is closed and drained or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		job, err := w.source.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Warn(ctx, "job failed",
				logger.String("job_id", job.ID),
				logger.Address(job.Address),
				logger.Error(err),
			)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) processJob(ctx context.Context, job model.Job) error {
	start := time.Now()
	defer func() {
		w.releaser.Release(ctx, job.Address)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	snap, err := w.fetcher.Snapshot(jobCtx, job.Address)
	if err != nil {
		w.fail()
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	res, err := w.scorer.Score(jobCtx, snap)
	if err != nil {
		w.fail()
		return fmt.Errorf("score: %w", err)
	}

	address := snap.Address
	if address == "" {
		address = job.Address
	}

	// Accounts without power are not listed.
	if res.TotalPower == 0 {
		removed, err := w.updater.Remove(jobCtx, address)
		if err != nil {
			w.fail()
			return fmt.Errorf("remove entry: %w", err)
		}
		if removed {
			w.stats.removed.Add(1)
		}
		w.stats.processed.Add(1)
		return nil
	}

	if _, err := w.updater.Upsert(jobCtx, ranking.EntryFor(address, res)); err != nil {
		w.fail()
		return fmt.Errorf("upsert entry: %w", err)
	}
	w.stats.processed.Add(1)
	w.logger.Debug(ctx, "account rescored",
		logger.String("job_id", job.ID),
		logger.Address(address),
		logger.Int64("total_power", res.TotalPower),
		logger.String("reason", string(job.Reason)),
	)
	return nil
}

func (w *InMemoryWorker) fail() {
	w.stats.failed.Add(1)
	metrics.RecordWorkerError()
}

// Stats is a point-in-time view of pool throughput.
type Stats struct {
	Workers   int    `json:"workers"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Removed   uint64 `json:"removed"`
}

// Pool runs a fixed number of workers over one Source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	stats   *counters

	mu     sync.Mutex
	cancel context.CancelFunc
	logger logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 picks a CPU-based default.
func NewPool(workerCount int, src Source, f Fetcher, s power.Scorer, u Updater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  src,
		stats:   &counters{},
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		wopts = append(wopts, withCounters(p.stats))
		p.workers[i] = NewInMemoryWorker(src, f, s, u, wopts...)
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown closes the source when it supports Close, lets workers drain the
// remaining jobs and cancels them if ctx or the drain timeout expires first.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut = errors.New("worker pool shutdown timed out")
		}
		if timedOut != nil {
			break
		}
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	metrics.UpdateWorkerCount(0)
	return timedOut
}

// Stats returns pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Processed: p.stats.processed.Load(),
		Failed:    p.stats.failed.Load(),
		Removed:   p.stats.removed.Load(),
	}
}
