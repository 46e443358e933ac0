// Package queue is the bounded in-memory queue carrying rescore jobs to workers.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/fleetpower/internal/domain/model"
	"github.com/okian/fleetpower/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Sentinel errors.
var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue closed")
)

// Queue provides non-blocking enqueue and blocking dequeue.
type Queue interface {
	// Enqueue adds a job without blocking. It returns ErrQueueFull under
	// backpressure and ErrQueueClosed after Close.
	Enqueue(ctx context.Context, job model.Job) error

	// Dequeue blocks until a job is available, ctx ends, or the queue is
	// closed and drained (ErrQueueClosed).
	Dequeue(ctx context.Context) (model.Job, error)

	Len() int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	jobs     chan model.Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan model.Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job model.Job) error {
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected()
		return err
	}

	select {
	case q.jobs <- job:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueRejected()
		return ErrQueueFull
	}
}

// Dequeue waits for the next job.
func (q *InMemoryQueue) Dequeue(ctx context.Context) (model.Job, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return model.Job{}, ErrQueueClosed
		}
		metrics.RecordQueueDequeue()
		metrics.UpdateQueueSize(len(q.jobs))
		return job, nil
	case <-ctx.Done():
		return model.Job{}, ctx.Err()
	}
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue) Len() int { return len(q.jobs) }

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting jobs. Queued jobs can still be dequeued.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
