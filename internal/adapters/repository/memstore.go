package repository

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/okian/fleetpower/pkg/metrics"
)

const defaultSnapshotInterval = 500 * time.Millisecond

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// MemoryStore is the in-memory Store. Rows keep the order in which their
// account was first inserted so that ranking ties stay stable across rebuilds.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    []ranking.Entry
	pos     map[string]int
	version uint64 // bumped on every change under mu

	publishMu        sync.Mutex // orders rank and store so Version never goes backwards
	board            atomic.Pointer[Board]
	snapshotInterval time.Duration
	hooks            []func(*Board)

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore creates a store and, unless disabled, starts the periodic publisher.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		pos:              make(map[string]int),
		snapshotInterval: defaultSnapshotInterval,
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.board.Store(&Board{index: map[string]int{}, GeneratedAt: time.Now()})

	if s.snapshotInterval > 0 {
		s.startPeriodicSnapshots(ctx)
	}
	return s
}

func (s *MemoryStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if s.dirty() {
					s.Publish(ctx)
				}
			}
		}
	}()
}

func (s *MemoryStore) dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version != s.board.Load().Version
}

// Close stops the periodic publisher.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, e ranking.Entry) (bool, error) {
	key := normalize(e.Address)
	if key == "" {
		return false, ErrInvalidAddress
	}
	e.Rank = 0
	e.Current = false

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.pos[key]; ok {
		if s.rows[i] == e {
			return false, nil
		}
		s.rows[i] = e
	} else {
		s.pos[key] = len(s.rows)
		s.rows = append(s.rows, e)
	}
	s.version++
	metrics.RecordBoardUpdate()
	return true, nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, address string) (bool, error) {
	key := normalize(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.pos[key]
	if !ok {
		return false, nil
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.pos, key)
	for j := i; j < len(s.rows); j++ {
		s.pos[normalize(s.rows[j].Address)] = j
	}
	s.version++
	metrics.RecordBoardUpdate()
	return true, nil
}

// Rank implements Store.
func (s *MemoryStore) Rank(ctx context.Context, address string) (ranking.Entry, error) {
	e, ok := s.Board(ctx).Lookup(address)
	if !ok {
		return ranking.Entry{}, ErrNotFound
	}
	return e, nil
}

// TopN implements Store.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]ranking.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	top := ranking.Top(s.Board(ctx).Entries, n)
	out := make([]ranking.Entry, len(top))
	copy(out, top)
	return out, nil
}

// Leaderboard implements Store.
func (s *MemoryStore) Leaderboard(ctx context.Context, n int, current *ranking.Entry) (View, error) {
	if n < 1 {
		return View{}, ErrInvalidLimit
	}
	b := s.Board(ctx)
	if current == nil {
		top, _ := s.TopN(ctx, n)
		return View{Entries: top, Total: len(b.Entries), GeneratedAt: b.GeneratedAt}, nil
	}

	// Drop a zero-power current row the same way the board drops such accounts.
	merged := b.Entries
	if current.TotalPower > 0 {
		merged = ranking.WithCurrent(b.Entries, *current)
	}
	view := View{Total: len(merged), GeneratedAt: b.GeneratedAt}
	view.Entries = append([]ranking.Entry(nil), ranking.Top(merged, n)...)
	for _, e := range merged {
		if e.Current {
			cur := e
			view.Current = &cur
			break
		}
	}
	if view.Current == nil {
		cur := *current
		cur.Current = true
		cur.Rank = 0
		view.Current = &cur
	}
	return view, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Board implements Store.
func (s *MemoryStore) Board(_ context.Context) *Board {
	return s.board.Load()
}

// Publish implements Store.
func (s *MemoryStore) Publish(_ context.Context) *Board {
	start := time.Now()

	s.publishMu.Lock()
	s.mu.RLock()
	ranked := ranking.Rank(s.rows)
	version := s.version
	s.mu.RUnlock()

	b := &Board{
		Entries:     ranked,
		Version:     version,
		GeneratedAt: time.Now(),
		index:       make(map[string]int, len(ranked)),
	}
	for i, e := range ranked {
		b.index[normalize(e.Address)] = i
	}
	s.board.Store(b)
	s.publishMu.Unlock()

	metrics.RecordBoardPublish(float64(time.Since(start).Microseconds())/1000, b.GeneratedAt.Unix())
	metrics.UpdateBoardSize(len(ranked))
	metrics.UpdateTierCounts(b.TierCounts())
	for _, fn := range s.hooks {
		fn(b)
	}
	return b
}
