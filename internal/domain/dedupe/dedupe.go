// Package dedupe tracks which accounts already have a rescore job pending so
// the same address is not queued twice.
package dedupe

import (
	"container/list"
	"context"
	"strings"
	"sync"
)

const defaultMaxSize = 50_000

// Tracker records pending keys.
type Tracker interface {
	// Mark records key as pending. It returns true when key was already
	// pending, in which case nothing changes.
	Mark(ctx context.Context, key string) bool

	// Release clears the pending mark, typically once the job finished or
	// could not be enqueued.
	Release(ctx context.Context, key string)

	// Pending reports whether key is currently marked.
	Pending(key string) bool

	Size() int
}

// pendingSet is a bounded Tracker. When full, the oldest mark is dropped;
// a dropped key may then be queued a second time, which is harmless because
// rescoring is idempotent.
type pendingSet struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int        // <= 0 means unbounded
	evicted uint64
}

// NewTracker creates an in-memory Tracker. Keys compare case-insensitively.
func NewTracker(opts ...Option) Tracker {
	s := &pendingSet{
		maxSize: defaultMaxSize,
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = make(map[string]*list.Element)
	return s
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *pendingSet) Mark(_ context.Context, key string) bool {
	k := normalize(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[k]; ok {
		return true
	}
	if s.maxSize > 0 && len(s.items) >= s.maxSize {
		if oldest := s.order.Front(); oldest != nil {
			delete(s.items, oldest.Value.(string))
			s.order.Remove(oldest)
			s.evicted++
		}
	}
	s.items[k] = s.order.PushBack(k)
	return false
}

func (s *pendingSet) Release(_ context.Context, key string) {
	k := normalize(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[k]; ok {
		s.order.Remove(el)
		delete(s.items, k)
	}
}

func (s *pendingSet) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[normalize(key)]
	return ok
}

func (s *pendingSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
