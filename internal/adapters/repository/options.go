package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSnapshotInterval sets how often a changed working set is republished.
// Zero disables the background publisher; callers then Publish explicitly.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval >= 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithPublishHook registers a callback run after every publish.
func WithPublishHook(fn func(*Board)) Option {
	return func(s *MemoryStore) {
		if fn != nil {
			s.hooks = append(s.hooks, fn)
		}
	}
}
