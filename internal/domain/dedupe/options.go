package dedupe

// Option applies a configuration option to the pending set.
type Option func(*pendingSet)

// WithMaxSize bounds the number of pending keys. Values <= 0 disable the bound.
func WithMaxSize(maxSize int) Option {
	return func(s *pendingSet) {
		s.maxSize = maxSize
	}
}
