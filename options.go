package owned

import "log/slog"

// Option configures how an array obtains its block.
type Option func(*config)

type config struct {
	alloc  Allocator
	logger *slog.Logger
}

// WithAllocator makes the array draw its block from a. A nil allocator
// selects Heap.
func WithAllocator(a Allocator) Option {
	return func(c *config) { c.alloc = a }
}

// WithLogger sets the logger used for block lifecycle events.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) config {
	c := config{alloc: Heap}
	for _, opt := range opts {
		opt(&c)
	}
	if c.alloc == nil {
		c.alloc = Heap
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}
