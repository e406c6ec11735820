package owned

import "sync/atomic"

// Tracked wraps an Allocator and counts what passes through it.
// Safe for concurrent use if the wrapped allocator is.
type Tracked struct {
	name    string
	backing Allocator

	allocations atomic.Int64
	frees       atomic.Int64
	failures    atomic.Int64
	liveBytes   atomic.Int64
	totalBytes  atomic.Int64
}

// Track returns a Tracked allocator named name in front of backing.
// A nil backing tracks Heap blocks; note that arrays then live in byte
// blocks and need pointer-free elements.
func Track(name string, backing Allocator) *Tracked {
	if backing == nil {
		backing = Heap
	}
	return &Tracked{name: name, backing: backing}
}

// Name returns the label given to Track.
func (t *Tracked) Name() string { return t.name }

// Unwrap returns the wrapped allocator.
func (t *Tracked) Unwrap() Allocator { return t.backing }

// Allocate forwards to the wrapped allocator and records the outcome.
func (t *Tracked) Allocate(size int) ([]byte, error) {
	b, err := t.backing.Allocate(size)
	if err != nil {
		t.failures.Add(1)
		return nil, err
	}
	t.allocations.Add(1)
	t.liveBytes.Add(int64(len(b)))
	t.totalBytes.Add(int64(len(b)))
	return b, nil
}

// Free forwards to the wrapped allocator and records the outcome.
func (t *Tracked) Free(b []byte) error {
	if err := t.backing.Free(b); err != nil {
		t.failures.Add(1)
		return err
	}
	t.frees.Add(1)
	t.liveBytes.Add(-int64(len(b)))
	return nil
}

// Stats returns a snapshot of the counters.
func (t *Tracked) Stats() AllocStats {
	allocs, frees := t.allocations.Load(), t.frees.Load()
	return AllocStats{
		Allocations: allocs,
		Frees:       frees,
		Failures:    t.failures.Load(),
		LiveBlocks:  allocs - frees,
		LiveBytes:   t.liveBytes.Load(),
		TotalBytes:  t.totalBytes.Load(),
	}
}

// AllocStats is a snapshot of a Tracked allocator.
type AllocStats struct {
	Allocations int64 `json:"allocations"`
	Frees       int64 `json:"frees"`
	Failures    int64 `json:"failures"`
	LiveBlocks  int64 `json:"live_blocks"`
	LiveBytes   int64 `json:"live_bytes"`
	TotalBytes  int64 `json:"total_bytes"`
}
