package owned

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/eapache/queue"
)

// DefaultPoolRetention is the number of free blocks a Pool keeps per size
// class when NewPool is given retention <= 0.
const DefaultPoolRetention = 64

const (
	minPoolClass = 64      // smallest size class (bytes)
	maxPoolClass = 1 << 24 // larger requests bypass the pool
)

// Pool recycles freed blocks by power-of-two size class. Blocks come from
// the backing allocator, return to a FIFO free list on Free, and are handed
// out again without clearing, so New arrays drawn from a Pool may hold a
// previous owner's bytes.
//
// Safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	backing   Allocator
	retention int
	classes   map[int]*queue.Queue // class size -> free []byte blocks
}

// NewPool returns a pool in front of backing (Heap when nil) keeping at
// most retention free blocks per class.
func NewPool(backing Allocator, retention int) *Pool {
	if backing == nil {
		backing = Heap
	}
	if retention <= 0 {
		retention = DefaultPoolRetention
	}
	return &Pool{
		backing:   backing,
		retention: retention,
		classes:   make(map[int]*queue.Queue),
	}
}

// sizeClass returns the smallest class >= size, or 0 if size is too large
// to pool.
func sizeClass(size int) int {
	if size > maxPoolClass {
		return 0
	}
	if size <= minPoolClass {
		return minPoolClass
	}
	return 1 << bits.Len(uint(size-1))
}

// Allocate returns a block of size bytes whose capacity is its size class.
func (p *Pool) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	if size == 0 {
		return nil, nil
	}
	class := sizeClass(size)
	if class == 0 {
		return p.backing.Allocate(size)
	}

	p.mu.Lock()
	if q, ok := p.classes[class]; ok && q.Length() > 0 {
		b := q.Remove().([]byte)
		p.mu.Unlock()
		return b[:size], nil
	}
	p.mu.Unlock()

	b, err := p.backing.Allocate(class)
	if err != nil {
		return nil, err
	}
	return b[:size], nil
}

// Free puts b on its class free list, or hands it back to the backing
// allocator when the list is full.
func (p *Pool) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	class := sizeClass(cap(b))
	if class != cap(b) {
		return p.backing.Free(b)
	}

	p.mu.Lock()
	q, ok := p.classes[class]
	if !ok {
		q = queue.New()
		p.classes[class] = q
	}
	if q.Length() < p.retention {
		q.Add(b[:class])
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.backing.Free(b[:class])
}

// Retained returns the number of free blocks currently held.
func (p *Pool) Retained() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, q := range p.classes {
		n += q.Length()
	}
	return n
}

// Drain returns every retained block to the backing allocator.
func (p *Pool) Drain() error {
	p.mu.Lock()
	var blocks [][]byte
	for class, q := range p.classes {
		for q.Length() > 0 {
			blocks = append(blocks, q.Remove().([]byte))
		}
		delete(p.classes, class)
	}
	p.mu.Unlock()

	var firstErr error
	for _, b := range blocks {
		if err := p.backing.Free(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
