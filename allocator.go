package owned

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned (wrapped) when an allocator cannot supply a block.
	ErrOutOfMemory = errors.New("owned: out of memory")

	// ErrInvalidSize is returned for negative element counts.
	ErrInvalidSize = errors.New("owned: invalid size")

	// ErrPointerElements is returned when a pointer-carrying element type is
	// placed in memory the garbage collector does not scan.
	ErrPointerElements = errors.New("owned: element type contains pointers")

	// ErrReleased is returned by an arena used after Release.
	ErrReleased = errors.New("owned: allocator released")

	// ErrUnsupported is returned by allocators not available on this platform.
	ErrUnsupported = errors.New("owned: allocator not supported on this platform")

	// ErrUnknownBlock is returned by Free for a block the allocator never handed out.
	ErrUnknownBlock = errors.New("owned: unknown block")
)

// Allocator supplies raw byte blocks to arrays.
//
// Allocate returns a block of exactly size bytes (cap may be larger).
// Free receives the same slice header Allocate returned, possibly resliced
// to a shorter length, and must be called at most once per block.
// Implementations must tolerate Free being called from a goroutine other
// than the one that allocated.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Free(block []byte) error
}

// Heap is the Go garbage-collected heap. Arrays built on Heap are backed by
// make([]T, n), accept any element type and are always zeroed.
var Heap Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	if size == 0 {
		return nil, nil
	}
	return make([]byte, size), nil
}

func (heapAllocator) Free([]byte) error { return nil }

func isHeap(a Allocator) bool {
	if a == nil {
		return true
	}
	_, ok := a.(heapAllocator)
	return ok
}
