package owned

import (
	"fmt"
	"unsafe"
)

// DefaultChunkSize is the default chunk size for new arenas (64 KiB).
const DefaultChunkSize = 1 << 16

// chunk represents a single memory chunk within an arena.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
}

// Arena is a chunked bump allocator. Blocks come out of large chunks and
// Free is a no-op: memory returns in bulk through Reset or Release.
// Arrays built on an arena must be closed or released before the arena is
// reset, or they will share memory with later arrays.
//
// Not goroutine-safe. Use SafeArena for concurrent access.
type Arena struct {
	chunks    []chunk
	chunkSize int
	current   int // index of the chunk being filled
}

// NewArena creates a new Arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used.
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{chunkSize: chunkSize}
	a.grow(chunkSize)
	return a
}

// Allocate returns n bytes carved out of the current chunk, pointer
// aligned. A new chunk is added when the current one is full.
func (a *Arena) Allocate(n int) ([]byte, error) {
	if a.chunks == nil {
		return nil, ErrReleased
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, n)
	}
	if n == 0 {
		return nil, nil
	}

	c := &a.chunks[a.current]
	off := alignPtr(c.offset)
	if off+uintptr(n) > uintptr(len(c.buf)) {
		c = a.advance(n)
		off = 0
	}
	start := int(off)
	c.offset = off + uintptr(n)
	return c.buf[start : start+n : start+n], nil
}

// Free is a no-op; arena memory is reclaimed by Reset or Release.
func (a *Arena) Free([]byte) error { return nil }

// Reset rewinds every chunk so its memory is handed out again. Contents are
// not cleared.
func (a *Arena) Reset() {
	if a.chunks == nil {
		return
	}
	for i := range a.chunks {
		a.chunks[i].offset = 0
	}
	a.current = 0
}

// Release drops all chunks. Later Allocate calls fail with ErrReleased.
func (a *Arena) Release() {
	a.chunks = nil
	a.current = 0
}

// advance moves to the next chunk that can hold n bytes, reusing chunks
// left over from before a Reset, and grows the arena when none fits.
func (a *Arena) advance(n int) *chunk {
	for i := a.current + 1; i < len(a.chunks); i++ {
		if len(a.chunks[i].buf) >= n {
			a.current = i
			return &a.chunks[i]
		}
	}
	a.grow(n)
	return &a.chunks[a.current]
}

// grow appends a new chunk of at least min bytes.
func (a *Arena) grow(min int) {
	size := a.chunkSize
	if min > size {
		size = min
	}
	a.chunks = append(a.chunks, chunk{buf: make([]byte, size)})
	a.current = len(a.chunks) - 1
}

// alignPtr aligns the offset up to pointer size alignment.
func alignPtr(off uintptr) uintptr {
	const align = unsafe.Sizeof(uintptr(0))
	mask := align - 1
	return (off + mask) & ^mask
}

// SizeInUse returns the bytes handed out since the last Reset, padding
// included.
func (a *Arena) SizeInUse() int {
	n := 0
	for _, c := range a.chunks {
		n += int(c.offset)
	}
	return n
}

// NumChunks returns how many chunks the arena holds.
func (a *Arena) NumChunks() int { return len(a.chunks) }

// Capacity returns the combined size of all chunks in bytes.
func (a *Arena) Capacity() int {
	n := 0
	for _, c := range a.chunks {
		n += len(c.buf)
	}
	return n
}

// Utilization returns SizeInUse over Capacity, or 0 for a released arena.
func (a *Arena) Utilization() float64 {
	total := a.Capacity()
	if total == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(total)
}

// ChunkSize returns the size new chunks are created with.
func (a *Arena) ChunkSize() int { return a.chunkSize }

// Metrics returns a snapshot of the arena's occupancy.
func (a *Arena) Metrics() ArenaMetrics {
	used, total := a.SizeInUse(), a.Capacity()
	m := ArenaMetrics{
		SizeInUse: used,
		Capacity:  total,
		NumChunks: len(a.chunks),
		ChunkSize: a.chunkSize,
	}
	if total > 0 {
		m.Utilization = float64(used) / float64(total)
	}
	return m
}

// ArenaMetrics is an arena occupancy snapshot, exported by promstats and
// the ownedstat report.
type ArenaMetrics struct {
	SizeInUse   int     `json:"size_in_use"`
	Capacity    int     `json:"capacity"`
	NumChunks   int     `json:"num_chunks"`
	ChunkSize   int     `json:"chunk_size"`
	Utilization float64 `json:"utilization"`
}
