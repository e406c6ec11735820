//go:build unix

package owned

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap hands out anonymous private memory mappings. Each block is its own
// mapping, rounded up to whole pages by the kernel and zero on first use.
// Safe for concurrent use.
type Mmap struct {
	huge bool
}

// NewMmap returns an mmap allocator. With huge set it first asks for huge
// pages (Linux MAP_HUGETLB) and falls back to normal pages when the kernel
// has none to give.
func NewMmap(huge bool) *Mmap {
	return &Mmap{huge: huge}
}

// Allocate maps size bytes.
func (m *Mmap) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	if size == 0 {
		return nil, nil
	}
	const prot = unix.PROT_READ | unix.PROT_WRITE
	const flags = unix.MAP_ANON | unix.MAP_PRIVATE
	if m.huge && hugePageFlag != 0 {
		if b, err := unix.Mmap(-1, 0, roundHuge(size), prot, flags|hugePageFlag); err == nil {
			return b[:size], nil
		}
	}
	b, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, size, err)
	}
	return b, nil
}

// Free unmaps a block returned by Allocate.
func (m *Mmap) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b[:cap(b)]); err != nil {
		return fmt.Errorf("owned: munmap: %w", err)
	}
	return nil
}

// roundHuge rounds size up to a 2 MiB boundary.
func roundHuge(size int) int {
	const hugeSize = 2 << 20
	return (size + hugeSize - 1) / hugeSize * hugeSize
}
