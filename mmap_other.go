//go:build !unix

package owned

// Mmap is unavailable off unix; every Allocate fails with ErrUnsupported.
type Mmap struct{}

// NewMmap returns an allocator that always fails on this platform.
func NewMmap(bool) *Mmap { return &Mmap{} }

// Allocate fails with ErrUnsupported unless size is 0.
func (m *Mmap) Allocate(size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return nil, ErrUnsupported
}

// Free accepts only empty blocks.
func (m *Mmap) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	return ErrUnknownBlock
}
