package owned

import (
	"fmt"
	"log/slog"
	"runtime"
)

// block is the allocator-side half of a non-heap array. It lives on the
// heap so ownership can change hands without the leak hook following the
// wrong handle.
type block struct {
	alloc   Allocator
	raw     []byte
	logger  *slog.Logger
	cleanup runtime.Cleanup
}

// orphan is what the leak hook needs to free a block. It must not point
// back at the block.
type orphan struct {
	alloc  Allocator
	raw    []byte
	logger *slog.Logger
	elems  int
	elem   string
}

func newBlock(alloc Allocator, raw []byte, logger *slog.Logger, elems int, elem string) *block {
	b := &block{alloc: alloc, raw: raw, logger: logger}
	b.cleanup = runtime.AddCleanup(b, reclaim, orphan{
		alloc:  alloc,
		raw:    raw,
		logger: logger,
		elems:  elems,
		elem:   elem,
	})
	return b
}

// reclaim runs when a block became unreachable while still owned.
func reclaim(o orphan) {
	o.logger.Warn("owned: array collected without Close, reclaiming block",
		"allocator", fmt.Sprintf("%T", o.alloc),
		"elements", o.elems,
		"element_type", o.elem,
		"bytes", len(o.raw),
	)
	if err := o.alloc.Free(o.raw); err != nil {
		o.logger.Error("owned: reclaiming leaked block failed", "error", err)
	}
}

// detach stops the leak hook and hands back the raw block.
func (b *block) detach() []byte {
	b.cleanup.Stop()
	raw := b.raw
	b.raw = nil
	return raw
}

// free releases the block to its allocator.
func (b *block) free() error {
	n := len(b.raw)
	if err := b.alloc.Free(b.detach()); err != nil {
		return fmt.Errorf("owned: free %d bytes: %w", n, err)
	}
	b.logger.Debug("owned: block freed", "allocator", fmt.Sprintf("%T", b.alloc), "bytes", n)
	return nil
}
