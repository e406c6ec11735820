// Package owned implements Array, a fixed-size, move-only owning handle to a
// contiguous block of elements, and View, its non-owning window type.
//
// # Overview
//
// An Array holds exclusive title to its block. Nothing copies the block
// reference: ownership changes hands through Move, MoveFrom and Swap, and
// the block is freed exactly once, by Close or by whoever took it with
// Release. This gives low-level code a checked alternative to pairing
// allocate and free calls by hand when storing binary data.
//
// # Basic Usage
//
//	a, err := owned.New[int](5) // default-initialized
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//	for i := range a.Data() {
//		a.Data()[i] = i // a = {0, 1, 2, 3, 4}
//	}
//
//	b := owned.From(3, 18, -157, 0)
//	b.Set(3, 25) // b = {3, 18, -157, 25}
//
//	c := b.Move() // b is now empty
//	tail := c.Suffix(2)
//
// # Initialization
//
// New leaves elements as the allocator delivered them, Zeroed clears them,
// From and FromSlice copy given values. Go heap blocks are always zero, so
// the difference only shows with allocators that recycle memory.
//
// # Allocators
//
// By default blocks come from the Go heap. WithAllocator selects another
// source: Arena and SafeArena (chunked bump allocation), Pool (size-class
// recycling), Mmap (anonymous mappings) or Locked (mlocked memory between
// guard pages). Tracked counts what flows through any of them. Allocators other
// than the heap hand out untyped memory, so they only accept element types
// without pointers.
//
// # Important Notes
//
//   - An Array must not be copied by value; go vet reports such copies
//   - Views and Data slices are invalid once their array is moved from,
//     released or closed
//   - Slice bounds are checked by the Go runtime and panic when violated
//   - Arrays and views are not safe for concurrent use; allocators are,
//     except Arena
//   - A non-heap block dropped without Close is reclaimed by the garbage
//     collector and reported through slog
package owned
