package owned

import (
	"iter"
	"unsafe"
)

// Array is an owning, fixed-size, contiguous block of T.
//
// The zero value is an empty array. An Array must not be copied after first
// use: ownership moves with Move, MoveFrom or Swap, and go vet reports value
// copies. An Array is not safe for concurrent use.
type Array[T any] struct {
	_    noCopy
	data []T
	blk  *block // nil for Go heap arrays
}

// noCopy makes go vet's copylocks check flag copies of an Array.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Len returns the number of elements.
func (a *Array[T]) Len() int { return len(a.data) }

// Empty reports whether the array has no elements.
func (a *Array[T]) Empty() bool { return len(a.data) == 0 }

// Allocated reports whether the array owns a block.
func (a *Array[T]) Allocated() bool { return a.data != nil }

// Data returns the owned elements. The slice aliases the block and is
// valid until the array is moved from, released or closed.
func (a *Array[T]) Data() []T { return a.data }

// At returns element i.
func (a *Array[T]) At(i int) T { return a.data[i] }

// Set stores v at index i.
func (a *Array[T]) Set(i int, v T) { a.data[i] = v }

// Ptr returns the address of element i. i == Len() yields the one-past-end
// address, usable as the end bound of SliceOf and PrefixOf.
func (a *Array[T]) Ptr(i int) *T {
	if i == len(a.data) {
		var zero T
		return (*T)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.data)), uintptr(i)*unsafe.Sizeof(zero)))
	}
	return &a.data[i]
}

// All yields index and value pairs in order.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range a.data {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Values yields the elements in order.
func (a *Array[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range a.data {
			if !yield(v) {
				return
			}
		}
	}
}

// View returns a view over the whole array.
func (a *Array[T]) View() View[T] { return View[T](a.data[:len(a.data):len(a.data)]) }

// Slice returns a view over [begin, end).
func (a *Array[T]) Slice(begin, end int) View[T] { return a.View().Slice(begin, end) }

// SliceOf returns a view over the elements from begin up to but not
// including end. Both must point into the array or one past its end.
func (a *Array[T]) SliceOf(begin, end *T) View[T] { return a.View().SliceOf(begin, end) }

// Prefix returns a view over [0, end).
func (a *Array[T]) Prefix(end int) View[T] { return a.View().Prefix(end) }

// PrefixOf returns a view from the first element up to end.
func (a *Array[T]) PrefixOf(end *T) View[T] { return a.View().PrefixOf(end) }

// Suffix returns a view over [begin, Len()).
func (a *Array[T]) Suffix(begin int) View[T] { return a.View().Suffix(begin) }

// SuffixOf returns a view from begin to the end of the array.
func (a *Array[T]) SuffixOf(begin *T) View[T] { return a.View().SuffixOf(begin) }

// Allocator returns the allocator that owns the block, Heap for heap
// arrays, or nil for an empty array.
func (a *Array[T]) Allocator() Allocator {
	switch {
	case a.blk != nil:
		return a.blk.alloc
	case a.data != nil:
		return Heap
	default:
		return nil
	}
}

// Swap exchanges the contents of a and other.
func (a *Array[T]) Swap(other *Array[T]) {
	a.data, other.data = other.data, a.data
	a.blk, other.blk = other.blk, a.blk
}

// Move transfers ownership to a new Array and leaves a empty.
func (a *Array[T]) Move() *Array[T] {
	dst := &Array[T]{}
	dst.Swap(a)
	return dst
}

// MoveFrom takes ownership of src's block, leaving src empty. Whatever a
// owned before is freed; a failure to free it is logged rather than
// returned. Moving an array into itself does nothing.
func (a *Array[T]) MoveFrom(src *Array[T]) {
	if a == src {
		return
	}
	a.Swap(src)
	if src.blk != nil {
		blk := src.blk
		if err := src.Close(); err != nil {
			blk.logger.Error("owned: freeing overwritten block failed", "error", err)
		}
		return
	}
	src.data = nil
}

// Release gives up ownership without freeing. It returns the elements and a
// function that frees the block with the allocator it came from; the
// caller must call free at most once, after it is done with data. The array
// is left empty.
func (a *Array[T]) Release() (data []T, free func() error) {
	data, blk := a.data, a.blk
	a.data, a.blk = nil, nil
	if blk == nil {
		return data, func() error { return nil }
	}
	alloc, raw := blk.alloc, blk.detach()
	return data, func() error { return alloc.Free(raw) }
}

// Close frees the block, if any, and leaves the array empty. Closing an
// empty array is a no-op, so Close may be deferred right after
// construction.
func (a *Array[T]) Close() error {
	blk := a.blk
	a.data, a.blk = nil, nil
	if blk == nil {
		return nil
	}
	return blk.free()
}
