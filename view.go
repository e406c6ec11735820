package owned

import "unsafe"

// View is a non-owning window onto contiguous elements, usually part of an
// Array. It carries no lifetime guarantee: a view is invalid once its source
// array is moved from, released or closed.
//
// Views are capacity-limited, so appending to one reallocates instead of
// writing past its end into the source.
type View[T any] []T

// ViewOf returns the view of n elements starting at p.
func ViewOf[T any](p *T, n int) View[T] {
	return View[T](unsafe.Slice(p, n))
}

// ViewRange returns the view of the elements from begin up to but not
// including end.
func ViewRange[T any](begin, end *T) View[T] {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 || begin == end {
		return View[T](unsafe.Slice(begin, 0))
	}
	n := (uintptr(unsafe.Pointer(end)) - uintptr(unsafe.Pointer(begin))) / size
	return ViewOf(begin, int(n))
}

// Len returns the number of elements in the view.
func (v View[T]) Len() int { return len(v) }

// Empty reports whether the view has no elements.
func (v View[T]) Empty() bool { return len(v) == 0 }

// Slice returns the sub-view [begin, end). Out of range bounds panic.
func (v View[T]) Slice(begin, end int) View[T] { return v[begin:end:end] }

// SliceOf is Slice with element pointers as bounds.
func (v View[T]) SliceOf(begin, end *T) View[T] { return v.Slice(v.index(begin), v.index(end)) }

// Prefix returns the sub-view [0, end).
func (v View[T]) Prefix(end int) View[T] { return v.Slice(0, end) }

// PrefixOf returns the sub-view from the first element up to end.
func (v View[T]) PrefixOf(end *T) View[T] { return v.Slice(0, v.index(end)) }

// Suffix returns the sub-view [begin, Len()).
func (v View[T]) Suffix(begin int) View[T] { return v.Slice(begin, len(v)) }

// SuffixOf returns the sub-view from begin to the end.
func (v View[T]) SuffixOf(begin *T) View[T] { return v.Slice(v.index(begin), len(v)) }

// index converts an element pointer into an offset from the start of v.
// Pointers outside v produce offsets the slice expression rejects.
// Zero-sized elements have no addresses to tell apart; their offset is 0.
func (v View[T]) index(p *T) int {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		return 0
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(v)))
	off := uintptr(unsafe.Pointer(p)) - base
	if off/size > uintptr(len(v)) {
		return -1
	}
	return int(off / size)
}
