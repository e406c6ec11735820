package owned

import (
	"fmt"
	"math"
	"math/bits"
	"reflect"
	"sync"
	"unsafe"
)

// Null returns an empty array. It is the same as new(Array[T]) and exists
// so call sites can spell out that they mean "no block".
func Null[T any]() *Array[T] {
	return &Array[T]{}
}

// New returns an array of n default-initialized elements.
//
// On the Go heap (the default) the elements are zero. Other allocators hand
// over their memory as is: a recycled Pool block or an Arena chunk after
// Reset still holds whatever its previous owner wrote. Use Zeroed when the
// contents matter.
//
// n == 0 allocates nothing and returns an empty array.
func New[T any](n int, opts ...Option) (*Array[T], error) {
	return allocate[T](n, false, opts)
}

// Zeroed returns an array of n elements, each the zero value of T.
// n == 0 allocates nothing and returns an empty array.
func Zeroed[T any](n int, opts ...Option) (*Array[T], error) {
	return allocate[T](n, true, opts)
}

// From returns a heap array holding values in order. With no values it
// returns an empty array.
func From[T any](values ...T) *Array[T] {
	if len(values) == 0 {
		return &Array[T]{}
	}
	data := make([]T, len(values))
	copy(data, values)
	return &Array[T]{data: data}
}

// FromSlice is From with options: the array is built with the configured
// allocator and receives a copy of values.
func FromSlice[T any](values []T, opts ...Option) (*Array[T], error) {
	a, err := allocate[T](len(values), false, opts)
	if err != nil {
		return nil, err
	}
	copy(a.data, values)
	return a, nil
}

func allocate[T any](n int, zero bool, opts []Option) (*Array[T], error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d elements", ErrInvalidSize, n)
	}
	if n == 0 {
		return &Array[T]{}, nil
	}
	cfg := newConfig(opts)

	var zeroT T
	elemSize := unsafe.Sizeof(zeroT)
	if isHeap(cfg.alloc) || elemSize == 0 {
		return &Array[T]{data: make([]T, n)}, nil
	}

	typ := reflect.TypeFor[T]()
	if hasPointers(typ) {
		return nil, fmt.Errorf("%w: %s", ErrPointerElements, typ)
	}

	align := unsafe.Alignof(zeroT)
	hi, total := bits.Mul(uint(n), uint(elemSize))
	if hi != 0 || total > uint(math.MaxInt)-uint(align) {
		return nil, fmt.Errorf("%w: %d x %s overflows", ErrOutOfMemory, n, typ)
	}
	raw, err := cfg.alloc.Allocate(int(total) + int(align) - 1)
	if err != nil {
		return nil, fmt.Errorf("owned: allocate %d x %s: %w", n, typ, err)
	}

	data := carve[T](raw, n, align)
	if zero {
		clear(data)
	}
	return &Array[T]{
		data: data,
		blk:  newBlock(cfg.alloc, raw, cfg.logger, n, typ.String()),
	}, nil
}

// carve returns n elements of T starting at the first align-aligned byte of raw.
func carve[T any](raw []byte, n int, align uintptr) []T {
	base := unsafe.Pointer(unsafe.SliceData(raw))
	mask := align - 1
	pad := (align - uintptr(base)&mask) & mask
	return unsafe.Slice((*T)(unsafe.Add(base, pad)), n)
}

var pointerFree sync.Map // reflect.Type -> bool

// hasPointers reports whether values of t hold anything the garbage
// collector must trace.
func hasPointers(t reflect.Type) bool {
	if v, ok := pointerFree.Load(t); ok {
		return !v.(bool)
	}
	has := scanPointers(t)
	pointerFree.Store(t, !has)
	return has
}

func scanPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && scanPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if scanPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
