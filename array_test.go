package owned

import (
	"errors"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAllocator is a test double that records every block it frees.
type countingAllocator struct {
	mu        sync.Mutex
	allocs    int
	frees     map[*byte]int
	failAlloc bool
	failFree  bool
}

func newCountingAllocator() *countingAllocator {
	return &countingAllocator{frees: make(map[*byte]int)}
}

func (c *countingAllocator) Allocate(size int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAlloc {
		return nil, ErrOutOfMemory
	}
	c.allocs++
	return make([]byte, size), nil
}

func (c *countingAllocator) Free(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFree {
		return errors.New("free failed")
	}
	c.frees[unsafe.SliceData(b)]++
	return nil
}

func (c *countingAllocator) totalFrees() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.frees {
		n += v
	}
	return n
}

func TestZeroValueIsEmpty(t *testing.T) {
	var a Array[int]
	assert.False(t, a.Allocated())
	assert.True(t, a.Empty())
	assert.Equal(t, 0, a.Len())
	assert.Nil(t, a.Data())
	assert.Nil(t, a.Allocator())
	assert.NoError(t, a.Close())

	n := Null[float64]()
	assert.False(t, n.Allocated())
	assert.Equal(t, 0, n.Len())
}

func TestSizedArray(t *testing.T) {
	for _, n := range []int{0, 1, 5, 1000} {
		a, err := New[int32](n)
		require.NoError(t, err)
		assert.Equal(t, n, a.Len())
		assert.Equal(t, n > 0, a.Allocated())
		assert.Equal(t, n == 0, a.Empty())
		require.NoError(t, a.Close())
	}
}

func TestScenarioFillThroughIteration(t *testing.T) {
	a, err := New[int](5)
	require.NoError(t, err)
	defer a.Close()

	b := 0
	for i := range a.Data() {
		a.Data()[i] = b
		b++
	}
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, a.Data())
}

func TestScenarioFromValues(t *testing.T) {
	b := From(3, 18, -157, 0)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, []int{3, 18, -157, 0}, b.Data())

	b.Set(3, 25)
	assert.Equal(t, []int{3, 18, -157, 25}, b.Data())
	assert.Equal(t, 25, b.At(3))
}

func TestScenarioZeroSize(t *testing.T) {
	a, err := New[int](0)
	require.NoError(t, err)
	assert.False(t, a.Allocated())
	assert.Equal(t, 0, a.Len())
	assert.True(t, a.Empty())
}

func TestFromNoValuesIsEmpty(t *testing.T) {
	a := From[string]()
	assert.False(t, a.Allocated())
	assert.Equal(t, 0, a.Len())
}

func TestFromCopiesValues(t *testing.T) {
	src := []string{"a", "b"}
	a := From(src...)
	src[0] = "z"
	assert.Equal(t, []string{"a", "b"}, a.Data())
}

func TestMove(t *testing.T) {
	a1 := From(1, 2, 3)
	data := unsafe.SliceData(a1.Data())

	a2 := a1.Move()
	assert.Equal(t, 0, a1.Len())
	assert.False(t, a1.Allocated())
	assert.Equal(t, 3, a2.Len())
	assert.Equal(t, data, unsafe.SliceData(a2.Data()))

	empty := Null[int]().Move()
	assert.False(t, empty.Allocated())
}

func TestMoveFrom(t *testing.T) {
	alloc := newCountingAllocator()
	src, err := FromSlice([]int64{7, 8}, WithAllocator(alloc))
	require.NoError(t, err)
	dst, err := Zeroed[int64](4, WithAllocator(alloc))
	require.NoError(t, err)
	srcData := unsafe.SliceData(src.Data())

	dst.MoveFrom(src)
	assert.False(t, src.Allocated())
	assert.Equal(t, 0, src.Len())
	assert.Equal(t, []int64{7, 8}, dst.Data())
	assert.Equal(t, srcData, unsafe.SliceData(dst.Data()))
	assert.Equal(t, 1, alloc.totalFrees(), "previous destination block is freed")

	require.NoError(t, dst.Close())
	assert.Equal(t, 2, alloc.totalFrees())
}

func TestMoveFromEmptySource(t *testing.T) {
	dst := From(1, 2)
	var src Array[int]
	dst.MoveFrom(&src)
	assert.False(t, dst.Allocated())
	assert.False(t, src.Allocated())
}

func TestMoveFromLogsFreeFailure(t *testing.T) {
	alloc := newCountingAllocator()
	dst, err := New[uint8](8, WithAllocator(alloc))
	require.NoError(t, err)
	alloc.failFree = true

	dst.MoveFrom(From[uint8](1))
	assert.Equal(t, []uint8{1}, dst.Data())
}

func TestSelfMove(t *testing.T) {
	alloc := newCountingAllocator()
	a, err := FromSlice([]int32{4, 5, 6}, WithAllocator(alloc))
	require.NoError(t, err)
	data := unsafe.SliceData(a.Data())

	a.MoveFrom(a)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, data, unsafe.SliceData(a.Data()))
	assert.Equal(t, []int32{4, 5, 6}, a.Data())
	assert.Zero(t, alloc.totalFrees())
	require.NoError(t, a.Close())
}

func TestSwap(t *testing.T) {
	a := From(1)
	b := From(2, 3)
	a.Swap(b)
	assert.Equal(t, []int{2, 3}, a.Data())
	assert.Equal(t, []int{1}, b.Data())
}

func TestRelease(t *testing.T) {
	a := From(1, 2, 3)
	data := unsafe.SliceData(a.Data())

	p, free := a.Release()
	assert.Equal(t, 0, a.Len())
	assert.False(t, a.Allocated())
	assert.Equal(t, data, unsafe.SliceData(p))
	assert.Equal(t, []int{1, 2, 3}, p)
	assert.NoError(t, free())
}

func TestReleaseEmpty(t *testing.T) {
	var a Array[int]
	p, free := a.Release()
	assert.Nil(t, p)
	assert.NoError(t, free())
}

func TestReleaseHandsOverFree(t *testing.T) {
	alloc := newCountingAllocator()
	a, err := Zeroed[uint16](10, WithAllocator(alloc))
	require.NoError(t, err)

	p, free := a.Release()
	require.Len(t, p, 10)
	require.NoError(t, a.Close())
	assert.Zero(t, alloc.totalFrees(), "release must not free")

	require.NoError(t, free())
	assert.Equal(t, 1, alloc.totalFrees())
}

func TestFreedOnceAcrossMoves(t *testing.T) {
	alloc := newCountingAllocator()
	a1, err := New[uint64](16, WithAllocator(alloc))
	require.NoError(t, err)

	a2 := a1.Move()
	var a3 Array[uint64]
	a3.MoveFrom(a2)

	require.NoError(t, a1.Close())
	require.NoError(t, a2.Close())
	require.NoError(t, a3.Close())
	require.NoError(t, a3.Close())

	assert.Equal(t, 1, alloc.allocs)
	require.Len(t, alloc.frees, 1)
	for _, n := range alloc.frees {
		assert.Equal(t, 1, n)
	}
}

func TestCloseReportsFreeError(t *testing.T) {
	alloc := newCountingAllocator()
	a, err := New[int8](3, WithAllocator(alloc))
	require.NoError(t, err)
	alloc.failFree = true

	assert.Error(t, a.Close())
	assert.False(t, a.Allocated())
	assert.NoError(t, a.Close())
}

func TestAccessors(t *testing.T) {
	a := From(10, 20, 30)
	assert.Equal(t, 20, a.At(1))
	*a.Ptr(2) = 31
	assert.Equal(t, 31, a.At(2))
	assert.Equal(t, Heap, a.Allocator())

	var idx []int
	var vals []int
	for i, v := range a.All() {
		idx = append(idx, i)
		vals = append(vals, v)
	}
	assert.Equal(t, []int{0, 1, 2}, idx)
	assert.Equal(t, []int{10, 20, 31}, vals)

	var first []int
	for v := range a.Values() {
		first = append(first, v)
		break
	}
	assert.Equal(t, []int{10}, first)
}

func TestPtrOnePastEnd(t *testing.T) {
	a := From[int64](1, 2, 3)
	end := a.Ptr(3)
	got := uintptr(unsafe.Pointer(end)) - uintptr(unsafe.Pointer(a.Ptr(0)))
	assert.Equal(t, 3*unsafe.Sizeof(int64(0)), got)
}

func TestSliceProperties(t *testing.T) {
	a := From(0, 1, 2, 3, 4, 5)
	for i := 0; i <= a.Len(); i++ {
		for j := i; j <= a.Len(); j++ {
			v := a.Slice(i, j)
			require.Equal(t, j-i, v.Len())
			for k := range v {
				require.Equal(t, a.At(i+k), v[k])
			}
		}
		assert.Equal(t, a.Slice(0, i), a.Prefix(i))
		assert.Equal(t, a.Slice(i, a.Len()), a.Suffix(i))
	}
}

func TestPointerSlicing(t *testing.T) {
	a := From(0, 1, 2, 3, 4)
	assert.Equal(t, View[int]{1, 2, 3}, a.SliceOf(a.Ptr(1), a.Ptr(4)))
	assert.Equal(t, View[int]{0, 1}, a.PrefixOf(a.Ptr(2)))
	assert.Equal(t, View[int]{3, 4}, a.SuffixOf(a.Ptr(3)))
	assert.Equal(t, View[int]{}, a.SuffixOf(a.Ptr(5)))
}

func TestViewWritesThrough(t *testing.T) {
	a := From(1, 2, 3)
	v := a.Suffix(1)
	v[0] = 20
	assert.Equal(t, []int{1, 20, 3}, a.Data())

	v = append(v, 99)
	assert.Equal(t, View[int]{20, 3, 99}, v)
	assert.Equal(t, []int{1, 20, 3}, a.Data(), "append on a view must not reach the array")
}

func TestSliceOutOfRangePanics(t *testing.T) {
	a := From(1, 2, 3)
	assert.Panics(t, func() { a.Slice(2, 1) })
	assert.Panics(t, func() { a.Slice(0, 4) })
	assert.Panics(t, func() { a.Suffix(-1) })

	other := From(9)
	assert.Panics(t, func() { a.SuffixOf(other.Ptr(0)) })
}
