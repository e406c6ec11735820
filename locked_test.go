package owned

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedOrSkip allocates from l and skips when the environment refuses to
// lock memory.
func lockedOrSkip(t *testing.T, l *Locked, size int) []byte {
	t.Helper()
	b, err := l.Allocate(size)
	if errors.Is(err, ErrOutOfMemory) {
		t.Skipf("cannot lock memory here: %v", err)
	}
	require.NoError(t, err)
	return b
}

func TestLockedAllocateFree(t *testing.T) {
	l := NewLocked()

	b := lockedOrSkip(t, l, 100)
	assert.Len(t, b, 100)
	b[0], b[99] = 1, 2
	assert.Equal(t, 1, l.Live())

	require.NoError(t, l.Free(b))
	assert.Zero(t, l.Live())
	assert.ErrorIs(t, l.Free(b), ErrUnknownBlock)
}

func TestLockedRejectsForeignBlocks(t *testing.T) {
	l := NewLocked()
	assert.ErrorIs(t, l.Free(make([]byte, 8)), ErrUnknownBlock)
	assert.NoError(t, l.Free(nil))

	b, err := l.Allocate(0)
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = l.Allocate(-3)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestLockedArrays(t *testing.T) {
	l := NewLocked()
	lockedOrSkip(t, l, 1)
	l.Purge()

	key, err := FromSlice([]byte("secret key material"), WithAllocator(l))
	require.NoError(t, err)
	assert.Equal(t, "secret key material", string(key.Data()))
	assert.Equal(t, 1, l.Live())

	require.NoError(t, key.Close())
	assert.Zero(t, l.Live())
}

func TestLockedPurge(t *testing.T) {
	l := NewLocked()
	lockedOrSkip(t, l, 32)
	lockedOrSkip(t, l, 64)
	assert.Equal(t, 2, l.Live())

	l.Purge()
	assert.Zero(t, l.Live())
}

func TestLockedFootprint(t *testing.T) {
	page := lockedFootprint(1)
	assert.NotZero(t, page)
	assert.Equal(t, page, lockedFootprint(int(page)))
	assert.Equal(t, 2*page, lockedFootprint(int(page)+1))
}

func TestLockedMlockFailureLeavesOtherBlocks(t *testing.T) {
	l1 := NewLocked()
	b := lockedOrSkip(t, l1, 64)
	b[0], b[63] = 7, 9

	saved := mlock
	mlock = func([]byte) error { return errors.New("mlock: resource temporarily unavailable") }
	t.Cleanup(func() { mlock = saved })

	l2 := NewLocked()
	before := lockedInUse()
	_, err := l2.Allocate(4096)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, before, lockedInUse(), "a failed request gives its reservation back")
	assert.Zero(t, l2.Live())

	assert.Equal(t, byte(7), b[0])
	assert.Equal(t, byte(9), b[63])
	assert.Equal(t, 1, l1.Live())

	mlock = saved
	require.NoError(t, l1.Free(b))
	assert.Equal(t, before-lockedFootprint(64), lockedInUse())
}

func TestLockedPurgeIsPerAllocator(t *testing.T) {
	l1, l2 := NewLocked(), NewLocked()
	keep := lockedOrSkip(t, l1, 16)
	keep[0] = 5
	lockedOrSkip(t, l2, 16)

	l2.Purge()
	assert.Zero(t, l2.Live())
	assert.Equal(t, 1, l1.Live())
	assert.Equal(t, byte(5), keep[0])
	require.NoError(t, l1.Free(keep))
}
