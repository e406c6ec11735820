package owned

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/awnumar/memcall"
	"github.com/awnumar/memguard"
)

// Locked hands out memory that is mlocked so it never reaches swap, sits
// between two inaccessible guard pages and is wiped when freed.
//
// All Locked allocators in the process draw on one budget: the soft
// RLIMIT_MEMLOCK less lockHeadroom pages left for memguard enclaves and
// other lockers. Requests beyond it fail with ErrOutOfMemory before mlock
// is attempted. Processes holding CAP_IPC_LOCK are not limited by the
// kernel and skip the check. If mlock itself fails, only that request
// fails; blocks already handed out stay mapped.
//
// Safe for concurrent use.
type Locked struct {
	mu   sync.Mutex
	live map[*byte]lockedRegion
}

// lockedRegion is one mapping: guard page, locked pages, guard page.
type lockedRegion struct {
	memory []byte
	inner  []byte
}

// lockHeadroom is the number of pages of RLIMIT_MEMLOCK never handed out.
const lockHeadroom = 16

var lockBudget struct {
	mu   sync.Mutex
	used uint64 // bytes, page rounded
}

// mlock locks a region into RAM. Tests swap it to simulate kernel refusal.
var mlock = memcall.Lock

// NewLocked returns a Locked allocator.
func NewLocked() *Locked {
	return &Locked{live: make(map[*byte]lockedRegion)}
}

// Allocate returns size bytes of locked memory.
func (l *Locked) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	if size == 0 {
		return nil, nil
	}
	pages := lockedFootprint(size)
	if err := reserveLocked(pages); err != nil {
		return nil, err
	}
	r, err := mapLocked(int(pages))
	if err != nil {
		releaseLocked(pages)
		return nil, err
	}

	l.mu.Lock()
	l.live[&r.inner[0]] = r
	l.mu.Unlock()
	return r.inner[:size], nil
}

// Free wipes, unlocks and unmaps a block returned by Allocate.
func (l *Locked) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	key := &b[:1][0]
	l.mu.Lock()
	r, ok := l.live[key]
	if !ok {
		l.mu.Unlock()
		return ErrUnknownBlock
	}
	delete(l.live, key)
	l.mu.Unlock()

	releaseLocked(uint64(len(r.inner)))
	if err := r.destroy(); err != nil {
		return fmt.Errorf("owned: free locked block: %w", err)
	}
	return nil
}

// Live returns the number of blocks not yet freed.
func (l *Locked) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// Purge destroys every live block of this allocator. Arrays still holding
// one must not be used afterwards. Other Locked allocators are untouched.
func (l *Locked) Purge() {
	l.mu.Lock()
	regions := l.live
	l.live = make(map[*byte]lockedRegion)
	l.mu.Unlock()

	for _, r := range regions {
		releaseLocked(uint64(len(r.inner)))
		_ = r.destroy()
	}
}

// mapLocked maps n locked bytes (a page multiple) between two guard pages.
func mapLocked(n int) (lockedRegion, error) {
	page := os.Getpagesize()
	memory, err := memcall.Alloc(n + 2*page)
	if err != nil {
		return lockedRegion{}, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	r := lockedRegion{memory: memory, inner: memory[page : page+n : page+n]}

	if err := memcall.Protect(memory[:page], memcall.NoAccess()); err != nil {
		_ = memcall.Free(memory)
		return lockedRegion{}, fmt.Errorf("owned: guard page: %w", err)
	}
	if err := memcall.Protect(memory[page+n:], memcall.NoAccess()); err != nil {
		_ = memcall.Free(memory)
		return lockedRegion{}, fmt.Errorf("owned: guard page: %w", err)
	}
	if err := mlock(r.inner); err != nil {
		_ = memcall.Free(memory)
		return lockedRegion{}, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return r, nil
}

func (r lockedRegion) destroy() error {
	memguard.WipeBytes(r.inner)
	return errors.Join(memcall.Unlock(r.inner), memcall.Free(r.memory))
}

// reserveLocked books n bytes against the process-wide lock budget.
func reserveLocked(n uint64) error {
	lockBudget.mu.Lock()
	defer lockBudget.mu.Unlock()
	if limit, ok := lockLimit(); ok {
		headroom := lockHeadroom * uint64(os.Getpagesize())
		if limit < headroom || lockBudget.used+n > limit-headroom {
			return fmt.Errorf("%w: mlock limit %d bytes, %d locked, %d requested",
				ErrOutOfMemory, limit, lockBudget.used, n)
		}
	}
	lockBudget.used += n
	return nil
}

func releaseLocked(n uint64) {
	lockBudget.mu.Lock()
	lockBudget.used -= n
	lockBudget.mu.Unlock()
}

// lockedInUse returns the bytes currently booked by all Locked allocators.
func lockedInUse() uint64 {
	lockBudget.mu.Lock()
	defer lockBudget.mu.Unlock()
	return lockBudget.used
}

// lockedFootprint is the number of locked bytes behind a block of size.
func lockedFootprint(size int) uint64 {
	page := uint64(os.Getpagesize())
	return (uint64(size) + page - 1) / page * page
}
