//go:build unix

package owned

import "golang.org/x/sys/unix"

// lockLimit returns the soft RLIMIT_MEMLOCK in bytes. ok is false when the
// limit is infinite, unknown or does not apply to this process.
func lockLimit() (limit uint64, ok bool) {
	if canLockUnlimited() {
		return 0, false
	}
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		return 0, false
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return 0, false
	}
	return uint64(rlimit.Cur), true
}
