package owned

import "golang.org/x/sys/unix"

// canLockUnlimited reports whether the process holds CAP_IPC_LOCK, which
// lifts RLIMIT_MEMLOCK.
func canLockUnlimited() bool {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return false
	}
	return data[0].Effective&(1<<unix.CAP_IPC_LOCK) != 0
}
