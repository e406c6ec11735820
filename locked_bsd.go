//go:build unix && !linux

package owned

func canLockUnlimited() bool { return false }
