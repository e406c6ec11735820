//go:build linux

package owned

import "golang.org/x/sys/unix"

const hugePageFlag = unix.MAP_HUGETLB
