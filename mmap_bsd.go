//go:build unix && !linux

package owned

const hugePageFlag = 0
