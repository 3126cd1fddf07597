// Package safeconv provides safe integer type conversion functions that panic on overflow.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustUintToInt converts uint to int, panics on overflow.
// Tree-sitter rows and columns are uint; they never exceed the source length.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// ClampIntToUint32 converts int to uint32, clamping negatives to 0 and large values to MaxUint32.
// LSP positions are uint32 and a clamped position is still a valid position.
func ClampIntToUint32(v int) uint32 {
	if v < 0 {
		return 0
	}

	if uint64(v) > uint64(MaxUint32) {
		return MaxUint32
	}

	return uint32(v)
}
