// Package sizing provides overflow-checked size arithmetic for archive offsets.
package sizing

import (
	"math"
)

// ToInt converts an int64 length to int, returning overflowErr if it is
// negative or does not fit.
func ToInt(size int64, overflowErr error) (int, error) {
	if size < 0 || uint64(size) > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// AddInt64 adds two non-negative int64 values, returning (result, false) on overflow.
func AddInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// MulUint32 multiplies two uint32 values, returning (result, false) when the
// product does not fit in an int64.
func MulUint32(a, b uint32) (int64, bool) {
	p := uint64(a) * uint64(b)
	if p > math.MaxInt64 {
		return 0, false
	}
	return int64(p), true
}

// FitsUint32 reports whether n can be stored in a 32-bit length field.
func FitsUint32(n int) bool {
	return n >= 0 && uint64(n) <= math.MaxUint32
}
