// Package safeconv provides integer conversions that panic on overflow.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// Signed is the set of signed integer types accepted by the converters.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// MustToUint64 converts a non-negative count or size to uint64, panics if negative.
// Use only when negative values are logically impossible.
func MustToUint64[T Signed](v T) uint64 {
	if v < 0 {
		panic("safeconv: negative value to uint64 conversion")
	}

	return uint64(v)
}

// MustUint64ToInt converts uint64 to int, panics on overflow.
func MustUint64ToInt(v uint64) int {
	if v > uint64(MaxInt) {
		panic("safeconv: uint64 to int overflow")
	}

	return int(v)
}

// MustUint64ToInt64 converts uint64 to int64, panics on overflow.
func MustUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		panic("safeconv: uint64 to int64 overflow")
	}

	return int64(v)
}

// Abs returns the magnitude of v as uint64. It is defined for math.MinInt64.
func Abs[T Signed](v T) uint64 {
	if v >= 0 {
		return uint64(v)
	}

	return uint64(-(v + 1)) + 1
}
