// Package bitint holds the power-of-two helpers used to size analyser
// buffers. All functions are constant time and never allocate.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Values <= 0 map to 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	// size-1 keeps exact powers of two from doubling.
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns log2(n) for a power of two n, and -1 otherwise.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}

// ClampPowerOfTwo rounds n up to a power of two and bounds it to [lo, hi].
// lo and hi must themselves be powers of two.
func ClampPowerOfTwo(n, lo, hi int) int {
	p := NextPowerOfTwo(n)
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
