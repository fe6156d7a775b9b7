package primes

import "math/bits"

// Isqrt returns the largest integer r such that r*r <= n. The binary search
// uses an overflow-checked multiply so that midpoints whose square exceeds
// 64 bits are treated as too large rather than wrapping.
func Isqrt(n uint64) uint64 {
	low, high := uint64(0), n
	for low <= high {
		mid := low + (high-low)/2
		carry, square := bits.Mul64(mid, mid)
		switch {
		case carry == 0 && square == n:
			return mid
		case carry == 0 && square < n:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return high
}
