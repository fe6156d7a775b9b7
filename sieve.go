package primes

import "math/bits"

// Sieve returns the ordered list of primes <= limit using a bit-packed sieve
// of Eratosthenes. It is used to build the base-prime set consumed by
// SieveSegment, so limit is typically Isqrt(high)+1 for the range being
// generated. O(limit log log limit) time, one bit of memory per candidate.
func Sieve(limit uint64) []uint64 {
	mask := newBitmask(limit + 1)
	mask.clear(0)
	if limit >= 1 {
		mask.clear(1)
	}
	root := Isqrt(limit)
	for i := uint64(2); i <= root; i++ {
		if !mask.test(i) {
			continue
		}
		for j := i * i; j <= limit; {
			mask.clear(j)
			next, carry := bits.Add64(j, i, 0)
			if carry != 0 {
				break
			}
			j = next
		}
	}
	primes := make([]uint64, 0, mask.count())
	for i := uint64(2); i <= limit; i++ {
		if mask.test(i) {
			primes = append(primes, i)
		}
	}
	logger.V(2).Info("Sieved base primes", "limit", limit, "count", len(primes))
	return primes
}

// SieveSegment returns the sorted primes in [low, high] by marking composites
// in a window-local mask using the supplied base primes. The base primes must
// cover [2, Isqrt(high)]; with that precondition the union of the outputs
// over any disjoint cover of a range is exactly the primes of that range,
// regardless of where the window boundaries fall.
//
// The token is polled before each base prime, inside the marking loop, and
// during the final scan. On cancellation the function returns nil; callers
// detect the cancelled state through the token, not the return value.
func SieveSegment(basePrimes []uint64, low, high uint64, token *Token) []uint64 {
	size := high - low + 1
	mask := newBitmask(size)
	// 0 and 1 are not prime but are never marked by any base prime.
	if low == 0 {
		mask.clear(0)
		if size > 1 {
			mask.clear(1)
		}
	} else if low == 1 {
		mask.clear(0)
	}

	for _, p := range basePrimes {
		if token.Cancelled() {
			return nil
		}
		carry, square := bits.Mul64(p, p)
		if carry != 0 || square > high {
			// No remaining base prime can mark anything in range.
			break
		}
		// First multiple of p that is >= low; never mark below p*p since
		// smaller composites were eliminated by smaller primes.
		start := low
		if rem := low % p; rem != 0 {
			var c uint64
			start, c = bits.Add64(low, p-rem, 0)
			if c != 0 {
				continue
			}
		}
		if start < square {
			start = square
		}
		for j := start; j <= high; {
			if token.Cancelled() {
				return nil
			}
			mask.clear(j - low)
			next, c := bits.Add64(j, p, 0)
			if c != 0 {
				break
			}
			j = next
		}
	}

	primes := make([]uint64, 0, mask.count())
	for k := uint64(0); k < size; k++ {
		if token.Cancelled() {
			return nil
		}
		if mask.test(k) {
			primes = append(primes, low+k)
		}
	}
	return primes
}
