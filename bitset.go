package primes

import "math/bits"

const wordBits = 64

// bitmask is a fixed-size bit array with one bit per integer offset. It backs
// both the base sieve and the per-segment masks; a set bit means "not yet
// proven composite". Each mask is owned by exactly one goroutine.
type bitmask struct {
	words []uint64
	size  uint64
}

// Allocate a mask of size bits with every bit set.
func newBitmask(size uint64) *bitmask {
	words := make([]uint64, (size+wordBits-1)/wordBits)
	for i := range words {
		words[i] = ^uint64(0)
	}
	return &bitmask{words: words, size: size}
}

func (m *bitmask) clear(i uint64) {
	m.words[i/wordBits] &^= 1 << (i % wordBits)
}

func (m *bitmask) test(i uint64) bool {
	return m.words[i/wordBits]&(1<<(i%wordBits)) != 0
}

// Number of set bits in the mask; bits beyond size are never set by clear so
// the tail of the last word is masked off here.
func (m *bitmask) count() uint64 {
	if m.size == 0 {
		return 0
	}
	var total uint64
	for _, w := range m.words[:len(m.words)-1] {
		total += uint64(bits.OnesCount64(w))
	}
	last := m.words[len(m.words)-1]
	if rem := m.size % wordBits; rem != 0 {
		last &= (1 << rem) - 1
	}
	return total + uint64(bits.OnesCount64(last))
}
