// Package primes implements the computational core of a prime number
// generator: a bit-packed sieve of Eratosthenes, a segmented sieve suitable
// for data-parallel execution over large ranges, and primality tests for
// 64-bit and arbitrary-precision integers (deterministic Miller-Rabin,
// probabilistic Miller-Rabin, and a Baillie-PSW composite test).
package primes

import (
	"github.com/go-logr/logr"
)

var (
	// Logger to use in this package; default is a no-op logger.
	logger = logr.Discard()
)

// Change the logger instance used by this package.
func SetLogger(l logr.Logger) {
	logger = l
}
