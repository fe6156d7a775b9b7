package primes

import (
	"math/big"
	"math/bits"
	"math/rand"
	"time"
)

// The seven witnesses that make the strong probable-prime test deterministic
// for every n < 2^64 (Sinclair's set).
var mrWitnesses64 = [...]uint64{2, 325, 9375, 28178, 450775, 9780504, 1795265022}

// Trial divisors applied before any witness testing.
var trialPrimes = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23}

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// Modular product using a double-width intermediate. Both operands must be
// reduced modulo m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

func addMod(a, b, m uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 || sum >= m {
		sum -= m
	}
	return sum
}

func subMod(a, b, m uint64) uint64 {
	if a >= b {
		return a - b
	}
	return m - b + a
}

// Halve x modulo an odd m without overflowing the addition of m.
func halfMod(x, m uint64) uint64 {
	if x&1 == 1 {
		return x>>1 + m>>1 + 1
	}
	return x >> 1
}

// Iterative binary exponentiation returning base^exp mod m.
func modExp(base, exp, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}

// Split n-1 into d * 2^r with d odd. n must be >= 3 and odd.
func decompose(n uint64) (d uint64, r uint) {
	d = n - 1
	r = uint(bits.TrailingZeros64(d))
	d >>= r
	return d, r
}

// Single-witness strong probable-prime check for odd n > 2 where
// n-1 = d * 2^r. Returns false when a proves n composite.
func millerRabinWitness(n, a, d uint64, r uint) bool {
	x := modExp(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := uint(1); i < r; i++ {
		x = mulMod(x, x, n)
		if x == n-1 {
			return true
		}
	}
	return false
}

// IsPrime64 reports whether n is prime. The result is deterministic for the
// full 64-bit range: trial division handles small factors and the fixed
// witness set is known to be sufficient for every n < 2^64.
func IsPrime64(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range trialPrimes {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}
	d, r := decompose(n)
	for _, a := range mrWitnesses64 {
		if a >= n {
			continue
		}
		if !millerRabinWitness(n, a, d, r) {
			return false
		}
	}
	return true
}

// Jacobi symbol (a/n) for odd positive n, computed by quadratic reciprocity.
// Returns 0 when a and n share a factor.
func jacobi(a int64, n uint64) int {
	if n&1 == 0 {
		return 0
	}
	result := 1
	if a < 0 {
		a = -a
		if n%4 == 3 {
			result = -result
		}
	}
	x := uint64(a) % n
	for x != 0 {
		for x&1 == 0 {
			x >>= 1
			if r := n % 8; r == 3 || r == 5 {
				result = -result
			}
		}
		x, n = n, x
		if x%4 == 3 && n%4 == 3 {
			result = -result
		}
		x %= n
	}
	if n == 1 {
		return result
	}
	return 0
}

// Strong Lucas probable-prime test for odd n > 2 using Selfridge's parameter
// choice: the discriminant D is the first of 5, -7, 9, -11, ... with Jacobi
// symbol (D/n) = -1, then P = 1, Q = (1-D)/4. With n+1 = s * 2^r (s odd), n
// passes when U_s = 0, or V_(s*2^t) = 0 for some t < r. Every prime passes;
// composites that also pass the base-2 strong probable-prime test are not
// known to exist below 2^64.
func lucasProbablePrime(n uint64) bool {
	if n < 2 || n&1 == 0 {
		return n == 2
	}
	// A perfect square has no D with (D/n) = -1; reject it up front so the
	// discriminant search terminates.
	if root := Isqrt(n); root*root == n {
		return false
	}
	d := int64(5)
	for {
		switch jacobi(d, n) {
		case -1:
		case 0:
			// n shares a factor with D: composite unless n is |D| itself.
			return (d >= 0 && n == uint64(d)) || (d < 0 && n == uint64(-d))
		default:
			if d > 0 {
				d = -(d + 2)
			} else {
				d = -(d - 2)
			}
			continue
		}
		break
	}
	q := (1 - d) / 4

	dMod := signedMod(d, n)
	qMod := signedMod(q, n)

	// n+1 = s * 2^r with s odd.
	s := n + 1
	r := uint(bits.TrailingZeros64(s))
	s >>= r

	// Compute U_s, V_s and Q^s by the doubling/halving ladder over the bits
	// of s, starting from U_1 = 1, V_1 = P = 1.
	u, v, qk := uint64(1), uint64(1), qMod
	for i := bits.Len64(s) - 2; i >= 0; i-- {
		// k -> 2k
		u = mulMod(u, v, n)
		v = subMod(mulMod(v, v, n), addMod(qk, qk, n), n)
		qk = mulMod(qk, qk, n)
		if s&(1<<uint(i)) != 0 {
			// 2k -> 2k+1; the halving steps rely on n being odd.
			u, v = halfMod(addMod(u, v, n), n), halfMod(addMod(mulMod(dMod, u, n), v, n), n)
			qk = mulMod(qk, qMod, n)
		}
	}
	if u == 0 || v == 0 {
		return true
	}
	for i := uint(1); i < r; i++ {
		v = subMod(mulMod(v, v, n), addMod(qk, qk, n), n)
		if v == 0 {
			return true
		}
		qk = mulMod(qk, qk, n)
	}
	return false
}

// Reduce a possibly negative value into [0, n).
func signedMod(v int64, n uint64) uint64 {
	if v >= 0 {
		return uint64(v) % n
	}
	rem := uint64(-v) % n
	if rem == 0 {
		return 0
	}
	return n - rem
}

// IsBPSWPrime applies a Baillie-PSW style composite test: the deterministic
// 64-bit Miller-Rabin test combined with an independent strong Lucas check.
// The two tests reject composites through unrelated mechanisms, which makes
// the combination suitable for verifying output that was produced by the
// sieve or by Miller-Rabin alone.
func IsBPSWPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n&1 == 0 {
		return false
	}
	if !IsPrime64(n) {
		return false
	}
	return lucasProbablePrime(n)
}

// ProbablyPrime reports whether n is prime using rounds iterations of the
// Miller-Rabin test with uniformly chosen witnesses in [2, n-2]. Values that
// fit in 64 bits are delegated to IsPrime64 and the answer is exact; beyond
// that the false-positive probability is bounded by 4^-rounds, so a composite
// survives 20 rounds with probability below 10^-12. Primes are never
// misclassified.
func ProbablyPrime(n *big.Int, rounds int) bool {
	if n.Cmp(two) < 0 {
		return false
	}
	if n.Cmp(two) == 0 {
		return true
	}
	if n.Bit(0) == 0 {
		return false
	}
	if n.IsUint64() {
		return IsPrime64(n.Uint64())
	}
	if rounds < 1 {
		rounds = 1
	}

	nm1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nm1)
	var r uint
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		r++
	}
	// Witnesses are drawn from [2, n-2].
	span := new(big.Int).Sub(n, three)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	a := new(big.Int)
	x := new(big.Int)
	for i := 0; i < rounds; i++ {
		a.Rand(rnd, span)
		a.Add(a, two)
		if !millerRabinWitnessBig(n, a, d, r, nm1, x) {
			return false
		}
	}
	return true
}

// Single-witness strong probable-prime check over big integers; x is scratch
// space reused between rounds.
func millerRabinWitnessBig(n, a, d *big.Int, r uint, nm1, x *big.Int) bool {
	x.Exp(a, d, n)
	if x.Cmp(one) == 0 || x.Cmp(nm1) == 0 {
		return true
	}
	for i := uint(1); i < r; i++ {
		x.Mul(x, x)
		x.Mod(x, n)
		if x.Cmp(nm1) == 0 {
			return true
		}
		if x.Cmp(one) == 0 {
			return false
		}
	}
	return false
}
