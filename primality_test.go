package primes

import (
	"fmt"
	"math/big"
	"testing"
)

// Composites that pass the strong probable-prime test for at least one small
// base; primality tests must still reject them.
var strongPseudoprimes = []uint64{
	2047,       // 23 * 89, base-2 pseudoprime
	3215031751, // 151 * 751 * 28351, pseudoprime to bases 2, 3, 5 and 7
	3825123056546413051,
}

var mersennePrimes = []uint64{
	1<<13 - 1,
	1<<17 - 1,
	1<<19 - 1,
	1<<31 - 1,
	1<<61 - 1,
}

func TestIsPrime64Small(t *testing.T) {
	t.Parallel()
	sieved := Sieve(100000)
	expected := make(map[uint64]bool, len(sieved))
	for _, p := range sieved {
		expected[p] = true
	}
	for n := uint64(0); n <= 100000; n++ {
		if actual := IsPrime64(n); actual != expected[n] {
			t.Errorf("IsPrime64(%d): expected %t got %t", n, expected[n], actual)
		}
	}
}

func TestIsPrime64StrongPseudoprimes(t *testing.T) {
	t.Parallel()
	for _, n := range strongPseudoprimes {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()
			if IsPrime64(n) {
				t.Errorf("IsPrime64(%d): strong pseudoprime reported as prime", n)
			}
		})
	}
}

func TestIsPrime64Mersenne(t *testing.T) {
	t.Parallel()
	for _, n := range mersennePrimes {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()
			if !IsPrime64(n) {
				t.Errorf("IsPrime64(%d): Mersenne prime reported as composite", n)
			}
		})
	}
}

func TestJacobi(t *testing.T) {
	t.Parallel()
	cases := []struct {
		a        int64
		n        uint64
		expected int
	}{
		{1, 1, 1},
		{2, 3, -1},
		{2, 7, 1},
		{3, 5, -1},
		{5, 5, 0},
		{-1, 3, -1},
		{-1, 5, 1},
		{5, 9, 1},
		{-7, 9, 1},
		{1001, 9907, -1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("a=%d,n=%d", tc.a, tc.n), func(t *testing.T) {
			t.Parallel()
			if actual := jacobi(tc.a, tc.n); actual != tc.expected {
				t.Errorf("jacobi(%d, %d): expected %d got %d", tc.a, tc.n, tc.expected, actual)
			}
		})
	}
}

// The strong Lucas test must accept every prime and reject perfect squares,
// which have no discriminant with Jacobi symbol -1.
func TestLucasProbablePrime(t *testing.T) {
	t.Parallel()
	for _, p := range Sieve(10000) {
		if !lucasProbablePrime(p) {
			t.Errorf("lucasProbablePrime(%d): prime reported as composite", p)
		}
	}
	for _, n := range []uint64{9, 25, 49, 121, 169, 3481, 5329} {
		if lucasProbablePrime(n) {
			t.Errorf("lucasProbablePrime(%d): perfect square reported as probable prime", n)
		}
	}
}

// BPSW must agree with the deterministic test across a contiguous range and
// on the known strong pseudoprimes.
func TestIsBPSWPrime(t *testing.T) {
	t.Parallel()
	for n := uint64(0); n <= 20000; n++ {
		if IsBPSWPrime(n) != IsPrime64(n) {
			t.Errorf("IsBPSWPrime(%d) disagrees with IsPrime64", n)
		}
	}
	for _, n := range strongPseudoprimes {
		if IsBPSWPrime(n) {
			t.Errorf("IsBPSWPrime(%d): strong pseudoprime reported as prime", n)
		}
	}
	for _, n := range mersennePrimes {
		if !IsBPSWPrime(n) {
			t.Errorf("IsBPSWPrime(%d): Mersenne prime reported as composite", n)
		}
	}
}

func TestProbablyPrime(t *testing.T) {
	t.Parallel()
	cases := []struct {
		value    string
		expected bool
	}{
		{"0", false},
		{"1", false},
		{"2", true},
		{"3", true},
		{"4", false},
		{"2305843009213693951", true},  // 2^61 - 1
		{"3215031751", false},          // strong pseudoprime to the first four prime bases
		{"18446744073709551629", true}, // smallest prime above 2^64
		{"18446744073709551617", false},
		// 2^89 - 1, a Mersenne prime well beyond the deterministic range.
		{"618970019642690137449562111", true},
		// 2^89 + 1 = 3 * 179 * 62020897 * 18584774046020617.
		{"618970019642690137449562113", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("n=%s", tc.value), func(t *testing.T) {
			t.Parallel()
			n, ok := new(big.Int).SetString(tc.value, 10)
			if !ok {
				t.Fatalf("failed to parse %s", tc.value)
			}
			if actual := ProbablyPrime(n, 20); actual != tc.expected {
				t.Errorf("ProbablyPrime(%s, 20): expected %t got %t", tc.value, tc.expected, actual)
			}
		})
	}
}

func BenchmarkIsPrime64(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = IsPrime64(1<<61 - 1)
	}
}

func BenchmarkIsBPSWPrime(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = IsBPSWPrime(1<<61 - 1)
	}
}
