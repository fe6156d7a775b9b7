// Package scanner iterates an arbitrary-precision range one integer at a
// time, testing each candidate with a configurable-round Miller-Rabin check.
// Ranges beyond 64 bits are not amenable to bit-packed sieving at usable
// sizes, so no segmentation happens here; the trade-off is documented on
// primes.ProbablyPrime. Verdicts can optionally be remembered in a cache so
// that re-scans of overlapping ranges skip the expensive tests.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/memes/primes"
	"github.com/memes/primes/pkg/cache"
	"github.com/memes/primes/pkg/event"
	"github.com/memes/primes/pkg/stream"
)

const (
	// The default number of Miller-Rabin rounds; a composite survives this
	// many rounds with probability below 4^-20.
	DefaultRounds = 20
	// Minimum interval between progress events.
	progressInterval = 250 * time.Millisecond
)

// Cached verdict values.
const (
	VerdictPrime     = "prime"
	VerdictComposite = "composite"
)

var (
	errInvalidRange  = errors.New("range lower bound must not exceed upper bound")
	errNegativeBound = errors.New("range bounds must be non-negative")

	one = big.NewInt(1)
)

// Scanner tests every integer of a range for primality.
type Scanner struct {
	// The logr.Logger implementation to use
	logger logr.Logger
	// Receiver for run events; nil drops them
	sink event.Sink
	// An optional verdict cache implementation
	cache cache.Cache
	// Miller-Rabin round count for values beyond 64 bits
	rounds int
}

// Defines the function signature for Scanner options.
type ScannerOption func(*Scanner)

// Use the supplied logger for the scanner.
func WithLogger(l logr.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = l
	}
}

// Deliver run events to the supplied sink.
func WithSink(sink event.Sink) ScannerOption {
	return func(s *Scanner) {
		s.sink = sink
	}
}

// Use the supplied Cache implementation for verdicts.
func WithCache(c cache.Cache) ScannerOption {
	return func(s *Scanner) {
		if c != nil {
			s.cache = c
		}
	}
}

// Override the default Miller-Rabin round count.
func WithRounds(rounds int) ScannerOption {
	return func(s *Scanner) {
		if rounds > 0 {
			s.rounds = rounds
		}
	}
}

// Create a new Scanner and apply any options.
func NewScanner(options ...ScannerOption) *Scanner {
	scanner := &Scanner{
		logger: logr.Discard(),
		cache:  cache.NewNoopCache(),
		rounds: DefaultRounds,
	}
	for _, option := range options {
		option(scanner)
	}
	return scanner
}

// Run tests every integer in [low, high] and streams the probable primes to
// the output described by out, emitting the same event shapes as the sieve
// path. The token is polled once per candidate, so cancellation latency is
// bounded by a single primality test.
func (s *Scanner) Run(ctx context.Context, low, high *big.Int, out stream.Descriptor, token *primes.Token) error {
	if low.Sign() < 0 || high.Sign() < 0 {
		return errNegativeBound
	}
	if low.Cmp(high) > 0 {
		return fmt.Errorf("%w: [%s, %s]", errInvalidRange, low, high)
	}
	if token == nil {
		token = primes.NewToken()
	}
	runID := uuid.New().String()
	logger := s.logger.WithValues("runID", runID, "low", low.String(), "high", high.String())
	logger.V(1).Info("Starting probabilistic scan", "rounds", s.rounds)
	s.sink.Send(event.Log{Message: "Running Miller-Rabin scan"})

	stop := context.AfterFunc(ctx, token.Cancel)
	defer stop()

	writer, err := stream.NewWriter(out, s.sink, token, logger)
	if err != nil {
		return err
	}

	total := clampUint64(new(big.Int).Sub(high, low))
	started := time.Now()
	lastProgress := time.Time{}
	current := new(big.Int).Set(low)
	offset := new(big.Int)
	for current.Cmp(high) <= 0 {
		if token.Cancelled() {
			if err := writer.Close(); err != nil {
				return err
			}
			logger.V(1).Info("Scan stopped", "primesFound", writer.Count())
			s.sink.Send(event.Stopped{})
			return nil
		}
		if s.isPrime(ctx, logger, current) {
			if err := writer.WriteValue(current.String()); err != nil {
				cerr := writer.Close()
				logger.Error(err, "Scan failed")
				return errors.Join(err, cerr)
			}
		}
		if time.Since(lastProgress) >= progressInterval {
			lastProgress = time.Now()
			processed := clampUint64(offset.Sub(current, low))
			s.sink.Send(event.Progress{Current: processed, Total: total})
			s.sink.Send(event.ETA{Remaining: etaString(started, processed, total)})
		}
		current.Add(current, one)
	}

	if err := writer.Close(); err != nil {
		return err
	}
	s.sink.Send(event.Progress{Current: total, Total: total})
	s.sink.Send(event.ETA{Remaining: "ETA: 0.00 sec"})
	s.sink.Send(event.Log{Message: fmt.Sprintf("Finished Miller-Rabin scan. Total primes found: %d", writer.Count())})
	s.sink.Send(event.Done{})
	logger.V(1).Info("Scan complete", "primesFound", writer.Count())
	return nil
}

// isPrime consults the verdict cache before running the probabilistic test.
// Cache failures are logged and treated as misses; a broken cache must not
// fail the run.
func (s *Scanner) isPrime(ctx context.Context, logger logr.Logger, n *big.Int) bool {
	key := n.String()
	verdict, err := s.cache.GetValue(ctx, key)
	if err != nil {
		logger.V(1).Info("Verdict cache lookup failed", "key", key, "error", err.Error())
		verdict = ""
	}
	switch verdict {
	case VerdictPrime:
		return true
	case VerdictComposite:
		return false
	}
	result := primes.ProbablyPrime(n, s.rounds)
	value := VerdictComposite
	if result {
		value = VerdictPrime
	}
	if err := s.cache.SetValue(ctx, key, value); err != nil {
		logger.V(1).Info("Verdict cache store failed", "key", key, "error", err.Error())
	}
	return result
}

// clampUint64 reduces a non-negative big value to uint64 for progress
// reporting, saturating at the maximum. Progress over wider ranges loses
// precision but stays monotonic.
func clampUint64(n *big.Int) uint64 {
	if n.IsUint64() {
		return n.Uint64()
	}
	return ^uint64(0)
}

func etaString(started time.Time, processed, total uint64) string {
	if processed == 0 || total == 0 {
		return "Calculating..."
	}
	progress := float64(processed) / float64(total)
	elapsed := time.Since(started).Seconds()
	return fmt.Sprintf("ETA: %.2f sec", elapsed*(1/progress-1))
}
