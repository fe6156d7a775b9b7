// Package generator runs the segmented, parallel sieve over a 64-bit range:
// it builds the base-prime set, fans segments out across a bounded worker
// pool, re-sequences completed segments, and streams them through a single
// writer. Per-segment results are delivered to the writer in ascending range
// order, so the output is fully sorted; this ordering is part of the package
// contract, not an accident of scheduling.
package generator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/memes/primes"
	"github.com/memes/primes/pkg/event"
	"github.com/memes/primes/pkg/stream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	// The default name to use when using OpenTelemetry components.
	OpenTelemetryPackageIdentifier = "pkg.generator"
	// Default window of ten million integers per segment.
	DefaultSegmentSize = 10000000
)

var errInvalidRange = errors.New("range lower bound must not exceed upper bound")

// Generator coordinates one or more sieve runs. The zero value is not usable;
// construct with NewGenerator.
type Generator struct {
	// The logr.Logger implementation to use
	logger logr.Logger
	// Receiver for run events; nil drops them
	sink event.Sink
	// Window length for segment planning
	segmentSize uint64
	// Number of concurrent sieve workers
	workers int
	// A histogram of per-segment sieve durations
	segmentMs metric.Int64Histogram
	// A counter of segments sieved to completion
	segments metric.Int64Counter
	// A counter of primes written to output
	primesFound metric.Int64Counter
}

// Defines the function signature for Generator options.
type GeneratorOption func(*Generator)

// Use the supplied logger for the generator.
func WithLogger(l logr.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = l
	}
}

// Deliver run events to the supplied sink.
func WithSink(s event.Sink) GeneratorOption {
	return func(g *Generator) {
		g.sink = s
	}
}

// Override the default segment window length.
func WithSegmentSize(size uint64) GeneratorOption {
	return func(g *Generator) {
		if size > 0 {
			g.segmentSize = size
		}
	}
}

// Override the default worker count of runtime.NumCPU().
func WithWorkers(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// Create a new Generator and apply any options.
func NewGenerator(options ...GeneratorOption) (*Generator, error) {
	generator := &Generator{
		logger:      logr.Discard(),
		segmentSize: DefaultSegmentSize,
		workers:     runtime.NumCPU(),
	}
	for _, option := range options {
		option(generator)
	}
	var err error
	generator.segmentMs, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Histogram(
		OpenTelemetryPackageIdentifier+".segment_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of segment sieving"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating segmentMs Histogram: %w", err)
	}
	generator.segments, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Counter(
		OpenTelemetryPackageIdentifier+".segments",
		metric.WithDescription("The count of segments sieved to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating segments Counter: %w", err)
	}
	generator.primesFound, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Counter(
		OpenTelemetryPackageIdentifier+".primes_found",
		metric.WithDescription("The count of primes written to output"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating primesFound Counter: %w", err)
	}
	return generator, nil
}

// A sieved segment travelling from a worker to the consumer. index is the
// segment's position in the plan and drives re-sequencing.
type result struct {
	index   int
	segment Segment
	primes  []uint64
}

// Run sieves every prime in [low, high] into the output described by out,
// emitting progress, ETA, and found events along the way. The terminal state
// is a Done event on completion or a Stopped event when the token (or ctx)
// is cancelled before the range is finished. A cancelled run writes no
// partial segment data but cannot be resumed.
func (g *Generator) Run(ctx context.Context, low, high uint64, out stream.Descriptor, token *primes.Token) error {
	if low > high {
		return fmt.Errorf("%w: [%d, %d]", errInvalidRange, low, high)
	}
	if token == nil {
		token = primes.NewToken()
	}
	runID := uuid.New().String()
	logger := g.logger.WithValues("runID", runID, "low", low, "high", high)
	logger.V(1).Info("Starting sieve run", "segmentSize", g.segmentSize, "workers", g.workers)
	g.sink.Send(event.Log{Message: "Running segmented sieve with parallelization"})

	// Propagate context cancellation into the run token so every loop has a
	// single flag to poll.
	stop := context.AfterFunc(ctx, token.Cancel)
	defer stop()

	basePrimes := primes.Sieve(primes.Isqrt(high) + 1)
	plan := Plan(low, high, g.segmentSize)
	logger.V(1).Info("Planned segments", "basePrimes", len(basePrimes), "segments", len(plan))

	writer, err := stream.NewWriter(out, g.sink, token, logger)
	if err != nil {
		return err
	}

	jobs := make(chan result)
	results := make(chan result, g.workers)
	var group errgroup.Group
	for i := 0; i < g.workers; i++ {
		group.Go(func() error {
			for job := range jobs {
				if token.Cancelled() {
					continue
				}
				started := time.Now()
				found := primes.SieveSegment(basePrimes, job.segment.Low, job.segment.High, token)
				if token.Cancelled() {
					// A segment that observed cancellation mid-computation
					// must not deliver a partial result.
					continue
				}
				g.segmentMs.Record(ctx, time.Since(started).Milliseconds())
				job.primes = found
				results <- job
			}
			return nil
		})
	}
	go func() {
		for i, segment := range plan {
			jobs <- result{index: i, segment: segment}
		}
		close(jobs)
	}()
	go func() {
		// Workers never return an error; Wait is used purely to close the
		// delivery channel once the pool drains.
		_ = group.Wait()
		close(results)
	}()

	// Single consumer: re-sequence out-of-order completions so batches reach
	// the writer in ascending segment order.
	progress := newProgressState(high - low + 1)
	pending := make(map[int]result)
	next := 0
	var runErr error
	for r := range results {
		pending[r.index] = r
		for {
			ordered, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if runErr != nil || token.Cancelled() {
				continue
			}
			if err := writer.WriteBatch(ordered.primes); err != nil {
				// I/O failures are fatal to the run; stop the workers too.
				runErr = err
				token.Cancel()
				continue
			}
			progress.add(ordered.segment.Width())
			g.segments.Add(ctx, 1)
			g.primesFound.Add(ctx, int64(len(ordered.primes)))
			g.sink.Send(event.Progress{Current: progress.processed, Total: progress.total})
			g.sink.Send(event.ETA{Remaining: progress.eta()})
		}
	}

	closeErr := writer.Close()
	switch {
	case runErr != nil:
		logger.Error(runErr, "Sieve run failed")
		return runErr
	case closeErr != nil:
		logger.Error(closeErr, "Sieve run failed to finalize output")
		return closeErr
	case token.Cancelled():
		logger.V(1).Info("Sieve run stopped", "primesFound", writer.Count())
		g.sink.Send(event.Stopped{})
		return nil
	}
	g.sink.Send(event.Progress{Current: progress.total, Total: progress.total})
	g.sink.Send(event.ETA{Remaining: "0 hour 0 min 0 sec"})
	g.sink.Send(event.Log{Message: fmt.Sprintf("Finished segmented sieve. Total primes found: %d", writer.Count())})
	g.sink.Send(event.Done{})
	logger.V(1).Info("Sieve run complete", "primesFound", writer.Count())
	return nil
}
