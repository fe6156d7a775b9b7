// Package verify re-checks a previously generated plain-format prime list
// with the Baillie-PSW composite test. The pass never stops at the first
// failure: every composite or unparseable entry is collected so the caller
// sees the full damage in one report.
package verify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/memes/primes"
	"github.com/memes/primes/pkg/event"
)

const (
	// Minimum interval between progress events.
	progressInterval = 500 * time.Millisecond
	// Emit a log event after this many verified lines.
	logInterval = 10000
)

// Report summarises the outcome of a verification pass.
type Report struct {
	// True when there was no file to verify.
	Missing bool
	// True when the file held no lines.
	Empty bool
	// True when the pass was cancelled before reaching the end.
	Stopped bool
	// Total number of lines in the file.
	Total uint64
	// Number of lines actually checked.
	Checked uint64
	// Every entry that failed verification, in file order: composite values
	// and lines that could not be parsed as a 64-bit integer.
	Composites []string
}

// Ok reports whether the pass completed and found nothing wrong.
func (r *Report) Ok() bool {
	return !r.Missing && !r.Stopped && len(r.Composites) == 0
}

// Verifier re-checks generated output files.
type Verifier struct {
	// The logr.Logger implementation to use
	logger logr.Logger
	// Receiver for run events; nil drops them
	sink event.Sink
}

// Defines the function signature for Verifier options.
type VerifierOption func(*Verifier)

// Use the supplied logger for the verifier.
func WithLogger(l logr.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = l
	}
}

// Deliver run events to the supplied sink.
func WithSink(sink event.Sink) VerifierOption {
	return func(v *Verifier) {
		v.sink = sink
	}
}

// Create a new Verifier and apply any options.
func NewVerifier(options ...VerifierOption) *Verifier {
	verifier := &Verifier{
		logger: logr.Discard(),
	}
	for _, option := range options {
		option(verifier)
	}
	return verifier
}

// Run verifies every line of the plain-format file at path. The file is read
// once up front to establish the progress denominator, then re-read applying
// the Baillie-PSW test to each entry. Terminal states are reported through
// the sink as a VerificationResult (or Stopped) event and returned in the
// Report.
func (v *Verifier) Run(ctx context.Context, path string, token *primes.Token) (*Report, error) {
	if token == nil {
		token = primes.NewToken()
	}
	logger := v.logger.WithValues("path", path)
	report := &Report{}

	stop := context.AfterFunc(ctx, token.Cancel)
	defer stop()

	total, err := countLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.V(1).Info("No output file to verify")
		v.sink.Send(event.Log{Message: fmt.Sprintf("No %s found for verification", path)})
		v.sink.Send(event.VerificationResult{Message: "No file to verify"})
		report.Missing = true
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	report.Total = total
	if total == 0 {
		v.sink.Send(event.VerificationResult{Message: "Empty file"})
		report.Empty = true
		return report, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	lastProgress := time.Time{}
	lines := bufio.NewScanner(file)
	for lines.Scan() {
		if token.Cancelled() {
			logger.V(1).Info("Verification stopped", "checked", report.Checked)
			v.sink.Send(event.Log{Message: "Verification stopped by user"})
			v.sink.Send(event.Stopped{})
			report.Stopped = true
			return report, nil
		}
		entry := strings.TrimSpace(lines.Text())
		n, err := strconv.ParseUint(entry, 10, 64)
		switch {
		case err != nil:
			// Unparseable entries count as failures, never abort the pass.
			report.Composites = append(report.Composites, entry)
		case !primes.IsBPSWPrime(n):
			report.Composites = append(report.Composites, entry)
		}
		report.Checked++
		if time.Since(lastProgress) >= progressInterval {
			lastProgress = time.Now()
			v.sink.Send(event.Progress{Current: report.Checked, Total: total})
		}
		if report.Checked%logInterval == 0 {
			v.sink.Send(event.Log{Message: fmt.Sprintf("Verified %d lines...", report.Checked)})
		}
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	v.sink.Send(event.Progress{Current: total, Total: total})
	if len(report.Composites) == 0 {
		v.sink.Send(event.VerificationResult{Message: "All primes verified as correct"})
	} else {
		v.sink.Send(event.VerificationResult{
			Message: fmt.Sprintf("Found composites: %s", strings.Join(report.Composites, ", ")),
		})
	}
	logger.V(1).Info("Verification complete", "checked", report.Checked, "composites", len(report.Composites))
	return report, nil
}

// countLines returns the number of lines in the file at path.
func countLines(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	var count uint64
	lines := bufio.NewScanner(file)
	for lines.Scan() {
		count++
	}
	if err := lines.Err(); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return count, nil
}
