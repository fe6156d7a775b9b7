// Package event defines the protocol between the computational core and
// whatever surface consumes it. Each run emits a stream of events describing
// progress, found primes, and the terminal state; delivery is best-effort and
// a dropped event is never an error.
package event

// Event is the interface implemented by every message kind. The marker method
// keeps the set of variants closed to this package.
type Event interface {
	isEvent()
}

// Log carries a free-form status message.
type Log struct {
	Message string
}

// Progress reports Current units of work completed out of Total.
type Progress struct {
	Current uint64
	Total   uint64
}

// ETA carries a human-readable estimate of the remaining run time.
type ETA struct {
	Remaining string
}

// Found reports a discovered prime. Value is the decimal representation so
// that arbitrary-precision results fit; Index is the 1-based cumulative count
// of primes found so far in the run.
type Found struct {
	Value string
	Index uint64
}

// Done is the terminal event of a run that completed its whole range.
type Done struct{}

// Stopped is the terminal event of a run interrupted by cancellation. It is
// distinct from both Done and an error.
type Stopped struct{}

// VerificationResult carries the outcome summary of a verification pass.
type VerificationResult struct {
	Message string
}

func (Log) isEvent()                {}
func (Progress) isEvent()           {}
func (ETA) isEvent()                {}
func (Found) isEvent()              {}
func (Done) isEvent()               {}
func (Stopped) isEvent()            {}
func (VerificationResult) isEvent() {}

// Sink receives events from a run. A nil Sink is valid and discards
// everything; use Send rather than calling the function directly.
type Sink func(Event)

// Deliver e to the sink, dropping it when no sink is configured.
func (s Sink) Send(e Event) {
	if s != nil {
		s(e)
	}
}
