package primes

import "sync/atomic"

// Token is a cooperative cancellation flag shared between the components of a
// single run. Producers poll Cancelled inside their loops and stop emitting
// new work once it returns true; the controlling caller requests a stop with
// Cancel. A Token is scoped to one run and must not be reused by the next.
type Token struct {
	cancelled atomic.Bool
}

// Create a new cancellation token in the un-cancelled state.
func NewToken() *Token {
	return &Token{}
}

// Request cancellation. Safe to call from any goroutine, and more than once.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Reports whether cancellation has been requested. Never blocks.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}
