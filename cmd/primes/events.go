package main

import (
	"github.com/go-logr/logr"
	"github.com/memes/primes/pkg/event"
)

// newLoggingSink adapts run events onto the application logger: terminal
// states and verification results are always visible, progress and per-prime
// detail only at higher verbosity.
func newLoggingSink(logger logr.Logger) event.Sink {
	return func(e event.Event) {
		switch ev := e.(type) {
		case event.Log:
			logger.V(1).Info(ev.Message)
		case event.Progress:
			logger.V(1).Info("Progress", "current", ev.Current, "total", ev.Total)
		case event.ETA:
			logger.V(2).Info("ETA", "remaining", ev.Remaining)
		case event.Found:
			logger.V(2).Info("Found prime", "value", ev.Value, "index", ev.Index)
		case event.Done:
			logger.Info("Run complete")
		case event.Stopped:
			logger.Info("Run stopped before completion")
		case event.VerificationResult:
			logger.Info("Verification result", "message", ev.Message)
		}
	}
}
