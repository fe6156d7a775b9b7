package scanner_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/memes/primes"
	"github.com/memes/primes/pkg/cache"
	"github.com/memes/primes/pkg/event"
	"github.com/memes/primes/pkg/scanner"
	"github.com/memes/primes/pkg/stream"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Error reading output: %v", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestScannerSmallRange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var done bool
	sink := event.Sink(func(e event.Event) {
		if _, ok := e.(event.Done); ok {
			done = true
		}
	})
	s := scanner.NewScanner(scanner.WithSink(sink), scanner.WithRounds(10))
	err := s.Run(context.Background(), big.NewInt(0), big.NewInt(100), stream.Descriptor{Directory: dir}, nil)
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if !done {
		t.Error("Run did not emit a Done event")
	}
	expected := []string{
		"2", "3", "5", "7", "11", "13", "17", "19", "23", "29", "31", "37",
		"41", "43", "47", "53", "59", "61", "67", "71", "73", "79", "83", "89", "97",
	}
	actual := readLines(t, filepath.Join(dir, "primes.txt"))
	if len(actual) != len(expected) {
		t.Fatalf("Expected %d primes got %d", len(expected), len(actual))
	}
	for i := range expected {
		if actual[i] != expected[i] {
			t.Errorf("Index %d: expected %s got %s", i, expected[i], actual[i])
		}
	}
}

// A narrow window beyond 64 bits must pick out exactly the known Mersenne
// prime 2^89 - 1.
func TestScannerBeyond64Bits(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	low, _ := new(big.Int).SetString("618970019642690137449562101", 10)
	high, _ := new(big.Int).SetString("618970019642690137449562121", 10)
	s := scanner.NewScanner(scanner.WithRounds(10))
	if err := s.Run(context.Background(), low, high, stream.Descriptor{Directory: dir}, nil); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	actual := readLines(t, filepath.Join(dir, "primes.txt"))
	if len(actual) != 1 || actual[0] != "618970019642690137449562111" {
		t.Errorf("Expected exactly 2^89-1, got %v", actual)
	}
}

func TestScannerInvalidRange(t *testing.T) {
	t.Parallel()
	s := scanner.NewScanner()
	if err := s.Run(context.Background(), big.NewInt(10), big.NewInt(2), stream.Descriptor{Directory: t.TempDir()}, nil); err == nil {
		t.Error("Run with inverted range did not return an error")
	}
	if err := s.Run(context.Background(), big.NewInt(-1), big.NewInt(2), stream.Descriptor{Directory: t.TempDir()}, nil); err == nil {
		t.Error("Run with negative bound did not return an error")
	}
}

func TestScannerCancellation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	token := primes.NewToken()
	token.Cancel()
	var stopped, done bool
	sink := event.Sink(func(e event.Event) {
		switch e.(type) {
		case event.Stopped:
			stopped = true
		case event.Done:
			done = true
		}
	})
	s := scanner.NewScanner(scanner.WithSink(sink))
	if err := s.Run(context.Background(), big.NewInt(2), big.NewInt(1000), stream.Descriptor{Directory: dir}, token); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if !stopped {
		t.Error("Run did not emit a Stopped event")
	}
	if done {
		t.Error("Cancelled run emitted a Done event")
	}
	if actual := readLines(t, filepath.Join(dir, "primes.txt")); len(actual) != 0 {
		t.Errorf("Cancelled run wrote %d values", len(actual))
	}
}

// Verdicts must round-trip through the Redis cache so a second run over the
// same range is served from it.
func TestScannerWithRedisCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	verdicts := cache.NewRedisCache(ctx, mock.Addr())
	s := scanner.NewScanner(scanner.WithCache(verdicts), scanner.WithRounds(5))

	first := t.TempDir()
	if err := s.Run(ctx, big.NewInt(2), big.NewInt(50), stream.Descriptor{Directory: first}, nil); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if verdict, err := mock.Get("7"); err != nil || verdict != scanner.VerdictPrime {
		t.Errorf("Expected cached verdict %q for 7, got %q (err %v)", scanner.VerdictPrime, verdict, err)
	}
	if verdict, err := mock.Get("9"); err != nil || verdict != scanner.VerdictComposite {
		t.Errorf("Expected cached verdict %q for 9, got %q (err %v)", scanner.VerdictComposite, verdict, err)
	}

	// Poison one cached verdict; a second run must trust the cache.
	if err := mock.Set("10", scanner.VerdictPrime); err != nil {
		t.Fatalf("Error seeding miniredis: %v", err)
	}
	second := t.TempDir()
	if err := s.Run(ctx, big.NewInt(2), big.NewInt(50), stream.Descriptor{Directory: second}, nil); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	var sawTen bool
	for _, line := range readLines(t, filepath.Join(second, "primes.txt")) {
		if line == "10" {
			sawTen = true
		}
	}
	if !sawTen {
		t.Error("Second run did not use the cached verdict for 10")
	}
}
