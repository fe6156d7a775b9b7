// Package stream implements the single-consumer output side of a run: it
// formats found primes as plain text, CSV, or JSON, optionally rotating to a
// new file after a configured number of primes, and emits a found-item event
// for every value written. Exactly one Writer owns an output file at a time,
// so no locking is needed around the file or the event sink.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/memes/primes"
	"github.com/memes/primes/pkg/event"
)

const (
	// Size of the write buffer unless overridden by the descriptor.
	DefaultBufferSize = 8 * 1024 * 1024
	DefaultBaseName   = "primes"
)

var errUnknownFormat = errors.New("unknown output format")

// Format selects the on-disk representation of found primes.
type Format int

const (
	// One decimal integer per line.
	FormatPlain Format = iota
	// Comma-joined integers, one line per delivered batch.
	FormatCSV
	// A single top-level JSON array of integers per file.
	FormatJSON
)

// ParseFormat maps a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "plain", "text", "txt":
		return FormatPlain, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatPlain, fmt.Errorf("%w: %q", errUnknownFormat, s)
}

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "plain"
	}
}

// Extension returns the file extension used for output files of this format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// Descriptor configures the destination of a run's output.
type Descriptor struct {
	// Destination directory; empty means the current directory.
	Directory string
	// File name without extension; DefaultBaseName when empty.
	BaseName string
	Format   Format
	// Maximum primes per file before rotating to a new file; 0 disables
	// splitting.
	SplitThreshold uint64
	// Size of the write buffer in bytes; DefaultBufferSize when 0.
	BufferSize int
}

func (d Descriptor) baseName() string {
	if d.BaseName == "" {
		return DefaultBaseName
	}
	return d.BaseName
}

// fileName returns the output path for the index-th file (1-based). Split
// mode appends a zero-padded index so files sort lexically.
func (d Descriptor) fileName(index int) string {
	name := fmt.Sprintf("%s.%s", d.baseName(), d.Format.Extension())
	if d.SplitThreshold > 0 {
		name = fmt.Sprintf("%s_%04d.%s", d.baseName(), index, d.Format.Extension())
	}
	return filepath.Join(d.Directory, name)
}

// Writer is the single consumer that drains delivered prime batches to disk.
// It is not safe for concurrent use.
type Writer struct {
	desc   Descriptor
	logger logr.Logger
	sink   event.Sink
	token  *primes.Token

	file        *os.File
	buf         *bufio.Writer
	fileIndex   int
	inFileCount uint64
	totalCount  uint64
	// JSON comma placement: true until the first element of the current
	// file has been written.
	firstElement bool
	// CSV: the current batch line has at least one value.
	lineOpen bool
	closed   bool
}

// NewWriter creates the destination directory if needed and opens the first
// output file. The token may be nil when cancellation is handled by the
// caller.
func NewWriter(desc Descriptor, sink event.Sink, token *primes.Token, logger logr.Logger) (*Writer, error) {
	if desc.BufferSize <= 0 {
		desc.BufferSize = DefaultBufferSize
	}
	if desc.Directory != "" {
		if err := os.MkdirAll(desc.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", desc.Directory, err)
		}
	}
	w := &Writer{
		desc:   desc,
		logger: logger,
		sink:   sink,
		token:  token,
	}
	if err := w.open(1); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) open(index int) error {
	path := w.desc.fileName(index)
	w.logger.V(1).Info("Opening output file", "path", path)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open output file %s: %w", path, err)
	}
	w.file = file
	w.buf = bufio.NewWriterSize(file, w.desc.BufferSize)
	w.fileIndex = index
	w.inFileCount = 0
	w.firstElement = true
	w.lineOpen = false
	if w.desc.Format == FormatJSON {
		if _, err := w.buf.WriteString("["); err != nil {
			return fmt.Errorf("failed to write to %s: %w", path, err)
		}
	}
	return nil
}

// Count returns the number of primes written so far across all files.
func (w *Writer) Count() uint64 {
	return w.totalCount
}

// WriteBatch appends one delivered batch of primes. Rotation may happen in
// the middle of a batch; a cancellation observed mid-batch stops the write
// early, leaving only complete values on disk.
func (w *Writer) WriteBatch(batch []uint64) error {
	for _, p := range batch {
		if w.token != nil && w.token.Cancelled() {
			return nil
		}
		if err := w.WriteValue(strconv.FormatUint(p, 10)); err != nil {
			return err
		}
	}
	return w.endBatch()
}

// WriteValue appends a single found prime in decimal form. The
// arbitrary-precision scanner uses this directly since its values may exceed
// 64 bits.
func (w *Writer) WriteValue(value string) error {
	switch w.desc.Format {
	case FormatCSV:
		if w.lineOpen {
			if _, err := w.buf.WriteString(","); err != nil {
				return w.writeErr(err)
			}
		}
		if _, err := w.buf.WriteString(value); err != nil {
			return w.writeErr(err)
		}
		w.lineOpen = true
	case FormatJSON:
		if !w.firstElement {
			if _, err := w.buf.WriteString(","); err != nil {
				return w.writeErr(err)
			}
		}
		if _, err := w.buf.WriteString(value); err != nil {
			return w.writeErr(err)
		}
		w.firstElement = false
	default:
		if _, err := w.buf.WriteString(value); err != nil {
			return w.writeErr(err)
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return w.writeErr(err)
		}
	}
	w.inFileCount++
	w.totalCount++
	w.sink.Send(event.Found{Value: value, Index: w.totalCount})
	if w.desc.SplitThreshold > 0 && w.inFileCount >= w.desc.SplitThreshold {
		return w.rotate()
	}
	return nil
}

// endBatch terminates the current CSV line; other formats have no per-batch
// framing.
func (w *Writer) endBatch() error {
	if w.desc.Format == FormatCSV && w.lineOpen {
		if err := w.buf.WriteByte('\n'); err != nil {
			return w.writeErr(err)
		}
		w.lineOpen = false
	}
	return nil
}

// rotate finishes the current file and opens the next one in sequence.
func (w *Writer) rotate() error {
	if err := w.finishFile(); err != nil {
		return err
	}
	return w.open(w.fileIndex + 1)
}

// finishFile closes any open framing, flushes, and closes the current file,
// leaving it independently parseable.
func (w *Writer) finishFile() error {
	switch w.desc.Format {
	case FormatCSV:
		if w.lineOpen {
			if err := w.buf.WriteByte('\n'); err != nil {
				return w.writeErr(err)
			}
			w.lineOpen = false
		}
	case FormatJSON:
		if _, err := w.buf.WriteString("]"); err != nil {
			return w.writeErr(err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return w.writeErr(err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close output file %s: %w", w.file.Name(), err)
	}
	return nil
}

// Close flushes and closes the open output file. It must be called on every
// run path, including cancellation, so that JSON files are properly
// terminated.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.finishFile()
}

func (w *Writer) writeErr(err error) error {
	return fmt.Errorf("failed to write to output file %s: %w", w.file.Name(), err)
}
