// Package eventlog reads the append-only JSON-lines log written by the feed
// collector.
package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/station-market-etl/internal/adapter/fileio"
	"github.com/couchcryptid/station-market-etl/internal/domain"
)

// maxLineSize bounds a single log line. Large market snapshots run to a few
// hundred kilobytes.
const maxLineSize = 16 << 20

// Reader yields log lines in order as raw events.
// It implements pipeline.Extractor.
type Reader struct {
	rc      io.Closer
	scanner *bufio.Scanner
	line    int
	logger  *slog.Logger
}

// Open opens the event log at path (gzip allowed).
func Open(path string, logger *slog.Logger) (*Reader, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	r := NewReader(rc, logger)
	r.rc = rc
	return r, nil
}

// NewReader reads events from r. Close does not close r.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner, logger: logger}
}

// Extract returns the next non-blank line decoded as an envelope, or io.EOF
// once the log is exhausted. Envelope failures carry the line number.
func (r *Reader) Extract(ctx context.Context) (domain.RawEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.RawEvent{}, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return domain.RawEvent{}, fmt.Errorf("read event log after line %d: %w", r.line, err)
			}
			return domain.RawEvent{}, io.EOF
		}
		r.line++

		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		// The scanner reuses its buffer; events outlive the next Scan.
		raw = bytes.Clone(raw)

		event, err := domain.ParseEnvelope(r.line, raw)
		if err != nil {
			return domain.RawEvent{}, domain.NewLineError(r.line, raw, err)
		}
		return event, nil
	}
}

// Lines returns the number of lines read so far, blank ones included.
func (r *Reader) Lines() int { return r.line }

// Close releases the underlying file, if the Reader opened it.
func (r *Reader) Close() error {
	if r.rc == nil {
		return nil
	}
	r.logger.Debug("event log closed", "lines", r.line)
	return r.rc.Close()
}
