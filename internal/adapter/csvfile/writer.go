// Package csvfile writes merged records to a flat CSV file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/couchcryptid/station-market-etl/internal/domain"
)

// Writer writes each run's records to a fixed path.
// It implements pipeline.Loader.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer targeting path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Name identifies the sink in metrics and logs.
func (w *Writer) Name() string { return "csv" }

// Load writes records to the configured path, replacing any previous file.
func (w *Writer) Load(_ context.Context, records []domain.MergedRecord) error {
	if err := Write(records, w.path); err != nil {
		return err
	}
	w.logger.Info("output written", "path", w.path, "records", len(records))
	return nil
}

// Write serializes records to path. The header is the first record's field
// order and every record must carry exactly that field set. Records are
// checked before the file is touched and the file is renamed into place, so
// a failed write leaves no partial output.
func Write(records []domain.MergedRecord, path string) (err error) {
	if len(records) == 0 {
		return domain.ErrEmptyOutput
	}
	header := records[0].Names()
	for i := 1; i < len(records); i++ {
		if !slices.Equal(records[i].Names(), header) {
			return fmt.Errorf("write output: record %d field set differs from header", i+1)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err := Encode(f, header, records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Encode writes header and record values as CSV to w.
func Encode(w io.Writer, header []string, records []domain.MergedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
