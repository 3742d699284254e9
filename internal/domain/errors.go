package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyOutput is returned when a run produces no merged records. An empty
// result means the join is broken (e.g. every snapshot fell outside the
// tolerance), so it is never written as an empty file.
var ErrEmptyOutput = errors.New("no merged records produced")

// SchemaDriftError reports fields or vocabulary values a parser did not
// account for.
type SchemaDriftError struct {
	Record string   // e.g. "journal Sol/Abraham Lincoln"
	Fields []string // residual keys, or "economy:<name>" / "service:<name>"
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift in %s: unhandled fields [%s]", e.Record, strings.Join(e.Fields, ", "))
}

// MalformedRecordError reports a field that is missing or cannot be coerced.
type MalformedRecordError struct {
	Record string
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s: %v", e.Record, e.Err)
	}
	return fmt.Sprintf("malformed %s: field %s: %v", e.Record, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// ReferenceDataMissingError reports a matched commodity event whose system has
// no reference attributes.
type ReferenceDataMissingError struct {
	System string
}

func (e *ReferenceDataMissingError) Error() string {
	return fmt.Sprintf("no reference data for system %q", e.System)
}

// LineError ties a parse failure to its position in the event log.
type LineError struct {
	Line    int
	Content string
	Err     error
}

// maxLineContent bounds how much of an offending line is echoed in errors.
const maxLineContent = 256

// NewLineError wraps err with the line number and a truncated copy of the line.
func NewLineError(line int, raw []byte, err error) *LineError {
	content := string(raw)
	if len(content) > maxLineContent {
		content = content[:maxLineContent] + "..."
	}
	return &LineError{Line: line, Content: content, Err: err}
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Content)
}

func (e *LineError) Unwrap() error { return e.Err }
