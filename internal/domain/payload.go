package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

var errMissing = errors.New("required field missing")

// payload is a decoded JSON object whose keys are tracked as they are read.
// The first extraction failure sticks; later reads return zero values so a
// parser can extract every field and check the error once.
type payload struct {
	root     *payload
	path     string // key prefix for nested objects, e.g. "StationFaction."
	record   string
	fields   map[string]json.RawMessage
	consumed map[string]bool
	children []*payload
	err      error
}

func decodePayload(record string, data []byte) (*payload, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, &MalformedRecordError{Record: record, Err: err}
	}
	p := &payload{record: record, fields: fields, consumed: make(map[string]bool, len(fields))}
	p.root = p
	return p, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("decode object: null")
	}
	return fields, nil
}

// setRecord renames the record in later errors once its identity is known.
func (p *payload) setRecord(record string) { p.root.record = record }

func (p *payload) fail(field string, err error) {
	r := p.root
	if r.err == nil {
		r.err = &MalformedRecordError{Record: r.record, Field: p.path + field, Err: err}
	}
}

// Err returns the first extraction failure.
func (p *payload) Err() error { return p.root.err }

// take consumes every listed key that is present and returns the first
// non-null value in list order. JSON null counts as absent.
func (p *payload) take(names ...string) (json.RawMessage, string, bool) {
	var (
		raw   json.RawMessage
		found string
		ok    bool
	)
	for _, name := range names {
		v, present := p.fields[name]
		if !present {
			continue
		}
		p.consumed[name] = true
		if ok || isNull(v) {
			continue
		}
		raw, found, ok = v, name, true
	}
	return raw, found, ok
}

// discard consumes known keys whose values are not used.
func (p *payload) discard(names ...string) {
	for _, name := range names {
		if _, ok := p.fields[name]; ok {
			p.consumed[name] = true
		}
	}
}

func (p *payload) requiredString(names ...string) string {
	s, ok := p.optional(names...)
	if !ok {
		p.fail(names[0], errMissing)
	}
	return s
}

func (p *payload) stringOr(def string, names ...string) string {
	if s, ok := p.optional(names...); ok {
		return s
	}
	return def
}

// optional returns a non-empty string value and whether one was present.
func (p *payload) optional(names ...string) (string, bool) {
	raw, name, ok := p.take(names...)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		p.fail(name, fmt.Errorf("want string, got %s", raw))
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func (p *payload) requiredInt(names ...string) int64 {
	raw, name, ok := p.take(names...)
	if !ok {
		p.fail(names[0], errMissing)
		return 0
	}
	n, err := coerceInt(raw)
	if err != nil {
		p.fail(name, err)
	}
	return n
}

func (p *payload) requiredFloat(names ...string) float64 {
	raw, name, ok := p.take(names...)
	if !ok {
		p.fail(names[0], errMissing)
		return 0
	}
	f, err := coerceFloat(raw)
	if err != nil {
		p.fail(name, err)
	}
	return f
}

func (p *payload) requiredTime(names ...string) time.Time {
	s := p.requiredString(names...)
	if s == "" {
		return time.Time{}
	}
	t, err := parseTimestamp(s)
	if err != nil {
		p.fail(names[0], err)
	}
	return t
}

// array returns the elements of a JSON array, or nil when the key is absent.
func (p *payload) array(names ...string) []json.RawMessage {
	raw, name, ok := p.take(names...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.fail(name, fmt.Errorf("want array, got %s", raw))
		return nil
	}
	return items
}

// nested decodes an object value as a child payload whose residual keys are
// reported with the given path.
func (p *payload) nested(path string, raw json.RawMessage) *payload {
	child := &payload{root: p.root, path: p.path + path, consumed: map[string]bool{}}
	fields, err := decodeObject(raw)
	if err != nil {
		p.fail(path, err)
		fields = map[string]json.RawMessage{}
	}
	child.fields = fields
	p.root.children = append(p.root.children, child)
	return child
}

// residual lists unconsumed keys of the payload and all nested payloads.
func (p *payload) residual() []string {
	var out []string
	for _, q := range append([]*payload{p.root}, p.root.children...) {
		for key := range q.fields {
			if !q.consumed[key] {
				out = append(out, q.path+key)
			}
		}
	}
	slices.Sort(out)
	return out
}

// complete fails with a SchemaDriftError if any key was left unconsumed.
// Extra drift (vocabulary misses) is reported alongside residual keys.
func (p *payload) complete(extra ...string) error {
	if err := p.Err(); err != nil {
		return err
	}
	fields := append(p.residual(), extra...)
	if len(fields) == 0 {
		return nil
	}
	return &SchemaDriftError{Record: p.root.record, Fields: fields}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// coerceInt accepts JSON numbers and numeric strings. Empty strings are 0,
// which is how the feed encodes an unset demand or stock bracket.
func coerceInt(raw json.RawMessage) (int64, error) {
	s, err := numericText(raw)
	if err != nil || s == "" {
		return 0, err
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("want integer, got %s", raw)
	}
	return int64(f), nil
}

func coerceFloat(raw json.RawMessage) (float64, error) {
	s, err := numericText(raw)
	if err != nil || s == "" {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("want number, got %s", raw)
	}
	return f, nil
}

func numericText(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("want number, got %s", raw)
	}
	switch x := v.(type) {
	case json.Number:
		return x.String(), nil
	case string:
		return strings.TrimSpace(x), nil
	default:
		return "", fmt.Errorf("want number, got %s", raw)
	}
}

// parseTimestamp parses an ISO-8601 UTC timestamp at second precision. Any
// fractional second is stripped before parsing, so 12:00:00.999 is 12:00:00.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		s = s[:i] + s[j:]
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t.UTC(), nil
}
