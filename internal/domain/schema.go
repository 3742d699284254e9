package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a log line by its schema identifier.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindCommodity
	KindJournal
)

func (k Kind) String() string {
	switch k {
	case KindCommodity:
		return "commodity"
	case KindJournal:
		return "journal"
	default:
		return "unrecognized"
	}
}

// ClassifySchema matches the schema URI by substring, so schema version bumps
// (commodity/3 → commodity/4) keep routing to the same parser.
func ClassifySchema(schemaRef string) Kind {
	ref := strings.ToLower(schemaRef)
	switch {
	case strings.Contains(ref, "commodity"):
		return KindCommodity
	case strings.Contains(ref, "journal"):
		return KindJournal
	default:
		return KindUnrecognized
	}
}

type envelope struct {
	SchemaRef string          `json:"$schemaRef"`
	Message   json.RawMessage `json:"message"`
}

// ParseEnvelope decodes one log line. Only invalid JSON is an error here; a
// missing schema or message is left for the demultiplexer to judge.
func ParseEnvelope(line int, raw []byte) (RawEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return RawEvent{}, &MalformedRecordError{Record: "envelope", Err: err}
	}
	event := RawEvent{
		Line:    line,
		Schema:  env.SchemaRef,
		Message: env.Message,
		Raw:     raw,
	}
	if ClassifySchema(env.SchemaRef) == KindJournal && len(env.Message) > 0 {
		var head struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(env.Message, &head); err != nil {
			return RawEvent{}, &MalformedRecordError{Record: "journal message", Field: "event", Err: fmt.Errorf("decode: %w", err)}
		}
		event.Event = head.Event
	}
	return event, nil
}
