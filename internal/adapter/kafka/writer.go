// Package kafka publishes merged records to a Kafka topic.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/station-market-etl/internal/config"
	"github.com/couchcryptid/station-market-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// publishBatchSize caps messages per WriteMessages call.
const publishBatchSize = 500

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces merged records to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, topic: cfg.KafkaSinkTopic, logger: logger}
}

// Name identifies the sink in metrics and logs.
func (w *Writer) Name() string { return "kafka" }

// Load publishes every record, in order, in batches. Records sharing a key
// land on the same partition.
func (w *Writer) Load(ctx context.Context, records []domain.MergedRecord) error {
	if len(records) == 0 {
		return nil
	}
	runID := domain.RunID(ctx)
	processedAt := domain.Now()

	for start := 0; start < len(records); start += publishBatchSize {
		end := min(start+publishBatchSize, len(records))
		msgs := make([]kafkago.Message, 0, end-start)
		for _, r := range records[start:end] {
			msg, err := serializeToMessage(r, runID, processedAt)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish records %d-%d: %w", start+1, end, err)
		}
	}
	w.logger.Info("records published", "topic", w.topic, "records", len(records))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey is system_name|station|name.
func MessageKey(r domain.MergedRecord) []byte {
	system, _ := r.Value("system_name")
	station, _ := r.Value("station")
	name, _ := r.Value("name")
	return []byte(system + "|" + station + "|" + name)
}

// serializeToMessage encodes a record as a JSON object whose keys follow the
// record's field order.
func serializeToMessage(r domain.MergedRecord, runID string, processedAt time.Time) (kafkago.Message, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return kafkago.Message{}, fmt.Errorf("serialize merged record: %w", err)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return kafkago.Message{}, fmt.Errorf("serialize merged record: %w", err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return kafkago.Message{
		Key:   MessageKey(r),
		Value: buf.Bytes(),
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
