package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/station-market-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	batches [][]kafkago.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRecord(name string) domain.MergedRecord {
	return domain.NewMergedRecord(
		[]domain.Field{{Name: "name", Value: name}, {Name: "buy_price", Value: "100"}},
		[]domain.Field{{Name: "system_name", Value: "Sol"}, {Name: "station", Value: "Abraham Lincoln"}},
	)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2020, 3, 4, 15, 10, 0, 0, time.UTC)

	msg, err := serializeToMessage(testRecord("Gold"), "run-1", now)
	require.NoError(t, err)

	assert.Equal(t, []byte("Sol|Abraham Lincoln|Gold"), msg.Key)
	assert.Equal(t, `{"name":"Gold","buy_price":"100","system_name":"Sol","station":"Abraham Lincoln"}`, string(msg.Value))
	assert.True(t, json.Valid(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestWriter_LoadBatches(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	fake := &fakeWriter{}
	w := &Writer{writer: fake, topic: "merged", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	records := make([]domain.MergedRecord, publishBatchSize+1)
	for i := range records {
		records[i] = testRecord("Gold")
	}
	ctx := domain.WithRunID(context.Background(), "run-7")

	require.NoError(t, w.Load(ctx, records))
	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0], publishBatchSize)
	assert.Len(t, fake.batches[1], 1)
	assert.Equal(t, []byte("run-7"), fake.batches[1][0].Headers[0].Value)
	assert.Equal(t, []byte("2020-03-04T00:00:00Z"), fake.batches[1][0].Headers[1].Value)

	require.NoError(t, w.Close())
	assert.True(t, fake.closed)
}

func TestWriter_LoadError(t *testing.T) {
	fake := &fakeWriter{err: errors.New("broker down")}
	w := &Writer{writer: fake, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Load(context.Background(), []domain.MergedRecord{testRecord("Gold")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, "kafka", w.Name())
}

func TestWriter_LoadEmpty(t *testing.T) {
	fake := &fakeWriter{}
	w := &Writer{writer: fake, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Load(context.Background(), nil))
	assert.Empty(t, fake.batches)
}
