package pipeline

import (
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/station-market-etl/internal/domain"
	"github.com/couchcryptid/station-market-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, line int, raw string) domain.RawEvent {
	t.Helper()
	ev, err := domain.ParseEnvelope(line, []byte(raw))
	require.NoError(t, err)
	return ev
}

func TestDemultiplexer_Route(t *testing.T) {
	d := NewDemultiplexer(slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	lines := []string{
		`{"$schemaRef":"https://eddn.edcd.io/schemas/commodity/3","message":{"systemName":"Sol","stationName":"A","marketId":1,"timestamp":"2020-03-04T00:00:00Z","commodities":[]}}`,
		`{"$schemaRef":"https://eddn.edcd.io/schemas/journal/1","message":{"event":"Docked","timestamp":"2020-03-04T00:01:00Z","StarSystem":"Sol","StationName":"A","MarketID":1,"StationType":"Outpost","StationGovernment":"$government_None;"}}`,
		`{"$schemaRef":"https://eddn.edcd.io/schemas/journal/1","message":{"event":"Location","StarSystem":"Sol"}}`,
		`{"$schemaRef":"https://eddn.edcd.io/schemas/shipyard/2","message":{}}`,
		`{"message":{}}`,
		`{"$schemaRef":"https://eddn.edcd.io/schemas/commodity/4","message":{"systemName":"Sol","stationName":"B","marketId":2,"timestamp":"2020-03-04T00:02:00Z","commodities":[]}}`,
	}
	for i, l := range lines {
		require.NoError(t, d.Route(envelope(t, i+1, l)))
	}

	assert.Equal(t, ParseStats{Lines: 6, Commodities: 2, Visits: 1, Skipped: 3}, d.Stats())
	require.Len(t, d.Commodities(), 2)
	assert.Equal(t, "A", d.Commodities()[0].Station, "log order kept")
	assert.Equal(t, "B", d.Commodities()[1].Station)
	require.Len(t, d.Visits(), 1)
}

func TestDemultiplexer_MalformedVisit(t *testing.T) {
	d := NewDemultiplexer(slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	raw := `{"$schemaRef":"https://eddn.edcd.io/schemas/journal/1","message":{"event":"Docked","timestamp":"not a time","StarSystem":"Sol","StationName":"A","MarketID":1,"StationType":"Outpost","StationGovernment":"x"}}`
	err := d.Route(envelope(t, 12, raw))

	var lineErr *domain.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 12, lineErr.Line)
	assert.Contains(t, err.Error(), "line 12")

	var malformed *domain.MalformedRecordError
	assert.ErrorAs(t, err, &malformed)
	assert.Equal(t, "malformed", failureReason(err))
}
