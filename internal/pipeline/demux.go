package pipeline

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/station-market-etl/internal/domain"
	"github.com/couchcryptid/station-market-etl/internal/observability"
)

// ParseStats counts what the demultiplexer did with each log line.
type ParseStats struct {
	Lines       int `json:"lines"`
	Commodities int `json:"commodities"`
	Visits      int `json:"visits"`
	Skipped     int `json:"skipped"`
}

// Demultiplexer routes log lines to the record parser for their schema and
// collects the parsed events in log order.
type Demultiplexer struct {
	commodities []domain.CommodityEvent
	visits      []domain.StationVisitEvent
	stats       ParseStats
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewDemultiplexer creates an empty Demultiplexer.
func NewDemultiplexer(logger *slog.Logger, metrics *observability.Metrics) *Demultiplexer {
	return &Demultiplexer{logger: logger, metrics: metrics}
}

// Route classifies raw and parses it. Unrecognized schemas and journal
// events other than Docked are skipped. Parser failures are returned as a
// *domain.LineError and must abort the run.
func (d *Demultiplexer) Route(raw domain.RawEvent) error {
	d.stats.Lines++
	d.metrics.LinesRead.Inc()

	kind := domain.ClassifySchema(raw.Schema)
	switch {
	case kind == domain.KindCommodity:
		event, err := domain.ParseCommodity(raw.Message)
		if err != nil {
			return d.fail(raw, err)
		}
		d.commodities = append(d.commodities, event)
		d.stats.Commodities++
	case kind == domain.KindJournal && raw.Event == domain.DockedEvent:
		visit, err := domain.ParseVisit(raw.Message)
		if err != nil {
			return d.fail(raw, err)
		}
		d.visits = append(d.visits, visit)
		d.stats.Visits++
	default:
		d.stats.Skipped++
		d.metrics.LinesSkipped.Inc()
		d.logger.Debug("line skipped", "line", raw.Line, "schema", raw.Schema, "event", raw.Event)
		return nil
	}

	d.metrics.EventsParsed.WithLabelValues(kind.String()).Inc()
	return nil
}

func (d *Demultiplexer) fail(raw domain.RawEvent, err error) error {
	d.metrics.ParseFailures.WithLabelValues(failureReason(err)).Inc()
	return domain.NewLineError(raw.Line, raw.Raw, err)
}

// Commodities returns the parsed commodity snapshots in log order.
func (d *Demultiplexer) Commodities() []domain.CommodityEvent { return d.commodities }

// Visits returns the parsed Docked visits in log order.
func (d *Demultiplexer) Visits() []domain.StationVisitEvent { return d.visits }

// Stats returns the counts so far.
func (d *Demultiplexer) Stats() ParseStats { return d.stats }

func failureReason(err error) string {
	var drift *domain.SchemaDriftError
	if errors.As(err, &drift) {
		return "schema_drift"
	}
	var malformed *domain.MalformedRecordError
	if errors.As(err, &malformed) {
		return "malformed"
	}
	return "other"
}
