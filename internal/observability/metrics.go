package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station_market_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a join run.
type Metrics struct {
	LinesRead     prometheus.Counter
	LinesSkipped  prometheus.Counter
	EventsParsed  *prometheus.CounterVec // labels: kind={commodity,journal}
	ParseFailures *prometheus.CounterVec // labels: reason={schema_drift,malformed}

	SnapshotsMatched   prometheus.Counter
	SnapshotsUnmatched prometheus.Counter
	RecordsLoaded      *prometheus.CounterVec // labels: sink={csv,kafka}

	RunDuration     prometheus.Histogram
	StageDuration   *prometheus.HistogramVec // labels: stage={demux,join,load}
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LinesRead,
		m.LinesSkipped,
		m.EventsParsed,
		m.ParseFailures,
		m.SnapshotsMatched,
		m.SnapshotsUnmatched,
		m.RecordsLoaded,
		m.RunDuration,
		m.StageDuration,
		m.PipelineRunning,
		m.LastSuccess,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_read_total",
			Help:      "Total event log lines read.",
		}),
		LinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_skipped_total",
			Help:      "Log lines with an unrecognized schema or a journal event other than Docked.",
		}),
		EventsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_parsed_total",
			Help:      "Events accepted by the parsers, by kind.",
		}, []string{"kind"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Lines that aborted the run, by reason.",
		}, []string{"reason"}),
		SnapshotsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_matched_total",
			Help:      "Commodity snapshots paired with a station visit.",
		}),
		SnapshotsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_unmatched_total",
			Help:      "Commodity snapshots dropped for lack of a visit within tolerance.",
		}),
		RecordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Merged records written, by sink.",
		}, []string{"sink"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete demux-join-load run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

// WriteTextfile dumps the default registry in the text exposition format for
// the node exporter textfile collector. A batch job exits before any scrape,
// so this is how its counters reach Prometheus.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
