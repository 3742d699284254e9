// Package pipeline runs one batch pass: demultiplex the event log, join
// snapshots to visits, and hand the merged records to each loader.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-market-etl/internal/domain"
	"github.com/couchcryptid/station-market-etl/internal/observability"
	"github.com/google/uuid"
)

// Extractor yields raw log events in order and io.EOF at the end.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawEvent, error)
}

// Loader writes merged records to a destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, records []domain.MergedRecord) error
}

// Options tune the join stage.
type Options struct {
	Tolerance time.Duration
	Workers   int
}

// Run states reported in Summary.State.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Summary describes a run. It is logged at the end of every run, failed or
// not, and served on /status while the run is in progress.
type Summary struct {
	RunID      string    `json:"run_id,omitempty"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	ParseStats
	Matched   int    `json:"matched"`
	Unmatched int    `json:"unmatched"`
	Records   int    `json:"records"`
	Error     string `json:"error,omitempty"`
}

// Pipeline orchestrates the extract-join-load run.
type Pipeline struct {
	extractor Extractor
	systems   domain.SystemLookup
	loaders   []Loader
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu      sync.Mutex
	summary Summary
}

// New creates a Pipeline. Loaders run in the given order; the first failure
// stops the run.
func New(e Extractor, systems domain.SystemLookup, loaders []Loader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Tolerance == 0 {
		opts.Tolerance = domain.DefaultTolerance
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		extractor: e,
		systems:   systems,
		loaders:   loaders,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		summary:   Summary{State: StatePending},
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Status returns a snapshot of the current or last run.
func (p *Pipeline) Status() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

func (p *Pipeline) update(fn func(*Summary)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.summary)
}

// Run executes one complete pass. Cancellation is observed between log
// lines and between stages, never inside the join.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	ctx = domain.WithRunID(ctx, runID)
	logger := p.logger.With("run_id", runID)

	start := time.Now()
	p.update(func(s *Summary) {
		*s = Summary{RunID: runID, State: StateRunning, StartedAt: domain.Now()}
	})
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	logger.Info("pipeline started", "tolerance", p.opts.Tolerance, "workers", p.opts.Workers)

	err := p.run(ctx, logger)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())

	p.update(func(s *Summary) {
		s.FinishedAt = domain.Now()
		if err != nil {
			s.State = StateFailed
			s.Error = err.Error()
			return
		}
		s.State = StateSucceeded
	})
	summary := p.Status()
	logSummary(logger, summary)

	if err != nil {
		return summary, err
	}
	p.ready.Store(true)
	p.metrics.LastSuccess.Set(float64(summary.FinishedAt.Unix()))
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger) error {
	demux := NewDemultiplexer(logger, p.metrics)
	err := p.stage("demux", func() error { return p.extract(ctx, demux) })
	p.update(func(s *Summary) { s.ParseStats = demux.Stats() })
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var res domain.JoinResult
	err = p.stage("join", func() error {
		var joinErr error
		res, joinErr = domain.JoinConcurrent(demux.Commodities(), demux.Visits(), p.systems, p.opts.Tolerance, p.opts.Workers)
		return joinErr
	})
	p.metrics.SnapshotsMatched.Add(float64(res.Matched))
	p.metrics.SnapshotsUnmatched.Add(float64(res.Unmatched))
	p.update(func(s *Summary) {
		s.Matched = res.Matched
		s.Unmatched = res.Unmatched
		s.Records = len(res.Records)
	})
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return domain.ErrEmptyOutput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.stage("load", func() error {
		for _, l := range p.loaders {
			if err := l.Load(ctx, res.Records); err != nil {
				return fmt.Errorf("load %s: %w", l.Name(), err)
			}
			p.metrics.RecordsLoaded.WithLabelValues(l.Name()).Add(float64(len(res.Records)))
		}
		return nil
	})
}

func (p *Pipeline) extract(ctx context.Context, demux *Demultiplexer) error {
	for {
		raw, err := p.extractor.Extract(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if err := demux.Route(raw); err != nil {
			return err
		}
	}
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func logSummary(logger *slog.Logger, s Summary) {
	attrs := []any{
		"state", s.State,
		"lines", s.Lines,
		"commodities", s.Commodities,
		"visits", s.Visits,
		"skipped", s.Skipped,
		"matched", s.Matched,
		"unmatched", s.Unmatched,
		"records", s.Records,
	}
	if s.State == StateFailed {
		logger.Error("run summary", append(attrs, "error", s.Error)...)
		return
	}
	logger.Info("run summary", attrs...)
}
