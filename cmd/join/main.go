// Command join pairs market snapshots from an event log with the nearest
// station visit and writes one merged row per commodity line.
//
// Usage:
//
//	join -events data/events.jsonl.gz -systems data/systems.csv -out data/merged.csv [-tolerance 300s]
//
// Every flag falls back to its environment variable (EVENTS_PATH,
// SYSTEMS_PATH, OUTPUT_PATH, JOIN_TOLERANCE).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/station-market-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/station-market-etl/internal/adapter/eventlog"
	"github.com/couchcryptid/station-market-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/station-market-etl/internal/adapter/kafka"
	"github.com/couchcryptid/station-market-etl/internal/adapter/reference"
	"github.com/couchcryptid/station-market-etl/internal/config"
	"github.com/couchcryptid/station-market-etl/internal/observability"
	"github.com/couchcryptid/station-market-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, os.Args[1:]); err != nil {
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("join failed", "error", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.StringVar(&cfg.EventsPath, "events", cfg.EventsPath, "event log (JSON lines, optionally gzip)")
	fs.StringVar(&cfg.SystemsPath, "systems", cfg.SystemsPath, "system reference CSV")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "merged output CSV")
	tolerance := fs.String("tolerance", cfg.Tolerance.String(), "max snapshot/visit time difference (duration or seconds)")
	fs.IntVar(&cfg.JoinWorkers, "workers", cfg.JoinWorkers, "join workers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := config.ParseTolerance(*tolerance)
	if err != nil {
		return fmt.Errorf("-tolerance: %w", err)
	}
	cfg.Tolerance = d
	return cfg.Validate()
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	if cfg.MetricsTextfile != "" {
		defer func() {
			if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
				logger.Error("write metrics textfile failed", "error", err)
			}
		}()
	}

	systems, err := reference.Load(cfg.SystemsPath)
	if err != nil {
		return err
	}
	logger.Info("reference data loaded", "path", cfg.SystemsPath, "systems", len(systems))

	reader, err := eventlog.Open(cfg.EventsPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("event log close error", "error", err)
		}
	}()

	loaders := []pipeline.Loader{csvfile.NewWriter(cfg.OutputPath, logger)}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(reader, systems, loaders,
		pipeline.Options{Tolerance: cfg.Tolerance, Workers: cfg.JoinWorkers},
		logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = p.Run(ctx)
	return err
}
