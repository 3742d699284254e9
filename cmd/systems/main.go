// Command systems builds the system reference CSV from a body catalog dump.
//
// Usage:
//
//	systems -catalog data/systems_populated.json.gz -out data/systems.csv
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/station-market-etl/internal/adapter/fileio"
	"github.com/couchcryptid/station-market-etl/internal/adapter/reference"
	"github.com/couchcryptid/station-market-etl/internal/config"
	"github.com/couchcryptid/station-market-etl/internal/observability"
)

func main() {
	catalog := flag.String("catalog", "", "system catalog (JSON lines, optionally gzip)")
	out := flag.String("out", "", "reference CSV to write")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	if *catalog == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*catalog, *out, logger); err != nil {
		logger.Error("build reference failed", "error", err)
		os.Exit(1)
	}
}

func run(catalogPath, outPath string, logger *slog.Logger) (err error) {
	in, err := fileio.Open(catalogPath)
	if err != nil {
		return err
	}
	defer in.Close()

	systems, stats, err := reference.BuildCatalog(in, logger)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create reference: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close reference: %w", closeErr)
		}
	}()

	if err := reference.WriteReference(f, systems); err != nil {
		return err
	}
	logger.Info("reference written", "path", outPath, "systems", stats.Systems, "skipped_lines", stats.Skipped)
	return nil
}
