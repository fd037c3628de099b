package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	slog.Info("starting index build",
		"dataset_dir", cfg.Dataset.Dir,
		"data_dir", cfg.Indexer.DataDir,
		"backend", cfg.Indexer.Backend,
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	norm, err := normalizer.New(cfg.Normalizer)
	if err != nil {
		slog.Error("failed to create normalizer", "error", err)
		return apperrors.ExitCode(err)
	}

	pipe, closePipeline, err := pipeline.FromConfig(ctx, cfg, norm, metrics.NewIsolated())
	if err != nil {
		slog.Error("failed to create ingestion pipeline", "error", err)
		return apperrors.ExitCode(err)
	}
	defer closePipeline()

	collector, closeAnalytics := analytics.FromConfig(cfg.Kafka)
	collector.Start(ctx)
	defer func() {
		if err := closeAnalytics(); err != nil {
			slog.Error("closing analytics producers", "error", err)
		}
	}()

	report, err := pipe.BuildIndex(ctx, cfg.Indexer)
	if err != nil {
		slog.Error("index build failed", "error", err)
		return apperrors.ExitCode(err)
	}
	collector.Track(analytics.IndexEvent{
		Type:       analytics.EventIndexBuild,
		Generation: report.Generation,
		Backend:    report.Backend,
		Documents:  report.Documents,
		Skipped:    report.Skipped,
		DurationMs: report.Duration.Milliseconds(),
		Timestamp:  time.Now(),
	})

	slog.Info("index build complete",
		"generation", report.Generation,
		"documents", report.Documents,
		"skipped", report.Skipped,
		"terms", report.Terms,
		"duration", report.Duration,
	)
	return 0
}
