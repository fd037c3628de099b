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
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/watcher"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/resolver"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/redis"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"data_dir", cfg.Indexer.DataDir,
		"backend", cfg.Indexer.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	norm, err := normalizer.New(cfg.Normalizer)
	if err != nil {
		slog.Error("failed to create normalizer", "error", err)
		os.Exit(1)
	}
	m := metrics.New()

	searcher := executor.New(resolver.New(norm), ranker.New(cfg.Search), cfg.Search, m, cfg.Tracing.Enabled)
	defer searcher.Close()
	if err := searcher.Reload(cfg.Indexer); err != nil {
		if !errors.Is(err, apperrors.ErrIndexNotFound) {
			slog.Error("failed to open index", "error", err)
			os.Exit(1)
		}
		slog.Warn("no index yet, searches fail until a rebuild", "data_dir", cfg.Indexer.DataDir)
	} else {
		slog.Info("index loaded", "generation", searcher.Generation())
	}

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	collector, closeAnalytics := analytics.FromConfig(cfg.Kafka)
	collector.Start(ctx)
	defer func() {
		if err := closeAnalytics(); err != nil {
			slog.Error("closing analytics producers", "error", err)
		}
	}()
	slog.Info("analytics collector started", "kafka", cfg.Kafka.Enabled)

	pipe, closePipeline, err := pipeline.FromConfig(ctx, cfg, norm, m)
	if err != nil {
		slog.Error("failed to create ingestion pipeline", "error", err)
		os.Exit(1)
	}
	defer closePipeline()

	var rebuildMu sync.Mutex
	rebuild := func(ctx context.Context) (*indexer.BuildReport, error) {
		rebuildMu.Lock()
		defer rebuildMu.Unlock()
		report, err := pipe.BuildIndex(ctx, cfg.Indexer)
		if err != nil {
			return nil, err
		}
		if err := searcher.Reload(cfg.Indexer); err != nil {
			return nil, err
		}
		if queryCache != nil {
			if err := queryCache.Invalidate(ctx); err != nil {
				slog.Warn("cache invalidation after rebuild failed", "error", err)
			}
		}
		m.IndexedDocuments.Set(float64(report.Documents))
		collector.Track(analytics.IndexEvent{
			Type:       analytics.EventIndexBuild,
			Generation: report.Generation,
			Backend:    report.Backend,
			Documents:  report.Documents,
			Skipped:    report.Skipped,
			DurationMs: report.Duration.Milliseconds(),
			Timestamp:  time.Now(),
		})
		slog.Info("index rebuilt", "generation", report.Generation, "documents", report.Documents)
		return report, nil
	}

	if cfg.Dataset.Watch {
		go func() {
			err := watcher.Watch(ctx, cfg.Dataset.Dir, cfg.Dataset.WatchDebounce, func(ctx context.Context) {
				if _, err := rebuild(ctx); err != nil {
					slog.Error("rebuild after dataset change failed", "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("dataset watcher stopped", "error", err)
			}
		}()
		slog.Info("watching datasets", "dir", cfg.Dataset.Dir)
	}

	checker := health.NewChecker()
	checker.Register("index", health.ReadyCheck(searcher.Ready, "no index loaded"))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
	}

	h := handler.New(searcher, queryCache, collector, rebuild)
	analyticsH := analytics.NewHandler(collector.Aggregator())

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics/stats", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout, handler.RebuildPath),
	)

	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
