// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/middleware"
)

// SearchService is the part of executor.Searcher the handler uses.
type SearchService interface {
	Search(ctx context.Context, raw string, topK int) (*executor.SearchResult, error)
	CacheKey(raw string, topK int) (string, error)
}

// RebuildFunc reloads the datasets, builds a new generation and installs it.
type RebuildFunc func(ctx context.Context) (*indexer.BuildReport, error)

type Handler struct {
	searcher  SearchService
	cache     *cache.QueryCache
	collector *analytics.Collector
	rebuild   RebuildFunc
	logger    *slog.Logger
}

// New creates a Handler. queryCache, collector and rebuild may be nil.
func New(searcher SearchService, queryCache *cache.QueryCache, collector *analytics.Collector, rebuild RebuildFunc) *Handler {
	return &Handler{
		searcher:  searcher,
		cache:     queryCache,
		collector: collector,
		rebuild:   rebuild,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// RebuildPath is the rebuild route. It is exempt from the request timeout.
const RebuildPath = "/api/v1/index/rebuild"

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST "+RebuildPath, h.Rebuild)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=<query>&k=<topK>. A query without
// matches is a 200 with an empty results array.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	topK := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "k must be a positive integer"))
			return
		}
		topK = parsed
	}

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	compute := func() (*executor.SearchResult, error) {
		return h.searcher.Search(ctx, query, topK)
	}
	if h.cache != nil {
		var key string
		key, err = h.searcher.CacheKey(query, topK)
		if err == nil {
			result, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
		}
	} else {
		result, err = compute()
	}
	if err != nil {
		if apperrors.HTTPStatusCode(err) >= http.StatusInternalServerError {
			log.Error("search failed", "query", query, "error", err)
		}
		h.writeError(w, err)
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"candidates", result.TotalCandidates,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := analytics.EventSearch
		switch {
		case len(result.Results) == 0:
			eventType = analytics.EventZeroResult
		case cacheHit:
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.SearchEvent{
			Type:       eventType,
			Query:      query,
			Terms:      result.Terms,
			Candidates: result.TotalCandidates,
			Returned:   len(result.Results),
			LatencyMs:  latencyMs,
			CacheHit:   cacheHit,
			Generation: result.Generation,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Rebuild serves POST /api/v1/index/rebuild and answers with the build
// report once the new generation is installed. The build runs on a context
// detached from the request, so a client that disconnects does not abandon a
// half-built generation, and the server write deadline is lifted for the
// response.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuild == nil {
		h.writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "rebuild is not available"})
		return
	}
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.FromContext(r.Context()).Warn("clearing write deadline for rebuild", "error", err)
	}
	report, err := h.rebuild(context.WithoutCancel(r.Context()))
	if err != nil {
		logger.FromContext(r.Context()).Error("rebuild failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err onto a status code; internal failures are not
// described to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
