// Package executor runs the two-stage search: resolve candidates from the
// current index, then re-rank them. The index can be swapped while the
// service is running.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/resolver"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/tracing"
)

// Result types recorded in search_queries_total.
const (
	resultOK         = "ok"
	resultZero       = "zero_result"
	resultEmptyQuery = "empty_query"
	resultError      = "error"
)

type SearchResult struct {
	Query           string             `json:"query"`
	Terms           []string           `json:"terms"`
	Generation      string             `json:"generation"`
	TotalCandidates int                `json:"total_candidates"`
	Results         []ranker.ScoredDoc `json:"results"`
}

// Searcher serves queries against the installed index. Searches hold a read
// lock for their whole duration so Swap never closes an index in use.
type Searcher struct {
	mu       sync.RWMutex
	idx      index.Index
	resolver *resolver.Resolver
	reranker *ranker.Reranker
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	trace    bool
	logger   *slog.Logger
}

// New creates a Searcher with no index installed. m may be nil.
func New(res *resolver.Resolver, rr *ranker.Reranker, cfg config.SearchConfig, m *metrics.Metrics, trace bool) *Searcher {
	return &Searcher{
		resolver: res,
		reranker: rr,
		cfg:      cfg,
		metrics:  m,
		trace:    trace,
		logger:   logger.WithComponent("query-executor"),
	}
}

// Swap installs idx and closes the previously installed index.
func (s *Searcher) Swap(idx index.Index) error {
	s.mu.Lock()
	old := s.idx
	s.idx = idx
	s.mu.Unlock()

	if idx != nil {
		s.logger.Info("index installed", "generation", idx.Generation(), "documents", idx.Stats().DocCount)
	}
	if old == nil {
		return nil
	}
	if err := old.Close(); err != nil {
		return fmt.Errorf("closing generation %s: %w", old.Generation(), err)
	}
	return nil
}

// Reload opens the generation currently published under cfg.DataDir and
// installs it.
func (s *Searcher) Reload(cfg config.IndexerConfig) error {
	idx, err := indexer.Open(cfg)
	if err != nil {
		return err
	}
	return s.Swap(idx)
}

// Generation names the installed index, or "" when there is none.
func (s *Searcher) Generation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return ""
	}
	return s.idx.Generation()
}

// Ready reports whether an index is installed.
func (s *Searcher) Ready() bool {
	return s.Generation() != ""
}

// Close closes the installed index.
func (s *Searcher) Close() error {
	return s.Swap(nil)
}

// ClampTopK applies the configured default and maximum to a requested K.
func (s *Searcher) ClampTopK(topK int) int {
	if topK < 1 {
		topK = s.cfg.DefaultTopK
		if topK < 1 {
			topK = ranker.DefaultTopK
		}
	}
	if s.cfg.MaxTopK > 0 && topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}
	return topK
}

// CacheKey identifies the result of Search(raw, topK) against the installed
// generation. Queries that normalize to the same terms share a key.
func (s *Searcher) CacheKey(raw string, topK int) (string, error) {
	plan, err := s.resolver.Parse(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%s|k=%d", s.Generation(), strings.Join(plan.Query.Terms, " "), s.ClampTopK(topK)), nil
}

// Search normalizes raw, resolves its candidates and returns the top K
// re-ranked documents. A query with no searchable terms fails with
// ErrEmptyQuery; a query that matches nothing returns an empty result.
func (s *Searcher) Search(ctx context.Context, raw string, topK int) (*SearchResult, error) {
	start := time.Now()
	k := s.ClampTopK(topK)

	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	ctx, span := tracing.StartSpan(ctx, "search", traceID)
	defer func() {
		span.End()
		if s.trace {
			span.LogTo(logger.FromContext(ctx))
		}
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		s.observe(resultError, start, 0)
		return nil, apperrors.ErrIndexNotFound
	}
	span.SetAttr("generation", s.idx.Generation())

	resolveCtx, resolveSpan := tracing.StartChildSpan(ctx, "resolve")
	candidates, plan, err := s.resolver.Resolve(resolveCtx, s.idx, raw)
	resolveSpan.End()
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyQuery) {
			s.observe(resultEmptyQuery, start, 0)
		} else {
			s.observe(resultError, start, 0)
		}
		return nil, err
	}
	resolveSpan.SetAttr("candidates", len(candidates))

	_, rerankSpan := tracing.StartChildSpan(ctx, "rerank")
	results := s.reranker.Rerank(plan.Text, candidates, k, s.idx.Stats())
	rerankSpan.End()

	resultType := resultOK
	if len(results) == 0 {
		resultType = resultZero
	}
	s.observe(resultType, start, len(results))

	logger.FromContext(ctx).Info("query executed",
		"query", raw,
		"terms", plan.Query.Terms,
		"candidates", len(candidates),
		"results", len(results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &SearchResult{
		Query:           raw,
		Terms:           plan.Query.Terms,
		Generation:      s.idx.Generation(),
		TotalCandidates: len(candidates),
		Results:         results,
	}, nil
}

func (s *Searcher) observe(resultType string, start time.Time, returned int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.SearchLatency.WithLabelValues("computed").Observe(time.Since(start).Seconds())
	if resultType == resultOK || resultType == resultZero {
		s.metrics.SearchResultsCount.WithLabelValues().Observe(float64(returned))
	}
}
