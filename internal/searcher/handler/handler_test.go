package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index/indextest"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/resolver"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/middleware"
)

func newServer(t *testing.T, withIndex bool, rebuild RebuildFunc) (*httptest.Server, *analytics.Collector) {
	t.Helper()
	n, err := normalizer.New(config.NormalizerConfig{Stemmer: normalizer.StemmerIndonesian})
	require.NoError(t, err)
	cfg := config.SearchConfig{DefaultTopK: 5, MaxTopK: 10, Weighting: "tfidf"}
	s := executor.New(resolver.New(n), ranker.New(cfg), cfg, nil, false)
	if withIndex {
		idx := index.NewMemoryIndex()
		for _, d := range indextest.Corpus() {
			_, err := idx.AddDocument(d)
			require.NoError(t, err)
		}
		require.NoError(t, s.Swap(idx))
	}

	collector := analytics.NewCollector(nil, nil, nil, 64)
	mux := http.NewServeMux()
	New(s, nil, collector, rebuild).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, collector
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSearchOK(t *testing.T) {
	srv, collector := newServer(t, true, nil)
	collector.Start(context.Background())

	var result executor.SearchResult
	status := get(t, srv.URL+"/api/v1/search?q=kucing&k=5", &result)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "3", result.Results[0].ID)
	assert.Equal(t, "Doc 3", result.Results[0].Title)

	collector.Close()
	assert.Equal(t, int64(1), collector.Aggregator().Stats().TotalSearches)
}

func TestSearchNoResultsIsOK(t *testing.T) {
	srv, _ := newServer(t, true, nil)
	var body map[string]any
	status := get(t, srv.URL+"/api/v1/search?q=gajah", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["results"])
}

func TestSearchEmptyQuery(t *testing.T) {
	srv, _ := newServer(t, true, nil)
	for _, q := range []string{"", "%21%21%21123"} {
		var body map[string]string
		status := get(t, srv.URL+"/api/v1/search?q="+q, &body)
		assert.Equal(t, http.StatusBadRequest, status, "q=%s", q)
		assert.NotEmpty(t, body["error"])
	}
}

func TestSearchBadK(t *testing.T) {
	srv, _ := newServer(t, true, nil)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/v1/search?q=kucing&k=abc", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/v1/search?q=kucing&k=0", nil))
}

func TestSearchWithoutIndex(t *testing.T) {
	srv, _ := newServer(t, false, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/api/v1/search?q=kucing", nil))
}

func TestRebuild(t *testing.T) {
	report := &indexer.BuildReport{Generation: "gen-7", Backend: "segment", Documents: 3, Duration: time.Second}
	srv, _ := newServer(t, true, func(context.Context) (*indexer.BuildReport, error) { return report, nil })

	resp, err := http.Post(srv.URL+"/api/v1/index/rebuild", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got indexer.BuildReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "gen-7", got.Generation)
	assert.Equal(t, 3, got.Documents)
}

func TestRebuildOutlivesRequestTimeout(t *testing.T) {
	report := &indexer.BuildReport{Generation: "gen-8", Backend: "segment", Documents: 3}
	mux := http.NewServeMux()
	New(nil, nil, nil, func(ctx context.Context) (*indexer.BuildReport, error) {
		time.Sleep(100 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return report, nil
	}).Register(mux)
	srv := httptest.NewServer(middleware.Chain(mux,
		middleware.RequestID,
		middleware.Timeout(20*time.Millisecond, RebuildPath),
	))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+RebuildPath, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got indexer.BuildReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "gen-8", got.Generation)
}

func TestRebuildIgnoresClientCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var buildErr error
	h := New(nil, nil, nil, func(buildCtx context.Context) (*indexer.BuildReport, error) {
		cancel()
		buildErr = buildCtx.Err()
		return &indexer.BuildReport{Generation: "gen-9"}, buildErr
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, RebuildPath, nil).WithContext(ctx)
	h.Rebuild(rec, req)

	assert.NoError(t, buildErr)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRebuildFailure(t *testing.T) {
	srv, _ := newServer(t, true, func(context.Context) (*indexer.BuildReport, error) {
		return nil, apperrors.BuildError(errors.New("disk full"))
	})
	resp, err := http.Post(srv.URL+"/api/v1/index/rebuild", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "internal error", body["error"])
}

func TestRebuildUnavailable(t *testing.T) {
	srv, _ := newServer(t, true, nil)
	resp, err := http.Post(srv.URL+"/api/v1/index/rebuild", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestCacheDisabled(t *testing.T) {
	srv, _ := newServer(t, true, nil)
	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/v1/cache/stats", &body))
	assert.Equal(t, "disabled", body["status"])

	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newServer(t, true, nil)
	resp, err := http.Post(srv.URL+"/api/v1/search?q=kucing", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
