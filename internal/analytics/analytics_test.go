package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/kafka"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorRoutesEvents(t *testing.T) {
	searchPub := &recordingPublisher{}
	indexPub := &recordingPublisher{}
	c := NewCollector(searchPub, indexPub, nil, 16)
	c.Start(context.Background())

	c.Track(SearchEvent{Type: EventSearch, Query: "kucing", Terms: []string{"kucing"}, Returned: 2})
	c.Track(SearchEvent{Type: EventZeroResult, Query: "gajah", Terms: []string{"gajah"}})
	c.Track(IndexEvent{Type: EventIndexBuild, Generation: "gen-1", Documents: 3})
	c.Close()

	assert.Equal(t, 2, searchPub.count())
	require.Equal(t, 1, indexPub.count())
	assert.Equal(t, "gen-1", indexPub.events[0].Key)

	stats := c.Aggregator().Stats()
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.Builds)
	assert.Equal(t, "gen-1", stats.LastGeneration)
	assert.Equal(t, 3, stats.IndexedDocuments)
}

func TestCollectorWithoutPublishers(t *testing.T) {
	c := NewCollector(nil, nil, nil, 4)
	c.Start(context.Background())
	c.Track(SearchEvent{Query: "kucing", Returned: 1})
	c.Close()
	assert.Equal(t, int64(1), c.Aggregator().Stats().TotalSearches)
}

func TestCollectorPublishErrorStillAggregates(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, nil, nil, 4)
	c.Start(context.Background())
	c.Track(SearchEvent{Query: "kucing", Returned: 1})
	c.Close()
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, int64(1), c.Aggregator().Stats().TotalSearches)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(nil, nil, nil, 1)
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	c.Start(context.Background())
	c.Close()
	assert.Equal(t, int64(1), c.Aggregator().Stats().TotalSearches)
}

func TestAggregatorTopQueriesUseTerms(t *testing.T) {
	a := NewAggregator()
	a.RecordSearch(SearchEvent{Query: "Kucing!", Terms: []string{"kucing"}, Returned: 1, LatencyMs: 4})
	a.RecordSearch(SearchEvent{Query: "kucing", Terms: []string{"kucing"}, Returned: 1, LatencyMs: 2, CacheHit: true})
	a.RecordSearch(SearchEvent{Query: "anjing", Terms: []string{"anjing"}, Returned: 1, LatencyMs: 6})

	stats := a.Stats()
	require.NotEmpty(t, stats.TopQueries)
	assert.Equal(t, QueryCount{Query: "kucing", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.InDelta(t, 4.0, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(4), stats.P50LatencyMs)
	assert.Equal(t, int64(6), stats.P99LatencyMs)
}

func TestHandlerStats(t *testing.T) {
	a := NewAggregator()
	a.RecordSearch(SearchEvent{Query: "kucing", Returned: 1})
	a.RecordIndex(IndexEvent{Generation: "gen-2", Documents: 5, Timestamp: time.Now()})

	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(1), got.TotalSearches)
	assert.Equal(t, "gen-2", got.LastGeneration)
}

func TestHandlerStatsTopLimit(t *testing.T) {
	a := NewAggregator()
	for i, q := range []string{"kucing", "kucing", "kucing", "anjing", "anjing", "ikan"} {
		a.RecordSearch(SearchEvent{Query: q, Returned: i % 2, LatencyMs: 1})
	}
	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	a.RecordIndex(IndexEvent{Generation: "gen-3", Documents: 7, DurationMs: 42, Timestamp: started})

	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/stats?top=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var got AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []QueryCount{{Query: "kucing", Count: 3}, {Query: "anjing", Count: 2}}, got.TopQueries)
	assert.Len(t, got.ZeroResultQueries, 2)
	assert.Equal(t, "gen-3", got.LastGeneration)
	assert.Equal(t, 7, got.IndexedDocuments)
	assert.Equal(t, int64(42), got.LastBuildMs)
	require.NotNil(t, got.LastBuildAt)
	assert.True(t, started.Equal(*got.LastBuildAt))
}

func TestHandlerStatsRejectsBadTop(t *testing.T) {
	h := NewHandler(NewAggregator())
	for _, top := range []string{"0", "-1", "abc", "101"} {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/stats?top="+top, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "top=%s", top)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "top must be an integer between 1 and 100", body["error"])
	}
}

func TestStatsWithoutBuild(t *testing.T) {
	stats := NewAggregator().Stats()
	assert.Nil(t, stats.LastBuildAt)
	assert.Empty(t, stats.LastGeneration)
	assert.Empty(t, stats.TopQueries)
}

func TestCloseWithoutStart(t *testing.T) {
	c := NewCollector(nil, nil, nil, 4)
	c.Track(IndexEvent{Generation: "gen-1"})
	c.Close()
	assert.Equal(t, int64(1), c.Aggregator().Stats().Builds)
}

func TestFromConfigDisabled(t *testing.T) {
	c, closeFn := FromConfig(config.KafkaConfig{})
	c.Start(context.Background())
	c.Track(SearchEvent{Query: "kucing"})
	require.NoError(t, closeFn())
	assert.Equal(t, int64(1), c.Aggregator().Stats().TotalSearches)
}

func TestTrackAfterCloseIsDropped(t *testing.T) {
	c := NewCollector(nil, nil, nil, 4)
	c.Start(context.Background())
	c.Close()
	c.Close()

	assert.NotPanics(t, func() { c.Track(SearchEvent{Query: "kucing"}) })
	assert.Equal(t, int64(0), c.Aggregator().Stats().TotalSearches)
}
