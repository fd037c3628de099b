package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index/indextest"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/resolver"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
)

func searchConfig() config.SearchConfig {
	return config.SearchConfig{DefaultTopK: 5, MaxTopK: 10, Weighting: "tfidf", IDFScope: "candidates"}
}

func newSearcher(t *testing.T) *Searcher {
	t.Helper()
	n, err := normalizer.New(config.NormalizerConfig{Stemmer: normalizer.StemmerIndonesian})
	require.NoError(t, err)
	cfg := searchConfig()
	return New(resolver.New(n), ranker.New(cfg), cfg, metrics.NewIsolated(), false)
}

func memoryIndex(t *testing.T, docs []index.Document) *index.MemoryIndex {
	t.Helper()
	idx := index.NewMemoryIndex()
	for _, d := range docs {
		_, err := idx.AddDocument(d)
		require.NoError(t, err)
	}
	return idx
}

type closeCounter struct {
	index.Index
	mu     sync.Mutex
	closed int
}

func (c *closeCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func TestSearchScenario(t *testing.T) {
	s := newSearcher(t)
	require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus())))

	got, err := s.Search(context.Background(), "kucing", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"kucing"}, got.Terms)
	assert.Equal(t, 2, got.TotalCandidates)
	require.Len(t, got.Results, 2)

	idf := math.Log(1.5) + 1
	assert.Equal(t, "3", got.Results[0].ID)
	assert.InDelta(t, 1/math.Sqrt(1+idf*idf), got.Results[0].Score, 1e-9)
	assert.Equal(t, "1", got.Results[1].ID)
	assert.InDelta(t, 1/math.Sqrt(1+2*idf*idf), got.Results[1].Score, 1e-9)
	assert.Equal(t, "memory", got.Generation)
}

func TestSearchNoIndex(t *testing.T) {
	s := newSearcher(t)
	_, err := s.Search(context.Background(), "kucing", 5)
	assert.True(t, errors.Is(err, apperrors.ErrIndexNotFound))
	assert.False(t, s.Ready())
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newSearcher(t)
	require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus())))
	for _, q := range []string{"", "!!!123"} {
		_, err := s.Search(context.Background(), q, 5)
		assert.True(t, errors.Is(err, apperrors.ErrEmptyQuery), "query %q", q)
	}
}

func TestSearchNoMatch(t *testing.T) {
	s := newSearcher(t)
	require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus())))
	got, err := s.Search(context.Background(), "gajah", 5)
	require.NoError(t, err)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
	assert.Equal(t, 0, got.TotalCandidates)
}

func TestClampTopK(t *testing.T) {
	s := newSearcher(t)
	assert.Equal(t, 5, s.ClampTopK(0))
	assert.Equal(t, 5, s.ClampTopK(-3))
	assert.Equal(t, 3, s.ClampTopK(3))
	assert.Equal(t, 10, s.ClampTopK(500))
}

func TestCacheKey(t *testing.T) {
	s := newSearcher(t)
	require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus())))

	a, err := s.CacheKey("Kucing!!", 0)
	require.NoError(t, err)
	b, err := s.CacheKey("kucing", 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := s.CacheKey("kucing", 2)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = s.CacheKey("!!!", 5)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyQuery))
}

func TestSwapClosesPrevious(t *testing.T) {
	s := newSearcher(t)
	first := &closeCounter{Index: memoryIndex(t, indextest.Corpus())}
	require.NoError(t, s.Swap(first))
	require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus()[:1])))
	assert.Equal(t, 1, first.closed)

	got, err := s.Search(context.Background(), "kucing", 5)
	require.NoError(t, err)
	assert.Len(t, got.Results, 1)
	require.NoError(t, s.Close())
	assert.False(t, s.Ready())
}

func TestReloadMatchesFreshIndex(t *testing.T) {
	cfg := config.IndexerConfig{DataDir: t.TempDir(), Backend: indexer.BackendSegment, KeepGenerations: 1}
	_, err := indexer.Build(context.Background(), cfg, indextest.Corpus())
	require.NoError(t, err)

	persisted := newSearcher(t)
	require.NoError(t, persisted.Reload(cfg))
	defer persisted.Close()
	fresh := newSearcher(t)
	require.NoError(t, fresh.Swap(memoryIndex(t, indextest.Corpus())))

	for _, q := range []string{"kucing", "makan", "kucing makan", "anjing daging"} {
		want, err := fresh.Search(context.Background(), q, 5)
		require.NoError(t, err)
		got, err := persisted.Search(context.Background(), q, 5)
		require.NoError(t, err)
		assert.Equal(t, want.Results, got.Results, "query %q", q)
	}
}

func TestConcurrentSearchAndSwap(t *testing.T) {
	s := newSearcher(t)
	require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus())))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := s.Search(context.Background(), "kucing makan", 3)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Swap(memoryIndex(t, indextest.Corpus())))
	}
	wg.Wait()
}

func BenchmarkSearch(b *testing.B) {
	n, err := normalizer.New(config.NormalizerConfig{})
	if err != nil {
		b.Fatal(err)
	}
	cfg := searchConfig()
	s := New(resolver.New(n), ranker.New(cfg), cfg, nil, false)
	idx := index.NewMemoryIndex()
	bodies := []string{"kucing makan ikan", "anjing makan daging", "kucing tidur", "burung terbang tinggi"}
	for i := 0; i < 1000; i++ {
		if _, err := idx.AddDocument(index.Document{ID: fmt.Sprintf("doc-%d", i), Body: bodies[i%len(bodies)]}); err != nil {
			b.Fatal(err)
		}
	}
	if err := s.Swap(idx); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Search(context.Background(), "kucing makan", 5); err != nil {
			b.Fatal(err)
		}
	}
}
