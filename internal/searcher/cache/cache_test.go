package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
)

type memoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	v, ok := b.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.data[key] = value
	return nil
}

func (b *memoryBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func sample() *executor.SearchResult {
	return &executor.SearchResult{
		Query:           "kucing",
		Terms:           []string{"kucing"},
		Generation:      "gen-1",
		TotalCandidates: 2,
		Results: []ranker.ScoredDoc{
			{ID: "3", Title: "Doc 3", Source: "hewan", Score: 0.5797},
		},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(newMemoryBackend(), time.Minute, metrics.NewIsolated())
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return sample(), nil
	}

	first, hit, err := c.GetOrCompute(context.Background(), "gen-1|kucing|k=5", compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute(context.Background(), "gen-1|kucing|k=5", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newMemoryBackend(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "k", func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestGetOrComputeSingleflight(t *testing.T) {
	c := New(newMemoryBackend(), time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sample(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "same", compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestBackendFailureFallsThrough(t *testing.T) {
	backend := newMemoryBackend()
	backend.err = errors.New("connection refused")
	c := New(backend, time.Minute, nil)

	for i := 0; i < 10; i++ {
		result, hit, err := c.GetOrCompute(context.Background(), "k", func() (*executor.SearchResult, error) {
			return sample(), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "kucing", result.Query)
	}
}

func TestInvalidate(t *testing.T) {
	backend := newMemoryBackend()
	c := New(backend, time.Minute, nil)
	c.Set(context.Background(), "a", sample())
	c.Set(context.Background(), "b", sample())
	require.Len(t, backend.data, 2)

	require.NoError(t, c.Invalidate(context.Background()))
	assert.Empty(t, backend.data)
	_, ok := c.Get(context.Background(), "a")
	assert.False(t, ok)
}

func TestKeysDifferByGeneration(t *testing.T) {
	assert.NotEqual(t, buildKey("gen-1|kucing|k=5"), buildKey("gen-2|kucing|k=5"))
	assert.True(t, strings.HasPrefix(buildKey("x"), keyPrefix))
}
