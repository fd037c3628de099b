package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index/indextest"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
)

func setup(t *testing.T) (*Resolver, index.Index) {
	t.Helper()
	n, err := normalizer.New(config.NormalizerConfig{Stemmer: normalizer.StemmerIndonesian})
	require.NoError(t, err)
	idx := index.NewMemoryIndex()
	for _, d := range indextest.Corpus() {
		_, err := idx.AddDocument(d)
		require.NoError(t, err)
	}
	return New(n), idx
}

func TestResolveNormalizesQuery(t *testing.T) {
	r, idx := setup(t)
	docs, plan, err := r.Resolve(context.Background(), idx, "KUCING!!")
	require.NoError(t, err)
	assert.Equal(t, []string{"kucing"}, plan.Query.Terms)
	assert.Equal(t, index.DefaultFields, plan.Query.Fields)

	got := make([]string, 0, len(docs))
	for _, d := range docs {
		got = append(got, d.ID)
	}
	assert.Equal(t, []string{"3", "1"}, got)
}

func TestResolveUnion(t *testing.T) {
	r, idx := setup(t)
	docs, _, err := r.Resolve(context.Background(), idx, "kucing anjing")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestResolveEmptyQuery(t *testing.T) {
	r, idx := setup(t)
	for _, raw := range []string{"", "   ", "!!!123", "dan yang the"} {
		_, _, err := r.Resolve(context.Background(), idx, raw)
		assert.True(t, errors.Is(err, apperrors.ErrEmptyQuery), "query %q: %v", raw, err)
	}
}

func TestResolveNoMatches(t *testing.T) {
	r, idx := setup(t)
	docs, plan, err := r.Resolve(context.Background(), idx, "gajah")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.NotEmpty(t, plan.Text)
}

func TestResolveWithoutIndex(t *testing.T) {
	r, _ := setup(t)
	_, _, err := r.Resolve(context.Background(), nil, "kucing")
	assert.True(t, errors.Is(err, apperrors.ErrIndexNotFound))
}
