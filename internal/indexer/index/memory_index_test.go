package index_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gc "gopkg.in/check.v1"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index/indextest"
)

var _ = gc.Suite(new(MemoryIndexTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type MemoryIndexTestSuite struct {
	indextest.SuiteBase
}

func (s *MemoryIndexTestSuite) SetUpTest(c *gc.C) {
	s.SetBuilder(func(docs []index.Document) (index.Index, error) {
		mi := index.NewMemoryIndex()
		for _, d := range docs {
			if _, err := mi.AddDocument(d); err != nil {
				return nil, err
			}
		}
		return mi, nil
	})
}

func TestAddDocumentCountsRepeatedTerms(t *testing.T) {
	mi := index.NewMemoryIndex()
	added, err := mi.AddDocument(index.Document{ID: "a", TitleTerms: "kucing", Body: "kucing kucing ikan"})
	require.NoError(t, err)
	assert.True(t, added)

	body, err := mi.Postings(index.FieldBody, "kucing")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: "a", Frequency: 2}}, body)

	title, err := mi.Postings(index.FieldTitle, "kucing")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: "a", Frequency: 1}}, title)
	assert.Equal(t, 3, mi.FieldLength(index.FieldBody, "a"))
}

func TestAddDocumentSkipsEmptyBody(t *testing.T) {
	mi := index.NewMemoryIndex()
	added, err := mi.AddDocument(index.Document{ID: "a", TitleTerms: "judul", Body: "   "})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 0, mi.DocCount())
	assert.Empty(t, mi.Snapshot(index.FieldTitle))
}

func TestAddDocumentRejectsBadIDs(t *testing.T) {
	mi := index.NewMemoryIndex()
	_, err := mi.AddDocument(index.Document{Body: "kucing"})
	assert.True(t, errors.Is(err, index.ErrMissingID))

	_, err = mi.AddDocument(index.Document{ID: "a", Body: "kucing"})
	require.NoError(t, err)
	_, err = mi.AddDocument(index.Document{ID: "a", Body: "anjing"})
	assert.True(t, errors.Is(err, index.ErrDuplicateID))
}

func TestSnapshotIsSorted(t *testing.T) {
	mi := index.NewMemoryIndex()
	for _, d := range indextest.Corpus() {
		_, err := mi.AddDocument(d)
		require.NoError(t, err)
	}
	snap := mi.Snapshot(index.FieldBody)
	terms := make([]string, 0, len(snap))
	for _, e := range snap {
		terms = append(terms, e.Term)
	}
	assert.Equal(t, []string{"anjing", "daging", "ikan", "kucing", "makan", "tidur"}, terms)
	assert.Equal(t, index.PostingList{{DocID: "1", Frequency: 1}, {DocID: "3", Frequency: 1}}, snap[3].Postings)
}

func TestReset(t *testing.T) {
	mi := index.NewMemoryIndex()
	_, err := mi.AddDocument(index.Document{ID: "a", Body: "kucing"})
	require.NoError(t, err)
	mi.Reset()
	assert.Equal(t, 0, mi.DocCount())
	_, ok := mi.Document("a")
	assert.False(t, ok)
}
