// Package indextest holds a conformance suite that every index backend runs
// against its own build function.
package indextest

import (
	"context"

	gc "gopkg.in/check.v1"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
)

// BuildFunc builds a queryable index from already normalized documents.
type BuildFunc func(docs []index.Document) (index.Index, error)

// SuiteBase defines re-usable index tests that can be executed against any
// index.Index implementation.
type SuiteBase struct {
	build BuildFunc
	open  []index.Index
}

// SetBuilder configures the suite to build indexes with fn.
func (s *SuiteBase) SetBuilder(fn BuildFunc) {
	s.build = fn
}

// TearDownTest closes every index built by the last test.
func (s *SuiteBase) TearDownTest(c *gc.C) {
	for _, idx := range s.open {
		c.Assert(idx.Close(), gc.IsNil)
	}
	s.open = nil
}

func (s *SuiteBase) mustBuild(c *gc.C, docs []index.Document) index.Index {
	idx, err := s.build(docs)
	c.Assert(err, gc.IsNil)
	s.open = append(s.open, idx)
	return idx
}

// Corpus is the three-document corpus used throughout the suite.
func Corpus() []index.Document {
	return []index.Document{
		{ID: "1", Title: "Doc 1", Body: "kucing makan ikan", Source: "hewan"},
		{ID: "2", Title: "Doc 2", Body: "anjing makan daging", Source: "hewan"},
		{ID: "3", Title: "Doc 3", Body: "kucing tidur", Source: "hewan"},
	}
}

func ids(docs []index.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func query(terms ...string) index.Query {
	return index.Query{Terms: terms, Fields: index.DefaultFields}
}

// TestCandidatesSingleTerm verifies that only documents holding the term are
// returned.
func (s *SuiteBase) TestCandidatesSingleTerm(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	got, err := idx.Candidates(context.Background(), query("kucing"))
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.HasLen, 2)
	c.Assert(ids(got), gc.DeepEquals, []string{"3", "1"})
}

// TestCandidatesUnion verifies OR semantics across terms.
func (s *SuiteBase) TestCandidatesUnion(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	got, err := idx.Candidates(context.Background(), query("tidur", "daging"))
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.HasLen, 2)
	seen := map[string]bool{}
	for _, d := range got {
		seen[d.ID] = true
	}
	c.Assert(seen["2"] && seen["3"], gc.Equals, true)
}

// TestCandidatesNoMatch verifies that a term absent from every document yields
// an empty result rather than an error.
func (s *SuiteBase) TestCandidatesNoMatch(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	got, err := idx.Candidates(context.Background(), query("gajah"))
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 0)
}

// TestCandidatesPreferMoreMatches verifies the provisional order favours
// documents matching more query terms.
func (s *SuiteBase) TestCandidatesPreferMoreMatches(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	got, err := idx.Candidates(context.Background(), query("kucing", "ikan"))
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 2)
	c.Assert(got[0].ID, gc.Equals, "1")
}

// TestCandidatesTitleOnly verifies that a term present only in the title
// field still matches.
func (s *SuiteBase) TestCandidatesTitleOnly(c *gc.C) {
	docs := Corpus()
	docs[1].TitleTerms = "berita"
	idx := s.mustBuild(c, docs)

	got, err := idx.Candidates(context.Background(), query("berita"))
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.DeepEquals, []string{"2"})

	got, err = idx.Candidates(context.Background(), index.Query{
		Terms:  []string{"berita"},
		Fields: []index.Field{index.FieldBody},
	})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 0)
}

// TestStoredFields verifies that stored fields come back unchanged.
func (s *SuiteBase) TestStoredFields(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	doc, ok := idx.Document("2")
	c.Assert(ok, gc.Equals, true)
	c.Assert(doc, gc.DeepEquals, Corpus()[1])

	_, ok = idx.Document("404")
	c.Assert(ok, gc.Equals, false)
}

// TestStats verifies corpus statistics over the body field.
func (s *SuiteBase) TestStats(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	stats := idx.Stats()
	c.Assert(stats.DocCount, gc.Equals, 3)
	c.Assert(stats.DocFreq["kucing"], gc.Equals, 2)
	c.Assert(stats.DocFreq["makan"], gc.Equals, 2)
	c.Assert(stats.DocFreq["tidur"], gc.Equals, 1)
	c.Assert(stats.AvgBodyLength, gc.Equals, 8.0/3.0)
}

// TestDeterministicOrder verifies that repeated queries return the same order.
func (s *SuiteBase) TestDeterministicOrder(c *gc.C) {
	idx := s.mustBuild(c, Corpus())

	first, err := idx.Candidates(context.Background(), query("makan", "kucing"))
	c.Assert(err, gc.IsNil)
	for i := 0; i < 5; i++ {
		again, err := idx.Candidates(context.Background(), query("makan", "kucing"))
		c.Assert(err, gc.IsNil)
		c.Assert(ids(again), gc.DeepEquals, ids(first))
	}
}
