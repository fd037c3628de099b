// Package ranker re-orders a candidate set by cosine similarity between the
// query and each candidate body in a vector space fit on the candidates.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
)

// DefaultTopK is used when a caller asks for fewer than one result.
const DefaultTopK = 5

// IDFScope selects where document frequencies come from.
type IDFScope string

const (
	// ScopeCandidates counts document frequency over the candidate set only.
	ScopeCandidates IDFScope = "candidates"
	// ScopeCorpus uses the statistics of the whole index.
	ScopeCorpus IDFScope = "corpus"
)

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Reranker holds the weighting options. It carries no state between calls
// and is safe for concurrent use.
type Reranker struct {
	Weighting   Weighting
	IDFScope    IDFScope
	DefaultTopK int
}

// New builds a Reranker from search configuration.
func New(cfg config.SearchConfig) *Reranker {
	return &Reranker{
		Weighting:   Weighting(cfg.Weighting),
		IDFScope:    IDFScope(cfg.IDFScope),
		DefaultTopK: cfg.DefaultTopK,
	}
}

// Rerank scores every candidate against query, sorts by score descending
// keeping candidate order on ties, and truncates to topK. stats is only
// consulted with ScopeCorpus. No candidates yields an empty result.
func (r *Reranker) Rerank(query string, candidates []index.Document, topK int, stats index.Stats) []ScoredDoc {
	if topK < 1 {
		topK = r.DefaultTopK
		if topK < 1 {
			topK = DefaultTopK
		}
	}
	if len(candidates) == 0 {
		return []ScoredDoc{}
	}

	bodies := make([]string, len(candidates))
	for i, d := range candidates {
		bodies[i] = d.Body
	}
	weighting := r.Weighting
	if weighting == "" {
		weighting = WeightTFIDF
	}
	v := NewVectorizer(weighting)
	if r.IDFScope == ScopeCorpus && stats.DocCount > 0 {
		v.FitCorpus(bodies, stats)
	} else {
		v.Fit(bodies)
	}

	q := v.Transform(query)
	result := make([]ScoredDoc, len(candidates))
	for i, d := range candidates {
		result[i] = ScoredDoc{
			ID:     d.ID,
			Title:  d.Title,
			Source: d.Source,
			Score:  CosineSimilarity(q, v.Transform(bodies[i])),
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if len(result) > topK {
		result = result[:topK]
	}
	return result
}
