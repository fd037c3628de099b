package ranker

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
)

// Weighting selects how a term count becomes a vector component.
type Weighting string

const (
	// WeightTF uses raw term counts.
	WeightTF Weighting = "tf"
	// WeightTFIDF multiplies counts by a smoothed inverse document frequency.
	WeightTFIDF Weighting = "tfidf"
)

// Vectorizer maps normalized text onto a fixed vocabulary. Fit must be
// called before Transform.
type Vectorizer struct {
	Weighting  Weighting
	Vocabulary map[string]int
	IDF        []float64
}

func NewVectorizer(w Weighting) *Vectorizer {
	return &Vectorizer{
		Weighting:  w,
		Vocabulary: make(map[string]int),
	}
}

// Fit builds the vocabulary from docs and, for TF-IDF, document
// frequencies counted over docs themselves.
func (v *Vectorizer) Fit(docs []string) {
	df := v.buildVocabulary(docs)
	v.computeIDF(len(docs), func(term string) int { return df[term] })
}

// FitCorpus builds the vocabulary from docs but takes document frequencies
// from corpus-wide statistics.
func (v *Vectorizer) FitCorpus(docs []string, stats index.Stats) {
	v.buildVocabulary(docs)
	v.computeIDF(stats.DocCount, func(term string) int { return stats.DocFreq[term] })
}

func (v *Vectorizer) buildVocabulary(docs []string) map[string]int {
	v.Vocabulary = make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range strings.Fields(doc) {
			if _, ok := v.Vocabulary[term]; !ok {
				v.Vocabulary[term] = len(v.Vocabulary)
			}
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}
	return df
}

// computeIDF sets idf = ln((1+n)/(1+df)) + 1 per vocabulary term, or 1 for
// plain TF weighting.
func (v *Vectorizer) computeIDF(n int, docFreq func(string) int) {
	v.IDF = make([]float64, len(v.Vocabulary))
	for term, i := range v.Vocabulary {
		if v.Weighting != WeightTFIDF {
			v.IDF[i] = 1
			continue
		}
		v.IDF[i] = math.Log(float64(1+n)/float64(1+docFreq(term))) + 1
	}
}

// Transform returns the weight vector of text. Terms outside the vocabulary
// are ignored.
func (v *Vectorizer) Transform(text string) []float64 {
	vector := make([]float64, len(v.Vocabulary))
	for _, term := range strings.Fields(text) {
		if i, ok := v.Vocabulary[term]; ok {
			vector[i] += v.IDF[i]
		}
	}
	return vector
}

// CosineSimilarity returns dot(a, b) / (|a| |b|), or 0 when either vector
// has zero norm. Rounding can push parallel vectors past 1, so the result is
// capped there.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return math.Min(1, dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
