package index

import (
	"fmt"
	"math"
	"sort"
)

const (
	k1 = 1.2
	b  = 0.75
)

// PostingSource is the read side a backend exposes to RankCandidates.
type PostingSource interface {
	Postings(field Field, term string) (PostingList, error)
	FieldLength(field Field, docID string) int
	AvgFieldLength(field Field) float64
	DocCount() int
}

// ScoredID is a document ID with its provisional relevance.
type ScoredID struct {
	DocID string
	Score float64
}

// RankCandidates unions the postings of every query term across the targeted
// fields and orders the matching documents by BM25 summed over fields, ties
// broken by document ID. The order is provisional; the re-ranker replaces it.
func RankCandidates(src PostingSource, q Query) ([]ScoredID, error) {
	fields := q.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	terms := uniqueTerms(q.Terms)
	total := int64(src.DocCount())

	scores := make(map[string]float64)
	for _, field := range fields {
		avg := src.AvgFieldLength(field)
		for _, term := range terms {
			postings, err := src.Postings(field, term)
			if err != nil {
				return nil, fmt.Errorf("looking up %s:%s: %w", field, term, err)
			}
			if len(postings) == 0 {
				continue
			}
			idf := computeIDF(total, int64(len(postings)))
			for _, p := range postings {
				tfNorm := computeTFNorm(
					float64(p.Frequency),
					float64(src.FieldLength(field, p.DocID)),
					avg,
				)
				scores[p.DocID] += idf * tfNorm
			}
		}
	}

	result := make([]ScoredID, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredID{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result, nil
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
