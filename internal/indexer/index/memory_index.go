package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex accumulates postings for every field in memory. Build paths
// fill one and then snapshot it to disk; it also serves queries directly.
type MemoryIndex struct {
	mu        sync.RWMutex
	fields    map[Field]map[string]map[string]*Posting
	fieldLens map[Field]map[string]int
	fieldSums map[Field]int
	docs      []Document
	byID      map[string]int
}

func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{}
	m.Reset()
	return m
}

// AddDocument indexes doc's title and body terms. Documents with an empty
// body are skipped and reported with added == false.
func (m *MemoryIndex) AddDocument(doc Document) (added bool, err error) {
	if strings.TrimSpace(doc.ID) == "" {
		return false, ErrMissingID
	}
	if strings.TrimSpace(doc.Body) == "" {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[doc.ID]; exists {
		return false, fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
	}
	for _, field := range DefaultFields {
		terms := strings.Fields(doc.Text(field))
		m.fieldLens[field][doc.ID] = len(terms)
		m.fieldSums[field] += len(terms)

		postings := m.fields[field]
		for _, term := range terms {
			docs, ok := postings[term]
			if !ok {
				docs = make(map[string]*Posting)
				postings[term] = docs
			}
			p, ok := docs[doc.ID]
			if !ok {
				p = &Posting{DocID: doc.ID}
				docs[doc.ID] = p
			}
			p.Frequency++
		}
	}
	m.byID[doc.ID] = len(m.docs)
	m.docs = append(m.docs, doc)
	return true, nil
}

// Postings returns the postings of term in field sorted by document ID.
func (m *MemoryIndex) Postings(field Field, term string) (PostingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.fields[field][term]
	if !exists {
		return nil, nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result, nil
}

// Snapshot returns the sorted term dictionary of field with sorted postings.
func (m *MemoryIndex) Snapshot(field Field) []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	index := m.fields[field]
	entries := make([]TermEntry, 0, len(index))
	for term, docs := range index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Documents returns the stored documents in insertion order.
func (m *MemoryIndex) Documents() []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, len(m.docs))
	copy(out, m.docs)
	return out
}

func (m *MemoryIndex) FieldLength(field Field, docID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fieldLens[field][docID]
}

func (m *MemoryIndex) AvgFieldLength(field Field) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.docs) == 0 {
		return 0
	}
	return float64(m.fieldSums[field]) / float64(len(m.docs))
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Candidates(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranked, err := RankCandidates(m, q)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, m.docs[m.byID[r.DocID]])
	}
	return out, nil
}

func (m *MemoryIndex) Document(id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return Document{}, false
	}
	return m.docs[i], true
}

func (m *MemoryIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	df := make(map[string]int, len(m.fields[FieldBody]))
	for term, docs := range m.fields[FieldBody] {
		df[term] = len(docs)
	}
	stats := Stats{DocCount: len(m.docs), DocFreq: df}
	if len(m.docs) > 0 {
		stats.AvgBodyLength = float64(m.fieldSums[FieldBody]) / float64(len(m.docs))
	}
	return stats
}

func (m *MemoryIndex) Generation() string { return "memory" }

func (m *MemoryIndex) Close() error { return nil }

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = make(map[Field]map[string]map[string]*Posting, len(DefaultFields))
	m.fieldLens = make(map[Field]map[string]int, len(DefaultFields))
	m.fieldSums = make(map[Field]int, len(DefaultFields))
	for _, f := range DefaultFields {
		m.fields[f] = make(map[string]map[string]*Posting)
		m.fieldLens[f] = make(map[string]int)
	}
	m.docs = nil
	m.byID = make(map[string]int)
}

var _ Index = (*MemoryIndex)(nil)
