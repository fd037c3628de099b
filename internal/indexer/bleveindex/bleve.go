// Package bleveindex is an index backend that delegates postings and
// provisional scoring to a bleve index stored inside the generation
// directory. Stored fields live in the shared document store.
package bleveindex

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

const (
	dirName   = "bleve"
	batchSize = 500
)

func newMapping() *mapping.IndexMappingImpl {
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = simple.Name
	fieldMapping.Store = false
	fieldMapping.IncludeInAll = false
	fieldMapping.IncludeTermVectors = false

	docMapping := bleve.NewDocumentMapping()
	for _, f := range index.DefaultFields {
		docMapping.AddFieldMappingsAt(string(f), fieldMapping)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = simple.Name
	return im
}

// Write builds a bleve index for docs under dir, plus the document store.
// docs must already be validated and carry non-empty bodies.
func Write(ctx context.Context, dir string, docs []index.Document) error {
	idx, err := bleve.New(filepath.Join(dir, dirName), newMapping())
	if err != nil {
		return fmt.Errorf("creating bleve index: %w", err)
	}
	batch := idx.NewBatch()
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			idx.Close()
			return err
		}
		fields := make(map[string]interface{}, len(index.DefaultFields))
		for _, f := range index.DefaultFields {
			fields[string(f)] = d.Text(f)
		}
		if err := batch.Index(d.ID, fields); err != nil {
			idx.Close()
			return fmt.Errorf("indexing document %s: %w", d.ID, err)
		}
		if batch.Size() >= batchSize || i == len(docs)-1 {
			if err := idx.Batch(batch); err != nil {
				idx.Close()
				return fmt.Errorf("committing bleve batch: %w", err)
			}
			batch.Reset()
		}
	}
	if err := idx.Close(); err != nil {
		return fmt.Errorf("closing bleve index: %w", err)
	}
	return segment.WriteDocuments(dir, docs)
}

// Index serves queries from a bleve index opened read-only.
type Index struct {
	idx        bleve.Index
	docs       []index.Document
	byID       map[string]int
	stats      index.Stats
	generation string
	logger     *slog.Logger
}

// Open loads the bleve index and document store written by Write.
func Open(dir, generation string) (*Index, error) {
	docs, err := segment.ReadDocuments(dir)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.OpenUsing(filepath.Join(dir, dirName), map[string]interface{}{
		"read_only": true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bleve index: %w", err)
	}
	b := &Index{
		idx:        idx,
		docs:       docs,
		byID:       make(map[string]int, len(docs)),
		generation: generation,
		logger:     logger.WithComponent("bleve-index").With("generation", generation),
	}
	b.stats = computeStats(docs)
	for i, d := range docs {
		b.byID[d.ID] = i
	}
	b.logger.Info("index opened", "docs", len(docs))
	return b, nil
}

func computeStats(docs []index.Document) index.Stats {
	stats := index.Stats{DocCount: len(docs), DocFreq: make(map[string]int)}
	total := 0
	for _, d := range docs {
		terms := strings.Fields(d.Body)
		total += len(terms)
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			stats.DocFreq[t]++
		}
	}
	if len(docs) > 0 {
		stats.AvgBodyLength = float64(total) / float64(len(docs))
	}
	return stats
}

// Candidates runs a disjunction of term queries over the targeted fields and
// returns every hit ordered by bleve's score, ties by ID.
func (b *Index) Candidates(ctx context.Context, q index.Query) ([]index.Document, error) {
	fields := q.Fields
	if len(fields) == 0 {
		fields = index.DefaultFields
	}
	var clauses []query.Query
	seen := make(map[string]struct{}, len(q.Terms))
	for _, term := range q.Terms {
		if _, dup := seen[term]; dup || term == "" {
			continue
		}
		seen[term] = struct{}{}
		for _, f := range fields {
			tq := bleve.NewTermQuery(term)
			tq.SetField(string(f))
			clauses = append(clauses, tq)
		}
	}
	if len(clauses) == 0 || len(b.docs) == 0 {
		return []index.Document{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(clauses...), len(b.docs), 0, false)
	req.SortBy([]string{"-_score", "_id"})
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	out := make([]index.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, ok := b.byID[hit.ID]
		if !ok {
			b.logger.Warn("hit references unknown document", "doc_id", hit.ID)
			continue
		}
		out = append(out, b.docs[i])
	}
	return out, nil
}

func (b *Index) Document(id string) (index.Document, bool) {
	i, ok := b.byID[id]
	if !ok {
		return index.Document{}, false
	}
	return b.docs[i], true
}

func (b *Index) Stats() index.Stats { return b.stats }

func (b *Index) Generation() string { return b.generation }

func (b *Index) Close() error {
	var err error
	if cErr := b.idx.Close(); cErr != nil {
		err = multierror.Append(err, cErr)
	}
	return err
}

var _ index.Index = (*Index)(nil)
