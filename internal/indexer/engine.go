package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

// Engine serves queries from one committed segment generation. It is
// immutable after OpenEngine returns.
type Engine struct {
	readers    map[index.Field]*segment.Reader
	docs       []index.Document
	byID       map[string]int
	fieldLens  map[index.Field]map[string]int
	fieldSums  map[index.Field]int
	stats      index.Stats
	generation string
	logger     *slog.Logger
}

// OpenEngine loads the field segments and document store found in dir.
func OpenEngine(dir, generation string) (*Engine, error) {
	e := &Engine{
		readers:    make(map[index.Field]*segment.Reader, len(index.DefaultFields)),
		byID:       make(map[string]int),
		fieldLens:  make(map[index.Field]map[string]int, len(index.DefaultFields)),
		fieldSums:  make(map[index.Field]int, len(index.DefaultFields)),
		generation: generation,
		logger:     logger.WithComponent("indexer").With("generation", generation),
	}
	for _, field := range index.DefaultFields {
		reader, err := segment.OpenReader(filepath.Join(dir, segment.FileName(field)))
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("opening %s segment: %w", field, err)
		}
		e.readers[field] = reader
		e.logger.Debug("segment loaded", "field", field, "terms", reader.Terms(), "docs", reader.DocCount())
	}

	docs, err := segment.ReadDocuments(dir)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.docs = docs
	for i, d := range docs {
		e.byID[d.ID] = i
	}
	for _, field := range index.DefaultFields {
		lens := make(map[string]int, len(docs))
		for _, d := range docs {
			n := len(strings.Fields(d.Text(field)))
			lens[d.ID] = n
			e.fieldSums[field] += n
		}
		e.fieldLens[field] = lens
	}
	e.stats = index.Stats{
		DocCount: len(docs),
		DocFreq:  e.readers[index.FieldBody].DocFreqs(),
	}
	if len(docs) > 0 {
		e.stats.AvgBodyLength = float64(e.fieldSums[index.FieldBody]) / float64(len(docs))
	}
	e.logger.Info("index opened", "docs", len(docs), "body_terms", e.readers[index.FieldBody].Terms())
	return e, nil
}

func (e *Engine) Postings(field index.Field, term string) (index.PostingList, error) {
	reader, ok := e.readers[field]
	if !ok {
		return nil, nil
	}
	return reader.Search(term)
}

func (e *Engine) FieldLength(field index.Field, docID string) int {
	return e.fieldLens[field][docID]
}

func (e *Engine) AvgFieldLength(field index.Field) float64 {
	if len(e.docs) == 0 {
		return 0
	}
	return float64(e.fieldSums[field]) / float64(len(e.docs))
}

func (e *Engine) DocCount() int {
	return len(e.docs)
}

func (e *Engine) Candidates(ctx context.Context, q index.Query) ([]index.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranked, err := index.RankCandidates(e, q)
	if err != nil {
		return nil, err
	}
	out := make([]index.Document, 0, len(ranked))
	for _, r := range ranked {
		i, ok := e.byID[r.DocID]
		if !ok {
			e.logger.Warn("posting references unknown document", "doc_id", r.DocID)
			continue
		}
		out = append(out, e.docs[i])
	}
	return out, nil
}

func (e *Engine) Document(id string) (index.Document, bool) {
	i, ok := e.byID[id]
	if !ok {
		return index.Document{}, false
	}
	return e.docs[i], true
}

func (e *Engine) Stats() index.Stats {
	return e.stats
}

func (e *Engine) Generation() string {
	return e.generation
}

func (e *Engine) Close() error {
	var err error
	for field, reader := range e.readers {
		if cErr := reader.Close(); cErr != nil {
			err = multierror.Append(err, fmt.Errorf("closing %s segment: %w", field, cErr))
		}
	}
	e.readers = nil
	return err
}

var _ index.Index = (*Engine)(nil)
