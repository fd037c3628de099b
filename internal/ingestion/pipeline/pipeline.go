// Package pipeline turns the dataset directory into index documents and
// builds the index from them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/cleanstore"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
)

// Pipeline loads datasets, normalizes them (or reuses cached clean records)
// and produces documents.
type Pipeline struct {
	loader     *ingestion.Loader
	store      cleanstore.Store
	normalizer *normalizer.Normalizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Pipeline. m may be nil.
func New(loader *ingestion.Loader, store cleanstore.Store, n *normalizer.Normalizer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		loader:     loader,
		store:      store,
		normalizer: n,
		metrics:    m,
		logger:     slog.Default().With("component", "ingestion-pipeline"),
	}
}

// Run returns the documents of every dataset in file order. Datasets are
// prepared in parallel; a dataset without a content column is skipped with a
// warning, any other failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) ([]index.Document, error) {
	datasets, err := p.loader.Discover()
	if err != nil {
		return nil, err
	}

	perDataset := make([][]index.Document, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ds := range datasets {
		g.Go(func() error {
			docs, err := p.dataset(gctx, ds)
			if err != nil {
				if errors.Is(err, ingestion.ErrNoContentColumn) {
					p.logger.Warn("skipping dataset without a text column", "dataset", ds.Name, "file", ds.Path)
					return nil
				}
				return fmt.Errorf("dataset %s: %w", ds.Name, err)
			}
			perDataset[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []index.Document
	for _, d := range perDataset {
		docs = append(docs, d...)
	}
	p.logger.Info("datasets prepared", "datasets", len(datasets), "documents", len(docs))
	return docs, nil
}

// BuildIndex runs the pipeline and builds a new index generation from its
// output.
func (p *Pipeline) BuildIndex(ctx context.Context, cfg config.IndexerConfig) (*indexer.BuildReport, error) {
	start := time.Now()
	report, err := p.buildIndex(ctx, cfg)
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		p.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
		p.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	}
	return report, err
}

func (p *Pipeline) buildIndex(ctx context.Context, cfg config.IndexerConfig) (*indexer.BuildReport, error) {
	docs, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	return indexer.Build(ctx, cfg, docs)
}

// fingerprint ties cached clean records to the source file and to the
// normalizer settings that produced them.
func (p *Pipeline) fingerprint(ds ingestion.Dataset) (string, error) {
	sum, err := p.loader.Fingerprint(ds)
	if err != nil {
		return "", err
	}
	return sum + ";" + p.normalizer.Signature(), nil
}

func (p *Pipeline) dataset(ctx context.Context, ds ingestion.Dataset) ([]index.Document, error) {
	fp, err := p.fingerprint(ds)
	if err != nil {
		return nil, err
	}
	clean, ok, err := p.store.Load(ctx, ds.Name, fp)
	if err != nil {
		return nil, fmt.Errorf("loading clean records: %w", err)
	}
	if ok {
		p.logger.Info("reusing clean records", "dataset", ds.Name, "records", len(clean))
	} else {
		clean, err = p.normalize(ctx, ds)
		if err != nil {
			return nil, err
		}
		if err := p.store.Save(ctx, ds.Name, fp, clean); err != nil {
			return nil, fmt.Errorf("saving clean records: %w", err)
		}
		p.logger.Info("dataset normalized", "dataset", ds.Name, "records", len(clean))
	}

	docs := make([]index.Document, 0, len(clean))
	for _, rec := range clean {
		if rec.CleanText == "" {
			continue
		}
		source := rec.Source
		if source == "" {
			source = ds.Name
		}
		docs = append(docs, index.Document{
			ID:         ingestion.DocumentID(ds.Name, rec.Row),
			Title:      rec.Title,
			TitleTerms: p.normalizer.Normalize(rec.Title),
			Body:       rec.CleanText,
			Source:     source,
		})
	}
	return docs, nil
}

func (p *Pipeline) normalize(ctx context.Context, ds ingestion.Dataset) ([]ingestion.CleanRecord, error) {
	records, err := p.loader.ReadFile(ctx, ds)
	if err != nil {
		return nil, err
	}
	clean := make([]ingestion.CleanRecord, 0, len(records))
	for _, rec := range records {
		if err := validator.ValidateRecord(rec); err != nil {
			p.logger.Warn("skipping invalid record", "dataset", ds.Name, "row", rec.Row, "error", err)
			continue
		}
		clean = append(clean, ingestion.CleanRecord{
			Title:     rec.Title,
			CleanText: p.normalizer.Normalize(rec.Content),
			Dataset:   rec.Dataset,
			File:      rec.File,
			Row:       rec.Row,
			Source:    rec.Dataset,
		})
	}
	return clean, nil
}
