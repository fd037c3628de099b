// Package indexer builds and opens on-disk indexes. A build writes a complete
// generation through the store package and only then publishes it, so a
// reader never sees a partially built index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/bleveindex"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

const (
	BackendSegment = "segment"
	BackendBleve   = "bleve"
)

// BuildReport summarises a committed build.
type BuildReport struct {
	Generation string         `json:"generation"`
	Backend    string         `json:"backend"`
	Documents  int            `json:"documents"`
	Skipped    int            `json:"skipped"`
	Terms      map[string]int `json:"terms"`
	Duration   time.Duration  `json:"duration"`
}

// Build indexes docs into a new generation under cfg.DataDir and publishes
// it, replacing any previous index. Documents with an empty body are skipped.
// Every failure matches ErrIndexBuild and leaves the previously published
// generation (or none) in place.
func Build(ctx context.Context, cfg config.IndexerConfig, docs []index.Document) (*BuildReport, error) {
	start := time.Now()
	log := logger.WithComponent("indexer")
	backend := cfg.Backend
	if backend == "" {
		backend = BackendSegment
	}
	if backend != BackendSegment && backend != BackendBleve {
		return nil, apperrors.BuildError(fmt.Errorf("unknown backend %q", backend))
	}

	mem := index.NewMemoryIndex()
	skipped := 0
	for _, d := range docs {
		added, err := mem.AddDocument(d)
		if err != nil {
			return nil, apperrors.BuildError(err)
		}
		if !added {
			skipped++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.BuildError(err)
	}

	pending, err := store.New(cfg.DataDir, cfg.KeepGenerations).Begin()
	if err != nil {
		return nil, apperrors.BuildError(err)
	}
	report := &BuildReport{
		Generation: pending.Name(),
		Backend:    backend,
		Documents:  mem.DocCount(),
		Skipped:    skipped,
		Terms:      make(map[string]int, len(index.DefaultFields)),
	}
	if err := writeGeneration(ctx, backend, pending.Dir(), mem, report); err != nil {
		if abortErr := pending.Abort(); abortErr != nil {
			err = errors.Join(err, abortErr)
		}
		return nil, apperrors.BuildError(err)
	}
	if err := ctx.Err(); err != nil {
		pending.Abort()
		return nil, apperrors.BuildError(err)
	}

	fields := make([]string, 0, len(index.DefaultFields))
	for _, f := range index.DefaultFields {
		fields = append(fields, string(f))
	}
	if err := pending.Commit(store.Manifest{
		Backend:   backend,
		Fields:    fields,
		DocCount:  report.Documents,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		pending.Abort()
		return nil, apperrors.BuildError(err)
	}
	report.Duration = time.Since(start)
	log.Info("index built",
		"generation", report.Generation,
		"backend", backend,
		"docs", report.Documents,
		"skipped", report.Skipped,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func writeGeneration(ctx context.Context, backend, dir string, mem *index.MemoryIndex, report *BuildReport) error {
	for _, field := range index.DefaultFields {
		report.Terms[string(field)] = len(mem.Snapshot(field))
	}
	switch backend {
	case BackendBleve:
		return bleveindex.Write(ctx, dir, mem.Documents())
	default:
		w := segment.NewWriter(dir)
		for _, field := range index.DefaultFields {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := w.Write(field, mem.Snapshot(field)); err != nil {
				return fmt.Errorf("writing %s segment: %w", field, err)
			}
		}
		return segment.WriteDocuments(dir, mem.Documents())
	}
}
