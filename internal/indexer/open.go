package indexer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/bleveindex"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
)

// Open loads the generation currently published under cfg.DataDir. The
// backend is taken from the generation's manifest, not from cfg. It fails
// with ErrIndexNotFound when no build has been committed.
func Open(cfg config.IndexerConfig) (index.Index, error) {
	m, dir, err := store.New(cfg.DataDir, cfg.KeepGenerations).Current()
	if err != nil {
		return nil, err
	}
	switch m.Backend {
	case BackendBleve:
		return bleveindex.Open(dir, m.Generation)
	case BackendSegment, "":
		return OpenEngine(dir, m.Generation)
	default:
		return nil, fmt.Errorf("generation %s has unknown backend %q", m.Generation, m.Backend)
	}
}
