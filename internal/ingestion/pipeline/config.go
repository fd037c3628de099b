package pipeline

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/cleanstore"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/postgres"
)

// FromConfig wires a Pipeline from application configuration. Clean records
// go to PostgreSQL when it is enabled and to CSV files under
// dataset.cleanDir otherwise. The returned close function releases the
// database connection, if any.
func FromConfig(ctx context.Context, cfg *config.Config, n *normalizer.Normalizer, m *metrics.Metrics) (*Pipeline, func() error, error) {
	var (
		store   cleanstore.Store = cleanstore.NewFileStore(cfg.Dataset.CleanDir)
		closeFn                  = func() error { return nil }
	)
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting clean record store: %w", err)
		}
		pg := cleanstore.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		store, closeFn = pg, db.Close
	}
	return New(ingestion.NewLoader(cfg.Dataset), store, n, m), closeFn, nil
}
