// Package cleanstore caches normalized dataset records so a rebuild can skip
// normalization for datasets it has already seen. Every saved dataset carries
// a fingerprint of the source file and normalizer settings; records saved
// under a different fingerprint are treated as absent.
package cleanstore

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
)

// Store loads and saves the normalized records of one dataset at a time.
type Store interface {
	// Load returns the records saved for dataset under fingerprint. ok is
	// false when nothing has been saved or the saved fingerprint differs. A
	// dataset saved with no records loads as an empty slice with ok set.
	Load(ctx context.Context, dataset, fingerprint string) (records []ingestion.CleanRecord, ok bool, err error)
	// Save replaces the records of dataset and records fingerprint.
	Save(ctx context.Context, dataset, fingerprint string, records []ingestion.CleanRecord) error
}
