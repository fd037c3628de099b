// Package resolver turns a raw query into a candidate set: it normalizes the
// text and asks the index for every document matching at least one term.
package resolver

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
)

// Plan is a normalized query ready for the index.
type Plan struct {
	Raw   string
	Text  string
	Query index.Query
}

// Resolver normalizes queries and gathers candidates across Fields.
type Resolver struct {
	normalizer *normalizer.Normalizer
	fields     []index.Field
}

// New returns a Resolver targeting the title and body fields.
func New(n *normalizer.Normalizer) *Resolver {
	return &Resolver{normalizer: n, fields: index.DefaultFields}
}

// Parse normalizes raw. It fails with ErrEmptyQuery when nothing searchable
// is left.
func (r *Resolver) Parse(raw string) (*Plan, error) {
	terms := r.normalizer.Tokens(raw)
	if len(terms) == 0 {
		return nil, fmt.Errorf("query %q: %w", raw, apperrors.ErrEmptyQuery)
	}
	return &Plan{
		Raw:  raw,
		Text: r.normalizer.Normalize(raw),
		Query: index.Query{
			Terms:  terms,
			Fields: r.fields,
		},
	}, nil
}

// Resolve returns every candidate for raw, unlimited, in the index's
// provisional order, together with the normalized plan. Zero candidates is
// an empty slice and a nil error.
func (r *Resolver) Resolve(ctx context.Context, idx index.Index, raw string) ([]index.Document, *Plan, error) {
	plan, err := r.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	if idx == nil {
		return nil, plan, apperrors.ErrIndexNotFound
	}
	docs, err := idx.Candidates(ctx, plan.Query)
	if err != nil {
		return nil, plan, fmt.Errorf("resolving candidates: %w", err)
	}
	if docs == nil {
		docs = []index.Document{}
	}
	return docs, plan, nil
}
