// Package index defines the document, posting and query types shared by every
// index backend, plus the in-memory builder the backends are written from.
package index

import (
	"context"
	"errors"
)

var (
	// ErrMissingID is returned when a document without an ID is added.
	ErrMissingID = errors.New("document has no id")

	// ErrDuplicateID is returned when two documents share an ID.
	ErrDuplicateID = errors.New("duplicate document id")
)

// Field names an indexed field. Title and body are indexed separately so a
// title-only match is possible.
type Field string

const (
	FieldTitle Field = "title"
	FieldBody  Field = "body"
)

// DefaultFields are the fields a query targets when none are given.
var DefaultFields = []Field{FieldTitle, FieldBody}

// Document is the unit of retrieval. TitleTerms and Body hold normalized
// text; Title and Source are display-only.
type Document struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TitleTerms string `json:"title_terms"`
	Body       string `json:"body"`
	Source     string `json:"source"`
}

// Text returns the normalized text stored for field.
func (d Document) Text(field Field) string {
	switch field {
	case FieldTitle:
		return d.TitleTerms
	case FieldBody:
		return d.Body
	default:
		return ""
	}
}

// Query is a normalized token sequence and the fields it targets.
type Query struct {
	Terms  []string
	Fields []Field
}

// Stats summarises the body field of the whole corpus. The re-ranker uses it
// when IDF is computed over the corpus rather than the candidate set.
type Stats struct {
	DocCount      int            `json:"doc_count"`
	DocFreq       map[string]int `json:"-"`
	AvgBodyLength float64        `json:"avg_body_length"`
}

// Index is a fully built, read-only index.
type Index interface {
	// Candidates returns every document containing at least one query term
	// in any targeted field, ordered by the backend's provisional relevance.
	// No match yields an empty slice and a nil error.
	Candidates(ctx context.Context, q Query) ([]Document, error)
	Document(id string) (Document, bool)
	Stats() Stats
	// Generation identifies the build that produced the index.
	Generation() string
	Close() error
}
