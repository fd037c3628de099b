// Package validator checks dataset records before they are normalized and
// returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
)

const (
	maxTitleLength   = 1024
	maxContentLength = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateRecord checks that rec identifies its source and carries text
// within the size limits.
func ValidateRecord(rec ingestion.Record) error {
	errs := make(map[string]string)

	if strings.TrimSpace(rec.Dataset) == "" {
		errs["dataset"] = "dataset is required"
	}
	if rec.Row < 0 {
		errs["row"] = "row must not be negative"
	}
	if len(rec.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	content := strings.TrimSpace(rec.Content)
	if content == "" {
		errs["content"] = "content is required and must not be empty"
	} else if len(content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
