package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
)

func TestValidateRecordOK(t *testing.T) {
	err := ValidateRecord(ingestion.Record{Title: "Doc", Content: "Doc - kucing", Dataset: "hewan", Row: 0})
	assert.NoError(t, err)
}

func TestValidateRecordFields(t *testing.T) {
	err := ValidateRecord(ingestion.Record{Title: strings.Repeat("x", maxTitleLength+1), Row: -1})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
	assert.Contains(t, verr.Fields, "dataset")
	assert.Contains(t, verr.Fields, "row")
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "content")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.True(t, strings.HasPrefix(err.Error(), "content: "))
}
