package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewIsolated()
	m.SearchQueriesTotal.WithLabelValues("ok").Inc()
	m.IndexBuildsTotal.WithLabelValues("success").Inc()
	m.IndexedDocuments.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `search_queries_total{result_type="ok"} 1`)
	assert.Contains(t, string(body), `index_builds_total{status="success"} 1`)
	assert.Contains(t, string(body), "indexed_documents 3")
}

func TestNewIsolatedTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewIsolated()
		NewIsolated()
	})
}
