package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

// MaxTopQueries caps the top parameter of the stats endpoint.
const MaxTopQueries = 100

// Handler serves the aggregated search and build statistics.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     logger.WithComponent("analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics/stats?top=<n>. top limits the query
// rankings to 1..MaxTopQueries entries and defaults to DefaultTopQueries.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top, err := parseTop(r.URL.Query().Get("top"))
	if err != nil {
		h.writeJSON(w, err.StatusCode, map[string]string{"error": err.Message})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, h.aggregator.StatsTop(top))
}

func parseTop(raw string) (int, *apperrors.AppError) {
	if raw == "" {
		return DefaultTopQueries, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxTopQueries {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"top must be an integer between 1 and %d", MaxTopQueries)
	}
	return n, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
