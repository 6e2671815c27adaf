package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-tracker/internal/middleware"
	"github.com/capitalize-ai/event-tracker/internal/service"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

// FacetHandler serves the cached filter values.
type FacetHandler struct {
	query  *service.QueryService
	logger *logger.Logger
}

// NewFacetHandler creates a new facet handler.
func NewFacetHandler(query *service.QueryService, log *logger.Logger) *FacetHandler {
	return &FacetHandler{
		query:  query,
		logger: log,
	}
}

// Get handles GET /api/v1/filter-values. It answers 204 until the first refresh.
func (h *FacetHandler) Get(w http.ResponseWriter, r *http.Request) {
	facets, err := h.query.Facets(r.Context())
	if err != nil {
		internalError(w, r, h.logger, "failed to read filter values", err)
		return
	}
	if facets == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, facets)
}

// Refresh handles POST /api/v1/admin/filter-values/refresh
func (h *FacetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshedAt, err := h.query.RefreshFacets(r.Context())
	if err != nil {
		internalError(w, r, h.logger, "failed to refresh filter values", err)
		return
	}

	h.logger.Info("filter values refreshed",
		zap.String("user_id", middleware.GetUserID(r.Context())),
		zap.Time("refreshed_at", refreshedAt),
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refreshedAt": refreshedAt,
	})
}
