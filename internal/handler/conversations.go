// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/capitalize-ai/event-tracker/internal/middleware"
	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/internal/service"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	query  *service.QueryService
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(query *service.QueryService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		query:  query,
		logger: log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, to, err := middleware.ParseTimeWindow(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageable, err := middleware.ParsePageable(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statuses, err := middleware.ParseStatuses(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidatePattern("cpaId", q.Get("cpaId")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := model.ConversationStatusFilter{
		CpaIDPattern: q.Get("cpaId"),
		Service:      q.Get("service"),
		Statuses:     statuses,
	}

	page, err := h.query.ConversationStatusInfo(r.Context(), from, to, filter, pageable)
	if err != nil {
		internalError(w, r, h.logger, "failed to list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}
