package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/event-tracker/internal/middleware"
	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/internal/service"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	query      *service.QueryService
	duplicates *service.DuplicateChecker
	logger     *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(query *service.QueryService, duplicates *service.DuplicateChecker, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		query:      query,
		duplicates: duplicates,
		logger:     log,
	}
}

// List handles GET /api/v1/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
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

	filter := model.MessageFilter{
		ReadableIDPattern: q.Get("readableId"),
		CpaIDPattern:      q.Get("cpaId"),
		MessageIDPattern:  q.Get("messageId"),
		Role:              q.Get("role"),
		Service:           q.Get("service"),
		Action:            q.Get("action"),
	}
	for name, v := range map[string]string{
		"readableId": filter.ReadableIDPattern,
		"cpaId":      filter.CpaIDPattern,
		"messageId":  filter.MessageIDPattern,
	} {
		if err := middleware.ValidatePattern(name, v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	page, err := h.query.MessageInfo(r.Context(), from, to, filter, pageable)
	if err != nil {
		internalError(w, r, h.logger, "failed to list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/messages/{requestId}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	if err := middleware.ValidateIdentifier("requestId", requestID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.query.MessageDetail(r.Context(), requestID)
	if err != nil {
		internalError(w, r, h.logger, "failed to get message", err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Events handles GET /api/v1/messages/{requestId}/events
func (h *MessageHandler) Events(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	if err := middleware.ValidateIdentifier("requestId", requestID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.query.MessageEvents(r.Context(), requestID)
	if err != nil {
		internalError(w, r, h.logger, "failed to list events", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requestId": requestID,
		"events":    events,
	})
}

// DuplicateCheck handles GET /api/v1/messages/duplicate-check
func (h *MessageHandler) DuplicateCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	messageID, conversationID, cpaID := q.Get("messageId"), q.Get("conversationId"), q.Get("cpaId")

	for name, v := range map[string]string{
		"messageId":      messageID,
		"conversationId": conversationID,
		"cpaId":          cpaID,
	} {
		if err := middleware.ValidateIdentifier(name, v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	dup, err := h.duplicates.IsDuplicate(r.Context(), messageID, conversationID, cpaID)
	if err != nil {
		internalError(w, r, h.logger, "failed to check duplicate", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"duplicate": dup})
}
