package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-tracker/internal/middleware"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// internalError logs err against the request and answers 500 without leaking it.
func internalError(w http.ResponseWriter, r *http.Request, log *logger.Logger, message string, err error) {
	log.Error(message,
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, message)
}
