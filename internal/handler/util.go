package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/middleware"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
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

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrEmptyTitle):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, service.ErrLastConversation),
		errors.Is(err, service.ErrNothingToRegenerate),
		errors.Is(err, service.ErrNoMessages),
		errors.Is(err, service.ErrNotStreaming):
		return http.StatusConflict
	case errors.Is(err, service.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status. Unexpected errors
// are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// sessionFor resolves the controller of the authenticated user.
func sessionFor(w http.ResponseWriter, r *http.Request, sessions *service.Sessions, log *logger.Logger) (*service.Controller, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}
	c, err := sessions.For(userID)
	if err != nil {
		writeServiceError(w, log, err)
		return nil, false
	}
	return c, true
}

// conversationID reads and validates the {id} URL parameter.
func conversationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}
