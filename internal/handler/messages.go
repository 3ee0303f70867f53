package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cyberguard/assistant/internal/middleware"
	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	sessions *service.Sessions
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(sessions *service.Sessions, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		sessions: sessions,
		logger:   log,
	}
}

// List handles GET /api/v1/conversations/:id/messages
// Supports ?after_sequence=N to fetch only newer messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var afterSequence uint64
	if seq := r.URL.Query().Get("after_sequence"); seq != "" {
		parsed, err := strconv.ParseUint(seq, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after_sequence")
			return
		}
		afterSequence = parsed
	}

	conv, err := c.Conversation(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := model.ListMessagesResponse{
		Messages:     make([]model.Message, 0, len(conv.Messages)),
		StreamActive: c.IsStreaming(id),
	}
	for _, msg := range conv.Messages {
		if msg.Sequence > resp.LastSequence {
			resp.LastSequence = msg.Sequence
		}
		if msg.Sequence > afterSequence {
			resp.Messages = append(resp.Messages, msg)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /api/v1/conversations/:id/messages
// The reply streams in the background; clients follow it on the stream
// endpoint.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessage(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exchange, err := c.Send(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("X-Stream-URL", streamURL(id))
	writeJSON(w, http.StatusAccepted, exchange)
}

// Regenerate handles POST /api/v1/conversations/:id/regenerate
func (h *MessageHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	exchange, err := c.Regenerate(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("X-Stream-URL", streamURL(id))
	writeJSON(w, http.StatusAccepted, exchange)
}

// Export handles GET /api/v1/conversations/:id/export
func (h *MessageHandler) Export(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	export, err := c.Export(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Content)
}

// Suggestions handles GET /api/v1/suggestions
func (h *MessageHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]model.Suggestion{
		"suggestions": model.Suggestions,
	})
}

func streamURL(conversationID string) string {
	return "/api/v1/conversations/" + conversationID + "/stream"
}
