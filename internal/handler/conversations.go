// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/cyberguard/assistant/internal/middleware"
	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	sessions *service.Sessions
	logger   *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(sessions *service.Sessions, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	writeJSON(w, http.StatusCreated, c.NewConversation(r.Context()))
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	currentID := c.CurrentID()
	convs := c.Conversations()

	resp := model.ListConversationsResponse{
		Conversations: make([]model.ConversationSummary, 0, len(convs)),
		CurrentID:     currentID,
		Total:         len(convs),
	}
	for _, conv := range convs {
		resp.Conversations = append(resp.Conversations, model.ConversationSummary{
			ID:            conv.ID,
			Title:         conv.Title,
			LastActivity:  conv.LastActivity,
			LastActiveAgo: humanize.Time(conv.LastActivity),
			MessageCount:  len(conv.Messages),
			Current:       conv.ID == currentID,
			StreamActive:  c.IsStreaming(conv.ID),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Current handles GET /api/v1/conversations/current
func (h *ConversationHandler) Current(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, c.Current())
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	conv, err := c.Conversation(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Rename handles PUT /api/v1/conversations/:id
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req model.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := c.RenameConversation(r.Context(), id, req.Title)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	currentID, err := c.DeleteConversation(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"deleted_id": id,
		"current_id": currentID,
	})
}

// Select handles POST /api/v1/conversations/:id/select
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	if err := c.SelectConversation(id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	conv, err := c.Conversation(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
