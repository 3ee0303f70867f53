package handler

import (
	"net/http"

	natsclient "github.com/cyberguard/assistant/internal/nats"
	"github.com/cyberguard/assistant/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	sessions   *service.Sessions
}

// NewHealthHandler creates a new health handler. natsClient is nil when
// notifications are not published to NATS.
func NewHealthHandler(natsClient *natsclient.Client, sessions *service.Sessions) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		sessions:   sessions,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": h.sessions.Len(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
