package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
)

// DefaultHeartbeatInterval is used when the handler is built without one.
const DefaultHeartbeatInterval = 15 * time.Second

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	sessions  *service.Sessions
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions *service.Sessions, log *logger.Logger, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &StreamHandler{
		sessions:  sessions,
		logger:    log,
		heartbeat: heartbeat,
	}
}

// SnapshotEvent is the first state a stream client receives.
type SnapshotEvent struct {
	Conversation *model.Conversation `json:"conversation"`
	StreamActive bool                `json:"stream_active"`
}

// Stream handles GET /api/v1/conversations/:id/stream
// It sends the conversation snapshot, then every change to it until the
// client leaves or the conversation is deleted.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before taking the snapshot so nothing falls between them.
	events, release, err := c.Subscribe(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer release()

	conv, err := c.Conversation(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	log := h.logger.WithUser(c.UserID()).WithConversation(id)

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"conversation_id": id,
	})
	sendSSEEvent(w, flusher, "snapshot", &SnapshotEvent{
		Conversation: conv,
		StreamActive: c.IsStreaming(id),
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE client disconnected")
			return

		case event, open := <-events:
			if !open {
				sendSSEEvent(w, flusher, "closed", map[string]string{
					"conversation_id": id,
				})
				return
			}
			if err := sendSSEEvent(w, flusher, string(event.Type), event); err != nil {
				log.Warn("failed to write SSE event", zap.Error(err))
				return
			}

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
