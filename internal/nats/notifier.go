package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
)

const (
	// StreamName is the name of the notifications stream.
	StreamName = "CHAT_NOTIFICATIONS"

	// SubjectPrefix is the prefix for all notification subjects.
	SubjectPrefix = "chat"

	publishTimeout = 2 * time.Second
)

// Publisher is the JetStream publish call the notifier depends on.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EnsureStream ensures the notifications stream exists.
func (c *Client) EnsureStream(ctx context.Context, maxAge time.Duration) error {
	js := c.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      maxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Discard:     jetstream.DiscardOld,
		Description: "User-facing chat session notifications",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// NotificationSubject returns the subject a notification is published on:
// chat.<user>.<conversation>.notify.<kind>.
func NotificationSubject(n model.Notification) string {
	conversation := n.ConversationID
	if conversation == "" {
		conversation = "_"
	}
	return fmt.Sprintf("%s.%s.%s.notify.%s",
		SubjectPrefix, subjectToken(n.UserID), subjectToken(conversation), subjectToken(string(n.Kind)))
}

// UserFilter returns the filter subject for every notification of a user.
func UserFilter(userID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, subjectToken(userID))
}

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// Notifier publishes notifications to JetStream.
type Notifier struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewNotifier creates a notifier publishing through p.
func NewNotifier(p Publisher, log *logger.Logger) *Notifier {
	return &Notifier{publisher: p, logger: log}
}

// Notify publishes n. Failures are logged and counted, never returned.
func (n *Notifier) Notify(ctx context.Context, note model.Notification) {
	subject := NotificationSubject(note)

	data, err := json.Marshal(note)
	if err != nil {
		n.logger.Error("failed to marshal notification", zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(string(note.Kind), "nats", "error").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var opts []jetstream.PublishOpt
	if note.ID != "" {
		opts = append(opts, jetstream.WithMsgID(note.ID))
	}

	if _, err := n.publisher.Publish(ctx, subject, data, opts...); err != nil {
		n.logger.Warn("failed to publish notification",
			zap.String("subject", subject),
			zap.Error(err),
		)
		metrics.NotificationsTotal.WithLabelValues(string(note.Kind), "nats", "error").Inc()
		return
	}

	metrics.NotificationsTotal.WithLabelValues(string(note.Kind), "nats", "ok").Inc()
}
