package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
)

// Notifier receives user-facing notifications. Delivery is fire-and-forget;
// implementations handle their own failures.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n model.Notification)

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) { f(ctx, n) }

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a notifier backed by log.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note model.Notification) {
	fields := []zap.Field{
		zap.String("kind", string(note.Kind)),
		zap.String("user_id", note.UserID),
		zap.String("conversation_id", note.ConversationID),
		zap.String("text", note.Text),
	}
	if note.Level == model.LevelError {
		n.logger.Warn("notification", fields...)
	} else {
		n.logger.Info("notification", fields...)
	}
	metrics.NotificationsTotal.WithLabelValues(string(note.Kind), "log", "ok").Inc()
}

// MultiNotifier forwards to every notifier in order.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, n model.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
