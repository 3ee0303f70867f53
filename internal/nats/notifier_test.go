package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/pkg/logger"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, payload)
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.subjects))}, nil
}

func TestNotificationSubject(t *testing.T) {
	tests := []struct {
		name string
		note model.Notification
		want string
	}{
		{
			name: "conversation scoped",
			note: model.Notification{UserID: "u1", ConversationID: "c1", Kind: model.NotifyExportDone},
			want: "chat.u1.c1.notify.export_done",
		},
		{
			name: "no conversation",
			note: model.Notification{UserID: "u1", Kind: model.NotifyConversationCreated},
			want: "chat.u1._.notify.conversation_created",
		},
		{
			name: "wildcards in ids are escaped",
			note: model.Notification{UserID: "jane.doe@example.com", ConversationID: "a*b>", Kind: model.NotifyReplyFailed},
			want: "chat.jane_doe@example_com.a_b_.notify.reply_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NotificationSubject(tt.note))
		})
	}
}

func TestUserFilter(t *testing.T) {
	assert.Equal(t, "chat.u_1.>", UserFilter("u.1"))
}

func TestNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, logger.Nop())

	note := model.Notification{
		ID:             "n1",
		UserID:         "u1",
		ConversationID: "c1",
		Kind:           model.NotifyConversationDeleted,
		Level:          model.LevelSuccess,
		Text:           "Conversation deleted",
	}
	n.Notify(context.Background(), note)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "chat.u1.c1.notify.conversation_deleted", pub.subjects[0])

	var got model.Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, note.Text, got.Text)
	assert.Equal(t, note.Kind, got.Kind)
}

func TestNotifier_SwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	n := NewNotifier(pub, logger.Nop())

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), model.Notification{UserID: "u1", Kind: model.NotifyExportFailed})
	})
	assert.Empty(t, pub.subjects)
}
