package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberguard/assistant/internal/model"
)

func TestHub_RoutesByConversation(t *testing.T) {
	h := NewHub()
	a, releaseA := h.Subscribe("a")
	defer releaseA()
	b, releaseB := h.Subscribe("b")
	defer releaseB()

	h.Observe(model.Event{Type: model.EventMessageAppended, ConversationID: "a"})

	select {
	case e := <-a:
		assert.Equal(t, "a", e.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("no event for subscriber a")
	}
	assert.Empty(t, b)
}

func TestHub_SlowSubscriberKeepsLatest(t *testing.T) {
	h := NewHub()
	ch, release := h.Subscribe("a")
	defer release()

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		h.Observe(model.Event{
			Type:           model.EventMessageUpdated,
			ConversationID: "a",
			Message:        &model.Message{Content: fmt.Sprint(i)},
		})
	}

	require.Len(t, ch, subscriberBuffer)
	var last model.Event
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, fmt.Sprint(total-1), last.Message.Content)
}

func TestHub_DeleteClosesSubscribers(t *testing.T) {
	h := NewHub()
	ch, release := h.Subscribe("a")

	h.Observe(model.Event{Type: model.EventConversationDeleted, ConversationID: "a"})

	e, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, model.EventConversationDeleted, e.Type)
	_, ok = <-ch
	assert.False(t, ok)

	// Releasing after the hub closed the channel is safe.
	release()
}

func TestHub_ReleaseIsIdempotent(t *testing.T) {
	h := NewHub()
	ch, release := h.Subscribe("a")
	release()
	release()

	_, ok := <-ch
	assert.False(t, ok)
	h.Close()
}
