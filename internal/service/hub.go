package service

import (
	"sync"

	"github.com/cyberguard/assistant/internal/model"
)

const subscriberBuffer = 64

// Hub fans registry events out to per-conversation subscribers. Sends never
// block: when a subscriber falls behind its oldest pending event is dropped,
// which is safe because every event carries a full message snapshot.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan model.Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan model.Event]struct{})}
}

// Observe implements Observer.
func (h *Hub) Observe(event model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[event.ConversationID] {
		deliver(ch, event)
	}

	// Subscribers of a deleted conversation get the delete event and
	// are then closed.
	if event.Type == model.EventConversationDeleted {
		for ch := range h.subs[event.ConversationID] {
			close(ch)
		}
		delete(h.subs, event.ConversationID)
	}
}

// Subscribe returns a channel of events for one conversation and a function
// that releases it. The channel is closed when the conversation is deleted
// or the subscription released.
func (h *Hub) Subscribe(conversationID string) (<-chan model.Event, func()) {
	ch := make(chan model.Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[conversationID] == nil {
		h.subs[conversationID] = make(map[chan model.Event]struct{})
	}
	h.subs[conversationID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[conversationID]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, conversationID)
				}
			}
		})
	}
	return ch, release
}

// Close closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, id)
	}
}

func deliver(ch chan model.Event, event model.Event) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}
