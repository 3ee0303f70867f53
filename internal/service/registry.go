// Package service implements the conversation session core: the registry
// of conversations, the streaming producer that reveals assistant replies,
// and the controller that serializes user actions against both.
package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberguard/assistant/internal/model"
)

// DefaultTitleMaxLength is the number of runes of the first user message
// used as the derived conversation title.
const DefaultTitleMaxLength = 30

// Observer receives registry events. Observe is called with the registry
// lock held, so events arrive in mutation order and Observe must not block
// or call back into the registry.
type Observer interface {
	Observe(event model.Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event model.Event)

// Observe calls f(event).
func (f ObserverFunc) Observe(event model.Event) { f(event) }

type entry struct {
	conv *model.Conversation

	// appended is set on the first append; the title is derived at most
	// once, on that append.
	appended bool
	nextSeq  uint64
}

// Registry is the authoritative collection of conversations plus the
// current selection. It always holds at least one conversation.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]*entry
	current  string
	titleLen int
	observer Observer
}

// NewRegistry creates a registry holding one empty default conversation.
func NewRegistry(titleMaxLength int, observer Observer) *Registry {
	if titleMaxLength <= 0 {
		titleMaxLength = DefaultTitleMaxLength
	}
	r := &Registry{
		entries:  make(map[string]*entry),
		titleLen: titleMaxLength,
		observer: observer,
	}
	r.Create()
	return r
}

// Create inserts a new empty conversation at the head of the registry
// order, selects it and returns a snapshot.
func (r *Registry) Create() *model.Conversation {
	now := time.Now()
	conv := &model.Conversation{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Title:        model.DefaultTitle,
		CreatedAt:    now,
		LastActivity: now,
		Messages:     []model.Message{},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[conv.ID] = &entry{conv: conv}
	r.order = append([]string{conv.ID}, r.order...)
	r.current = conv.ID
	r.emit(model.Event{Type: model.EventConversationCreated, ConversationID: conv.ID, Title: conv.Title})

	return conv.Clone()
}

// Get retrieves a snapshot of a conversation by ID.
func (r *Registry) Get(id string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.conv.Clone(), nil
}

// List returns snapshots of all conversations in registry order.
func (r *Registry) List() []model.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Conversation, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entries[id].conv.Clone())
	}
	return out
}

// Len returns the number of conversations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// CurrentID returns the id of the selected conversation.
func (r *Registry) CurrentID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Current returns a snapshot of the selected conversation.
func (r *Registry) Current() *model.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[r.current].conv.Clone()
}

// Select makes id the current conversation.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return ErrNotFound
	}
	r.current = id
	return nil
}

// Delete removes a conversation. Deleting the only conversation fails with
// ErrLastConversation. When the current conversation is removed the first
// remaining one in registry order becomes current. It returns the current
// id after the delete.
func (r *Registry) Delete(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return r.current, ErrNotFound
	}
	if len(r.order) == 1 {
		return r.current, ErrLastConversation
	}

	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	if r.current == id {
		r.current = r.order[0]
	}
	r.emit(model.Event{Type: model.EventConversationDeleted, ConversationID: id})

	return r.current, nil
}

// Rename overwrites the title with the trimmed newTitle.
func (r *Registry) Rename(id, newTitle string) (*model.Conversation, error) {
	title := strings.TrimSpace(newTitle)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.conv.Title = title
	r.emit(model.Event{Type: model.EventConversationRenamed, ConversationID: id, Title: title})

	return e.conv.Clone(), nil
}

// Append adds msg to the end of the conversation and returns the stored
// snapshot. The message gets an id, a timestamp and the next sequence
// number if it lacks them. User messages are never stored as streaming, and
// a streaming message is refused with ErrBusy while another one is open.
func (r *Registry) Append(conversationID string, msg model.Message) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	if msg.Role == model.RoleUser {
		msg.Streaming = false
	}
	if msg.Streaming && streamingIndex(e.conv) >= 0 {
		return nil, ErrBusy
	}

	now := time.Now()
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.ConversationID = conversationID
	e.nextSeq++
	msg.Sequence = e.nextSeq

	e.conv.Messages = append(e.conv.Messages, *msg.Clone())
	e.conv.LastActivity = now

	stored := msg.Clone()
	r.emit(model.Event{Type: model.EventMessageAppended, ConversationID: conversationID, Message: stored.Clone()})

	if !e.appended {
		e.appended = true
		if msg.Role == model.RoleUser {
			e.conv.Title = deriveTitle(msg.Content, r.titleLen)
			r.emit(model.Event{Type: model.EventConversationTitled, ConversationID: conversationID, Title: e.conv.Title})
		}
	}

	return stored, nil
}

// UpdateMessage replaces the content of a streaming message. It fails with
// ErrNotFound or ErrMessageNotFound when the target no longer exists, which
// the producer treats as cancellation.
func (r *Registry) UpdateMessage(conversationID, messageID, content string, streaming bool) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	for i := range e.conv.Messages {
		m := &e.conv.Messages[i]
		if m.ID != messageID {
			continue
		}
		if !m.Streaming {
			return nil, ErrNotStreaming
		}
		m.Content = content
		m.Streaming = streaming
		e.conv.LastActivity = time.Now()

		stored := m.Clone()
		r.emit(model.Event{Type: model.EventMessageUpdated, ConversationID: conversationID, Message: stored.Clone()})
		return stored, nil
	}

	return nil, ErrMessageNotFound
}

// RemoveLastAssistant removes the trailing assistant message when it is
// finished and preceded by a user message somewhere in the conversation.
func (r *Registry) RemoveLastAssistant(conversationID string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	last := e.conv.LastMessage()
	if last == nil || last.Role != model.RoleAssistant || last.Streaming || e.conv.LastUserMessage() == nil {
		return nil, ErrNothingToRegenerate
	}

	removed := last.Clone()
	e.conv.Messages = e.conv.Messages[:len(e.conv.Messages)-1]
	r.emit(model.Event{Type: model.EventMessageRemoved, ConversationID: conversationID, Message: removed.Clone()})

	return removed, nil
}

func (r *Registry) emit(event model.Event) {
	if r.observer == nil {
		return
	}
	event.At = time.Now()
	r.observer.Observe(event)
}

func streamingIndex(conv *model.Conversation) int {
	for i := range conv.Messages {
		if conv.Messages[i].Streaming {
			return i
		}
	}
	return -1
}

func deriveTitle(content string, max int) string {
	runes := []rune(content)
	if len(runes) > max {
		runes = runes[:max]
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return model.DefaultTitle
	}
	return title
}
