// Package model defines data structures for the conversation service.
package model

import (
	"time"
)

// DefaultTitle is the placeholder title of a conversation that has not
// received a user message yet.
const DefaultTitle = "New Chat"

// Conversation represents a conversation thread.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Messages     []Message `json:"messages"`
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	for i := range c.Messages {
		out.Messages[i] = *c.Messages[i].Clone()
	}
	return &out
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// LastUserMessage returns the most recent user message, or nil.
func (c *Conversation) LastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return &c.Messages[i]
		}
	}
	return nil
}

// RenameConversationRequest is the request to rename a conversation.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ConversationSummary is a list entry for the conversation sidebar.
type ConversationSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	LastActivity  time.Time `json:"last_activity"`
	LastActiveAgo string    `json:"last_active_ago"`
	MessageCount  int       `json:"message_count"`
	Current       bool      `json:"current"`
	StreamActive  bool      `json:"stream_active"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	CurrentID     string                `json:"current_id"`
	Total         int                   `json:"total"`
}
