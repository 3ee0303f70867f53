package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachment is opaque metadata carried on a user message. The content of
// the attached file or recording is never interpreted.
type Attachment struct {
	Name        string `json:"name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Voice       bool   `json:"voice,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	// Identity
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// Content
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Streaming bool   `json:"streaming"`

	Attachment *Attachment `json:"attachment,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`

	// Sequence is the insertion index within the conversation. It grows
	// strictly and is never reused.
	Sequence uint64 `json:"sequence"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Attachment != nil {
		a := *m.Attachment
		c.Attachment = &a
	}
	return &c
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Exchange is the pair of messages appended by an accepted send.
type Exchange struct {
	User      *Message `json:"user_message"`
	Assistant *Message `json:"assistant_message"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages     []Message `json:"messages"`
	LastSequence uint64    `json:"last_sequence"`
	StreamActive bool      `json:"stream_active"`
}

// Suggestion is a canned prompt offered on an empty conversation.
type Suggestion struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Suggestions are the quick-start prompts shown to a new conversation.
var Suggestions = []Suggestion{
	{Action: "scan-website", Label: "Scan a website", Prompt: "How do I scan a website for vulnerabilities?"},
	{Action: "analyze-phishing", Label: "Analyze phishing email", Prompt: "Help me analyze a phishing email for threats"},
	{Action: "security-tips", Label: "Security best practices", Prompt: "What are the top cybersecurity best practices I should follow?"},
	{Action: "quick-check", Label: "Quick security check", Prompt: "Can you perform a quick security check on my system?"},
}
