package model

import (
	"time"
)

// EventType represents the type of a conversation state change.
type EventType string

const (
	EventMessageAppended     EventType = "message_appended"
	EventMessageUpdated      EventType = "message_updated"
	EventMessageRemoved      EventType = "message_removed"
	EventConversationCreated EventType = "conversation_created"
	EventConversationRenamed EventType = "conversation_renamed"
	EventConversationDeleted EventType = "conversation_deleted"
	EventConversationTitled  EventType = "conversation_titled"
)

// Event is a state change emitted by the registry. Message carries a full
// snapshot, so a consumer that misses intermediate updates still converges.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title,omitempty"`
	Message        *Message  `json:"message,omitempty"`
	At             time.Time `json:"at"`
}

// NotificationKind identifies a user-facing notification.
type NotificationKind string

const (
	NotifyConversationCreated NotificationKind = "conversation_created"
	NotifyConversationDeleted NotificationKind = "conversation_deleted"
	NotifyConversationRenamed NotificationKind = "conversation_renamed"
	NotifyDeleteRejected      NotificationKind = "delete_rejected"
	NotifyRenameRejected      NotificationKind = "rename_rejected"
	NotifyExportDone          NotificationKind = "export_done"
	NotifyExportFailed        NotificationKind = "export_failed"
	NotifyReplyFailed         NotificationKind = "reply_failed"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a fire-and-forget message for user display.
type Notification struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Kind           NotificationKind `json:"kind"`
	Level          Level            `json:"level"`
	Text           string           `json:"text"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
