package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cyberguard/assistant/internal/model"
)

const (
	// MaxContentLength bounds a single message body.
	MaxContentLength = 100000
	// MaxTitleLength bounds a conversation title.
	MaxTitleLength = 256
	// MaxAttachmentSize bounds the declared size of an attachment.
	MaxAttachmentSize = 25 << 20
)

// ValidateMessage checks a send request. Blank content is left to the
// session controller, which ignores it.
func ValidateMessage(req model.SendMessageRequest) error {
	if len(req.Content) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(req.Content) {
		return errors.New("content must be valid UTF-8")
	}
	if req.Attachment != nil {
		return ValidateAttachment(*req.Attachment)
	}
	return nil
}

// ValidateAttachment checks attachment metadata.
func ValidateAttachment(a model.Attachment) error {
	if a.Name == "" {
		return errors.New("attachment name cannot be empty")
	}
	if !utf8.ValidString(a.Name) {
		return errors.New("attachment name must be valid UTF-8")
	}
	if a.Size < 0 || a.Size > MaxAttachmentSize {
		return errors.New("attachment size out of range")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
