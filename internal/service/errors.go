package service

import "errors"

// Errors returned by the registry and the session controller. None of them
// leave state partially modified.
var (
	ErrNotFound            = errors.New("conversation not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotStreaming        = errors.New("message is not streaming")
	ErrLastConversation    = errors.New("cannot delete the last conversation")
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrEmptyMessage        = errors.New("message cannot be empty")
	ErrBusy                = errors.New("a reply is already streaming in this conversation")
	ErrNothingToRegenerate = errors.New("no exchange to regenerate")
	ErrNoMessages          = errors.New("no messages to export")
	ErrClosed              = errors.New("session closed")
)

// IsValidation reports whether err is a rejected input rather than a
// missing resource or state conflict.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyTitle) || errors.Is(err, ErrEmptyMessage)
}
