package service

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyberguard/assistant/internal/model"
)

// TranscriptTimeLayout is the timestamp format used in transcripts.
const TranscriptTimeLayout = "2006-01-02 15:04:05"

// WriteTranscript writes the messages of conv as a flat text transcript:
// one block per message, "ROLE [timestamp]:" followed by the content.
func WriteTranscript(w io.Writer, conv *model.Conversation) error {
	for _, m := range conv.Messages {
		if _, err := fmt.Fprintf(w, "%s [%s]:\n%s\n\n",
			strings.ToUpper(string(m.Role)),
			m.CreatedAt.Local().Format(TranscriptTimeLayout),
			m.Content,
		); err != nil {
			return err
		}
	}
	return nil
}

// Transcript returns the transcript of conv as a string.
func Transcript(conv *model.Conversation) string {
	var sb strings.Builder
	_ = WriteTranscript(&sb, conv)
	return sb.String()
}

// TranscriptFilename derives a download name from the conversation title.
func TranscriptFilename(conv *model.Conversation) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(conv.Title))
	if name == "" {
		name = "conversation-" + conv.CreatedAt.Format(time.DateOnly)
	}
	return name + ".txt"
}
