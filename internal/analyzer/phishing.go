package analyzer

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrEmptyEmail is returned when there is no email content to analyze.
var ErrEmptyEmail = errors.New("email content is empty")

// Verdict of a phishing analysis.
type Verdict string

const (
	VerdictPhishing   Verdict = "phishing"
	VerdictSuspicious Verdict = "suspicious"
	VerdictClean      Verdict = "clean"
)

// SenderInfo describes the sending address.
type SenderInfo struct {
	Email      string `json:"email"`
	Reputation string `json:"reputation"`
	Spoofing   bool   `json:"spoofing"`
}

// DomainInfo describes the sending domain.
type DomainInfo struct {
	Age        string `json:"age"`
	Reputation string `json:"reputation"`
	Registrar  string `json:"registrar"`
}

// LinkInfo is one link found in the email.
type LinkInfo struct {
	URL         string `json:"url"`
	Status      string `json:"status"`
	Destination string `json:"destination"`
}

// AttachmentInfo is one attachment found in the email.
type AttachmentInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// AuthResults holds the sender authentication checks.
type AuthResults struct {
	SPF   string `json:"spf"`
	DKIM  string `json:"dkim"`
	DMARC string `json:"dmarc"`
}

// Hop is one delivery step.
type Hop struct {
	Time     string `json:"time"`
	Event    string `json:"event"`
	Location string `json:"location"`
}

// EmailReport is the result of a phishing analysis.
type EmailReport struct {
	Verdict           Verdict          `json:"verdict"`
	Confidence        int              `json:"confidence"`
	Sender            SenderInfo       `json:"sender"`
	Domain            DomainInfo       `json:"domain"`
	Links             []LinkInfo       `json:"links"`
	Attachments       []AttachmentInfo `json:"attachments"`
	Headers           AuthResults      `json:"headers"`
	SocialEngineering []string         `json:"social_engineering"`
	Timeline          []Hop            `json:"timeline"`
}

// EmailAnalyzer inspects raw email content.
type EmailAnalyzer interface {
	AnalyzeEmail(ctx context.Context, content string) (*EmailReport, error)
}

// PhishingCheck returns a fixed phishing verdict for any non-empty email.
type PhishingCheck struct {
	Delay time.Duration
}

// AnalyzeEmail implements EmailAnalyzer.
func (p PhishingCheck) AnalyzeEmail(ctx context.Context, content string) (*EmailReport, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyEmail
	}
	if err := sleep(ctx, p.Delay); err != nil {
		return nil, err
	}

	return &EmailReport{
		Verdict:    VerdictPhishing,
		Confidence: 90,
		Sender: SenderInfo{
			Email:      "support@paypa1-security.com",
			Reputation: "Unknown sender",
			Spoofing:   true,
		},
		Domain: DomainInfo{
			Age:        "3 days",
			Reputation: "Newly registered",
			Registrar:  "NameCheap Inc.",
		},
		Links: []LinkInfo{
			{URL: "https://paypa1-security.com/verify", Status: "dangerous", Destination: "Unknown IP: 185.234.52.11"},
			{URL: "https://paypal.com", Status: "suspicious", Destination: "Redirects to paypa1-security.com"},
		},
		Attachments: []AttachmentInfo{
			{Name: "invoice.pdf.exe", Type: "Executable disguised as PDF", Status: "dangerous"},
		},
		Headers: AuthResults{SPF: "FAIL", DKIM: "FAIL", DMARC: "FAIL"},
		SocialEngineering: []string{
			"Urgent action required language",
			"Threats of account suspension",
			"Requests for password reset",
			"Suspicious payment notification",
		},
		Timeline: []Hop{
			{Time: "2025-11-06 14:23:15", Event: "Email sent", Location: "Moscow, Russia"},
			{Time: "2025-11-06 14:23:22", Event: "Received by mail server", Location: "Frankfurt, Germany"},
			{Time: "2025-11-06 14:23:25", Event: "Delivered to inbox", Location: "Your Location"},
		},
	}, nil
}
