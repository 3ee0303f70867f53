// Package analyzer defines the website check capability behind the scan
// endpoint. The bundled strategies return fixed findings; a real scanner
// only has to implement Analyzer.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Mode selects an analysis depth.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeFull  Mode = "full"
)

// Severity of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityWeight = map[Severity]int{
	SeverityCritical: 30,
	SeverityHigh:     18,
	SeverityMedium:   8,
	SeverityLow:      4,
}

var (
	ErrInvalidTarget = errors.New("target must be an http or https URL")
	ErrUnknownMode   = errors.New("unknown analysis mode")
)

// Finding is one reported issue.
type Finding struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Evidence       string   `json:"evidence"`
	Recommendation string   `json:"recommendation"`
	CVE            string   `json:"cve,omitempty"`
}

// Report is the result of one analysis.
type Report struct {
	Target     string         `json:"target"`
	Mode       Mode           `json:"mode"`
	Score      int            `json:"score"`
	Risk       string         `json:"risk"`
	Summary    []string       `json:"summary"`
	Findings   []Finding      `json:"findings"`
	Counts     map[string]int `json:"counts"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Analyzer inspects a target and reports findings.
type Analyzer interface {
	Mode() Mode
	Analyze(ctx context.Context, target string) (*Report, error)
}

// ValidateTarget parses and normalizes a target URL.
func ValidateTarget(target string) (string, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(target))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidTarget
	}
	return u.String(), nil
}

// Score returns 100 minus the weight of every finding, floored at zero.
func Score(findings []Finding) int {
	score := 100
	for _, f := range findings {
		score -= severityWeight[f.Severity]
	}
	if score < 0 {
		return 0
	}
	return score
}

// RiskLabel maps a score to a risk level.
func RiskLabel(score int) string {
	switch {
	case score >= 80:
		return "Low"
	case score >= 60:
		return "Medium"
	case score >= 40:
		return "High"
	default:
		return "Critical"
	}
}

// Set holds the available strategies by mode.
type Set map[Mode]Analyzer

// NewSet builds a set from analyzers.
func NewSet(analyzers ...Analyzer) Set {
	s := make(Set, len(analyzers))
	for _, a := range analyzers {
		s[a.Mode()] = a
	}
	return s
}

// For returns the analyzer for mode. An empty mode means quick.
func (s Set) For(mode Mode) (Analyzer, error) {
	if mode == "" {
		mode = ModeQuick
	}
	a, ok := s[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return a, nil
}

func buildReport(target string, mode Mode, started time.Time, summary []string, findings []Finding) *Report {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[string(f.Severity)]++
	}
	score := Score(findings)
	return &Report{
		Target:     target,
		Mode:       mode,
		Score:      score,
		Risk:       RiskLabel(score),
		Summary:    summary,
		Findings:   findings,
		Counts:     counts,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
