package analyzer

import (
	"context"
	"time"
)

var (
	findingCSP = Finding{
		ID:             "1",
		Title:          "Missing Content Security Policy (CSP)",
		Severity:       SeverityHigh,
		Description:    "The website does not implement a Content Security Policy header, leaving it vulnerable to XSS attacks.",
		Evidence:       "HTTP Response Headers:\nNo 'Content-Security-Policy' header found",
		Recommendation: "Implement a strict CSP header:\nContent-Security-Policy: default-src 'self'; script-src 'self' 'unsafe-inline';",
	}
	findingJQuery = Finding{
		ID:             "2",
		Title:          "Outdated jQuery Library",
		Severity:       SeverityMedium,
		Description:    "The website uses jQuery version 2.1.4 which has known security vulnerabilities.",
		Evidence:       "Found: jquery-2.1.4.min.js\nKnown CVEs: CVE-2020-11022, CVE-2020-11023",
		Recommendation: "Update to jQuery 3.6.0 or later:\nnpm update jquery",
		CVE:            "CVE-2020-11022",
	}
	findingXFrame = Finding{
		ID:             "3",
		Title:          "Missing X-Frame-Options Header",
		Severity:       SeverityMedium,
		Description:    "The X-Frame-Options header is not set, making the site vulnerable to clickjacking attacks.",
		Evidence:       "HTTP Response Headers:\nNo 'X-Frame-Options' header found",
		Recommendation: "Add the following header:\nX-Frame-Options: DENY",
	}
	findingTLS10 = Finding{
		ID:             "4",
		Title:          "TLS 1.0 Enabled",
		Severity:       SeverityLow,
		Description:    "The server supports TLS 1.0, which is deprecated and considered insecure.",
		Evidence:       "Supported protocols: TLS 1.0, TLS 1.1, TLS 1.2, TLS 1.3",
		Recommendation: "Disable TLS 1.0 and TLS 1.1. Use only TLS 1.2 and TLS 1.3.",
	}
)

// QuickCheck inspects response headers only. Findings are fixed.
type QuickCheck struct {
	Delay time.Duration
}

// Mode implements Analyzer.
func (QuickCheck) Mode() Mode { return ModeQuick }

// Analyze implements Analyzer.
func (q QuickCheck) Analyze(ctx context.Context, target string) (*Report, error) {
	normalized, err := ValidateTarget(target)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	if err := sleep(ctx, q.Delay); err != nil {
		return nil, err
	}
	return buildReport(normalized, ModeQuick, started,
		[]string{"Missing security headers detected"},
		[]Finding{findingCSP, findingXFrame},
	), nil
}

// FullCheck adds dependency and transport checks. Findings are fixed.
type FullCheck struct {
	Delay time.Duration
}

// Mode implements Analyzer.
func (FullCheck) Mode() Mode { return ModeFull }

// Analyze implements Analyzer.
func (f FullCheck) Analyze(ctx context.Context, target string) (*Report, error) {
	normalized, err := ValidateTarget(target)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	if err := sleep(ctx, f.Delay); err != nil {
		return nil, err
	}
	return buildReport(normalized, ModeFull, started,
		[]string{
			"Missing security headers detected",
			"Outdated JavaScript libraries found",
			"SSL/TLS configuration could be improved",
		},
		[]Finding{findingCSP, findingJQuery, findingXFrame, findingTLS10},
	), nil
}
