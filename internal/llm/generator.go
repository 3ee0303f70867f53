package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
)

// Generator produces the full text of an assistant reply to userText.
type Generator interface {
	GenerateReply(ctx context.Context, userText string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, userText string) (string, error)

// GenerateReply calls f(ctx, userText).
func (f GeneratorFunc) GenerateReply(ctx context.Context, userText string) (string, error) {
	return f(ctx, userText)
}

// SystemPrompt frames provider-backed replies.
const SystemPrompt = "You are CyberGuard, a security assistant. Answer questions about web security, " +
	"phishing and secure development concisely, using short markdown sections and lists."

var cannedReplies = []string{
	"Great question! Let me explain that in detail.\n\nTo address \"%s\", here's what you need to know:\n\n" +
		"**Security Best Practices**\n\nAlways validate and sanitize user inputs to prevent common vulnerabilities like SQL injection and XSS attacks.\n\n" +
		"**Implementation Steps:**\n1. Use parameterized queries for database operations\n2. Implement proper authentication and authorization\n" +
		"3. Keep your dependencies up to date\n4. Use HTTPS for all communications\n\n" +
		"**Additional Resources:** Check out OWASP's guidelines for more comprehensive security practices.\n\n" +
		"Would you like me to elaborate on any of these points?",
	"I can help with that! Here's a comprehensive overview:\n\n**Understanding the Concept**\n\n" +
		"This is an important aspect of cybersecurity that often gets overlooked. The key is to implement defense in depth.\n\n" +
		"**Key Points to Remember:**\n• Always follow the principle of least privilege\n• Implement proper logging and monitoring\n" +
		"• Regular security audits are essential\n• Keep your team educated on security best practices\n\n" +
		"**Practical Application:**\n\nIn real-world scenarios, you'd want to combine multiple security layers. " +
		"This includes network security, application security, and user awareness training.\n\n" +
		"Let me know if you'd like specific code examples or more detailed explanations!",
	"Excellent question! Let me break this down for you.\n\n**Overview**\n\n" +
		"This is a critical security consideration that every developer should understand. The impact of getting this wrong can be severe.\n\n" +
		"**Technical Details:**\n\n1. First, understand the threat model\n2. Implement appropriate countermeasures\n" +
		"3. Test your security controls regularly\n4. Monitor for suspicious activity\n\n" +
		"**Common Pitfalls to Avoid:**\n• Don't rely on client-side validation alone\n• Never store sensitive data in plain text\n" +
		"• Avoid security through obscurity\n• Don't skip security updates\n\n" +
		"**Recommended Approach:**\n\nUse industry-standard libraries and frameworks that have been battle-tested. " +
		"Don't try to roll your own cryptography or authentication systems.\n\n" +
		"Is there a specific aspect you'd like me to dive deeper into?",
}

// CannedGenerator answers with one of a fixed set of security replies.
type CannedGenerator struct {
	// Pick returns an index in [0, n). Defaults to a uniform random pick.
	Pick func(n int) int
}

// NewCannedGenerator creates a generator picking replies at random.
func NewCannedGenerator() *CannedGenerator {
	return &CannedGenerator{Pick: rand.IntN}
}

// GenerateReply implements Generator.
func (g *CannedGenerator) GenerateReply(ctx context.Context, userText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pick := g.Pick
	if pick == nil {
		pick = rand.IntN
	}
	tmpl := cannedReplies[pick(len(cannedReplies))]
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, userText), nil
	}
	return tmpl, nil
}

// ClientGenerator asks an LLM provider for the reply.
type ClientGenerator struct {
	client    Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewClientGenerator wraps client. A zero timeout means no deadline beyond
// the caller's context.
func NewClientGenerator(client Client, model string, maxTokens int, timeout time.Duration) *ClientGenerator {
	return &ClientGenerator{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// GenerateReply implements Generator.
func (g *ClientGenerator) GenerateReply(ctx context.Context, userText string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Complete(ctx, &CompletionRequest{
		Model:     g.model,
		System:    SystemPrompt,
		Messages:  []ChatMessage{{Role: "user", Content: userText}},
		MaxTokens: g.maxTokens,
	})
	metrics.RecordReply(g.client.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", g.client.Name(), err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", errors.New(g.client.Name() + " returned an empty reply")
	}
	return resp.Content, nil
}

// FallbackGenerator tries Primary and answers from Fallback when it fails.
type FallbackGenerator struct {
	Primary  Generator
	Fallback Generator
	Logger   *logger.Logger
}

// GenerateReply implements Generator.
func (g *FallbackGenerator) GenerateReply(ctx context.Context, userText string) (string, error) {
	reply, err := g.Primary.GenerateReply(ctx, userText)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	if g.Logger != nil {
		g.Logger.Warn("primary generator failed, using fallback", zap.Error(err))
	}
	return g.Fallback.GenerateReply(ctx, userText)
}
