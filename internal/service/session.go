package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/llm"
	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
	"github.com/cyberguard/assistant/pkg/tracing"
)

// ReplyUnavailable is streamed into the assistant message when the
// generator fails.
const ReplyUnavailable = "Sorry, I couldn't generate a response right now. Please try again."

// Config holds the collaborators and tunables shared by every session.
type Config struct {
	Generator      llm.Generator
	Notifier       Notifier
	Logger         *logger.Logger
	TokenDelay     time.Duration
	TitleMaxLength int
}

// Export is a rendered conversation transcript.
type Export struct {
	Filename string
	Content  []byte
}

type run struct {
	messageID string
	cancel    context.CancelFunc
}

// Controller serializes user actions against one registry. A conversation is
// Idle or AwaitingReply; AwaitingReply lasts from an accepted send until its
// producer run ends. Runs of different conversations are independent.
type Controller struct {
	userID    string
	registry  *Registry
	hub       *Hub
	producer  *Producer
	generator llm.Generator
	notifier  Notifier
	logger    *logger.Logger
	tracer    trace.Tracer

	mu     sync.Mutex
	active map[string]*run
	closed bool

	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
}

// NewController creates a controller and its registry with one default
// conversation.
func NewController(userID string, cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = logger.Global()
	}
	log = log.WithUser(userID)

	generator := cfg.Generator
	if generator == nil {
		generator = llm.NewCannedGenerator()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}

	hub := NewHub()
	registry := NewRegistry(cfg.TitleMaxLength, hub)
	baseCtx, stop := context.WithCancel(context.Background())

	return &Controller{
		userID:    userID,
		registry:  registry,
		hub:       hub,
		producer:  NewProducer(registry, cfg.TokenDelay, log),
		generator: generator,
		notifier:  notifier,
		logger:    log,
		tracer:    tracing.Tracer("github.com/cyberguard/assistant/internal/service"),
		active:    make(map[string]*run),
		baseCtx:   baseCtx,
		stop:      stop,
	}
}

// UserID returns the owner of the session.
func (c *Controller) UserID() string {
	return c.userID
}

// Send appends the user's message and an empty streaming assistant message,
// then generates and streams the reply in the background. Whitespace-only
// text is refused with ErrEmptyMessage and a conversation that is already
// awaiting a reply with ErrBusy; neither changes any state.
func (c *Controller) Send(ctx context.Context, conversationID string, req model.SendMessageRequest) (*model.Exchange, error) {
	ctx, span := c.tracer.Start(ctx, "session.Send", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
	))
	defer span.End()

	text := strings.TrimSpace(req.Content)
	if text == "" {
		metrics.SendsRejected.WithLabelValues("empty").Inc()
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if _, busy := c.active[conversationID]; busy {
		metrics.SendsRejected.WithLabelValues("busy").Inc()
		return nil, ErrBusy
	}

	userMsg, err := c.registry.Append(conversationID, model.Message{
		Role:       model.RoleUser,
		Content:    text,
		Attachment: req.Attachment,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	assistant, err := c.openReply(ctx, conversationID, text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &model.Exchange{User: userMsg, Assistant: assistant}, nil
}

// Regenerate replaces the trailing assistant reply with a fresh one for the
// most recent user message, without appending that message again. It
// returns ErrNothingToRegenerate when the conversation has no finished
// exchange and ErrBusy while a reply is streaming.
func (c *Controller) Regenerate(ctx context.Context, conversationID string) (*model.Exchange, error) {
	ctx, span := c.tracer.Start(ctx, "session.Regenerate", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if _, busy := c.active[conversationID]; busy {
		metrics.SendsRejected.WithLabelValues("busy").Inc()
		return nil, ErrBusy
	}

	conv, err := c.registry.Get(conversationID)
	if err != nil {
		return nil, err
	}
	lastUser := conv.LastUserMessage()
	if lastUser == nil {
		metrics.SendsRejected.WithLabelValues("nothing_to_regenerate").Inc()
		return nil, ErrNothingToRegenerate
	}

	if _, err := c.registry.RemoveLastAssistant(conversationID); err != nil {
		metrics.SendsRejected.WithLabelValues("nothing_to_regenerate").Inc()
		return nil, err
	}

	assistant, err := c.openReply(ctx, conversationID, lastUser.Content)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &model.Exchange{User: lastUser.Clone(), Assistant: assistant}, nil
}

// openReply appends the streaming placeholder and starts the run that fills
// it. c.mu must be held.
func (c *Controller) openReply(ctx context.Context, conversationID, prompt string) (*model.Message, error) {
	assistant, err := c.registry.Append(conversationID, model.Message{
		Role:      model.RoleAssistant,
		Streaming: true,
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	runCtx, cancel := context.WithCancel(c.baseCtx)
	runCtx = trace.ContextWithSpanContext(runCtx, trace.SpanContextFromContext(ctx))

	r := &run{messageID: assistant.ID, cancel: cancel}
	c.active[conversationID] = r

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.reply(runCtx, conversationID, assistant.ID, prompt)
		c.finish(conversationID, r)
	}()

	return assistant, nil
}

func (c *Controller) reply(ctx context.Context, conversationID, messageID, prompt string) {
	ctx, span := c.tracer.Start(ctx, "session.reply", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
		attribute.String("message.id", messageID),
	))
	defer span.End()

	log := c.logger.WithConversation(conversationID)
	start := time.Now()

	text, err := c.generator.GenerateReply(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("reply cancelled before generation finished")
			return
		}
		log.Warn("reply generation failed", zap.Error(err))
		span.RecordError(err)
		c.notify(ctx, conversationID, model.NotifyReplyFailed, model.LevelError, "Failed to generate a response")
		text = ReplyUnavailable
	}

	res := c.producer.Produce(ctx, conversationID, messageID, text, nil)
	span.SetAttributes(attribute.Int("producer.ticks", res.Ticks))

	log.Debug("reply finished",
		zap.String("message_id", messageID),
		zap.Int("ticks", res.Ticks),
		zap.Bool("completed", res.Completed),
		zap.Duration("duration", time.Since(start)),
	)
}

func (c *Controller) finish(conversationID string, r *run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[conversationID] == r {
		delete(c.active, conversationID)
	}
}

// IsStreaming reports whether conversationID is awaiting a reply.
func (c *Controller) IsStreaming(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[conversationID]
	return ok
}

// NewConversation creates an empty conversation and selects it.
func (c *Controller) NewConversation(ctx context.Context) *model.Conversation {
	conv := c.registry.Create()
	metrics.ConversationsTotal.WithLabelValues("create").Inc()
	c.notify(ctx, conv.ID, model.NotifyConversationCreated, model.LevelSuccess, "New chat created")
	return conv
}

// SelectConversation makes id the current conversation. Producers keep
// running in the conversation that is left.
func (c *Controller) SelectConversation(id string) error {
	return c.registry.Select(id)
}

// DeleteConversation removes a conversation and cancels its reply, if any.
// It returns the current conversation id after the delete.
func (c *Controller) DeleteConversation(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	current, err := c.registry.Delete(id)
	if err == nil {
		if r, ok := c.active[id]; ok {
			r.cancel()
			delete(c.active, id)
		}
	}
	c.mu.Unlock()

	switch {
	case errors.Is(err, ErrLastConversation):
		c.notify(ctx, id, model.NotifyDeleteRejected, model.LevelError, "Cannot delete the last conversation")
		return current, err
	case err != nil:
		return current, err
	}

	metrics.ConversationsTotal.WithLabelValues("delete").Inc()
	c.notify(ctx, id, model.NotifyConversationDeleted, model.LevelSuccess, "Conversation deleted")
	return current, nil
}

// RenameConversation sets the title of a conversation.
func (c *Controller) RenameConversation(ctx context.Context, id, title string) (*model.Conversation, error) {
	conv, err := c.registry.Rename(id, title)
	switch {
	case errors.Is(err, ErrEmptyTitle):
		c.notify(ctx, id, model.NotifyRenameRejected, model.LevelError, "Title cannot be empty")
		return nil, err
	case err != nil:
		return nil, err
	}

	c.notify(ctx, id, model.NotifyConversationRenamed, model.LevelSuccess, "Title updated")
	return conv, nil
}

// Conversation returns a snapshot of one conversation.
func (c *Controller) Conversation(id string) (*model.Conversation, error) {
	return c.registry.Get(id)
}

// Conversations returns snapshots in registry order.
func (c *Controller) Conversations() []model.Conversation {
	return c.registry.List()
}

// Current returns a snapshot of the selected conversation.
func (c *Controller) Current() *model.Conversation {
	return c.registry.Current()
}

// CurrentID returns the id of the selected conversation.
func (c *Controller) CurrentID() string {
	return c.registry.CurrentID()
}

// Export renders the conversation as a text transcript.
func (c *Controller) Export(ctx context.Context, id string) (*Export, error) {
	conv, err := c.registry.Get(id)
	if err == nil && len(conv.Messages) == 0 {
		err = ErrNoMessages
	}
	if err != nil {
		c.notify(ctx, id, model.NotifyExportFailed, model.LevelError, "No messages to export")
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteTranscript(&buf, conv); err != nil {
		c.notify(ctx, id, model.NotifyExportFailed, model.LevelError, "Export failed")
		return nil, err
	}

	c.notify(ctx, id, model.NotifyExportDone, model.LevelSuccess, "Chat exported successfully")
	return &Export{Filename: TranscriptFilename(conv), Content: buf.Bytes()}, nil
}

// Subscribe streams the registry events of one conversation.
func (c *Controller) Subscribe(id string) (<-chan model.Event, func(), error) {
	if _, err := c.registry.Get(id); err != nil {
		return nil, nil, err
	}
	ch, release := c.hub.Subscribe(id)
	return ch, release, nil
}

// Wait blocks until every background reply has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels all replies, waits for them and closes subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stop()
	c.mu.Unlock()

	c.wg.Wait()
	c.hub.Close()
}

func (c *Controller) notify(ctx context.Context, conversationID string, kind model.NotificationKind, level model.Level, text string) {
	c.notifier.Notify(context.WithoutCancel(ctx), model.Notification{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         c.userID,
		ConversationID: conversationID,
		Kind:           kind,
		Level:          level,
		Text:           text,
		CreatedAt:      time.Now(),
	})
}
