package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/metrics"
)

// DefaultTokenDelay is the pause between two revealed tokens.
const DefaultTokenDelay = 30 * time.Millisecond

// MessageWriter is the part of the registry the producer writes through.
type MessageWriter interface {
	UpdateMessage(conversationID, messageID, content string, streaming bool) (*model.Message, error)
}

// TickCallback is called after each applied tick with the stored message.
type TickCallback func(msg *model.Message, index int)

// ProduceResult reports how a producer run ended.
type ProduceResult struct {
	Ticks     int
	Completed bool
	Content   string
}

// Producer reveals a complete reply on a streaming message token by token.
type Producer struct {
	store  MessageWriter
	delay  time.Duration
	logger *logger.Logger
}

// NewProducer creates a producer writing to store. A zero delay reveals
// tokens as fast as the store accepts them.
func NewProducer(store MessageWriter, delay time.Duration, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Global()
	}
	return &Producer{
		store:  store,
		delay:  delay,
		logger: log,
	}
}

// Tokens splits text on spaces the way it is revealed. Line breaks stay
// inside their token so formatting survives the reveal.
func Tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return r == ' ' })
}

// Produce appends the tokens of fullText to the target message, one per
// tick. Every intermediate tick leaves the message streaming; the last one
// clears the flag. The run stops without error when ctx is cancelled or the
// target disappears from the store.
func (p *Producer) Produce(ctx context.Context, conversationID, messageID, fullText string, onTick TickCallback) ProduceResult {
	log := p.logger.With(
		zap.String("conversation_id", conversationID),
		zap.String("message_id", messageID),
	)

	metrics.ProducersActive.Inc()
	defer metrics.ProducersActive.Dec()

	start := time.Now()
	tokens := Tokens(fullText)
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	limit := rate.Inf
	if p.delay > 0 {
		limit = rate.Every(p.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var (
		content strings.Builder
		result  ProduceResult
	)

	for i, token := range tokens {
		if err := limiter.Wait(ctx); err != nil {
			log.Debug("producer cancelled", zap.Int("ticks", result.Ticks), zap.Error(err))
			break
		}

		if i > 0 {
			content.WriteByte(' ')
		}
		content.WriteString(token)
		final := i == len(tokens)-1

		msg, err := p.store.UpdateMessage(conversationID, messageID, content.String(), !final)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMessageNotFound) {
				log.Warn("producer stopped", zap.Error(err))
			} else {
				log.Debug("producer target gone", zap.Error(err))
			}
			break
		}

		result.Ticks++
		result.Content = msg.Content
		metrics.ProducerTicks.Inc()
		if onTick != nil {
			onTick(msg, i)
		}

		if final {
			result.Completed = true
		}
	}

	metrics.RecordProducer(result.Completed, time.Since(start).Seconds())
	return result
}
