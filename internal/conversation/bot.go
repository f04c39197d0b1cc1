package conversation

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

var botTracer = otel.Tracer("tablebook.internal.conversation.bot")

// Bot composes the intent classifier, per-sender session tracking, and the
// optional generative reply client into a single reply path.
type Bot struct {
	sessions SessionStore
	replies  ReplyClient
	logger   *logging.Logger
}

// NewBot constructs a bot. The reply client may be nil; template replies are
// then used unconditionally.
func NewBot(sessions SessionStore, replies ReplyClient, logger *logging.Logger) *Bot {
	if sessions == nil {
		panic("conversation: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Bot{
		sessions: sessions,
		replies:  replies,
		logger:   logger,
	}
}

// Reply classifies the message, records the intent against the sender's
// session, and produces the reply text. Generative failures are logged and
// swallowed; the caller always gets a usable reply.
func (b *Bot) Reply(ctx context.Context, sender, text string) (string, Intent) {
	ctx, span := botTracer.Start(ctx, "conversation.bot.reply")
	defer span.End()

	intent := DetectIntent(text)
	span.SetAttributes(
		attribute.String("tablebook.sender", sender),
		attribute.String("tablebook.intent", string(intent)),
	)

	if _, err := b.sessions.Touch(ctx, sender, intent); err != nil {
		// Session bookkeeping must never block a reply.
		b.logger.Warn("failed to record conversation session", "error", err, "sender", sender)
	}

	if b.replies != nil {
		reply, err := b.replies.Reply(ctx, intent, text)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply, intent
		}
		if err != nil {
			b.logger.Debug("generative reply unavailable, using template", "error", err, "intent", intent)
		}
	}

	return DefaultReply(intent), intent
}
