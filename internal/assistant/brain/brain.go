// Package brain is the reasoning layer of the assistant: it classifies
// spoken commands into intents and, for open-ended requests, asks the
// language model for a reply grounded in recent conversation history.
package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/pkg/provider/llm"
)

// Defaults for prompt assembly.
const (
	DefaultHistoryWindow = 6
	DefaultRecallLimit   = 3
	DefaultMaxTokens     = 300
)

const systemPrompt = `You are Arthur, a warm and concise voice assistant.
You help with reminders, tasks, and study sessions, and you chat about
anything else. Your replies are spoken aloud, so keep them short — one or
two sentences — and never use lists, markdown, or emoji.`

// fallbackReply is spoken when the language model is unreachable. Losing the
// model must degrade the conversation, not kill it.
const fallbackReply = "Sorry, I'm having trouble thinking straight right now. Could you try that again in a moment?"

// Config holds the reasoning parameters.
type Config struct {
	// HistoryWindow is how many recent exchanges are replayed to the model.
	HistoryWindow int

	// RecallLimit caps semantically recalled past conversations.
	RecallLimit int

	// Temperature for chat completions.
	Temperature float64

	// MaxTokens caps the spoken reply length.
	MaxTokens int
}

func (c *Config) applyDefaults() {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	if c.RecallLimit <= 0 {
		c.RecallLimit = DefaultRecallLimit
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
}

// Brain wires the language model to the conversation store.
type Brain struct {
	cfg   Config
	model llm.Provider
	store store.Store
	log   *slog.Logger
}

// New builds a Brain. store may be nil, in which case replies are produced
// without history.
func New(cfg Config, model llm.Provider, st store.Store, log *slog.Logger) *Brain {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Brain{cfg: cfg, model: model, store: st, log: log}
}

// Think produces a spoken reply to userText. The model sees the system
// prompt, any semantically similar past exchanges, and the recent history
// window. Model failures are logged and answered with an apology; Think
// never returns an empty string.
func (b *Brain) Think(ctx context.Context, userText string) string {
	req := llm.CompletionRequest{
		SystemPrompt: b.buildSystemPrompt(ctx, userText),
		Messages:     append(b.history(ctx), llm.Message{Role: llm.RoleUser, Content: userText}),
		Temperature:  b.cfg.Temperature,
		MaxTokens:    b.cfg.MaxTokens,
	}

	resp, err := b.model.Complete(ctx, req)
	if err != nil {
		b.log.Error("completion failed", "error", err)
		return fallbackReply
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return fallbackReply
	}
	return reply
}

// buildSystemPrompt appends recalled context to the base personality prompt.
func (b *Brain) buildSystemPrompt(ctx context.Context, userText string) string {
	recaller, ok := b.store.(store.SemanticRecaller)
	if !ok {
		return systemPrompt
	}
	recalled, err := recaller.SimilarConversations(ctx, userText, b.cfg.RecallLimit)
	if err != nil {
		b.log.Warn("semantic recall failed", "error", err)
		return systemPrompt
	}
	if len(recalled) == 0 {
		return systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nRelevant earlier conversations:\n")
	for _, r := range recalled {
		fmt.Fprintf(&sb, "- User said %q and you replied %q\n",
			r.Conversation.UserText, r.Conversation.AssistantText)
	}
	return sb.String()
}

// history replays the recent exchanges oldest-first as chat messages.
func (b *Brain) history(ctx context.Context) []llm.Message {
	if b.store == nil {
		return nil
	}
	recent, err := b.store.RecentConversations(ctx, b.cfg.HistoryWindow)
	if err != nil {
		b.log.Warn("loading conversation history failed", "error", err)
		return nil
	}

	// RecentConversations is newest-first; the model wants chronological.
	msgs := make([]llm.Message, 0, len(recent)*2)
	for i := len(recent) - 1; i >= 0; i-- {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: recent[i].UserText},
			llm.Message{Role: llm.RoleAssistant, Content: recent[i].AssistantText},
		)
	}
	return msgs
}

// Remember persists one exchange. Errors are logged; a failed write must not
// interrupt the conversation.
func (b *Brain) Remember(ctx context.Context, userText, reply string) {
	if b.store == nil {
		return
	}
	if _, err := b.store.SaveConversation(ctx, store.Conversation{
		UserText:      userText,
		AssistantText: reply,
	}); err != nil {
		b.log.Warn("saving conversation failed", "error", err)
	}
}

// Greeting returns the time-of-day appropriate greeting spoken after the
// wake word.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 5:
		return "You're up late. How can I help?"
	case h < 12:
		return "Good morning! How can I help?"
	case h < 18:
		return "Good afternoon! What can I do for you?"
	default:
		return "Good evening! What do you need?"
	}
}

// Farewell is spoken when the user ends the conversation.
func Farewell() string {
	return "Alright, talk to you later."
}
