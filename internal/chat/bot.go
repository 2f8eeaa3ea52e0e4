// Package chat routes inbound messages and orchestrates one conversational
// turn: context assembly, the primary completion, reply delivery, and the
// fire-and-forget memory extraction that follows.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gbrlmrll/mnemo/internal/config"
	"github.com/gbrlmrll/mnemo/internal/extract"
	"github.com/gbrlmrll/mnemo/internal/facts"
	"github.com/gbrlmrll/mnemo/internal/gemini"
	"github.com/gbrlmrll/mnemo/internal/history"
	"github.com/gbrlmrll/mnemo/internal/observability"
	"github.com/gbrlmrll/mnemo/internal/prompt"
)

// Conn delivers outbound effects for one inbound message. The websocket
// gateway provides the production implementation; tests use fakes.
type Conn interface {
	Reply(text string) error
	React(emoji string) error
	Typing(active bool) error
}

// Inbound is one chat message with its sender identity, as handed over by
// the delivery layer.
type Inbound struct {
	UserID      string
	DisplayName string
	Text        string
}

// Bot handles inbound messages. Handling is synchronous up to and including
// the reply; only the two extraction tasks run detached.
type Bot struct {
	botName         string
	storePrefix     string
	chatPrefix      string
	chatPrefixShort string
	apiKey          string
	replyTimeout    time.Duration

	store     facts.Store
	window    *history.Window
	assembler *prompt.Assembler
	client    gemini.Client
	extractor *extract.Extractor
	metrics   *observability.Metrics
}

func NewBot(
	cfg config.Config,
	store facts.Store,
	window *history.Window,
	assembler *prompt.Assembler,
	client gemini.Client,
	extractor *extract.Extractor,
	metrics *observability.Metrics,
) *Bot {
	return &Bot{
		botName:         cfg.BotName,
		storePrefix:     cfg.StorePrefix,
		chatPrefix:      cfg.ChatPrefix,
		chatPrefixShort: cfg.ChatPrefixShort,
		apiKey:          cfg.GeminiAPIKey,
		replyTimeout:    cfg.ReplyTimeout,
		store:           store,
		window:          window,
		assembler:       assembler,
		client:          client,
		extractor:       extractor,
		metrics:         metrics,
	}
}

// HandleMessage processes one inbound message end to end. Messages that
// match no trigger are ignored silently.
func (b *Bot) HandleMessage(ctx context.Context, msg Inbound, conn Conn) {
	if strings.HasPrefix(msg.Text, b.storePrefix) {
		b.handleStoreCommand(ctx, msg, conn)
		return
	}

	promptText, ok := b.routePrompt(msg.Text)
	if !ok {
		return
	}

	if promptText == "" {
		b.countTurn("empty_prompt")
		b.reply(conn, fmt.Sprintf(
			"Hey, you need to ask me something! Try `%s<your question>`, `%s<your question>`, or mention me with `@%s <your question>`.",
			b.chatPrefix, b.chatPrefixShort, b.botName))
		return
	}

	if b.apiKey == "" {
		b.countTurn("offline")
		b.reply(conn, fmt.Sprintf("%s is currently offline. The Gemini API key is missing.", b.botName))
		return
	}

	b.runTurn(ctx, msg, promptText, conn)
}

func (b *Bot) handleStoreCommand(ctx context.Context, msg Inbound, conn Conn) {
	content := strings.TrimSpace(strings.TrimPrefix(msg.Text, b.storePrefix))
	if content == "" {
		b.reply(conn, fmt.Sprintf("What should I remember? Use `%s<your memory here>`.", b.storePrefix))
		return
	}
	b.store.AddUserFact(ctx, msg.UserID, msg.DisplayName, content)
	if err := conn.React("✅"); err != nil {
		log.Printf("reaction delivery failed for %s: %v", msg.UserID, err)
	}
}

// routePrompt recognizes the conversational triggers: bot mention or one of
// the two configured prefixes. The second return is false when the message
// is not addressed to the bot at all.
func (b *Bot) routePrompt(text string) (string, bool) {
	mention := "@" + b.botName
	trimmed := strings.TrimSpace(text)

	switch {
	case strings.Contains(trimmed, mention):
		return strings.TrimSpace(strings.ReplaceAll(trimmed, mention, "")), true
	case strings.HasPrefix(trimmed, b.chatPrefix):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, b.chatPrefix)), true
	case strings.HasPrefix(trimmed, b.chatPrefixShort):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, b.chatPrefixShort)), true
	}
	return "", false
}

func (b *Bot) runTurn(ctx context.Context, msg Inbound, promptText string, conn Conn) {
	// The window must receive the user turn before assembly so the prompt is
	// excluded from its own history slice, and before the reply goes out so
	// appends stay in arrival order.
	b.window.Append(msg.UserID, history.Turn{Role: history.RoleUser, Text: promptText})
	contents := b.assembler.Build(msg.UserID, msg.DisplayName, promptText)

	if err := conn.Typing(true); err != nil {
		log.Printf("typing indicator failed for %s: %v", msg.UserID, err)
	}
	defer func() {
		if err := conn.Typing(false); err != nil {
			log.Printf("typing indicator failed for %s: %v", msg.UserID, err)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, b.replyTimeout)
	defer cancel()

	started := time.Now()
	replyText, err := b.client.GenerateContent(callCtx, contents)

	if errors.Is(err, gemini.ErrNoCandidates) {
		b.countTurn("no_candidates")
		b.reply(conn, fmt.Sprintf("%s couldn't articulate a response.", b.botName))
		return
	}
	if err != nil {
		log.Printf("primary completion failed for %s: %v", msg.UserID, err)
		b.countTurn("failed")
		b.reply(conn, fmt.Sprintf("%s failed to reach the AI network: %v", b.botName, err))
		return
	}

	b.window.Append(msg.UserID, history.Turn{Role: history.RoleModel, Text: replyText})
	b.reply(conn, replyText)
	b.countTurn("replied")
	if b.metrics != nil {
		b.metrics.ObserveReplyLatency(time.Since(started))
	}

	b.extractor.SpawnTurnExtraction(msg.UserID, msg.DisplayName, promptText, replyText)
}

func (b *Bot) reply(conn Conn, text string) {
	if err := conn.Reply(text); err != nil {
		log.Printf("reply delivery failed: %v", err)
	}
}

func (b *Bot) countTurn(result string) {
	if b.metrics != nil {
		b.metrics.Turns.WithLabelValues(result).Inc()
	}
}
