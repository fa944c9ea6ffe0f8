// Package command implements the conversational bot interface for managing
// the keyword set: /add and /delete run short two-step conversations, /list
// and /start answer immediately.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/promowatch/internal/keyword"
	"github.com/flemzord/promowatch/internal/markup"
	"github.com/flemzord/promowatch/pkg/event"
)

const defaultConversationTimeout = 5 * time.Minute

// state is the per-chat conversation state.
type state int

const (
	stateIdle state = iota
	stateAwaitingAddPhrase
	stateAwaitingDeletePhrase
)

// session tracks one chat's pending conversation.
type session struct {
	state        state
	lastActiveAt time.Time
}

// KeywordStore is the subset of the keyword store the router needs.
// *keyword.Store satisfies it.
type KeywordStore interface {
	Add(phrase string) (keyword.AddResult, error)
	Remove(phrase string) (keyword.RemoveResult, error)
	List() []string
}

// Replier sends a reply back into the chat a command came from.
type Replier interface {
	Reply(ctx context.Context, chatID int64, n event.Notification) error
}

// Config holds router construction parameters.
type Config struct {
	// Recipient is the only user ID allowed to issue commands.
	Recipient int64

	Store   KeywordStore
	Replier Replier
	Logger  *slog.Logger

	// ConversationTimeout resets a pending /add or /delete conversation
	// after this much inactivity. Zero means the default (5 minutes).
	ConversationTimeout time.Duration
}

// Router dispatches inbound bot messages to command handlers. It keeps a
// small per-chat state machine so /add and /delete can ask a follow-up
// question. Safe for concurrent use.
type Router struct {
	recipient int64
	store     KeywordStore
	replier   Replier
	logger    *slog.Logger
	timeout   time.Duration

	mu       sync.Mutex
	sessions map[int64]*session

	// now is injectable for deterministic timeout tests.
	now func() time.Time
}

// NewRouter creates a Router from cfg.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Recipient == 0 {
		return nil, errors.New("command: recipient is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("command: keyword store is required")
	}
	if cfg.Replier == nil {
		return nil, errors.New("command: replier is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ConversationTimeout
	if timeout <= 0 {
		timeout = defaultConversationTimeout
	}
	return &Router{
		recipient: cfg.Recipient,
		store:     cfg.Store,
		replier:   cfg.Replier,
		logger:    logger,
		timeout:   timeout,
		sessions:  make(map[int64]*session),
		now:       time.Now,
	}, nil
}

// Handle processes one inbound bot message. Messages from anyone but the
// configured recipient are dropped. Reply failures are returned so the
// poller can log them, but the conversation state is already advanced.
func (r *Router) Handle(ctx context.Context, msg event.BotMessage) error {
	if msg.SenderID != r.recipient {
		r.logger.Debug("command from unauthorized sender ignored",
			"sender_id", msg.SenderID,
			"chat_id", msg.ChatID,
		)
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	st := r.sessionState(msg.ChatID)

	if cmd, ok := parseCommand(text); ok {
		return r.handleCommand(ctx, msg.ChatID, cmd)
	}

	switch st {
	case stateAwaitingAddPhrase:
		return r.finishAdd(ctx, msg.ChatID, text)
	case stateAwaitingDeletePhrase:
		return r.finishDelete(ctx, msg.ChatID, text)
	default:
		return r.reply(ctx, msg.ChatID,
			"I only speak commands\\. Try /add, /delete or /list\\.")
	}
}

// sessionState returns the chat's current state, expiring stale
// conversations on the way. Expiry is lazy: there is no background pruner,
// the check happens on the next message.
func (r *Router) sessionState(chatID int64) state {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[chatID]
	if !ok {
		return stateIdle
	}
	if r.now().Sub(sess.lastActiveAt) > r.timeout {
		delete(r.sessions, chatID)
		r.logger.Debug("conversation expired", "chat_id", chatID)
		return stateIdle
	}
	return sess.state
}

func (r *Router) setState(chatID int64, st state) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st == stateIdle {
		delete(r.sessions, chatID)
		return
	}
	r.sessions[chatID] = &session{state: st, lastActiveAt: r.now()}
}

// parseCommand extracts the command name from a /-prefixed message,
// stripping any @botname suffix. Returns false for plain text.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	if at := strings.IndexByte(cmd, '@'); at != -1 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), true
}

func (r *Router) handleCommand(ctx context.Context, chatID int64, cmd string) error {
	// Any command aborts a pending conversation.
	r.setState(chatID, stateIdle)

	switch cmd {
	case "/start":
		return r.reply(ctx, chatID,
			markup.Bold("👋 Promo watcher")+"\n\n"+
				"/add \\- watch a new product\n"+
				"/delete \\- stop watching a product\n"+
				"/list \\- show watched products\n"+
				"/cancel \\- abort the current step")

	case "/list":
		return r.replyList(ctx, chatID)

	case "/add":
		r.setState(chatID, stateAwaitingAddPhrase)
		return r.reply(ctx, chatID,
			"What product should I watch? Send the name, or /cancel\\.")

	case "/delete":
		phrases := r.store.List()
		if len(phrases) == 0 {
			return r.reply(ctx, chatID, "The watch list is empty\\.")
		}
		r.setState(chatID, stateAwaitingDeletePhrase)
		var b strings.Builder
		b.WriteString("Which product should I stop watching?\n\n")
		for _, p := range phrases {
			b.WriteString("• " + markup.Code(p) + "\n")
		}
		b.WriteString("\nSend the name, or /cancel\\.")
		return r.reply(ctx, chatID, b.String())

	case "/cancel":
		return r.reply(ctx, chatID, "Cancelled\\.")

	default:
		return r.reply(ctx, chatID,
			"Unknown command\\. Try /add, /delete or /list\\.")
	}
}

func (r *Router) finishAdd(ctx context.Context, chatID int64, text string) error {
	r.setState(chatID, stateIdle)

	result, err := r.store.Add(text)
	switch {
	case errors.Is(err, keyword.ErrEmptyPhrase):
		return r.reply(ctx, chatID,
			"That doesn't look like a product name\\. Nothing added\\.")
	case result == keyword.AlreadyExists:
		return r.reply(ctx, chatID,
			"Already watching "+markup.Code(keyword.Normalize(text))+"\\.")
	case result == keyword.Added:
		if err != nil {
			// Kept in memory but not persisted; warn, do not hide the add.
			r.logger.Warn("keyword added but not persisted", "error", err)
		}
		return r.reply(ctx, chatID,
			"✅ Now watching "+markup.Code(keyword.Normalize(text))+"\\.")
	default:
		return fmt.Errorf("command: add keyword: %w", err)
	}
}

func (r *Router) finishDelete(ctx context.Context, chatID int64, text string) error {
	r.setState(chatID, stateIdle)

	result, err := r.store.Remove(text)
	switch {
	case result == keyword.NotFound:
		return r.reply(ctx, chatID,
			markup.Code(keyword.Normalize(text))+" is not on the watch list\\.")
	case result == keyword.Removed:
		if err != nil {
			r.logger.Warn("keyword removed but not persisted", "error", err)
		}
		return r.reply(ctx, chatID,
			"🗑 Stopped watching "+markup.Code(keyword.Normalize(text))+"\\.")
	default:
		return fmt.Errorf("command: remove keyword: %w", err)
	}
}

func (r *Router) replyList(ctx context.Context, chatID int64) error {
	phrases := r.store.List()
	if len(phrases) == 0 {
		return r.reply(ctx, chatID,
			"The watch list is empty\\. Use /add to watch a product\\.")
	}
	var b strings.Builder
	b.WriteString(markup.Bold("Watched products:") + "\n\n")
	for _, p := range phrases {
		b.WriteString("• " + markup.Code(p) + "\n")
	}
	return r.reply(ctx, chatID, b.String())
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) error {
	err := r.replier.Reply(ctx, chatID, event.Notification{
		Text:      text,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("command: send reply: %w", err)
	}
	return nil
}
