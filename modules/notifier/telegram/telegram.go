package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/promowatch/internal/core"
	"github.com/flemzord/promowatch/internal/markup"
	"github.com/flemzord/promowatch/pkg/event"
)

// maxMessageLen is the Bot API limit on message text length. Longer texts
// (a /list reply with many keywords, say) are split at line boundaries.
const maxMessageLen = 4096

func init() {
	core.RegisterModule(&Notifier{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Notifier)(nil)
	_ core.Provisioner  = (*Notifier)(nil)
	_ core.Validator    = (*Notifier)(nil)
	_ core.Starter      = (*Notifier)(nil)
	_ core.Stopper      = (*Notifier)(nil)
)

// Notifier implements the Telegram Bot API notifier module. It delivers
// match alerts to the configured recipient and long-polls for the
// keyword-management commands.
type Notifier struct {
	config Config
	client *Client
	logger *slog.Logger
	inbox  func(event.BotMessage) error
	poller *Poller

	// botID is the bot's own user ID, known after getMe at Start. The
	// pipeline filter reads it concurrently to drop the bot's own alerts.
	botID atomic.Int64
}

// ModuleInfo implements core.Module.
func (n *Notifier) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "notifier.telegram",
		New: func() core.Module { return &Notifier{} },
	}
}

// Configure implements core.Configurable.
func (n *Notifier) Configure(node *yaml.Node) error {
	if err := node.Decode(&n.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	n.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (n *Notifier) Provision(ctx *core.AppContext) error {
	n.logger = ctx.Logger
	n.client = NewClient(n.config.Token, n.config.APIURL)
	ctx.RegisterService("notifier.sink", n)
	return nil
}

// Validate implements core.Validator.
func (n *Notifier) Validate() error {
	if n.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	if n.config.Recipient == 0 {
		return errors.New("telegram: recipient is required")
	}
	return n.config.validate()
}

// Start implements core.Starter. It validates the bot token, then starts
// the command poller.
func (n *Notifier) Start() error {
	if n.inbox == nil {
		return errors.New("telegram: inbox not set, call SetInbox before Start")
	}

	user, err := n.client.GetMe(context.Background())
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	n.botID.Store(user.ID)
	n.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	n.poller = NewPoller(n.client, n.inbox, n.logger, n.config.PollingTimeout)
	n.poller.Start()
	n.logger.Info("telegram polling started",
		"timeout", n.config.PollingTimeout,
	)
	return nil
}

// Stop implements core.Stopper.
func (n *Notifier) Stop(ctx context.Context) error {
	n.logger.Info("telegram notifier stopping")
	if n.poller != nil {
		n.poller.Stop()
	}
	return nil
}

// Notify sends a notification to the configured recipient. It satisfies
// the pipeline's sink contract.
func (n *Notifier) Notify(ctx context.Context, note event.Notification) error {
	return n.Reply(ctx, n.config.Recipient, note)
}

// Reply sends a notification to an arbitrary chat. It satisfies the
// command router's replier contract. Texts over the Bot API length limit
// are sent as multiple messages.
func (n *Notifier) Reply(ctx context.Context, chatID int64, note event.Notification) error {
	for _, chunk := range markup.Split(note.Text, maxMessageLen) {
		_, err := n.client.SendMessage(ctx, SendMessageRequest{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: note.ParseMode,
		})
		if err != nil {
			return fmt.Errorf("telegram: send message: %w", err)
		}
	}
	return nil
}

// SetInbox installs the handler invoked for each inbound bot message.
// Must be called before Start.
func (n *Notifier) SetInbox(fn func(event.BotMessage) error) {
	n.inbox = fn
}

// BotID returns the bot's user ID, or zero before authentication.
func (n *Notifier) BotID() int64 {
	return n.botID.Load()
}

// Recipient returns the configured recipient user ID.
func (n *Notifier) Recipient() int64 {
	return n.config.Recipient
}
