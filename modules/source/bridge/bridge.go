// Package bridge implements the websocket event source. A companion bridge
// process logged into the watched account streams chat events as JSON
// frames; this module maintains the connection and feeds the pipeline.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/promowatch/internal/core"
	"github.com/flemzord/promowatch/pkg/event"
)

func init() {
	core.RegisterModule(&Bridge{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Bridge)(nil)
	_ core.Provisioner  = (*Bridge)(nil)
	_ core.Validator    = (*Bridge)(nil)
	_ core.Starter      = (*Bridge)(nil)
	_ core.Stopper      = (*Bridge)(nil)
)

const (
	defaultDialTimeout  = 15 * time.Second
	initialReconnectGap = time.Second
	maxReconnectGap     = time.Minute
	maxFrameBytes       = 1 << 20 // 1 MiB — a chat event frame should never be bigger.
)

// Config holds the bridge connection configuration.
type Config struct {
	// URL is the bridge websocket endpoint (ws:// or wss://).
	URL string `yaml:"url"`

	// Token, when set, is sent as a bearer token on the dial request.
	Token string `yaml:"token"`

	// SelfID is the watched account's own user ID, used to drop the
	// account's own messages. Zero disables the check.
	SelfID int64 `yaml:"self_id"`

	// Blacklist lists chat titles whose messages are never scanned,
	// compared exactly.
	Blacklist []string `yaml:"blacklist"`

	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

func (c *Config) defaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
}

// Bridge is the websocket event source module.
type Bridge struct {
	config Config
	logger *slog.Logger
	inbox  func(event.ChatEvent) error

	cancel context.CancelFunc
	done   chan struct{}
}

// ModuleInfo implements core.Module.
func (b *Bridge) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "source.bridge",
		New: func() core.Module { return &Bridge{} },
	}
}

// Configure implements core.Configurable.
func (b *Bridge) Configure(node *yaml.Node) error {
	if err := node.Decode(&b.config); err != nil {
		return fmt.Errorf("bridge: decode config: %w", err)
	}
	b.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (b *Bridge) Provision(ctx *core.AppContext) error {
	b.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (b *Bridge) Validate() error {
	if b.config.URL == "" {
		return errors.New("bridge: url is required")
	}
	u, err := url.Parse(b.config.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("bridge: url must be a ws/wss URL, got %q", b.config.URL)
	}
	return nil
}

// SelfID returns the configured account user ID, or zero.
func (b *Bridge) SelfID() int64 {
	return b.config.SelfID
}

// Blacklist returns the configured excluded chat titles.
func (b *Bridge) Blacklist() []string {
	return b.config.Blacklist
}

// SetInbox installs the handler invoked for each inbound chat event.
// Must be called before Start.
func (b *Bridge) SetInbox(fn func(event.ChatEvent) error) {
	b.inbox = fn
}

// Start implements core.Starter. It launches the connect-and-read loop;
// the first connection attempt happens in the background so a briefly
// unreachable bridge does not fail startup.
func (b *Bridge) Start() error {
	if b.inbox == nil {
		return errors.New("bridge: inbox not set, call SetInbox before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.run(ctx)
	b.logger.Info("bridge source started", "url", b.config.URL)
	return nil
}

// Stop implements core.Stopper.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run dials the bridge and reads frames until the context is cancelled,
// reconnecting with capped exponential backoff.
func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)

	gap := initialReconnectGap
	for {
		conn, err := b.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("bridge dial failed", "error", err, "retry_in", gap)
			select {
			case <-ctx.Done():
				return
			case <-time.After(gap):
			}
			gap = min(gap*2, maxReconnectGap)
			continue
		}

		b.logger.Info("bridge connected", "url", b.config.URL)
		gap = initialReconnectGap

		err = b.readLoop(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "")
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("bridge connection lost", "error", err, "retry_in", gap)

		select {
		case <-ctx.Done():
			return
		case <-time.After(gap):
		}
		gap = min(gap*2, maxReconnectGap)
	}
}

func (b *Bridge) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, b.config.DialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if b.config.Token != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": {"Bearer " + b.config.Token},
		}
	}

	conn, _, err := websocket.Dial(dialCtx, b.config.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", b.config.URL, err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return conn, nil
}

// readLoop decodes one chat event per text frame. Malformed frames are
// logged and skipped; they do not tear down the connection.
func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var ev event.ChatEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("bridge frame discarded", "error", err)
			continue
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}

		if err := b.inbox(ev); err != nil {
			b.logger.Error("failed to deliver event to inbox",
				"chat_id", ev.ChatID,
				"message_id", ev.MessageID,
				"error", err,
			)
		}
	}
}
