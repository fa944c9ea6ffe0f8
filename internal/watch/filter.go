// Package watch implements the message ingestion pipeline: it filters
// inbound chat events, scans them against the keyword set, formats match
// notifications, and dispatches them to the notification sink.
package watch

import (
	"log/slog"
	"strings"

	"github.com/flemzord/promowatch/pkg/event"
)

// Rejection reasons, used for logging and the filtered-events metric.
const (
	reasonOutgoing    = "outgoing"
	reasonFromBot     = "from_bot"
	reasonFromSelf    = "from_self"
	reasonBlacklisted = "blacklisted"
	reasonEmptyText   = "empty_text"
)

// Filter decides whether an inbound event is eligible for keyword scanning.
// Own messages and the notification bot's deliveries are dropped to prevent
// feedback loops; blacklisted chats and empty texts are dropped early.
type Filter struct {
	// botID returns the notification bot's user ID. Resolved lazily
	// because the bot authenticates during module Start, after wiring.
	botID func() int64

	// selfID is the watching account's own user ID, when the bridge
	// reports it. Zero disables the check (outgoing flag still applies).
	selfID int64

	blacklist map[string]struct{}
	logger    *slog.Logger
}

// NewFilter creates a Filter. blacklist entries are chat titles excluded
// from scanning, compared exactly.
func NewFilter(botID func() int64, selfID int64, blacklist []string, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	bl := make(map[string]struct{}, len(blacklist))
	for _, title := range blacklist {
		bl[title] = struct{}{}
	}
	return &Filter{
		botID:     botID,
		selfID:    selfID,
		blacklist: bl,
		logger:    logger,
	}
}

// Accept reports whether the event should be scanned. When it returns
// false, reason names the first rejection rule that fired.
func (f *Filter) Accept(ev event.ChatEvent) (ok bool, reason string) {
	switch {
	case ev.Outgoing:
		reason = reasonOutgoing
	case f.botID != nil && f.botID() != 0 && ev.SenderID == f.botID():
		reason = reasonFromBot
	case f.selfID != 0 && ev.SenderID == f.selfID:
		reason = reasonFromSelf
	case f.isBlacklisted(ev.ChatTitle):
		reason = reasonBlacklisted
	case strings.TrimSpace(ev.Text) == "":
		reason = reasonEmptyText
	default:
		return true, ""
	}

	f.logger.Debug("event rejected",
		"reason", reason,
		"chat_id", ev.ChatID,
		"message_id", ev.MessageID,
	)
	return false, reason
}

func (f *Filter) isBlacklisted(title string) bool {
	if title == "" {
		return false
	}
	_, ok := f.blacklist[title]
	return ok
}
