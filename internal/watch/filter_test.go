package watch

import (
	"log/slog"
	"testing"

	"github.com/flemzord/promowatch/pkg/event"
)

func TestFilterAccept(t *testing.T) {
	discard := slog.New(slog.DiscardHandler)
	botID := func() int64 { return 42 }

	f := NewFilter(botID, 7, []string{"Comentários"}, discard)

	tests := []struct {
		name       string
		ev         event.ChatEvent
		wantOK     bool
		wantReason string
	}{
		{
			name:   "plain group message",
			ev:     event.ChatEvent{SenderID: 100, ChatID: 1, ChatTitle: "Deals BR", Text: "ps5 em promoção"},
			wantOK: true,
		},
		{
			name:       "outgoing message",
			ev:         event.ChatEvent{SenderID: 7, ChatID: 1, Text: "hello", Outgoing: true},
			wantReason: "outgoing",
		},
		{
			name:       "message from the notification bot",
			ev:         event.ChatEvent{SenderID: 42, ChatID: 1, Text: "🔥 Deal found!"},
			wantReason: "from_bot",
		},
		{
			name:       "message from own account",
			ev:         event.ChatEvent{SenderID: 7, ChatID: 1, Text: "note to self"},
			wantReason: "from_self",
		},
		{
			name:       "blacklisted chat title",
			ev:         event.ChatEvent{SenderID: 100, ChatID: 2, ChatTitle: "Comentários", Text: "ps5"},
			wantReason: "blacklisted",
		},
		{
			name:       "empty text",
			ev:         event.ChatEvent{SenderID: 100, ChatID: 1, ChatTitle: "Deals BR", Text: "   "},
			wantReason: "empty_text",
		},
		{
			name:       "outgoing wins over blacklist",
			ev:         event.ChatEvent{SenderID: 7, ChatID: 2, ChatTitle: "Comentários", Text: "x", Outgoing: true},
			wantReason: "outgoing",
		},
		{
			name:       "bot check wins over empty text",
			ev:         event.ChatEvent{SenderID: 42, ChatID: 1, Text: ""},
			wantReason: "from_bot",
		},
		{
			name:   "private chat with empty title is not blacklisted",
			ev:     event.ChatEvent{SenderID: 100, ChatID: 3, ChatTitle: "", Text: "ps5"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := f.Accept(tt.ev)
			if ok != tt.wantOK {
				t.Errorf("Accept() ok = %v, want %v", ok, tt.wantOK)
			}
			if reason != tt.wantReason {
				t.Errorf("Accept() reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestFilterZeroIDsDisableChecks(t *testing.T) {
	discard := slog.New(slog.DiscardHandler)

	// Before the bot authenticates, botID reports zero; sender zero must
	// not be treated as the bot.
	f := NewFilter(func() int64 { return 0 }, 0, nil, discard)

	ok, reason := f.Accept(event.ChatEvent{SenderID: 0, ChatID: 1, Text: "ps5"})
	if !ok {
		t.Errorf("Accept() = false (%s), want true", reason)
	}
}
