package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/promowatch/pkg/event"
)

func TestNotifierValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid",
			config: Config{Token: "12345:abc-DEF_ghi", Recipient: 7},
		},
		{
			name:    "missing token",
			config:  Config{Recipient: 7},
			wantErr: true,
		},
		{
			name:    "missing recipient",
			config:  Config{Token: "12345:abc"},
			wantErr: true,
		},
		{
			name:    "malformed token",
			config:  Config{Token: "not a token", Recipient: 7},
			wantErr: true,
		},
		{
			name:    "polling timeout out of range",
			config:  Config{Token: "12345:abc", Recipient: 7, PollingTimeout: 90},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notifier{config: tt.config}
			err := n.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNotifyTargetsRecipient(t *testing.T) {
	var gotChatID atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotChatID.Store(req.ChatID)
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 1}})
	}))
	defer srv.Close()

	n := &Notifier{
		config: Config{Token: "T", Recipient: 777, APIURL: srv.URL},
		logger: slog.New(slog.DiscardHandler),
	}
	n.client = NewClient(n.config.Token, n.config.APIURL)

	err := n.Notify(context.Background(), event.Notification{Text: "hi", ParseMode: "MarkdownV2"})
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if gotChatID.Load() != 777 {
		t.Errorf("ChatID = %d, want 777", gotChatID.Load())
	}
}

func TestStartRequiresInbox(t *testing.T) {
	n := &Notifier{
		config: Config{Token: "T", Recipient: 7},
		logger: slog.New(slog.DiscardHandler),
	}
	if err := n.Start(); err == nil {
		t.Error("Start() error = nil, want inbox error")
	}
}

func TestPollerForwardsTextMessages(t *testing.T) {
	var served atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if served.CompareAndSwap(false, true) {
			writeJSON(t, w, APIResponse[[]Update]{
				OK: true,
				Result: []Update{
					{UpdateID: 1, Message: &Message{
						MessageID: 10,
						From:      &User{ID: 7},
						Chat:      Chat{ID: 7, Type: "private"},
						Text:      "/list",
					}},
					// No sender: skipped.
					{UpdateID: 2, Message: &Message{MessageID: 11, Chat: Chat{ID: 7}, Text: "x"}},
					// No text: skipped.
					{UpdateID: 3, Message: &Message{MessageID: 12, From: &User{ID: 7}, Chat: Chat{ID: 7}}},
				},
			})
			return
		}
		// Later polls return nothing until the poller stops.
		writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: []Update{}})
	}))
	defer srv.Close()

	received := make(chan event.BotMessage, 8)
	inbox := func(m event.BotMessage) error {
		received <- m
		return nil
	}

	poller := NewPoller(NewClient("T", srv.URL), inbox, slog.New(slog.DiscardHandler), 0)
	poller.Start()
	defer poller.Stop()

	select {
	case got := <-received:
		if got.SenderID != 7 || got.ChatID != 7 || got.Text != "/list" {
			t.Errorf("inbox message = %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbox delivery")
	}

	// The malformed updates must not arrive.
	select {
	case got := <-received:
		t.Errorf("unexpected extra message %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}
