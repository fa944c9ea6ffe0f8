package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/flemzord/promowatch/pkg/event"
)

func TestBridgeValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid ws", config: Config{URL: "ws://localhost:9000/events"}},
		{name: "valid wss", config: Config{URL: "wss://bridge.example.com/events"}},
		{name: "missing url", config: Config{}, wantErr: true},
		{name: "http scheme", config: Config{URL: "http://localhost:9000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bridge{config: tt.config}
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBridgeReceivesEvents(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("Accept() error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ev := event.ChatEvent{
			SenderID:  100,
			ChatID:    1234,
			ChatTitle: "Deals BR",
			MessageID: 9,
			Text:      "ps5 restock",
		}
		data, _ := json.Marshal(ev)
		if err := conn.Write(r.Context(), websocket.MessageText, data); err != nil {
			return
		}

		// Malformed frame: logged and skipped, connection stays up.
		_ = conn.Write(r.Context(), websocket.MessageText, []byte("{not json"))

		// Hold the connection open until the client goes away.
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	received := make(chan event.ChatEvent, 8)

	b := &Bridge{
		config: Config{
			URL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
			Token: "secret",
		},
		logger: slog.New(slog.DiscardHandler),
	}
	b.config.defaults()
	b.SetInbox(func(ev event.ChatEvent) error {
		received <- ev
		return nil
	})

	if err := b.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Stop(ctx); err != nil {
			t.Errorf("Stop() error: %v", err)
		}
	}()

	select {
	case auth := <-gotAuth:
		if auth != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dial")
	}

	select {
	case ev := <-received:
		if ev.ChatID != 1234 || ev.Text != "ps5 restock" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Error("Timestamp not defaulted")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	// The malformed frame never reaches the inbox.
	select {
	case ev := <-received:
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridgeStartRequiresInbox(t *testing.T) {
	b := &Bridge{
		config: Config{URL: "ws://localhost:9000"},
		logger: slog.New(slog.DiscardHandler),
	}
	if err := b.Start(); err == nil {
		t.Error("Start() error = nil, want inbox error")
	}
}
