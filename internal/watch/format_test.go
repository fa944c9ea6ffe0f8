package watch

import (
	"strings"
	"testing"
	"time"

	"github.com/flemzord/promowatch/pkg/event"
)

func TestFormatAlert(t *testing.T) {
	ev := event.ChatEvent{
		SenderID:  100,
		ChatID:    1234567890,
		ChatTitle: "Deals & Coupons!",
		MessageID: 99,
		Text:      "PS5 Pro for $399.99 - limited!",
		Timestamp: time.Now(),
	}

	n := FormatAlert(ev, "ps5 pro")

	if n.ParseMode != "MarkdownV2" {
		t.Errorf("ParseMode = %q, want %q", n.ParseMode, "MarkdownV2")
	}

	wantParts := []string{
		"*🔥 Deal found\\!*",
		"`ps5 pro`",
		"`Deals & Coupons!`",
		`_PS5 Pro for $399\.99 \- limited\!_`,
		"[Open message](https://t.me/c/1234567890/99)",
	}
	for _, part := range wantParts {
		if !strings.Contains(n.Text, part) {
			t.Errorf("FormatAlert() missing %q in:\n%s", part, n.Text)
		}
	}
}

func TestFormatAlertPrivateChat(t *testing.T) {
	ev := event.ChatEvent{ChatID: 55, MessageID: 3, Text: "hi"}

	n := FormatAlert(ev, "hi")
	if !strings.Contains(n.Text, "`Private chat`") {
		t.Errorf("FormatAlert() = %q, want private chat label", n.Text)
	}
}

func TestDeepLink(t *testing.T) {
	got := DeepLink(1234567890, 42)
	want := "https://t.me/c/1234567890/42"
	if got != want {
		t.Errorf("DeepLink() = %q, want %q", got, want)
	}
}
