package watch

import (
	"fmt"

	"github.com/flemzord/promowatch/internal/markup"
	"github.com/flemzord/promowatch/pkg/event"
)

// privateChatLabel is shown when the event has no chat title.
const privateChatLabel = "Private chat"

// FormatAlert builds the notification payload for a matched event.
// All user-supplied text (phrase, chat title, message body) is escaped for
// MarkdownV2 so markup-significant characters in promo posts cannot corrupt
// the rendered notification.
func FormatAlert(ev event.ChatEvent, phrase string) event.Notification {
	title := ev.ChatTitle
	if title == "" {
		title = privateChatLabel
	}

	text := markup.Bold("🔥 Deal found!") + "\n\n" +
		markup.Bold("Product:") + " " + markup.Code(phrase) + "\n" +
		markup.Bold("Chat:") + " " + markup.Code(title) + "\n\n" +
		markup.Bold("Original message:") + "\n" +
		markup.Italic(ev.Text) + "\n\n" +
		"➡️ " + markup.Link("Open message", DeepLink(ev.ChatID, ev.MessageID))

	return event.Notification{
		Text:      text,
		ParseMode: "MarkdownV2",
	}
}

// DeepLink builds the t.me link pointing at the matched message.
func DeepLink(chatID, messageID int64) string {
	return fmt.Sprintf("https://t.me/c/%d/%d", chatID, messageID)
}
