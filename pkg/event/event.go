// Package event defines the data contract between the chat-event source,
// the watch pipeline, and the notification sink.
package event

import "time"

// ChatEvent is a single message observed in one of the watched chats.
// It is read-only to the pipeline: events are evaluated independently
// and never stored.
type ChatEvent struct {
	// SenderID identifies the author of the message.
	SenderID int64 `json:"sender_id"`

	// ChatID identifies the chat the message belongs to.
	ChatID int64 `json:"chat_id"`

	// ChatTitle is the chat's display title. Empty for private chats.
	ChatTitle string `json:"chat_title,omitempty"`

	// MessageID identifies the message within the chat.
	MessageID int64 `json:"message_id"`

	// Text is the raw message text.
	Text string `json:"text"`

	// Outgoing is true when the watching account itself sent the message.
	Outgoing bool `json:"outgoing,omitempty"`

	// Timestamp is when the message was sent, if the source provides it.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// IsPrivate reports whether the event originates from a private chat.
func (e ChatEvent) IsPrivate() bool {
	return e.ChatTitle == ""
}

// Notification is a formatted payload ready for delivery through a sink.
type Notification struct {
	// Text is the message body, already escaped for ParseMode.
	Text string

	// ParseMode is the markup format the sink should render the text with
	// (e.g. "MarkdownV2"). Empty means plain text.
	ParseMode string
}

// BotMessage is a command-surface message addressed to the bot,
// delivered by the notifier's update poller.
type BotMessage struct {
	// ChatID is the chat the command arrived in (also the reply target).
	ChatID int64

	// SenderID identifies the user who sent the command.
	SenderID int64

	// Text is the message text, including any leading /command.
	Text string
}
