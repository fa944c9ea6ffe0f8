// Package markup provides Telegram MarkdownV2 escaping helpers shared by
// the notification formatter and the conversational command replies.
package markup

import "strings"

// markdownV2SpecialChars lists all characters that must be escaped in Telegram MarkdownV2.
var markdownV2SpecialChars = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// EscapeMarkdownV2 escapes all special characters for Telegram MarkdownV2 format.
// Special chars: _ * [ ] ( ) ~ ` > # + - = | { } . !
func EscapeMarkdownV2(text string) string {
	return markdownV2SpecialChars.Replace(text)
}

// Bold wraps text in MarkdownV2 bold markers, escaping the content.
func Bold(text string) string {
	return "*" + EscapeMarkdownV2(text) + "*"
}

// Italic wraps text in MarkdownV2 italic markers, escaping the content.
func Italic(text string) string {
	return "_" + EscapeMarkdownV2(text) + "_"
}

// Code wraps text in MarkdownV2 inline-code markers. Backticks and
// backslashes inside inline code still need escaping.
func Code(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(text)
	return "`" + escaped + "`"
}

// Link renders a MarkdownV2 inline link with an escaped label. The URL is
// emitted as-is apart from the two characters MarkdownV2 requires escaping
// inside link targets.
func Link(label, url string) string {
	escapedURL := strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(url)
	return "[" + EscapeMarkdownV2(label) + "](" + escapedURL + ")"
}
