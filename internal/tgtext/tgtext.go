package tgtext

import (
	"fmt"
	"strings"
)

var escaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// Escape neutralizes the Telegram Markdown control characters inside
// free-form text so player input cannot break message formatting.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Code wraps text in inline-code markup.
func Code(text string) string {
	return "`" + text + "`"
}

// Link renders a Markdown hyperlink.
func Link(label, target string) string {
	return fmt.Sprintf("[%s](%s)", label, target)
}

// UserLink renders a deep link that opens a chat with the given account,
// used for accounts that have no public handle.
func UserLink(label string, id int64) string {
	return fmt.Sprintf("[%s](tg://user?id=%d)", label, id)
}
