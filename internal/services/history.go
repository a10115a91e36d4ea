// Package services – conversation history handling.
//
// Both advisor engines receive a caller-supplied message history. It is
// untrusted input: roles are whitelisted, contents trimmed and capped, and
// only the most recent turns are kept before the history reaches a prompt.
package services

import "strings"

const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"

	// maxHistoryMessages is the number of most recent turns kept.
	maxHistoryMessages = 8
	// maxHistoryRunes caps each message content by rune length.
	maxHistoryRunes = 2000
)

// ChatMessage is one caller-supplied conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SanitizeHistory filters a history down to well-formed entries: role must
// be user/assistant/system, content is trimmed and capped at 2000 runes, and
// only the last 8 entries survive (oldest beyond the cap are dropped).
//
// The function is idempotent: sanitizing its own output returns an equal
// slice. It never returns nil.
func SanitizeHistory(history []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case roleUser, roleAssistant, roleSystem:
		default:
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if runes := []rune(content); len(runes) > maxHistoryRunes {
			// Re-trim after the cut so truncation cannot leave trailing
			// whitespace, which would break idempotence.
			content = strings.TrimSpace(string(runes[:maxHistoryRunes]))
		}
		out = append(out, ChatMessage{Role: m.Role, Content: content})
	}
	if len(out) > maxHistoryMessages {
		out = out[len(out)-maxHistoryMessages:]
	}
	return out
}
