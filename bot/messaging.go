package bot

import (
	"log/slog"
)

// SendMessageWithLevel delivers msg to every enabled chat whose level allows it
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	t.mu.RLock()
	targets := make([]int64, 0, len(t.chats))
	for id, sub := range t.chats {
		if sub.enabled && level >= sub.minLevel {
			targets = append(targets, id)
		}
	}
	t.mu.RUnlock()

	for _, id := range targets {
		t.plainResponse(id, msg)
	}
}
