package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const helpText = "*QR scan alerts*\n" +
	"/start \\- enable alerts\n" +
	"/stop \\- pause alerts\n" +
	"/level `<n>` \\- minimum level: \\-4 debug, 0 info, 4 warn, 8 error\n" +
	"/status \\- current settings"

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.setEnabled(chatId, true) {
		t.plainResponse(chatId, fmt.Sprintf("This chat is not configured for alerts\\. Chat id: `%d`", chatId))
		return nil
	}
	t.plainResponse(chatId, "Alerts ENABLED")
	return nil
}

func (t *TgBot) stop(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.setEnabled(chatId, false) {
		return nil
	}
	t.plainResponse(chatId, "Alerts DISABLED")
	return nil
}

func (t *TgBot) level(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: /level `<n>`")
		return nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		t.plainResponse(chatId, "Level must be a number")
		return nil
	}
	if !t.setLevel(chatId, slog.Level(n)) {
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf("Level set to *%s*", Sanitize(slog.Level(n).String())))
	return nil
}

func (t *TgBot) status(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	sub := t.findChat(chatId)
	if sub == nil {
		return nil
	}
	t.mu.RLock()
	state := "disabled"
	if sub.enabled {
		state = "enabled"
	}
	msg := fmt.Sprintf("Alerts: *%s*\nLevel: *%s*\nUptime: %s",
		state,
		Sanitize(sub.minLevel.String()),
		Sanitize(time.Since(t.started).Truncate(time.Second).String()),
	)
	t.mu.RUnlock()
	t.plainResponse(chatId, msg)
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	t.plainResponse(ctx.EffectiveChat.Id, helpText)
	return nil
}

func (t *TgBot) setEnabled(chatId int64, enabled bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub, ok := t.chats[chatId]
	if !ok {
		return false
	}
	sub.enabled = enabled
	return true
}

func (t *TgBot) setLevel(chatId int64, level slog.Level) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub, ok := t.chats[chatId]
	if !ok {
		return false
	}
	sub.minLevel = level
	return true
}
