package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"qrtrack/bot"
)

type Notifier interface {
	SendMessageWithLevel(msg string, level slog.Level)
}

// TelegramHandler passes every record to the wrapped handler and
// copies records at minLevel and above to Telegram
type TelegramHandler struct {
	handler  slog.Handler
	notifier Notifier
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, notifier Notifier, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
		attrs:    make([]slog.Attr, 0),
	}
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel || h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.handler.Enabled(ctx, record.Level) {
		if err := h.handler.Handle(ctx, record); err != nil {
			return err
		}
	}
	if record.Level >= h.minLevel && h.notifier != nil {
		h.notifier.SendMessageWithLevel(h.format(record), record.Level)
	}
	return nil
}

func (h *TelegramHandler) format(record slog.Record) string {
	var b strings.Builder
	message := record.Message
	if h.group != "" {
		message = h.group + "." + message
	}
	b.WriteString(fmt.Sprintf("*%s* `%s`", record.Level.String(), message))

	write := func(attr slog.Attr) {
		if attr.Key == "error" {
			b.WriteString(fmt.Sprintf("\n%s: ```error %v ```", attr.Key, attr.Value))
			return
		}
		b.WriteString(bot.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)))
	}
	for _, attr := range h.attrs {
		write(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		write(attr)
		return true
	})
	return b.String()
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    merged,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
