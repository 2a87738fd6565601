package bot

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/stretchr/testify/assert"
)

type sent struct {
	chatId int64
	text   string
	mode   string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	fail bool
}

func (f *fakeSender) SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chatId: chatId, text: text, mode: opts.ParseMode})
	if f.fail && opts.ParseMode != "" {
		return nil, errors.New("can't parse entities")
	}
	return &tgbotapi.Message{}, nil
}

func (f *fakeSender) chats() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.msgs))
	for _, m := range f.msgs {
		ids = append(ids, m.chatId)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a\\.b\\-c", Sanitize("a.b-c"))
	assert.Equal(t, "\\(1\\) \\*x\\*", Sanitize("(1) *x*"))
	assert.Equal(t, "plain text", Sanitize("plain text"))
}

func TestSendMessageWithLevel(t *testing.T) {
	f := &fakeSender{}
	b := newTgBot(f, []int64{1, 2, 3}, slog.LevelWarn, discard())
	b.setLevel(2, slog.LevelError)
	b.setEnabled(3, false)

	b.SendMessageWithLevel("warn", slog.LevelWarn)
	assert.Equal(t, []int64{1}, f.chats())

	f.msgs = nil
	b.SendMessageWithLevel("error", slog.LevelError)
	assert.Equal(t, []int64{1, 2}, f.chats())

	f.msgs = nil
	b.SendMessageWithLevel("info", slog.LevelInfo)
	assert.Empty(t, f.chats())
}

func TestUnknownChat(t *testing.T) {
	b := newTgBot(&fakeSender{}, []int64{1}, slog.LevelError, discard())
	assert.False(t, b.setEnabled(99, true))
	assert.False(t, b.setLevel(99, slog.LevelDebug))
	assert.Nil(t, b.findChat(99))
	assert.NotNil(t, b.findChat(1))
}

func TestPlainResponseFallback(t *testing.T) {
	f := &fakeSender{fail: true}
	b := newTgBot(f, []int64{1}, slog.LevelError, discard())

	b.plainResponse(1, "*broken")
	assert.Len(t, f.msgs, 3)
	assert.Equal(t, "", f.msgs[2].mode)
	assert.Equal(t, "*broken", f.msgs[2].text)

	f.msgs = nil
	b.plainResponse(1, "")
	assert.Empty(t, f.msgs)
}
