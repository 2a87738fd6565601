// Package bot sends service alerts to Telegram chats.
//
// Only chats listed in the configuration receive messages. Each chat can
// pause alerts (/stop, /start) and raise its own minimum level (/level).
package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"qrtrack/lib/sl"
)

type sender interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

// subscription is the alert state of one configured chat
type subscription struct {
	enabled  bool
	minLevel slog.Level
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	send    sender
	mu      sync.RWMutex
	chats   map[int64]*subscription
	updater *ext.Updater
	started time.Time
}

func NewTgBot(apiKey string, chatIds []int64, minLevel slog.Level, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	t := newTgBot(api, chatIds, minLevel, log)
	t.api = api
	return t, nil
}

func newTgBot(send sender, chatIds []int64, minLevel slog.Level, log *slog.Logger) *TgBot {
	chats := make(map[int64]*subscription, len(chatIds))
	for _, id := range chatIds {
		chats[id] = &subscription{enabled: true, minLevel: minLevel}
	}
	return &TgBot{
		log:     log.With(sl.Module("tgbot")),
		send:    send,
		chats:   chats,
		started: time.Now(),
	}
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("stop", t.stop))
	dispatcher.AddHandler(handlers.NewCommand("level", t.level))
	dispatcher.AddHandler(handlers.NewCommand("status", t.status))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.With(slog.Int("chats", len(t.chats))).Info("telegram bot started")

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

func (t *TgBot) findChat(id int64) *subscription {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chats[id]
}
