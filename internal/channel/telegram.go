package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"memebot/internal/config"
)

const telegramPollTimeout = 30 // seconds, server-side long poll

// Telegram implements domain.Gateway over the Telegram Bot API, bound to a
// single chat. Long polling satisfies the blocking-receive contract without
// a client-side sleep loop.
type Telegram struct {
	cfg    config.TelegramConfig
	logger *slog.Logger
	bot    *tgbotapi.BotAPI
	offset int
}

type TelegramGatewayConfig struct {
	Config config.TelegramConfig
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramGatewayConfig) *Telegram {
	return &Telegram{
		cfg:    cfg.Config,
		logger: cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Connect(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "chat", t.cfg.ChatID)
	return nil
}

// WaitForMessage long-polls getUpdates until the bound chat sends a text
// message. Messages from other chats are skipped and consumed.
func (t *Telegram) WaitForMessage(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		u := tgbotapi.NewUpdate(t.offset)
		u.Timeout = telegramPollTimeout
		updates, err := t.bot.GetUpdates(u)
		if err != nil {
			t.logger.Warn("getUpdates failed, backing off", "err", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			t.offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Chat == nil {
				continue
			}
			if update.Message.Chat.ID != t.cfg.ChatID {
				continue
			}
			if update.Message.Text == "" {
				continue
			}
			t.logger.Info("message received", "len", len(update.Message.Text))
			return update.Message.Text, nil
		}
	}
}

func (t *Telegram) SendText(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.cfg.ChatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

func (t *Telegram) SendMedia(ctx context.Context, caption, mediaURL string) error {
	photo := tgbotapi.NewPhoto(t.cfg.ChatID, tgbotapi.FileURL(mediaURL))
	photo.Caption = caption
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("send media: %w", err)
	}
	t.logger.Info("media sent", "url", mediaURL)
	return nil
}

// ResetHistory advances the update offset past everything already queued so
// stale messages do not leak into the first command.
func (t *Telegram) ResetHistory(ctx context.Context) error {
	for {
		u := tgbotapi.NewUpdate(t.offset)
		u.Timeout = 0
		updates, err := t.bot.GetUpdates(u)
		if err != nil {
			return fmt.Errorf("reset history: %w", err)
		}
		if len(updates) == 0 {
			return nil
		}
		for _, update := range updates {
			t.offset = update.UpdateID + 1
		}
	}
}
