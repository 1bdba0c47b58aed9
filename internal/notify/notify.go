// Package notify delivers automation messages.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Telegram sends HTML formatted messages to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, chatID, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint talks to a Bot API compatible server at endpoint,
// a format string taking the token and the method name.
func NewTelegramWithEndpoint(token string, chatID int64, endpoint string) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Log writes messages to a logger. It stands in for Telegram when no bot is
// configured.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) SendMessage(ctx context.Context, text string) error {
	l.Logger.WithField("channel", "log").Info(text)
	return nil
}
