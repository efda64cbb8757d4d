package error_notificator

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxMessageLen = 4000

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramInfra struct {
	bot     sender
	chatID  int64
	service string
}

func NewTelegramInfra(token string, chatID int64, service string) (*TelegramInfra, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramInfra{bot: bot, chatID: chatID, service: service}, nil
}

func (i *TelegramInfra) Notify(ctx context.Context, err error, details string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	text := fmt.Sprintf(
		"❗ Ошибка в сервисе (%s)\n\nОшибка: %v\n\nДетали: %s",
		i.service,
		err,
		details,
	)
	if r := []rune(text); len(r) > maxMessageLen {
		text = string(r[:maxMessageLen]) + "…"
	}

	if _, sendErr := i.bot.Send(tgbotapi.NewMessage(i.chatID, text)); sendErr != nil {
		return fmt.Errorf("telegram send to %d: %w", i.chatID, sendErr)
	}
	return nil
}
