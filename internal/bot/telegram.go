package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"duitbot/internal/log"
)

// Telegram is the long-polling transport. It feeds updates into a handler and
// implements Replier for the outbound side.
type Telegram struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *log.Logger
}

func NewTelegram(token string, pollTimeoutSec int, logger *log.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram api: %w", err)
	}
	return &Telegram{
		api:         api,
		pollTimeout: pollTimeoutSec,
		logger:      logger.WithComponent(log.ComponentBot),
	}, nil
}

// Username returns the bot account name, for startup logging.
func (t *Telegram) Username() string {
	return t.api.Self.UserName
}

// SendReply implements Replier. Rich selects HTML rendering.
func (t *Telegram) SendReply(_ context.Context, chatID int64, text string, rich bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if rich {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send reply to chat %d: %w", chatID, err)
	}
	return nil
}

// Run long-polls for updates and hands each text message to handle, until the
// context is cancelled. Handler errors are logged, not fatal.
func (t *Telegram) Run(ctx context.Context, handle func(context.Context, Incoming) error) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			msg := Incoming{
				ChatID:     update.Message.Chat.ID,
				TelegramID: update.Message.From.ID,
				Username:   update.Message.From.UserName,
				Text:       update.Message.Text,
			}
			if err := handle(ctx, msg); err != nil {
				t.logger.ErrorContext(ctx, "Failed to handle update",
					log.FieldChatID, msg.ChatID,
					log.FieldError, err)
			}
		}
	}
}
