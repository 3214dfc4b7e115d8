package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func New(token string, chatID int64, log *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

func (n *Notifier) SendText(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	n.log.Info().Int64("chat_id", n.chatID).Msg("telegram message sent")
	return nil
}

func (n *Notifier) SendPhoto(photo []byte, filename, caption string) error {
	msg := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{Name: filename, Bytes: photo})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram photo: %w", err)
	}
	n.log.Info().Int64("chat_id", n.chatID).Str("filename", filename).Msg("telegram photo sent")
	return nil
}
