package providers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	NameTelegram = "telegram"

	// Telegram rejects longer message texts
	telegramMaxText = 4096
)

// TelegramSender posts the plain summary to one chat
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSender creates a bot client. An empty endpoint uses the public
// Bot API; otherwise it is a format string like tgbotapi.APIEndpoint.
func NewTelegramSender(token string, chatID int64, endpoint string) (*TelegramSender, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	return &TelegramSender{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *TelegramSender) Name() string { return NameTelegram }

// Send ignores the HTML body; Telegram gets the plain text.
func (t *TelegramSender) Send(subject, _, plainBody string) error {
	text := subject + "\n\n" + plainBody
	if r := []rune(text); len(r) > telegramMaxText {
		text = string(r[:telegramMaxText-1]) + "…"
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
