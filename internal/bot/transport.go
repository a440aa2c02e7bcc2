package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ReminderTransport delivers reminder text to the configured user chat.
// It implements timer.Transport.
type ReminderTransport struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewReminderTransport(api *tgbotapi.BotAPI, chatID int64) *ReminderTransport {
	return &ReminderTransport{api: api, chatID: chatID}
}

func (t *ReminderTransport) SendReminder(ctx context.Context, message string) error {
	if t.chatID == 0 {
		return fmt.Errorf("USER_CHAT_ID not configured")
	}

	msg := tgbotapi.NewMessage(t.chatID, "⏰ Erinnerung: "+message)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}
