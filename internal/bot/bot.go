package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lunabot/luna/internal/bot/handlers"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *handlers.Handlers
	allowed  map[int64]bool
}

func New(api *tgbotapi.BotAPI, h *handlers.Handlers, allowedUserIDs []int64) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("bot API is required")
	}

	allowed := make(map[int64]bool, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = true
	}

	return &Bot{
		api:      api,
		handlers: h,
		allowed:  allowed,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if !b.authorized(update.CallbackQuery.From.ID) {
			log.Printf("Unauthorized callback from user %d - ignoring", update.CallbackQuery.From.ID)
			return
		}
		b.handlers.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if !b.authorized(update.Message.From.ID) {
		log.Printf("Unauthorized access attempt from user %d (%s)",
			update.Message.From.ID, update.Message.From.UserName)
		if update.Message.IsCommand() {
			reply := tgbotapi.NewMessage(update.Message.Chat.ID, "Nicht autorisiert.")
			if _, err := b.api.Send(reply); err != nil {
				log.Printf("Failed to send unauthorized response: %v", err)
			}
		}
		return
	}

	if update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
		return
	}

	b.handlers.HandleMessage(ctx, update.Message)
}

// authorized checks the user whitelist. An empty whitelist denies everyone.
func (b *Bot) authorized(userID int64) bool {
	return b.allowed[userID]
}
