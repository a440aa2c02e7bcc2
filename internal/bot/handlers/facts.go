package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lunabot/luna/internal/agent"
	"github.com/lunabot/luna/internal/apperr"
)

// Callback data grammar: "sf:<contactID>:<token>" selects a candidate,
// "sf:cancel:<token>" discards the pending fact.
const factCallbackPrefix = "sf"

// sendDisambiguation presents one pending fact as an inline keyboard with
// one button per candidate plus a cancel row.
func (h *Handlers) sendDisambiguation(chatID int64, item *agent.PendingFact) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, candidate := range item.Candidates {
		label := candidate.Name
		if candidate.Organization != "" {
			label += fmt.Sprintf(" (%s)", candidate.Organization)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label,
				fmt.Sprintf("%s:%d:%s", factCallbackPrefix, candidate.ContactID, item.Token)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Abbrechen",
			fmt.Sprintf("%s:cancel:%s", factCallbackPrefix, item.Token)),
	))

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("Mehrere Kontakte gefunden für '%s'.\nWelcher ist gemeint?\n\nFakt: %s",
			item.Subject, item.Fact))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Failed to send disambiguation for %s: %v", item.Token, err)
		return
	}
	log.Printf("Sent disambiguation buttons for token %s", item.Token)
}

// HandleCallbackQuery applies the user's selection or cancellation to a
// pending fact. Unknown tokens (already resolved, or lost to a restart)
// answer with "nicht mehr verfügbar" and change nothing.
func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	parts := strings.Split(callback.Data, ":")
	if len(parts) != 3 || parts[0] != factCallbackPrefix {
		log.Printf("Invalid callback data format: %s", callback.Data)
		h.answerCallback(callback.ID, "Fehler: Ungültiges Format")
		return
	}

	contactIDStr, token := parts[1], parts[2]

	if contactIDStr == "cancel" {
		h.facts.Cancel(token)
		h.answerCallback(callback.ID, "Abgebrochen")
		h.deleteMessage(callback.Message.Chat.ID, callback.Message.MessageID)
		log.Printf("Fact %s cancelled by user", token)
		return
	}

	contactID, err := strconv.ParseInt(contactIDStr, 10, 64)
	if err != nil {
		log.Printf("Invalid contact id in callback: %s", contactIDStr)
		h.answerCallback(callback.ID, "Fehler: Ungültige Kontakt-ID")
		return
	}

	switch err := h.facts.Resolve(ctx, token, contactID); {
	case err == nil:
		h.answerCallback(callback.ID, "Fakt gespeichert!")
		log.Printf("Fact %s saved to contact %d", token, contactID)
	case errors.Is(err, apperr.ErrNotFound):
		h.answerCallback(callback.ID, "Fakt nicht mehr verfügbar")
		log.Printf("Pending fact %s not found", token)
	default:
		h.answerCallback(callback.ID, "Fehler beim Speichern")
		log.Printf("Failed to resolve fact %s: %v", token, err)
	}

	h.deleteMessage(callback.Message.Chat.ID, callback.Message.MessageID)
}

func (h *Handlers) answerCallback(callbackID, text string) {
	answer := tgbotapi.NewCallback(callbackID, text)
	if _, err := h.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func (h *Handlers) deleteMessage(chatID int64, messageID int) {
	del := tgbotapi.NewDeleteMessage(chatID, messageID)
	if _, err := h.api.Request(del); err != nil {
		log.Printf("Failed to delete message %d: %v", messageID, err)
	}
}
