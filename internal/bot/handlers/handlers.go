package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lunabot/luna/internal/agent"
	"github.com/lunabot/luna/internal/directory"
	"github.com/lunabot/luna/internal/repository"
	"github.com/lunabot/luna/internal/tools"
)

type Handlers struct {
	api           *tgbotapi.BotAPI
	loop          *agent.Loop
	facts         *agent.Workflow
	directory     *directory.Service
	reminders     *repository.ReminderRepository
	conversations *repository.ConversationRepository
	calendar      tools.CalendarProvider
	tz            *time.Location
}

func New(
	api *tgbotapi.BotAPI,
	loop *agent.Loop,
	facts *agent.Workflow,
	dir *directory.Service,
	reminders *repository.ReminderRepository,
	conversations *repository.ConversationRepository,
	calendar tools.CalendarProvider,
	tz *time.Location,
) *Handlers {
	return &Handlers{
		api:           api,
		loop:          loop,
		facts:         facts,
		directory:     dir,
		reminders:     reminders,
		conversations: conversations,
		calendar:      calendar,
		tz:            tz,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "heute":
		h.handleCalendarDay(ctx, msg, tools.NameGetEventsToday, "Heute")
	case "morgen":
		h.handleCalendarDay(ctx, msg, tools.NameGetEventsTomorrow, "Morgen")
	case "kontakt":
		h.handleContactSearch(ctx, msg)
	case "kontakte":
		h.handleContactSync(ctx, msg)
	case "fakten":
		h.handleFacts(ctx, msg)
	case "erinnerungen":
		h.handleReminderList(ctx, msg)
	case "clear":
		h.handleClear(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unbekannter Befehl. Nutze /start für eine Übersicht.")
	}
}

// HandleMessage runs a free-text message through the orchestration loop and
// presents any pending fact disambiguations afterwards.
func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.sendTyping(msg.Chat.ID)

	response, pending, err := h.loop.RunTurn(ctx, msg.Text)
	if err != nil {
		log.Printf("Failed to process message: %v", err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Fehler: %v", err))
		return
	}

	h.sendMessage(msg.Chat.ID, response)

	for _, item := range pending {
		h.sendDisambiguation(msg.Chat.ID, item)
	}
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID,
		"Hallo! Ich bin Luna, dein persönlicher Assistent.\n\n"+
			"Ich kann:\n"+
			"- Fragen beantworten\n"+
			"- Deinen Kalender checken (/heute, /morgen)\n"+
			"- Erinnerungen setzen und pünktlich melden\n"+
			"- Mir Dinge über deine Kontakte merken\n"+
			"- Dir jeden Morgen eine Zusammenfassung schicken\n\n"+
			"Befehle:\n"+
			"/kontakte - Kontakte synchronisieren\n"+
			"/kontakt <name> - Kontakt suchen\n"+
			"/fakten - Gespeicherte Notizen anzeigen\n"+
			"/heute, /morgen - Kalender-Events\n"+
			"/erinnerungen - Ausstehende Erinnerungen\n"+
			"/clear - Konversation löschen\n\n"+
			"Schreib mir einfach!")
}

func (h *Handlers) handleCalendarDay(ctx context.Context, msg *tgbotapi.Message, toolName, label string) {
	h.sendTyping(msg.Chat.ID)

	result, err := h.calendar.CallTool(ctx, toolName, nil)
	if err != nil {
		log.Printf("Calendar error in /%s: %v", strings.ToLower(label), err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Kalenderfehler: %v", err))
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("%s:\n%s", label, result))
}

func (h *Handlers) handleContactSearch(ctx context.Context, msg *tgbotapi.Message) {
	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		h.sendMessage(msg.Chat.ID, "Nutzung: /kontakt Name")
		return
	}

	results, err := h.directory.SearchByName(ctx, query)
	if err != nil {
		log.Printf("Contact search failed: %v", err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Fehler: %v", err))
		return
	}
	if len(results) == 0 {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Kein Kontakt '%s' gefunden.", query))
		return
	}

	var sb strings.Builder
	sb.WriteString("Gefunden:\n")
	for _, c := range results {
		sb.WriteString("\n" + c.Name + "\n")
		if len(c.Phones) > 0 {
			sb.WriteString("Tel: " + c.Phones[0] + "\n")
		}
		if len(c.Emails) > 0 {
			sb.WriteString("Email: " + c.Emails[0] + "\n")
		}
	}
	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleContactSync(ctx context.Context, msg *tgbotapi.Message) {
	h.sendTyping(msg.Chat.ID)

	stats, err := h.directory.Sync(ctx)
	if err != nil {
		log.Printf("Contact sync failed: %v", err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Fehler beim Synchronisieren: %v", err))
		return
	}
	h.sendMessage(msg.Chat.ID,
		fmt.Sprintf("Kontakte synchronisiert: %d übernommen, %d entfernt.", stats.Synced, stats.Removed))
}

func (h *Handlers) handleFacts(ctx context.Context, msg *tgbotapi.Message) {
	contacts, err := h.directory.WithNotes(ctx)
	if err != nil {
		log.Printf("Failed to load contacts with notes: %v", err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Fehler: %v", err))
		return
	}

	if len(contacts) == 0 {
		h.sendMessage(msg.Chat.ID,
			"Noch keine Notizen zu Kontakten gespeichert!\n\nNutze /kontakte um Kontakte zu synchronisieren.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Gespeicherte Notizen:\n\n")
	for i, c := range contacts {
		if i >= 20 {
			break
		}
		sb.WriteString(fmt.Sprintf("%s\n%s\n\n", c.Name, c.Notes))
	}
	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleReminderList(ctx context.Context, msg *tgbotapi.Message) {
	reminders, err := h.reminders.ListUnsent(ctx)
	if err != nil {
		log.Printf("Failed to list reminders: %v", err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Fehler: %v", err))
		return
	}

	if len(reminders) == 0 {
		h.sendMessage(msg.Chat.ID, "Keine ausstehenden Erinnerungen.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Ausstehende Erinnerungen:\n")
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("• [%d] %s: %s\n",
			r.ReminderID, r.RemindAt.In(h.tz).Format("02.01. 15:04"), r.Message))
	}
	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleClear(ctx context.Context, msg *tgbotapi.Message) {
	deleted, err := h.conversations.Clear(ctx)
	if err != nil {
		log.Printf("Failed to clear conversations: %v", err)
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Fehler: %v", err))
		return
	}
	log.Printf("Deleted %d conversation records", deleted)
	h.sendMessage(msg.Chat.ID, "Konversationsverlauf gelöscht!")
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handlers) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := h.api.Request(action); err != nil {
		log.Printf("Failed to send typing action: %v", err)
	}
}
