// Package scheduler sends the daily morning summary at the configured
// local time.
package scheduler

import (
	"context"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lunabot/luna/internal/models"
	"github.com/lunabot/luna/internal/tools"
)

// Summarizer generates the morning summary text.
type Summarizer interface {
	GenerateDailySummary(ctx context.Context, eventsText string, facts []string) (string, error)
}

// NotesSource lists contacts that carry stored facts.
type NotesSource interface {
	WithNotes(ctx context.Context) ([]*models.Contact, error)
}

// Sender is the message-sending slice of the Telegram API.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Scheduler struct {
	api      Sender
	calendar tools.CalendarProvider
	ai       Summarizer
	notes    NotesSource

	chatID int64
	hour   int
	minute int
	tz     *time.Location

	checkInterval time.Duration
	lastSentDate  string
	now           func() time.Time
}

func New(api Sender, calendar tools.CalendarProvider, ai Summarizer, notes NotesSource, chatID int64, hour, minute int, tz *time.Location) *Scheduler {
	return &Scheduler{
		api:           api,
		calendar:      calendar,
		ai:            ai,
		notes:         notes,
		chatID:        chatID,
		hour:          hour,
		minute:        minute,
		tz:            tz,
		checkInterval: 30 * time.Second,
		now:           time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Println("Daily summary scheduler started")
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Daily summary scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	if s.chatID == 0 {
		return
	}

	now := s.now().In(s.tz)
	if now.Hour() != s.hour || now.Minute() != s.minute {
		return
	}

	today := now.Format("2006-01-02")
	if s.lastSentDate == today {
		return
	}
	s.lastSentDate = today

	s.sendDailySummary(ctx)
}

func (s *Scheduler) sendDailySummary(ctx context.Context) {
	log.Println("Sending daily summary...")

	eventsText, err := s.calendar.CallTool(ctx, tools.NameGetEventsToday, nil)
	if err != nil {
		log.Printf("Failed to fetch today's events for summary: %v", err)
		eventsText = ""
	}

	var facts []string
	contacts, err := s.notes.WithNotes(ctx)
	if err != nil {
		log.Printf("Failed to load contact notes for summary: %v", err)
	} else {
		for _, c := range contacts {
			if len(facts) >= 5 {
				break
			}
			lines := strings.Split(c.Notes, "\n")
			facts = append(facts, c.Name+": "+lines[len(lines)-1])
		}
	}

	summary, err := s.ai.GenerateDailySummary(ctx, eventsText, facts)
	if err != nil {
		log.Printf("Daily summary error: %v", err)
		return
	}

	msg := tgbotapi.NewMessage(s.chatID, "Guten Morgen!\n\n"+summary)
	if _, err := s.api.Send(msg); err != nil {
		log.Printf("Failed to send daily summary: %v", err)
		return
	}
	log.Println("Daily summary sent")
}
