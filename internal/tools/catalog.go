// Package tools defines the closed catalogue of operations the language
// model may invoke, and executes parsed invocations against the calendar
// provider and the reminder subsystem.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/lunabot/luna/internal/apperr"
)

// Kind enumerates every known tool operation. Adding a tool means adding a
// constant here, a schema in Definitions and a case in Executor.Run; the
// compiler flags anything missed.
type Kind int

const (
	KindGetEventsToday Kind = iota
	KindGetEventsTomorrow
	KindGetUpcomingEvents
	KindGetEventsForDate
	KindCreateEvent
	KindCreateReminder
	KindListReminders
	KindDeleteReminder
)

const (
	NameGetEventsToday    = "get_events_today"
	NameGetEventsTomorrow = "get_events_tomorrow"
	NameGetUpcomingEvents = "get_upcoming_events"
	NameGetEventsForDate  = "get_events_for_date"
	NameCreateEvent       = "create_event"
	NameCreateReminder    = "create_reminder"
	NameListReminders     = "list_reminders"
	NameDeleteReminder    = "delete_reminder"
)

type CreateEventArgs struct {
	Title         string `json:"title"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	AllDay        bool   `json:"all_day"`
}

type CreateReminderArgs struct {
	Message  string `json:"message"`
	RemindAt string `json:"remind_at"`
}

// Call is one parsed tool invocation. Kind selects which argument field is
// meaningful.
type Call struct {
	Kind Kind

	UpcomingDays int
	Date         string
	Event        CreateEventArgs
	Reminder     CreateReminderArgs
	ReminderID   int64
}

// Parse maps a model-requested invocation (name plus raw JSON arguments)
// onto the closed catalogue.
func Parse(name, rawArgs string) (Call, error) {
	if rawArgs == "" {
		rawArgs = "{}"
	}

	switch name {
	case NameGetEventsToday:
		return Call{Kind: KindGetEventsToday}, nil
	case NameGetEventsTomorrow:
		return Call{Kind: KindGetEventsTomorrow}, nil
	case NameGetUpcomingEvents:
		var args struct {
			Days int `json:"days"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Call{}, fmt.Errorf("%w: %s arguments: %v", apperr.ErrValidation, name, err)
		}
		if args.Days <= 0 {
			args.Days = 7
		}
		return Call{Kind: KindGetUpcomingEvents, UpcomingDays: args.Days}, nil
	case NameGetEventsForDate:
		var args struct {
			Date string `json:"date"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Call{}, fmt.Errorf("%w: %s arguments: %v", apperr.ErrValidation, name, err)
		}
		if args.Date == "" {
			return Call{}, fmt.Errorf("%w: %s requires date", apperr.ErrValidation, name)
		}
		return Call{Kind: KindGetEventsForDate, Date: args.Date}, nil
	case NameCreateEvent:
		var args CreateEventArgs
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Call{}, fmt.Errorf("%w: %s arguments: %v", apperr.ErrValidation, name, err)
		}
		if args.Title == "" || args.StartDatetime == "" {
			return Call{}, fmt.Errorf("%w: %s requires title and start_datetime", apperr.ErrValidation, name)
		}
		return Call{Kind: KindCreateEvent, Event: args}, nil
	case NameCreateReminder:
		var args CreateReminderArgs
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Call{}, fmt.Errorf("%w: %s arguments: %v", apperr.ErrValidation, name, err)
		}
		if args.Message == "" || args.RemindAt == "" {
			return Call{}, fmt.Errorf("%w: %s requires message and remind_at", apperr.ErrValidation, name)
		}
		return Call{Kind: KindCreateReminder, Reminder: args}, nil
	case NameListReminders:
		return Call{Kind: KindListReminders}, nil
	case NameDeleteReminder:
		var args struct {
			ReminderID int64 `json:"reminder_id"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Call{}, fmt.Errorf("%w: %s arguments: %v", apperr.ErrValidation, name, err)
		}
		if args.ReminderID == 0 {
			return Call{}, fmt.Errorf("%w: %s requires reminder_id", apperr.ErrValidation, name)
		}
		return Call{Kind: KindDeleteReminder, ReminderID: args.ReminderID}, nil
	default:
		return Call{}, fmt.Errorf("%w: unknown tool %q", apperr.ErrValidation, name)
	}
}

// Definitions is the fixed tool catalogue submitted with every model turn.
func Definitions() []openai.Tool {
	defs := []struct {
		name        string
		description string
		schema      json.RawMessage
	}{
		{
			name:        NameGetEventsToday,
			description: "Holt alle Kalender-Events für heute. Nutze dieses Tool wenn der User nach heutigen Terminen fragt.",
			schema:      json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
		},
		{
			name:        NameGetEventsTomorrow,
			description: "Holt alle Kalender-Events für morgen. Nutze dieses Tool wenn der User nach morgigen Terminen fragt.",
			schema:      json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
		},
		{
			name:        NameGetUpcomingEvents,
			description: "Holt Kalender-Events für die nächsten N Tage. Nutze dieses Tool wenn der User nach Terminen in den nächsten Tagen/dieser Woche fragt.",
			schema: json.RawMessage(`{"type":"object","properties":{
				"days":{"type":"integer","description":"Anzahl der Tage in die Zukunft (Standard: 7)"}
			},"required":[]}`),
		},
		{
			name:        NameGetEventsForDate,
			description: "Holt alle Kalender-Events für ein bestimmtes Datum. Nutze dieses Tool wenn der User nach Terminen an einem spezifischen Tag fragt.",
			schema: json.RawMessage(`{"type":"object","properties":{
				"date":{"type":"string","description":"Datum im Format YYYY-MM-DD"}
			},"required":["date"]}`),
		},
		{
			name:        NameCreateEvent,
			description: "Erstellt einen neuen Kalender-Termin. Nutze dieses Tool wenn der User einen neuen Termin erstellen möchte.",
			schema: json.RawMessage(`{"type":"object","properties":{
				"title":{"type":"string","description":"Titel des Termins"},
				"start_datetime":{"type":"string","description":"Startzeit im Format YYYY-MM-DDTHH:MM (z.B. 2024-01-25T14:00)"},
				"end_datetime":{"type":"string","description":"Endzeit im Format YYYY-MM-DDTHH:MM. Falls nicht angegeben, wird 1 Stunde nach Start verwendet."},
				"description":{"type":"string","description":"Optionale Beschreibung des Termins"},
				"location":{"type":"string","description":"Optionaler Ort des Termins"},
				"all_day":{"type":"boolean","description":"Ob es ein ganztägiger Termin ist (Standard: false)"}
			},"required":["title","start_datetime"]}`),
		},
		{
			name:        NameCreateReminder,
			description: "Erstellt eine Erinnerung. Luna sendet zur angegebenen Zeit eine Nachricht.",
			schema: json.RawMessage(`{"type":"object","properties":{
				"message":{"type":"string","description":"Woran erinnert werden soll"},
				"remind_at":{"type":"string","description":"Wann erinnern im ISO Format YYYY-MM-DDTHH:MM"}
			},"required":["message","remind_at"]}`),
		},
		{
			name:        NameListReminders,
			description: "Zeigt alle ausstehenden Erinnerungen.",
			schema:      json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
		},
		{
			name:        NameDeleteReminder,
			description: "Löscht eine Erinnerung.",
			schema: json.RawMessage(`{"type":"object","properties":{
				"reminder_id":{"type":"integer","description":"ID der Erinnerung"}
			},"required":["reminder_id"]}`),
		},
	}

	catalog := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		catalog = append(catalog, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.name,
				Description: d.description,
				Parameters:  d.schema,
			},
		})
	}
	return catalog
}
