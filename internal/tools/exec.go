package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lunabot/luna/internal/apperr"
	"github.com/lunabot/luna/internal/models"
)

// CalendarProvider is the external calendar tool provider.
type CalendarProvider interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// ReminderStore is the durable side of the reminder subsystem.
type ReminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	ListUnsent(ctx context.Context) ([]*models.Reminder, error)
	Delete(ctx context.Context, reminderID int64) (bool, error)
}

// ReminderScheduler is the live-timer side of the reminder subsystem.
type ReminderScheduler interface {
	Schedule(reminder *models.Reminder)
	Cancel(reminderID int64)
}

// Executor dispatches parsed calls to their providers. Calendar operations
// go to the external provider; reminder operations go to the store plus the
// timer manager.
type Executor struct {
	calendar  CalendarProvider
	reminders ReminderStore
	scheduler ReminderScheduler
	tz        *time.Location
}

func NewExecutor(calendar CalendarProvider, reminders ReminderStore, scheduler ReminderScheduler, tz *time.Location) *Executor {
	return &Executor{
		calendar:  calendar,
		reminders: reminders,
		scheduler: scheduler,
		tz:        tz,
	}
}

// Run executes a single invocation and returns its user/model-visible
// result text. The switch is exhaustive over Kind.
func (e *Executor) Run(ctx context.Context, call Call) (string, error) {
	switch call.Kind {
	case KindGetEventsToday:
		return e.calendar.CallTool(ctx, NameGetEventsToday, nil)
	case KindGetEventsTomorrow:
		return e.calendar.CallTool(ctx, NameGetEventsTomorrow, nil)
	case KindGetUpcomingEvents:
		return e.calendar.CallTool(ctx, NameGetUpcomingEvents, map[string]any{
			"days": call.UpcomingDays,
		})
	case KindGetEventsForDate:
		return e.calendar.CallTool(ctx, NameGetEventsForDate, map[string]any{
			"date": call.Date,
		})
	case KindCreateEvent:
		args := map[string]any{
			"title":          call.Event.Title,
			"start_datetime": call.Event.StartDatetime,
		}
		if call.Event.EndDatetime != "" {
			args["end_datetime"] = call.Event.EndDatetime
		}
		if call.Event.Description != "" {
			args["description"] = call.Event.Description
		}
		if call.Event.Location != "" {
			args["location"] = call.Event.Location
		}
		if call.Event.AllDay {
			args["all_day"] = true
		}
		return e.calendar.CallTool(ctx, NameCreateEvent, args)
	case KindCreateReminder:
		return e.createReminder(ctx, call.Reminder)
	case KindListReminders:
		return e.listReminders(ctx)
	case KindDeleteReminder:
		return e.deleteReminder(ctx, call.ReminderID)
	default:
		return "", fmt.Errorf("%w: unhandled tool kind %d", apperr.ErrValidation, call.Kind)
	}
}

func (e *Executor) createReminder(ctx context.Context, args CreateReminderArgs) (string, error) {
	remindAt, err := time.ParseInLocation("2006-01-02T15:04", args.RemindAt, e.tz)
	if err != nil {
		return "", fmt.Errorf("%w: ungültiges Datumsformat, bitte YYYY-MM-DDTHH:MM verwenden", apperr.ErrValidation)
	}

	reminder := &models.Reminder{
		Message:  args.Message,
		RemindAt: remindAt,
	}
	if err := e.reminders.Create(ctx, reminder); err != nil {
		return "", fmt.Errorf("failed to create reminder: %w", err)
	}

	e.scheduler.Schedule(reminder)

	return fmt.Sprintf("Erinnerung erstellt: '%s' am %s",
		reminder.Message, remindAt.Format("02.01. um 15:04")), nil
}

func (e *Executor) listReminders(ctx context.Context) (string, error) {
	reminders, err := e.reminders.ListUnsent(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list reminders: %w", err)
	}

	if len(reminders) == 0 {
		return "Keine ausstehenden Erinnerungen.", nil
	}

	var sb strings.Builder
	sb.WriteString("Ausstehende Erinnerungen:")
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("\n• [%d] %s: %s",
			r.ReminderID, r.RemindAt.In(e.tz).Format("02.01. 15:04"), r.Message))
	}
	return sb.String(), nil
}

func (e *Executor) deleteReminder(ctx context.Context, reminderID int64) (string, error) {
	e.scheduler.Cancel(reminderID)

	deleted, err := e.reminders.Delete(ctx, reminderID)
	if err != nil {
		return "", fmt.Errorf("failed to delete reminder: %w", err)
	}
	if !deleted {
		return "", fmt.Errorf("%w: Erinnerung %d nicht gefunden", apperr.ErrNotFound, reminderID)
	}
	return fmt.Sprintf("Erinnerung %d gelöscht.", reminderID), nil
}
