// Package timer keeps one live, cancellable timer per unsent reminder and
// fires a single delivery attempt when each comes due. Handles are memory
// only; RestoreAll rebuilds them from the store after a restart.
package timer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lunabot/luna/internal/models"
)

// Store is the durable reminder table.
type Store interface {
	ListUnsent(ctx context.Context) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, reminderID int64) error
}

// Transport delivers reminder text to the user.
type Transport interface {
	SendReminder(ctx context.Context, message string) error
}

type handle struct {
	reminder *models.Reminder
	timer    *time.Timer // nil when the reminder was already due at schedule time
}

type Manager struct {
	store     Store
	transport Transport

	mu      sync.Mutex
	handles map[int64]*handle

	now func() time.Time
}

func New(store Store, transport Transport) *Manager {
	return &Manager{
		store:     store,
		transport: transport,
		handles:   make(map[int64]*handle),
		now:       time.Now,
	}
}

// Schedule arms a timer for the reminder. A handle already present for the
// same id is cancelled first, so at most one timer per reminder exists.
// Past-due reminders are delivered immediately, off the caller's goroutine.
func (m *Manager) Schedule(reminder *models.Reminder) {
	m.mu.Lock()
	if old, ok := m.handles[reminder.ReminderID]; ok {
		if old.timer != nil {
			old.timer.Stop()
		}
		delete(m.handles, reminder.ReminderID)
		log.Printf("Replaced timer for reminder %d", reminder.ReminderID)
	}

	h := &handle{reminder: reminder}
	m.handles[reminder.ReminderID] = h

	delay := reminder.RemindAt.Sub(m.now())
	if delay <= 0 {
		m.mu.Unlock()
		go m.fire(h)
		return
	}

	h.timer = time.AfterFunc(delay, func() { m.fire(h) })
	m.mu.Unlock()
	log.Printf("Scheduled reminder %d in %s", reminder.ReminderID, delay.Round(time.Second))
}

// Cancel stops and removes the handle for the id. Unknown ids and already
// fired reminders are no-ops. A delivery that has already claimed its
// handle proceeds; it cannot be aborted.
func (m *Manager) Cancel(reminderID int64) {
	m.mu.Lock()
	h, ok := m.handles[reminderID]
	if ok {
		if h.timer != nil {
			h.timer.Stop()
		}
		delete(m.handles, reminderID)
	}
	m.mu.Unlock()

	if ok {
		log.Printf("Cancelled timer for reminder %d", reminderID)
	}
}

// RestoreAll rebuilds timers for every unsent reminder. Called once at
// process start; past-due reminders fire immediately. This is the only
// crash-recovery mechanism for reminders.
func (m *Manager) RestoreAll(ctx context.Context) error {
	reminders, err := m.store.ListUnsent(ctx)
	if err != nil {
		return err
	}

	for _, reminder := range reminders {
		m.Schedule(reminder)
	}
	log.Printf("Restored %d pending reminder timers", len(reminders))
	return nil
}

// ActiveCount reports the number of live handles.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// fire performs the single delivery attempt. It first claims the handle
// under the lock; a handle that was cancelled or replaced in the meantime
// is abandoned. On delivery failure the reminder stays unsent and will be
// redelivered by the next RestoreAll (at-least-once). Delivery success and
// MarkSent are two separate steps with no atomic coupling: a crash between
// them duplicates the delivery after restart.
func (m *Manager) fire(h *handle) {
	id := h.reminder.ReminderID

	m.mu.Lock()
	current, ok := m.handles[id]
	if !ok || current != h {
		m.mu.Unlock()
		return
	}
	delete(m.handles, id)
	m.mu.Unlock()

	ctx := context.Background()

	if err := m.transport.SendReminder(ctx, h.reminder.Message); err != nil {
		log.Printf("Failed to deliver reminder %d: %v", id, err)
		return
	}

	if err := m.store.MarkSent(ctx, id); err != nil {
		log.Printf("Failed to mark reminder %d as sent: %v", id, err)
		return
	}
	log.Printf("Delivered reminder %d", id)
}
