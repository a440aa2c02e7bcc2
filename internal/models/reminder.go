package models

import "time"

type Reminder struct {
	ReminderID int64     `json:"reminder_id"`
	Message    string    `json:"message"`
	RemindAt   time.Time `json:"remind_at"`
	Sent       bool      `json:"sent"`
	CreatedAt  time.Time `json:"created_at"`
}

// Due reports whether the reminder should have fired by now.
func (r *Reminder) Due(now time.Time) bool {
	return !r.RemindAt.After(now)
}
