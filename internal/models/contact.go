package models

import "time"

type Contact struct {
	ContactID    int64      `json:"contact_id"`
	GoogleID     string     `json:"google_id"`
	Name         string     `json:"name"`
	Emails       []string   `json:"emails"`
	Phones       []string   `json:"phones"`
	Organization string     `json:"organization"`
	Notes        string     `json:"notes"` // append-only, one dated line per fact
	SyncedAt     *time.Time `json:"synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasNotes reports whether any facts are stored for this contact.
// Contacts with notes are never purged by a sync pass.
func (c *Contact) HasNotes() bool {
	return c.Notes != ""
}
