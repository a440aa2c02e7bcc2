// Package directory maintains the local contact directory: provider sync
// with note preservation, name search and the append-only fact notes.
package directory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lunabot/luna/internal/mcpclient"
	"github.com/lunabot/luna/internal/models"
)

// Provider supplies the upstream contact list.
type Provider interface {
	Fetch(ctx context.Context) ([]mcpclient.ContactRecord, error)
}

// Store is the local contacts table.
type Store interface {
	Upsert(ctx context.Context, contact *models.Contact, syncedAt time.Time) error
	DeleteStaleWithoutNotes(ctx context.Context, syncedAt time.Time) (int64, error)
	All(ctx context.Context) ([]*models.Contact, error)
	SearchByName(ctx context.Context, name string) ([]*models.Contact, error)
	WithNotes(ctx context.Context) ([]*models.Contact, error)
	GetByID(ctx context.Context, contactID int64) (*models.Contact, error)
	UpdateNotes(ctx context.Context, contactID int64, notes string) error
}

type SyncStats struct {
	Synced  int
	Removed int
}

type Service struct {
	provider Provider
	store    Store
	tz       *time.Location
	now      func() time.Time
}

func New(provider Provider, store Store, tz *time.Location) *Service {
	return &Service{
		provider: provider,
		store:    store,
		tz:       tz,
		now:      time.Now,
	}
}

// Sync reconciles the local directory against the provider: new contacts
// are inserted, existing ones refreshed with their notes untouched, and
// rows gone upstream are removed only when they carry no notes.
func (s *Service) Sync(ctx context.Context) (SyncStats, error) {
	records, err := s.provider.Fetch(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("failed to fetch contacts: %w", err)
	}

	syncedAt := s.now()
	stats := SyncStats{}

	for _, record := range records {
		if record.Name == "" {
			continue
		}
		contact := &models.Contact{
			GoogleID:     record.GoogleID,
			Name:         record.Name,
			Emails:       record.Emails,
			Phones:       record.Phones,
			Organization: record.Organization,
		}
		if contact.Emails == nil {
			contact.Emails = []string{}
		}
		if contact.Phones == nil {
			contact.Phones = []string{}
		}
		if err := s.store.Upsert(ctx, contact, syncedAt); err != nil {
			return stats, fmt.Errorf("failed to upsert contact %q: %w", record.Name, err)
		}
		stats.Synced++
	}

	removed, err := s.store.DeleteStaleWithoutNotes(ctx, syncedAt)
	if err != nil {
		return stats, fmt.Errorf("failed to remove stale contacts: %w", err)
	}
	stats.Removed = int(removed)

	log.Printf("Contact sync: %d synced, %d removed", stats.Synced, stats.Removed)
	return stats, nil
}

// AppendNote adds one dated fact line to the contact's notes. Existing
// lines are never rewritten; N appends yield N ordered entries.
func (s *Service) AppendNote(ctx context.Context, contactID int64, fact string) error {
	contact, err := s.store.GetByID(ctx, contactID)
	if err != nil {
		return err
	}

	entry := fmt.Sprintf("%s: %s", s.now().In(s.tz).Format("2006-01-02"), fact)
	notes := entry
	if contact.Notes != "" {
		notes = contact.Notes + "\n" + entry
	}

	return s.store.UpdateNotes(ctx, contactID, notes)
}

func (s *Service) All(ctx context.Context) ([]*models.Contact, error) {
	return s.store.All(ctx)
}

func (s *Service) SearchByName(ctx context.Context, name string) ([]*models.Contact, error) {
	return s.store.SearchByName(ctx, name)
}

func (s *Service) WithNotes(ctx context.Context) ([]*models.Contact, error) {
	return s.store.WithNotes(ctx)
}
