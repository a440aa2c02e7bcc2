package directory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunabot/luna/internal/apperr"
	"github.com/lunabot/luna/internal/mcpclient"
	"github.com/lunabot/luna/internal/models"
)

type fakeProvider struct {
	records []mcpclient.ContactRecord
	err     error
}

func (p *fakeProvider) Fetch(ctx context.Context) ([]mcpclient.ContactRecord, error) {
	return p.records, p.err
}

// memStore mirrors the contacts table semantics closely enough for the
// service tests: upsert keyed by google_id keeps notes, stale delete spares
// rows with notes.
type memStore struct {
	nextID   int64
	contacts map[string]*models.Contact
}

func newMemStore() *memStore {
	return &memStore{contacts: make(map[string]*models.Contact)}
}

func (s *memStore) Upsert(ctx context.Context, contact *models.Contact, syncedAt time.Time) error {
	at := syncedAt
	if existing, ok := s.contacts[contact.GoogleID]; ok {
		existing.Name = contact.Name
		existing.Emails = contact.Emails
		existing.Phones = contact.Phones
		existing.Organization = contact.Organization
		existing.SyncedAt = &at
		return nil
	}
	s.nextID++
	stored := *contact
	stored.ContactID = s.nextID
	stored.SyncedAt = &at
	s.contacts[contact.GoogleID] = &stored
	return nil
}

func (s *memStore) DeleteStaleWithoutNotes(ctx context.Context, syncedAt time.Time) (int64, error) {
	var removed int64
	for id, c := range s.contacts {
		stale := c.SyncedAt == nil || c.SyncedAt.Before(syncedAt)
		if stale && c.Notes == "" {
			delete(s.contacts, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) All(ctx context.Context) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range s.contacts {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) SearchByName(ctx context.Context, name string) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range s.contacts {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) WithNotes(ctx context.Context) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range s.contacts {
		if c.Notes != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, contactID int64) (*models.Contact, error) {
	for _, c := range s.contacts {
		if c.ContactID == contactID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("contact %d: %w", contactID, apperr.ErrNotFound)
}

func (s *memStore) UpdateNotes(ctx context.Context, contactID int64, notes string) error {
	c, err := s.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	c.Notes = notes
	return nil
}

func (s *memStore) byGoogleID(id string) *models.Contact {
	return s.contacts[id]
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSyncInsertsAndRefreshes(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{records: []mcpclient.ContactRecord{
		{GoogleID: "g1", Name: "Max Huber", Emails: []string{"max@example.com"}},
		{GoogleID: "g2", Name: "Anna Gruber", Organization: "ACME"},
		{GoogleID: "g3", Name: ""},
	}}
	svc := New(provider, store, time.UTC)

	stats, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncStats{Synced: 2, Removed: 0}, stats)
	require.NotNil(t, store.byGoogleID("g1"))
	require.Equal(t, "ACME", store.byGoogleID("g2").Organization)
	// Nameless records are skipped.
	require.Nil(t, store.byGoogleID("g3"))

	// A renamed upstream contact refreshes the local row in place.
	provider.records = []mcpclient.ContactRecord{
		{GoogleID: "g1", Name: "Max Huber-Berger"},
		{GoogleID: "g2", Name: "Anna Gruber", Organization: "ACME"},
	}
	stats, err = svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncStats{Synced: 2, Removed: 0}, stats)
	require.Equal(t, "Max Huber-Berger", store.byGoogleID("g1").Name)
	require.Equal(t, int64(1), store.byGoogleID("g1").ContactID)
}

func TestSyncKeepsVanishedContactsWithNotes(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{records: []mcpclient.ContactRecord{
		{GoogleID: "g1", Name: "Max Huber"},
		{GoogleID: "g2", Name: "Anna Gruber"},
	}}
	svc := New(provider, store, time.UTC)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	store.byGoogleID("g1").Notes = "2026-08-01: mag Kaffee"

	// Both contacts disappear upstream. Only the note-less one is removed.
	provider.records = nil
	stats, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncStats{Synced: 0, Removed: 1}, stats)
	require.NotNil(t, store.byGoogleID("g1"))
	require.Equal(t, "2026-08-01: mag Kaffee", store.byGoogleID("g1").Notes)
	require.Nil(t, store.byGoogleID("g2"))
}

func TestSyncPreservesNotesAcrossRefresh(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{records: []mcpclient.ContactRecord{
		{GoogleID: "g1", Name: "Max Huber"},
	}}
	svc := New(provider, store, time.UTC)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)
	store.byGoogleID("g1").Notes = "2026-08-01: mag Kaffee"

	_, err = svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2026-08-01: mag Kaffee", store.byGoogleID("g1").Notes)
}

func TestAppendNoteAddsDatedOrderedLines(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Upsert(context.Background(), &models.Contact{GoogleID: "g1", Name: "Max Huber"}, time.Now()))
	svc := New(&fakeProvider{}, store, time.UTC)
	svc.now = fixedNow(time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))

	require.NoError(t, svc.AppendNote(context.Background(), 1, "mag Kaffee"))
	svc.now = fixedNow(time.Date(2026, 9, 2, 18, 30, 0, 0, time.UTC))
	require.NoError(t, svc.AppendNote(context.Background(), 1, "hat einen Hund"))

	require.Equal(t, "2026-08-31: mag Kaffee\n2026-09-02: hat einen Hund", store.byGoogleID("g1").Notes)
}

func TestAppendNoteUnknownContact(t *testing.T) {
	svc := New(&fakeProvider{}, newMemStore(), time.UTC)

	err := svc.AppendNote(context.Background(), 42, "egal")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncProviderFailure(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Upsert(context.Background(), &models.Contact{GoogleID: "g1", Name: "Max Huber"}, time.Now()))
	svc := New(&fakeProvider{err: fmt.Errorf("mcp down")}, store, time.UTC)

	_, err := svc.Sync(context.Background())
	require.Error(t, err)
	// A failed fetch must not touch the local table.
	require.NotNil(t, store.byGoogleID("g1"))
}
