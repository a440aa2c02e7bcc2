package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lunabot/luna/internal/apperr"
	"github.com/lunabot/luna/internal/database"
	"github.com/lunabot/luna/internal/models"
)

type ContactRepository struct {
	db *database.DB
}

func NewContactRepository(db *database.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `contact_id, google_id, name, emails, phones, organization, notes, synced_at, created_at, updated_at`

func scanContact(row pgx.Row) (*models.Contact, error) {
	contact := &models.Contact{}
	err := row.Scan(&contact.ContactID, &contact.GoogleID, &contact.Name, &contact.Emails,
		&contact.Phones, &contact.Organization, &contact.Notes, &contact.SyncedAt,
		&contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Upsert inserts or refreshes a synced contact. Notes are deliberately not
// part of the update list: they hold locally stored facts and must survive
// provider re-synchronization.
func (r *ContactRepository) Upsert(ctx context.Context, contact *models.Contact, syncedAt time.Time) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO contacts (google_id, name, emails, phones, organization, synced_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (google_id) DO UPDATE SET
		     name = EXCLUDED.name,
		     emails = EXCLUDED.emails,
		     phones = EXCLUDED.phones,
		     organization = EXCLUDED.organization,
		     synced_at = EXCLUDED.synced_at,
		     updated_at = NOW()
		 RETURNING contact_id, notes, created_at, updated_at`,
		contact.GoogleID, contact.Name, contact.Emails, contact.Phones,
		contact.Organization, syncedAt,
	).Scan(&contact.ContactID, &contact.Notes, &contact.CreatedAt, &contact.UpdatedAt)
}

// DeleteStaleWithoutNotes removes contacts that were not touched by the
// given sync pass and carry no notes. Contacts with notes are kept even
// when they disappeared upstream.
func (r *ContactRepository) DeleteStaleWithoutNotes(ctx context.Context, syncedAt time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM contacts
		 WHERE (synced_at IS NULL OR synced_at < $1)
		 AND notes = ''`,
		syncedAt,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ContactRepository) GetByID(ctx context.Context, contactID int64) (*models.Contact, error) {
	contact, err := scanContact(r.db.Pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE contact_id = $1`,
		contactID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contact %d: %w", contactID, apperr.ErrNotFound)
	}
	return contact, err
}

func (r *ContactRepository) All(ctx context.Context) ([]*models.Contact, error) {
	return r.list(ctx,
		`SELECT `+contactColumns+` FROM contacts ORDER BY name ASC`)
}

// SearchByName matches case-insensitively on a name substring.
func (r *ContactRepository) SearchByName(ctx context.Context, name string) ([]*models.Contact, error) {
	return r.list(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE name ILIKE $1 ORDER BY name ASC`,
		"%"+name+"%")
}

func (r *ContactRepository) WithNotes(ctx context.Context) ([]*models.Contact, error) {
	return r.list(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE notes != '' ORDER BY name ASC`)
}

func (r *ContactRepository) UpdateNotes(ctx context.Context, contactID int64, notes string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE contacts SET notes = $1, updated_at = NOW() WHERE contact_id = $2`,
		notes, contactID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %d: %w", contactID, apperr.ErrNotFound)
	}
	return nil
}

func (r *ContactRepository) list(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}
