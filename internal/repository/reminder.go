package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lunabot/luna/internal/apperr"
	"github.com/lunabot/luna/internal/database"
	"github.com/lunabot/luna/internal/models"
)

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (message, remind_at)
		 VALUES ($1, $2)
		 RETURNING reminder_id, sent, created_at`,
		reminder.Message, reminder.RemindAt,
	).Scan(&reminder.ReminderID, &reminder.Sent, &reminder.CreatedAt)
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT reminder_id, message, remind_at, sent, created_at
		 FROM reminders WHERE reminder_id = $1`,
		reminderID,
	).Scan(&reminder.ReminderID, &reminder.Message, &reminder.RemindAt, &reminder.Sent, &reminder.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reminder %d: %w", reminderID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// ListUnsent returns every reminder that has not been delivered yet,
// oldest due time first. Used to rebuild timers on startup.
func (r *ReminderRepository) ListUnsent(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT reminder_id, message, remind_at, sent, created_at
		 FROM reminders WHERE NOT sent
		 ORDER BY remind_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(&reminder.ReminderID, &reminder.Message, &reminder.RemindAt,
			&reminder.Sent, &reminder.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func (r *ReminderRepository) MarkSent(ctx context.Context, reminderID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET sent = TRUE WHERE reminder_id = $1`,
		reminderID,
	)
	return err
}

func (r *ReminderRepository) Delete(ctx context.Context, reminderID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE reminder_id = $1`,
		reminderID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
