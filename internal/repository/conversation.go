package repository

import (
	"context"

	"github.com/lunabot/luna/internal/database"
	"github.com/lunabot/luna/internal/models"
)

type ConversationRepository struct {
	db *database.DB
}

func NewConversationRepository(db *database.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Add(ctx context.Context, role, content string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO conversations (role, content) VALUES ($1, $2)`,
		role, content,
	)
	return err
}

// Recent returns the last limit messages in chronological order. The store
// query is reverse-chronological; the result is flipped before returning.
func (r *ConversationRepository) Recent(ctx context.Context, limit int) ([]*models.ConversationMessage, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT message_id, role, content, created_at
		 FROM conversations ORDER BY created_at DESC, message_id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ConversationMessage
	for rows.Next() {
		msg := &models.ConversationMessage{}
		if err := rows.Scan(&msg.MessageID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *ConversationRepository) Clear(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM conversations`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
