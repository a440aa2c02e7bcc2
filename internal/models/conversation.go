package models

import "time"

type ConversationMessage struct {
	MessageID int64     `json:"message_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
