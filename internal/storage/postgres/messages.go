package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/storage"
)

var _ storage.MessageStore = (*MessageStore)(nil)

type MessageStore struct {
	DB *sqlx.DB
}

func NewMessageStore(db *sqlx.DB) *MessageStore {
	return &MessageStore{DB: db}
}

// ---------------------- CREATE ----------------------

func (s *MessageStore) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	query := `
		INSERT INTO messages (title, text, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := s.DB.QueryRowxContext(ctx, query, msg.Title, msg.Text, msg.AuthorID).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("create message: %w", err)
	}

	return msg, nil
}

// ---------------------- LIST ----------------------

// ListMessages returns every message joined to its author, oldest first.
func (s *MessageStore) ListMessages(ctx context.Context) ([]models.MessageView, error) {
	messages := []models.MessageView{}

	err := s.DB.SelectContext(ctx, &messages, `
		SELECT m.id, m.title, m.text, m.author_id, m.created_at, u.first_name, u.last_name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		ORDER BY m.created_at ASC, m.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}
