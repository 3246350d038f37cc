package storage

import (
	"context"
	"errors"

	"github.com/vaughan-dsouza/clubhouse/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore is the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	// SetMember flips is_member to true. ErrNotFound when no row matched.
	SetMember(ctx context.Context, id int64) error
}

// MessageStore is the message store.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context) ([]models.MessageView, error)
}
