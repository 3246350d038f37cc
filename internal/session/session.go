// Package session persists login sessions and encodes the session cookie.
//
// A session maps an opaque identifier to the id of the authenticated user.
// The identifier travels to the browser inside a signed cookie; the record
// itself lives in a Store (Postgres or Redis) and expires after a fixed TTL
// that is pushed forward on every request.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session is the server-side record behind a session cookie.
type Session struct {
	ID        string    `db:"sid" json:"-"`
	UserID    int64     `db:"user_id" json:"userId"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store is a durable sid → session mapping with expiry.
type Store interface {
	Save(ctx context.Context, sess Session) error
	// Get returns ErrNotFound for missing or expired sessions.
	Get(ctx context.Context, id string) (Session, error)
	// Touch moves the expiry of an existing session. Missing sessions are
	// not recreated.
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
}

// NewID allocates an opaque session identifier.
func NewID() string {
	return uuid.NewString()
}
