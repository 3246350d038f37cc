package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var _ Store = (*PostgresStore)(nil)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS sessions (
		sid TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)
`

// PostgresStore keeps sessions in a "sessions" table that is created on
// first use.
type PostgresStore struct {
	DB  *sqlx.DB
	now func() time.Time
}

func NewPostgresStore(ctx context.Context, db *sqlx.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, createSessionsTable); err != nil {
		return nil, fmt.Errorf("session: create table: %w", err)
	}
	return &PostgresStore{DB: db, now: time.Now}, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess Session) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sessions (sid, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sid) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at
	`, sess.ID, sess.UserID, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.DB.GetContext(ctx, &sess, `SELECT sid, user_id, expires_at FROM sessions WHERE sid=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: get: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return Session{}, err
		}
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *PostgresStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE sessions SET expires_at=$1 WHERE sid=$2`, expiresAt, id)
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE sid=$1`, id); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// PruneExpired removes every expired row and reports how many went.
func (s *PostgresStore) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("session: prune: %w", err)
	}
	return res.RowsAffected()
}
