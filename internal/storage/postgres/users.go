package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/storage"
)

const uniqueViolation = "23505"

var _ storage.UserStore = (*UserStore)(nil)

type UserStore struct {
	DB *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{DB: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, is_member, is_admin, created_at, updated_at`

func (s *UserStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, is_member, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := s.DB.QueryRowxContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.IsMember, user.IsAdmin).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, fmt.Errorf("create user %s: %w", user.Email, storage.ErrAlreadyExists)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return u, notFound(err, "find user by email")
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return u, notFound(err, "find user by id")
}

func (s *UserStore) SetMember(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users
		SET is_member=TRUE,
		    updated_at=CASE WHEN is_member THEN updated_at ELSE NOW() END
		WHERE id=$1
	`, id)
	if err != nil {
		return fmt.Errorf("set member: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set member: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set member %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func notFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
