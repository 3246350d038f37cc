// Package auth verifies credentials and manages the login session lifecycle.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
	"github.com/vaughan-dsouza/clubhouse/internal/storage"
)

var (
	ErrIncorrectEmail    = errors.New("incorrect email")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrWrongMemberCode   = errors.New("wrong member code")
)

// DefaultSessionTTL is how long a session lives without activity.
const DefaultSessionTTL = 24 * time.Hour

type Service struct {
	users      storage.UserStore
	sessions   session.Store
	hasher     Hasher
	ttl        time.Duration
	memberCode string
	log        *slog.Logger
	now        func() time.Time
}

type Options struct {
	SessionTTL time.Duration
	MemberCode string
	Logger     *slog.Logger
}

func NewService(users storage.UserStore, sessions session.Store, hasher Hasher, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		ttl:        opts.SessionTTL,
		memberCode: opts.MemberCode,
		log:        opts.Logger,
		now:        time.Now,
	}
}

// -------------- CREDENTIALS ------------------

// VerifyCredentials looks the user up by exact email and checks the password.
// There is no lockout or rate limiting.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, ErrIncorrectEmail
	}
	if err != nil {
		return models.User{}, err
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("verify password for user %d: %w", u.ID, err)
	}
	if !ok {
		return models.User{}, ErrIncorrectPassword
	}

	return u, nil
}

// SignupInput is an already validated signup request.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	IsAdmin   bool
}

// Register hashes the password and inserts a non-member user. The hash is
// computed before the insert is issued.
func (s *Service) Register(ctx context.Context, in SignupInput) (models.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.CreateUser(ctx, models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		IsMember:     false,
		IsAdmin:      in.IsAdmin,
	})
}

// -------------- SESSIONS ---------------------

// CreateSession stores {userId} under a fresh sid with the configured TTL.
// The caller sets the returned session as a cookie.
func (s *Service) CreateSession(ctx context.Context, user models.User) (session.Session, error) {
	sess := session.Session{
		ID:        session.NewID(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// ResolveSession maps sid back to a live user row. ok is false for missing
// or expired sessions and for sessions whose user no longer exists. A
// resolved session has its expiry pushed forward; the returned Session
// carries the new expiry.
func (s *Service) ResolveSession(ctx context.Context, sid string) (models.User, session.Session, bool, error) {
	sess, err := s.sessions.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return models.User{}, session.Session{}, false, nil
	}
	if err != nil {
		return models.User{}, session.Session{}, false, err
	}

	u, err := s.users.FindByID(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.InfoContext(ctx, "session user vanished", "user_id", sess.UserID)
		return models.User{}, session.Session{}, false, nil
	}
	if err != nil {
		return models.User{}, session.Session{}, false, err
	}

	sess.ExpiresAt = s.now().Add(s.ttl)
	if err := s.sessions.Touch(ctx, sid, sess.ExpiresAt); err != nil {
		return models.User{}, session.Session{}, false, err
	}

	return u, sess, true, nil
}

// DestroySession removes the session entry; the caller clears the cookie.
func (s *Service) DestroySession(ctx context.Context, sid string) error {
	return s.sessions.Delete(ctx, sid)
}

// -------------- MEMBERSHIP -------------------

// CheckMemberCode compares code with the configured secret in constant time.
func (s *Service) CheckMemberCode(code string) bool {
	if s.memberCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.memberCode)) == 1
}

// UpgradeMembership sets isMember for userID when code matches. Repeating it
// is harmless. storage.ErrNotFound means the user row is gone.
func (s *Service) UpgradeMembership(ctx context.Context, userID int64, code string) error {
	if !s.CheckMemberCode(code) {
		return ErrWrongMemberCode
	}
	return s.users.SetMember(ctx, userID)
}
