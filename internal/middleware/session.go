package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
)

type ctxKey string

const (
	ctxUserKey ctxKey = "user"
	ctxSIDKey  ctxKey = "sid"
)

// SessionResolver is the part of the auth service the middleware needs.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sid string) (models.User, session.Session, bool, error)
}

// CookieIssuer reads and writes the session cookie. *session.CookieCodec
// implements it.
type CookieIssuer interface {
	FromRequest(r *http.Request) (string, error)
	Cookie(sess session.Session) (*http.Cookie, error)
	Clear() *http.Cookie
}

// ErrorFunc reports an unexpected failure to the central error handler.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Session resolves the session cookie on every request. A valid session puts
// the live user row into the request context and re-issues the cookie with
// the slid expiry; anything else leaves the request anonymous.
func Session(resolver SessionResolver, codec CookieIssuer, log *slog.Logger, onError ErrorFunc) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := codec.FromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, sess, ok, err := resolver.ResolveSession(r.Context(), sid)
			if err != nil {
				onError(w, r, err)
				return
			}
			if !ok {
				session.SetCookie(w, codec.Clear())
				next.ServeHTTP(w, r)
				return
			}

			if ck, err := codec.Cookie(sess); err != nil {
				log.WarnContext(r.Context(), "re-issue session cookie", "user_id", user.ID, "err", err)
			} else {
				session.SetCookie(w, ck)
			}

			ctx := context.WithValue(r.Context(), ctxUserKey, user)
			ctx = context.WithValue(ctx, ctxSIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the authenticated user for the request, if any.
func CurrentUser(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxUserKey).(models.User)
	return u, ok
}

// SessionID returns the sid of the authenticated session, if any.
func SessionID(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(ctxSIDKey).(string)
	return sid, ok
}

// WithUser is used by tests and by code that needs to act as a user.
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}
