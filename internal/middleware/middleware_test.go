package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaughan-dsouza/clubhouse/internal/logging"
	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
)

type stubResolver struct {
	user  models.User
	ok    bool
	err   error
	calls int
}

func (s *stubResolver) ResolveSession(_ context.Context, sid string) (models.User, session.Session, bool, error) {
	s.calls++
	if s.err != nil || !s.ok {
		return models.User{}, session.Session{}, false, s.err
	}
	return s.user, session.Session{ID: sid, UserID: s.user.ID, ExpiresAt: time.Now().Add(time.Hour)}, true, nil
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	if u, ok := CurrentUser(r.Context()); ok {
		_, _ = w.Write([]byte(u.Email))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func requestWithSession(t *testing.T, codec *session.CookieCodec, sid string) *http.Request {
	t.Helper()
	ck, err := codec.Cookie(session.Session{ID: sid, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(ck)
	return r
}

func TestSession_NoCookieIsAnonymous(t *testing.T) {
	res := &stubResolver{}
	codec := session.NewCookieCodec("secret", false)
	h := Session(res, codec, logging.Discard(), nil)(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "anonymous", w.Body.String())
	assert.Zero(t, res.calls)
}

func TestSession_ValidCookieLoadsUserAndReissues(t *testing.T) {
	res := &stubResolver{user: models.User{ID: 1, Email: "a@b.com"}, ok: true}
	codec := session.NewCookieCodec("secret", false)
	h := Session(res, codec, logging.Discard(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := SessionID(r.Context())
		require.True(t, ok)
		assert.Equal(t, "sid-1", sid)
		echoUser(w, r)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWithSession(t, codec, "sid-1"))

	assert.Equal(t, "a@b.com", w.Body.String())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestSession_UnknownSessionClearsCookie(t *testing.T) {
	res := &stubResolver{ok: false}
	codec := session.NewCookieCodec("secret", false)
	h := Session(res, codec, logging.Discard(), nil)(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWithSession(t, codec, "gone"))

	assert.Equal(t, "anonymous", w.Body.String())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestSession_ForgedCookieNeverHitsStore(t *testing.T) {
	res := &stubResolver{user: models.User{ID: 1}, ok: true}
	h := Session(res, session.NewCookieCodec("secret", false), logging.Discard(), nil)(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWithSession(t, session.NewCookieCodec("attacker", false), "sid-1"))

	assert.Equal(t, "anonymous", w.Body.String())
	assert.Zero(t, res.calls)
}

func TestSession_StoreErrorGoesToErrorHandler(t *testing.T) {
	res := &stubResolver{err: errors.New("db down")}
	codec := session.NewCookieCodec("secret", false)
	var got error
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusInternalServerError)
	}
	h := Session(res, codec, logging.Discard(), onError)(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWithSession(t, codec, "sid-1"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.EqualError(t, got, "db down")
}

type failingIssuer struct {
	*session.CookieCodec
}

func (failingIssuer) Cookie(session.Session) (*http.Cookie, error) {
	return nil, errors.New("signing failed")
}

func TestSession_ReissueFailureIsLogged(t *testing.T) {
	res := &stubResolver{user: models.User{ID: 7, Email: "a@b.com"}, ok: true}
	codec := session.NewCookieCodec("secret", false)
	var buf bytes.Buffer
	h := Session(res, failingIssuer{codec}, logging.New(&buf, "text", "info"), nil)(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWithSession(t, codec, "sid-1"))

	assert.Equal(t, "a@b.com", w.Body.String())
	assert.Empty(t, w.Result().Cookies())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "signing failed")
	assert.Contains(t, buf.String(), "user_id=7")
}

func TestAllows(t *testing.T) {
	member := models.User{ID: 1, IsMember: true}
	plain := models.User{ID: 2}
	admin := models.User{ID: 3, IsAdmin: true}

	tests := []struct {
		name string
		user models.User
		ok   bool
		cap  Capability
		want bool
	}{
		{"anon public", models.User{}, false, Public, true},
		{"anon authenticated", models.User{}, false, Authenticated, false},
		{"plain authenticated", plain, true, Authenticated, true},
		{"plain member", plain, true, Member, false},
		{"member member", member, true, Member, true},
		{"member admin", member, true, Admin, false},
		{"admin member", admin, true, Member, true},
		{"admin admin", admin, true, Admin, true},
		{"unknown capability", admin, true, Capability(42), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.user, tt.ok, tt.cap))
		})
	}
}

func TestEnforce_RedirectsAnonymousHome(t *testing.T) {
	h := Enforce(DefaultPolicy())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/new"},
		{http.MethodPost, "/messages"},
		{http.MethodGet, "/member"},
		{http.MethodPost, "/member"},
		{http.MethodGet, "/logout"},
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusFound, w.Code, route.path)
		assert.Equal(t, "/", w.Header().Get("Location"), route.path)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestEnforce_LetsAuthenticatedThrough(t *testing.T) {
	h := Enforce(DefaultPolicy())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodPost, "/messages", nil)
	r = r.WithContext(WithUser(r.Context(), models.User{ID: 1}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "text", "info")
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/signup", nil))

	out := buf.String()
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/signup")
	assert.Contains(t, out, "status=201")
}
