package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaughan-dsouza/clubhouse/internal/logging"
	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
	"github.com/vaughan-dsouza/clubhouse/internal/storage"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.User
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]models.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, u models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.User{}, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) SetMember(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.IsMember = true
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

func newTestService(t *testing.T) (*Service, *fakeUsers, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	users := newFakeUsers()
	svc := NewService(users, session.NewRedisStore(rdb, "sess"), NewBcryptHasher(bcrypt.MinCost), Options{
		MemberCode: "open-sesame",
		Logger:     logging.Discard(),
	})
	return svc, users, mr
}

func register(t *testing.T, svc *Service, email, password string) models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), SignupInput{FirstName: "A", LastName: "B", Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	svc, users, _ := newTestService(t)

	u := register(t, svc, "a@b.com", "abcd")
	stored, err := users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)

	assert.NotEqual(t, "abcd", stored.PasswordHash)
	assert.False(t, stored.IsMember)
	assert.False(t, stored.IsAdmin)

	ok, err := svc.hasher.Verify("abcd", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, other := range []string{"", "abc", "abcde", "ABCD"} {
		ok, err := svc.hasher.Verify(other, stored.PasswordHash)
		require.NoError(t, err)
		assert.False(t, ok, other)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "a@b.com", "abcd")

	_, err := svc.Register(context.Background(), SignupInput{Email: "a@b.com", Password: "wxyz"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestVerifyCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")

	got, err := svc.VerifyCredentials(ctx, "a@b.com", "abcd")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.VerifyCredentials(ctx, "nobody@b.com", "abcd")
	assert.ErrorIs(t, err, ErrIncorrectEmail)

	_, err = svc.VerifyCredentials(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	// email match is exact
	_, err = svc.VerifyCredentials(ctx, "A@B.com", "abcd")
	assert.ErrorIs(t, err, ErrIncorrectEmail)
}

func TestVerifyCredentials_NoLockout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "a@b.com", "abcd")

	for i := 0; i < 20; i++ {
		_, err := svc.VerifyCredentials(ctx, "a@b.com", "nope")
		require.ErrorIs(t, err, ErrIncorrectPassword)
	}
	_, err := svc.VerifyCredentials(ctx, "a@b.com", "abcd")
	assert.NoError(t, err)
}

func TestVerifyCredentials_StoreError(t *testing.T) {
	svc, users, _ := newTestService(t)
	users.err = errors.New("db down")

	_, err := svc.VerifyCredentials(context.Background(), "a@b.com", "abcd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIncorrectEmail)
}

func TestSessionLifecycle(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")

	sess, err := svc.CreateSession(ctx, u)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), sess.ExpiresAt, 2*time.Second)
	assert.True(t, mr.Exists("sess:"+sess.ID))

	got, refreshed, ok, err := svc.ResolveSession(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, sess.ID, refreshed.ID)

	require.NoError(t, svc.DestroySession(ctx, sess.ID))
	_, _, ok, err = svc.ResolveSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveSession_SeesLiveUserRow(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")
	sess, err := svc.CreateSession(ctx, u)
	require.NoError(t, err)

	require.NoError(t, users.SetMember(ctx, u.ID))

	got, _, ok, err := svc.ResolveSession(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.IsMember)
}

func TestResolveSession_UserVanished(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")
	sess, err := svc.CreateSession(ctx, u)
	require.NoError(t, err)

	users.remove(u.ID)

	_, _, ok, err := svc.ResolveSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveSession_ExpiredIsAnonymous(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")
	sess, err := svc.CreateSession(ctx, u)
	require.NoError(t, err)

	mr.FastForward(DefaultSessionTTL + time.Minute)

	_, _, ok, err := svc.ResolveSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveSession_SlidesExpiry(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")
	sess, err := svc.CreateSession(ctx, u)
	require.NoError(t, err)

	mr.FastForward(20 * time.Hour)
	_, _, ok, err := svc.ResolveSession(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, DefaultSessionTTL.Seconds(), mr.TTL("sess:"+sess.ID).Seconds(), 2)
}

func TestUpgradeMembership(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "a@b.com", "abcd")

	err := svc.UpgradeMembership(ctx, u.ID, "wrong")
	assert.ErrorIs(t, err, ErrWrongMemberCode)
	got, _ := users.FindByID(ctx, u.ID)
	assert.False(t, got.IsMember)

	require.NoError(t, svc.UpgradeMembership(ctx, u.ID, "open-sesame"))
	got, _ = users.FindByID(ctx, u.ID)
	assert.True(t, got.IsMember)

	// repeat is idempotent
	require.NoError(t, svc.UpgradeMembership(ctx, u.ID, "open-sesame"))
	got, _ = users.FindByID(ctx, u.ID)
	assert.True(t, got.IsMember)

	assert.ErrorIs(t, svc.UpgradeMembership(ctx, 999, "open-sesame"), storage.ErrNotFound)
}

func TestCheckMemberCode_EmptySecretNeverMatches(t *testing.T) {
	svc := NewService(newFakeUsers(), nil, NewBcryptHasher(bcrypt.MinCost), Options{})
	assert.False(t, svc.CheckMemberCode(""))
}
