package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-mood-it/internal/db"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	token := &oauth2.Token{AccessToken: "a1", RefreshToken: "r1"}
	s, err := store.Create(ctx, token, "u1", "Ada")
	require.NoError(t, err)
	assert.Len(t, s.ID, 64)

	got := store.Get(ctx, s.ID)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Ada", got.UserName)

	store.UpdateToken(ctx, s.ID, &oauth2.Token{AccessToken: "a2"})
	assert.Equal(t, "a2", store.Get(ctx, s.ID).Token.AccessToken)

	store.Delete(ctx, s.ID)
	assert.Nil(t, store.Get(ctx, s.ID))
	assert.Nil(t, store.Get(ctx, "missing"))
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s, err := store.Create(ctx, &oauth2.Token{}, "u1", "Ada")
	require.NoError(t, err)

	now = now.Add(sessionTTL - time.Minute)
	assert.NotNil(t, store.Get(ctx, s.ID))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, store.Get(ctx, s.ID))
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	s, err := store.Create(ctx, &oauth2.Token{AccessToken: "a1"}, "u1", "Ada")
	require.NoError(t, err)

	got := store.Get(ctx, s.ID)
	got.UserName = "changed"
	assert.Equal(t, "Ada", store.Get(ctx, s.ID).UserName)
}

type fakeSessionRepo struct {
	rows      map[string]*db.Session
	deleteErr error
	updates   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[string]*db.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *db.Session) error {
	f.rows[s.ID] = s
	return nil
}

func (f *fakeSessionRepo) Get(_ context.Context, id string) (*db.Session, error) {
	s, ok := f.rows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return s, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	delete(f.rows, id)
	return f.deleteErr
}

func (f *fakeSessionRepo) UpdateToken(_ context.Context, id, access, refresh string, expiry time.Time) error {
	f.updates++
	s, ok := f.rows[id]
	if !ok {
		return errors.New("not found")
	}
	s.AccessToken, s.RefreshToken, s.TokenExpiry = access, refresh, expiry
	return nil
}

func TestDBSessionStore(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	store := NewDBSessionStore(repo, zerolog.Nop())

	expiry := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	s, err := store.Create(ctx, &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: expiry}, "u1", "Ada")
	require.NoError(t, err)

	row := repo.rows[s.ID]
	require.NotNil(t, row)
	assert.Equal(t, "Ada", row.UserName)
	assert.Equal(t, sessionTTL, row.ExpiresAt.Sub(row.CreatedAt))

	got := store.Get(ctx, s.ID)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.Token.AccessToken)
	assert.Equal(t, "Bearer", got.Token.TokenType)
	assert.True(t, got.Token.Expiry.Equal(expiry))
	assert.Equal(t, "Ada", got.UserName)

	store.UpdateToken(ctx, s.ID, &oauth2.Token{AccessToken: "a2", RefreshToken: "r2"})
	assert.Equal(t, "a2", repo.rows[s.ID].AccessToken)

	store.Delete(ctx, s.ID)
	assert.Nil(t, store.Get(ctx, s.ID))
}

func TestSessionFromRequest(t *testing.T) {
	store := NewSessionStore()
	s, err := store.Create(context.Background(), &oauth2.Token{}, "u1", "Ada")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	setSessionCookie(rec, s, true)
	cookie := rec.Result().Cookies()[0]
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	require.NotNil(t, sessionFromRequest(store, req))

	assert.Nil(t, sessionFromRequest(store, httptest.NewRequest(http.MethodGet, "/", nil)))
}
