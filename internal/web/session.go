package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-mood-it/internal/db"
)

const (
	sessionCookieName = "session_id"
	sessionTTL        = 24 * time.Hour
)

// Session is a signed-in browser. Token is the user's Spotify OAuth token;
// handlers build a Spotify client from it per request.
type Session struct {
	ID        string
	Token     *oauth2.Token
	UserID    string
	UserName  string
	CreatedAt time.Time
}

func (s *Session) expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > sessionTTL
}

// SessionManager stores sessions. Get returns nil for unknown or expired IDs.
type SessionManager interface {
	Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string)
	UpdateToken(ctx context.Context, id string, token *oauth2.Token)
}

var (
	_ SessionManager = (*SessionStore)(nil)
	_ SessionManager = (*DBSessionStore)(nil)
)

// SessionStore keeps sessions in process memory. Sessions are lost on restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates an empty in-memory store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores a new session.
func (s *SessionStore) Create(_ context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := Session{ID: id, Token: token, UserID: userID, UserName: userName, CreatedAt: s.now()}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return &session, nil
}

// Get returns a copy of the session. Expired sessions are evicted.
func (s *SessionStore) Get(_ context.Context, id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if session.expired(s.now()) {
		delete(s.sessions, id)
		return nil
	}
	return &session
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// UpdateToken replaces the session's OAuth token.
func (s *SessionStore) UpdateToken(_ context.Context, id string, token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.Token = token
		s.sessions[id] = session
	}
}

// SessionRepository persists sessions. *db.SessionRepository implements it.
type SessionRepository interface {
	Create(ctx context.Context, s *db.Session) error
	Get(ctx context.Context, id string) (*db.Session, error)
	Delete(ctx context.Context, id string) error
	UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
}

// DBSessionStore keeps sessions in PostgreSQL so they survive restarts and
// can be shared by several server instances.
type DBSessionStore struct {
	repo   SessionRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewDBSessionStore creates a store over repo.
func NewDBSessionStore(repo SessionRepository, logger zerolog.Logger) *DBSessionStore {
	return &DBSessionStore{repo: repo, logger: logger, now: time.Now}
}

// Create inserts a new session row.
func (s *DBSessionStore) Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	row := &db.Session{
		ID:           id,
		UserID:       userID,
		UserName:     userName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(sessionTTL),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return sessionFromRow(row), nil
}

// Get loads a session row. The repository filters expired rows.
func (s *DBSessionStore) Get(ctx context.Context, id string) *Session {
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil
	}
	return sessionFromRow(row)
}

// Delete removes a session row.
func (s *DBSessionStore) Delete(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Msg("deleting session")
	}
}

// UpdateToken stores a refreshed OAuth token.
func (s *DBSessionStore) UpdateToken(ctx context.Context, id string, token *oauth2.Token) {
	if err := s.repo.UpdateToken(ctx, id, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		s.logger.Warn().Err(err).Msg("updating session token")
	}
}

func sessionFromRow(row *db.Session) *Session {
	return &Session{
		ID: row.ID,
		Token: &oauth2.Token{
			AccessToken:  row.AccessToken,
			RefreshToken: row.RefreshToken,
			Expiry:       row.TokenExpiry,
			TokenType:    "Bearer",
		},
		UserID:    row.UserID,
		UserName:  row.UserName,
		CreatedAt: row.CreatedAt,
	}
}

// generateSessionID returns 32 random bytes, hex encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func sessionFromRequest(sm SessionManager, r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return sm.Get(r.Context(), cookie.Value)
}

func setSessionCookie(w http.ResponseWriter, session *Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
