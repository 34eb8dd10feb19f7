package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, user_id, user_name, access_token, refresh_token, token_expiry, created_at, expires_at`

// SessionRepository persists web sessions so they survive restarts.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Create stores s.
func (r *SessionRepository) Create(ctx context.Context, s *Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (@id, @user_id, @user_name, @access_token, @refresh_token, @token_expiry, @created_at, @expires_at)`,
		pgx.NamedArgs{
			"id":            s.ID,
			"user_id":       s.UserID,
			"user_name":     s.UserName,
			"access_token":  s.AccessToken,
			"refresh_token": s.RefreshToken,
			"token_expiry":  s.TokenExpiry,
			"created_at":    s.CreatedAt,
			"expires_at":    s.ExpiresAt,
		})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// Get returns the session with id, or ErrNotFound once it has expired.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	rows, _ := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND expires_at > NOW()`, id)
	s, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Session])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return s, nil
}

// Delete removes the session with id. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UpdateToken records a refreshed Spotify token. An empty refreshToken
// keeps the stored one, since Spotify does not always rotate it.
func (r *SessionRepository) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET access_token  = @access_token,
		    refresh_token = COALESCE(NULLIF(@refresh_token, ''), refresh_token),
		    token_expiry  = @token_expiry
		WHERE id = @id`,
		pgx.NamedArgs{
			"id":            id,
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"token_expiry":  expiry,
		})
	if err != nil {
		return fmt.Errorf("updating session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired prunes expired sessions and reports how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
