// Package db provides PostgreSQL access for centroid tables, the artist genre
// cache and web sessions.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row does not exist or has expired.
var ErrNotFound = errors.New("not found")

// migrationLock is the advisory lock key held while the schema is applied.
const migrationLock = 0x6d6f6f64 // "mood"

// DB is a pgx pool with a repository per table.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and verifies the connection. maxConns caps the
// pool size when positive.
func New(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.pool.Close()
}

// Migrate applies the schema in one transaction. Concurrent callers wait on
// an advisory lock, so several instances may start against one database.
func (db *DB) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
			return fmt.Errorf("acquiring migration lock: %w", err)
		}
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// Centroids returns the mood centroid repository.
func (db *DB) Centroids() *CentroidRepository {
	return &CentroidRepository{pool: db.pool}
}

// Genres returns the artist genre cache repository.
func (db *DB) Genres() *ArtistGenreRepository {
	return &ArtistGenreRepository{pool: db.pool}
}

// Sessions returns the web session repository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{pool: db.pool}
}
