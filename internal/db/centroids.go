package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CentroidRepository handles mood centroid database operations.
type CentroidRepository struct {
	pool *pgxpool.Pool
}

// Replace stores rows as the complete table for their fingerprint, removing
// any rows previously saved under it. All rows must share one fingerprint.
func (r *CentroidRepository) Replace(ctx context.Context, fingerprint string, rows []CentroidRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM mood_centroids WHERE fingerprint = $1`, fingerprint); err != nil {
		return fmt.Errorf("deleting centroids: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		if row.Fingerprint != fingerprint {
			return fmt.Errorf("centroid for %s has fingerprint %s, want %s", row.Mood, row.Fingerprint, fingerprint)
		}
		batch.Queue(`
			INSERT INTO mood_centroids (fingerprint, mood, model, dimensions, vector, built_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, row.Fingerprint, row.Mood, row.Model, row.Dimensions, row.Vector, row.BuiltAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting centroids: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing centroids: %w", err)
	}
	return nil
}

// Get retrieves every centroid stored under fingerprint.
// Returns ErrNotFound when there are none.
func (r *CentroidRepository) Get(ctx context.Context, fingerprint string) ([]CentroidRow, error) {
	query := `
		SELECT fingerprint, mood, model, dimensions, vector, built_at
		FROM mood_centroids
		WHERE fingerprint = $1
		ORDER BY mood
	`
	rows, err := r.pool.Query(ctx, query, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("querying centroids: %w", err)
	}
	defer rows.Close()

	var result []CentroidRow
	for rows.Next() {
		var c CentroidRow
		if err := rows.Scan(&c.Fingerprint, &c.Mood, &c.Model, &c.Dimensions, &c.Vector, &c.BuiltAt); err != nil {
			return nil, fmt.Errorf("scanning centroid: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// DeleteExcept removes centroid tables other than the given fingerprint.
func (r *CentroidRepository) DeleteExcept(ctx context.Context, fingerprint string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM mood_centroids WHERE fingerprint <> $1`, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("deleting stale centroids: %w", err)
	}
	return result.RowsAffected(), nil
}
