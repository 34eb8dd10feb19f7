package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtistGenreRepository caches resolved artist genres.
type ArtistGenreRepository struct {
	pool *pgxpool.Pool
}

// Store replaces the cached genres of every artist in lookups. Artists mapped
// to no genres are still recorded so they are not fetched again until stale.
func (r *ArtistGenreRepository) Store(ctx context.Context, lookups map[string][]ArtistGenre, fetchedAt time.Time) error {
	if len(lookups) == 0 {
		return nil
	}

	artistIDs := make([]string, 0, len(lookups))
	var (
		genreArtists []string
		genres       []string
		positions    []int
		sources      []string
	)
	for artistID, list := range lookups {
		artistIDs = append(artistIDs, artistID)
		for _, g := range list {
			genreArtists = append(genreArtists, artistID)
			genres = append(genres, g.Genre)
			positions = append(positions, g.Position)
			sources = append(sources, g.Source)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM artist_genres WHERE artist_id = ANY($1)`, artistIDs); err != nil {
		return fmt.Errorf("deleting artist genres: %w", err)
	}

	if len(genres) > 0 {
		query := `
			INSERT INTO artist_genres (artist_id, genre, position, source, fetched_at)
			SELECT a, g, p, s, $5 FROM unnest($1::text[], $2::text[], $3::int[], $4::text[]) AS t(a, g, p, s)
			ON CONFLICT (artist_id, genre) DO NOTHING
		`
		if _, err := tx.Exec(ctx, query, genreArtists, genres, positions, sources, fetchedAt); err != nil {
			return fmt.Errorf("batch inserting artist genres: %w", err)
		}
	}

	lookupQuery := `
		INSERT INTO artist_genre_lookups (artist_id, fetched_at)
		SELECT a, $2 FROM unnest($1::text[]) AS a
		ON CONFLICT (artist_id) DO UPDATE SET fetched_at = EXCLUDED.fetched_at
	`
	if _, err := tx.Exec(ctx, lookupQuery, artistIDs, fetchedAt); err != nil {
		return fmt.Errorf("recording artist lookups: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing artist genres: %w", err)
	}
	return nil
}

// GetFresh returns cached genres for the artists looked up after freshAfter,
// keyed by artist ID in stored order. Artists missing from the result need fetching;
// artists present with an empty slice are known to have no genres.
func (r *ArtistGenreRepository) GetFresh(ctx context.Context, artistIDs []string, freshAfter time.Time) (map[string][]ArtistGenre, error) {
	result := make(map[string][]ArtistGenre)
	if len(artistIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT l.artist_id, g.genre, g.position, g.source, l.fetched_at
		FROM artist_genre_lookups l
		LEFT JOIN artist_genres g ON g.artist_id = l.artist_id
		WHERE l.artist_id = ANY($1) AND l.fetched_at > $2
		ORDER BY l.artist_id, g.position
	`
	rows, err := r.pool.Query(ctx, query, artistIDs, freshAfter)
	if err != nil {
		return nil, fmt.Errorf("querying artist genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			artistID  string
			genre     *string
			position  *int
			source    *string
			fetchedAt time.Time
		)
		if err := rows.Scan(&artistID, &genre, &position, &source, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning artist genre: %w", err)
		}
		if _, ok := result[artistID]; !ok {
			result[artistID] = []ArtistGenre{}
		}
		if genre == nil {
			continue
		}
		result[artistID] = append(result[artistID], ArtistGenre{
			ArtistID:  artistID,
			Genre:     *genre,
			Position:  *position,
			Source:    *source,
			FetchedAt: fetchedAt,
		})
	}
	return result, rows.Err()
}

// DeleteStale removes lookups older than olderThan along with their genres.
func (r *ArtistGenreRepository) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	if _, err := r.pool.Exec(ctx, `DELETE FROM artist_genres WHERE fetched_at < $1`, olderThan); err != nil {
		return 0, fmt.Errorf("deleting stale artist genres: %w", err)
	}
	result, err := r.pool.Exec(ctx, `DELETE FROM artist_genre_lookups WHERE fetched_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("deleting stale artist lookups: %w", err)
	}
	return result.RowsAffected(), nil
}
