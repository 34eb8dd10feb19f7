// Package centroids persists mood centroid tables so restarts skip recomputation.
package centroids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
	"github.com/justestif/spotify-mood-it/internal/mood"
)

// ErrNotFound is returned when no table is stored for a fingerprint.
var ErrNotFound = errors.New("centroid table not found")

// Store loads and saves centroid tables keyed by fingerprint.
type Store interface {
	Load(ctx context.Context, fingerprint string) (*mood.CentroidTable, error)
	Save(ctx context.Context, table *mood.CentroidTable) error
}

// NopStore never has a table and discards saves.
type NopStore struct{}

// Load implements Store.
func (NopStore) Load(context.Context, string) (*mood.CentroidTable, error) {
	return nil, ErrNotFound
}

// Save implements Store.
func (NopStore) Save(context.Context, *mood.CentroidTable) error {
	return nil
}

// LoadOrBuild returns the stored table for lex and e when one exists and is
// complete; otherwise it builds a new table and saves it.
//
// A failed save is logged, not returned: persistence only saves startup time.
func LoadOrBuild(ctx context.Context, store Store, lex *lexicon.Lexicon, e embedding.Embedder, logger zerolog.Logger) (*mood.CentroidTable, error) {
	fingerprint := mood.Fingerprint(e.Model(), lex)

	table, err := store.Load(ctx, fingerprint)
	switch {
	case err == nil && table.Matches(e.Model(), lex) && dimensionsAgree(table, e):
		logger.Info().
			Str("fingerprint", short(fingerprint)).
			Int("moods", len(table.Vectors)).
			Time("built_at", table.BuiltAt).
			Msg("loaded mood centroids")
		return table, nil
	case err == nil:
		logger.Warn().Str("fingerprint", short(fingerprint)).Msg("stored mood centroids incomplete, rebuilding")
	case errors.Is(err, ErrNotFound):
		logger.Info().Str("fingerprint", short(fingerprint)).Msg("no stored mood centroids, building")
	default:
		logger.Warn().Err(err).Msg("loading mood centroids failed, rebuilding")
	}

	return Rebuild(ctx, store, lex, e, logger)
}

// Rebuild builds a fresh table and saves it.
func Rebuild(ctx context.Context, store Store, lex *lexicon.Lexicon, e embedding.Embedder, logger zerolog.Logger) (*mood.CentroidTable, error) {
	start := time.Now()
	table, err := mood.BuildCentroids(ctx, lex, e)
	if err != nil {
		return nil, fmt.Errorf("building mood centroids: %w", err)
	}

	logger.Info().
		Str("fingerprint", short(table.Fingerprint)).
		Str("model", table.Model).
		Int("moods", len(table.Vectors)).
		Int("dimensions", table.Dimensions).
		Dur("took", time.Since(start)).
		Msg("built mood centroids")

	if err := store.Save(ctx, table); err != nil {
		logger.Warn().Err(err).Msg("saving mood centroids failed")
	}
	return table, nil
}

// dimensionsAgree is false only when the embedder already knows its dimension
// and it differs from the table's.
func dimensionsAgree(t *mood.CentroidTable, e embedding.Embedder) bool {
	d := e.Dimensions()
	return d == 0 || d == t.Dimensions
}

func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
