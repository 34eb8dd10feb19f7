package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/spotify-mood-it/internal/db"
	"github.com/justestif/spotify-mood-it/internal/genres"
)

const maintenanceInterval = time.Hour

// runMaintenance removes expired sessions and stale genre lookups until ctx
// is cancelled.
func runMaintenance(ctx context.Context, database *db.DB, logger zerolog.Logger) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		pruneDatabase(ctx, database, logger)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneDatabase(ctx context.Context, database *db.DB, logger zerolog.Logger) {
	if n, err := database.Sessions().DeleteExpired(ctx); err != nil {
		logger.Warn().Err(err).Msg("pruning sessions")
	} else if n > 0 {
		logger.Info().Int64("deleted", n).Msg("pruned expired sessions")
	}

	if n, err := database.Genres().DeleteStale(ctx, time.Now().Add(-genres.CacheTTL)); err != nil {
		logger.Warn().Err(err).Msg("pruning artist genres")
	} else if n > 0 {
		logger.Info().Int64("deleted", n).Msg("pruned stale artist genres")
	}
}
