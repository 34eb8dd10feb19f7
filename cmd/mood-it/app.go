package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/justestif/spotify-mood-it/internal/centroids"
	"github.com/justestif/spotify-mood-it/internal/config"
	"github.com/justestif/spotify-mood-it/internal/db"
	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/genres"
	"github.com/justestif/spotify-mood-it/internal/lastfm"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
	"github.com/justestif/spotify-mood-it/internal/logging"
	"github.com/justestif/spotify-mood-it/internal/mood"
	"github.com/justestif/spotify-mood-it/internal/moodtracks"
)

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	lexicon  *lexicon.Lexicon
	embedder embedding.Embedder
	db       *db.DB
	store    centroids.Store

	closers []func() error
}

// newApp loads configuration and opens everything the commands share. The
// caller must Close the returned app.
func newApp(ctx context.Context, cmd *cobra.Command) (_ *app, err error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logging.Init(cfg.LoggerConfig())
	a := &app{cfg: cfg, logger: logging.Component("app")}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Lexicon.Path != "" {
		a.lexicon, err = lexicon.Load(cfg.Lexicon.Path)
	} else {
		a.lexicon, err = lexicon.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading lexicon: %w", err)
	}

	if cfg.Database.URL != "" {
		a.db, err = db.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { a.db.Close(); return nil })

		if err := a.db.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	a.embedder, err = a.newEmbedder()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.embedder.Close)

	switch cfg.Centroids.Store {
	case config.StoreFile:
		a.store = centroids.NewFileStore(cfg.Centroids.Path)
	case config.StorePostgres:
		a.store = centroids.NewPostgresStore(a.db.Centroids())
	default:
		a.store = centroids.NopStore{}
	}

	return a, nil
}

// newEmbedder builds the single embedder for this process.
func (a *app) newEmbedder() (embedding.Embedder, error) {
	cfg := a.cfg.Embedding

	var (
		e   embedding.Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		e, err = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:          cfg.BaseURL,
			Model:            cfg.Model,
			APIKey:           cfg.APIKey,
			Dimensions:       cfg.Dimensions,
			Timeout:          cfg.Timeout,
			FailureThreshold: cfg.FailureThreshold,
			Logger:           logging.Component("embedding"),
		})
	case config.ProviderOllama:
		e, err = embedding.NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Timeout)
	default:
		e = embedding.NewHashEmbedder(cfg.Dimensions)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s embedder: %w", cfg.Provider, err)
	}

	if cfg.CachePath == "" {
		return e, nil
	}

	cache, err := embedding.OpenBadgerCache(cfg.CachePath)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	a.closers = append(a.closers, cache.Close)

	return embedding.NewCachedEmbedder(e, cache, logging.Component("embedding_cache")), nil
}

// centroids loads the stored centroid table, building it when missing or stale.
func (a *app) centroids(ctx context.Context) (*mood.CentroidTable, error) {
	return centroids.LoadOrBuild(ctx, a.store, a.lexicon, a.embedder, logging.Component("centroids"))
}

// moodService assembles the request orchestration over table.
func (a *app) moodService(table *mood.CentroidTable) *moodtracks.Service {
	classifier := mood.NewClassifier(table, a.embedder,
		mood.WithBatchSize(a.cfg.Classifier.BatchSize),
		mood.WithConcurrency(a.cfg.Classifier.Concurrency),
		mood.WithLogger(logging.Component("classifier")),
	)

	opts := []genres.Option{
		genres.WithMaxTags(a.cfg.Genres.MaxTags),
		genres.WithConcurrency(a.cfg.Genres.FallbackWorkers),
		genres.WithLogger(logging.Component("genres")),
	}
	if a.cfg.Genres.LastfmAPIKey != "" {
		opts = append(opts, genres.WithFallback(lastfm.NewClient(lastfm.Config{
			APIKey:            a.cfg.Genres.LastfmAPIKey,
			RequestsPerSecond: a.cfg.Genres.LastfmRPS,
		})))
	}
	if a.cfg.Genres.CacheInPostgres && a.db != nil {
		opts = append(opts, genres.WithCache(a.db.Genres()))
	}

	return moodtracks.New(classifier, genres.NewService(opts...), logging.Component("moodtracks"))
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn().Err(err).Msg("closing resources")
	}
}
