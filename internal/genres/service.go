// Package genres resolves the genres of track artists: Spotify first, Last.fm
// artist tags when Spotify lists none, with an optional PostgreSQL cache.
package genres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/spotify-mood-it/internal/db"
)

// Source indicates where an artist's genres came from.
type Source string

const (
	// SourceSpotify means genres came from the Spotify artist object.
	SourceSpotify Source = "spotify"
	// SourceLastfm means genres are Last.fm top tags (fallback).
	SourceLastfm Source = "lastfm"
	// SourceNone means no genres were found.
	SourceNone Source = "none"
)

// Defaults.
const (
	DefaultConcurrency = 5
	DefaultMaxTags     = 5
	CacheTTL           = 30 * 24 * time.Hour
)

// Artist identifies an artist to resolve. Name is only used for the Last.fm fallback.
type Artist struct {
	ID   string
	Name string
}

// ArtistLookup fetches genres from the music catalog. It is bound to a user's
// token, so it is passed per call rather than held by the Service.
type ArtistLookup interface {
	FetchArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)
}

// TagFetcher abstracts the Last.fm client for testing.
type TagFetcher interface {
	TopTagNames(ctx context.Context, artist string, limit int) ([]string, error)
}

// Cache persists resolved genres. *db.ArtistGenreRepository implements it.
type Cache interface {
	GetFresh(ctx context.Context, artistIDs []string, freshAfter time.Time) (map[string][]db.ArtistGenre, error)
	Store(ctx context.Context, lookups map[string][]db.ArtistGenre, fetchedAt time.Time) error
}

// Service resolves artist genres.
type Service struct {
	fallback    TagFetcher
	cache       Cache
	concurrency int
	maxTags     int
	ttl         time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithFallback enables Last.fm tags for artists Spotify has no genres for.
func WithFallback(f TagFetcher) Option {
	return func(s *Service) {
		s.fallback = f
	}
}

// WithCache enables persistent caching of resolved genres.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithConcurrency sets the number of concurrent fallback fetches.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxTags caps how many fallback tags are kept per artist.
func WithMaxTags(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTags = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a genre resolution service.
func NewService(opts ...Option) *Service {
	s := &Service{
		concurrency: DefaultConcurrency,
		maxTags:     DefaultMaxTags,
		ttl:         CacheTTL,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the genres of each artist keyed by artist ID. Every artist
// with an ID is present in the result, possibly with no genres.
//
// A catalog failure fails the call. Fallback and cache failures are logged and
// only reduce what is returned.
func (s *Service) Resolve(ctx context.Context, lookup ArtistLookup, artists []Artist) (map[string][]string, error) {
	unique := make([]Artist, 0, len(artists))
	seen := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		if a.ID == "" {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		unique = append(unique, a)
	}

	result := make(map[string][]string, len(unique))
	if len(unique) == 0 {
		return result, nil
	}

	misses := s.fromCache(ctx, unique, result)
	if len(misses) == 0 {
		return result, nil
	}

	ids := make([]string, len(misses))
	for i, a := range misses {
		ids[i] = a.ID
	}
	fetched, err := lookup.FetchArtistGenres(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching artist genres: %w", err)
	}

	resolved := make([]ArtistGenres, 0, len(misses))
	var needFallback []Artist
	for _, a := range misses {
		g := fetched[a.ID]
		if len(g) > 0 {
			resolved = append(resolved, ArtistGenres{ArtistID: a.ID, Genres: g, Source: SourceSpotify})
			continue
		}
		if s.fallback == nil {
			resolved = append(resolved, ArtistGenres{ArtistID: a.ID, Genres: []string{}, Source: SourceNone})
			continue
		}
		needFallback = append(needFallback, a)
	}

	if len(needFallback) > 0 {
		fb, err := s.fetchFallbackTags(ctx, needFallback)
		if err != nil {
			return nil, err
		}
		for _, r := range fb {
			if r.Error != nil {
				s.logger.Warn().Err(r.Error).Str("artist_id", r.ArtistID).Msg("last.fm fallback failed")
				result[r.ArtistID] = []string{}
				continue
			}
			resolved = append(resolved, r)
		}
	}

	for _, r := range resolved {
		result[r.ArtistID] = r.Genres
	}
	s.toCache(ctx, resolved)

	s.logger.Debug().
		Int("artists", len(unique)).
		Int("cached", len(unique)-len(misses)).
		Int("fallback", len(needFallback)).
		Msg("resolved artist genres")

	return result, nil
}

// fromCache fills result with fresh cached entries and returns the artists
// that still need fetching.
func (s *Service) fromCache(ctx context.Context, artists []Artist, result map[string][]string) []Artist {
	if s.cache == nil {
		return artists
	}

	ids := make([]string, len(artists))
	for i, a := range artists {
		ids[i] = a.ID
	}

	cached, err := s.cache.GetFresh(ctx, ids, s.now().Add(-s.ttl))
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading genre cache failed")
		return artists
	}

	var misses []Artist
	for _, a := range artists {
		rows, ok := cached[a.ID]
		if !ok {
			misses = append(misses, a)
			continue
		}
		g := make([]string, len(rows))
		for i, row := range rows {
			g[i] = row.Genre
		}
		result[a.ID] = g
	}
	return misses
}

func (s *Service) toCache(ctx context.Context, resolved []ArtistGenres) {
	if s.cache == nil || len(resolved) == 0 {
		return
	}

	lookups := make(map[string][]db.ArtistGenre, len(resolved))
	for _, r := range resolved {
		rows := make([]db.ArtistGenre, len(r.Genres))
		for i, g := range r.Genres {
			rows[i] = db.ArtistGenre{ArtistID: r.ArtistID, Genre: g, Position: i, Source: string(r.Source)}
		}
		lookups[r.ArtistID] = rows
	}

	if err := s.cache.Store(ctx, lookups, s.now()); err != nil {
		s.logger.Warn().Err(err).Msg("writing genre cache failed")
	}
}

// ArtistGenres holds the genres resolved for one artist.
type ArtistGenres struct {
	ArtistID string
	Genres   []string
	Source   Source
	Error    error // Non-nil if fetching failed
}

// fetchFallbackTags fetches Last.fm tags for multiple artists concurrently.
// Results are returned in the same order as input artists.
// Individual fetch errors are captured in ArtistGenres.Error rather than failing the batch.
func (s *Service) fetchFallbackTags(ctx context.Context, artists []Artist) ([]ArtistGenres, error) {
	results := make([]ArtistGenres, len(artists))

	type workItem struct {
		index  int
		artist Artist
	}
	workCh := make(chan workItem, len(artists))
	for i, a := range artists {
		workCh <- workItem{index: i, artist: a}
	}
	close(workCh)

	var wg sync.WaitGroup
	for range min(s.concurrency, len(artists)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				if err := ctx.Err(); err != nil {
					results[work.index] = ArtistGenres{ArtistID: work.artist.ID, Genres: []string{}, Source: SourceNone, Error: err}
					continue
				}

				tags, err := s.fallback.TopTagNames(ctx, work.artist.Name, s.maxTags)
				result := ArtistGenres{ArtistID: work.artist.ID, Genres: tags, Error: err}
				switch {
				case err != nil:
					result.Source = SourceNone
					result.Genres = []string{}
				case len(tags) == 0:
					result.Source = SourceNone
				default:
					result.Source = SourceLastfm
				}
				results[work.index] = result
			}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
