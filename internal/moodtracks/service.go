// Package moodtracks ties the music catalog, genre resolution and the mood
// classifier together for one user request.
package moodtracks

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/justestif/spotify-mood-it/internal/clustering"
	"github.com/justestif/spotify-mood-it/internal/genres"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
	"github.com/justestif/spotify-mood-it/internal/mood"
	"github.com/justestif/spotify-mood-it/internal/spotify"
)

// ErrNoTracks is returned when a playlist is requested without tracks.
var ErrNoTracks = errors.New("no tracks provided")

// Source supplies a user's liked tracks and their artists' genres.
// *spotify.Client implements it.
type Source interface {
	FetchAllLikedTracks(ctx context.Context) ([]spotify.Track, error)
	FetchArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)
}

// Sink creates playlists. *spotify.Client implements it.
type Sink interface {
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*spotify.Playlist, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, tracks []string) error
}

// MatchedTrack is a track that matched a mood.
type MatchedTrack struct {
	Name       string             `json:"name"`
	Artist     string             `json:"artist"`
	URI        string             `json:"uri"`
	Similarity float64            `json:"similarity"`
	Source     mood.FeatureSource `json:"source"`
}

// LikedTrack is a liked track for display.
type LikedTrack struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// Service answers mood requests for a user. It holds no user state; the
// catalog is passed in per call.
type Service struct {
	classifier *mood.Classifier
	genres     *genres.Service
	logger     zerolog.Logger
}

// New creates a Service.
func New(classifier *mood.Classifier, genreService *genres.Service, logger zerolog.Logger) *Service {
	return &Service{
		classifier: classifier,
		genres:     genreService,
		logger:     logger,
	}
}

// Moods returns the moods that can be requested.
func (s *Service) Moods() []string {
	return s.classifier.Centroids().Moods()
}

// TracksForMood returns the liked tracks matching moodName at threshold, in
// library order. An unknown mood or invalid threshold is reported before any
// genre lookup or embedding.
func (s *Service) TracksForMood(ctx context.Context, src Source, moodName string, threshold float64) ([]MatchedTrack, error) {
	liked, err := src.FetchAllLikedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching liked tracks: %w", err)
	}
	s.logger.Info().Int("tracks", len(liked)).Msg("total liked tracks fetched")

	if !s.classifier.Centroids().Has(moodName) {
		return nil, fmt.Errorf("%w: %s", mood.ErrUnknownMood, moodName)
	}
	if err := mood.ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	tracks, err := s.withGenres(ctx, src, liked)
	if err != nil {
		return nil, err
	}

	results, err := s.classifier.Classify(ctx, tracks, moodName, threshold)
	if err != nil {
		return nil, err
	}

	matched := make([]MatchedTrack, 0, len(results))
	for _, r := range results {
		matched = append(matched, MatchedTrack{
			Name:       r.Track.Name,
			Artist:     r.Track.Artist,
			URI:        r.Track.URI,
			Similarity: round3(r.Similarity),
			Source:     r.Source,
		})
	}

	s.logger.Info().
		Str("mood", lexicon.Normalize(moodName)).
		Float64("threshold", threshold).
		Int("matched", len(matched)).
		Msg("total matched tracks")

	return matched, nil
}

// LikedTracks returns every liked track's name and first artist.
func (s *Service) LikedTracks(ctx context.Context, src Source) ([]LikedTrack, error) {
	liked, err := src.FetchAllLikedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching liked tracks: %w", err)
	}

	out := make([]LikedTrack, 0, len(liked))
	for _, t := range liked {
		out = append(out, LikedTrack{Name: t.Name, Artist: t.PrimaryArtist})
	}
	return out, nil
}

// MoodGroups clusters the liked tracks into k groups by embedding and labels
// each group with its nearest mood.
func (s *Service) MoodGroups(ctx context.Context, src Source, k int) ([]clustering.Group, []clustering.Track, error) {
	liked, err := src.FetchAllLikedTracks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching liked tracks: %w", err)
	}

	tracks, err := s.withGenres(ctx, src, liked)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := s.classifier.EncodeTracks(ctx, tracks)
	if err != nil {
		return nil, nil, err
	}

	addedAt := make(map[string]spotify.Track, len(liked))
	for _, t := range liked {
		addedAt[t.ID] = t
	}

	points := make([]clustering.Track, len(encoded))
	for i, tv := range encoded {
		points[i] = clustering.Track{
			ID:      tv.Track.ID,
			URI:     tv.Track.URI,
			Name:    tv.Track.Name,
			Artist:  tv.Track.Artist,
			AddedAt: addedAt[tv.Track.ID].AddedAt,
			Vector:  tv.Vector,
		}
	}

	cfg := clustering.DefaultConfig()
	if k > 0 {
		cfg.NumClusters = k
	}

	groups, outliers, err := clustering.DetectMoodGroups(points, s.classifier.Centroids(), cfg)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Int("tracks", len(points)).
		Int("groups", len(groups)).
		Int("outliers", len(outliers)).
		Msg("grouped liked tracks")

	return groups, outliers, nil
}

// PlaylistName returns the name of the playlist created for moodName.
func PlaylistName(moodName string) string {
	return "Mood It – " + lexicon.DisplayName(moodName)
}

// CreatePlaylist creates a public playlist for moodName holding uris.
func (s *Service) CreatePlaylist(ctx context.Context, sink Sink, moodName string, uris []string) (*spotify.Playlist, error) {
	if len(uris) == 0 {
		return nil, ErrNoTracks
	}

	description := "Automatically generated playlist for mood: " + lexicon.Normalize(moodName)
	playlist, err := sink.CreatePlaylist(ctx, PlaylistName(moodName), description, true)
	if err != nil {
		return nil, err
	}

	if err := sink.AddTracksToPlaylist(ctx, playlist.ID, uris); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("playlist_id", playlist.ID).
		Str("mood", lexicon.Normalize(moodName)).
		Int("tracks", len(uris)).
		Msg("created playlist")

	return playlist, nil
}

// withGenres resolves the first artist's genres for every liked track.
// Tracks whose first artist has no ID get no genres.
func (s *Service) withGenres(ctx context.Context, src Source, liked []spotify.Track) ([]mood.Track, error) {
	artists := make([]genres.Artist, 0, len(liked))
	for _, t := range liked {
		if t.PrimaryArtistID != "" {
			artists = append(artists, genres.Artist{ID: t.PrimaryArtistID, Name: t.PrimaryArtist})
		}
	}

	genreMap, err := s.genres.Resolve(ctx, src, artists)
	if err != nil {
		return nil, fmt.Errorf("resolving artist genres: %w", err)
	}

	tracks := make([]mood.Track, len(liked))
	for i, t := range liked {
		tracks[i] = mood.Track{
			ID:       t.ID,
			URI:      t.URI,
			Name:     t.Name,
			Artist:   t.PrimaryArtist,
			ArtistID: t.PrimaryArtistID,
			Genres:   genreMap[t.PrimaryArtistID],
		}
	}
	return tracks, nil
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
