package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
)

// Track is a liked track as returned by the library endpoint.
type Track struct {
	ID        string
	URI       string
	Name      string
	Artist    string   // Comma-separated artist names
	ArtistIDs []string // In credit order

	// First credited artist. PrimaryArtistID is empty when Spotify has no ID for it.
	PrimaryArtist   string
	PrimaryArtistID string

	AddedAt time.Time
}

// FetchAllLikedTracks retrieves all tracks from the user's library, most
// recently liked first.
func (c *Client) FetchAllLikedTracks(ctx context.Context) ([]Track, error) {
	var tracks []Track

	// 50 is the maximum page size.
	page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(50))
	if err != nil {
		return nil, fmt.Errorf("fetching liked songs: %w", err)
	}

	for {
		for _, saved := range page.Tracks {
			if saved.ID == "" {
				continue
			}
			tracks = append(tracks, convertTrack(saved))
		}

		c.logger.Debug().Int("fetched", len(tracks)).Int("total", int(page.Total)).Msg("fetched liked tracks page")

		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetching next page: %w", err)
		}
	}

	c.logger.Info().Int("tracks", len(tracks)).Msg("fetched liked tracks")
	return tracks, nil
}

// convertTrack converts a Spotify SavedTrack to a Track.
func convertTrack(saved spotify.SavedTrack) Track {
	artists := make([]string, 0, len(saved.Artists))
	artistIDs := make([]string, 0, len(saved.Artists))
	for _, a := range saved.Artists {
		artists = append(artists, a.Name)
		if a.ID != "" {
			artistIDs = append(artistIDs, a.ID.String())
		}
	}

	// Zero value on unparsable timestamps.
	addedAt, _ := time.Parse(time.RFC3339, saved.AddedAt)

	t := Track{
		ID:        saved.ID.String(),
		URI:       string(saved.URI),
		Name:      saved.Name,
		Artist:    strings.Join(artists, ", "),
		ArtistIDs: artistIDs,
		AddedAt:   addedAt,
	}
	if len(saved.Artists) > 0 {
		t.PrimaryArtist = saved.Artists[0].Name
		t.PrimaryArtistID = saved.Artists[0].ID.String()
	}
	return t
}
