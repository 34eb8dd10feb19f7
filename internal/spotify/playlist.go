package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

const maxTracksPerRequest = 100

// Playlist identifies a created playlist.
type Playlist struct {
	ID  string
	URL string
}

// CreatePlaylist creates a new playlist for the current user.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, public bool) (*Playlist, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, err
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	url := playlist.ExternalURLs["spotify"]
	if url == "" {
		url = "https://open.spotify.com/playlist/" + playlist.ID.String()
	}
	return &Playlist{ID: playlist.ID.String(), URL: url}, nil
}

// AddTracksToPlaylist adds tracks to a playlist in batches of 100.
// Tracks may be given as IDs or as spotify:track: URIs.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, tracks []string) error {
	if len(tracks) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(tracks))
	for i, t := range tracks {
		ids[i] = spotify.ID(TrackIDFromURI(t))
	}

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))

		if _, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[i:end]...); err != nil {
			return fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return nil
}

// TrackIDFromURI returns the ID part of a "spotify:track:<id>" URI.
// Anything else is returned unchanged.
func TrackIDFromURI(uri string) string {
	if id, ok := strings.CutPrefix(uri, "spotify:track:"); ok {
		return id
	}
	return uri
}
