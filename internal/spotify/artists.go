package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

const maxArtistsPerRequest = 50

// FetchArtistGenres returns the genres Spotify lists for each artist.
// Artists unknown to Spotify are absent from the map; artists without genres
// map to an empty slice.
func (c *Client) FetchArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(artistIDs))
	if len(artistIDs) == 0 {
		return result, nil
	}

	ids := make([]spotify.ID, len(artistIDs))
	for i, id := range artistIDs {
		ids[i] = spotify.ID(id)
	}

	total := len(ids)
	for i := 0; i < total; i += maxArtistsPerRequest {
		end := min(i+maxArtistsPerRequest, total)

		artists, err := c.api.GetArtists(ctx, ids[i:end]...)
		if err != nil {
			return nil, fmt.Errorf("fetching artists (batch %d-%d): %w", i+1, end, err)
		}

		for _, a := range artists {
			if a == nil {
				continue
			}
			genres := a.Genres
			if genres == nil {
				genres = []string{}
			}
			result[a.ID.String()] = genres
		}
	}

	c.logger.Debug().Int("artists", total).Int("resolved", len(result)).Msg("fetched artist genres")
	return result, nil
}
