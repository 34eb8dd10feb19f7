// Package lastfm fetches artist tags from Last.fm for artists Spotify has no
// genres for.
package lastfm

import "errors"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing Last.fm API key")

// DefaultRequestsPerSecond stays under Last.fm's documented limit of 5 per second.
const DefaultRequestsPerSecond = 4

// Config holds Last.fm API configuration.
type Config struct {
	APIKey            string
	RequestsPerSecond float64
}

// Validate reports whether the configuration can be used.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
