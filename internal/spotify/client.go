// Package spotify wraps the Spotify Web API calls the mood service needs:
// liked tracks, artist genres, the user profile and playlist creation.
package spotify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api    *spotify.Client
	logger zerolog.Logger
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client, logger zerolog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// NewFromHTTP creates a client over an authenticated HTTP client, such as
// one returned by the OAuth authenticator for a session token. Rate-limited
// requests are retried by the underlying client.
func NewFromHTTP(httpClient *http.Client, logger zerolog.Logger, opts ...spotify.ClientOption) *Client {
	opts = append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)
	return New(spotify.New(httpClient, opts...), logger)
}

// Profile is the current user's identity.
type Profile struct {
	ID          string
	DisplayName string
}

// CurrentUser returns the current user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return &Profile{ID: user.ID, DisplayName: name}, nil
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	p, err := c.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Token returns the client's current OAuth token, which differs from the one
// it was created with after a refresh.
func (c *Client) Token() (*oauth2.Token, error) {
	return c.api.Token()
}
