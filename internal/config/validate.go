package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrMissingSpotifyCredentials is returned by RequireSpotify.
var ErrMissingSpotifyCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	validators := []func() error{
		c.validateDatabase,
		c.validateEmbedding,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.URL != "" {
		return nil
	}
	switch {
	case c.Centroids.Store == StorePostgres:
		return errors.New("centroid store postgres requires DATABASE_URL")
	case c.Server.SessionStore == SessionsPostgres:
		return errors.New("session store postgres requires DATABASE_URL")
	case c.Genres.CacheInPostgres:
		return errors.New("genre cache requires DATABASE_URL")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	e := c.Embedding
	switch e.Provider {
	case ProviderOpenAI, ProviderOllama:
		if e.Model == "" {
			return fmt.Errorf("embedding provider %s requires a model", e.Provider)
		}
		if e.Provider == ProviderOllama && e.BaseURL == "" {
			return errors.New("embedding provider ollama requires a base URL")
		}
		if e.Provider == ProviderOpenAI && e.BaseURL == "" && e.APIKey == "" {
			return errors.New("embedding provider openai requires a base URL or an API key")
		}
	case ProviderHash:
		if e.Dimensions <= 0 {
			return errors.New("hash embedder requires positive dimensions")
		}
	}
	return nil
}

// RequireSpotify reports whether Spotify credentials are set. Commands that
// talk to Spotify call it; offline commands do not need credentials.
func (c *Config) RequireSpotify() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingSpotifyCredentials
	}
	return nil
}
