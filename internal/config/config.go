// Package config loads mood-it configuration from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"time"

	"github.com/justestif/spotify-mood-it/internal/logging"
)

// Embedding providers.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Centroid stores.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreNone     = "none"
)

// Session stores.
const (
	SessionsMemory   = "memory"
	SessionsPostgres = "postgres"
)

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Spotify    SpotifyConfig    `koanf:"spotify"`
	Database   DatabaseConfig   `koanf:"database"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Lexicon    LexiconConfig    `koanf:"lexicon"`
	Centroids  CentroidsConfig  `koanf:"centroids"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Genres     GenresConfig     `koanf:"genres"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	FrontendURL     string        `koanf:"frontend_url" validate:"omitempty,url"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	SessionStore    string        `koanf:"session_store" validate:"oneof=memory postgres"`
	SecureCookies   bool          `koanf:"secure_cookies"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// SpotifyConfig holds the Spotify application credentials.
type SpotifyConfig struct {
	ClientID       string `koanf:"client_id"`
	ClientSecret   string `koanf:"client_secret"`
	RedirectURI    string `koanf:"redirect_uri" validate:"required,url"`
	TokenCachePath string `koanf:"token_cache_path"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns" validate:"gte=0"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider         string        `koanf:"provider" validate:"oneof=hash openai ollama"`
	BaseURL          string        `koanf:"base_url" validate:"omitempty,url"`
	Model            string        `koanf:"model"`
	APIKey           string        `koanf:"api_key"`
	Dimensions       int           `koanf:"dimensions" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
	CachePath        string        `koanf:"cache_path"`
}

// LexiconConfig locates the mood lexicon. An empty path uses the built-in lexicon.
type LexiconConfig struct {
	Path string `koanf:"path"`
}

// CentroidsConfig selects where the centroid table is persisted.
type CentroidsConfig struct {
	Store string `koanf:"store" validate:"oneof=file postgres none"`
	Path  string `koanf:"path" validate:"required_if=Store file"`
}

// ClassifierConfig tunes classification.
type ClassifierConfig struct {
	Threshold   float64 `koanf:"threshold" validate:"gte=-1,lte=1"`
	BatchSize   int     `koanf:"batch_size" validate:"gte=1"`
	Concurrency int     `koanf:"concurrency" validate:"gte=1"`
	Groups      int     `koanf:"groups" validate:"gte=1"`
}

// GenresConfig configures genre resolution.
type GenresConfig struct {
	LastfmAPIKey    string  `koanf:"lastfm_api_key"`
	LastfmRPS       float64 `koanf:"lastfm_rps" validate:"gt=0"`
	MaxTags         int     `koanf:"max_tags" validate:"gte=1"`
	FallbackWorkers int     `koanf:"fallback_workers" validate:"gte=1"`
	CacheInPostgres bool    `koanf:"cache_in_postgres"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// LoggerConfig returns the logging package configuration.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
	}
}

// defaultConfig returns a Config with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			FrontendURL:     "",
			CORSOrigins:     []string{},
			SessionStore:    SessionsMemory,
			SecureCookies:   false,
			RateLimit:       60,
			RateLimitWindow: time.Minute,
			RequestTimeout:  2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Spotify: SpotifyConfig{
			RedirectURI: "http://127.0.0.1:8080/callback",
		},
		Embedding: EmbeddingConfig{
			Provider:         ProviderHash,
			Dimensions:       384,
			Timeout:          60 * time.Second,
			FailureThreshold: 5,
		},
		Centroids: CentroidsConfig{
			Store: StoreFile,
			Path:  "centroids.json",
		},
		Classifier: ClassifierConfig{
			Threshold:   0.6,
			BatchSize:   32,
			Concurrency: 4,
			Groups:      3,
		},
		Genres: GenresConfig{
			LastfmRPS:       4,
			MaxTags:         5,
			FallbackWorkers: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
