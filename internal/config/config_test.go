package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test in an empty directory so no config.yaml is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, ProviderHash, cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, StoreFile, cfg.Centroids.Store)
	assert.InDelta(t, 0.6, cfg.Classifier.Threshold, 1e-9)
	assert.Equal(t, 32, cfg.Classifier.BatchSize)
	assert.Equal(t, 3, cfg.Classifier.Groups)
	assert.Equal(t, time.Minute, cfg.Server.RateLimitWindow)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "mood-it.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
classifier:
  threshold: 0.45
  batch_size: 8
embedding:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
server:
  cors_origins:
    - http://localhost:5173
logging:
  level: debug
`), 0o644))

	t.Setenv("MOOD_THRESHOLD", "0.5")
	t.Setenv("EMBEDDING_TIMEOUT", "90s")
	t.Setenv("SPOTIFY_ID", "id")
	t.Setenv("SPOTIFY_SECRET", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Classifier.Threshold, 1e-9, "env overrides file")
	assert.Equal(t, 8, cfg.Classifier.BatchSize)
	assert.Equal(t, ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, 90*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.RequireSpotify())
}

func TestLoad_CommaSeparatedOrigins(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"threshold above 1", map[string]string{"MOOD_THRESHOLD": "1.5"}},
		{"threshold below -1", map[string]string{"MOOD_THRESHOLD": "-2"}},
		{"zero batch size", map[string]string{"EMBEDDING_BATCH_SIZE": "0"}},
		{"unknown provider", map[string]string{"EMBEDDING_PROVIDER": "word2vec"}},
		{"unknown store", map[string]string{"CENTROID_STORE": "s3"}},
		{"postgres store without database", map[string]string{"CENTROID_STORE": "postgres"}},
		{"postgres sessions without database", map[string]string{"SESSION_STORE": "postgres"}},
		{"ollama without model", map[string]string{"EMBEDDING_PROVIDER": "ollama", "EMBEDDING_BASE_URL": "http://localhost:11434"}},
		{"ollama without base url", map[string]string{"EMBEDDING_PROVIDER": "ollama", "EMBEDDING_MODEL": "m"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRequireSpotify(t *testing.T) {
	cfg := defaultConfig()
	assert.ErrorIs(t, cfg.RequireSpotify(), ErrMissingSpotifyCredentials)

	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	assert.NoError(t, cfg.RequireSpotify())
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "spotify.client_id", envTransformFunc("SPOTIFY_ID"))
	assert.Equal(t, "classifier.threshold", envTransformFunc("MOOD_THRESHOLD"))
	assert.Equal(t, "", envTransformFunc("HOME"))
}
