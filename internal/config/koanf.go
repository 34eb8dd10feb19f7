package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources:
//  1. Defaults
//  2. Config file: path if set, else $CONFIG_PATH, else the first of DefaultConfigPaths found
//  3. Environment variables
//
// An explicitly named file that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("processing slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the config file to load, or "" for none.
func findConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// sliceConfigPaths defines which config paths are parsed as comma-separated lists.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		trimmed := []string{}
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
var envMappings = map[string]string{
	"http_addr":             "server.addr",
	"frontend_url":          "server.frontend_url",
	"cors_origins":          "server.cors_origins",
	"session_store":         "server.session_store",
	"secure_cookies":        "server.secure_cookies",
	"rate_limit":            "server.rate_limit",
	"rate_limit_window":     "server.rate_limit_window",
	"request_timeout":       "server.request_timeout",
	"shutdown_timeout":      "server.shutdown_timeout",
	"spotify_id":            "spotify.client_id",
	"spotify_secret":        "spotify.client_secret",
	"spotify_redirect_uri":  "spotify.redirect_uri",
	"spotify_token_cache":   "spotify.token_cache_path",
	"database_url":          "database.url",
	"database_max_conns":    "database.max_conns",
	"embedding_provider":    "embedding.provider",
	"embedding_base_url":    "embedding.base_url",
	"embedding_model":       "embedding.model",
	"embedding_api_key":     "embedding.api_key",
	"embedding_dimensions":  "embedding.dimensions",
	"embedding_timeout":     "embedding.timeout",
	"embedding_cache_path":  "embedding.cache_path",
	"embedding_batch_size":  "classifier.batch_size",
	"embedding_concurrency": "classifier.concurrency",
	"lexicon_path":          "lexicon.path",
	"centroid_store":        "centroids.store",
	"centroid_path":         "centroids.path",
	"mood_threshold":        "classifier.threshold",
	"mood_groups":           "classifier.groups",
	"lastfm_api_key":        "genres.lastfm_api_key",
	"lastfm_rps":            "genres.lastfm_rps",
	"genre_cache":           "genres.cache_in_postgres",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
