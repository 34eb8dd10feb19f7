// Package embedding turns text into fixed-length vectors.
//
// All providers are batch-native: Generate takes many texts and returns one
// vector per text in the same order. A process holds a single Embedder for its
// lifetime and shares it between goroutines.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a provider answers without vectors.
var ErrEmptyResponse = errors.New("embedding provider returned no vectors")

// Embedder generates vector embeddings for text.
//
// Implementations must be safe for concurrent use and deterministic for a
// fixed configuration and input.
type Embedder interface {
	// Generate creates embeddings for the given texts, one vector per text.
	Generate(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of produced vectors, or 0 if not yet known.
	Dimensions() int

	// Model identifies the provider configuration. Vectors from different
	// models are never comparable.
	Model() string

	// Close releases resources held by the embedder.
	Close() error
}

// Cache provides content-addressed storage for embeddings.
type Cache interface {
	// Get returns the cached vector and whether it was found.
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Put stores a vector under key.
	Put(ctx context.Context, key string, vector []float32) error
}

// EncodeOne embeds a single text.
func EncodeOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Generate(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 text", ErrEmptyResponse, len(vectors))
	}
	return vectors[0], nil
}
