package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/justestif/spotify-mood-it/internal/metrics"
)

// ContentHash returns the cache key for text embedded by model.
// The model is part of the key so switching providers never serves stale vectors.
func ContentHash(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float32)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, vector []float32) error {
	c.mu.Lock()
	c.vectors[key] = slices.Clone(vector)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached vectors.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// CachedEmbedder consults a Cache before delegating to the wrapped Embedder.
// Cache failures are logged and treated as misses.
type CachedEmbedder struct {
	next   Embedder
	cache  Cache
	logger zerolog.Logger
}

// NewCachedEmbedder wraps next with cache.
func NewCachedEmbedder(next Embedder, cache Cache, logger zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, logger: logger}
}

// Generate implements Embedder. Only cache misses are sent to the wrapped
// embedder, in a single batch, and their results are written back.
func (c *CachedEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	model := c.next.Model()
	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		v, ok, err := c.cache.Get(ctx, ContentHash(model, text))
		if err != nil {
			c.logger.Warn().Err(err).Msg("embedding cache get failed")
		}
		if ok {
			metrics.EmbeddingCacheLookups.WithLabelValues("hit").Inc()
			vectors[i] = v
			continue
		}
		metrics.EmbeddingCacheLookups.WithLabelValues("miss").Inc()
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.Generate(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmptyResponse, len(fresh), len(missTexts))
	}

	for j, v := range fresh {
		vectors[missIdx[j]] = v
		if err := c.cache.Put(ctx, ContentHash(model, missTexts[j]), v); err != nil {
			c.logger.Warn().Err(err).Msg("embedding cache put failed")
		}
	}

	return vectors, nil
}

// Dimensions implements Embedder.
func (c *CachedEmbedder) Dimensions() int {
	return c.next.Dimensions()
}

// Model implements Embedder.
func (c *CachedEmbedder) Model() string {
	return c.next.Model()
}

// Close implements Embedder.
func (c *CachedEmbedder) Close() error {
	return c.next.Close()
}
