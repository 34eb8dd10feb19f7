package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records every batch it receives.
type countingEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	inner   Embedder
	err     error
}

func (c *countingEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Generate(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Model() string   { return c.inner.Model() }
func (c *countingEmbedder) Close() error    { return nil }

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash("m", "rock"), ContentHash("m", "rock"))
	assert.NotEqual(t, ContentHash("m1", "rock"), ContentHash("m2", "rock"))
	assert.NotEqual(t, ContentHash("m", "rock"), ContentHash("m", "pop"))
	assert.NotEqual(t, ContentHash("ab", "c"), ContentHash("a", "bc"))
	assert.Len(t, ContentHash("m", "rock"), 64)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	v := []float32{1, 2, 3}
	require.NoError(t, c.Put(ctx, "k", v))
	v[0] = 99

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)
	assert.Equal(t, 1, c.Len())
}

func TestCachedEmbedder_OnlyMissesReachProvider(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{inner: NewHashEmbedder(32)}
	cache := NewMemoryCache()
	e := NewCachedEmbedder(inner, cache, zerolog.Nop())

	first, err := e.Generate(ctx, []string{"rock", "pop"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := e.Generate(ctx, []string{"pop", "jazz", "rock"})
	require.NoError(t, err)
	require.Len(t, second, 3)

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])

	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"rock", "pop"}, inner.batches[0])
	assert.Equal(t, []string{"jazz"}, inner.batches[1])
	assert.Equal(t, 3, cache.Len())
}

func TestCachedEmbedder_AllHitsSkipProvider(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{inner: NewHashEmbedder(32)}
	e := NewCachedEmbedder(inner, NewMemoryCache(), zerolog.Nop())

	_, err := e.Generate(ctx, []string{"rock"})
	require.NoError(t, err)
	_, err = e.Generate(ctx, []string{"rock", "rock"})
	require.NoError(t, err)

	assert.Len(t, inner.batches, 1)
}

func TestCachedEmbedder_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingEmbedder{inner: NewHashEmbedder(32), err: boom}
	e := NewCachedEmbedder(inner, NewMemoryCache(), zerolog.Nop())

	_, err := e.Generate(context.Background(), []string{"rock"})
	assert.ErrorIs(t, err, boom)
}

func TestCachedEmbedder_Delegates(t *testing.T) {
	e := NewCachedEmbedder(NewHashEmbedder(32), NewMemoryCache(), zerolog.Nop())
	assert.Equal(t, 32, e.Dimensions())
	assert.Equal(t, "hash-fnv1a-32", e.Model())
	assert.NoError(t, e.Close())
}

func TestBadgerCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := OpenBadgerCache(dir)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", []float32{0.5, -0.25}))
	require.NoError(t, c.Close())

	reopened, err := OpenBadgerCache(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, -0.25}, got)
}
