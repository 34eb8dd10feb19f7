package genres

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/spotify-mood-it/internal/db"
)

// mockLookup implements ArtistLookup for testing.
type mockLookup struct {
	genres map[string][]string
	err    error
	calls  [][]string
}

func (m *mockLookup) FetchArtistGenres(_ context.Context, ids []string) (map[string][]string, error) {
	m.calls = append(m.calls, ids)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string][]string)
	for _, id := range ids {
		if g, ok := m.genres[id]; ok {
			out[id] = g
		}
	}
	return out, nil
}

// mockFetcher implements TagFetcher for testing.
type mockFetcher struct {
	tags      map[string][]string
	errors    map[string]error
	callCount atomic.Int32
	delay     time.Duration
}

func (m *mockFetcher) TopTagNames(ctx context.Context, artist string, limit int) ([]string, error) {
	m.callCount.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := m.errors[artist]; ok {
		return nil, err
	}
	tags := m.tags[artist]
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

// memCache implements Cache for testing.
type memCache struct {
	mu       sync.Mutex
	rows     map[string][]db.ArtistGenre
	fetched  map[string]time.Time
	getErr   error
	stores   int
	lastFrom time.Time
}

func newMemCache() *memCache {
	return &memCache{rows: map[string][]db.ArtistGenre{}, fetched: map[string]time.Time{}}
}

func (c *memCache) GetFresh(_ context.Context, ids []string, freshAfter time.Time) (map[string][]db.ArtistGenre, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.lastFrom = freshAfter
	out := make(map[string][]db.ArtistGenre)
	for _, id := range ids {
		at, ok := c.fetched[id]
		if ok && at.After(freshAfter) {
			out[id] = c.rows[id]
		}
	}
	return out, nil
}

func (c *memCache) Store(_ context.Context, lookups map[string][]db.ArtistGenre, fetchedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	for id, rows := range lookups {
		c.rows[id] = rows
		c.fetched[id] = fetchedAt
	}
	return nil
}

func TestResolve_Empty(t *testing.T) {
	lookup := &mockLookup{}
	got, err := NewService().Resolve(context.Background(), lookup, []Artist{{Name: "no id"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || len(lookup.calls) != 0 {
		t.Errorf("expected no lookups, got %v / %d calls", got, len(lookup.calls))
	}
}

func TestResolve_SpotifyOnly(t *testing.T) {
	lookup := &mockLookup{genres: map[string][]string{
		"a1": {"synthwave", "french house"},
		"a2": {},
	}}

	got, err := NewService().Resolve(context.Background(), lookup, []Artist{
		{ID: "a1", Name: "Kavinsky"},
		{ID: "a1", Name: "Kavinsky"},
		{ID: "a2", Name: "Nobody"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(lookup.calls) != 1 || len(lookup.calls[0]) != 2 {
		t.Fatalf("expected one deduplicated lookup, got %v", lookup.calls)
	}
	if len(got["a1"]) != 2 || got["a1"][0] != "synthwave" {
		t.Errorf("a1 = %v", got["a1"])
	}
	if g, ok := got["a2"]; !ok || len(g) != 0 {
		t.Errorf("a2 = %v, %v; want empty, present", g, ok)
	}
}

func TestResolve_LastfmFallback(t *testing.T) {
	lookup := &mockLookup{genres: map[string][]string{"a1": {"pop"}}}
	fetcher := &mockFetcher{
		tags:   map[string][]string{"Obscure": {"shoegaze", "dream pop", "noise", "indie", "90s", "extra"}},
		errors: map[string]error{"Broken": errors.New("API error")},
	}

	svc := NewService(WithFallback(fetcher), WithMaxTags(5))
	got, err := svc.Resolve(context.Background(), lookup, []Artist{
		{ID: "a1", Name: "Known"},
		{ID: "a2", Name: "Obscure"},
		{ID: "a3", Name: "Broken"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.callCount.Load() != 2 {
		t.Errorf("expected 2 fallback calls, got %d", fetcher.callCount.Load())
	}
	if len(got["a2"]) != 5 || got["a2"][0] != "shoegaze" {
		t.Errorf("a2 = %v", got["a2"])
	}
	if g, ok := got["a3"]; !ok || len(g) != 0 {
		t.Errorf("a3 = %v, %v; want empty, present", g, ok)
	}
}

func TestResolve_LookupErrorFails(t *testing.T) {
	lookup := &mockLookup{err: errors.New("spotify down")}

	_, err := NewService().Resolve(context.Background(), lookup, []Artist{{ID: "a1"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestResolve_CacheHitsSkipLookup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newMemCache()
	lookup := &mockLookup{genres: map[string][]string{"a1": {"disco"}, "a2": {"blues"}}}

	svc := NewService(WithCache(cache))
	svc.now = func() time.Time { return now }

	if _, err := svc.Resolve(context.Background(), lookup, []Artist{{ID: "a1"}}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if cache.stores != 1 {
		t.Fatalf("expected 1 store, got %d", cache.stores)
	}

	got, err := svc.Resolve(context.Background(), lookup, []Artist{{ID: "a1"}, {ID: "a2"}})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if len(lookup.calls) != 2 || len(lookup.calls[1]) != 1 || lookup.calls[1][0] != "a2" {
		t.Errorf("second lookup should only fetch a2, got %v", lookup.calls)
	}
	if len(got["a1"]) != 1 || got["a1"][0] != "disco" {
		t.Errorf("a1 = %v", got["a1"])
	}
	if !cache.lastFrom.Equal(now.Add(-CacheTTL)) {
		t.Errorf("freshAfter = %v, want %v", cache.lastFrom, now.Add(-CacheTTL))
	}
}

func TestResolve_StaleCacheRefetches(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newMemCache()
	cache.rows["a1"] = []db.ArtistGenre{{ArtistID: "a1", Genre: "old"}}
	cache.fetched["a1"] = now.Add(-CacheTTL - time.Hour)

	lookup := &mockLookup{genres: map[string][]string{"a1": {"new"}}}
	svc := NewService(WithCache(cache))
	svc.now = func() time.Time { return now }

	got, err := svc.Resolve(context.Background(), lookup, []Artist{{ID: "a1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got["a1"]) != 1 || got["a1"][0] != "new" {
		t.Errorf("a1 = %v, want [new]", got["a1"])
	}
}

func TestResolve_CacheErrorFallsThrough(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("db down")
	lookup := &mockLookup{genres: map[string][]string{"a1": {"jazz"}}}

	got, err := NewService(WithCache(cache)).Resolve(context.Background(), lookup, []Artist{{ID: "a1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got["a1"]) != 1 {
		t.Errorf("a1 = %v", got["a1"])
	}
}

func TestFetchFallbackTags_ContextCancellation(t *testing.T) {
	fetcher := &mockFetcher{delay: 100 * time.Millisecond, tags: map[string][]string{"Artist": {"rock"}}}
	svc := NewService(WithFallback(fetcher), WithConcurrency(2))

	artists := make([]Artist, 10)
	for i := range artists {
		artists[i] = Artist{ID: "a", Name: "Artist"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	results, err := svc.fetchFallbackTags(ctx, artists)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled error, got %v", err)
	}
	if len(results) != 10 {
		t.Errorf("expected 10 results, got %d", len(results))
	}
}

func TestFetchFallbackTags_Concurrency(t *testing.T) {
	fetcher := &mockFetcher{delay: 10 * time.Millisecond, tags: map[string][]string{"Artist": {"rock"}}}

	artists := make([]Artist, 20)
	for i := range artists {
		artists[i] = Artist{ID: "a", Name: "Artist"}
	}

	svc := NewService(WithFallback(fetcher), WithConcurrency(10))

	start := time.Now()
	results, err := svc.fetchFallbackTags(context.Background(), artists)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("expected concurrent execution, took %v", elapsed)
	}
	if fetcher.callCount.Load() != 20 {
		t.Errorf("expected 20 calls, got %d", fetcher.callCount.Load())
	}
	for i, r := range results {
		if r.Source != SourceLastfm {
			t.Errorf("result[%d].Source = %q, want lastfm", i, r.Source)
		}
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"positive value", 10, 10},
		{"zero uses default", 0, DefaultConcurrency},
		{"negative uses default", -1, DefaultConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(WithConcurrency(tt.input))
			if svc.concurrency != tt.expected {
				t.Errorf("concurrency = %d, want %d", svc.concurrency, tt.expected)
			}
		})
	}
}
