package lastfm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	baseURL   = "https://ws.audioscrobbler.com/2.0/"
	userAgent = "mood-it/1.0"
)

var (
	// ErrRateLimited is returned once every retry has been rate limited.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when Last.fm rejects the API key.
	ErrInvalidAPIKey = errors.New("invalid API key")

	errUnknownArtist = errors.New("artist not found")
)

// Client looks up artist tags on Last.fm. Requests are paced by a token
// bucket and rate-limited calls are retried after each of retryDelays.
type Client struct {
	apiKey      string
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	retryDelays []time.Duration

	mu    sync.RWMutex
	cache map[string][]Tag // by normalised artist name
}

// NewClient returns a client for cfg.
func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &Client{
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     baseURL,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		retryDelays: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		cache:       make(map[string][]Tag),
	}
}

// ArtistTags returns artist's top tags, most applied first. Unknown and
// blank artists yield an empty, non-nil slice. Answers are kept for the
// lifetime of the client.
func (c *Client) ArtistTags(ctx context.Context, artist string) ([]Tag, error) {
	key := strings.ToLower(strings.TrimSpace(artist))
	if key == "" {
		return []Tag{}, nil
	}
	if tags, ok := c.cached(key); ok {
		return tags, nil
	}

	var resp artistTagsResponse
	err := c.call(ctx, "artist.getTopTags", url.Values{
		"artist":      {artist},
		"autocorrect": {"1"},
	}, &resp)
	switch {
	case errors.Is(err, errUnknownArtist):
		resp.TopTags.Tag = nil
	case err != nil:
		return nil, fmt.Errorf("fetching tags for %q: %w", artist, err)
	}

	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}
	c.mu.Lock()
	c.cache[key] = tags
	c.mu.Unlock()
	return tags, nil
}

// TopTagNames returns at most limit non-blank tag names for artist,
// lower-cased, in popularity order.
func (c *Client) TopTagNames(ctx context.Context, artist string, limit int) ([]string, error) {
	tags, err := c.ArtistTags(ctx, artist)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, t := range tags {
		if len(names) >= limit {
			break
		}
		if name := strings.ToLower(strings.TrimSpace(t.Name)); name != "" {
			names = append(names, name)
		}
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (c *Client) cached(key string) ([]Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tags, ok := c.cache[key]
	return tags, ok
}

// call invokes an API method and decodes the JSON reply into out,
// retrying while Last.fm reports a rate limit.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("method", method)
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		body, err := c.get(ctx, endpoint)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decoding %s reply: %w", method, err)
			}
			return nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= len(c.retryDelays) {
			return err
		}

		timer := time.NewTimer(c.retryDelays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// get fetches endpoint once and returns the body of a successful reply.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading reply: %w", err)
	}

	var status replyStatus
	if json.Unmarshal(body, &status) == nil {
		if err := status.err(); err != nil {
			return nil, err
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("last.fm returned status %d", resp.StatusCode)
	}
	return body, nil
}
