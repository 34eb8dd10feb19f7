package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	zspotify "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-mood-it/internal/metrics"
	"github.com/justestif/spotify-mood-it/internal/spotify"
)

type contextKey int

const (
	sessionKey contextKey = iota
	catalogKey
)

// Catalog is what API handlers need from a signed-in user's Spotify library.
type Catalog interface {
	CurrentUser(ctx context.Context) (*spotify.Profile, error)
	FetchAllLikedTracks(ctx context.Context) ([]spotify.Track, error)
	FetchArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*spotify.Playlist, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error
	Token() (*oauth2.Token, error)
}

// CatalogFactory builds a Catalog for a session token.
type CatalogFactory func(ctx context.Context, token *oauth2.Token) Catalog

// SpotifyCatalog returns a factory that wraps the authenticator's HTTP client.
func SpotifyCatalog(auth OAuthProvider, logger zerolog.Logger, opts ...zspotify.ClientOption) CatalogFactory {
	return func(ctx context.Context, token *oauth2.Token) Catalog {
		return spotify.NewFromHTTP(auth.Client(ctx, token), logger, opts...)
	}
}

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

func catalogFrom(ctx context.Context) Catalog {
	c, _ := ctx.Value(catalogKey).(Catalog)
	return c
}

// requireSession rejects requests without a valid session and attaches the
// session and a Spotify catalog to the request context. A token refreshed
// while serving the request is written back to the session store.
func requireSession(sessions SessionManager, newCatalog CatalogFactory, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(sessions, r)
			if session == nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			catalog := newCatalog(r.Context(), session.Token)
			ctx := context.WithValue(r.Context(), sessionKey, session)
			ctx = context.WithValue(ctx, catalogKey, catalog)

			next.ServeHTTP(w, r.WithContext(ctx))

			token, err := catalog.Token()
			if err != nil || token == nil {
				return
			}
			if token.AccessToken != session.Token.AccessToken {
				logger.Debug().Str("user_id", session.UserID).Msg("persisting refreshed token")
				sessions.UpdateToken(context.WithoutCancel(r.Context()), session.ID, token)
			}
		})
	}
}

// requestLogger logs each request with zerolog and records its latency.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())

			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", elapsed).
				Msg("request")
		})
	}
}
