// Package auth provides Spotify OAuth2 authentication for the command line,
// with token caching between runs.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-mood-it/internal/spotify"
)

const callbackTimeout = 2 * time.Minute

var (
	// ErrMissingCredentials is returned when the client ID or secret is not configured.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrAuthTimeout is returned when the OAuth callback is not received in time.
	ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Config holds the Spotify application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	// RedirectURI must match the Spotify app configuration. Spotify requires
	// an explicit loopback IP such as http://127.0.0.1:8080/callback for local
	// development.
	RedirectURI string
	// TokenCachePath overrides the default token location.
	TokenCachePath string
}

// Scopes are the permissions mood-it requests.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// NewSpotifyAuthenticator builds the OAuth authenticator shared by the web
// server and the command line.
func NewSpotifyAuthenticator(cfg Config) (*spotifyauth.Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	return spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURI),
		spotifyauth.WithScopes(Scopes...),
	), nil
}

// Authenticator handles Spotify OAuth2 authentication for a terminal user.
type Authenticator struct {
	auth        *spotifyauth.Authenticator
	cache       *TokenCache
	redirectURI string
	out         io.Writer
	logger      zerolog.Logger
}

// New creates an Authenticator. Returns ErrMissingCredentials if the client
// ID or secret is empty.
func New(cfg Config, logger zerolog.Logger) (*Authenticator, error) {
	auth, err := NewSpotifyAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	var cache *TokenCache
	if cfg.TokenCachePath != "" {
		cache = NewTokenCache(cfg.TokenCachePath)
	} else {
		cache, err = DefaultTokenCache()
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
	}

	return &Authenticator{
		auth:        auth,
		cache:       cache,
		redirectURI: cfg.RedirectURI,
		out:         os.Stderr,
		logger:      logger,
	}, nil
}

// Authenticate returns an authenticated Spotify client.
// It first checks for a cached token and uses it if valid/refreshable.
// Otherwise, it runs the full OAuth flow.
func (a *Authenticator) Authenticate(ctx context.Context) (*spotify.Client, error) {
	token, err := a.cache.Load()
	if err != nil {
		a.logger.Warn().Err(err).Str("path", a.cache.Path()).Msg("ignoring unreadable token cache")
		token = nil
	}

	if token != nil {
		// oauth2 refreshes an expired access token on first use
		client := a.clientFor(ctx, token)

		if _, err := client.CurrentUser(ctx); err == nil {
			a.saveIfRefreshed(client, token)
			return client, nil
		}

		a.logger.Info().Msg("cached token invalid, starting new authentication")
	}

	token, err = a.runOAuthFlow(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.cache.Save(token); err != nil {
		a.logger.Warn().Err(err).Msg("caching token")
	}

	return a.clientFor(ctx, token), nil
}

func (a *Authenticator) clientFor(ctx context.Context, token *oauth2.Token) *spotify.Client {
	return spotify.NewFromHTTP(a.auth.Client(ctx, token), a.logger)
}

func (a *Authenticator) saveIfRefreshed(client *spotify.Client, old *oauth2.Token) {
	current, err := client.Token()
	if err != nil || current == nil || current.AccessToken == old.AccessToken {
		return
	}
	if err := a.cache.Save(current); err != nil {
		a.logger.Warn().Err(err).Msg("caching refreshed token")
	}
}

// runOAuthFlow performs the authorization code flow against a one-shot
// loopback server listening on the redirect URI.
func (a *Authenticator) runOAuthFlow(ctx context.Context) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.redirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("invalid redirect URI %q", a.redirectURI)
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle(callbackPath, callbackHandler(a.auth, state, tokenCh, errCh))

	server := &http.Server{
		Addr:              redirect.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintln(a.out, "\nTo authenticate, open this URL in your browser:")
	fmt.Fprintln(a.out, a.auth.AuthURL(state))
	fmt.Fprintln(a.out, "\nWaiting for authentication...")

	select {
	case token := <-tokenCh:
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(callbackTimeout):
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// tokenExchanger exchanges an authorization code for a token.
type tokenExchanger interface {
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// callbackHandler processes the OAuth callback from Spotify. Results are
// delivered without blocking; only the first one is kept.
func callbackHandler(ex tokenExchanger, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) http.Handler {
	fail := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != expectedState {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			fail(ErrStateMismatch)
			return
		}

		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			http.Error(w, "Authentication failed: "+errMsg, http.StatusBadRequest)
			fail(fmt.Errorf("spotify auth error: %s", errMsg))
			return
		}

		token, err := ex.Token(r.Context(), expectedState, r)
		if err != nil {
			http.Error(w, "Failed to get token", http.StatusInternalServerError)
			fail(fmt.Errorf("exchanging code for token: %w", err))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body>
<h1>Authentication Successful!</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

		select {
		case tokenCh <- token:
		default:
		}
	})
}

// generateState creates a random state string for OAuth.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}
