package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-mood-it/internal/clustering"
	"github.com/justestif/spotify-mood-it/internal/moodtracks"
)

const (
	oauthStateCookie = "oauth_state"
	maxRequestBody   = 1 << 20
)

// OAuthProvider is the part of the Spotify authenticator the handlers use.
// *spotifyauth.Authenticator implements it.
type OAuthProvider interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	Client(ctx context.Context, token *oauth2.Token) *http.Client
}

// HandlersConfig holds handler dependencies.
type HandlersConfig struct {
	Auth             OAuthProvider
	Sessions         SessionManager
	Templates        *Templates
	Moods            *moodtracks.Service
	DefaultThreshold float64
	DefaultGroups    int
	FrontendURL      string // where to send the browser after login; "/" if empty
	SecureCookies    bool
	Catalogs         CatalogFactory
	Logger           zerolog.Logger
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	cfg    HandlersConfig
	logger zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg HandlersConfig) *Handlers {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "/"
	}
	if cfg.DefaultGroups < 1 {
		cfg.DefaultGroups = clustering.DefaultConfig().NumClusters
	}
	return &Handlers{cfg: cfg, logger: cfg.Logger}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := sessionFromRequest(h.cfg.Sessions, r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Mood It",
			CurrentPath: r.URL.Path,
		},
		Authenticated:    session != nil,
		Moods:            h.cfg.Moods.Moods(),
		DefaultThreshold: h.cfg.DefaultThreshold,
	}

	if session != nil {
		data.User = &UserData{
			ID:   session.UserID,
			Name: session.UserName,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.cfg.Templates.Render(w, "home", data); err != nil {
		h.logger.Error().Err(err).Msg("rendering home page")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// Healthz reports liveness (GET /healthz).
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"moods":  len(h.cfg.Moods.Moods()),
	})
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.cfg.Auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.cfg.Auth.Token(r.Context(), state, r)
	if err != nil {
		h.logger.Warn().Err(err).Msg("exchanging authorization code")
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	user, err := h.cfg.Catalogs(r.Context(), token).CurrentUser(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("fetching user profile")
		http.Error(w, "Failed to get user info", http.StatusBadGateway)
		return
	}

	session, err := h.cfg.Sessions.Create(r.Context(), token, user.ID, user.DisplayName)
	if err != nil {
		h.logger.Error().Err(err).Msg("creating session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, session, h.cfg.SecureCookies)
	h.logger.Info().Str("user_id", user.ID).Msg("user logged in")

	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := sessionFromRequest(h.cfg.Sessions, r); session != nil {
		h.cfg.Sessions.Delete(r.Context(), session.ID)
	}

	clearSessionCookie(w)
	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusSeeOther)
}

// Me returns the signed-in user (GET /api/me).
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"display_name": session.UserName})
}

// Moods lists the moods that can be requested (GET /api/moods).
func (h *Handlers) Moods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Moods.Moods())
}

// MoodTracks returns liked tracks matching a mood (GET /api/mood-tracks?mood=&threshold=).
func (h *Handlers) MoodTracks(w http.ResponseWriter, r *http.Request) {
	moodName := strings.TrimSpace(r.URL.Query().Get("mood"))
	if moodName == "" {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}

	threshold := h.cfg.DefaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = v
	}

	tracks, err := h.cfg.Moods.TracksForMood(r.Context(), catalogFrom(r.Context()), moodName, threshold)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// LikedTracks returns every liked track (GET /api/liked-tracks).
func (h *Handlers) LikedTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.cfg.Moods.LikedTracks(r.Context(), catalogFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// groupResponse is one mood group in the JSON API.
type groupResponse struct {
	ID         string              `json:"id"`
	Mood       string              `json:"mood"`
	Name       string              `json:"name"`
	Similarity float64             `json:"similarity"`
	StartDate  time.Time           `json:"start_date"`
	EndDate    time.Time           `json:"end_date"`
	Tracks     []groupTrackPayload `json:"tracks"`
}

type groupTrackPayload struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URI    string `json:"uri"`
}

type groupsResponse struct {
	Groups       []groupResponse `json:"groups"`
	OutlierCount int             `json:"outlier_count"`
}

// MoodGroups clusters the liked tracks (GET /api/mood-groups?k=).
func (h *Handlers) MoodGroups(w http.ResponseWriter, r *http.Request) {
	groups, outliers, ok := h.moodGroups(w, r)
	if !ok {
		return
	}

	resp := groupsResponse{
		Groups:       make([]groupResponse, 0, len(groups)),
		OutlierCount: len(outliers),
	}
	for _, g := range groups {
		gr := groupResponse{
			ID:         g.ID.String(),
			Mood:       g.Mood,
			Name:       g.Name,
			Similarity: g.Similarity,
			StartDate:  g.StartDate,
			EndDate:    g.EndDate,
			Tracks:     make([]groupTrackPayload, 0, len(g.Tracks)),
		}
		for _, t := range g.Tracks {
			gr.Tracks = append(gr.Tracks, groupTrackPayload{Name: t.Name, Artist: t.Artist, URI: t.URI})
		}
		resp.Groups = append(resp.Groups, gr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MoodGroupsPartial renders the mood groups as an HTML fragment (GET /partials/mood-groups?k=).
func (h *Handlers) MoodGroupsPartial(w http.ResponseWriter, r *http.Request) {
	groups, outliers, ok := h.moodGroups(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := GroupsPartialData{Groups: groups, OutlierCount: len(outliers)}
	if err := h.cfg.Templates.RenderPartial(w, "mood_groups", data); err != nil {
		h.logger.Error().Err(err).Msg("rendering mood groups")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func (h *Handlers) moodGroups(w http.ResponseWriter, r *http.Request) ([]clustering.Group, []clustering.Track, bool) {
	k := h.cfg.DefaultGroups
	if raw := r.URL.Query().Get("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return nil, nil, false
		}
		k = v
	}

	groups, outliers, err := h.cfg.Moods.MoodGroups(r.Context(), catalogFrom(r.Context()), k)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil, nil, false
	}
	return groups, outliers, true
}

// createPlaylistRequest is the body of POST /api/playlists.
type createPlaylistRequest struct {
	Mood string   `json:"mood"`
	URIs []string `json:"uris"`
}

type createPlaylistResponse struct {
	Message     string `json:"message"`
	PlaylistID  string `json:"playlist_id"`
	PlaylistURL string `json:"playlist_url"`
}

// CreatePlaylist creates a playlist from matched tracks (POST /api/playlists).
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Mood) == "" {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}

	playlist, err := h.cfg.Moods.CreatePlaylist(r.Context(), catalogFrom(r.Context()), req.Mood, req.URIs)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPlaylistResponse{
		Message:     "Playlist created successfully",
		PlaylistID:  playlist.ID,
		PlaylistURL: playlist.URL,
	})
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
