package web

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/justestif/spotify-mood-it/internal/mood"
	"github.com/justestif/spotify-mood-it/internal/moodtracks"
	"github.com/justestif/spotify-mood-it/internal/spotify"
)

// errorResponse is the body of every API error.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mood.ErrUnknownMood),
		errors.Is(err, mood.ErrInvalidThreshold),
		errors.Is(err, moodtracks.ErrNoTracks):
		return http.StatusBadRequest
	}
	if status, ok := spotify.APIStatus(err); ok && status == http.StatusUnauthorized {
		return http.StatusUnauthorized
	}
	if spotify.IsUpstream(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError logs err and writes the mapped status. Client errors
// carry their message; server errors are reported generically.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusBadRequest:
		writeError(w, status, err.Error())
	case status == http.StatusUnauthorized:
		writeError(w, status, "Spotify session expired, log in again")
	case status == http.StatusBadGateway:
		logger.Warn().Err(err).Msg("spotify request failed")
		writeError(w, status, "Spotify request failed")
	default:
		logger.Error().Err(err).Int("status", status).Msg("request failed")
		writeError(w, status, http.StatusText(status))
	}
}
