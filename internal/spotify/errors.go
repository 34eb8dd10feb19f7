package spotify

import (
	"errors"
	"net/url"

	"github.com/zmb3/spotify/v2"
)

// APIStatus returns the HTTP status of a Spotify Web API error in err's chain.
func APIStatus(err error) (int, bool) {
	var e spotify.Error
	if errors.As(err, &e) {
		return e.Status, true
	}
	var pe *spotify.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Status, true
	}
	return 0, false
}

// IsUpstream reports whether err came from Spotify or from reaching it.
func IsUpstream(err error) bool {
	if _, ok := APIStatus(err); ok {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
