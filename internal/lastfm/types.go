package lastfm

import "fmt"

// Error codes Last.fm reports in the body of an otherwise successful reply.
const (
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Tag is a user-applied Last.fm tag weighted by how often it was applied.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type artistTagsResponse struct {
	TopTags struct {
		Tag []Tag `json:"tag"`
	} `json:"toptags"`
}

// replyStatus is the error part of every Last.fm reply.
type replyStatus struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (s replyStatus) err() error {
	switch s.Code {
	case 0:
		return nil
	case errCodeRateLimited:
		return ErrRateLimited
	case errCodeInvalidAPIKey:
		return ErrInvalidAPIKey
	case errCodeInvalidParams:
		// Last.fm answers "invalid parameters" for artists it does not know.
		return errUnknownArtist
	default:
		return fmt.Errorf("last.fm error %d: %s", s.Code, s.Message)
	}
}
