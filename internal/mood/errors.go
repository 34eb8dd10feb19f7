package mood

import (
	"errors"
	"fmt"

	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
)

// Sentinel errors.
var (
	// ErrEmptyLexiconEntry is returned when a mood maps to zero genre terms.
	ErrEmptyLexiconEntry = errors.New("mood has no genre terms")

	// ErrUnknownMood is returned when a mood has no centroid. It is the
	// lexicon's sentinel so callers can match either with errors.Is.
	ErrUnknownMood = lexicon.ErrUnknownMood

	// ErrDegenerateVector is returned when a vector has zero magnitude.
	ErrDegenerateVector = errors.New("degenerate vector")

	// ErrEncodingFailure is returned when a track's feature text could not be embedded.
	ErrEncodingFailure = errors.New("encoding failure")

	// ErrDimensionMismatch is returned when a track vector and a centroid differ in length.
	ErrDimensionMismatch = embedding.ErrDimensionMismatch

	// ErrInvalidThreshold is returned for thresholds outside [-1, 1].
	ErrInvalidThreshold = errors.New("threshold must be within [-1, 1]")
)

// FailureKind names why a track was skipped.
type FailureKind string

// Failure kinds.
const (
	KindEncodingFailure   FailureKind = "encoding_failure"
	KindDegenerateVector  FailureKind = "degenerate_vector"
	KindDimensionMismatch FailureKind = "dimension_mismatch"
)

// TrackError describes a track that was left out of a classification.
type TrackError struct {
	TrackID string
	Mood    string
	Kind    FailureKind
	Err     error
}

func (e *TrackError) Error() string {
	if e.Mood == "" {
		return fmt.Sprintf("track %s: %s: %v", e.TrackID, e.Kind, e.Err)
	}
	return fmt.Sprintf("track %s (mood %s): %s: %v", e.TrackID, e.Mood, e.Kind, e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

// kindOf maps an error to the failure kind reported in logs and metrics.
func kindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrDegenerateVector):
		return KindDegenerateVector
	case errors.Is(err, ErrDimensionMismatch):
		return KindDimensionMismatch
	default:
		return KindEncodingFailure
	}
}
