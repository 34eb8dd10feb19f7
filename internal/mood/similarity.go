package mood

import (
	"errors"
	"fmt"
	"math"

	"github.com/justestif/spotify-mood-it/internal/embedding"
)

// Score returns the cosine similarity between a mood centroid and a track vector.
// A zero-magnitude input yields ErrDegenerateVector, never a score.
func Score(centroid, track []float32) (float64, error) {
	s, err := embedding.CosineSimilarity(centroid, track)
	if errors.Is(err, embedding.ErrZeroMagnitude) {
		return 0, ErrDegenerateVector
	}
	if err != nil {
		return 0, err
	}
	return s, nil
}

// Matches reports whether score clears threshold.
func Matches(score, threshold float64) bool {
	return score >= threshold
}

// ValidateThreshold rejects thresholds a cosine score can never be compared against meaningfully.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}
