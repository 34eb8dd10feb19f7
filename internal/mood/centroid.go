// Package mood classifies tracks into moods by comparing embeddings of their
// genre metadata against per-mood centroid vectors.
package mood

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
	"github.com/justestif/spotify-mood-it/internal/metrics"
)

// centroidBatchSize bounds the number of terms sent to the embedder per call.
const centroidBatchSize = 64

// CentroidTable holds exactly one centroid per lexicon mood. It is read-only
// once built and shared between concurrent classifications.
type CentroidTable struct {
	Fingerprint string               `json:"fingerprint"`
	Model       string               `json:"model"`
	Dimensions  int                  `json:"dimensions"`
	Vectors     map[string][]float32 `json:"vectors"`
	BuiltAt     time.Time            `json:"built_at"`
}

// Fingerprint identifies the inputs a centroid table was built from.
// A table is only reusable while both the model and the lexicon are unchanged.
func Fingerprint(model string, lex *lexicon.Lexicon) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(lex.Digest()))
	return hex.EncodeToString(h.Sum(nil))
}

// BuildCentroids encodes every term of every mood individually and averages
// each mood's term vectors component-wise.
//
// All moods are checked for terms before anything is embedded, so an empty
// entry fails fast with ErrEmptyLexiconEntry.
func BuildCentroids(ctx context.Context, lex *lexicon.Lexicon, e embedding.Embedder) (*CentroidTable, error) {
	start := time.Now()
	moods := lex.Moods()

	termsByMood := make(map[string][]string, len(moods))
	var unique []string
	seen := make(map[string]struct{})
	for _, m := range moods {
		terms, err := lex.Terms(m)
		if err != nil {
			return nil, err
		}
		if len(terms) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyLexiconEntry, m)
		}
		termsByMood[m] = terms
		for _, term := range terms {
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				unique = append(unique, term)
			}
		}
	}

	termVectors := make(map[string][]float32, len(unique))
	for batch := range slices.Chunk(unique, centroidBatchSize) {
		vectors, err := e.Generate(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("encoding lexicon terms: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("encoding lexicon terms: got %d vectors for %d terms", len(vectors), len(batch))
		}
		for i, term := range batch {
			termVectors[term] = vectors[i]
		}
	}

	table := &CentroidTable{
		Fingerprint: Fingerprint(e.Model(), lex),
		Model:       e.Model(),
		Vectors:     make(map[string][]float32, len(moods)),
		BuiltAt:     time.Now().UTC(),
	}

	for _, m := range moods {
		// Duplicate terms count once per occurrence.
		vectors := make([][]float32, 0, len(termsByMood[m]))
		for _, term := range termsByMood[m] {
			vectors = append(vectors, termVectors[term])
		}

		centroid, err := embedding.Mean(vectors)
		if err != nil {
			return nil, fmt.Errorf("averaging terms for %s: %w", m, err)
		}
		if embedding.Magnitude(centroid) == 0 {
			return nil, fmt.Errorf("%w: centroid for %s", ErrDegenerateVector, m)
		}
		if table.Dimensions == 0 {
			table.Dimensions = len(centroid)
		} else if len(centroid) != table.Dimensions {
			return nil, fmt.Errorf("%w: centroid for %s has %d dimensions, want %d",
				ErrDimensionMismatch, m, len(centroid), table.Dimensions)
		}
		table.Vectors[m] = centroid
	}

	metrics.CentroidBuildDuration.Observe(time.Since(start).Seconds())
	return table, nil
}

// Centroid returns the centroid for mood, or ErrUnknownMood.
func (t *CentroidTable) Centroid(mood string) ([]float32, error) {
	v, ok := t.Vectors[lexicon.Normalize(mood)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMood, mood)
	}
	return v, nil
}

// Has reports whether mood has a centroid.
func (t *CentroidTable) Has(mood string) bool {
	_, ok := t.Vectors[lexicon.Normalize(mood)]
	return ok
}

// Moods returns the table's moods in sorted order.
func (t *CentroidTable) Moods() []string {
	return slices.Sorted(maps.Keys(t.Vectors))
}

// Matches reports whether the table was built from model and lex and still
// covers every mood with a vector of the recorded dimension.
func (t *CentroidTable) Matches(model string, lex *lexicon.Lexicon) bool {
	if t == nil || t.Fingerprint != Fingerprint(model, lex) || t.Dimensions <= 0 {
		return false
	}
	if len(t.Vectors) != lex.Len() {
		return false
	}
	for _, m := range lex.Moods() {
		v, ok := t.Vectors[m]
		if !ok || len(v) != t.Dimensions {
			return false
		}
	}
	return true
}

// Nearest returns the mood whose centroid is most similar to v.
// Ties resolve to the alphabetically first mood.
func (t *CentroidTable) Nearest(v []float32) (string, float64, error) {
	best, bestScore := "", -2.0
	for _, m := range t.Moods() {
		s, err := Score(t.Vectors[m], v)
		if err != nil {
			return "", 0, err
		}
		if s > bestScore {
			best, bestScore = m, s
		}
	}
	if best == "" {
		return "", 0, fmt.Errorf("%w: empty centroid table", ErrUnknownMood)
	}
	return best, bestScore, nil
}
