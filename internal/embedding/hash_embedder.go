package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions matches all-MiniLM-L6-v2 so archives stay the same size.
const DefaultHashDimensions = 384

// HashEmbedder produces lexical embeddings by feature hashing.
//
// Each text is lower-cased and split on non-alphanumeric runes. Every unigram
// and adjacent bigram is hashed (FNV-1a) to a dimension with a sign bit taken
// from the same hash, term frequency is dampened with 1+log(tf), and the result
// is L2-normalized. There is no corpus state, so the same text always yields
// the same vector. Text without tokens yields the zero vector.
//
// It captures shared words ("dream pop" vs "bedroom pop"), not meaning.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a HashEmbedder. dims <= 0 selects DefaultHashDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dims}
}

// Generate implements Embedder.
func (h *HashEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int {
	return h.dimensions
}

// Model implements Embedder.
func (h *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-fnv1a-%d", h.dimensions)
}

// Close implements Embedder.
func (h *HashEmbedder) Close() error {
	return nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	vector := make([]float32, h.dimensions)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vector
	}

	freq := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		freq[tok]++
		if i > 0 {
			freq[tokens[i-1]+" "+tok]++
		}
	}

	for term, tf := range freq {
		idx, sign := h.slot(term)
		vector[idx] += float32(sign * (1 + math.Log(float64(tf))))
	}

	Normalize(vector)
	return vector
}

// slot maps a term to a dimension and a sign.
func (h *HashEmbedder) slot(term string) (int, float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(term))
	sum := hasher.Sum64()

	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(h.dimensions)), sign
}

// tokenize lower-cases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
