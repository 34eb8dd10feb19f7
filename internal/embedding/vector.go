package embedding

import (
	"errors"
	"fmt"
	"math"
)

// Vector math errors.
var (
	// ErrZeroMagnitude is returned when a vector has no direction.
	ErrZeroMagnitude = errors.New("zero-magnitude vector")

	// ErrDimensionMismatch is returned when vectors have different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// CosineSimilarity computes (A · B) / (||A|| × ||B||).
//
// The result lies in [-1, 1]. Empty or zero-magnitude input returns
// ErrZeroMagnitude instead of a silent 0 or NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}

	if magA == 0 || magB == 0 || math.IsNaN(magA) || math.IsNaN(magB) {
		return 0, ErrZeroMagnitude
	}

	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))

	// Clamp floating-point drift.
	return math.Max(-1, math.Min(1, sim)), nil
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float32) {
	mag := Magnitude(v)
	if mag == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
}

// Mean returns the component-wise arithmetic mean of vectors.
// Accumulation happens in float64.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("mean of zero vectors")
	}

	dims := len(vectors[0])
	sum := make([]float64, dims)
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	mean := make([]float32, dims)
	n := float64(len(vectors))
	for j, s := range sum {
		mean[j] = float32(s / n)
	}
	return mean, nil
}
