// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classification outcomes.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeSkipped   = "skipped"
)

var (
	// Classifications counts per-track decisions by mood and outcome.
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mood_classifications_total",
			Help: "Per-track mood classification decisions",
		},
		[]string{"mood", "outcome"},
	)

	// SimilarityScore observes cosine similarity between track and mood centroid.
	SimilarityScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mood_similarity_score",
			Help:    "Cosine similarity between track feature vectors and mood centroids",
			Buckets: prometheus.LinearBuckets(-0.2, 0.1, 13),
		},
		[]string{"mood", "source"},
	)

	// EmbeddingRequests counts calls to the embedding provider.
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Embedding provider calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	// EmbeddingDuration observes embedding call latency.
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedding_duration_seconds",
			Help:    "Duration of embedding provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// EmbeddingCacheLookups counts embedding cache hits and misses.
	EmbeddingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_lookups_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	// CentroidBuildDuration observes how long a full centroid build takes.
	CentroidBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "centroid_build_duration_seconds",
			Help:    "Duration of mood centroid builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// HTTPRequestDuration observes web request latency by route pattern and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordEmbedding records one provider call.
func RecordEmbedding(provider string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EmbeddingRequests.WithLabelValues(provider, status).Inc()
	EmbeddingDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
