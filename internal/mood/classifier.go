package mood

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
	"github.com/justestif/spotify-mood-it/internal/metrics"
)

// Default classifier settings.
const (
	DefaultThreshold   = 0.6
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
)

// Result is the classification outcome for one track.
type Result struct {
	Track      Track
	Similarity float64
	Source     FeatureSource
	Matched    bool
}

// TrackVector is a track's embedded feature text.
// Err is set when the track could not be embedded; Vector is nil then.
type TrackVector struct {
	Track  Track
	Text   string
	Source FeatureSource
	Vector []float32
	Err    *TrackError
}

// Classifier scores tracks against a centroid table.
// It is safe for concurrent use.
type Classifier struct {
	centroids   *CentroidTable
	embedder    embedding.Embedder
	batchSize   int
	concurrency int
	logger      zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBatchSize sets how many distinct feature texts go into one embedder call.
func WithBatchSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedder calls may run at once.
func WithConcurrency(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger used for per-track diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// NewClassifier creates a Classifier over table using e for track features.
// e must be the embedder the table was built with.
func NewClassifier(table *CentroidTable, e embedding.Embedder, opts ...Option) *Classifier {
	c := &Classifier{
		centroids:   table,
		embedder:    e,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Centroids returns the table the classifier scores against.
func (c *Classifier) Centroids() *CentroidTable {
	return c.centroids
}

// Classify returns the tracks whose similarity to mood clears threshold, in
// input order. Tracks that cannot be scored are logged and left out.
func (c *Classifier) Classify(ctx context.Context, tracks []Track, mood string, threshold float64) ([]Result, error) {
	results, _, err := c.Evaluate(ctx, tracks, mood, threshold)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(results, func(r Result) bool { return !r.Matched }), nil
}

// Evaluate scores every track against mood. Results keep input order and omit
// skipped tracks, which are returned separately.
//
// The mood and threshold are checked before anything is embedded. Per-track
// failures never fail the call; only cancellation or invalid input does.
func (c *Classifier) Evaluate(ctx context.Context, tracks []Track, mood string, threshold float64) ([]Result, []*TrackError, error) {
	centroid, err := c.centroids.Centroid(mood)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, nil, err
	}
	if len(tracks) == 0 {
		return []Result{}, nil, nil
	}

	moodName := lexicon.Normalize(mood)

	encoded, err := c.EncodeTracks(ctx, tracks)
	if err != nil {
		return nil, nil, err
	}

	results := make([]Result, 0, len(encoded))
	var skipped []*TrackError

	for _, tv := range encoded {
		if tv.Err != nil {
			tv.Err.Mood = moodName
			skipped = append(skipped, c.skip(tv.Err))
			continue
		}

		score, err := Score(centroid, tv.Vector)
		if err != nil {
			skipped = append(skipped, c.skip(&TrackError{
				TrackID: tv.Track.ID,
				Mood:    moodName,
				Kind:    kindOf(err),
				Err:     err,
			}))
			continue
		}

		matched := Matches(score, threshold)
		outcome := metrics.OutcomeUnmatched
		if matched {
			outcome = metrics.OutcomeMatched
		}
		metrics.Classifications.WithLabelValues(moodName, outcome).Inc()
		metrics.SimilarityScore.WithLabelValues(moodName, string(tv.Source)).Observe(score)

		c.logger.Debug().
			Str("track_id", tv.Track.ID).
			Str("track", tv.Track.Name).
			Str("source", string(tv.Source)).
			Float64("similarity", score).
			Bool("matched", matched).
			Msg("scored track")

		results = append(results, Result{
			Track:      tv.Track,
			Similarity: score,
			Source:     tv.Source,
			Matched:    matched,
		})
	}

	return results, skipped, nil
}

func (c *Classifier) skip(te *TrackError) *TrackError {
	metrics.Classifications.WithLabelValues(te.Mood, metrics.OutcomeSkipped).Inc()
	c.logger.Warn().
		Str("track_id", te.TrackID).
		Str("mood", te.Mood).
		Str("kind", string(te.Kind)).
		Err(te.Err).
		Msg("skipping track")
	return te
}

// EncodeTracks embeds the feature text of every track, in input order.
//
// Identical texts are embedded once. Distinct texts are sent in batches
// through a bounded pool; a failed batch is retried text by text so one bad
// input only costs its own tracks. Whitespace-only texts are never sent.
func (c *Classifier) EncodeTracks(ctx context.Context, tracks []Track) ([]TrackVector, error) {
	out := make([]TrackVector, len(tracks))
	textIndex := make(map[string]int)
	var texts []string

	for i, t := range tracks {
		text, source := ExtractFeatureText(t)
		out[i] = TrackVector{Track: t, Text: text, Source: source}

		if strings.TrimSpace(text) == "" {
			out[i].Err = &TrackError{
				TrackID: t.ID,
				Kind:    KindEncodingFailure,
				Err:     fmt.Errorf("%w: empty feature text", ErrEncodingFailure),
			}
			continue
		}
		if _, ok := textIndex[text]; !ok {
			textIndex[text] = len(texts)
			texts = append(texts, text)
		}
	}

	vectors, errs, err := c.encodeTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Err != nil {
			continue
		}
		j := textIndex[out[i].Text]
		if errs[j] != nil {
			out[i].Err = &TrackError{
				TrackID: out[i].Track.ID,
				Kind:    KindEncodingFailure,
				Err:     fmt.Errorf("%w: %v", ErrEncodingFailure, errs[j]),
			}
			continue
		}
		out[i].Vector = vectors[j]
	}

	return out, nil
}

// encodeTexts returns one vector or one error per text. The returned error is
// only set when ctx ends.
func (c *Classifier) encodeTexts(ctx context.Context, texts []string) ([][]float32, []error, error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		g.Go(func() error {
			batch := texts[start:end]
			got, err := c.embedder.Generate(gctx, batch)
			if err == nil && len(got) == len(batch) {
				copy(vectors[start:end], got)
				return nil
			}
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}

			c.logger.Debug().Err(err).Int("batch", len(batch)).Msg("batch encode failed, retrying per text")
			for i, text := range batch {
				v, err := embedding.EncodeOne(gctx, c.embedder, text)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					errs[start+i] = err
					continue
				}
				vectors[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectors, errs, nil
}
