package mood

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
)

// stubEmbedder returns a fixed vector per distinct input text.
// Unknown texts get fallback; texts listed in failing return an error.
type stubEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failing  map[string]bool
	calls    [][]string
}

func (s *stubEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), texts...))
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if s.failing[text] {
			return nil, errors.New("provider rejected input")
		}
		v, ok := s.vectors[text]
		if !ok {
			v = s.fallback
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Model() string   { return "stub" }
func (s *stubEmbedder) Close() error    { return nil }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func mustLexicon(t *testing.T, entries map[string][]string) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.New(entries)
	require.NoError(t, err)
	return lex
}

// happySetup builds the table for {"happy": ["pop", "disco"]} where both terms
// embed to the same unit vector, so the centroid is that vector.
func happySetup(t *testing.T) (*stubEmbedder, *CentroidTable) {
	t.Helper()
	stub := &stubEmbedder{
		vectors: map[string][]float32{
			"pop":          {1, 0, 0},
			"disco":        {1, 0, 0},
			"dance pop":    {1, 0, 0},
			"death metal":  {0, 1, 0},
			"silence":      {0, 0, 0},
			"half by band": {0.6, 0.8, 0},
		},
		fallback: []float32{0, 0, 1},
	}
	table, err := BuildCentroids(context.Background(), mustLexicon(t, map[string][]string{
		"happy": {"pop", "disco"},
	}), stub)
	require.NoError(t, err)
	return stub, table
}

func TestExtractFeatureText(t *testing.T) {
	tests := []struct {
		name       string
		track      Track
		wantText   string
		wantSource FeatureSource
	}{
		{
			name:       "genres joined",
			track:      Track{Name: "x", Artist: "y", Genres: []string{"indie pop", "bedroom pop"}},
			wantText:   "indie pop bedroom pop",
			wantSource: SourceGenres,
		},
		{
			name:       "genres lower-cased",
			track:      Track{Genres: []string{"K-Pop", "Dance POP"}},
			wantText:   "k-pop dance pop",
			wantSource: SourceGenres,
		},
		{
			name:       "fallback",
			track:      Track{Name: "Nightcall", Artist: "Kavinsky"},
			wantText:   "nightcall by kavinsky",
			wantSource: SourceFallbackText,
		},
		{
			name:       "empty genres slice falls back",
			track:      Track{Name: "Song", Artist: "Band", Genres: []string{}},
			wantText:   "song by band",
			wantSource: SourceFallbackText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, source := ExtractFeatureText(tt.track)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestScore(t *testing.T) {
	v := []float32{0.2, 0.4, 0.8}
	self, err := Score(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-6)

	ortho, err := Score([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, ortho, 1e-9)

	a, b := []float32{1, 2, 3}, []float32{-3, 0.5, 2}
	ab, _ := Score(a, b)
	ba, _ := Score(b, a)
	assert.Equal(t, ab, ba)

	_, err = Score([]float32{0, 0}, []float32{1, 1})
	assert.ErrorIs(t, err, ErrDegenerateVector)

	_, err = Score([]float32{1, 1}, []float32{1, 1, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMatches_Monotonic(t *testing.T) {
	scores := []float64{-0.3, 0.1, 0.42, 0.55, 0.6, 0.61, 0.99}
	thresholds := []float64{-1, 0, 0.4, 0.55, 0.6, 0.9, 1}

	prev := len(scores) + 1
	for _, th := range thresholds {
		n := 0
		for _, s := range scores {
			if Matches(s, th) {
				n++
			}
		}
		assert.LessOrEqual(t, n, prev, "threshold %v", th)
		prev = n
	}

	assert.True(t, Matches(0.6, 0.6))
	assert.False(t, Matches(0.5999, 0.6))
}

func TestValidateThreshold(t *testing.T) {
	for _, ok := range []float64{-1, 0, 0.55, 1} {
		assert.NoError(t, ValidateThreshold(ok))
	}
	for _, bad := range []float64{-1.01, 1.5} {
		assert.ErrorIs(t, ValidateThreshold(bad), ErrInvalidThreshold)
	}
}

func TestBuildCentroids_OnePerMood(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	e := embedding.NewHashEmbedder(64)

	table, err := BuildCentroids(context.Background(), lex, e)
	require.NoError(t, err)

	assert.Len(t, table.Vectors, lex.Len())
	assert.Equal(t, lex.Moods(), table.Moods())
	assert.Equal(t, 64, table.Dimensions)
	for m, v := range table.Vectors {
		assert.Len(t, v, e.Dimensions(), m)
	}
	assert.Equal(t, Fingerprint(e.Model(), lex), table.Fingerprint)
	assert.True(t, table.Matches(e.Model(), lex))
}

func TestBuildCentroids_Idempotent(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	e := embedding.NewHashEmbedder(128)

	first, err := BuildCentroids(context.Background(), lex, e)
	require.NoError(t, err)
	second, err := BuildCentroids(context.Background(), lex, e)
	require.NoError(t, err)

	for m, v := range first.Vectors {
		assert.InDeltaSlice(t, v, second.Vectors[m], 1e-6, m)
	}
}

func TestBuildCentroids_PerTermMean(t *testing.T) {
	stub := &stubEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
	}}
	lex := mustLexicon(t, map[string][]string{"m": {"a", "b", "b"}})

	table, err := BuildCentroids(context.Background(), lex, stub)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float32{1.0 / 3, 2.0 / 3, 0}, table.Vectors["m"], 1e-6)
	// Terms are encoded individually and each distinct term once.
	require.Len(t, stub.calls, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, stub.calls[0])
}

func TestBuildCentroids_EmptyEntry(t *testing.T) {
	stub := &stubEmbedder{fallback: []float32{1, 0, 0}}
	lex := mustLexicon(t, map[string][]string{"happy": {"pop"}, "void": {}})

	_, err := BuildCentroids(context.Background(), lex, stub)
	assert.ErrorIs(t, err, ErrEmptyLexiconEntry)
	assert.Zero(t, stub.callCount())
}

func TestBuildCentroids_DegenerateCentroid(t *testing.T) {
	stub := &stubEmbedder{vectors: map[string][]float32{"up": {1, 0, 0}, "down": {-1, 0, 0}}}
	lex := mustLexicon(t, map[string][]string{"flat": {"up", "down"}})

	_, err := BuildCentroids(context.Background(), lex, stub)
	assert.ErrorIs(t, err, ErrDegenerateVector)
}

func TestBuildCentroids_ProviderError(t *testing.T) {
	stub := &stubEmbedder{failing: map[string]bool{"pop": true}}
	lex := mustLexicon(t, map[string][]string{"happy": {"pop"}})

	_, err := BuildCentroids(context.Background(), lex, stub)
	assert.Error(t, err)
}

func TestCentroidTable_Lookup(t *testing.T) {
	_, table := happySetup(t)

	v, err := table.Centroid(" Happy ")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, v)
	assert.True(t, table.Has("HAPPY"))

	_, err = table.Centroid("sad")
	assert.ErrorIs(t, err, ErrUnknownMood)
	assert.ErrorIs(t, err, lexicon.ErrUnknownMood)
	assert.False(t, table.Has("sad"))
}

func TestCentroidTable_Matches(t *testing.T) {
	lex := mustLexicon(t, map[string][]string{"happy": {"pop", "disco"}})
	_, table := happySetup(t)

	assert.True(t, table.Matches("stub", lex))
	assert.False(t, table.Matches("other-model", lex))
	assert.False(t, table.Matches("stub", mustLexicon(t, map[string][]string{"happy": {"pop"}})))

	var nilTable *CentroidTable
	assert.False(t, nilTable.Matches("stub", lex))
}

func TestCentroidTable_Nearest(t *testing.T) {
	table := &CentroidTable{
		Dimensions: 2,
		Vectors: map[string][]float32{
			"happy": {1, 0},
			"sad":   {0, 1},
		},
	}

	m, s, err := table.Nearest([]float32{0.9, 0.1})
	require.NoError(t, err)
	assert.Equal(t, "happy", m)
	assert.Greater(t, s, 0.9)

	m, _, err = table.Nearest([]float32{0.1, 0.9})
	require.NoError(t, err)
	assert.Equal(t, "sad", m)

	_, _, err = table.Nearest([]float32{0, 0})
	assert.ErrorIs(t, err, ErrDegenerateVector)
}

func TestClassify_EndToEnd(t *testing.T) {
	stub, table := happySetup(t)
	c := NewClassifier(table, stub)

	tracks := []Track{
		{ID: "1", Name: "Match", Artist: "A", Genres: []string{"dance pop"}},
		{ID: "2", Name: "Miss", Artist: "B", Genres: []string{"death metal"}},
		{ID: "3", Name: "Half", Artist: "Band"},
	}

	results, err := c.Classify(context.Background(), tracks, "happy", 0.5)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].Track.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, SourceGenres, results[0].Source)
	assert.True(t, results[0].Matched)

	assert.Equal(t, "3", results[1].Track.ID)
	assert.InDelta(t, 0.6, results[1].Similarity, 1e-6)
	assert.Equal(t, SourceFallbackText, results[1].Source)
}

func TestClassify_PreservesInputOrder(t *testing.T) {
	stub, table := happySetup(t)
	c := NewClassifier(table, stub, WithBatchSize(1), WithConcurrency(4))

	stub.vectors = map[string][]float32{"pop": {1, 0, 0}}
	var tracks []Track
	for i := range 20 {
		genre := fmt.Sprintf("pop %d", i)
		if i%3 == 0 {
			genre = fmt.Sprintf("metal %d", i)
			stub.vectors[genre] = []float32{0, 1, 0}
		} else {
			stub.vectors[genre] = []float32{1, 0.1, 0}
		}
		tracks = append(tracks, Track{ID: fmt.Sprintf("t%02d", i), Genres: []string{genre}})
	}

	results, err := c.Classify(context.Background(), tracks, "happy", 0.5)
	require.NoError(t, err)

	var want []string
	for i, tr := range tracks {
		if i%3 != 0 {
			want = append(want, tr.ID)
		}
	}
	var got []string
	for _, r := range results {
		got = append(got, r.Track.ID)
	}
	assert.Equal(t, want, got)
}

func TestClassify_DeduplicatesFeatureTexts(t *testing.T) {
	stub, table := happySetup(t)
	before := stub.callCount()
	c := NewClassifier(table, stub)

	tracks := []Track{
		{ID: "1", Genres: []string{"dance pop"}},
		{ID: "2", Genres: []string{"dance pop"}},
		{ID: "3", Genres: []string{"Dance Pop"}},
	}

	results, err := c.Classify(context.Background(), tracks, "happy", 0.5)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	require.Equal(t, before+1, stub.callCount())
	assert.Equal(t, []string{"dance pop"}, stub.calls[before])
}

func TestClassify_EmptyTracks(t *testing.T) {
	stub, table := happySetup(t)
	before := stub.callCount()
	c := NewClassifier(table, stub)

	results, err := c.Classify(context.Background(), nil, "happy", 0.5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, before, stub.callCount())
}

func TestClassify_UnknownMoodMakesNoEmbeddingCalls(t *testing.T) {
	stub, table := happySetup(t)
	before := stub.callCount()
	c := NewClassifier(table, stub)

	_, err := c.Classify(context.Background(), []Track{{ID: "1", Genres: []string{"pop"}}}, "melancholy", 0.5)
	assert.ErrorIs(t, err, ErrUnknownMood)
	assert.Equal(t, before, stub.callCount())
}

func TestClassify_InvalidThreshold(t *testing.T) {
	stub, table := happySetup(t)
	c := NewClassifier(table, stub)

	_, err := c.Classify(context.Background(), []Track{{ID: "1"}}, "happy", 2)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestEvaluate_SkipsBadTracks(t *testing.T) {
	stub, table := happySetup(t)
	stub.failing = map[string]bool{"broken": true}
	c := NewClassifier(table, stub)

	tracks := []Track{
		{ID: "ok", Genres: []string{"dance pop"}},
		{ID: "blank", Genres: []string{" "}},
		{ID: "zero", Genres: []string{"silence"}},
		{ID: "fail", Genres: []string{"broken"}},
		{ID: "miss", Genres: []string{"death metal"}},
	}

	results, skipped, err := c.Evaluate(context.Background(), tracks, "happy", 0.5)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "ok", results[0].Track.ID)
	assert.True(t, results[0].Matched)
	assert.Equal(t, "miss", results[1].Track.ID)
	assert.False(t, results[1].Matched)

	require.Len(t, skipped, 3)
	kinds := map[string]FailureKind{}
	for _, s := range skipped {
		assert.Equal(t, "happy", s.Mood)
		kinds[s.TrackID] = s.Kind
	}
	assert.Equal(t, KindEncodingFailure, kinds["blank"])
	assert.Equal(t, KindDegenerateVector, kinds["zero"])
	assert.Equal(t, KindEncodingFailure, kinds["fail"])

	var te *TrackError
	require.True(t, errors.As(skipped[0], &te))
	assert.ErrorIs(t, te, ErrEncodingFailure)

	// The blank text never reached the provider.
	for _, call := range stub.calls {
		assert.NotContains(t, call, " ")
	}
}

func TestClassify_DimensionMismatchSkipped(t *testing.T) {
	stub, table := happySetup(t)
	stub.vectors["short"] = []float32{1, 0}
	c := NewClassifier(table, stub)

	_, skipped, err := c.Evaluate(context.Background(), []Track{{ID: "s", Genres: []string{"short"}}}, "happy", 0.5)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, KindDimensionMismatch, skipped[0].Kind)
}

func TestClassify_CanceledContext(t *testing.T) {
	stub, table := happySetup(t)
	c := NewClassifier(table, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, []Track{{ID: "1", Genres: []string{"dance pop"}}}, "happy", 0.5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify_ThresholdMonotonicEndToEnd(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	e := embedding.NewHashEmbedder(128)
	table, err := BuildCentroids(context.Background(), lex, e)
	require.NoError(t, err)
	c := NewClassifier(table, e)

	tracks := []Track{
		{ID: "1", Genres: []string{"dance pop", "disco"}},
		{ID: "2", Genres: []string{"death metal"}},
		{ID: "3", Genres: []string{"funk", "pop"}},
		{ID: "4", Name: "Happy", Artist: "Pharrell Williams"},
	}

	prev := len(tracks) + 1
	for _, th := range []float64{-1, 0, 0.1, 0.3, 0.5, 0.8, 1} {
		results, err := c.Classify(context.Background(), tracks, "happy", th)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), prev)
		prev = len(results)
	}
}
