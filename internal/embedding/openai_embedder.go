package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/justestif/spotify-mood-it/internal/metrics"
)

const providerOpenAI = "openai"

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
// This covers OpenAI itself, Hugging Face TEI and LocalAI.
type OpenAIConfig struct {
	// BaseURL of the API, e.g. "https://api.openai.com/v1" or "http://tei:8082".
	BaseURL string

	// Model such as "text-embedding-3-small" or "all-MiniLM-L6-v2".
	Model string

	// APIKey is optional for local services.
	APIKey string

	// Dimensions requested from models that support shortening. 0 keeps the model default.
	Dimensions int

	// Timeout per HTTP request (default 30s).
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker (default 5).
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open (default 30s).
	OpenTimeout time.Duration

	Logger zerolog.Logger
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint through a
// circuit breaker.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	requested  int
	dimensions atomic.Int64
	breaker    *gobreaker.CircuitBreaker[[][]float32]
	logger     zerolog.Logger
}

// NewOpenAIEmbedder creates an OpenAIEmbedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding base url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	e := &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		requested: cfg.Dimensions,
		logger:    cfg.Logger,
	}
	e.dimensions.Store(int64(cfg.Dimensions))

	threshold := cfg.FailureThreshold
	e.breaker = gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:    "embedding-" + cfg.Model,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("embedding circuit breaker state changed")
		},
	})

	return e, nil
}

// Generate implements Embedder.
func (e *OpenAIEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors, err := e.breaker.Execute(func() ([][]float32, error) {
		return e.call(ctx, texts)
	})
	metrics.RecordEmbedding(providerOpenAI, start, err)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.requested,
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding API call failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmptyResponse, len(resp.Data), len(texts))
	}

	// Data carries an index; do not assume response order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: missing vector for input %d", ErrEmptyResponse, i)
		}
	}

	e.dimensions.CompareAndSwap(0, int64(len(vectors[0])))
	return vectors, nil
}

// Dimensions implements Embedder. It is 0 until the first successful call
// unless dimensions were configured.
func (e *OpenAIEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
