package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// HTTPClient replaces the SDK's default client, typically with the
	// retrying, circuit-broken client from pkg/httpclient.
	HTTPClient openai.HTTPDoer
}

// OpenAI embeds text through the OpenAI embeddings API or any compatible
// endpoint.
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI embedder.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("openai embedder: dimensions must be > 0, got %d", cfg.Dimensions)
	}
	if cfg.Model == "" {
		return nil, errors.New("openai embedder: model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.Model),
		dims:   cfg.Dimensions,
	}, nil
}

// Embed requests one embedding and normalizes it.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          o.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     o.dims,
	})
	embedDuration.WithLabelValues(providerOpenAI).Observe(time.Since(start).Seconds())
	if err != nil {
		embedRequests.WithLabelValues(providerOpenAI, "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		embedRequests.WithLabelValues(providerOpenAI, "error").Inc()
		return nil, errors.New("openai embedder: empty response")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != o.dims {
		embedRequests.WithLabelValues(providerOpenAI, "error").Inc()
		return nil, fmt.Errorf("openai embedder: got %d dimensions, want %d", len(vec), o.dims)
	}
	embedRequests.WithLabelValues(providerOpenAI, "ok").Inc()
	return Normalize(vec), nil
}

// Dimensions returns the configured dimensionality.
func (o *OpenAI) Dimensions() int {
	return o.dims
}

func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai embedder: api error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openai embedder: request error %d: %w", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("openai embedder: %w", err)
}
