package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const providerLangChain = "langchain"

// LangChainConfig configures an embedder for OpenAI-compatible local
// servers (Ollama, LM Studio, vLLM).
type LangChainConfig struct {
	BaseURL    string
	Token      string
	Model      string
	Dimensions int
}

// LangChain embeds text through langchaingo.
type LangChain struct {
	embedder embeddings.Embedder
	dims     int
}

var _ Embedder = (*LangChain)(nil)

// NewLangChain creates the embedder. Local servers usually ignore the
// token, so a placeholder is sent when none is configured.
func NewLangChain(cfg LangChainConfig) (*LangChain, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("langchain embedder: dimensions must be > 0, got %d", cfg.Dimensions)
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}
	return &LangChain{embedder: embedder, dims: cfg.Dimensions}, nil
}

// Embed embeds text as a query and normalizes the result.
func (l *LangChain) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := l.embedder.EmbedQuery(ctx, text)
	embedDuration.WithLabelValues(providerLangChain).Observe(time.Since(start).Seconds())
	if err != nil {
		embedRequests.WithLabelValues(providerLangChain, "error").Inc()
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}
	if len(vec) != l.dims {
		embedRequests.WithLabelValues(providerLangChain, "error").Inc()
		return nil, fmt.Errorf("langchain embedder: got %d dimensions, want %d", len(vec), l.dims)
	}
	embedRequests.WithLabelValues(providerLangChain, "ok").Inc()
	return Normalize(vec), nil
}

// Dimensions returns the configured dimensionality.
func (l *LangChain) Dimensions() int {
	return l.dims
}
