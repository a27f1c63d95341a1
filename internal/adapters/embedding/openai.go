package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// Hosted endpoints speaking the OpenAI embeddings protocol.
const (
	CohereBaseURL = "https://api.cohere.ai/compatibility/v1"
	CohereModel   = "embed-english-v3.0"
	OpenAIModel   = "text-embedding-3-small"

	// maxInputs is the per-request limit of the strictest provider (Cohere).
	maxInputs = 96
)

// OpenAIConfig selects a provider for OpenAIAdapter.
type OpenAIConfig struct {
	Provider string // "cohere" or "openai"
	APIKey   string
	BaseURL  string
	Model    string
}

// OpenAIAdapter implements ports.EmbeddingService over any OpenAI-compatible API.
type OpenAIAdapter struct {
	client   *openai.Client
	provider string
	model    string
	logger   *slog.Logger
}

// NewOpenAIAdapter creates an adapter for Cohere or OpenAI embeddings.
func NewOpenAIAdapter(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIAdapter, error) {
	if cfg.Provider == "" {
		cfg.Provider = "cohere"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s embeddings: %w", cfg.Provider, entities.ErrMissingAPIKey)
	}

	switch cfg.Provider {
	case "cohere":
		if cfg.BaseURL == "" {
			cfg.BaseURL = CohereBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = CohereModel
		}
	case "openai":
		if cfg.Model == "" {
			cfg.Model = OpenAIModel
		}
	default:
		return nil, fmt.Errorf("embedding provider %q: %w", cfg.Provider, entities.ErrUnsupportedProvider)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIAdapter{
		client:   openai.NewClientWithConfig(clientCfg),
		provider: cfg.Provider,
		model:    cfg.Model,
		logger:   logger.With(slog.String("component", "embedding"), slog.String("provider", cfg.Provider)),
	}, nil
}

// ModelName returns the embedding model identifier.
func (a *OpenAIAdapter) ModelName() string { return a.model }

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in as few requests as the provider allows.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxInputs {
		end := start + maxInputs
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (a *OpenAIAdapter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(a.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		a.logger.Error("embedding request failed", slog.Int("inputs", len(texts)), slog.Any("error", err))
		return nil, fmt.Errorf("%s embeddings: %w", a.provider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s embeddings: got %d vectors for %d inputs", a.provider, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vecs := make([][]float32, len(data))
	for i, d := range data {
		vecs[i] = d.Embedding
	}
	a.logger.Debug("embedded batch", slog.Int("inputs", len(texts)), slog.Int("tokens", resp.Usage.TotalTokens))
	return vecs, nil
}
