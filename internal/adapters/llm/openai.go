package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// Hosted chat endpoints speaking the OpenAI chat completions protocol.
const (
	CohereBaseURL = "https://api.cohere.ai/compatibility/v1"
	CohereModel   = "command-a-03-2025"
	OpenAIModel   = "gpt-4o-mini"
)

// OpenAIConfig selects a provider for OpenAIAdapter.
type OpenAIConfig struct {
	Provider    string // "cohere" or "openai"
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIAdapter implements ports.LLMService over any OpenAI-compatible chat API.
type OpenAIAdapter struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// NewOpenAIAdapter creates a chat adapter for Cohere or OpenAI.
func NewOpenAIAdapter(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIAdapter, error) {
	if cfg.Provider == "" {
		cfg.Provider = "cohere"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s chat: %w", cfg.Provider, entities.ErrMissingAPIKey)
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
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Provider, entities.ErrUnsupportedProvider)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIAdapter{
		client:      openai.NewClientWithConfig(clientCfg),
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.With(slog.String("component", "llm"), slog.String("provider", cfg.Provider)),
	}, nil
}

// ModelName returns the chat model identifier.
func (a *OpenAIAdapter) ModelName() string { return a.model }

func (a *OpenAIAdapter) request(prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}
}

// Generate sends the rendered prompt as a single user message.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.request(prompt))
	if err != nil {
		a.logger.Error("could not create completion", slog.String("model", a.model), slog.Any("error", err))
		return "", fmt.Errorf("%s chat: %w", a.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat: empty response", a.provider)
	}

	a.logger.Debug("tokens used", slog.Int("prompt_tokens", resp.Usage.PromptTokens), slog.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream relays completion deltas as they arrive.
func (a *OpenAIAdapter) GenerateStream(ctx context.Context, prompt string) (<-chan ports.StreamToken, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, a.request(prompt))
	if err != nil {
		return nil, fmt.Errorf("%s chat stream: %w", a.provider, err)
	}

	ch := make(chan ports.StreamToken, 100)

	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				ch <- ports.StreamToken{Done: true}
				return
			}
			if err != nil {
				ch <- ports.StreamToken{Done: true, Error: fmt.Errorf("%s chat stream: %w", a.provider, err)}
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case ch <- ports.StreamToken{Content: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
