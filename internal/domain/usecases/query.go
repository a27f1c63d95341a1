package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// DefaultTopK is the number of passages stuffed into every prompt.
const DefaultTopK = 4

// QueryOptions tunes retrieval and prompting.
type QueryOptions struct {
	TopK int
	// MaxContextTokens caps the stuffed context. Zero disables the cap.
	MaxContextTokens int
	Prompt           *PromptTemplate
	Tokens           ports.TokenCounter
}

// QueryUseCase answers questions from retrieved passages.
type QueryUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	llm         ports.LLMService
	topK        int
	maxTokens   int
	prompt      *PromptTemplate
	tokens      ports.TokenCounter
	logger      *slog.Logger
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	llm ports.LLMService,
	opts QueryOptions,
	logger *slog.Logger,
) *QueryUseCase {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Prompt == nil {
		opts.Prompt = MustDefaultPrompt()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		llm:         llm,
		topK:        opts.TopK,
		maxTokens:   opts.MaxContextTokens,
		prompt:      opts.Prompt,
		tokens:      opts.Tokens,
		logger:      logger.With(slog.String("component", "query")),
	}
}

// Answer retrieves context for the question and returns the model's answer.
func (uc *QueryUseCase) Answer(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error) {
	prompt, results, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := uc.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	uc.logger.Debug("answered", slog.Int("sources", len(results)), slog.Int("answer_len", len(answer)))
	return &entities.ChatResponse{
		Answer:  answer,
		Sources: results,
	}, nil
}

// Stream is Answer with the completion delivered token by token.
func (uc *QueryUseCase) Stream(ctx context.Context, req *entities.ChatRequest) (<-chan ports.StreamToken, []entities.QueryResult, error) {
	prompt, results, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := uc.llm.GenerateStream(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generating response: %w", err)
	}
	return tokens, results, nil
}

// Search only retrieves relevant chunks without LLM generation.
func (uc *QueryUseCase) Search(ctx context.Context, query string) ([]entities.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, entities.ErrEmptyMessage
	}
	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := uc.vectorStore.Search(ctx, embedding, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	return results, nil
}

func (uc *QueryUseCase) prepare(ctx context.Context, req *entities.ChatRequest) (string, []entities.QueryResult, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return "", nil, entities.ErrEmptyMessage
	}

	results, err := uc.Search(ctx, req.Query)
	if err != nil {
		return "", nil, err
	}
	results = uc.fitBudget(results)

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Content
	}

	prompt, err := uc.prompt.Render(strings.Join(parts, "\n\n"), req.Query)
	if err != nil {
		return "", nil, err
	}
	return prompt, results, nil
}

// fitBudget drops the lowest-ranked passages until the context fits maxTokens.
// The best passage is always kept.
func (uc *QueryUseCase) fitBudget(results []entities.QueryResult) []entities.QueryResult {
	if uc.maxTokens <= 0 || uc.tokens == nil || len(results) == 0 {
		return results
	}

	used := 0
	for i, r := range results {
		n := uc.tokens.Count(r.Chunk.Content)
		if i > 0 && used+n > uc.maxTokens {
			uc.logger.Debug("context trimmed", slog.Int("kept", i), slog.Int("dropped", len(results)-i))
			return results[:i]
		}
		used += n
	}
	return results
}
