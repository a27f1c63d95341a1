// Package bootstrap wires adapters and use cases together from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/0xcro3dile/medrag-go/internal/adapters/embedding"
	"github.com/0xcro3dile/medrag-go/internal/adapters/llm"
	"github.com/0xcro3dile/medrag-go/internal/adapters/loader"
	"github.com/0xcro3dile/medrag-go/internal/adapters/parser"
	"github.com/0xcro3dile/medrag-go/internal/adapters/tokenizer"
	"github.com/0xcro3dile/medrag-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
	"github.com/0xcro3dile/medrag-go/internal/domain/usecases"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/config"
)

// Services holds the clients built for one process.
type Services struct {
	Embedder ports.EmbeddingService
	LLM      ports.LLMService
	Store    ports.VectorStore
	Parser   ports.DocumentParser
	Query    *usecases.QueryUseCase
	Ingest   *usecases.IngestUseCase
}

// Close releases the vector store connection.
func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// Build validates cfg and constructs every client. It does not contact the providers.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}
	chat, err := NewLLM(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	prompt, err := NewPrompt(cfg.LLM.PromptFile)
	if err != nil {
		return nil, err
	}
	store, err := NewVectorStore(cfg.VectorStore, logger)
	if err != nil {
		return nil, err
	}

	query := usecases.NewQueryUseCase(embedder, store, chat, usecases.QueryOptions{
		TopK:             cfg.LLM.TopK,
		MaxContextTokens: cfg.LLM.MaxContextTokens,
		Prompt:           prompt,
		Tokens:           tokenizer.NewCounter(tokenizer.DefaultEncoding, logger),
	}, logger)

	return &Services{
		Embedder: embedder,
		LLM:      chat,
		Store:    store,
		Parser:   NewParser(cfg.Parser, logger),
		Query:    query,
		Ingest:   NewIngest(cfg.Ingest, embedder, store, logger),
	}, nil
}

// NewIngest creates the ingestion use case with the configured splitting and pacing.
func NewIngest(cfg config.IngestConfig, embedder ports.EmbeddingService, store ports.VectorStore, logger *slog.Logger) *usecases.IngestUseCase {
	return usecases.NewIngestUseCase(embedder, store, usecases.IngestOptions{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.BatchSize,
		BatchDelay:   cfg.BatchDelay(),
	}, logger)
}

// NewEmbedder selects the embedding adapter.
func NewEmbedder(cfg config.EmbeddingConfig, logger *slog.Logger) (ports.EmbeddingService, error) {
	switch cfg.Provider {
	case config.ProviderCohere, config.ProviderOpenAI:
		adapter, err := embedding.NewOpenAIAdapter(embedding.OpenAIConfig{
			Provider: cfg.Provider,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
		}, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case config.ProviderOllama:
		return embedding.NewOllamaAdapter(cfg.BaseURL, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("embedding provider %q: %w", cfg.Provider, entities.ErrUnsupportedProvider)
	}
}

// NewLLM selects the chat adapter.
func NewLLM(cfg config.LLMConfig, logger *slog.Logger) (ports.LLMService, error) {
	switch cfg.Provider {
	case config.ProviderCohere, config.ProviderOpenAI:
		adapter, err := llm.NewOpenAIAdapter(llm.OpenAIConfig{
			Provider:    cfg.Provider,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case config.ProviderOllama:
		return llm.NewOllamaLLMAdapter(cfg.BaseURL, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Provider, entities.ErrUnsupportedProvider)
	}
}

// NewVectorStore selects the vector store adapter.
func NewVectorStore(cfg config.VectorStoreConfig, logger *slog.Logger) (ports.VectorStore, error) {
	switch cfg.Provider {
	case config.StorePinecone:
		store, err := vectordb.NewPineconeStore(vectordb.PineconeConfig{
			APIKey:    cfg.Pinecone.APIKey,
			Index:     cfg.Pinecone.Index,
			Namespace: cfg.Pinecone.Namespace,
			Cloud:     cfg.Pinecone.Cloud,
			Region:    cfg.Pinecone.Region,
			Metric:    cfg.Pinecone.Metric,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreQdrant:
		store, err := vectordb.NewQdrantStore(vectordb.QdrantConfig{
			Address:    cfg.Qdrant.Address,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			TLS:        cfg.Qdrant.TLS,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreSQLite:
		store, err := vectordb.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreMemory:
		return vectordb.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("vector store %q: %w", cfg.Provider, entities.ErrUnsupportedProvider)
	}
}

// NewParser selects the PDF text extractor.
func NewParser(cfg config.ParserConfig, logger *slog.Logger) ports.DocumentParser {
	if cfg.Provider == config.ParserService {
		return parser.NewServicePDFParser(cfg.ServiceURL, logger)
	}
	return parser.NewNativePDFParser(logger)
}

// NewPrompt loads the prompt override, or the built-in medical prompt when path is empty.
func NewPrompt(path string) (*usecases.PromptTemplate, error) {
	return usecases.LoadPromptFile(path)
}

// NewSource returns the bucket source when a bucket is configured, otherwise the data directory.
func NewSource(cfg *config.Config, docParser ports.DocumentParser, logger *slog.Logger) (ports.DocumentSource, error) {
	if cfg.Bucket.Bucket != "" {
		if cfg.Bucket.Endpoint == "" {
			return nil, errors.New("bucket source: endpoint is required")
		}
		source, err := loader.NewBucketSource(loader.BucketConfig{
			Endpoint:  cfg.Bucket.Endpoint,
			AccessKey: cfg.Bucket.AccessKey,
			SecretKey: cfg.Bucket.SecretKey,
			Bucket:    cfg.Bucket.Bucket,
			Prefix:    cfg.Bucket.Prefix,
			Region:    cfg.Bucket.Region,
			UseSSL:    cfg.Bucket.UseSSL,
		}, docParser, logger)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	return loader.NewDirectorySource(cfg.Ingest.DataDir, cfg.Ingest.Glob, loader.NewMultiLoader(docParser), logger), nil
}
