// Package ports defines the interfaces the use cases depend on.
// Adapters implement them; usecases never import an adapter directly.
package ports

import (
	"context"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call where the provider allows it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the embedding model identifier.
	ModelName() string
}

// LLMService generates text from a hosted or local language model.
type LLMService interface {
	// Generate returns the full completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream returns completion tokens as they arrive.
	// The channel is closed after a token with Done set or an Error.
	GenerateStream(ctx context.Context, prompt string) (<-chan StreamToken, error)

	// ModelName returns the chat model identifier.
	ModelName() string
}

// VectorStore persists chunk vectors and answers nearest-neighbour queries.
// For hosted indexes the record lifecycle belongs to the remote service.
type VectorStore interface {
	// EnsureIndex makes sure an index able to hold vectors of the given dimension exists.
	EnsureIndex(ctx context.Context, dimension int) error

	// Upsert writes chunks with their embeddings, replacing records with the same ID.
	Upsert(ctx context.Context, chunks []entities.Chunk) error

	// Search returns the topK chunks most similar to embedding, best first.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)

	// Delete removes records by chunk ID.
	Delete(ctx context.Context, ids []string) error

	// Close releases connections.
	Close() error
}

// DocumentParser extracts text from binary document formats.
type DocumentParser interface {
	// Parse returns the text of each page, in order.
	Parse(ctx context.Context, data []byte, filename string) ([]string, error)

	// SupportedFormats returns formats this parser handles (e.g. "pdf").
	SupportedFormats() []string
}

// DocumentLoader turns one file into document pages.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]entities.Document, error)
	SupportedExtensions() []string
}

// DocumentSource enumerates every document page to ingest.
type DocumentSource interface {
	Load(ctx context.Context) ([]entities.Document, error)
}

// TokenCounter estimates how many model tokens a text occupies.
type TokenCounter interface {
	Count(text string) int
}

// StreamToken is a single piece of a streaming LLM response.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// String returns a lowercase name for logs.
func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
