package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// InMemoryStore keeps vectors in process memory. Used for tests, demos and dry runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	dimension int
	order     []string                  // insertion order of chunk IDs
	chunks    map[string]entities.Chunk // chunkID -> chunk
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks: make(map[string]entities.Chunk),
	}
}

// EnsureIndex fixes the dimension on first call and rejects a different one later.
func (s *InMemoryStore) EnsureIndex(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("memory store has %d, got %d: %w", s.dimension, dimension, entities.ErrDimensionMismatch)
	}
	s.dimension = dimension
	return nil
}

// Upsert saves chunks, replacing any with the same ID.
func (s *InMemoryStore) Upsert(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if s.dimension != 0 && len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("chunk %s has %d values: %w", chunk.ID, len(chunk.Embedding), entities.ErrDimensionMismatch)
		}
		if _, ok := s.chunks[chunk.ID]; !ok {
			s.order = append(s.order, chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]entities.Chunk, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.chunks[id])
	}
	return rankTopK(embedding, all, topK), nil
}

// Delete removes chunks by ID. Unknown IDs are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.chunks[id]; ok {
			drop[id] = struct{}{}
			delete(s.chunks, id)
		}
	}
	if len(drop) == 0 {
		return nil
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return nil
}

// Len returns the number of stored chunks.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }
