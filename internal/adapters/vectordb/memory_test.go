package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

func TestInMemoryStore_SearchOrder(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.EnsureIndex(ctx, 2))
	require.NoError(t, store.Upsert(ctx, []entities.Chunk{
		{ID: "far", Source: "a.pdf", Embedding: []float32{0, 1}},
		{ID: "near", Source: "dir/b.pdf", Embedding: []float32{1, 0.1}},
		{ID: "mid", Embedding: []float32{1, 1}},
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Chunk.ID)
	assert.Equal(t, "b.pdf", results[0].SourceDoc)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestInMemoryStore_DimensionChecks(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.EnsureIndex(ctx, 3))
	assert.ErrorIs(t, store.EnsureIndex(ctx, 4), entities.ErrDimensionMismatch)
	assert.ErrorIs(t, store.Upsert(ctx, []entities.Chunk{{ID: "x", Embedding: []float32{1}}}), entities.ErrDimensionMismatch)
}

func TestInMemoryStore_UpsertAndDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []entities.Chunk{
		{ID: "a", Embedding: []float32{1}},
		{ID: "b", Embedding: []float32{1}},
	}))
	require.NoError(t, store.Upsert(ctx, []entities.Chunk{{ID: "a", Content: "replaced", Embedding: []float32{1}}}))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Delete(ctx, []string{"a", "unknown"}))
	assert.Equal(t, 1, store.Len())

	results, err := store.Search(ctx, []float32{1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Chunk.ID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
