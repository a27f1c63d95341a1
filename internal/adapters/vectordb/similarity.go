// Package vectordb provides the vector store adapters.
// Each one implements ports.VectorStore.
package vectordb

import (
	"math"
	"path/filepath"
	"sort"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankTopK scores every chunk against the query and keeps the best topK.
// Ties keep insertion order.
func rankTopK(query []float32, chunks []entities.Chunk, topK int) []entities.QueryResult {
	results := make([]entities.QueryResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, entities.QueryResult{
			Chunk:     c,
			Score:     cosineSimilarity(query, c.Embedding),
			SourceDoc: sourceName(c.Source),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// sourceName is the file name shown when citing a passage.
func sourceName(source string) string {
	if source == "" {
		return ""
	}
	return filepath.Base(source)
}
