// Package usecases contains the application rules: ingestion and question answering.
// Usecases depend only on entities and ports.
package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// Ingestion defaults.
const (
	DefaultBatchSize  = 64
	DefaultBatchDelay = 500 * time.Millisecond
)

// IngestOptions tunes the ingestion pipeline.
type IngestOptions struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	// BatchDelay is the minimum gap between batches. Zero disables pacing.
	BatchDelay time.Duration
}

// IngestUseCase splits documents, embeds the chunks and upserts them in paced batches.
type IngestUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	splitter    *Splitter
	batchSize   int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	opts IngestOptions,
	logger *slog.Logger,
) *IngestUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if opts.BatchDelay > 0 {
		limit = rate.Every(opts.BatchDelay)
	}

	return &IngestUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		splitter:    NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		batchSize:   opts.BatchSize,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.With(slog.String("component", "ingest")),
	}
}

// Splitter exposes the configured splitter (used for dry runs).
func (uc *IngestUseCase) Splitter() *Splitter {
	return uc.splitter
}

// EnsureIndex probes the embedding dimension and makes sure the store can hold it.
func (uc *IngestUseCase) EnsureIndex(ctx context.Context) (int, error) {
	probe, err := uc.embedder.Embed(ctx, "test")
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return 0, fmt.Errorf("probing embedding dimension: empty vector from %s", uc.embedder.ModelName())
	}
	if err := uc.vectorStore.EnsureIndex(ctx, len(probe)); err != nil {
		return 0, fmt.Errorf("ensuring index: %w", err)
	}
	uc.logger.Info("index ready", slog.Int("dimension", len(probe)), slog.String("model", uc.embedder.ModelName()))
	return len(probe), nil
}

// Ingest chunks the documents and upserts them batch by batch.
func (uc *IngestUseCase) Ingest(ctx context.Context, docs []entities.Document) (entities.IngestReport, error) {
	start := time.Now()
	report := entities.IngestReport{Documents: len(docs)}

	chunks, dups := dedupe(uc.splitter.SplitDocuments(docs))
	report.Chunks = len(chunks)
	report.Duplicates = dups
	if len(chunks) == 0 {
		report.Elapsed = time.Since(start)
		return report, nil
	}

	uc.logger.Info("ingesting",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Int("duplicates", dups),
		slog.Int("batch_size", uc.batchSize))

	for i := 0; i < len(chunks); i += uc.batchSize {
		end := i + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := uc.limiter.Wait(ctx); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		if err := uc.upsertBatch(ctx, chunks[i:end]); err != nil {
			report.Elapsed = time.Since(start)
			return report, fmt.Errorf("batch %d-%d: %w", i, end-1, err)
		}

		report.Batches++
		report.Upserted += end - i
		uc.logger.Info("upserted batch", slog.Int("from", i), slog.Int("to", end-1))
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// IngestSource loads every page from source and ingests it.
func (uc *IngestUseCase) IngestSource(ctx context.Context, source ports.DocumentSource) (entities.IngestReport, error) {
	docs, err := source.Load(ctx)
	if err != nil {
		return entities.IngestReport{}, fmt.Errorf("loading documents: %w", err)
	}
	if len(docs) == 0 {
		return entities.IngestReport{}, entities.ErrNoDocuments
	}
	return uc.Ingest(ctx, docs)
}

// IngestFile loads and ingests a single file. Used by the directory watcher.
func (uc *IngestUseCase) IngestFile(ctx context.Context, loader ports.DocumentLoader, path string) (entities.IngestReport, error) {
	docs, err := loader.Load(ctx, path)
	if err != nil {
		return entities.IngestReport{}, fmt.Errorf("loading %s: %w", path, err)
	}
	uc.logger.Info("file loaded", slog.String("path", path), slog.Int("pages", len(docs)))
	return uc.Ingest(ctx, docs)
}

// Delete removes records by chunk ID.
func (uc *IngestUseCase) Delete(ctx context.Context, ids []string) error {
	return uc.vectorStore.Delete(ctx, ids)
}

func (uc *IngestUseCase) upsertBatch(ctx context.Context, batch []entities.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding: got %d vectors for %d chunks", len(embeddings), len(batch))
	}

	for i := range batch {
		batch[i].Embedding = embeddings[i]
	}

	if err := uc.vectorStore.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("upserting: %w", err)
	}
	return nil
}

// dedupe keeps the first chunk for every ID.
func dedupe(chunks []entities.Chunk) ([]entities.Chunk, int) {
	seen := make(map[string]struct{}, len(chunks))
	out := chunks[:0]
	for _, c := range chunks {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, len(chunks) - len(out)
}
