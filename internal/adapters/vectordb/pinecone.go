package vectordb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

const maxDeleteIDs = 1000

// PineconeConfig describes the hosted index.
type PineconeConfig struct {
	APIKey    string
	Index     string
	Namespace string
	Cloud     string
	Region    string
	Metric    string
	// ControlURL overrides the control plane host, https://api.pinecone.io by default.
	ControlURL string
	Timeout    time.Duration
	// ReadyTimeout bounds how long EnsureIndex waits for a new index to come up.
	ReadyTimeout time.Duration
	PollInterval time.Duration
}

// pineconeIndex is the data plane subset of *pinecone.IndexConnection.
type pineconeIndex interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	Close() error
}

// PineconeStore implements ports.VectorStore on a Pinecone serverless index.
// The control plane creates and describes the index; a connection to the index host serves the data plane.
type PineconeStore struct {
	cfg    PineconeConfig
	client *pinecone.Client
	dial   func(host string) (pineconeIndex, error)
	logger *slog.Logger

	mu        sync.Mutex
	index     pineconeIndex
	dimension int
}

// NewPineconeStore validates cfg and creates the client. It does not touch the network.
func NewPineconeStore(cfg PineconeConfig, logger *slog.Logger) (*PineconeStore, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: %w", entities.ErrMissingAPIKey)
	}
	if cfg.Index == "" {
		cfg.Index = "medical-chatbot"
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:     cfg.APIKey,
		Host:       cfg.ControlURL,
		RestClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("creating pinecone client: %w", err)
	}

	s := &PineconeStore{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("component", "vectordb"), slog.String("store", "pinecone"), slog.String("index", cfg.Index)),
	}
	s.dial = func(host string) (pineconeIndex, error) {
		conn, err := client.Index(pinecone.NewIndexConnParams{Host: host, Namespace: cfg.Namespace})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return s, nil
}

// EnsureIndex creates a serverless index when it is missing and waits until it is ready.
func (s *PineconeStore) EnsureIndex(ctx context.Context, dimension int) error {
	idx, err := s.lookup(ctx)
	if err != nil {
		return err
	}

	if idx == nil {
		s.logger.Info("creating index",
			slog.Int("dimension", dimension),
			slog.String("cloud", s.cfg.Cloud),
			slog.String("region", s.cfg.Region))
		_, err := s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
			Name:      s.cfg.Index,
			Dimension: int32(dimension),
			Metric:    pinecone.IndexMetric(s.cfg.Metric),
			Cloud:     pinecone.Cloud(s.cfg.Cloud),
			Region:    s.cfg.Region,
		})
		if err != nil {
			// Another ingest may have created it first.
			if existing, lookupErr := s.lookup(ctx); lookupErr != nil || existing == nil {
				s.logger.Error("failed to create index", slog.Any("error", err))
				return fmt.Errorf("creating pinecone index %s: %w", s.cfg.Index, err)
			}
		}
	} else if idx.Dimension != 0 && int(idx.Dimension) != dimension {
		return fmt.Errorf("pinecone index %s has %d, embedder gives %d: %w",
			s.cfg.Index, idx.Dimension, dimension, entities.ErrDimensionMismatch)
	}

	if idx == nil || !ready(idx) {
		if idx, err = s.waitReady(ctx); err != nil {
			return err
		}
	}

	_, err = s.connect(ctx, idx.Host, dimension)
	return err
}

// Upsert writes chunk vectors with their text, source and page as metadata.
func (s *PineconeStore) Upsert(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	index, err := s.connect(ctx, "", 0)
	if err != nil {
		return err
	}

	vectors := make([]*pinecone.Vector, len(chunks))
	for i, c := range chunks {
		meta, err := structpb.NewStruct(c.Metadata())
		if err != nil {
			return fmt.Errorf("chunk %s metadata: %w", c.ID, err)
		}
		vectors[i] = &pinecone.Vector{Id: c.ID, Values: c.Embedding, Metadata: meta}
	}

	count, err := index.UpsertVectors(ctx, vectors)
	if err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}
	if int(count) != len(chunks) {
		s.logger.Warn("partial upsert", slog.Int("sent", len(chunks)), slog.Int("upserted", int(count)))
	}
	return nil
}

// Search returns the topK nearest records by the index metric.
func (s *PineconeStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	index, err := s.connect(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	if d := s.indexDimension(); d != 0 && len(embedding) != d {
		return nil, fmt.Errorf("pinecone index %s has %d, query has %d: %w",
			s.cfg.Index, d, len(embedding), entities.ErrDimensionMismatch)
	}

	resp, err := index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]entities.QueryResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		chunk := chunkFromMetadata(m.Vector.Id, m.Vector.Metadata.AsMap())
		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     float64(m.Score),
			SourceDoc: sourceName(chunk.Source),
		})
	}
	return results, nil
}

// Delete removes records by ID.
func (s *PineconeStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	index, err := s.connect(ctx, "", 0)
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += maxDeleteIDs {
		end := min(start+maxDeleteIDs, len(ids))
		if err := index.DeleteVectorsById(ctx, ids[start:end]); err != nil {
			return fmt.Errorf("deleting vectors: %w", err)
		}
	}
	return nil
}

// Close closes the data plane connection.
func (s *PineconeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// lookup returns the index description, or nil when it does not exist.
func (s *PineconeStore) lookup(ctx context.Context) (*pinecone.Index, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pinecone indexes: %w", err)
	}
	for _, idx := range indexes {
		if idx != nil && idx.Name == s.cfg.Index {
			return idx, nil
		}
	}
	return nil, nil
}

func ready(idx *pinecone.Index) bool {
	return idx.Status != nil && idx.Status.Ready && idx.Host != ""
}

func (s *PineconeStore) waitReady(ctx context.Context) (*pinecone.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		idx, err := s.lookup(ctx)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if idx != nil && ready(idx) {
			return idx, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pinecone index %s: %w", s.cfg.Index, entities.ErrIndexNotReady)
		case <-ticker.C:
		}
	}
}

// connect returns the data plane connection, dialing host or, when host is empty,
// the host of the existing index. The index is never created here.
func (s *PineconeStore) connect(ctx context.Context, host string, dimension int) (pineconeIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dimension != 0 {
		s.dimension = dimension
	}
	if s.index != nil {
		return s.index, nil
	}

	if host == "" {
		idx, err := s.lookup(ctx)
		if err != nil {
			return nil, err
		}
		if idx == nil {
			return nil, fmt.Errorf("pinecone index %s does not exist: %w", s.cfg.Index, entities.ErrIndexNotReady)
		}
		if idx.Host == "" {
			return nil, fmt.Errorf("pinecone index %s has no host: %w", s.cfg.Index, entities.ErrIndexNotReady)
		}
		host = idx.Host
		s.dimension = int(idx.Dimension)
	}

	index, err := s.dial(host)
	if err != nil {
		return nil, fmt.Errorf("connecting to pinecone index at %s: %w", host, err)
	}
	s.logger.Debug("connected to index", slog.String("host", host), slog.Int("dimension", s.dimension))
	s.index = index
	return index, nil
}

func (s *PineconeStore) indexDimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}

// chunkFromMetadata rebuilds a chunk from the stored metadata payload.
func chunkFromMetadata(id string, meta map[string]any) entities.Chunk {
	chunk := entities.Chunk{ID: id}
	if v, ok := meta[entities.MetaText].(string); ok {
		chunk.Content = v
	}
	if v, ok := meta[entities.MetaSource].(string); ok {
		chunk.Source = v
	}
	switch v := meta[entities.MetaPage].(type) {
	case float64:
		chunk.Page = int(v)
	case int:
		chunk.Page = v
	case int64:
		chunk.Page = int(v)
	}
	return chunk
}
