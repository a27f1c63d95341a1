package vectordb

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

const payloadChunkID = "chunk_id"

// QdrantConfig describes a Qdrant collection reached over gRPC.
type QdrantConfig struct {
	Address    string // host:port of the gRPC listener, usually :6334
	APIKey     string
	Collection string
	TLS        bool
}

// QdrantStore implements ports.VectorStore on a Qdrant collection.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	collection  string
	apiKey      string
	logger      *slog.Logger
}

// NewQdrantStore opens a gRPC client for cfg. The connection is established lazily.
func NewQdrantStore(cfg QdrantConfig, logger *slog.Logger) (*QdrantStore, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost:6334"
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w", cfg.Address, err)
	}
	return NewQdrantStoreFromConn(conn, cfg.Collection, cfg.APIKey, logger), nil
}

// NewQdrantStoreFromConn wraps an existing connection; the store takes ownership of it.
func NewQdrantStoreFromConn(conn *grpc.ClientConn, collection, apiKey string, logger *slog.Logger) *QdrantStore {
	s := newQdrantStore(qdrant.NewCollectionsClient(conn), qdrant.NewPointsClient(conn), collection, apiKey, logger)
	s.conn = conn
	return s
}

func newQdrantStore(collections qdrant.CollectionsClient, points qdrant.PointsClient, collection, apiKey string, logger *slog.Logger) *QdrantStore {
	if collection == "" {
		collection = "medical-chatbot"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QdrantStore{
		collections: collections,
		points:      points,
		collection:  collection,
		apiKey:      apiKey,
		logger:      logger.With(slog.String("component", "vectordb"), slog.String("store", "qdrant"), slog.String("collection", collection)),
	}
}

func (s *QdrantStore) authed(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

// EnsureIndex creates the collection with cosine distance when it does not exist.
func (s *QdrantStore) EnsureIndex(ctx context.Context, dimension int) error {
	ctx = s.authed(ctx)

	info, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	if err == nil {
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && int(size) != dimension {
			return fmt.Errorf("qdrant collection %s has %d, embedder gives %d: %w",
				s.collection, size, dimension, entities.ErrDimensionMismatch)
		}
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		s.logger.Error("failed to get collection", slog.Any("error", err))
		return fmt.Errorf("checking collection: %w", err)
	}

	s.logger.Info("creating collection", slog.Int("dimension", dimension))
	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		s.logger.Error("failed to create collection", slog.Any("error", err))
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}

// Upsert writes chunks as points keyed by the UUID form of their md5 ID.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(c.ID),
			Payload: chunkPayload(c),
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: c.Embedding}}},
		})
	}

	wait := true
	_, err := s.points.Upsert(s.authed(ctx), &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		s.logger.Error("could not upsert the points", slog.Int("count", len(points)), slog.Any("error", err))
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

// Search returns the topK nearest points with their payloads.
func (s *QdrantStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	resp, err := s.points.Search(s.authed(ctx), &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	results := make([]entities.QueryResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		chunk := chunkFromPayload(p.GetId().GetUuid(), p.GetPayload())
		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     float64(p.GetScore()),
			SourceDoc: sourceName(chunk.Source),
		})
	}
	return results, nil
}

// Delete removes points by chunk ID.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	wait := true
	_, err := s.points.Delete(s.authed(ctx), &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// pointID maps an md5 hex chunk ID onto a UUID. Other IDs are hashed into one.
func pointID(chunkID string) *qdrant.PointId {
	var id uuid.UUID
	raw, err := hex.DecodeString(chunkID)
	if err == nil && len(raw) == 16 {
		id, _ = uuid.FromBytes(raw)
	} else {
		id = uuid.NewMD5(uuid.NameSpaceOID, []byte(chunkID))
	}
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id.String()}}
}

func chunkPayload(c entities.Chunk) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		payloadChunkID:      {Kind: &qdrant.Value_StringValue{StringValue: c.ID}},
		entities.MetaText:   {Kind: &qdrant.Value_StringValue{StringValue: c.Content}},
		entities.MetaSource: {Kind: &qdrant.Value_StringValue{StringValue: c.Source}},
		entities.MetaPage:   {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.Page)}},
	}
}

func chunkFromPayload(fallbackID string, payload map[string]*qdrant.Value) entities.Chunk {
	chunk := entities.Chunk{
		ID:      payload[payloadChunkID].GetStringValue(),
		Content: payload[entities.MetaText].GetStringValue(),
		Source:  payload[entities.MetaSource].GetStringValue(),
		Page:    int(payload[entities.MetaPage].GetIntegerValue()),
	}
	if chunk.ID == "" {
		chunk.ID = fallbackID
	}
	return chunk
}
