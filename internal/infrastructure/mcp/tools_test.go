package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medrag-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports/portstest"
	"github.com/0xcro3dile/medrag-go/internal/domain/usecases"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/bootstrap"
)

type backendFunc func(ctx context.Context) (*bootstrap.Services, error)

func (f backendFunc) Get(ctx context.Context) (*bootstrap.Services, error) { return f(ctx) }

func newBackend(t *testing.T, llm *portstest.LLM) Backend {
	t.Helper()
	embedder := &portstest.Embedder{}
	store := vectordb.NewInMemoryStore()
	ingest := usecases.NewIngestUseCase(embedder, store, usecases.IngestOptions{}, nil)
	_, err := ingest.Ingest(context.Background(), []entities.Document{
		{ID: "p1", Source: "data/gale.pdf", Content: "Acne vulgaris affects the skin."},
		{ID: "p2", Source: "data/gale.pdf", Page: 3, Content: "Migraine is a recurrent headache."},
		{ID: "p3", Source: "data/gale.pdf", Page: 7, Content: "Measles is a viral infection."},
	})
	require.NoError(t, err)

	services := &bootstrap.Services{
		Embedder: embedder,
		LLM:      llm,
		Store:    store,
		Query:    usecases.NewQueryUseCase(embedder, store, llm, usecases.QueryOptions{}, nil),
	}
	return backendFunc(func(context.Context) (*bootstrap.Services, error) { return services, nil })
}

func TestNewServer(t *testing.T) {
	t.Run("nil backend returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		assert.ErrorIs(t, err, ErrMissingBackend)
		assert.Nil(t, server)
	})

	t.Run("valid backend creates server", func(t *testing.T) {
		server, err := NewServer(newBackend(t, &portstest.LLM{}))
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with sources", func(t *testing.T) {
		server, err := NewServer(newBackend(t, &portstest.LLM{Answer: "A skin condition."}))
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "what is acne"})

		require.NoError(t, err)
		assert.Equal(t, "A skin condition.", output.Answer)
		assert.Len(t, output.Sources, 3)
		assert.Equal(t, "data/gale.pdf", output.Sources[0].Source)
	})

	t.Run("empty question", func(t *testing.T) {
		server, err := NewServer(newBackend(t, &portstest.LLM{}))
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "  "})

		assert.ErrorIs(t, err, entities.ErrEmptyMessage)
	})

	t.Run("backend init failure", func(t *testing.T) {
		server, err := NewServer(backendFunc(func(context.Context) (*bootstrap.Services, error) {
			return nil, entities.ErrMissingAPIKey
		}))
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "acne"})

		assert.ErrorIs(t, err, entities.ErrMissingAPIKey)
	})

	t.Run("generation failure", func(t *testing.T) {
		server, err := NewServer(newBackend(t, &portstest.LLM{Err: errors.New("rate limited")}))
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "acne"})

		assert.ErrorContains(t, err, "rate limited")
	})
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()
	llm := &portstest.LLM{}
	server, err := NewServer(newBackend(t, llm))
	require.NoError(t, err)

	t.Run("returns passages", func(t *testing.T) {
		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "measles infection"})

		require.NoError(t, err)
		assert.Equal(t, 3, output.Count)
		pages := map[string]int{}
		for _, p := range output.Passages {
			pages[p.Text] = p.Page
		}
		assert.Equal(t, 7, pages["Measles is a viral infection."])
		assert.Empty(t, llm.Prompts(), "search does not call the model")
	})

	t.Run("limit", func(t *testing.T) {
		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "acne", Limit: 1})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
	})

	t.Run("empty query", func(t *testing.T) {
		_, _, err := server.handleSearch(ctx, nil, SearchInput{})

		assert.ErrorIs(t, err, entities.ErrEmptyMessage)
	})
}
