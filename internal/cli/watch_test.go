package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medrag-go/internal/adapters/loader"
	"github.com/0xcro3dile/medrag-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports/portstest"
	"github.com/0xcro3dile/medrag-go/internal/domain/usecases"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/logging"
)

func TestHandleFileEvent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log, err := logging.New(os.Stderr, "error", "text")
	require.NoError(t, err)

	store := vectordb.NewInMemoryStore()
	ingest := usecases.NewIngestUseCase(&portstest.Embedder{}, store, usecases.IngestOptions{}, log)
	docLoader := loader.NewMultiLoader(nil)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Asthma narrows the airways."), 0o644))
	readme := filepath.Join(dir, "readme.md")
	require.NoError(t, os.WriteFile(readme, []byte("not reference material"), 0o644))

	t.Run("outside glob is ignored", func(t *testing.T) {
		handleFileEvent(ctx, ingest, docLoader, ports.FileEvent{Path: readme, Operation: ports.FileCreated}, "*.txt", log)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("created file is ingested", func(t *testing.T) {
		handleFileEvent(ctx, ingest, docLoader, ports.FileEvent{Path: notes, Operation: ports.FileCreated}, "*.txt", log)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("modified file adds new chunks", func(t *testing.T) {
		require.NoError(t, os.WriteFile(notes, []byte("Asthma narrows and inflames the airways."), 0o644))
		handleFileEvent(ctx, ingest, docLoader, ports.FileEvent{Path: notes, Operation: ports.FileModified}, "*.txt", log)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("unchanged content is not duplicated", func(t *testing.T) {
		handleFileEvent(ctx, ingest, docLoader, ports.FileEvent{Path: notes, Operation: ports.FileModified}, "", log)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("deleted file keeps its chunks", func(t *testing.T) {
		require.NoError(t, os.Remove(notes))
		handleFileEvent(ctx, ingest, docLoader, ports.FileEvent{Path: notes, Operation: ports.FileDeleted}, "*.txt", log)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("load failure is logged", func(t *testing.T) {
		missing := filepath.Join(dir, "gone.txt")
		handleFileEvent(ctx, ingest, docLoader, ports.FileEvent{Path: missing, Operation: ports.FileCreated}, "*.txt", log)
		assert.Equal(t, 2, store.Len())
	})
}
