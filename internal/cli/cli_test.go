package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports/portstest"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/config"
)

// fakeOllama serves /api/embeddings and /api/generate.
type fakeOllama struct {
	*httptest.Server
	answer string

	mu      sync.Mutex
	prompts []string
}

func newFakeOllama(t *testing.T, answer string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{answer: answer}
	embedder := &portstest.Embedder{}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch r.URL.Path {
		case "/api/embeddings":
			vec, _ := embedder.Embed(r.Context(), req.Prompt)
			json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
		case "/api/generate":
			f.mu.Lock()
			f.prompts = append(f.prompts, req.Prompt)
			f.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"response": f.answer, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOllama) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		config.EnvCohereAPIKey, config.EnvOpenAIAPIKey, config.EnvPineconeAPIKey, config.EnvPineconeIndex,
		config.EnvCohereModel, config.EnvPort, config.EnvLogLevel, config.EnvDataDir, config.EnvVectorStore,
		config.EnvQdrantAddress, config.EnvQdrantAPIKey,
	} {
		t.Setenv(env, "")
	}
}

// localSetup writes a config that uses fakeOllama and a sqlite store, plus a data directory.
func localSetup(t *testing.T, ollamaURL string) (cfgPath, dataDir string) {
	t.Helper()
	clearEnv(t)
	root := t.TempDir()
	dataDir = filepath.Join(root, "data")
	require.NoError(t, os.Mkdir(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "acne.txt"),
		[]byte("Acne is a skin condition that occurs when hair follicles plug with oil."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "anemia.txt"),
		[]byte("Anemia is a condition in which the blood lacks healthy red cells."), 0o644))

	cfgPath = filepath.Join(root, "medrag.yaml")
	content := fmt.Sprintf(`
embedding:
  provider: ollama
  base_url: %[1]s
llm:
  provider: ollama
  base_url: %[1]s
  max_context_tokens: 0
vector_store:
  provider: sqlite
  sqlite:
    path: %[2]s
ingest:
  data_dir: %[3]s
  glob: "*.txt"
  batch_delay_ms: 0
log:
  level: error
`, ollamaURL, filepath.Join(root, "store"), dataDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath, dataDir
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel = "", ""
	serveAddr = ""
	askJSON = false
	ingestDir, ingestGlob, ingestBucket, ingestPrefix, ingestDryRun = "", "", "", "", false
	watchDir, watchSkipInitial = "", false
	mcpPort = 0

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	clearEnv(t)
	original := version
	version = "test-1.0.0"
	defer func() { version = original }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "medrag version test-1.0.0")
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ingest", "ask", "chat", "watch", "mcp", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestIngestCmd_DryRun(t *testing.T) {
	cfgPath, _ := localSetup(t, "http://127.0.0.1:1")

	out, err := execute(t, "--config", cfgPath, "ingest", "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "dry run: 2 pages, 2 chunks (0 duplicate)")
}

func TestIngestThenAsk(t *testing.T) {
	ollama := newFakeOllama(t, "Acne is a skin condition.")
	cfgPath, _ := localSetup(t, ollama.URL)

	out, err := execute(t, "--config", cfgPath, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested 2 pages: 2 chunks (0 duplicate), 2 upserted in 1 batches")

	out, err = execute(t, "--config", cfgPath, "ask", "what", "is", "acne")
	require.NoError(t, err)
	assert.Contains(t, out, "Acne is a skin condition.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, ollama.lastPrompt(), "hair follicles")
	assert.Contains(t, ollama.lastPrompt(), "what is acne")

	out, err = execute(t, "--config", cfgPath, "ask", "--json", "what is anemia")
	require.NoError(t, err)
	var result askResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "what is anemia", result.Question)
	assert.Equal(t, "Acne is a skin condition.", result.Answer)
	assert.Len(t, result.Sources, 2)
}

func TestAskCmd_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "ask", "hello")

	assert.ErrorIs(t, err, entities.ErrMissingAPIKey)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "ask")

	assert.Error(t, err)
}

func TestRootCmd_BadLogLevel(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "--log-level", "loud", "version")

	assert.ErrorContains(t, err, "configuring logging")
}
