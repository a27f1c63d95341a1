// Package config loads medrag settings from defaults, an optional YAML or TOML file,
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// Environment variables read by Load.
const (
	EnvCohereAPIKey   = "COHERE_API_KEY"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvPineconeAPIKey = "PINECONE_API_KEY"
	EnvPineconeIndex  = "PINECONE_INDEX"
	EnvCohereModel    = "COHERE_MODEL"
	EnvPort           = "PORT"
	EnvLogLevel       = "MEDRAG_LOG_LEVEL"
	EnvDataDir        = "MEDRAG_DATA_DIR"
	EnvVectorStore    = "MEDRAG_VECTOR_STORE"
	EnvQdrantAddress  = "QDRANT_ADDRESS"
	EnvQdrantAPIKey   = "QDRANT_API_KEY"
)

// Provider names.
const (
	ProviderCohere = "cohere"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StorePinecone = "pinecone"
	StoreQdrant   = "qdrant"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	ParserNative  = "native"
	ParserService = "service"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Embedding   EmbeddingConfig   `yaml:"embedding" toml:"embedding"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest" toml:"ingest"`
	Parser      ParserConfig      `yaml:"parser" toml:"parser"`
	Bucket      BucketConfig      `yaml:"bucket" toml:"bucket"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port string `yaml:"port" toml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" toml:"provider"`
	Model    string `yaml:"model" toml:"model"`
	BaseURL  string `yaml:"base_url" toml:"base_url"`
	APIKey   string `yaml:"api_key" toml:"api_key"`
}

// LLMConfig selects the chat model and retrieval parameters.
type LLMConfig struct {
	Provider         string  `yaml:"provider" toml:"provider"`
	Model            string  `yaml:"model" toml:"model"`
	BaseURL          string  `yaml:"base_url" toml:"base_url"`
	APIKey           string  `yaml:"api_key" toml:"api_key"`
	Temperature      float32 `yaml:"temperature" toml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" toml:"max_tokens"`
	TopK             int     `yaml:"top_k" toml:"top_k"`
	MaxContextTokens int     `yaml:"max_context_tokens" toml:"max_context_tokens"`
	PromptFile       string  `yaml:"prompt_file" toml:"prompt_file"`
}

// VectorStoreConfig selects the vector store.
type VectorStoreConfig struct {
	Provider string         `yaml:"provider" toml:"provider"`
	Pinecone PineconeConfig `yaml:"pinecone" toml:"pinecone"`
	Qdrant   QdrantConfig   `yaml:"qdrant" toml:"qdrant"`
	SQLite   SQLiteConfig   `yaml:"sqlite" toml:"sqlite"`
}

// PineconeConfig describes the hosted serverless index.
type PineconeConfig struct {
	APIKey    string `yaml:"api_key" toml:"api_key"`
	Index     string `yaml:"index" toml:"index"`
	Namespace string `yaml:"namespace" toml:"namespace"`
	Cloud     string `yaml:"cloud" toml:"cloud"`
	Region    string `yaml:"region" toml:"region"`
	Metric    string `yaml:"metric" toml:"metric"`
}

// QdrantConfig describes a Qdrant collection.
type QdrantConfig struct {
	Address    string `yaml:"address" toml:"address"`
	APIKey     string `yaml:"api_key" toml:"api_key"`
	Collection string `yaml:"collection" toml:"collection"`
	TLS        bool   `yaml:"tls" toml:"tls"`
}

// SQLiteConfig locates the local store.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// IngestConfig controls splitting and upload pacing.
type IngestConfig struct {
	DataDir         string `yaml:"data_dir" toml:"data_dir"`
	Glob            string `yaml:"glob" toml:"glob"`
	ChunkSize       int    `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap" toml:"chunk_overlap"`
	BatchSize       int    `yaml:"batch_size" toml:"batch_size"`
	BatchDelayMS    int    `yaml:"batch_delay_ms" toml:"batch_delay_ms"`
	WatchDebounceMS int    `yaml:"watch_debounce_ms" toml:"watch_debounce_ms"`
}

// BatchDelay is the pause between upserted batches.
func (c IngestConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// WatchDebounce is the quiet period the watcher waits for before re-ingesting a file.
func (c IngestConfig) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// ParserConfig selects the PDF text extractor.
type ParserConfig struct {
	Provider   string `yaml:"provider" toml:"provider"`
	ServiceURL string `yaml:"service_url" toml:"service_url"`
}

// BucketConfig locates PDFs in S3-compatible storage.
type BucketConfig struct {
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	AccessKey string `yaml:"access_key" toml:"access_key"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
	Bucket    string `yaml:"bucket" toml:"bucket"`
	Prefix    string `yaml:"prefix" toml:"prefix"`
	Region    string `yaml:"region" toml:"region"`
	UseSSL    bool   `yaml:"use_ssl" toml:"use_ssl"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "text"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "5000"},
		Embedding: EmbeddingConfig{
			Provider: ProviderCohere,
		},
		LLM: LLMConfig{
			Provider:         ProviderCohere,
			Temperature:      0.3,
			TopK:             4,
			MaxContextTokens: 3000,
		},
		VectorStore: VectorStoreConfig{
			Provider: StorePinecone,
			Pinecone: PineconeConfig{
				Index:  "medical-chatbot",
				Cloud:  "aws",
				Region: "us-east-1",
				Metric: "cosine",
			},
			Qdrant: QdrantConfig{Address: "localhost:6334", Collection: "medical-chatbot"},
			SQLite: SQLiteConfig{Path: ".medrag"},
		},
		Ingest: IngestConfig{
			DataDir:         "data",
			Glob:            "*.pdf",
			ChunkSize:       1000,
			ChunkOverlap:    40,
			BatchSize:       64,
			BatchDelayMS:    500,
			WatchDebounceMS: 500,
		},
		Parser: ParserConfig{Provider: ParserNative, ServiceURL: "http://localhost:8081"},
		Bucket: BucketConfig{Region: "us-east-1"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// LoadDotEnv loads .env files into the process environment.
// Variables that are already set win, and a missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration. An empty or missing path means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, EnvPort)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Ingest.DataDir, EnvDataDir)
	setString(&c.VectorStore.Provider, EnvVectorStore)
	setString(&c.VectorStore.Pinecone.APIKey, EnvPineconeAPIKey)
	setString(&c.VectorStore.Pinecone.Index, EnvPineconeIndex)
	setString(&c.VectorStore.Qdrant.Address, EnvQdrantAddress)
	setString(&c.VectorStore.Qdrant.APIKey, EnvQdrantAPIKey)

	if c.LLM.Provider == ProviderCohere {
		setString(&c.LLM.Model, EnvCohereModel)
	}
	setString(&c.Embedding.APIKey, providerKeyEnv(c.Embedding.Provider))
	setString(&c.LLM.APIKey, providerKeyEnv(c.LLM.Provider))
}

func providerKeyEnv(provider string) string {
	switch provider {
	case ProviderCohere:
		return EnvCohereAPIKey
	case ProviderOpenAI:
		return EnvOpenAIAPIKey
	}
	return ""
}

func setString(dst *string, env string) {
	if env == "" {
		return
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

// Validate checks provider names, numeric ranges and that every hosted provider has a key.
// Missing keys are reported together, wrapped in entities.ErrMissingAPIKey.
func (c *Config) Validate() error {
	var missing []string
	need := func(key, env string) {
		if key != "" || env == "" {
			return
		}
		for _, m := range missing {
			if m == env {
				return
			}
		}
		missing = append(missing, env)
	}

	for _, p := range []struct{ section, provider string }{
		{"embedding", c.Embedding.Provider},
		{"llm", c.LLM.Provider},
	} {
		switch p.provider {
		case ProviderCohere, ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("%s provider %q: %w", p.section, p.provider, entities.ErrUnsupportedProvider)
		}
	}
	need(c.Embedding.APIKey, providerKeyEnv(c.Embedding.Provider))
	need(c.LLM.APIKey, providerKeyEnv(c.LLM.Provider))

	switch c.VectorStore.Provider {
	case StorePinecone:
		need(c.VectorStore.Pinecone.APIKey, EnvPineconeAPIKey)
	case StoreQdrant, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("vector store %q: %w", c.VectorStore.Provider, entities.ErrUnsupportedProvider)
	}

	switch c.Parser.Provider {
	case ParserNative, ParserService:
	default:
		return fmt.Errorf("parser %q: %w", c.Parser.Provider, entities.ErrUnsupportedProvider)
	}

	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d), got %d", c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port %q: %w", c.Server.Port, err)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", entities.ErrMissingAPIKey, strings.Join(missing, ", "))
	}
	return nil
}
