package entities

import "errors"

// Domain errors. Adapters wrap their causes around these with %w.
var (
	// ErrMissingAPIKey indicates a hosted provider was selected without credentials.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyMessage indicates a question with no text.
	ErrEmptyMessage = errors.New("no message provided")

	// ErrNoDocuments indicates the document source produced nothing to ingest.
	ErrNoDocuments = errors.New("no documents found")

	// ErrUnsupportedProvider indicates an unknown adapter name in configuration.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrIndexNotReady indicates the hosted index exists but cannot serve requests yet.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrDimensionMismatch indicates the embedding size differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
