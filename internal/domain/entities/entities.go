// Package entities contains core business entities.
// These are plain domain objects with no knowledge of storage, parsing or model providers.
package entities

import "time"

// Metadata keys written next to every vector record.
// The names match what earlier ingestion runs stored so existing indexes stay readable.
const (
	MetaText   = "text"
	MetaSource = "source"
	MetaPage   = "page"
)

// Document is a single page of a source document (PDF page, or a whole text file).
type Document struct {
	ID        string
	Name      string
	Source    string // file path or bucket/key
	Page      int    // zero-based page number
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a window of document text ready for embedding.
// ID is the md5 hex digest of Content, so identical text always maps to the same record.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Page       int
	Content    string
	Index      int       // position within the document
	Embedding  []float32 // populated by the embedding adapter
}

// Metadata returns the payload stored alongside the chunk vector.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		MetaText:   c.Content,
		MetaSource: c.Source,
		MetaPage:   c.Page,
	}
}

// QueryResult is a retrieved chunk with its similarity score.
type QueryResult struct {
	Chunk     Chunk
	Score     float64
	SourceDoc string // document name for citation
}

// ChatRequest is a single question. The service keeps no history between requests.
type ChatRequest struct {
	Query string
}

// ChatResponse is the model's answer and the passages it was grounded on.
type ChatResponse struct {
	Answer  string
	Sources []QueryResult
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Documents  int
	Chunks     int
	Duplicates int
	Batches    int
	Upserted   int
	Elapsed    time.Duration
}
