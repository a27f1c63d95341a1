package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// AskInput is the input schema for ask_medical_question.
type AskInput struct {
	Question string `json:"question" jsonschema:"the medical question to answer from the indexed reference"`
}

// AskOutput is the output schema for ask_medical_question.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Sources []PassageOutput `json:"sources"`
}

// SearchInput is the input schema for search_passages.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find similar passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return"`
}

// SearchOutput is the output schema for search_passages.
type SearchOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is one retrieved chunk.
type PassageOutput struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_medical_question",
		Description: "Answer a medical question using only passages retrieved from the indexed reference",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_passages",
		Description: "Return the reference passages most similar to a query, without generating an answer",
	}, s.handleSearch)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, entities.ErrEmptyMessage
	}
	services, err := s.backend.Get(ctx)
	if err != nil {
		return nil, AskOutput{}, err
	}

	resp, err := services.Query.Answer(ctx, &entities.ChatRequest{Query: input.Question})
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: resp.Answer, Sources: passages(resp.Sources)}, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	services, err := s.backend.Get(ctx)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	results, err := services.Query.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if input.Limit > 0 && input.Limit < len(results) {
		results = results[:input.Limit]
	}

	out := passages(results)
	return nil, SearchOutput{Passages: out, Count: len(out)}, nil
}

func passages(results []entities.QueryResult) []PassageOutput {
	out := make([]PassageOutput, len(results))
	for i, r := range results {
		out[i] = PassageOutput{
			ID:     r.Chunk.ID,
			Source: r.Chunk.Source,
			Page:   r.Chunk.Page,
			Score:  r.Score,
			Text:   r.Chunk.Content,
		}
	}
	return out
}
