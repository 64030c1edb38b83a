package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the legal question or request; several requests may be combined"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	ID       string          `json:"id"`
	Status   string          `json:"overall_status"`
	Outcomes []OutcomeOutput `json:"outcomes"`
}

// OutcomeOutput is the answer to one part of the query.
type OutcomeOutput struct {
	Request    string   `json:"request"`
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Answer     string   `json:"answer,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find similar case passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Path       string  `json:"path"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a legal query. The query is split into separate requests " +
			"(case discovery, legal aid, drafting) and each is answered on its own.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the case document passages most similar to a text",
	}, s.handleSearch)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	env, err := s.ports.Assistant.Handle(ctx, input.Query)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		ID:       env.ID,
		Status:   string(env.Status),
		Outcomes: make([]OutcomeOutput, len(env.Outcomes)),
	}
	for i, o := range env.Outcomes {
		out := OutcomeOutput{
			Request:    o.SubQuery.Text,
			Intent:     string(o.Intent),
			Confidence: o.SubQuery.Confidence,
		}
		if o.Payload != nil {
			out.Answer = o.Payload.Answer
			out.Sources = sourceIDs(o.Payload.Sources)
		}
		if o.Failure != nil {
			out.ErrorKind = string(o.Failure.Kind)
			out.Error = o.Failure.Message
		}
		output.Outcomes[i] = out
	}
	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	hits, err := s.ports.Retriever.Query(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		output.Results[i] = SearchResultOutput{
			ChunkID:    h.Chunk.ID,
			DocumentID: h.Chunk.DocumentID,
			Path:       h.Chunk.SourcePath,
			Position:   h.Chunk.Position,
			Score:      h.Score,
			Content:    h.Chunk.Text,
		}
	}
	return nil, output, nil
}

// sourceIDs lists the distinct documents behind the hits, in rank order.
func sourceIDs(hits []domain.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(hits))
	var ids []string
	for _, h := range hits {
		if _, ok := seen[h.Chunk.DocumentID]; ok {
			continue
		}
		seen[h.Chunk.DocumentID] = struct{}{}
		ids = append(ids, h.Chunk.DocumentID)
	}
	return ids
}
