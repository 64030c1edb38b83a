package mcp

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
)

// mockAssistant is a mock implementation of driving.Assistant.
type mockAssistant struct {
	env   *domain.ResponseEnvelope
	err   error
	query string
}

func (m *mockAssistant) Handle(_ context.Context, query string) (*domain.ResponseEnvelope, error) {
	m.query = query
	return m.env, m.err
}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	hits []domain.ScoredChunk
	err  error
	k    int
}

func (m *mockRetriever) Query(_ context.Context, _ string, k int) ([]domain.ScoredChunk, error) {
	m.k = k
	if len(m.hits) > k {
		return m.hits[:k], m.err
	}
	return m.hits, m.err
}

// mockIndex reports fixed statistics.
type mockIndex struct {
	driving.IndexService
	stats driving.IndexStats
}

func (m *mockIndex) Stats() driving.IndexStats {
	return m.stats
}
