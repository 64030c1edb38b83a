package driving

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// Retriever is the read-only view of the embedding index.
// It is what responders and the search surfaces see.
type Retriever interface {
	// Query returns at most k chunks by descending cosine similarity.
	// Ties are broken by ascending chunk ID. An empty index or k <= 0
	// returns an empty slice and no error.
	Query(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error)
}
