package driven

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// Chunker splits extracted document text into chunks.
type Chunker interface {
	// Process returns the chunks of text in position order.
	// Whitespace-only text yields no chunks.
	Process(ctx context.Context, documentID, sourcePath, text string) ([]domain.Chunk, error)
}
