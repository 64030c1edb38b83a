package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// IngestResult is the outcome of ingesting one source.
type IngestResult struct {
	Source domain.Source
	Chunks []domain.Chunk
	Err    error
}

// IngestService converts source documents into chunks.
// It never touches the index.
type IngestService interface {
	// Ingest extracts and chunks a single source.
	Ingest(ctx context.Context, source domain.Source) ([]domain.Chunk, error)

	// Stream ingests sources lazily in order. A failing source yields a
	// result with Err set and the stream continues. Restart from any
	// document by passing a suffix of the source list.
	Stream(ctx context.Context, sources []domain.Source) iter.Seq[IngestResult]
}
