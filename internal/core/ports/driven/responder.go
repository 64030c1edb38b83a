package driven

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
)

// Responder answers sub-queries of a single intent.
// Responders may retrieve from the index through the supplied Retriever
// but never mutate it.
type Responder interface {
	// Intent returns the intent this responder serves.
	Intent() domain.Intent

	// Handle answers one sub-query.
	Handle(ctx context.Context, sq domain.SubQuery, retriever driving.Retriever) (domain.Payload, error)
}
