package driving

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// QueryClassifier assigns an intent to a text fragment.
type QueryClassifier interface {
	// Classify returns the intent and a confidence in [0,1].
	Classify(ctx context.Context, text string) (domain.Intent, float64, error)
}

// QueryDecomposer splits a query into classified sub-queries.
type QueryDecomposer interface {
	// Decompose returns sub-queries in left-to-right order.
	// A blank query returns domain.ErrEmptyQuery.
	Decompose(ctx context.Context, query string) ([]domain.SubQuery, error)
}

// Assistant handles a full user query end to end.
type Assistant interface {
	// Handle decomposes, dispatches and aggregates a query.
	// Returns ctx.Err() without an envelope if cancelled before completion.
	Handle(ctx context.Context, query string) (*domain.ResponseEnvelope, error)
}
