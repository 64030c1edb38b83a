package driven

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// IntentModel scores a text fragment against every known intent.
// Scores are non-negative; higher means more likely. Implementations
// must be deterministic for a given model state.
type IntentModel interface {
	// Name identifies the model in logs.
	Name() string

	// Scores returns a score per known intent.
	Scores(ctx context.Context, text string) (map[domain.Intent]float64, error)
}
