package driven

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// DiscoverFunc lists the document sources under a root directory in a
// stable order. A missing root is created and yields no sources.
type DiscoverFunc func(ctx context.Context, root string) ([]domain.Source, error)
