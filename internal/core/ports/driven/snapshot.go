package driven

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// Snapshot is a persisted copy of the embedding index.
type Snapshot struct {
	// Model is the embedding model the vectors were produced with.
	Model string

	// Dimensions is the length of every vector.
	Dimensions int

	// Chunks holds every indexed chunk with its Embedding set.
	Chunks []domain.Chunk
}

// SnapshotStore persists and restores the embedding index.
// The chunk metadata and the vectors are written and read together.
type SnapshotStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the stored snapshot. found is false when nothing has
	// been persisted yet. Artifacts that disagree with each other yield
	// domain.ErrIndexCorruption.
	Load(ctx context.Context) (snap *Snapshot, found bool, err error)

	// Close releases resources.
	Close() error
}
