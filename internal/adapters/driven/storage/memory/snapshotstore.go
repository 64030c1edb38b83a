package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore
// for tests and ephemeral runs.
type SnapshotStore struct {
	mu    sync.RWMutex
	snap  *driven.Snapshot
	saves int
}

// NewSnapshotStore creates a new empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save stores a deep copy of snap.
func (s *SnapshotStore) Save(_ context.Context, snap *driven.Snapshot) error {
	if snap == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = copySnapshot(snap)
	s.saves++
	return nil
}

// Load returns a deep copy of the stored snapshot.
func (s *SnapshotStore) Load(_ context.Context) (*driven.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, false, nil
	}
	return copySnapshot(s.snap), true, nil
}

// Saves returns how many times Save succeeded.
func (s *SnapshotStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op.
func (s *SnapshotStore) Close() error {
	return nil
}

func copySnapshot(snap *driven.Snapshot) *driven.Snapshot {
	out := &driven.Snapshot{
		Model:      snap.Model,
		Dimensions: snap.Dimensions,
		Chunks:     make([]domain.Chunk, len(snap.Chunks)),
	}
	for i, c := range snap.Chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		out.Chunks[i] = c
	}
	return out
}
