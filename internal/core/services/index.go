package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// Ensure Index implements the interface.
var _ driving.IndexService = (*Index)(nil)

// DefaultEmbedBatchSize is the number of texts sent per EmbedBatch call.
const DefaultEmbedBatchSize = 64

// indexState holds the index contents. Load builds a fresh state and
// swaps it in; other writers mutate it under the write lock.
type indexState struct {
	chunks map[string]domain.Chunk
	byDoc  map[string]map[string]struct{}
	dims   int
}

func newIndexState() *indexState {
	return &indexState{
		chunks: make(map[string]domain.Chunk),
		byDoc:  make(map[string]map[string]struct{}),
	}
}

func (s *indexState) insert(c domain.Chunk) {
	if old, ok := s.chunks[c.ID]; ok {
		s.unlink(old)
	}
	s.chunks[c.ID] = c
	ids, ok := s.byDoc[c.DocumentID]
	if !ok {
		ids = make(map[string]struct{})
		s.byDoc[c.DocumentID] = ids
	}
	ids[c.ID] = struct{}{}
}

func (s *indexState) unlink(c domain.Chunk) {
	if ids, ok := s.byDoc[c.DocumentID]; ok {
		delete(ids, c.ID)
		if len(ids) == 0 {
			delete(s.byDoc, c.DocumentID)
		}
	}
}

func (s *indexState) deleteDocument(documentID string) int {
	ids := s.byDoc[documentID]
	for id := range ids {
		delete(s.chunks, id)
	}
	delete(s.byDoc, documentID)
	return len(ids)
}

// Index is an exact cosine-similarity index over chunk embeddings.
// Writers are serialised; readers run concurrently and always see a
// consistent state.
type Index struct {
	embedder  driven.EmbeddingService
	store     driven.SnapshotStore
	ingestor  driving.IngestService
	discover  driven.DiscoverFunc
	batchSize int

	mu    sync.RWMutex
	state *indexState
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithSnapshotStore sets where Persist and Load read and write.
func WithSnapshotStore(store driven.SnapshotStore) IndexOption {
	return func(i *Index) { i.store = store }
}

// WithIngestor sets the ingestor used by BuildFromDirectory.
func WithIngestor(ingestor driving.IngestService) IndexOption {
	return func(i *Index) { i.ingestor = ingestor }
}

// WithDiscoverer sets how BuildFromDirectory lists sources.
func WithDiscoverer(discover driven.DiscoverFunc) IndexOption {
	return func(i *Index) { i.discover = discover }
}

// WithEmbedBatchSize sets the EmbedBatch request size.
func WithEmbedBatchSize(n int) IndexOption {
	return func(i *Index) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// NewIndex creates an empty index.
func NewIndex(embedder driven.EmbeddingService, opts ...IndexOption) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: index requires an embedding service", domain.ErrMisconfigured)
	}
	idx := &Index{
		embedder:  embedder,
		batchSize: DefaultEmbedBatchSize,
		state:     newIndexState(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Add embeds and inserts chunks. Re-adding a chunk ID replaces its
// vector. Chunks that already carry an embedding are not re-embedded.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	prepared, err := i.prepare(ctx, chunks)
	if err != nil {
		return err
	}
	if len(prepared) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.apply("", prepared)
}

// ReplaceDocument removes every chunk of documentID and inserts chunks.
func (i *Index) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.DocumentID != documentID {
			return fmt.Errorf("%w: chunk %s belongs to %q, not %q", domain.ErrInvalidInput, c.ID, c.DocumentID, documentID)
		}
	}

	prepared, err := i.prepare(ctx, chunks)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.apply(documentID, prepared)
}

// DeleteDocument removes every chunk of documentID.
func (i *Index) DeleteDocument(_ context.Context, documentID string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := i.state.deleteDocument(documentID)
	if len(i.state.chunks) == 0 {
		i.state.dims = 0
	}
	return removed, nil
}

// Query returns at most k chunks by descending cosine similarity, ties
// broken by ascending chunk ID.
func (i *Index) Query(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || i.IsEmpty() {
		return []domain.ScoredChunk{}, nil
	}

	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	q := normalise(vec)

	i.mu.RLock()
	defer i.mu.RUnlock()
	state := i.state

	if state.dims != 0 && len(q) != state.dims {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrInvalidInput, len(q), state.dims)
	}

	hits := make([]domain.ScoredChunk, 0, len(state.chunks))
	for _, c := range state.chunks {
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: dot(q, c.Embedding)})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Chunk.ID < hits[b].Chunk.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// BuildFromDirectory ingests every source under root and replaces the
// matching documents in the index. Documents that disappeared from root
// are removed. Failing documents are reported in the result; only
// cancellation aborts the build.
func (i *Index) BuildFromDirectory(ctx context.Context, root string) (driving.BuildReport, error) {
	var report driving.BuildReport
	if i.ingestor == nil || i.discover == nil {
		return report, fmt.Errorf("%w: index has no ingestor or discoverer", domain.ErrMisconfigured)
	}

	logger.Section("Building index")
	sources, err := i.discover(ctx, root)
	if err != nil {
		return report, fmt.Errorf("discover %s: %w", root, err)
	}
	logger.Info("Found %d files under %s", len(sources), root)

	seen := make(map[string]struct{}, len(sources))
	for res := range i.ingestor.Stream(ctx, sources) {
		seen[res.Source.ID] = struct{}{}
		if res.Err == nil {
			res.Err = i.ReplaceDocument(ctx, res.Source.ID, res.Chunks)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if res.Err != nil {
			logger.Warn("Skipping %s: %v", res.Source.ID, res.Err)
			report.Skipped = append(report.Skipped, driving.SkippedDocument{
				DocumentID: res.Source.ID,
				Reason:     res.Err.Error(),
			})
			continue
		}
		if len(res.Chunks) == 0 {
			report.Empty++
			continue
		}
		logger.Debug("Indexed %s (%d chunks)", res.Source.ID, len(res.Chunks))
		report.Indexed++
		report.Chunks += len(res.Chunks)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, id := range i.documentIDs() {
		if _, ok := seen[id]; !ok {
			n, _ := i.DeleteDocument(ctx, id)
			logger.Debug("Removed %s (%d chunks): no longer under %s", id, n, root)
		}
	}

	logger.Info("Build complete: %d indexed, %d empty, %d skipped, %d chunks",
		report.Indexed, report.Empty, len(report.Skipped), report.Chunks)
	return report, nil
}

// Persist writes the current state to the snapshot store.
func (i *Index) Persist(ctx context.Context) error {
	if i.store == nil {
		return fmt.Errorf("%w: index has no snapshot store", domain.ErrMisconfigured)
	}

	i.mu.RLock()
	state := i.state
	snap := &driven.Snapshot{
		Model:      i.embedder.ModelName(),
		Dimensions: state.dims,
		Chunks:     make([]domain.Chunk, 0, len(state.chunks)),
	}
	for _, c := range state.chunks {
		snap.Chunks = append(snap.Chunks, c)
	}
	i.mu.RUnlock()
	sort.Slice(snap.Chunks, func(a, b int) bool { return snap.Chunks[a].ID < snap.Chunks[b].ID })

	if err := i.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	logger.Debug("Persisted %d chunks", len(snap.Chunks))
	return nil
}

// Load replaces the index with the persisted snapshot. A missing
// snapshot leaves an empty index. The swap is atomic: readers see
// either the old or the new state.
func (i *Index) Load(ctx context.Context) error {
	if i.store == nil {
		return fmt.Errorf("%w: index has no snapshot store", domain.ErrMisconfigured)
	}

	snap, found, err := i.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	next := newIndexState()
	if found {
		if want := i.embedder.Dimensions(); snap.Dimensions != 0 && want != 0 && snap.Dimensions != want {
			return fmt.Errorf("%w: snapshot has %d-dimensional vectors from %q, embedder %q produces %d; rebuild the index",
				domain.ErrMisconfigured, snap.Dimensions, snap.Model, i.embedder.ModelName(), want)
		}
		next.dims = snap.Dimensions
		for _, c := range snap.Chunks {
			if len(c.Embedding) != snap.Dimensions {
				return fmt.Errorf("%w: chunk %s has %d dimensions, snapshot declares %d",
					domain.ErrIndexCorruption, c.ID, len(c.Embedding), snap.Dimensions)
			}
			if _, dup := next.chunks[c.ID]; dup {
				return fmt.Errorf("%w: duplicate chunk %s", domain.ErrIndexCorruption, c.ID)
			}
			next.insert(c)
		}
	}

	i.mu.Lock()
	i.state = next
	i.mu.Unlock()

	if found {
		logger.Info("Loaded index: %d chunks from %d documents", len(next.chunks), len(next.byDoc))
	} else {
		logger.Info("No index snapshot found, starting empty")
	}
	return nil
}

// Stats returns index statistics.
func (i *Index) Stats() driving.IndexStats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return driving.IndexStats{
		Chunks:     len(i.state.chunks),
		Documents:  len(i.state.byDoc),
		Dimensions: i.state.dims,
		Model:      i.embedder.ModelName(),
	}
}

// IsEmpty returns true if nothing is indexed.
func (i *Index) IsEmpty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.state.chunks) == 0
}

// prepare embeds chunks lacking a vector and normalises every vector.
// It runs without holding the lock.
func (i *Index) prepare(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	var pending []int
	for n := range out {
		if out[n].ID == "" {
			return nil, fmt.Errorf("%w: chunk without id in %q", domain.ErrInvalidInput, out[n].DocumentID)
		}
		if len(out[n].Embedding) == 0 {
			pending = append(pending, n)
		}
	}

	for start := 0; start < len(pending); start += i.batchSize {
		end := min(start+i.batchSize, len(pending))
		texts := make([]string, 0, end-start)
		for _, n := range pending[start:end] {
			texts = append(texts, out[n].Text)
		}

		vecs, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vecs), len(texts))
		}
		for j, n := range pending[start:end] {
			out[n].Embedding = vecs[j]
		}
	}

	for n := range out {
		out[n].Embedding = normalise(out[n].Embedding)
	}
	return out, nil
}

// apply removes documentID's chunks (when non-empty) and inserts chunks.
// Dimensions are checked before anything changes. Caller holds the write lock.
func (i *Index) apply(documentID string, chunks []domain.Chunk) error {
	dims := i.state.dims
	if documentID != "" && len(i.state.byDoc[documentID]) == len(i.state.chunks) {
		dims = 0
	}
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("%w: chunk %s has dimension %d, index has %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), dims)
		}
	}

	if documentID != "" {
		i.state.deleteDocument(documentID)
	}
	i.state.dims = dims
	for _, c := range chunks {
		i.state.insert(c)
	}
	if len(i.state.chunks) == 0 {
		i.state.dims = 0
	}
	return nil
}

func (i *Index) documentIDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ids := make([]string, 0, len(i.state.byDoc))
	for id := range i.state.byDoc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// normalise returns v scaled to unit length. Zero vectors are returned as-is.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for n, x := range v {
		out[n] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for n := range a {
		sum += float64(a[n]) * float64(b[n])
	}
	return sum
}
