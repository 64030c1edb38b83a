package extractors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.TextExtractor = (*Registry)(nil)

// Registry dispatches extraction to the extractor registered for a media type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.MediaType]driven.TextExtractor
}

// NewRegistry creates a registry with the given extractors registered.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{extractors: make(map[domain.MediaType]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for every media type it handles.
// A later registration for the same media type wins.
func (r *Registry) Register(e driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range e.MediaTypes() {
		r.extractors[mt] = e
	}
}

// MediaTypes returns the media types with a registered extractor.
func (r *Registry) MediaTypes() []domain.MediaType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.MediaType, 0, len(r.extractors))
	for mt := range r.extractors {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ExtractText delegates to the extractor for mediaType.
func (r *Registry) ExtractText(ctx context.Context, raw []byte, mediaType domain.MediaType) (string, error) {
	r.mu.RLock()
	e, ok := r.extractors[mediaType]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: no extractor for media type %q", domain.ErrUnsupportedFormat, mediaType)
	}
	return e.ExtractText(ctx, raw, mediaType)
}
