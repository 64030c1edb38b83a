package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// ErrResourceClosed is returned when acquiring a closed shared resource.
var ErrResourceClosed = errors.New("shared resource closed")

// Shared is a lazily built, reference-counted resource such as a model
// client. It is built on first Acquire and reused afterwards. After Close
// it is released once the last holder lets go. A failed build is not
// cached; the next Acquire tries again.
type Shared[T any] struct {
	build   func(context.Context) (T, error)
	release func(T) error

	mu     sync.Mutex
	value  T
	built  bool
	refs   int
	closed bool
}

// NewShared creates a shared resource. release may be nil.
func NewShared[T any](build func(context.Context) (T, error), release func(T) error) *Shared[T] {
	return &Shared[T]{build: build, release: release}
}

// Acquire returns the resource and a function that must be called once
// the caller is done with it.
func (s *Shared[T]) Acquire(ctx context.Context) (T, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.closed {
		return zero, nil, ErrResourceClosed
	}
	if !s.built {
		v, err := s.build(ctx)
		if err != nil {
			return zero, nil, err
		}
		s.value, s.built = v, true
	}
	s.refs++

	var once sync.Once
	return s.value, func() { once.Do(s.releaseRef) }, nil
}

func (s *Shared[T]) releaseRef() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.closed && s.refs == 0 {
		_ = s.teardown()
	}
}

// Built reports whether the resource has been built.
func (s *Shared[T]) Built() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built
}

// Close marks the resource closed. It is torn down now if unused, or
// when the last holder releases it.
func (s *Shared[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.refs == 0 {
		return s.teardown()
	}
	return nil
}

// teardown releases a built value. Caller holds mu.
func (s *Shared[T]) teardown() error {
	if !s.built {
		return nil
	}
	v := s.value
	var zero T
	s.value, s.built = zero, false
	if s.release != nil {
		return s.release(v)
	}
	return nil
}

// Ensure LazyEmbedder implements the interface.
var _ driven.EmbeddingService = (*LazyEmbedder)(nil)

// LazyEmbedder defers creating an embedding client until first use.
type LazyEmbedder struct {
	shared *Shared[driven.EmbeddingService]
}

// NewLazyEmbedder wraps a factory for an embedding client.
func NewLazyEmbedder(build func(context.Context) (driven.EmbeddingService, error)) *LazyEmbedder {
	return &LazyEmbedder{shared: NewShared(build, func(e driven.EmbeddingService) error { return e.Close() })}
}

// Embed generates a vector embedding for the given text.
func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e, release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (l *LazyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e, release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding size, building the client if needed.
// Returns 0 when the client cannot be built.
func (l *LazyEmbedder) Dimensions() int {
	e, release, err := l.acquire(context.Background())
	if err != nil {
		return 0
	}
	defer release()
	return e.Dimensions()
}

// ModelName returns the model name, building the client if needed.
func (l *LazyEmbedder) ModelName() string {
	e, release, err := l.acquire(context.Background())
	if err != nil {
		return ""
	}
	defer release()
	return e.ModelName()
}

// Ping validates the service is reachable.
func (l *LazyEmbedder) Ping(ctx context.Context) error {
	e, release, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.Ping(ctx)
}

// Close releases the client once no call is using it.
func (l *LazyEmbedder) Close() error {
	return l.shared.Close()
}

func (l *LazyEmbedder) acquire(ctx context.Context) (driven.EmbeddingService, func(), error) {
	e, release, err := l.shared.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrResourceClosed) {
			return nil, nil, err
		}
		return nil, nil, errors.Join(domain.ErrEmbeddingUnavailable, err)
	}
	return e, release, nil
}

// Ensure LazyGenerator implements the interface.
var _ driven.Generator = (*LazyGenerator)(nil)

// LazyGenerator defers creating an LLM client until first use.
type LazyGenerator struct {
	shared *Shared[driven.Generator]
}

// NewLazyGenerator wraps a factory for an LLM client.
func NewLazyGenerator(build func(context.Context) (driven.Generator, error)) *LazyGenerator {
	return &LazyGenerator{shared: NewShared(build, func(g driven.Generator) error { return g.Close() })}
}

// Generate produces text completion from a prompt.
func (l *LazyGenerator) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	g, release, err := l.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return g.Generate(ctx, prompt, opts)
}

// ModelName returns the model name, building the client if needed.
func (l *LazyGenerator) ModelName() string {
	g, release, err := l.acquire(context.Background())
	if err != nil {
		return ""
	}
	defer release()
	return g.ModelName()
}

// Ping validates the service is reachable.
func (l *LazyGenerator) Ping(ctx context.Context) error {
	g, release, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return g.Ping(ctx)
}

// Close releases the client once no call is using it.
func (l *LazyGenerator) Close() error {
	return l.shared.Close()
}

func (l *LazyGenerator) acquire(ctx context.Context) (driven.Generator, func(), error) {
	g, release, err := l.shared.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrResourceClosed) {
			return nil, nil, err
		}
		return nil, nil, errors.Join(domain.ErrLLMUnavailable, err)
	}
	return g, release, nil
}
