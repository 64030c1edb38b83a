package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService with a
// deterministic bag-of-words hash. Fixed vectors can be set per text.
type mockEmbeddingService struct {
	dims    int
	fixed   map[string][]float32
	err     error
	embeds  atomic.Int32
	batches atomic.Int32
}

func newMockEmbedder(dims int) *mockEmbeddingService {
	return &mockEmbeddingService{dims: dims, fixed: make(map[string][]float32)}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	if v, ok := m.fixed[text]; ok {
		return v
	}
	v := make([]float32, m.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,;:?!")))
		v[h.Sum32()%uint32(m.dims)]++
	}
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.embeds.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dims }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockExtractor implements driven.TextExtractor, failing for raw
// content that starts with "FAIL".
type mockExtractor struct{}

func (m *mockExtractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypeText, domain.MediaTypePDF, domain.MediaTypeImage}
}

func (m *mockExtractor) ExtractText(_ context.Context, raw []byte, _ domain.MediaType) (string, error) {
	if strings.HasPrefix(string(raw), "FAIL") {
		return "", errors.New("corrupt file")
	}
	return string(raw), nil
}

// mockIntentModel implements driven.IntentModel with fixed scores.
type mockIntentModel struct {
	scores map[domain.Intent]float64
	err    error
}

func (m *mockIntentModel) Name() string { return "mock" }

func (m *mockIntentModel) Scores(_ context.Context, _ string) (map[domain.Intent]float64, error) {
	return m.scores, m.err
}

// keywordClassifier implements driving.QueryClassifier by keyword.
type keywordClassifier struct {
	err error
}

func (k *keywordClassifier) Classify(_ context.Context, text string) (domain.Intent, float64, error) {
	if k.err != nil {
		return domain.IntentUnknown, 0, k.err
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "draft"):
		return domain.IntentLegalDrafting, 0.9, nil
	case strings.Contains(lower, "case"), strings.Contains(lower, "precedent"):
		return domain.IntentCaseDiscovery, 0.8, nil
	case strings.Contains(lower, "right"), strings.Contains(lower, "how"):
		return domain.IntentLegalAid, 0.7, nil
	default:
		return domain.IntentUnknown, 0.1, nil
	}
}

// staticDecomposer implements driving.QueryDecomposer with fixed output.
type staticDecomposer struct {
	subs []domain.SubQuery
	err  error
}

func (s *staticDecomposer) Decompose(_ context.Context, query string) ([]domain.SubQuery, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	return s.subs, s.err
}

// stubRetriever implements driving.Retriever.
type stubRetriever struct{}

func (stubRetriever) Query(_ context.Context, _ string, _ int) ([]domain.ScoredChunk, error) {
	return nil, nil
}

var _ driving.Retriever = stubRetriever{}

// mockResponder implements driven.Responder.
type mockResponder struct {
	intent  domain.Intent
	answer  string
	err     error
	panics  bool
	delay   time.Duration
	calls   atomic.Int32
	active  *atomic.Int32
	maxSeen *atomic.Int32
	mu      sync.Mutex
	seen    []string
}

func (m *mockResponder) Intent() domain.Intent { return m.intent }

func (m *mockResponder) Handle(ctx context.Context, sq domain.SubQuery, _ driving.Retriever) (domain.Payload, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, sq.Text)
	m.mu.Unlock()

	if m.active != nil {
		n := m.active.Add(1)
		defer m.active.Add(-1)
		for {
			cur := m.maxSeen.Load()
			if n <= cur || m.maxSeen.CompareAndSwap(cur, n) {
				break
			}
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.Payload{}, ctx.Err()
		}
	}
	if m.panics {
		panic("responder exploded")
	}
	if m.err != nil {
		return domain.Payload{}, m.err
	}
	answer := m.answer
	if answer == "" {
		answer = string(m.intent) + ": " + sq.Text
	}
	if answer == "<empty>" {
		answer = ""
	}
	return domain.Payload{Answer: answer}, nil
}

var _ driven.Responder = (*mockResponder)(nil)
