package cli

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
)

// mockAssistant implements driving.Assistant for testing.
type mockAssistant struct {
	env   *domain.ResponseEnvelope
	err   error
	query string
}

func (m *mockAssistant) Handle(_ context.Context, query string) (*domain.ResponseEnvelope, error) {
	m.query = query
	return m.env, m.err
}

// mockIndex implements driving.IndexService for testing.
type mockIndex struct {
	mu sync.Mutex

	hits     []domain.ScoredChunk
	queryErr error
	report   driving.BuildReport
	buildErr error
	loadErr  error
	empty    bool

	loads, persists int
	builtRoot       string
	replaced        []string
	deleted         []string
	queryK          int
}

func (m *mockIndex) Query(_ context.Context, _ string, k int) ([]domain.ScoredChunk, error) {
	m.queryK = k
	return m.hits, m.queryErr
}

func (m *mockIndex) Add(context.Context, []domain.Chunk) error { return nil }

func (m *mockIndex) ReplaceDocument(_ context.Context, documentID string, _ []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced = append(m.replaced, documentID)
	return nil
}

func (m *mockIndex) DeleteDocument(_ context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, documentID)
	return 2, nil
}

func (m *mockIndex) BuildFromDirectory(_ context.Context, root string) (driving.BuildReport, error) {
	m.builtRoot = root
	return m.report, m.buildErr
}

func (m *mockIndex) Persist(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persists++
	return nil
}

func (m *mockIndex) Load(context.Context) error {
	m.loads++
	return m.loadErr
}

func (m *mockIndex) Stats() driving.IndexStats { return driving.IndexStats{Chunks: 4} }
func (m *mockIndex) IsEmpty() bool             { return m.empty }

func (m *mockIndex) snapshot() (replaced, deleted []string, persists int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replaced...), append([]string(nil), m.deleted...), m.persists
}

// mockIngest implements driving.IngestService for testing.
type mockIngest struct {
	failFor string
}

func (m *mockIngest) Ingest(_ context.Context, source domain.Source) ([]domain.Chunk, error) {
	if source.ID == m.failFor {
		return nil, errors.New("cannot read")
	}
	return []domain.Chunk{{ID: source.ID + "-0", DocumentID: source.ID, Text: "text"}}, nil
}

func (m *mockIngest) Stream(context.Context, []domain.Source) iter.Seq[driving.IngestResult] {
	return func(func(driving.IngestResult) bool) {}
}

// mockValidator implements driven.AIConfigValidator for testing.
type mockValidator struct {
	embeddingErr error
	llmErr       error
	llmCalls     int
}

func (m *mockValidator) ValidateEmbedding(*domain.EmbeddingSettings) error { return m.embeddingErr }

func (m *mockValidator) ValidateLLM(*domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

// setupTestServices installs svc and restores global state afterwards.
func setupTestServices(t *testing.T, svc *Services) {
	t.Helper()
	oldWiring := wiring
	services = svc
	t.Cleanup(func() {
		services = nil
		wiring = oldWiring
		configPath = ""
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
}

// resetFlags restores every flag to its default so tests do not leak
// flag state into each other through the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func testServices(idx *mockIndex, a *mockAssistant) *Services {
	s := domain.DefaultAppSettings()
	s.Documents.Root = "/srv/casedocs"
	return &Services{Settings: s, Assistant: a, Index: idx, Ingest: &mockIngest{}}
}
