package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests provider validity
func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.True(t, p.IsValid(), p.String())
	}
	assert.False(t, AIProvider("anthropic").IsValid())
	assert.False(t, AIProvider("").IsValid())
}

// TestAIProvider_Properties tests key and locality flags
func TestAIProvider_Properties(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderHashing.RequiresAPIKey())
	assert.True(t, AIProviderHashing.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

// TestEmbeddingSettings_IsConfigured tests embedding configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderHashing}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

// TestLLMSettings_IsConfigured tests generation configuration checks
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderHashing}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
}

// TestDefaultAppSettings tests the defaults are valid
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 1000, s.Chunking.Size)
	assert.Equal(t, 200, s.Chunking.Overlap)
	assert.Equal(t, 5, s.Retrieval.CaseDiscoveryK)
	assert.Equal(t, 3, s.Retrieval.LegalAidK)
	assert.Equal(t, AIProviderHashing, s.Embedding.Provider)
	assert.Equal(t, 4096, s.LLM.MaxPromptChars)
}

// TestAppSettings_Validate tests misconfiguration detection
func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
	}{
		{name: "missing root", mutate: func(s *AppSettings) { s.Documents.Root = " " }},
		{name: "zero chunk size", mutate: func(s *AppSettings) { s.Chunking.Size = 0 }},
		{name: "overlap equals size", mutate: func(s *AppSettings) { s.Chunking.Overlap = s.Chunking.Size }},
		{name: "negative overlap", mutate: func(s *AppSettings) { s.Chunking.Overlap = -1 }},
		{name: "threshold above one", mutate: func(s *AppSettings) { s.Classifier.ConfidenceThreshold = 1.5 }},
		{name: "unknown classifier model", mutate: func(s *AppSettings) { s.Classifier.Model = "bert" }},
		{name: "unknown default intent", mutate: func(s *AppSettings) { s.Orchestrator.DefaultIntent = "tax" }},
		{name: "default intent unknown", mutate: func(s *AppSettings) { s.Orchestrator.DefaultIntent = "unknown" }},
		{name: "bad embedding provider", mutate: func(s *AppSettings) { s.Embedding.Provider = "cohere" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrMisconfigured)
		})
	}
}

// TestEmbeddingDimensions tests known model dimensions
func TestEmbeddingDimensions(t *testing.T) {
	dims := EmbeddingDimensions()
	assert.Equal(t, 768, dims["nomic-embed-text"])
	assert.Equal(t, 1536, dims["text-embedding-3-small"])
}
