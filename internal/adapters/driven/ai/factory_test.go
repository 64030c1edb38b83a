package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantModel   string
		wantDims    int
		errContains string
	}{
		{
			name:        "nil settings",
			errContains: "no embedding settings",
		},
		{
			name:        "unknown provider",
			settings:    &domain.EmbeddingSettings{Provider: "cohere"},
			errContains: "unknown embedding provider",
		},
		{
			name:      "hashing",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderHashing, Dimensions: 256},
			wantModel: "hashing-256",
			wantDims:  256,
		},
		{
			name:      "ollama known model",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm"},
			wantModel: "all-minilm",
			wantDims:  384,
		},
		{
			name:      "openai with key",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test", Model: "text-embedding-3-large"},
			wantModel: "text-embedding-3-large",
			wantDims:  3072,
		},
		{
			name:        "openai without key",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKeyEnv: "OPENAI_API_KEY"},
			errContains: "requires an API key in $OPENAI_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotConfigured)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateGenerator(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.LLMSettings
		wantModel   string
		errContains string
	}{
		{name: "nil settings", errContains: "no LLM settings"},
		{
			name:        "hashing cannot generate",
			settings:    &domain.LLMSettings{Provider: domain.AIProviderHashing},
			errContains: "hashing cannot generate text",
		},
		{
			name:      "ollama",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:        "openai without key",
			settings:    &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKeyEnv: "OPENAI_API_KEY"},
			errContains: "requires an API key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := CreateGenerator(tt.settings)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotConfigured)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, gen.ModelName())
		})
	}
}

func TestCreateAndValidate(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	ctx := context.Background()

	t.Run("embedding reachable", func(t *testing.T) {
		svc, err := CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: up.URL})
		require.NoError(t, err)
		assert.NoError(t, svc.Close())
	})

	t.Run("embedding unreachable", func(t *testing.T) {
		_, err := CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.ErrorContains(t, err, "service unreachable")
	})

	t.Run("embedding misconfigured", func(t *testing.T) {
		_, err := CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("generator reachable", func(t *testing.T) {
		gen, err := CreateAndValidateGenerator(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: up.URL})
		require.NoError(t, err)
		assert.NoError(t, gen.Close())
	})

	t.Run("generator unreachable", func(t *testing.T) {
		_, err := CreateAndValidateGenerator(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}
