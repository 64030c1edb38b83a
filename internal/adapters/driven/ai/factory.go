// Package ai provides factory functions for creating model service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/lexroute/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/lexroute/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lexroute/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/lexroute/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/lexroute/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ErrNotConfigured is returned when a provider lacks the settings it needs.
var ErrNotConfigured = errors.New("provider not configured")

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, notConfigured(settings)
	}

	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateGenerator creates the text generator selected by settings.
func CreateGenerator(settings *domain.LLMSettings) (driven.Generator, error) {
	if settings == nil || !settings.IsConfigured() {
		if settings != nil && settings.Provider == domain.AIProviderHashing {
			return nil, fmt.Errorf("%w: hashing cannot generate text, use ollama or openai", ErrNotConfigured)
		}
		return nil, notConfiguredLLM(settings)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewGenerator(ollamallm.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewGenerator(openaillm.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and checks
// it is reachable.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'lexroute config' to check your settings",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateGenerator creates a generator and checks it is reachable.
func CreateAndValidateGenerator(ctx context.Context, settings *domain.LLMSettings) (driven.Generator, error) {
	gen, err := CreateGenerator(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'lexroute config' to check your settings",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := gen.Ping(ctx); err != nil {
		_ = gen.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return gen, nil
}

func notConfigured(settings *domain.EmbeddingSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: no embedding settings", ErrNotConfigured)
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key in $%s", ErrNotConfigured, settings.Provider, settings.APIKeyEnv)
	}
	return fmt.Errorf("%w: unknown embedding provider %q", ErrNotConfigured, settings.Provider)
}

func notConfiguredLLM(settings *domain.LLMSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: no LLM settings", ErrNotConfigured)
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key in $%s", ErrNotConfigured, settings.Provider, settings.APIKeyEnv)
	}
	return fmt.Errorf("%w: unknown LLM provider %q", ErrNotConfigured, settings.Provider)
}
