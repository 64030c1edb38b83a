package ai

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates model provider configurations by creating a
// client and pinging it.
type ConfigValidator struct{}

// NewConfigValidator creates a new config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(context.Background(), config)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateLLM validates a generation configuration.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	gen, err := CreateAndValidateGenerator(context.Background(), config)
	if err != nil {
		return err
	}
	return gen.Close()
}
