package driven

import "context"

// Generator produces text completions for responders.
// This is an optional service - when nil, responders fall back to
// returning the retrieved passages.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI (GPT-4o, GPT-4o-mini) or compatible servers
type Generator interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// TopP is the nucleus sampling cutoff (0 = provider default).
	TopP float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
