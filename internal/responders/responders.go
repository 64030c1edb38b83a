package responders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
)

// Generation defaults.
const (
	DefaultTemperature    = 0.7
	DefaultTopP           = 0.9
	DefaultMaxTokens      = 1024
	DefaultMaxPromptChars = 4096
)

// excerptChars bounds each passage in an extractive answer.
const excerptChars = 400

// Config is the per-responder retrieval and generation configuration.
type Config struct {
	// K is how many chunks to retrieve per sub-query.
	K int

	// MaxPromptChars caps the prompt length. The retrieved context is
	// cut to fit; the request itself is kept whole.
	MaxPromptChars int

	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ConfigFromSettings builds a Config with retrieval depth k.
func ConfigFromSettings(s domain.LLMSettings, k int) Config {
	return Config{
		K:              k,
		MaxPromptChars: s.MaxPromptChars,
		MaxTokens:      s.MaxTokens,
		Temperature:    s.Temperature,
		TopP:           DefaultTopP,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxPromptChars <= 0 {
		c.MaxPromptChars = DefaultMaxPromptChars
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.TopP <= 0 {
		c.TopP = DefaultTopP
	}
	return c
}

// Base carries what every responder needs. Generator may be nil, in
// which case answers are assembled from the retrieved passages.
type Base struct {
	Generator driven.Generator
	Config    Config
}

// NewBase validates cfg and fills in generation defaults.
func NewBase(gen driven.Generator, cfg Config) (Base, error) {
	if cfg.K < 0 {
		return Base{}, fmt.Errorf("%w: retrieval depth %d is negative", domain.ErrMisconfigured, cfg.K)
	}
	return Base{Generator: gen, Config: cfg.withDefaults()}, nil
}

// Retrieve queries the index with the sub-query text.
func (b Base) Retrieve(ctx context.Context, retriever driving.Retriever, text string) ([]domain.ScoredChunk, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: no retriever supplied", domain.ErrMisconfigured)
	}
	hits, err := retriever.Query(ctx, text, b.Config.K)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	return hits, nil
}

// Generate runs the prompt through the generator.
func (b Base) Generate(ctx context.Context, prompt string) (string, error) {
	if b.Generator == nil {
		return "", fmt.Errorf("%w: no text generator configured", domain.ErrLLMUnavailable)
	}
	out, err := b.Generator.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   b.Config.MaxTokens,
		Temperature: b.Config.Temperature,
		TopP:        b.Config.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return out, nil
}

// Answer generates from prompt when a generator is available and falls
// back to the passages otherwise. Without either there is nothing to
// answer with.
func (b Base) Answer(ctx context.Context, prompt string, hits []domain.ScoredChunk) (domain.Payload, error) {
	if b.Generator == nil {
		if len(hits) == 0 {
			return domain.Payload{}, errors.Join(domain.ErrLLMUnavailable,
				errors.New("no passages retrieved and no text generator configured"))
		}
		return domain.Payload{Answer: Extractive(hits), Sources: hits}, nil
	}

	answer, err := b.Generate(ctx, prompt)
	if err != nil {
		return domain.Payload{}, err
	}
	return domain.Payload{Answer: answer, Sources: hits}, nil
}

// JoinContext concatenates chunk texts separated by blank lines.
func JoinContext(hits []domain.ScoredChunk) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = strings.TrimSpace(h.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Fit renders a prompt with render(context) and cuts context until the
// result is at most limit characters. The surrounding text is never cut.
func Fit(render func(context string) string, context string, limit int) string {
	prompt := render(context)
	over := utf8.RuneCountInString(prompt) - limit
	if limit <= 0 || over <= 0 {
		return prompt
	}
	keep := utf8.RuneCountInString(context) - over
	return render(Truncate(context, keep))
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Extractive lists the retrieved passages with their source and score.
func Extractive(hits []domain.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Relevant passages:\n")
	for i, h := range hits {
		text := strings.Join(strings.Fields(h.Chunk.Text), " ")
		if utf8.RuneCountInString(text) > excerptChars {
			text = Truncate(text, excerptChars) + "..."
		}
		fmt.Fprintf(&sb, "\n%d. [%s, score %.2f] %s\n", i+1, h.Chunk.DocumentID, h.Score, text)
	}
	return sb.String()
}
