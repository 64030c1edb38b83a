package domain

import (
	"fmt"
	"strings"
)

const unknownDescription = "Unknown"

// AIProvider identifies a provider for embeddings or text generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in feature-hashing embedder (embeddings only).
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API or a compatible server.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Feature hashing (built-in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// Classifier model names.
const (
	ClassifierModelLexicon   = "lexicon"
	ClassifierModelEmbedding = "embedding"
)

// DocumentSettings locates the source documents.
type DocumentSettings struct {
	// Root is the single directory searched recursively for documents.
	Root string `toml:"root"`
}

// ChunkingSettings configures how extracted text is split.
type ChunkingSettings struct {
	// Size is the maximum number of characters per chunk.
	Size int `toml:"size"`

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int `toml:"overlap"`
}

// IndexSettings configures index persistence.
type IndexSettings struct {
	// SnapshotDir holds the chunk table and vector file. Empty keeps the
	// index in memory only.
	SnapshotDir string `toml:"snapshot_dir"`
}

// RetrievalSettings holds per-responder retrieval depths.
type RetrievalSettings struct {
	CaseDiscoveryK int `toml:"case_discovery_k"`
	LegalAidK      int `toml:"legal_aid_k"`
	DraftingK      int `toml:"drafting_k"`
}

// ClassifierSettings configures intent classification.
type ClassifierSettings struct {
	// Model is "lexicon" or "embedding".
	Model string `toml:"model"`

	// LexiconPath optionally overrides the built-in cue lexicon (YAML).
	LexiconPath string `toml:"lexicon_path"`

	// ConfidenceThreshold maps lower confidences to IntentUnknown.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// DecomposerSettings configures query splitting.
type DecomposerSettings struct {
	// ActionVerbs allow a bare "and"/"or" to split a query when the
	// following fragment starts with one of them. Empty uses the defaults.
	ActionVerbs []string `toml:"action_verbs"`
}

// OrchestratorSettings configures dispatch.
type OrchestratorSettings struct {
	// Concurrency bounds parallel responder invocations. 1 is sequential.
	Concurrency int `toml:"concurrency"`

	// DefaultIntent names the responder used for unknown sub-queries.
	// Empty means unknown sub-queries fail with NoResponderRegistered.
	DefaultIntent string `toml:"default_intent"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv at startup and never written back.
	APIKey string `toml:"-"`

	// Dimensions is the embedding vector size (0 = model default).
	Dimensions int `toml:"dimensions"`

	// RequestsPerSecond throttles remote calls (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds text generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the LLM model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv at startup and never written back.
	APIKey string `toml:"-"`

	// MaxTokens caps generated tokens per call.
	MaxTokens int `toml:"max_tokens"`

	// Temperature controls randomness.
	Temperature float64 `toml:"temperature"`

	// MaxPromptChars truncates prompts before generation.
	MaxPromptChars int `toml:"max_prompt_chars"`

	// RequestsPerSecond throttles remote calls (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// IsConfigured returns true if the LLM provider is set up.
// The hashing provider cannot generate text.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AppSettings holds all application settings.
type AppSettings struct {
	Documents    DocumentSettings     `toml:"documents"`
	Chunking     ChunkingSettings     `toml:"chunking"`
	Index        IndexSettings        `toml:"index"`
	Retrieval    RetrievalSettings    `toml:"retrieval"`
	Classifier   ClassifierSettings   `toml:"classifier"`
	Decomposer   DecomposerSettings   `toml:"decomposer"`
	Orchestrator OrchestratorSettings `toml:"orchestrator"`
	Embedding    EmbeddingSettings    `toml:"embedding"`
	LLM          LLMSettings          `toml:"llm"`
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings work offline through the hashing provider; generation
// uses a local Ollama model.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Documents: DocumentSettings{Root: "data/casedocs"},
		Chunking:  ChunkingSettings{Size: 1000, Overlap: 200},
		Index:     IndexSettings{SnapshotDir: "data/index"},
		Retrieval: RetrievalSettings{CaseDiscoveryK: 5, LegalAidK: 3, DraftingK: 2},
		Classifier: ClassifierSettings{
			Model:               ClassifierModelLexicon,
			ConfidenceThreshold: 0.4,
		},
		Orchestrator: OrchestratorSettings{
			Concurrency:   4,
			DefaultIntent: string(IntentLegalAid),
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Dimensions: 512,
			APIKeyEnv:  "OPENAI_API_KEY",
		},
		LLM: LLMSettings{
			Provider:       AIProviderOllama,
			Model:          "llama3.2",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      1024,
			Temperature:    0.7,
			MaxPromptChars: 4096,
		},
	}
}

// Validate rejects settings the process cannot start with.
func (s AppSettings) Validate() error {
	if strings.TrimSpace(s.Documents.Root) == "" {
		return fmt.Errorf("%w: documents.root is required", ErrMisconfigured)
	}
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", ErrMisconfigured)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", ErrMisconfigured)
	}
	if s.Classifier.ConfidenceThreshold < 0 || s.Classifier.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: classifier.confidence_threshold must be in [0,1]", ErrMisconfigured)
	}
	switch s.Classifier.Model {
	case "", ClassifierModelLexicon, ClassifierModelEmbedding:
	default:
		return fmt.Errorf("%w: unknown classifier model %q", ErrMisconfigured, s.Classifier.Model)
	}
	if s.Orchestrator.DefaultIntent != "" {
		i, ok := ParseIntent(s.Orchestrator.DefaultIntent)
		if !ok || i == IntentUnknown {
			return fmt.Errorf("%w: invalid default intent %q", ErrMisconfigured, s.Orchestrator.DefaultIntent)
		}
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrMisconfigured, s.Embedding.Provider)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support text generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
