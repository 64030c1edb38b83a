// Package hashing provides a local embedding service based on feature
// hashing. It needs no model download and no network, which makes it the
// default for offline use and tests.
package hashing

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 512

// bigramWeight scales adjacent word pairs relative to single words.
const bigramWeight = 0.5

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "was": {}, "were": {}, "with": {},
}

// EmbeddingService hashes words and word pairs into a fixed-size vector.
// Each feature lands in one bucket with a hash-derived sign so that
// collisions tend to cancel out. Output vectors have unit length.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder. Non-positive
// dimensions fall back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName identifies the vector space. Vectors of different sizes are
// not comparable, so the size is part of the name.
func (s *EmbeddingService) ModelName() string {
	return "hashing-" + strconv.Itoa(s.dimensions)
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	counts := make(map[string]float64)
	var prev string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[tok]; stop {
			prev = ""
			continue
		}
		counts[tok]++
		if prev != "" {
			counts[prev+" "+tok] += bigramWeight
		}
		prev = tok
	}

	acc := make([]float64, s.dimensions)
	for feature, tf := range counts {
		h := xxhash.Sum64String(feature)
		bucket := h % uint64(s.dimensions)
		w := 1 + math.Log(tf)
		if tf < 1 {
			w = tf
		}
		if h>>63 == 1 {
			w = -w
		}
		acc[bucket] += w
	}

	var norm float64
	for _, x := range acc {
		norm += x * x
	}
	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range acc {
		out[i] = float32(x / norm)
	}
	return out
}
