package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestNewEmbeddingService(t *testing.T) {
	assert.Equal(t, DefaultDimensions, NewEmbeddingService(0).Dimensions())
	s := NewEmbeddingService(64)
	assert.Equal(t, 64, s.Dimensions())
	assert.Equal(t, "hashing-64", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbed(t *testing.T) {
	s := NewEmbeddingService(256)
	ctx := context.Background()

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := s.Embed(ctx, "Anticipatory bail under section 438")
		require.NoError(t, err)
		b, err := s.Embed(ctx, "Anticipatory bail under section 438")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 256)
		assert.InDelta(t, 1.0, math.Sqrt(cosine(a, a)), 1e-5)
	})

	t.Run("related text is closer", func(t *testing.T) {
		q, _ := s.Embed(ctx, "tenant eviction notice")
		near, _ := s.Embed(ctx, "The landlord served an eviction notice on the tenant.")
		far, _ := s.Embed(ctx, "Confidentiality obligations in a software licence.")
		assert.Greater(t, cosine(q, near), cosine(q, far))
	})

	t.Run("case and stopwords ignored", func(t *testing.T) {
		a, _ := s.Embed(ctx, "BAIL Conditions")
		b, _ := s.Embed(ctx, "the bail conditions")
		assert.InDelta(t, 1.0, cosine(a, b), 1e-5)
	})

	t.Run("empty text is the zero vector", func(t *testing.T) {
		v, err := s.Embed(ctx, "  the of ")
		require.NoError(t, err)
		for _, x := range v {
			assert.Zero(t, x)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Embed(cctx, "bail")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(128)
	texts := []string{"bail", "eviction", "contract"}

	vecs, err := s.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, text := range texts {
		single, _ := s.Embed(context.Background(), text)
		assert.Equal(t, single, vecs[i])
	}
}
