// Package prototype scores text against intents by embedding similarity
// to a handful of prototype requests per intent.
package prototype

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure Model implements the interface.
var _ driven.IntentModel = (*Model)(nil)

// DefaultScale converts similarity above the mean into evidence.
const DefaultScale = 20.0

// DefaultPrototypes are example requests for each intent.
func DefaultPrototypes() map[domain.Intent][]string {
	return map[domain.Intent][]string{
		domain.IntentCaseDiscovery: {
			"find similar cases and precedents",
			"search case law for relevant judgments",
			"summarize the court's ruling in this case",
			"which past cases decided this issue",
		},
		domain.IntentLegalAid: {
			"what are my legal rights",
			"how do I file a complaint",
			"am I eligible for legal aid",
			"explain what the law says about this",
		},
		domain.IntentLegalDrafting: {
			"draft a legal notice",
			"write a contract clause",
			"prepare an affidavit",
			"compose an agreement template",
		},
	}
}

// Model embeds prototypes once and compares fragments against them.
type Model struct {
	embedder   driven.EmbeddingService
	prototypes map[domain.Intent][]string
	scale      float64

	once    sync.Once
	vectors map[domain.Intent][][]float32
	initErr error
}

// Option configures the model.
type Option func(*Model)

// WithPrototypes replaces the prototype requests.
func WithPrototypes(p map[domain.Intent][]string) Option {
	return func(m *Model) {
		if len(p) > 0 {
			m.prototypes = p
		}
	}
}

// WithScale sets how sharply similarity differences become evidence.
func WithScale(scale float64) Option {
	return func(m *Model) {
		if scale > 0 {
			m.scale = scale
		}
	}
}

// New creates a prototype model. Prototypes are embedded on first use.
func New(embedder driven.EmbeddingService, opts ...Option) (*Model, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: prototype model requires an embedding service", domain.ErrMisconfigured)
	}
	m := &Model{embedder: embedder, prototypes: DefaultPrototypes(), scale: DefaultScale}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name identifies the model in logs.
func (m *Model) Name() string { return "embedding" }

// Scores returns, per intent, how far the best prototype similarity lies
// above the mean across intents, times the scale. Intents at or below
// the mean score zero.
func (m *Model) Scores(ctx context.Context, text string) (map[domain.Intent]float64, error) {
	m.once.Do(func() { m.initErr = m.embedPrototypes(ctx) })
	if m.initErr != nil {
		return nil, m.initErr
	}

	q, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed fragment: %w", err)
	}

	sims := make(map[domain.Intent]float64, len(m.vectors))
	var mean float64
	for _, intent := range domain.KnownIntents() {
		vecs := m.vectors[intent]
		bestSim := 0.0
		for _, v := range vecs {
			if s := cosine(q, v); s > bestSim {
				bestSim = s
			}
		}
		sims[intent] = bestSim
		mean += bestSim
	}
	mean /= float64(len(domain.KnownIntents()))

	scores := make(map[domain.Intent]float64, len(sims))
	for intent, s := range sims {
		scores[intent] = math.Max(0, s-mean) * m.scale
	}
	return scores, nil
}

func (m *Model) embedPrototypes(ctx context.Context) error {
	m.vectors = make(map[domain.Intent][][]float32, len(m.prototypes))
	for _, intent := range domain.KnownIntents() {
		texts := m.prototypes[intent]
		if len(texts) == 0 {
			continue
		}
		vecs, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed %s prototypes: %w", intent, err)
		}
		m.vectors[intent] = vecs
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotp, na, nb float64
	for i := range a {
		dotp += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dotp / (math.Sqrt(na) * math.Sqrt(nb))
}
