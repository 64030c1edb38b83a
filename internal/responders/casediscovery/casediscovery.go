// Package casediscovery answers requests for precedent by summarising
// the most similar case documents.
package casediscovery

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/responders"
)

// DefaultK is the retrieval depth when none is configured.
const DefaultK = 5

// Ensure Responder implements the interface.
var _ driven.Responder = (*Responder)(nil)

// Responder summarises retrieved case documents.
type Responder struct {
	base responders.Base
}

// New creates a case discovery responder. gen may be nil.
func New(gen driven.Generator, cfg responders.Config) (*Responder, error) {
	if cfg.K == 0 {
		cfg.K = DefaultK
	}
	base, err := responders.NewBase(gen, cfg)
	if err != nil {
		return nil, err
	}
	return &Responder{base: base}, nil
}

// Intent returns domain.IntentCaseDiscovery.
func (r *Responder) Intent() domain.Intent {
	return domain.IntentCaseDiscovery
}

// Handle retrieves similar cases and summarises them for the query.
func (r *Responder) Handle(ctx context.Context, sq domain.SubQuery, retriever driving.Retriever) (domain.Payload, error) {
	hits, err := r.base.Retrieve(ctx, retriever, sq.Text)
	if err != nil {
		return domain.Payload{}, err
	}
	return r.base.Answer(ctx, Prompt(sq.Text, hits, r.base.Config.MaxPromptChars), hits)
}

// Prompt builds the summarisation prompt: the retrieved documents
// followed by the query, or a general-knowledge prompt without documents.
func Prompt(query string, hits []domain.ScoredChunk, limit int) string {
	if len(hits) == 0 {
		return fmt.Sprintf("You are a legal research assistant. No relevant case documents were retrieved. "+
			"Based only on your general legal knowledge, answer the following query:\n\n%s", query)
	}
	return responders.Fit(func(docs string) string {
		return docs + "\n\n" + query
	}, responders.JoinContext(hits), limit)
}
