// Package legalaid answers legal questions from retrieved guidance.
package legalaid

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/responders"
)

// DefaultK is the retrieval depth when none is configured.
const DefaultK = 3

// Ensure Responder implements the interface.
var _ driven.Responder = (*Responder)(nil)

// Responder answers a question using the retrieved documents as context.
type Responder struct {
	base responders.Base
}

// New creates a legal aid responder. gen may be nil.
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

// Intent returns domain.IntentLegalAid.
func (r *Responder) Intent() domain.Intent {
	return domain.IntentLegalAid
}

// Handle answers the sub-query.
func (r *Responder) Handle(ctx context.Context, sq domain.SubQuery, retriever driving.Retriever) (domain.Payload, error) {
	hits, err := r.base.Retrieve(ctx, retriever, sq.Text)
	if err != nil {
		return domain.Payload{}, err
	}
	return r.base.Answer(ctx, Prompt(sq.Text, hits, r.base.Config.MaxPromptChars), hits)
}

// Prompt builds the question-answering prompt.
func Prompt(question string, hits []domain.ScoredChunk, limit int) string {
	if len(hits) == 0 {
		return fmt.Sprintf("You are a legal assistant. Answer the following question as best as you can "+
			"based only on your general legal knowledge:\n\nQuestion: %s", question)
	}
	return responders.Fit(func(passages string) string {
		return fmt.Sprintf("Answer the following question using the context from the retrieved legal documents.\n\n"+
			"Question: %s\n\nContext:\n%s", question, passages)
	}, responders.JoinContext(hits), limit)
}
