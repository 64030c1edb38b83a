// Package drafting drafts legal documents and individual clauses.
package drafting

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/responders"
)

// DefaultK is the retrieval depth when none is configured.
const DefaultK = 2

var clausePattern = regexp.MustCompile(`(?i)\b([\p{L}][\p{L}-]*)\s+clauses?\b`)

// notClauseTypes precede "clause" without naming a kind of clause.
var notClauseTypes = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "this": {}, "that": {}, "my": {}, "our": {},
	"one": {}, "new": {}, "some": {}, "draft": {}, "write": {}, "add": {},
}

// Ensure Responder implements the interface.
var _ driven.Responder = (*Responder)(nil)

// Responder drafts documents from instructions and retrieved examples.
type Responder struct {
	base responders.Base
}

// New creates a drafting responder. gen may be nil.
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

// Intent returns domain.IntentLegalDrafting.
func (r *Responder) Intent() domain.Intent {
	return domain.IntentLegalDrafting
}

// Handle drafts what the sub-query asks for. A request naming a clause
// type gets a clause-only prompt without retrieved context.
func (r *Responder) Handle(ctx context.Context, sq domain.SubQuery, retriever driving.Retriever) (domain.Payload, error) {
	if clauseType, ok := ClauseType(sq.Text); ok {
		return r.base.Answer(ctx, ClausePrompt(sq.Text, clauseType), nil)
	}

	hits, err := r.base.Retrieve(ctx, retriever, sq.Text)
	if err != nil {
		return domain.Payload{}, err
	}
	return r.base.Answer(ctx, DraftPrompt(sq.Text, hits, r.base.Config.MaxPromptChars), hits)
}

// ClauseType returns the kind of clause named in instructions, such as
// "indemnity" in "draft an indemnity clause".
func ClauseType(instructions string) (string, bool) {
	for _, m := range clausePattern.FindAllStringSubmatch(instructions, -1) {
		word := strings.ToLower(m[1])
		if _, skip := notClauseTypes[word]; !skip {
			return word, true
		}
	}
	return "", false
}

// DraftPrompt builds the document drafting prompt.
func DraftPrompt(instructions string, hits []domain.ScoredChunk, limit int) string {
	return responders.Fit(func(passages string) string {
		return fmt.Sprintf("Context: %s\n\nInstructions: %s\n\nDraft:", passages, instructions)
	}, responders.JoinContext(hits), limit)
}

// ClausePrompt builds the clause drafting prompt.
func ClausePrompt(instructions, clauseType string) string {
	return fmt.Sprintf("Draft a %s clause based on the following instructions:\n%s\n\nClause:", clauseType, instructions)
}
