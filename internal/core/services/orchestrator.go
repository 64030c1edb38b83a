package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Assistant = (*Orchestrator)(nil)

// DefaultConcurrency bounds parallel responder invocations.
const DefaultConcurrency = 4

// StageHook observes stage transitions of a query-handling cycle.
type StageHook func(envelopeID string, stage domain.Stage)

// Orchestrator decomposes a query, dispatches each sub-query to the
// responder registered for its intent and aggregates the outcomes.
// Responder failures are contained per sub-query.
type Orchestrator struct {
	decomposer    driving.QueryDecomposer
	retriever     driving.Retriever
	responders    map[domain.Intent]driven.Responder
	defaultIntent domain.Intent
	fallback      driven.Responder
	concurrency   int
	hook          StageHook
	newID         func() string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConcurrency sets how many responders may run at once. 1 is sequential.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithDefaultIntent routes unknown sub-queries to the responder of intent.
// The intent must have a registered responder.
func WithDefaultIntent(intent domain.Intent) OrchestratorOption {
	return func(o *Orchestrator) { o.defaultIntent = intent }
}

// WithStageHook registers a stage transition observer.
func WithStageHook(hook StageHook) OrchestratorOption {
	return func(o *Orchestrator) { o.hook = hook }
}

// WithIDGenerator overrides envelope ID generation.
func WithIDGenerator(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewOrchestrator resolves the routing table. It fails with
// domain.ErrMisconfigured when no responders are given, when two
// responders claim the same intent, or when the default intent has no
// responder.
func NewOrchestrator(
	decomposer driving.QueryDecomposer,
	retriever driving.Retriever,
	responders []driven.Responder,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if decomposer == nil || retriever == nil {
		return nil, fmt.Errorf("%w: orchestrator requires a decomposer and a retriever", domain.ErrMisconfigured)
	}
	if len(responders) == 0 {
		return nil, fmt.Errorf("%w: no responders registered", domain.ErrMisconfigured)
	}

	o := &Orchestrator{
		decomposer:  decomposer,
		retriever:   retriever,
		responders:  make(map[domain.Intent]driven.Responder, len(responders)),
		concurrency: DefaultConcurrency,
		newID:       func() string { return uuid.New().String() },
	}
	for _, r := range responders {
		intent := r.Intent()
		if intent == domain.IntentUnknown || !intent.IsValid() {
			return nil, fmt.Errorf("%w: responder for invalid intent %q", domain.ErrMisconfigured, intent)
		}
		if _, dup := o.responders[intent]; dup {
			return nil, fmt.Errorf("%w: two responders for intent %s", domain.ErrMisconfigured, intent)
		}
		o.responders[intent] = r
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.defaultIntent != "" {
		r, ok := o.responders[o.defaultIntent]
		if !ok {
			return nil, fmt.Errorf("%w: default intent %s has no responder", domain.ErrMisconfigured, o.defaultIntent)
		}
		o.fallback = r
	}
	return o, nil
}

// Handle runs one query-handling cycle. If ctx is cancelled before the
// cycle completes, no envelope is returned.
func (o *Orchestrator) Handle(ctx context.Context, query string) (*domain.ResponseEnvelope, error) {
	env := &domain.ResponseEnvelope{ID: o.newID(), Query: query}

	o.enter(env, domain.StageReceived)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.enter(env, domain.StageDecomposing)
	subs, err := o.decomposer.Decompose(ctx, query)
	var outcomes []domain.Outcome
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		outcomes = []domain.Outcome{{
			SubQuery: domain.SubQuery{Intent: domain.IntentUnknown},
			Intent:   domain.IntentUnknown,
			Failure:  domain.NewFailure(err),
		}}
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Decomposition failed, dispatching whole query: %v", err)
		subs = []domain.SubQuery{whole(strings.TrimSpace(query))}
	}

	o.enter(env, domain.StageDispatching)
	if outcomes == nil {
		outcomes = o.dispatch(ctx, subs)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.enter(env, domain.StageAggregating)
	env.Outcomes = outcomes
	env.Status = domain.DeriveStatus(outcomes)

	o.enter(env, domain.StageCompleted)
	logger.Debug("Query %s: %d sub-queries, %s", env.ID, len(outcomes), env.Status)
	return env, nil
}

// dispatch runs every sub-query with bounded concurrency. Outcomes are
// stored by position so their order matches the sub-query order.
func (o *Orchestrator) dispatch(ctx context.Context, subs []domain.SubQuery) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(subs))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, sq := range subs {
		g.Go(func() error {
			outcomes[i] = o.dispatchOne(ctx, sq)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) dispatchOne(ctx context.Context, sq domain.SubQuery) domain.Outcome {
	out := domain.Outcome{SubQuery: sq, Intent: sq.Intent}

	r, ok := o.responders[sq.Intent]
	if !ok {
		if o.fallback == nil {
			err := fmt.Errorf("%w: intent %s", domain.ErrNoResponderRegistered, sq.Intent)
			logger.Debug("Sub-query %d: %v", sq.Order, err)
			out.Failure = domain.NewFailure(err)
			return out
		}
		r = o.fallback
		out.Intent = r.Intent()
	}

	payload, err := invoke(ctx, r, sq, o.retriever)
	if err != nil {
		rerr := &domain.ResponderError{Intent: r.Intent(), Cause: err}
		logger.Warn("Sub-query %d (%s) failed: %v", sq.Order, r.Intent(), err)
		out.Failure = &domain.Failure{Kind: domain.KindResponderFailure, Message: rerr.Error()}
		return out
	}
	if err := payload.Validate(); err != nil {
		logger.Warn("Sub-query %d (%s): %v", sq.Order, r.Intent(), err)
		out.Failure = &domain.Failure{Kind: domain.KindMalformedPayload, Message: err.Error()}
		return out
	}

	out.Payload = &payload
	return out
}

// invoke calls the responder, converting a panic into an error.
func invoke(ctx context.Context, r driven.Responder, sq domain.SubQuery, retriever driving.Retriever) (payload domain.Payload, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Debug("responder %s panic stack:\n%s", r.Intent(), debug.Stack())
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Handle(ctx, sq, retriever)
}

func (o *Orchestrator) enter(env *domain.ResponseEnvelope, stage domain.Stage) {
	env.Stages = append(env.Stages, stage)
	if o.hook != nil {
		o.hook(env.ID, stage)
	}
}
