package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

func subQueries(pairs ...any) []domain.SubQuery {
	var subs []domain.SubQuery
	for i := 0; i+1 < len(pairs); i += 2 {
		subs = append(subs, domain.SubQuery{
			Text:       pairs[i].(string),
			Intent:     pairs[i+1].(domain.Intent),
			Confidence: 0.9,
			Order:      i / 2,
		})
	}
	return subs
}

func newTestOrchestrator(t *testing.T, dec *staticDecomposer, responders []driven.Responder, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(dec, stubRetriever{}, responders, opts...)
	require.NoError(t, err)
	return o
}

func allResponders() (*mockResponder, *mockResponder, *mockResponder) {
	return &mockResponder{intent: domain.IntentCaseDiscovery},
		&mockResponder{intent: domain.IntentLegalAid},
		&mockResponder{intent: domain.IntentLegalDrafting}
}

func TestNewOrchestrator_Misconfigured(t *testing.T) {
	dec := &staticDecomposer{}
	cd, aid, _ := allResponders()

	tests := []struct {
		name       string
		responders []driven.Responder
		opts       []OrchestratorOption
	}{
		{name: "no responders"},
		{name: "duplicate intent", responders: []driven.Responder{cd, &mockResponder{intent: domain.IntentCaseDiscovery}}},
		{name: "unknown intent responder", responders: []driven.Responder{&mockResponder{intent: domain.IntentUnknown}}},
		{name: "invalid intent responder", responders: []driven.Responder{&mockResponder{intent: "billing"}}},
		{
			name:       "default without responder",
			responders: []driven.Responder{cd, aid},
			opts:       []OrchestratorOption{WithDefaultIntent(domain.IntentLegalDrafting)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrchestrator(dec, stubRetriever{}, tt.responders, tt.opts...)
			assert.ErrorIs(t, err, domain.ErrMisconfigured)
		})
	}

	_, err := NewOrchestrator(nil, stubRetriever{}, []driven.Responder{cd})
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
	_, err = NewOrchestrator(dec, nil, []driven.Responder{cd})
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestOrchestrator_AllSucceeded(t *testing.T) {
	cd, aid, dr := allResponders()
	dec := &staticDecomposer{subs: subQueries(
		"find cases on bail", domain.IntentCaseDiscovery,
		"what are my rights", domain.IntentLegalAid,
		"draft a bond", domain.IntentLegalDrafting,
	)}
	o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid, dr}, WithIDGenerator(func() string { return "env-1" }))

	env, err := o.Handle(context.Background(), "find cases on bail, what are my rights, draft a bond")
	require.NoError(t, err)
	require.NotNil(t, env)

	assert.Equal(t, "env-1", env.ID)
	assert.Equal(t, domain.StatusAllSucceeded, env.Status)
	assert.Equal(t, domain.Stages(), env.Stages)
	require.Len(t, env.Outcomes, 3)
	for i, out := range env.Outcomes {
		assert.Equal(t, i, out.SubQuery.Order)
		assert.True(t, out.Succeeded())
		assert.Nil(t, out.Failure)
		assert.Equal(t, out.SubQuery.Intent, out.Intent)
		assert.Equal(t, string(out.Intent)+": "+out.SubQuery.Text, out.Payload.Answer)
	}
	assert.Equal(t, int32(1), cd.calls.Load())
	assert.Equal(t, int32(1), aid.calls.Load())
	assert.Equal(t, int32(1), dr.calls.Load())
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	cd, _, dr := allResponders()
	aid := &mockResponder{intent: domain.IntentLegalAid, err: errors.New("generator timeout")}
	dec := &staticDecomposer{subs: subQueries(
		"find cases", domain.IntentCaseDiscovery,
		"explain bail", domain.IntentLegalAid,
		"draft a bond", domain.IntentLegalDrafting,
	)}
	o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid, dr})

	env, err := o.Handle(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, env.Outcomes, 3)

	assert.True(t, env.Outcomes[0].Succeeded())
	assert.False(t, env.Outcomes[1].Succeeded())
	assert.True(t, env.Outcomes[2].Succeeded())
	assert.Equal(t, domain.KindResponderFailure, env.Outcomes[1].Failure.Kind)
	assert.Contains(t, env.Outcomes[1].Failure.Message, "generator timeout")
	assert.Equal(t, domain.StatusPartialSuccess, env.Status)
}

func TestOrchestrator_PanicIsContained(t *testing.T) {
	cd, aid, _ := allResponders()
	dr := &mockResponder{intent: domain.IntentLegalDrafting, panics: true}
	dec := &staticDecomposer{subs: subQueries(
		"find cases", domain.IntentCaseDiscovery,
		"draft a bond", domain.IntentLegalDrafting,
		"explain bail", domain.IntentLegalAid,
	)}
	o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid, dr})

	env, err := o.Handle(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, env.Outcomes, 3)

	failure := env.Outcomes[1].Failure
	require.NotNil(t, failure)
	assert.Equal(t, domain.KindResponderFailure, failure.Kind)
	assert.Contains(t, failure.Message, "responder exploded")
	assert.True(t, env.Outcomes[0].Succeeded())
	assert.True(t, env.Outcomes[2].Succeeded())
	assert.Equal(t, domain.StatusPartialSuccess, env.Status)
}

func TestOrchestrator_MalformedPayload(t *testing.T) {
	cd := &mockResponder{intent: domain.IntentCaseDiscovery, answer: "<empty>"}
	dec := &staticDecomposer{subs: subQueries("find cases", domain.IntentCaseDiscovery)}
	o := newTestOrchestrator(t, dec, []driven.Responder{cd})

	env, err := o.Handle(context.Background(), "find cases")
	require.NoError(t, err)
	require.Len(t, env.Outcomes, 1)
	assert.Nil(t, env.Outcomes[0].Payload)
	assert.Equal(t, domain.KindMalformedPayload, env.Outcomes[0].Failure.Kind)
	assert.Equal(t, domain.StatusAllFailed, env.Status)
}

func TestOrchestrator_UnknownIntent(t *testing.T) {
	dec := &staticDecomposer{subs: subQueries(
		"find cases", domain.IntentCaseDiscovery,
		"tell me a joke", domain.IntentUnknown,
	)}

	t.Run("no default", func(t *testing.T) {
		cd, aid, dr := allResponders()
		o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid, dr})

		env, err := o.Handle(context.Background(), "query")
		require.NoError(t, err)
		require.Len(t, env.Outcomes, 2)

		out := env.Outcomes[1]
		require.NotNil(t, out.Failure)
		assert.Equal(t, domain.KindNoResponderRegistered, out.Failure.Kind)
		assert.Equal(t, domain.IntentUnknown, out.Intent)
		assert.Zero(t, aid.calls.Load())
		assert.Zero(t, dr.calls.Load())
		assert.Equal(t, domain.StatusPartialSuccess, env.Status)
	})

	t.Run("default intent", func(t *testing.T) {
		cd, aid, dr := allResponders()
		o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid, dr}, WithDefaultIntent(domain.IntentLegalAid))

		env, err := o.Handle(context.Background(), "query")
		require.NoError(t, err)

		out := env.Outcomes[1]
		assert.True(t, out.Succeeded())
		assert.Equal(t, domain.IntentLegalAid, out.Intent)
		assert.Equal(t, domain.IntentUnknown, out.SubQuery.Intent)
		assert.Equal(t, []string{"tell me a joke"}, aid.seen)
		assert.Equal(t, domain.StatusAllSucceeded, env.Status)
	})

	t.Run("intent without responder", func(t *testing.T) {
		cd := &mockResponder{intent: domain.IntentCaseDiscovery}
		draftOnly := &staticDecomposer{subs: subQueries("draft a bond", domain.IntentLegalDrafting)}
		o := newTestOrchestrator(t, draftOnly, []driven.Responder{cd})

		env, err := o.Handle(context.Background(), "draft a bond")
		require.NoError(t, err)
		assert.Equal(t, domain.KindNoResponderRegistered, env.Outcomes[0].Failure.Kind)
		assert.Equal(t, domain.StatusAllFailed, env.Status)
	})
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	cd, aid, dr := allResponders()
	o := newTestOrchestrator(t, &staticDecomposer{}, []driven.Responder{cd, aid, dr})

	env, err := o.Handle(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, env.Outcomes, 1)
	assert.Equal(t, domain.KindEmptyQuery, env.Outcomes[0].Failure.Kind)
	assert.Equal(t, domain.StatusAllFailed, env.Status)
	assert.Equal(t, domain.Stages(), env.Stages)
	assert.Zero(t, cd.calls.Load()+aid.calls.Load()+dr.calls.Load())
}

func TestOrchestrator_DecomposerErrorFallsBack(t *testing.T) {
	cd, aid, dr := allResponders()
	dec := &staticDecomposer{err: errors.New("splitter broke")}
	o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid, dr}, WithDefaultIntent(domain.IntentLegalAid))

	env, err := o.Handle(context.Background(), "  what are my rights  ")
	require.NoError(t, err)
	require.Len(t, env.Outcomes, 1)
	assert.Equal(t, "what are my rights", env.Outcomes[0].SubQuery.Text)
	assert.True(t, env.Outcomes[0].Succeeded())
}

func TestOrchestrator_StageHook(t *testing.T) {
	cd, _, _ := allResponders()
	dec := &staticDecomposer{subs: subQueries("find cases", domain.IntentCaseDiscovery)}

	var mu sync.Mutex
	var stages []domain.Stage
	var ids []string
	o := newTestOrchestrator(t, dec, []driven.Responder{cd}, WithStageHook(func(id string, s domain.Stage) {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, id)
		stages = append(stages, s)
	}))

	env, err := o.Handle(context.Background(), "find cases")
	require.NoError(t, err)
	assert.Equal(t, domain.Stages(), stages)
	for _, id := range ids {
		assert.Equal(t, env.ID, id)
	}
	assert.Len(t, env.ID, 36, "uuid envelope id")
}

func TestOrchestrator_Cancellation(t *testing.T) {
	dec := &staticDecomposer{subs: subQueries(
		"find cases", domain.IntentCaseDiscovery,
		"explain bail", domain.IntentLegalAid,
	)}

	t.Run("before start", func(t *testing.T) {
		cd, aid, _ := allResponders()
		o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		env, err := o.Handle(ctx, "query")
		assert.Nil(t, env)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, cd.calls.Load())
	})

	t.Run("during dispatch", func(t *testing.T) {
		cd := &mockResponder{intent: domain.IntentCaseDiscovery, delay: 5 * time.Second}
		aid := &mockResponder{intent: domain.IntentLegalAid, delay: 5 * time.Second}
		o := newTestOrchestrator(t, dec, []driven.Responder{cd, aid})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		env, err := o.Handle(ctx, "query")
		assert.Nil(t, env)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestOrchestrator_ConcurrencyLimit(t *testing.T) {
	var active, maxSeen atomic.Int32
	cd := &mockResponder{intent: domain.IntentCaseDiscovery, delay: 20 * time.Millisecond, active: &active, maxSeen: &maxSeen}

	var pairs []any
	for range 8 {
		pairs = append(pairs, "find cases", domain.IntentCaseDiscovery)
	}
	dec := &staticDecomposer{subs: subQueries(pairs...)}

	tests := []struct {
		name  string
		limit int
	}{
		{name: "sequential", limit: 1},
		{name: "bounded", limit: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active.Store(0)
			maxSeen.Store(0)
			o := newTestOrchestrator(t, dec, []driven.Responder{cd}, WithConcurrency(tt.limit))

			env, err := o.Handle(context.Background(), "query")
			require.NoError(t, err)
			assert.Len(t, env.Outcomes, 8)
			assert.LessOrEqual(t, maxSeen.Load(), int32(tt.limit))
			for i, out := range env.Outcomes {
				assert.Equal(t, i, out.SubQuery.Order, "outcomes keep sub-query order")
			}
		})
	}
}
