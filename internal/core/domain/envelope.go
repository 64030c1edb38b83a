package domain

import (
	"fmt"
	"strings"
)

// Stage is a step of the query-handling state machine.
type Stage string

// Stages in the order every cycle passes through them.
const (
	StageReceived    Stage = "received"
	StageDecomposing Stage = "decomposing"
	StageDispatching Stage = "dispatching"
	StageAggregating Stage = "aggregating"
	StageCompleted   Stage = "completed"
)

// Stages returns the full stage sequence.
func Stages() []Stage {
	return []Stage{StageReceived, StageDecomposing, StageDispatching, StageAggregating, StageCompleted}
}

// OverallStatus summarises an envelope.
type OverallStatus string

// Overall statuses.
const (
	StatusAllSucceeded   OverallStatus = "all_succeeded"
	StatusPartialSuccess OverallStatus = "partial_success"
	StatusAllFailed      OverallStatus = "all_failed"
)

// Payload is a responder's successful answer.
type Payload struct {
	// Answer is the generated text.
	Answer string `json:"answer"`

	// Sources are the retrieved chunks the answer was grounded on.
	Sources []ScoredChunk `json:"sources,omitempty"`
}

// Validate rejects malformed payloads.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.Answer) == "" {
		return fmt.Errorf("%w: empty answer", ErrMalformedPayload)
	}
	return nil
}

// Failure is a contained per-sub-query error.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewFailure builds a Failure from an error.
func NewFailure(err error) *Failure {
	return &Failure{Kind: KindOf(err), Message: err.Error()}
}

// Outcome is the result for a single sub-query.
// Exactly one of Payload and Failure is set.
type Outcome struct {
	SubQuery SubQuery `json:"sub_query"`
	Intent   Intent   `json:"intent"`
	Payload  *Payload `json:"payload,omitempty"`
	Failure  *Failure `json:"failure,omitempty"`
}

// Succeeded returns true if the outcome carries a payload.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil && o.Payload != nil
}

// ResponseEnvelope is the aggregated answer to one user query.
type ResponseEnvelope struct {
	// ID identifies the query-handling cycle.
	ID string `json:"id"`

	// Query is the raw user query.
	Query string `json:"query"`

	// Outcomes are ordered by SubQuery.Order.
	Outcomes []Outcome `json:"outcomes"`

	// Status is derived from Outcomes.
	Status OverallStatus `json:"overall_status"`

	// Stages records the state machine transitions of the cycle.
	Stages []Stage `json:"stages"`
}

// DeriveStatus computes the overall status of a set of outcomes.
// An empty set is reported as all_failed.
func DeriveStatus(outcomes []Outcome) OverallStatus {
	succeeded := 0
	for i := range outcomes {
		if outcomes[i].Succeeded() {
			succeeded++
		}
	}
	switch {
	case len(outcomes) > 0 && succeeded == len(outcomes):
		return StatusAllSucceeded
	case succeeded == 0:
		return StatusAllFailed
	default:
		return StatusPartialSuccess
	}
}
