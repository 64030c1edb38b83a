package services

import (
	"context"
	"fmt"
	"math"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// Ensure Classifier implements the interface.
var _ driving.QueryClassifier = (*Classifier)(nil)

// DefaultConfidenceThreshold is used when no threshold is configured.
const DefaultConfidenceThreshold = 0.4

// Classifier maps a text fragment to an intent using an IntentModel.
//
// Confidence combines how dominant the best intent is (its share of the
// total score) with how much evidence there is for it (1 - e^-best), so a
// single weak cue does not produce a confident label.
type Classifier struct {
	model     driven.IntentModel
	threshold float64
}

// NewClassifier creates a classifier. Thresholds outside [0,1] are rejected.
func NewClassifier(model driven.IntentModel, threshold float64) (*Classifier, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: classifier requires an intent model", domain.ErrMisconfigured)
	}
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: confidence threshold %v not in [0,1]", domain.ErrMisconfigured, threshold)
	}
	return &Classifier{model: model, threshold: threshold}, nil
}

// Classify returns the best intent and its confidence. Fragments below the
// threshold are labelled IntentUnknown with the computed confidence.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Intent, float64, error) {
	scores, err := c.model.Scores(ctx, text)
	if err != nil {
		return domain.IntentUnknown, 0, fmt.Errorf("%s model: %w", c.model.Name(), err)
	}

	best := domain.IntentUnknown
	var bestScore, total float64
	for _, intent := range domain.KnownIntents() {
		s := scores[intent]
		if s <= 0 || math.IsNaN(s) {
			continue
		}
		total += s
		// Strictly greater keeps ties on declaration order.
		if s > bestScore {
			best, bestScore = intent, s
		}
	}
	if total == 0 {
		return domain.IntentUnknown, 0, nil
	}

	confidence := (bestScore / total) * (1 - math.Exp(-bestScore))
	if confidence < c.threshold {
		logger.Debug("%v: %q best=%s confidence=%.2f threshold=%.2f",
			domain.ErrLowConfidence, text, best, confidence, c.threshold)
		return domain.IntentUnknown, confidence, nil
	}
	return best, confidence, nil
}
