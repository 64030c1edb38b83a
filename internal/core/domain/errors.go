package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a source whose extension is not in any allowed set.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction indicates text could not be extracted from a document.
	ErrExtraction = errors.New("extraction failed")

	// ErrIndexCorruption indicates the persisted index artifacts disagree.
	// This is fatal for the process.
	ErrIndexCorruption = errors.New("index corruption")

	// ErrNoResponderRegistered indicates no responder handles an intent.
	ErrNoResponderRegistered = errors.New("no responder registered")

	// ErrResponderFailure indicates a responder returned an error or panicked.
	ErrResponderFailure = errors.New("responder failure")

	// ErrMalformedPayload indicates a responder returned a payload that fails validation.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrLowConfidence is informational: a classification fell below the
	// threshold and was resolved to IntentUnknown.
	ErrLowConfidence = errors.New("classification confidence below threshold")

	// ErrEmptyQuery indicates a query that is empty after trimming.
	ErrEmptyQuery = errors.New("empty query")

	// ErrMisconfigured indicates constructor-time misconfiguration.
	// This is fatal for the process.
	ErrMisconfigured = errors.New("misconfigured")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// ExtractionError describes a failed text extraction.
type ExtractionError struct {
	Path      string
	MediaType MediaType
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s text from %s: %v", e.MediaType, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// ResponderError wraps a failure raised by the responder for an intent.
type ResponderError struct {
	Intent Intent
	Cause  error
}

func (e *ResponderError) Error() string {
	return fmt.Sprintf("responder %s: %v", e.Intent, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ResponderError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrResponderFailure.
func (e *ResponderError) Is(target error) bool { return target == ErrResponderFailure }

// ErrorKind names a failure category surfaced in a ResponseEnvelope.
type ErrorKind string

// Error kinds.
const (
	KindUnsupportedFormat     ErrorKind = "UnsupportedFormat"
	KindExtractionError       ErrorKind = "ExtractionError"
	KindIndexCorruption       ErrorKind = "IndexCorruption"
	KindNoResponderRegistered ErrorKind = "NoResponderRegistered"
	KindResponderFailure      ErrorKind = "ResponderFailure"
	KindMalformedPayload      ErrorKind = "MalformedPayload"
	KindEmptyQuery            ErrorKind = "EmptyQuery"
	KindCancelled             ErrorKind = "Cancelled"
)

// KindOf classifies an error into an ErrorKind.
// Errors outside the taxonomy are reported as responder failures.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrExtraction):
		return KindExtractionError
	case errors.Is(err, ErrIndexCorruption):
		return KindIndexCorruption
	case errors.Is(err, ErrNoResponderRegistered):
		return KindNoResponderRegistered
	case errors.Is(err, ErrMalformedPayload):
		return KindMalformedPayload
	case errors.Is(err, ErrEmptyQuery):
		return KindEmptyQuery
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindResponderFailure
	}
}
